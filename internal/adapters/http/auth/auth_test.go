package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/hoops/internal/adapters/http/auth"
	. "github.com/smartystreets/goconvey/convey"
)

func TestVerifier(t *testing.T) {
	Convey("Given a verifier for issuer hoops", t, func() {
		now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
		v := auth.NewVerifier("s3cret", "hoops", auth.WithClock(func() time.Time { return now }))

		Convey("When a valid token is presented", func() {
			token, err := auth.Issue("s3cret", "hoops", "player-1", time.Hour, now)
			So(err, ShouldBeNil)
			player, err := v.Verify(token)

			Convey("Then the subject becomes the player", func() {
				So(err, ShouldBeNil)
				So(player.ID, ShouldEqual, "player-1")
				So(player.Token, ShouldEqual, token)
			})
		})

		Convey("When the token is expired", func() {
			token, _ := auth.Issue("s3cret", "hoops", "player-1", time.Minute, now.Add(-time.Hour))
			_, err := v.Verify(token)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the signature does not match", func() {
			token, _ := auth.Issue("other", "hoops", "player-1", time.Hour, now)
			_, err := v.Verify(token)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the issuer differs", func() {
			token, _ := auth.Issue("s3cret", "someone-else", "player-1", time.Hour, now)
			_, err := v.Verify(token)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the subject is empty", func() {
			token, _ := auth.Issue("s3cret", "hoops", "", time.Hour, now)
			_, err := v.Verify(token)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When no token is presented", func() {
			_, err := v.Verify("  ")
			So(errors.Is(err, auth.ErrMissingToken), ShouldBeTrue)
		})
	})
}

func TestFromHeader(t *testing.T) {
	Convey("FromHeader extracts bearer tokens", t, func() {
		So(auth.FromHeader("Bearer abc"), ShouldEqual, "abc")
		So(auth.FromHeader("bearer  abc "), ShouldEqual, "abc")
		So(auth.FromHeader("Basic abc"), ShouldEqual, "")
		So(auth.FromHeader(""), ShouldEqual, "")
	})
}
