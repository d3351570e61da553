package reconcile_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okian/hoops/internal/domain/apperrors"
	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/internal/domain/notify"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLeaderboardReset(t *testing.T) {
	Convey("Given a leaderboard with three players", t, func() {
		f := newFixture()
		ctx := context.Background()
		for id, score := range map[string]int64{"ann": 30, "bob": 50, "cat": 10} {
			_, err := f.board.TreapStore.AddPlayerScore(ctx, "scores", id, score)
			So(err, ShouldBeNil)
		}
		version, err := f.board.CurrentVersion(ctx, "scores")
		So(err, ShouldBeNil)

		Convey("When the version is reset", func() {
			res, err := f.svc.LeaderboardReset(ctx, "scores", version)

			Convey("Then the top player is named", func() {
				So(err, ShouldBeNil)
				So(res.Winner.PlayerID, ShouldEqual, "bob")
				So(res.Winner.Score, ShouldEqual, 50)
				So(res.VersionID, ShouldEqual, version)
			})

			Convey("Then a broadcast precedes the winner's reward", func() {
				notices := f.drain()
				So(notices, ShouldHaveLength, 2)
				So(notices[0].Audience, ShouldEqual, model.AudienceAll)
				So(notices[0].Message, ShouldEqual, notify.MessageUpdateLeaderboard)
				So(notices[1].Audience, ShouldEqual, model.AudiencePlayer)
				So(notices[1].PlayerID, ShouldEqual, "bob")
				So(notices[1].Message, ShouldEqual, notify.MessageReward)
				So(notices[1].Type, ShouldEqual, notify.TypeReward)
			})

			Convey("Then the version is not rolled over", func() {
				current, _ := f.board.CurrentVersion(ctx, "scores")
				So(current, ShouldEqual, version)
				So(f.board.Count(ctx, "scores"), ShouldEqual, 3)
			})
		})

		Convey("When the current version is rolled over and reset", func() {
			res, err := f.svc.RolloverAndReset(ctx, "")

			Convey("Then the archived winner is rewarded and the board starts empty", func() {
				So(err, ShouldBeNil)
				So(res.VersionID, ShouldEqual, version)
				So(res.Winner.PlayerID, ShouldEqual, "bob")
				So(f.board.Count(ctx, "scores"), ShouldEqual, 0)
			})

			Convey("And a second rollover of the empty version reports no entries", func() {
				_, err := f.svc.RolloverAndReset(ctx, "scores")
				So(errors.Is(err, apperrors.ErrNoEntries), ShouldBeTrue)
			})
		})

		Convey("When the version is unknown", func() {
			_, err := f.svc.LeaderboardReset(ctx, "scores", "v99")

			Convey("Then no entries are reported and nothing is sent", func() {
				So(errors.Is(err, apperrors.ErrNoEntries), ShouldBeTrue)
				So(f.drain(), ShouldBeEmpty)
			})
		})
	})

	Convey("Given an empty leaderboard", t, func() {
		f := newFixture()
		_, err := f.svc.LeaderboardReset(context.Background(), "scores", "")
		So(errors.Is(err, apperrors.ErrNoEntries), ShouldBeTrue)
	})
}

func TestPlayerNotices(t *testing.T) {
	Convey("Given the service", t, func() {
		f := newFixture()
		ctx := context.Background()

		Convey("When a player registers", func() {
			id := f.svc.PlayerRegistered(ctx, f.player)
			notices := f.drain()
			So(notices, ShouldHaveLength, 1)
			So(notices[0].ID, ShouldEqual, id)
			So(notices[0].Message, ShouldEqual, "Welcome to the game!")
			So(notices[0].Type, ShouldEqual, notify.TypeWelcome)
		})

		Convey("When a player logs in again", func() {
			last := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
			f.svc.PlayerLoggedIn(ctx, f.player, last)
			notices := f.drain()
			So(notices, ShouldHaveLength, 1)
			So(notices[0].PlayerID, ShouldEqual, "p1")
			So(notices[0].Type, ShouldEqual, notify.TypeWelcomeBack)
			So(strings.HasSuffix(notices[0].Message, "2026-10-16T09:30:00Z"), ShouldBeTrue)
		})

		Convey("When an operator announces", func() {
			f.svc.Announce(ctx, "double points tonight")
			notices := f.drain()
			So(notices, ShouldHaveLength, 1)
			So(notices[0].Audience, ShouldEqual, model.AudienceAll)
			So(notices[0].Message, ShouldEqual, "double points tonight")
		})
	})
}
