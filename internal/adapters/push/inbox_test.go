package push_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/hoops/internal/adapters/push"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHub(t *testing.T) {
	Convey("Given a hub with inboxes of three messages", t, func() {
		hub := push.NewHub(push.WithInboxSize(3))
		ctx := context.Background()

		Convey("When a player has a direct message and a broadcast", func() {
			So(hub.SendToAll(ctx, "", "update-leaderboard", ""), ShouldBeNil)
			So(hub.SendToPlayer(ctx, "n-reward", "p1", "reward", "reward"), ShouldBeNil)

			msgs := hub.Drain("p1")

			Convey("Then broadcasts come first and both are returned", func() {
				So(msgs, ShouldHaveLength, 2)
				So(msgs[0].Broadcast, ShouldBeTrue)
				So(msgs[0].Message, ShouldEqual, "update-leaderboard")
				So(msgs[1].Message, ShouldEqual, "reward")
				So(msgs[0].ID, ShouldNotBeBlank)
				So(msgs[1].ID, ShouldEqual, "n-reward")
			})

			Convey("Then a second drain is empty", func() {
				So(hub.Drain("p1"), ShouldBeEmpty)
			})

			Convey("Then other players still see the broadcast only", func() {
				other := hub.Drain("p2")
				So(other, ShouldHaveLength, 1)
				So(other[0].Broadcast, ShouldBeTrue)
			})
		})

		Convey("When more messages arrive than fit", func() {
			for i := 0; i < 5; i++ {
				So(hub.SendToPlayer(ctx, "", "p1", fmt.Sprintf("m%d", i), ""), ShouldBeNil)
				So(hub.SendToAll(ctx, "", fmt.Sprintf("b%d", i), ""), ShouldBeNil)
			}
			msgs := hub.Drain("p1")

			Convey("Then only the newest are kept", func() {
				So(msgs, ShouldHaveLength, 6)
				So(msgs[0].Message, ShouldEqual, "b2")
				So(msgs[2].Message, ShouldEqual, "b4")
				So(msgs[3].Message, ShouldEqual, "m2")
				So(msgs[5].Message, ShouldEqual, "m4")
			})
		})

		Convey("When sending without a player id", func() {
			err := hub.SendToPlayer(ctx, "", " ", "x", "")
			So(errors.Is(err, push.ErrNoPlayer), ShouldBeTrue)
		})
	})
}

func TestHubCursors(t *testing.T) {
	Convey("Given a hub with a broadcast log of two", t, func() {
		hub := push.NewHub(push.WithInboxSize(2))
		ctx := context.Background()

		Convey("When players drain while no broadcast was ever sent", func() {
			for i := 0; i < 10; i++ {
				So(hub.SendToPlayer(ctx, "", fmt.Sprintf("p%d", i), "hi", ""), ShouldBeNil)
				So(hub.Drain(fmt.Sprintf("p%d", i)), ShouldHaveLength, 1)
			}

			Convey("Then no cursor is kept", func() {
				So(hub.Readers(), ShouldEqual, 0)
			})
		})

		Convey("When a reader falls behind the retained log", func() {
			So(hub.SendToAll(ctx, "", "b0", ""), ShouldBeNil)
			So(hub.Drain("p1"), ShouldHaveLength, 1)
			So(hub.Readers(), ShouldEqual, 1)

			for _, m := range []string{"b1", "b2", "b3"} {
				So(hub.SendToAll(ctx, "", m, ""), ShouldBeNil)
			}

			Convey("Then its cursor is dropped", func() {
				So(hub.Readers(), ShouldEqual, 0)
			})

			Convey("Then it still reads every retained broadcast once", func() {
				msgs := hub.Drain("p1")
				So(msgs, ShouldHaveLength, 2)
				So(msgs[0].Message, ShouldEqual, "b2")
				So(msgs[1].Message, ShouldEqual, "b3")
				So(hub.Drain("p1"), ShouldBeEmpty)
			})
		})
	})
}
