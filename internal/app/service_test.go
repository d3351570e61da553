package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/hoops/internal/app"
	"github.com/okian/hoops/internal/domain/catalog"
	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/internal/domain/progress"
	"github.com/okian/hoops/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// staticCatalog serves fixed settings.
type staticCatalog map[string]any

func (c staticCatalog) FetchSettings(_ context.Context, _ model.Player, keys []string) (map[string]any, error) {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := c[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

var settings = staticCatalog{
	catalog.KeySessionLength:  60,
	catalog.KeyProgressPoints: 10,
	catalog.KeyHoops:          `[{"id":7,"score":5},{"id":9,"score":3}]`,
}

// closingStore records Close calls.
type closingStore struct {
	progress.Store
	closed bool
	err    error
}

func (c *closingStore) Close() error {
	c.closed = true
	return c.err
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service without a catalog source", t, func() {
		svc := service.New()

		Convey("Then Start fails", func() {
			So(errors.Is(svc.Start(context.Background()), service.ErrNoCatalog), ShouldBeTrue)
			So(svc.Core(), ShouldBeNil)
		})
	})

	Convey("Given a configured service", t, func() {
		svc := service.New(
			service.WithCatalogSource(settings),
			service.WithWorkerCount(2),
			service.WithQueueSize(100),
			service.WithDedupeSize(10),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When it is started", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then every component is available", func() {
				So(svc.Core(), ShouldNotBeNil)
				So(svc.Inbox(), ShouldNotBeNil)
				So(svc.Deduper(), ShouldNotBeNil)

				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["workerCount"], ShouldEqual, 2)
				So(stats["rankedPlayers"], ShouldEqual, 0)
				So(stats["leaderboard"], ShouldEqual, "scores")
			})

			Convey("Then Stop marks it stopped", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})

	Convey("Given a player store that can be closed", t, func() {
		store := &closingStore{err: errors.New("disk gone")}
		svc := service.New(service.WithCatalogSource(settings), service.WithPlayerStore(store))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When the service stops", func() {
			err := svc.Stop(ctx)

			Convey("Then the store is closed and its error surfaces", func() {
				So(store.closed, ShouldBeTrue)
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "disk gone")
			})
		})
	})
}

func TestService_Notices(t *testing.T) {
	Convey("Given a started service", t, func() {
		t0 := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
		now := t0
		svc := service.New(
			service.WithCatalogSource(settings),
			service.WithClock(func() time.Time { return now }),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		core := svc.Core()
		player := model.Player{ID: "p1"}

		Convey("When a player finishes a session and the board is reset", func() {
			So(core.StartSession(ctx, player), ShouldBeNil)
			now = t0.Add(10 * time.Second)
			_, err := core.EndSessionWithScores(ctx, player, []model.ScoreEvent{
				{TargetID: 7, ClaimedPoints: 5, EventTimeMillis: t0.Add(5 * time.Second).UnixMilli()},
			})
			So(err, ShouldBeNil)
			res, err := core.RolloverAndReset(ctx, "scores")
			So(err, ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then the notices reach the player's inbox", func() {
				So(res.Winner.PlayerID, ShouldEqual, "p1")
				var types []string
				for _, m := range svc.Inbox().Drain("p1") {
					types = append(types, m.Type)
				}
				So(types, ShouldContain, "reward")
				So(types, ShouldContain, "")
			})
		})
	})
}

func TestService_TopRankNotify(t *testing.T) {
	Convey("Given a service with the leaderboard broadcast disabled", t, func() {
		t0 := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
		now := t0
		svc := service.New(
			service.WithCatalogSource(settings),
			service.WithClock(func() time.Time { return now }),
			service.WithTopRankNotify(0),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.GetStats()["topRankNotify"], ShouldEqual, 0)
		player := model.Player{ID: "p1"}

		Convey("When the player takes first place", func() {
			So(svc.Core().StartSession(ctx, player), ShouldBeNil)
			now = t0.Add(5 * time.Second)
			_, err := svc.Core().AddScore(ctx, player, model.ScoreEvent{TargetID: 7, ClaimedPoints: 5, EventTimeMillis: now.UnixMilli()})
			So(err, ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then no leaderboard update is broadcast", func() {
				So(svc.Inbox().Drain("p1"), ShouldBeEmpty)
			})
		})
	})
}

func TestService_NoticeIDs(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithCatalogSource(settings))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		player := model.Player{ID: "p1"}

		Convey("When a welcome and an announcement are queued", func() {
			welcome := svc.Core().PlayerRegistered(ctx, player)
			announcement := svc.Core().Announce(ctx, "maintenance at noon")
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then the drained messages carry the returned ids", func() {
				ids := map[string]string{}
				for _, m := range svc.Inbox().Drain("p1") {
					ids[m.Message] = m.ID
				}
				So(ids["Welcome to the game!"], ShouldEqual, welcome)
				So(ids["maintenance at noon"], ShouldEqual, announcement)
			})
		})
	})
}
