package playerstate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/hoops/internal/adapters/playerstate"
	"github.com/okian/hoops/internal/domain/apperrors"
	"github.com/okian/hoops/internal/domain/progress"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStore(t *testing.T) {
	Convey("Given an empty memory store", t, func() {
		now := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
		store := playerstate.NewMemoryStore(playerstate.WithClock(func() time.Time { return now }))
		ctx := context.Background()

		Convey("When reading absent keys", func() {
			fields, err := store.GetFields(ctx, "p1", progress.AllKeys)

			Convey("Then nothing is returned", func() {
				So(err, ShouldBeNil)
				So(fields, ShouldBeEmpty)
			})
		})

		Convey("When writing a batch unconditionally", func() {
			err := store.SetFields(ctx, "p1", []progress.Write{
				{Key: progress.KeySessionStart, Value: now.UnixMilli()},
				{Key: progress.KeySessionScore, Value: 0},
			})
			So(err, ShouldBeNil)
			fields, err := store.GetFields(ctx, "p1", progress.SessionKeys)

			Convey("Then both fields are stamped and locked", func() {
				So(err, ShouldBeNil)
				So(fields, ShouldHaveLength, 2)
				for _, f := range fields {
					So(f.Modified, ShouldEqual, now)
					So(f.WriteLock, ShouldNotBeBlank)
				}
			})

			Convey("Then a write with the current lock succeeds and rotates it", func() {
				state := progress.NewState(fields)
				lock := state.Lock(progress.KeySessionScore)
				err := store.SetFields(ctx, "p1", []progress.Write{{Key: progress.KeySessionScore, Value: 5, WriteLock: lock}})
				So(err, ShouldBeNil)

				again, _ := store.GetFields(ctx, "p1", []string{progress.KeySessionScore})
				So(again[0].Value, ShouldEqual, 5)
				So(again[0].WriteLock, ShouldNotEqual, lock)

				Convey("And a write with the old lock conflicts without touching any field", func() {
					err := store.SetFields(ctx, "p1", []progress.Write{
						{Key: progress.KeySessionStart, Value: 1},
						{Key: progress.KeySessionScore, Value: 99, WriteLock: lock},
					})
					So(errors.Is(err, apperrors.ErrWriteConflict), ShouldBeTrue)

					after, _ := store.GetFields(ctx, "p1", progress.SessionKeys)
					st := progress.NewState(after)
					So(st.Value(progress.KeySessionScore), ShouldEqual, 5)
					So(st.Value(progress.KeySessionStart), ShouldEqual, now.UnixMilli())
				})
			})
		})

		Convey("When seeding a field with an old timestamp", func() {
			store.Seed("p2", progress.KeyDailyHoopCount, 7, now.Add(-24*time.Hour))
			fields, _ := store.GetFields(ctx, "p2", []string{progress.KeyDailyHoopCount})

			Convey("Then the daily count reads as reset", func() {
				So(progress.NewState(fields).DailyHoopCount(now), ShouldEqual, 0)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := store.GetFields(cctx, "p1", progress.AllKeys)

			Convey("Then the read fails", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}
