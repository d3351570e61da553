package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/hoops/internal/domain/apperrors"
	"github.com/okian/hoops/internal/domain/catalog"
	"github.com/okian/hoops/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type staticSource struct {
	settings map[string]any
	err      error
	calls    int
	lastKeys []string
}

func (s *staticSource) FetchSettings(_ context.Context, _ model.Player, keys []string) (map[string]any, error) {
	s.calls++
	s.lastKeys = keys
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := s.settings[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func TestReaderSnapshot(t *testing.T) {
	Convey("Given a remote config with two hoops", t, func() {
		src := &staticSource{settings: map[string]any{
			catalog.KeySessionLength:  60.0,
			catalog.KeyProgressPoints: 10,
			catalog.KeySpawnDelay:     "1.5",
			catalog.KeyHoops:          `[{"id":7,"score":5,"x":1,"y":2,"z":3},{"id":9,"score":3}]`,
		}}
		reader := catalog.NewReader(src)
		ctx := context.Background()
		player := model.Player{ID: "p1"}

		Convey("When reading a snapshot", func() {
			snap, err := reader.Snapshot(ctx, player)

			Convey("Then targets and settings are decoded", func() {
				So(err, ShouldBeNil)
				So(snap.SessionLength, ShouldEqual, 60*time.Second)
				So(snap.PointsPerHit, ShouldEqual, 10)
				So(snap.SpawnDelay, ShouldEqual, 1500*time.Millisecond)
				So(snap.Targets, ShouldHaveLength, 2)

				t7, ok := snap.Target(7)
				So(ok, ShouldBeTrue)
				So(t7.Points, ShouldEqual, 5)
				So(t7.Position, ShouldResemble, model.Position{X: 1, Y: 2, Z: 3})

				_, ok = snap.Target(8)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When reading twice with unchanged config", func() {
			first, err1 := reader.Snapshot(ctx, player)
			second, err2 := reader.Snapshot(ctx, player)

			Convey("Then both reads yield identical target lists", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second.Targets, ShouldResemble, first.Targets)
			})
		})

		Convey("When reading only the session length", func() {
			length, err := reader.SessionLength(ctx, player)

			Convey("Then only that key is requested", func() {
				So(err, ShouldBeNil)
				So(length, ShouldEqual, time.Minute)
				So(src.lastKeys, ShouldResemble, []string{catalog.KeySessionLength})
			})
		})

		Convey("When hoops come pre-decoded from a file source", func() {
			src.settings[catalog.KeyHoops] = []any{
				map[string]any{"id": 1, "score": 2},
			}
			snap, err := reader.Snapshot(ctx, player)

			Convey("Then they are normalized the same way", func() {
				So(err, ShouldBeNil)
				So(snap.Targets, ShouldResemble, []model.ScoringTarget{{ID: 1, Points: 2}})
			})
		})

		Convey("When the source fails", func() {
			src.err = errors.New("remote config unavailable")
			_, err := reader.Snapshot(ctx, player)

			Convey("Then the cause is wrapped", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, src.err), ShouldBeTrue)
			})
		})
	})
}

func TestDecodeRejectsBadCatalogs(t *testing.T) {
	Convey("Given malformed settings", t, func() {
		cases := map[string]map[string]any{
			"missing session length": {catalog.KeyHoops: `[]`},
			"zero session length":    {catalog.KeySessionLength: 0, catalog.KeyHoops: `[]`},
			"negative progress":      {catalog.KeySessionLength: 30, catalog.KeyProgressPoints: -1},
			"duplicate ids":          {catalog.KeySessionLength: 30, catalog.KeyHoops: `[{"id":1,"score":1},{"id":1,"score":2}]`},
			"target without score":   {catalog.KeySessionLength: 30, catalog.KeyHoops: `[{"id":1}]`},
			"hoops not a list":       {catalog.KeySessionLength: 30, catalog.KeyHoops: `{"id":1}`},
		}

		for name, settings := range cases {
			Convey("When decoding with "+name, func() {
				_, err := catalog.Decode(settings)

				Convey("Then an invalid catalog error is returned", func() {
					So(err, ShouldNotBeNil)
					So(apperrors.CodeOf(err), ShouldEqual, apperrors.CodeInvalidCatalog)
				})
			})
		}

		Convey("When hoops are absent from a full snapshot", func() {
			reader := catalog.NewReader(&staticSource{settings: map[string]any{catalog.KeySessionLength: 30}})
			_, err := reader.Snapshot(context.Background(), model.Player{})

			Convey("Then the snapshot is rejected", func() {
				So(apperrors.CodeOf(err), ShouldEqual, apperrors.CodeInvalidCatalog)
			})
		})
	})
}
