package playsim

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hoops/internal/adapters/http/api"
	"github.com/okian/hoops/internal/adapters/http/auth"
	"github.com/okian/hoops/internal/adapters/remoteconfig"
	service "github.com/okian/hoops/internal/app"
	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/pkg/logger"
)

const simCatalog = `
sessionLength: 60
hoops:
  - {id: 1, score: 2}
  - {id: 2, score: 3}
  - {id: 3, score: 5}
`

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		dir := t.TempDir()
		catalogPath := filepath.Join(dir, "catalog.yaml")
		So(os.WriteFile(catalogPath, []byte(simCatalog), 0o600), ShouldBeNil)
		source, err := remoteconfig.NewFileSource(catalogPath)
		So(err, ShouldBeNil)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		svc := service.New(service.WithCatalogSource(source), service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		const secret = "sim-secret"
		srv := api.NewServer(svc.Core(), auth.NewVerifier(secret, "hoops"), svc.Inbox())
		ts := httptest.NewServer(srv.Router())
		defer ts.Close()

		config := &Config{
			BaseURL:     ts.URL,
			CatalogPath: catalogPath,
			Secret:      secret,
			Issuer:      "hoops",
			Players:     20,
			MaxHits:     5,
			BatchShare:  0.5,
			TopN:        50,
			Workers:     4,
			Timeout:     5 * time.Second,
			OutputFile:  filepath.Join(dir, "out", "plays.json"),
		}

		Convey("When the simulation runs", func() {
			err := Run(ctx, config)

			Convey("Then every session checks out and the plays are saved", func() {
				So(err, ShouldBeNil)
				_, statErr := os.Stat(config.OutputFile)
				So(statErr, ShouldBeNil)
			})
		})

		Convey("When the secret is wrong", func() {
			config.Secret = "other"
			err := Run(ctx, config)

			Convey("Then no session completes", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When there are no players", func() {
			config.Players = 0
			So(Run(ctx, config), ShouldNotBeNil)
		})
	})
}

func TestGeneratePlays(t *testing.T) {
	Convey("Given a catalog", t, func() {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		So(os.WriteFile(path, []byte(simCatalog), 0o600), ShouldBeNil)
		snap, err := loadCatalog(context.Background(), path)
		So(err, ShouldBeNil)

		Convey("When plays are generated", func() {
			stats := &Stats{}
			plays := generatePlays(context.Background(), &Config{Players: 30, MaxHits: 4, BatchShare: 1}, snap, stats)

			Convey("Then every claim matches the catalog and sums to the expectation", func() {
				So(plays, ShouldHaveLength, 30)
				So(stats.PlayersSimulated, ShouldEqual, 30)
				seen := map[string]bool{}
				for _, p := range plays {
					So(seen[p.PlayerID], ShouldBeFalse)
					seen[p.PlayerID] = true
					So(p.Batch, ShouldBeTrue)
					So(len(p.Events), ShouldBeBetweenOrEqual, 1, 4)
					var sum int64
					for _, ev := range p.Events {
						tgt, ok := snap.Target(ev.TargetID)
						So(ok, ShouldBeTrue)
						So(ev.ClaimedPoints, ShouldEqual, tgt.Points)
						sum += int64(ev.ClaimedPoints)
					}
					So(p.Expected, ShouldEqual, sum)
				}
			})
		})
	})
}

func TestVerifyLeaderboardConsistency(t *testing.T) {
	Convey("Given completed plays", t, func() {
		plays := []Play{{PlayerID: "a", Expected: 9}, {PlayerID: "b", Expected: 4}, {PlayerID: "c", Expected: 7, Err: "boom"}}

		Convey("Then a matching leaderboard passes", func() {
			err := verifyLeaderboardConsistency(plays, []model.LeaderboardEntry{
				{PlayerID: "a", Score: 9, Rank: 1},
				{PlayerID: "other", Score: 6, Rank: 2},
				{PlayerID: "b", Score: 4, Rank: 3},
			})
			So(err, ShouldBeNil)
		})

		Convey("Then a wrong score fails", func() {
			err := verifyLeaderboardConsistency(plays, []model.LeaderboardEntry{{PlayerID: "a", Score: 8, Rank: 1}})
			So(err, ShouldNotBeNil)
		})

		Convey("Then bad ordering or ranks fail", func() {
			So(verifyLeaderboardConsistency(plays, []model.LeaderboardEntry{
				{PlayerID: "b", Score: 4, Rank: 1},
				{PlayerID: "a", Score: 9, Rank: 2},
			}), ShouldNotBeNil)
			So(verifyLeaderboardConsistency(plays, []model.LeaderboardEntry{
				{PlayerID: "a", Score: 9, Rank: 2},
			}), ShouldNotBeNil)
		})
	})
}
