package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/hoops/internal/adapters/http/auth"
	"github.com/okian/hoops/internal/adapters/playerstate"
	"github.com/okian/hoops/internal/adapters/remoteconfig"
	app "github.com/okian/hoops/internal/app"
	"github.com/okian/hoops/internal/config"
	"github.com/okian/hoops/pkg/logger"
)

const testCatalog = `
sessionLength: 60
hoops:
  - {id: 7, score: 5}
`

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestOpenPlayerStore(t *testing.T) {
	convey.Convey("Given the player_store setting", t, func() {
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("When it is memory", func() {
			store, err := openPlayerStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			_, ok := store.(*playerstate.MemoryStore)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("When it is sqlite", func() {
			cfg.PlayerStore = config.StoreSQLite
			cfg.SQLitePath = filepath.Join(t.TempDir(), "hoops.db")
			store, err := openPlayerStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			closer, ok := store.(io.Closer)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(closer.Close(), convey.ShouldBeNil)
		})

		convey.Convey("When it is unknown", func() {
			cfg.PlayerStore = "redis"
			_, err := openPlayerStore(ctx, cfg)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given a started service and its handler", t, func() {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		convey.So(os.WriteFile(path, []byte(testCatalog), 0o600), convey.ShouldBeNil)
		source, err := remoteconfig.NewFileSource(path)
		convey.So(err, convey.ShouldBeNil)

		cfg := config.New()
		cfg.JWTSecret = "main-secret"
		cfg.AdminToken = "operator"

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := app.New(app.WithCatalogSource(source), app.WithWorkerCount(1))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		h := newHandler(cfg, svc, logger.Get())
		get := func(path, bearer string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
			if bearer != "" {
				req.Header.Set("Authorization", "Bearer "+bearer)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			return w
		}

		convey.Convey("Then operational and docs routes are served", func() {
			convey.So(get("/healthz", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/stats", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/", "").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then player routes require a token", func() {
			convey.So(get("/leaderboard", "").Code, convey.ShouldEqual, http.StatusUnauthorized)

			tok, err := auth.Issue(cfg.JWTSecret, cfg.JWTIssuer, "p1", time.Hour, time.Now())
			convey.So(err, convey.ShouldBeNil)
			convey.So(get("/leaderboard", tok).Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/players/me/progress", tok).Code, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestRecoveryLogger(t *testing.T) {
	convey.Convey("Given the recovery logger", t, func() {
		convey.So(func() { recoveryLogger{log: logger.Get()}.Println("boom", 1) }, convey.ShouldNotPanic)
	})
}
