package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/okian/hoops/internal/adapters/http/api"
	"github.com/okian/hoops/internal/adapters/http/auth"
	"github.com/okian/hoops/internal/adapters/http/site"
	"github.com/okian/hoops/internal/adapters/http/swagger"
	"github.com/okian/hoops/internal/adapters/playerstate"
	"github.com/okian/hoops/internal/adapters/playerstate/postgres"
	"github.com/okian/hoops/internal/adapters/playerstate/sqlite"
	"github.com/okian/hoops/internal/adapters/remoteconfig"
	app "github.com/okian/hoops/internal/app"
	"github.com/okian/hoops/internal/config"
	"github.com/okian/hoops/internal/domain/progress"
	"github.com/okian/hoops/internal/platform/tracing"
	"github.com/okian/hoops/pkg/logger"
	"github.com/okian/hoops/pkg/metrics"
)

const serviceName = "hoops"

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(context.Background(), "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "hoops exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn(ctx, "tracing shutdown failed", logger.Error(err))
		}
	}()

	source, err := remoteconfig.NewFileSource(cfg.CatalogPath, remoteconfig.WithLogger(log.Named("catalog")))
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if cfg.CatalogWatch {
		if err := source.Watch(ctx); err != nil {
			log.Warn(ctx, "catalog hot reload disabled", logger.Error(err))
		}
	}

	store, err := openPlayerStore(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info(ctx, "player state store ready", logger.String("store", cfg.PlayerStore))

	svc := app.New(
		app.WithLogger(log),
		app.WithCatalogSource(source),
		app.WithPlayerStore(store),
		app.WithLeaderboardID(cfg.LeaderboardID),
		app.WithGracePeriod(time.Duration(cfg.GracePeriodMS)*time.Millisecond),
		app.WithTopRankNotify(cfg.TopRankNotify),
		app.WithWorkerCount(cfg.NotifyWorkers),
		app.WithQueueSize(cfg.NotifyQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(sctx); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newHandler builds the router: business API, docs, landing page, with
// panic recovery in front.
func newHandler(cfg *config.Config, svc *app.Service, log logger.Logger) http.Handler {
	apiServer := api.NewServer(
		svc.Core(),
		auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		svc.Inbox(),
		api.WithDeduper(svc.Deduper()),
		api.WithStats(svc),
		api.WithAdminToken(cfg.AdminToken),
		api.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
		api.WithLogger(log.Named("api")),
	)

	r := mux.NewRouter()
	apiServer.Register(r)
	swagger.Register(serviceName, r)
	site.Register(r)

	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{log: log.Named("http")}),
	)(r)
}

// recoveryLogger routes recovered panics to the service logger.
type recoveryLogger struct {
	log logger.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error(context.Background(), "recovered from panic", logger.String("panic", fmt.Sprint(v...)))
}

// openPlayerStore returns the configured player-state backend.
func openPlayerStore(ctx context.Context, cfg *config.Config) (progress.Store, error) {
	switch cfg.PlayerStore {
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite player store: %w", err)
		}
		return s, nil
	case config.StorePostgres:
		s, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres player store: %w", err)
		}
		return s, nil
	case config.StoreMemory, "":
		return playerstate.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown player_store %q", config.ErrInvalidConfig, cfg.PlayerStore)
	}
}

// startSystemMetricsUpdater refreshes system and service gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(metrics.Default().RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
			_ = svc.GetStats()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
