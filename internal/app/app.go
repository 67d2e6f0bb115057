package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/httplog"
	"github.com/rs/zerolog"

	"pizza-service/internal/authutil"
	"pizza-service/internal/config"
	"pizza-service/internal/factory"
	"pizza-service/internal/metrics"
	"pizza-service/internal/server"
	"pizza-service/internal/session"
	"pizza-service/internal/store"
)

// pruneInterval is how often expired sessions are dropped from the session store.
const pruneInterval = time.Hour

type sessionPruner interface {
	Prune(maxAge time.Duration) (int, error)
}

// App wraps the pizza HTTP server, its persistence and the metrics reporter.
type App struct {
	Cfg      *config.Config
	Logger   zerolog.Logger
	Store    *store.Store
	Sessions *session.Store
	Metrics  *metrics.Aggregator
	Reporter *metrics.Reporter

	handler http.Handler
	srv     *http.Server
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewApp wires the dependencies required to run the service.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := httplog.NewLogger("pizza-service", httplog.Options{JSON: cfg.LogJSON})

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if cfg.AdminEmail != "" {
		if err := db.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed admin: %w", err)
		}
	}

	sessions, err := session.Open(cfg.SessionDB)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}
	signer, err := authutil.NewSigner(cfg.JWTSecret)
	if err != nil {
		_ = sessions.Close()
		_ = db.Close()
		return nil, err
	}

	agg := metrics.New()
	srv := server.New(server.Deps{
		Store:    db,
		Sessions: sessions,
		Signer:   signer,
		Metrics:  agg,
		Factory:  factory.NewClient(cfg.FactoryURL, cfg.FactoryAPIKey),
		Logger:   logger,
		Version:  cfg.Version,
	})

	return &App{
		Cfg:      cfg,
		Logger:   logger,
		Store:    db,
		Sessions: sessions,
		Metrics:  agg,
		Reporter: newReporter(cfg, agg, logger),
		handler:  httplog.RequestLogger(logger)(srv.Router()),
	}, nil
}

// newReporter returns nil when metric pushes are disabled.
func newReporter(cfg *config.Config, agg *metrics.Aggregator, logger zerolog.Logger) *metrics.Reporter {
	if !cfg.MetricsEnabled {
		return nil
	}
	sender := &metrics.HTTPSender{URL: cfg.MetricsURL, APIKey: cfg.MetricsAPIKey}
	return metrics.NewReporter(agg, sender, cfg.MetricsSource,
		metrics.WithInterval(cfg.MetricsInterval),
		metrics.WithTimeout(cfg.MetricsTimeout),
		metrics.WithLogger(logger),
		metrics.WithSampler(metrics.HostSampler{Logger: logger}),
	)
}

// Start begins serving requests and launches the background loops.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Reporter != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.Reporter.Run(ctx)
		}()
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		pruneLoop(ctx, a.Sessions, pruneInterval, a.Logger)
	}()

	a.srv = &http.Server{
		Addr:              a.Cfg.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("pizza server stopped: %v", err)
		}
	}()

	a.Logger.Info().Str("addr", a.Cfg.Addr).Bool("metrics", a.Reporter != nil).Msg("pizza service listening")
	return nil
}

// pruneLoop drops sessions older than the token lifetime until ctx is done.
func pruneLoop(ctx context.Context, sessions sessionPruner, every time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.Prune(authutil.TokenTTL)
			if err != nil {
				logger.Warn().Err(err).Msg("session prune failed")
				continue
			}
			if n > 0 {
				logger.Debug().Int("removed", n).Msg("pruned expired sessions")
			}
		}
	}
}

// Shutdown gracefully stops the HTTP server, the background loops and the stores.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.srv != nil {
		errs = append(errs, a.srv.Shutdown(ctx))
	}
	if a.Reporter != nil {
		a.Reporter.Close()
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	errs = append(errs, a.Sessions.Close(), a.Store.Close())
	return errors.Join(errs...)
}

// WaitForShutdown blocks on SIGINT/SIGTERM and then shuts down the app.
func WaitForShutdown(app *App) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	app.Logger.Info().Msg("pizza service shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
