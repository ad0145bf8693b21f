// Command pagecache-server runs a small demo site behind the Redis page cache.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/page-cache/pkg/codec"
	"github.com/Sternrassler/page-cache/pkg/config"
	"github.com/Sternrassler/page-cache/pkg/jobs"
	"github.com/Sternrassler/page-cache/pkg/logging"
	"github.com/Sternrassler/page-cache/pkg/metrics"
	"github.com/Sternrassler/page-cache/pkg/pagecache"
	"github.com/Sternrassler/page-cache/pkg/policy"
	"github.com/Sternrassler/page-cache/pkg/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", getEnv("PAGECACHE_CONFIG", ""), "path to the YAML settings file")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load settings")
	}

	logger := logging.Setup(logging.ConfigFromSettings(settings))

	a, err := newApp(settings, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize page cache")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumerDone := make(chan struct{})
	go func() {
		a.consumer.Run(ctx, jobs.RemoveQueue)
		close(consumerDone)
	}()

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(settings.Int("Server:Port", 8080)),
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Bool("cache_enabled", a.pages.Enabled()).
			Msg("Starting page cache server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}
	<-consumerDone
	if err := a.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Cleanup incomplete")
	}
}

// app holds the wired components of the server.
type app struct {
	logger   zerolog.Logger
	conns    *store.ConnectionManager
	cache    *store.Cache
	queue    *store.Queue
	policies policy.Provider
	pages    *pagecache.Middleware
	consumer *jobs.Consumer

	closePolicies func() error
}

func newApp(settings *config.Settings, logger zerolog.Logger) (*app, error) {
	storeCfg := store.ConfigFromSettings(settings, store.DefaultSection)
	if err := storeCfg.Validate(); err != nil {
		return nil, fmt.Errorf("store config: %w", err)
	}

	storeLogger := logger.With().Str("component", "store").Logger()
	conns := store.NewConnectionManager(storeCfg, storeLogger)
	payloads := codec.New(storeCfg.MaxValueSizeForMonitor, storeLogger)

	a := &app{
		logger: logger,
		conns:  conns,
		cache:  store.NewCache(conns, payloads, storeLogger),
		queue:  store.NewQueue(conns, storeLogger),
	}

	policies, closePolicies, err := openPolicies(settings)
	if err != nil {
		conns.Close()
		return nil, err
	}
	a.policies = policies
	a.closePolicies = closePolicies

	pages, err := pagecache.New(
		pagecache.ConfigFromSettings(settings),
		a.cache,
		a.policies,
		logger.With().Str("component", "pagecache").Logger(),
		pagecache.WithRouteResolver(demoRoutes),
	)
	if err != nil {
		closePolicies()
		conns.Close()
		return nil, err
	}
	a.pages = pages

	a.consumer = jobs.NewConsumer(a.queue, jobs.RemoveKeys(a.cache), jobs.DefaultConfig(),
		logger.With().Str("component", "jobs").Logger())

	return a, nil
}

// openPolicies uses the policy database when configured. Static pages from
// the settings seed it; without a database they are served from memory.
func openPolicies(settings *config.Settings) (policy.Provider, func() error, error) {
	static, err := policy.StaticFromSettings(settings)
	if err != nil {
		return nil, nil, fmt.Errorf("page policies: %w", err)
	}

	dsn := settings.String("Cache:CachePage:PolicyDatabase", "")
	if dsn == "" {
		return static, func() error { return nil }, nil
	}

	db, err := policy.OpenSQL(dsn)
	if err != nil {
		return nil, nil, err
	}

	var pages []policy.Page
	if _, err := settings.Decode(policy.PagesKey, &pages); err != nil {
		db.Close()
		return nil, nil, err
	}
	for _, p := range pages {
		if err := db.Put(context.Background(), p.Route, policy.Policy{FilePath: p.FilePath, CacheExpireSeconds: p.CacheExpireSeconds}); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	return db, db.Close, nil
}

func (a *app) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(hlog.NewHandler(a.logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request")
	}))

	r.Get("/health", healthHandler)
	r.Get("/ready", a.readyHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(pagecache.NoCacheRedirects)
		r.Use(a.pages.Handler)
		mountDemoSite(r)
	})

	return r
}

// Close drains background writes and releases store and policy resources.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if err := a.pages.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain page writes: %w", err))
	}
	if err := a.closePolicies(); err != nil {
		errs = append(errs, fmt.Errorf("close policies: %w", err))
	}
	if err := a.conns.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (a *app) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.conns.Ping(ctx); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Store not ready")
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "READY")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
