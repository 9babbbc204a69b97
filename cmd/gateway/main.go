package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/lotta-llamas/api/internal/assets"
	"github.com/lotta-llamas/api/internal/config"
	"github.com/lotta-llamas/api/internal/httpapi"
	"github.com/lotta-llamas/api/internal/logging"
	"github.com/lotta-llamas/api/internal/media"
	"github.com/lotta-llamas/api/internal/metrics"
	"github.com/lotta-llamas/api/internal/middleware"
	"github.com/lotta-llamas/api/internal/storage"
	"github.com/lotta-llamas/api/internal/storage/memory"
	"github.com/lotta-llamas/api/internal/storage/postgres"
	"github.com/lotta-llamas/api/internal/token"
)

const serviceName = "gateway"

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(serviceName, cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("gateway exited")
	}
}

func run(cfg *config.Config, log *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	issuer, err := token.NewIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	resolver, err := assets.NewHTTPResolver(cfg.Assets.Endpoint, cfg.Assets.Timeout, cfg.Assets.MaxRetries, log)
	if err != nil {
		return fmt.Errorf("asset resolver: %w", err)
	}

	store, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer cleanup()

	objects, err := media.NewS3Store(ctx, cfg.Media)
	if err != nil {
		return fmt.Errorf("object storage: %w", err)
	}

	denylist, sweeper := buildDenylist(cfg, log)
	if sweeper != nil {
		sweeper.Start()
		defer sweeper.Stop()
	}

	api := httpapi.New(httpapi.Options{
		Store:     store,
		Resolver:  resolver,
		Issuer:    issuer,
		Denylist:  denylist,
		Objects:   objects,
		Log:       log,
		Metrics:   m,
		TokenTTL:  cfg.Auth.TokenTTL,
		MaxUpload: int64(cfg.Media.MaxUploadMB) << 20,
	})

	gate := middleware.NewGate(issuer, denylist, log)
	cors := middleware.NewCORSMiddleware(cfg.Server.AllowedOrigins)
	limiter := middleware.NewRateLimiter(cfg.Server.RequestsPerSecond, cfg.Server.RateBurst, log)
	limiter.StartCleanup(10*time.Minute, ctx.Done())

	router := api.Router(gate,
		cors.Handler,
		middleware.LoggingMiddleware(log),
		middleware.MetricsMiddleware(serviceName, m),
		limiter.Handler,
	)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("gateway listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func buildStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (storage.Store, func(), error) {
	if cfg.Database.DSN == "" {
		log.Warn("no database configured, using in-memory storage")
		return memory.New(), func() {}, nil
	}

	db, err := postgres.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return postgres.New(db), func() { db.Close() }, nil
}

// buildDenylist prefers Redis; without it the in-memory denylist is
// swept on a schedule so revoked entries do not pile up.
func buildDenylist(cfg *config.Config, log *logging.Logger) (token.Denylist, *cron.Cron) {
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return token.NewRedisDenylist(client), nil
	}

	denylist := token.NewMemoryDenylist()
	c := cron.New()
	if _, err := c.AddFunc("@every 10m", func() {
		if removed := denylist.Sweep(); removed > 0 {
			log.Debugf("denylist sweep removed %d entries", removed)
		}
	}); err != nil {
		log.WithError(err).Warn("could not schedule denylist sweep")
	}
	return denylist, c
}
