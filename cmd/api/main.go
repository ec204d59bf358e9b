package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/gymlog/internal/auth"
	"github.com/geocoder89/gymlog/internal/config"
	"github.com/geocoder89/gymlog/internal/db"
	"github.com/geocoder89/gymlog/internal/domain/gymclass"
	"github.com/geocoder89/gymlog/internal/domain/user"
	httpx "github.com/geocoder89/gymlog/internal/http"
	"github.com/geocoder89/gymlog/internal/http/handlers"
	"github.com/geocoder89/gymlog/internal/observability"
	"github.com/geocoder89/gymlog/internal/ratelimit"
	"github.com/geocoder89/gymlog/internal/redisclient"
	"github.com/geocoder89/gymlog/internal/repo/memory"
	"github.com/geocoder89/gymlog/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// Load the config set up
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: "gymlog-api",
			Environment: cfg.Env,
			Endpoint:    cfg.OTLPEndpoint,
			SampleRatio: cfg.TraceSampleRate,
		})
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(sctx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	checks := map[string]handlers.Check{}

	// wire up repositories
	var (
		gymClasses gymclass.Store
		users      user.Store
	)

	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		gymClasses = memory.NewGymClassesRepo()
		users = memory.NewUsersRepo()
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		if cfg.AutoMigrate {
			applied, err := db.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			log.Info("schema migrated", "applied", applied)
		}

		gymClasses = postgres.NewGymClassesRepo(pool, prom)
		users = postgres.NewUsersRepo(pool, prom)
		checks["postgres"] = pool.Ping
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	var counter ratelimit.Counter = ratelimit.NewMemoryCounter()
	if cfg.RedisAddr != "" {
		rc, err := redisclient.Connect(ctx, redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer rc.Close()

		counter = ratelimit.NewRedisCounter(rc.Raw(), "")
		checks["redis"] = rc.Ping
	}

	deps := httpx.Deps{
		Config:      cfg,
		Logger:      log,
		GymClasses:  gymClasses,
		Users:       users,
		JWT:         auth.NewManager(cfg.JWTSecret, cfg.JWTAccessTTL()),
		Prom:        prom,
		Gatherer:    reg,
		RateCounter: counter,
		Checks:      checks,
	}

	if cfg.OIDCEnabled() {
		provider, err := auth.NewOIDCProvider(ctx, auth.OIDCConfig{
			IssuerURL:    cfg.OIDCIssuerURL,
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL,
		})
		if err != nil {
			return err
		}
		deps.OIDC = provider
	} else {
		log.Warn("OIDC not configured; only bearer tokens are accepted")
	}

	router := httpx.NewRouter(deps)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	// Graceful shutdown
	log.Info("server shutting down")

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return err
	}

	log.Info("shutdown complete")
	return nil
}
