package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/geocoder89/gymlog/internal/config"
	"github.com/geocoder89/gymlog/internal/db"
	"github.com/geocoder89/gymlog/internal/observability"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	names, err := db.MigrationNames()
	if err != nil {
		log.Error("list migrations failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool)
	if err != nil {
		log.Error("migration failed", "err", err, "applied", applied)
		pool.Close()
		os.Exit(1)
	}

	log.Info("migrations applied", "applied", applied, "embedded", len(names))
}
