package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-alerts/cmd/admin/internal/cli"
	"github.com/shubham-shewale/stock-alerts/pkg/cache"
	"github.com/shubham-shewale/stock-alerts/pkg/config"
	"github.com/shubham-shewale/stock-alerts/pkg/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()
	logger = logger.With(zap.String("service", "admin"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	// Redis is dialed lazily so commands that only touch Postgres work without it.
	rdb := cache.NewClient(cfg.Redis)
	defer rdb.Close()

	app := &cli.App{
		Logger: logger,
		Migrate: func(ctx context.Context) (int64, error) {
			if err := store.Migrate(db.DB); err != nil {
				return 0, err
			}
			return store.MigrationVersion(db.DB)
		},
		History:       store.NewHistory(db.DB),
		Cache:         cache.NewLatestCache(rdb, logger),
		Rules:         store.NewRules(db.DB),
		Alerts:        store.NewAlerts(db.DB),
		RetentionDays: cfg.Retention.HistoryDays,
	}

	if err := cli.NewRootCmd(app).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		db.Close()
		rdb.Close()
		logger.Sync()
		os.Exit(1)
	}
}
