package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/illegalcall/match-master/internal/config"
	"github.com/illegalcall/match-master/internal/service"
	"github.com/illegalcall/match-master/internal/store"
	"github.com/illegalcall/match-master/internal/worker"
	"github.com/illegalcall/match-master/pkg/database"
	"github.com/illegalcall/match-master/pkg/kafka"
)

func main() {
	cfg := config.LoadConfig()
	logger := slog.Default()

	st, err := newStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	logger.Info("✅ Store ready", "backend", cfg.Store.Backend)

	rdb, err := database.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	logger.Info("✅ Connected to Redis")

	consumer, err := kafka.NewConsumer(cfg.Kafka.Broker, cfg.Kafka.Group)
	if err != nil {
		logger.Error("Failed to create Kafka consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()
	logger.Info("✅ Connected to Kafka")

	stats := service.NewStatsService(st, rdb, cfg.Redis.StatsTTL, logger)
	w := worker.NewWorker(cfg, stats, consumer, logger)

	if err := w.Start(context.Background()); err != nil {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
}

func newStore(cfg *config.Config) (store.Store, error) {
	if cfg.Store.Backend == config.StoreBackendPostgres {
		return store.NewPostgresStore(cfg.Store.DatabaseURL)
	}
	return store.NewFileStore(cfg.Store.DataDir)
}
