package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/illegalcall/match-master/internal/api"
	"github.com/illegalcall/match-master/internal/config"
	"github.com/illegalcall/match-master/internal/enrichment"
	"github.com/illegalcall/match-master/internal/service"
	"github.com/illegalcall/match-master/internal/store"
	"github.com/illegalcall/match-master/pkg/database"
	"github.com/illegalcall/match-master/pkg/kafka"
)

func main() {
	cfg := config.LoadConfig()
	logger := slog.Default()
	ctx := context.Background()

	// Entity store
	st, err := newStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	logger.Info("✅ Store ready", "backend", cfg.Store.Backend)

	// Redis (stats cache)
	rdb, err := database.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	logger.Info("✅ Connected to Redis")

	// Kafka producer for match.created events
	producer, err := kafka.NewProducer(cfg.Kafka.Broker, cfg.Kafka.RetryMax, cfg.Kafka.RetryBackoff)
	if err != nil {
		logger.Error("Failed to create Kafka producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()
	logger.Info("✅ Connected to Kafka")

	// Enrichment is optional: without an API key every match falls back to
	// the deterministic local text.
	var enricher enrichment.Generator
	if cfg.Gemini.APIKey != "" {
		gen, err := enrichment.NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Timeout)
		if err != nil {
			logger.Error("Failed to create Gemini generator", "error", err)
			os.Exit(1)
		}
		enricher = gen
		logger.Info("✅ Gemini enrichment configured", "model", cfg.Gemini.Model)
	} else {
		logger.Warn("GEMINI_API_KEY not set; enrichment uses local fallbacks")
	}

	svc := service.NewMatchService(st, enricher, producer, cfg.Kafka.Topic, logger)
	stats := service.NewStatsService(st, rdb, cfg.Redis.StatsTTL, logger)

	server := api.NewServer(cfg, svc, stats, logger)
	if err := server.Start(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func newStore(cfg *config.Config) (store.Store, error) {
	if cfg.Store.Backend == config.StoreBackendPostgres {
		return store.NewPostgresStore(cfg.Store.DatabaseURL)
	}
	return store.NewFileStore(cfg.Store.DataDir)
}
