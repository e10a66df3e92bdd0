// Package worker consumes match.created events and backfills derived
// statistics into the Redis cache, keeping GET /api/stats cheap.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	"github.com/illegalcall/match-master/internal/config"
	"github.com/illegalcall/match-master/internal/models"
	"github.com/illegalcall/match-master/internal/service"
)

type Worker struct {
	cfg      *config.Config
	stats    *service.StatsService
	consumer sarama.ConsumerGroup
	logger   *slog.Logger
	ready    chan bool
}

func NewWorker(cfg *config.Config, stats *service.StatsService, consumer sarama.ConsumerGroup, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		cfg:      cfg,
		stats:    stats,
		consumer: consumer,
		logger:   logger,
		ready:    make(chan bool),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	topics := []string{w.cfg.Kafka.Topic}
	w.logger.Info("Starting stats worker", "topics", topics)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for err := range w.consumer.Errors() {
			w.logger.Error("Kafka consumer error", "error", err)
		}
	}()

	go func() {
		for {
			if err := w.consumer.Consume(ctx, topics, w); err != nil {
				w.logger.Error("Consumer session failed", "error", err)
			}
			if ctx.Err() != nil {
				return
			}
			// Reset the ready channel after a new session is created
			w.ready = make(chan bool)
		}
	}()

	<-w.ready // Wait till the consumer has been set up
	w.logger.Info("Stats worker ready")

	select {
	case sig := <-sigChan:
		w.logger.Info("Received shutdown signal", "signal", sig)
	case <-ctx.Done():
		w.logger.Info("Context cancelled; shutting down worker")
	}
	return nil
}

// Setup is run at the beginning of a new session, before ConsumeClaim.
func (w *Worker) Setup(sarama.ConsumerGroupSession) error {
	close(w.ready)
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (w *Worker) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim processes match.created events from one partition.
func (w *Worker) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := w.processEvent(session.Context(), message); err != nil {
			w.logger.Error("Failed to process match event", "offset", message.Offset, "error", err)
		}
		session.MarkMessage(message, "")
	}
	return nil
}

func (w *Worker) processEvent(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event models.MatchCreatedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to parse match event: %w", err)
	}

	w.logger.Info("Refreshing stats for new match",
		"match_id", event.MatchID,
		"score", event.CompatibilityScore,
		"match_type", event.MatchType,
	)

	var err error
	for attempt := 1; attempt <= w.cfg.Kafka.RetryMax; attempt++ {
		if _, err = w.stats.Refresh(ctx); err == nil {
			return nil
		}
		w.logger.Error("Stats refresh failed", "attempt", attempt, "error", err)
		time.Sleep(w.cfg.Kafka.RetryBackoff)
	}
	return err
}
