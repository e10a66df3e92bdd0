package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/illegalcall/match-master/internal/models"
	"github.com/illegalcall/match-master/internal/store"
)

const statsKey = "stats:summary"

// StatsService derives platform statistics from the store and caches them in
// Redis. The API serves the cached snapshot when warm; the worker refreshes
// it whenever a match is created.
type StatsService struct {
	store  store.Store
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewStatsService(st store.Store, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *StatsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsService{store: st, redis: rdb, ttl: ttl, logger: logger}
}

// Compute scans the store and derives the stats from scratch: O(n) in
// profiles plus matches.
func (s *StatsService) Compute(ctx context.Context) (*models.Stats, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	matches, err := s.store.ListMatches(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.Stats{
		TotalProfiles:     len(profiles),
		TotalMatches:      len(matches),
		IndustryBreakdown: make(map[string]int),
	}
	for _, p := range profiles {
		stats.TotalLikes += len(p.Likes)
		stats.IndustryBreakdown[p.Industry]++
	}

	if len(matches) > 0 {
		var sum float64
		for _, m := range matches {
			sum += m.CompatibilityScore
		}
		stats.AverageCompatibility = math.Round(sum/float64(len(matches))*10) / 10
	}
	return stats, nil
}

// Cached returns the cached snapshot when available, otherwise computes and
// caches a fresh one. A broken cache never fails the request.
func (s *StatsService) Cached(ctx context.Context) (*models.Stats, error) {
	if s.redis != nil {
		raw, err := s.redis.Get(ctx, statsKey).Bytes()
		if err == nil {
			var stats models.Stats
			if err := json.Unmarshal(raw, &stats); err == nil {
				return &stats, nil
			}
			s.logger.Warn("Discarding undecodable stats cache entry")
		}
	}
	return s.Refresh(ctx)
}

// Refresh recomputes the stats and stores them in the cache.
func (s *StatsService) Refresh(ctx context.Context) (*models.Stats, error) {
	stats, err := s.Compute(ctx)
	if err != nil {
		return nil, err
	}
	if s.redis != nil {
		statsBytes, _ := json.Marshal(stats)
		if err := s.redis.Set(ctx, statsKey, statsBytes, s.ttl).Err(); err != nil {
			s.logger.Warn("Failed to cache stats", "error", err)
		}
	}
	return stats, nil
}
