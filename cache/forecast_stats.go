package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"summerberry-forecast/models"
)

// Redis keys for forecast counters. Only counts are kept, never forecast values.
const (
	keyForecastTotal = "summerberry:forecasts:total"
	keyForecastSites = "summerberry:forecasts:by_site"
	keyForecastLast  = "summerberry:forecasts:last_at"
)

// Stats is a point-in-time view of forecast activity
type Stats struct {
	Total        int64            `json:"total"`
	BySite       map[string]int64 `json:"bySite"`
	LastForecast *time.Time       `json:"lastForecastAt,omitempty"`
	Source       string           `json:"source"`
}

// ForecastStats counts generated forecasts. Counts always accumulate in process
// memory and are mirrored to Redis when a client is configured, so several
// instances can share totals.
type ForecastStats struct {
	redis *RedisClient
	log   *zap.Logger

	mu     sync.Mutex
	total  int64
	bySite map[string]int64
	last   time.Time
}

// NewForecastStats creates the counter. redis may be nil.
func NewForecastStats(redis *RedisClient, log *zap.Logger) *ForecastStats {
	if log == nil {
		log = zap.NewNop()
	}
	return &ForecastStats{
		redis:  redis,
		log:    log,
		bySite: make(map[string]int64),
	}
}

// ForecastCompleted records one forecast
func (s *ForecastStats) ForecastCompleted(ctx context.Context, evt models.ForecastEvent) {
	now := time.Now().UTC()
	site := evt.Site
	if site == "" {
		site = "unknown"
	}

	s.mu.Lock()
	s.total++
	s.bySite[site]++
	s.last = now
	s.mu.Unlock()

	if s.redis == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if _, err := s.redis.Incr(ctx, keyForecastTotal); err != nil {
		s.log.Warn("Failed to increment forecast counter", zap.Error(err))
		return
	}
	if _, err := s.redis.HIncrBy(ctx, keyForecastSites, site, 1); err != nil {
		s.log.Warn("Failed to increment site counter", zap.String("site", site), zap.Error(err))
	}
	if err := s.redis.Set(ctx, keyForecastLast, now.Unix(), 0); err != nil {
		s.log.Warn("Failed to store last forecast time", zap.Error(err))
	}
}

// Snapshot returns the shared Redis counters when reachable, else the local ones
func (s *ForecastStats) Snapshot(ctx context.Context) Stats {
	if s.redis != nil {
		stats, err := s.redisSnapshot(ctx)
		if err == nil {
			return stats
		}
		s.log.Warn("Reading forecast counters from Redis failed, using local counters", zap.Error(err))
	}
	return s.localSnapshot()
}

func (s *ForecastStats) localSnapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		Total:  s.total,
		BySite: make(map[string]int64, len(s.bySite)),
		Source: "memory",
	}
	for site, n := range s.bySite {
		stats.BySite[site] = n
	}
	if !s.last.IsZero() {
		last := s.last
		stats.LastForecast = &last
	}
	return stats
}

func (s *ForecastStats) redisSnapshot(ctx context.Context) (Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	stats := Stats{BySite: map[string]int64{}, Source: "redis"}

	raw, err := s.redis.GetString(ctx, keyForecastTotal)
	switch {
	case IsNil(err):
	case err != nil:
		return Stats{}, err
	default:
		stats.Total, _ = strconv.ParseInt(raw, 10, 64)
	}

	sites, err := s.redis.HGetAll(ctx, keyForecastSites)
	if err != nil {
		return Stats{}, err
	}
	for site, v := range sites {
		n, _ := strconv.ParseInt(v, 10, 64)
		stats.BySite[site] = n
	}

	if raw, err := s.redis.GetString(ctx, keyForecastLast); err == nil {
		if ts, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			last := time.Unix(ts, 0).UTC()
			stats.LastForecast = &last
		}
	}
	return stats, nil
}
