package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"footfall-prediction-api/models"

	"github.com/redis/go-redis/v9"
)

// CacheService keeps computed upload views in Redis. Without a client every
// operation is a no-op and Get always misses.
type CacheService struct {
	client    *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
}

const defaultOpTimeout = 2 * time.Second

// NewCacheService connects to redisURL. An empty URL disables caching.
// On a failed ping the returned service is usable but disabled.
func NewCacheService(ctx context.Context, redisURL string, ttl time.Duration, logger *slog.Logger) (*CacheService, error) {
	if redisURL == "" {
		return &CacheService{ttl: ttl}, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return &CacheService{ttl: ttl}, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	var lastErr error
	for i := 0; i < 3; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			return &CacheService{client: client, ttl: ttl, opTimeout: defaultOpTimeout}, nil
		}
		logger.Warn("redis ping failed", "attempt", i+1, "error", lastErr)
		time.Sleep(500 * time.Millisecond)
	}
	_ = client.Close()
	return &CacheService{ttl: ttl}, fmt.Errorf("redis ping failed after 3 attempts: %w", lastErr)
}

func (s *CacheService) Available() bool {
	return s != nil && s.client != nil
}

// bounded caps ctx at the per-operation timeout. A shorter deadline already
// on ctx wins.
func (s *CacheService) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithTimeout(ctx, defaultOpTimeout)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func viewsKey(sha string) string {
	return "footfall:views:" + sha
}

// GetViews looks up the views of an upload by content hash.
func (s *CacheService) GetViews(ctx context.Context, sha string) (models.Views, bool, error) {
	if !s.Available() {
		return models.Views{}, false, nil
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	val, err := s.client.Get(ctx, viewsKey(sha)).Result()
	if errors.Is(err, redis.Nil) {
		viewCacheMisses.Inc()
		return models.Views{}, false, nil
	}
	if err != nil {
		return models.Views{}, false, err
	}
	var views models.Views
	if err := json.Unmarshal([]byte(val), &views); err != nil {
		return models.Views{}, false, err
	}
	viewCacheHits.Inc()
	return views, true, nil
}

func (s *CacheService) SetViews(ctx context.Context, sha string, views models.Views) error {
	if !s.Available() {
		return nil
	}
	data, err := json.Marshal(views)
	if err != nil {
		return err
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.client.Set(ctx, viewsKey(sha), data, s.ttl).Err()
}

func (s *CacheService) Close() error {
	if !s.Available() {
		return nil
	}
	return s.client.Close()
}
