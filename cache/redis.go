package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"summerberry-forecast/config"
)

// RedisClient wraps redis.Client
type RedisClient struct {
	client *redis.Client
	addr   string
}

// NewRedisClient creates a new Redis client. It returns nil when the server is unreachable.
func NewRedisClient(cfg config.RedisConfig, log *zap.Logger) *RedisClient {
	if log == nil {
		log = zap.NewNop()
	}

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       0, // use default DB
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Failed to connect to Redis", zap.String("addr", addr), zap.Error(err))
		_ = client.Close()
		return nil
	}

	log.Info("Connected to Redis", zap.String("addr", addr))
	return &RedisClient{client: client, addr: addr}
}

// newRedisClientUnchecked skips the connection test
func newRedisClientUnchecked(addr string) *RedisClient {
	return &RedisClient{
		client: redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1}),
		addr:   addr,
	}
}

// Addr returns the server address
func (r *RedisClient) Addr() string {
	return r.addr
}

// Incr increments a counter key
func (r *RedisClient) Incr(ctx context.Context, key string) (int64, error) {
	if r == nil || r.client == nil {
		return 0, fmt.Errorf("redis client not initialized")
	}
	return r.client.Incr(ctx, key).Result()
}

// HIncrBy increments a hash field
func (r *RedisClient) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	if r == nil || r.client == nil {
		return 0, fmt.Errorf("redis client not initialized")
	}
	return r.client.HIncrBy(ctx, key, field, incr).Result()
}

// Set stores a plain value with expiration (0 means no expiry)
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return r.client.Set(ctx, key, value, expiration).Err()
}

// GetString retrieves a raw string value
func (r *RedisClient) GetString(ctx context.Context, key string) (string, error) {
	if r == nil || r.client == nil {
		return "", fmt.Errorf("redis client not initialized")
	}
	return r.client.Get(ctx, key).Result()
}

// HGetAll returns every field of a hash
func (r *RedisClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if r == nil || r.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}
	return r.client.HGetAll(ctx, key).Result()
}

// Ping checks the connection
func (r *RedisClient) Ping(ctx context.Context) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	if r != nil && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// IsNil reports whether err means the key does not exist
func IsNil(err error) bool {
	return err == redis.Nil
}
