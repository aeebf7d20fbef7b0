package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"equilibria/internal/config"
	"equilibria/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	rateLimitKeyPrefix = "rate_limit:"
	practitionersKey   = "cache:practitioners"
)

var errNilClient = errors.New("redis client is nil")

// RedisStateRepository keeps rate limit counters and the practitioner
// cache in Redis so several API instances share them.
type RedisStateRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a client from config, returning nil when no address
// is configured.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	if cfg.Address == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// NewRedisStateRepository uses ttl for cached practitioner lists.
func NewRedisStateRepository(client *redis.Client, ttl time.Duration) *RedisStateRepository {
	return &RedisStateRepository{
		client: client,
		ttl:    ttl,
	}
}

// CheckRateLimit counts one request against key in a fixed window.
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, errNilClient
	}
	redisKey := rateLimitKeyPrefix + key

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(limit), nil
}

func (r *RedisStateRepository) GetPractitioners(ctx context.Context) ([]models.Practitioner, bool, error) {
	if r.client == nil {
		return nil, false, errNilClient
	}
	val, err := r.client.Get(ctx, practitionersKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get practitioners from redis: %w", err)
	}

	var list []models.Practitioner
	if err := json.Unmarshal(val, &list); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal practitioners: %w", err)
	}
	return list, true, nil
}

func (r *RedisStateRepository) SetPractitioners(ctx context.Context, list []models.Practitioner) error {
	if r.client == nil {
		return errNilClient
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal practitioners: %w", err)
	}
	if err := r.client.Set(ctx, practitionersKey, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set practitioners in redis: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) InvalidatePractitioners(ctx context.Context) error {
	if r.client == nil {
		return errNilClient
	}
	if err := r.client.Del(ctx, practitionersKey).Err(); err != nil {
		return fmt.Errorf("failed to delete practitioners from redis: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return errNilClient
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection if there is one.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
