// Package redisstore caches expensive admin aggregates in Redis.
package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const statsKey = "admin:stats"

type Store struct {
	client *redis.Client
}

func New(addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// GetStats returns the cached stats JSON, or redis.Nil when absent.
func (s *Store) GetStats(ctx context.Context) (string, error) {
	return s.client.Get(ctx, statsKey).Result()
}

// SetStats stores the stats JSON; the TTL bounds staleness, so writers never
// need to invalidate.
func (s *Store) SetStats(ctx context.Context, payload string, ttl time.Duration) error {
	return s.client.Set(ctx, statsKey, payload, ttl).Err()
}
