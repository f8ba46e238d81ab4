package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/launchpath/resource-engine/pkg/circuitbreaker"
	"github.com/launchpath/resource-engine/pkg/logger"
)

// Store is the Redis-backed cache backend. All operations run through a
// circuit breaker: while the circuit is open, reads report misses and
// writes are dropped, so a Redis outage degrades to uncached computation
// instead of failing requests.
type Store struct {
	client  *redis.Client
	breaker *circuitbreaker.CircuitBreaker
}

func NewStore(host string, port int, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	breaker := circuitbreaker.NewCircuitBreaker("redis-cache", circuitbreaker.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		Logger:           logger.Log,
	})

	logger.Info("Redis cache store initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Store{client: client, breaker: breaker}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	var found bool

	err := s.breaker.Execute(ctx, func() error {
		b, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		data = b
		found = true
		return nil
	})

	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return nil, false, nil
		}
		logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}

	return data, found, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.breaker.Execute(ctx, func() error {
		return s.client.Set(ctx, key, value, ttl).Err()
	})

	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return nil
		}
		return fmt.Errorf("failed to set cache key: %w", err)
	}

	logger.Debug("Cache entry written", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.breaker.Execute(ctx, func() error {
		return s.client.Del(ctx, key).Err()
	})

	if err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return fmt.Errorf("failed to delete cache key: %w", err)
	}
	return nil
}

func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) error {
	err := s.breaker.Execute(ctx, func() error {
		iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
				logger.Warn("Failed to delete cache key", zap.String("key", iter.Val()), zap.Error(err))
			}
		}
		return iter.Err()
	})

	if err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	logger.Info("Cache entries invalidated", zap.String("prefix", prefix))
	return nil
}
