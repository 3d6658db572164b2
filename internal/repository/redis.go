package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/loanops/commsync/internal/config"
	"github.com/loanops/commsync/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	dedupeKeyPrefix = "commsync:dedupe:"
	lastCycleKey    = "commsync:last_cycle"
)

// RedisStore backs webhook deduplication and the last-cycle report with
// Redis, so both survive restarts and are shared when more than one replica
// ever runs.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: rdb}, nil
}

// Seen implements service.DedupeStore.
func (r *RedisStore) Seen(ctx context.Context, opportunityID string) (bool, error) {
	n, err := r.client.Exists(ctx, dedupeKeyPrefix+opportunityID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark implements service.DedupeStore.
func (r *RedisStore) Mark(ctx context.Context, opportunityID string, ttl time.Duration) error {
	return r.client.Set(ctx, dedupeKeyPrefix+opportunityID, "1", ttl).Err()
}

// SaveLastCycle implements service.CycleStore.
func (r *RedisStore) SaveLastCycle(ctx context.Context, report *model.CycleReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, lastCycleKey, raw, 0).Err()
}

// LastCycle implements service.CycleStore.
func (r *RedisStore) LastCycle(ctx context.Context) (*model.CycleReport, error) {
	raw, err := r.client.Get(ctx, lastCycleKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var report model.CycleReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
