package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cristopher-namchee/reserenv/internal/config"
	"github.com/cristopher-namchee/reserenv/internal/models"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces reservation keys so List can SCAN them without
// picking up rate-limit counters.
const keyPrefix = "reservation:"

type RedisReservationRepository struct {
	client *redis.Client
}

// NewRedisClient creates a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisReservationRepository(client *redis.Client) *RedisReservationRepository {
	return &RedisReservationRepository{client: client}
}

func (r *RedisReservationRepository) Get(ctx context.Context, key models.ResourceKey) (*models.ReservationRecord, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, keyPrefix+key.String()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation from redis: %w", err)
	}

	return decodeRecord([]byte(val))
}

// Put is a conditional create backed by SETNX: when the key is already
// populated it returns ErrAlreadyReserved without touching the record.
// This closes the read-then-write race two concurrent reserves would
// otherwise have.
func (r *RedisReservationRepository) Put(ctx context.Context, key models.ResourceKey, record *models.ReservationRecord) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal reservation: %w", err)
	}

	created, err := r.client.SetNX(ctx, keyPrefix+key.String(), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to put reservation in redis: %w", err)
	}
	if !created {
		return ErrAlreadyReserved
	}

	return nil
}

func (r *RedisReservationRepository) Delete(ctx context.Context, key models.ResourceKey) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, keyPrefix+key.String()).Err(); err != nil {
		return fmt.Errorf("failed to delete reservation from redis: %w", err)
	}
	return nil
}

// List enumerates every reservation via SCAN. Keys that vanish between
// the scan and the read are skipped; a blob that fails to decode is
// reported as ErrCorruptRecord.
func (r *RedisReservationRepository) List(ctx context.Context) ([]models.Reservation, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	var out []models.Reservation
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		raw := iter.Val()
		val, err := r.client.Get(ctx, raw).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read reservation %s: %w", raw, err)
		}

		key, err := models.ParseResourceKey(raw[len(keyPrefix):])
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrCorruptRecord, raw)
		}
		record, err := decodeRecord([]byte(val))
		if err != nil {
			return nil, err
		}
		out = append(out, models.Reservation{Key: key, Record: *record})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan reservations: %w", err)
	}

	return out, nil
}

func (r *RedisReservationRepository) CheckRateLimit(ctx context.Context, userID string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("rate_limit:%s", userID)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func decodeRecord(data []byte) (*models.ReservationRecord, error) {
	var record models.ReservationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &record, nil
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
