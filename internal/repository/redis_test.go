package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cristopher-namchee/reserenv/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisReservationRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	repo := NewRedisReservationRepository(client)
	ctx := context.Background()

	key := models.ResourceKey{Environment: "dev", Service: "frontend"}
	record := &models.ReservationRecord{
		HolderID:   "U123",
		HolderName: "Jane Doe",
		ReservedAt: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		Channel:    "C42",
	}

	t.Run("PutAndGet", func(t *testing.T) {
		err := repo.Put(ctx, key, record)
		require.NoError(t, err)

		got, err := repo.Get(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, record.HolderID, got.HolderID)
		assert.Equal(t, record.HolderName, got.HolderName)
		assert.True(t, record.ReservedAt.Equal(got.ReservedAt))
	})

	t.Run("PutIsConditionalCreate", func(t *testing.T) {
		other := &models.ReservationRecord{HolderID: "U999", ReservedAt: time.Now()}
		err := repo.Put(ctx, key, other)
		assert.ErrorIs(t, err, ErrAlreadyReserved)

		// Losing write must not overwrite the holder.
		got, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "U123", got.HolderID)
	})

	t.Run("GetAbsent", func(t *testing.T) {
		got, err := repo.Get(ctx, models.ResourceKey{Environment: "uat", Service: "backend"})
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("List", func(t *testing.T) {
		second := models.ResourceKey{Environment: "staging", Service: "backend"}
		require.NoError(t, repo.Put(ctx, second, &models.ReservationRecord{HolderID: "U456", ReservedAt: time.Now()}))

		reservations, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, reservations, 2)

		keys := map[string]string{}
		for _, res := range reservations {
			keys[res.Key.String()] = res.Record.HolderID
		}
		assert.Equal(t, "U123", keys["dev-frontend"])
		assert.Equal(t, "U456", keys["staging-backend"])
	})

	t.Run("ListSkipsRateLimitKeys", func(t *testing.T) {
		_, err := repo.CheckRateLimit(ctx, "U123", 5, time.Minute)
		require.NoError(t, err)

		reservations, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, reservations, 2)
	})

	t.Run("Delete", func(t *testing.T) {
		err := repo.Delete(ctx, key)
		require.NoError(t, err)

		got, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, got)

		// Delete then re-reserve is the only way to change holders.
		err = repo.Put(ctx, key, &models.ReservationRecord{HolderID: "U999", ReservedAt: time.Now()})
		assert.NoError(t, err)
	})

	t.Run("CorruptRecord", func(t *testing.T) {
		s.Set(keyPrefix+"dev-backend", "{not json")

		_, err := repo.Get(ctx, models.ResourceKey{Environment: "dev", Service: "backend"})
		assert.ErrorIs(t, err, ErrCorruptRecord)

		_, err = repo.List(ctx)
		assert.ErrorIs(t, err, ErrCorruptRecord)

		s.Del(keyPrefix + "dev-backend")
	})

	t.Run("RateLimit", func(t *testing.T) {
		userID := "U789"
		limit := 2
		window := time.Second

		allowed, err := repo.CheckRateLimit(ctx, userID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, userID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, userID, limit, window)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(window + time.Millisecond)

		allowed, err = repo.CheckRateLimit(ctx, userID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisReservationRepository(nil)
		_, err := repo.Get(ctx, key)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("Close", func(t *testing.T) {
		assert.NoError(t, Close(client))
	})
}
