package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cristopher-namchee/reserenv/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReservationRepository(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()

	key := models.ResourceKey{Environment: "dev", Service: "frontend"}
	record := &models.ReservationRecord{HolderID: "U123", ReservedAt: time.Now()}

	t.Run("PutAndGet", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, key, record))

		got, err := repo.Get(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "U123", got.HolderID)
	})

	t.Run("PutIsConditionalCreate", func(t *testing.T) {
		err := repo.Put(ctx, key, &models.ReservationRecord{HolderID: "U999"})
		assert.ErrorIs(t, err, ErrAlreadyReserved)
	})

	t.Run("GetAbsent", func(t *testing.T) {
		got, err := repo.Get(ctx, models.ResourceKey{Environment: "uat"})
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ListSorted", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, models.ResourceKey{Environment: "staging", Service: "backend"}, &models.ReservationRecord{HolderID: "U456"}))

		reservations, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, reservations, 2)
		assert.Equal(t, "dev-frontend", reservations[0].Key.String())
		assert.Equal(t, "staging-backend", reservations[1].Key.String())
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, key))

		got, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		allowed, err := repo.CheckRateLimit(ctx, "U1", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, "U1", 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
	})
}
