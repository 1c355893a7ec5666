package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/cristopher-namchee/reserenv/internal/domain"
	"github.com/cristopher-namchee/reserenv/internal/models"

	"github.com/rs/zerolog"
)

// FailoverReservationRepository serves from the primary store until it
// errors, then switches to the fallback and probes the primary again
// after a minute. Conflict and corrupt-record results are domain answers,
// not store failures, so they never trip the failover.
type FailoverReservationRepository struct {
	primary   domain.ReservationRepository
	fallback  domain.ReservationRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverReservationRepository(primary, fallback domain.ReservationRepository, logger *zerolog.Logger) *FailoverReservationRepository {
	return &FailoverReservationRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverReservationRepository) Get(ctx context.Context, key models.ResourceKey) (*models.ReservationRecord, error) {
	if r.primaryUp() {
		record, err := r.primary.Get(ctx, key)
		if !r.isStoreFailure(err) {
			return record, err
		}
		r.markDown(err)
	}
	return r.fallback.Get(ctx, key)
}

func (r *FailoverReservationRepository) Put(ctx context.Context, key models.ResourceKey, record *models.ReservationRecord) error {
	if r.primaryUp() {
		err := r.primary.Put(ctx, key, record)
		if !r.isStoreFailure(err) {
			return err
		}
		r.markDown(err)
	}
	return r.fallback.Put(ctx, key, record)
}

func (r *FailoverReservationRepository) Delete(ctx context.Context, key models.ResourceKey) error {
	if r.primaryUp() {
		err := r.primary.Delete(ctx, key)
		if !r.isStoreFailure(err) {
			return err
		}
		r.markDown(err)
	}
	return r.fallback.Delete(ctx, key)
}

func (r *FailoverReservationRepository) List(ctx context.Context) ([]models.Reservation, error) {
	if r.primaryUp() {
		reservations, err := r.primary.List(ctx)
		if !r.isStoreFailure(err) {
			return reservations, err
		}
		r.markDown(err)
	}
	return r.fallback.List(ctx)
}

func (r *FailoverReservationRepository) CheckRateLimit(ctx context.Context, userID string, limit int, window time.Duration) (bool, error) {
	if r.primaryUp() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if !r.isStoreFailure(err) {
			return allowed, err
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}

func (r *FailoverReservationRepository) primaryUp() bool {
	if !r.isDown.Load() {
		return true
	}
	// Probe the primary again after a minute of fallback service.
	last := time.Unix(r.lastCheck.Load(), 0)
	if time.Since(last) > time.Minute {
		r.isDown.Store(false)
		return true
	}
	return false
}

func (r *FailoverReservationRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary reservation store failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().Unix())
}

func (r *FailoverReservationRepository) isStoreFailure(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrAlreadyReserved) && !errors.Is(err, ErrCorruptRecord)
}
