package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cristopher-namchee/reserenv/internal/models"
)

// MemoryReservationRepository mirrors the Redis adapter's semantics for
// the failover fallback and for tests. A single mutex keeps Put's
// check-then-create atomic.
type MemoryReservationRepository struct {
	mu         sync.Mutex
	records    map[string]models.ReservationRecord
	rateLimits map[string]*rateLimitEntry
}

func NewMemoryReservationRepository() *MemoryReservationRepository {
	return &MemoryReservationRepository{
		records:    make(map[string]models.ReservationRecord),
		rateLimits: make(map[string]*rateLimitEntry),
	}
}

func (r *MemoryReservationRepository) Get(ctx context.Context, key models.ResourceKey) (*models.ReservationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[key.String()]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (r *MemoryReservationRepository) Put(ctx context.Context, key models.ResourceKey, record *models.ReservationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[key.String()]; ok {
		return ErrAlreadyReserved
	}
	r.records[key.String()] = *record
	return nil
}

func (r *MemoryReservationRepository) Delete(ctx context.Context, key models.ResourceKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, key.String())
	return nil
}

func (r *MemoryReservationRepository) List(ctx context.Context) ([]models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.records))
	for k := range r.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]models.Reservation, 0, len(keys))
	for _, k := range keys {
		key, err := models.ParseResourceKey(k)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Reservation{Key: key, Record: r.records[k]})
	}
	return out, nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryReservationRepository) CheckRateLimit(ctx context.Context, userID string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	entry, ok := r.rateLimits[userID]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
		r.rateLimits[userID] = entry
	} else {
		entry.count++
	}

	return entry.count <= limit, nil
}
