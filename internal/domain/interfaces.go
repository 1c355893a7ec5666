package domain

import (
	"context"
	"time"

	"github.com/cristopher-namchee/reserenv/internal/models"

	"github.com/slack-go/slack"
)

// ReservationRepository is the key-value store boundary. Records are JSON
// blobs keyed by resource key; Put is a conditional create and fails when
// the key is already populated.
type ReservationRepository interface {
	Get(ctx context.Context, key models.ResourceKey) (*models.ReservationRecord, error)
	Put(ctx context.Context, key models.ResourceKey, record *models.ReservationRecord) error
	Delete(ctx context.Context, key models.ResourceKey) error
	List(ctx context.Context) ([]models.Reservation, error)
	CheckRateLimit(ctx context.Context, userID string, limit int, window time.Duration) (bool, error)
}

// MessageSender posts a rendered message to a chat channel. Implemented by
// the Slack client wrapper; faked in tests.
type MessageSender interface {
	SendMessage(ctx context.Context, channel string, fallback string, blocks []slack.Block) error
}
