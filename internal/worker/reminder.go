package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cristopher-namchee/reserenv/internal/domain"
	"github.com/cristopher-namchee/reserenv/internal/metrics"
	"github.com/cristopher-namchee/reserenv/internal/models"
	"github.com/cristopher-namchee/reserenv/internal/render"
	"github.com/cristopher-namchee/reserenv/internal/service"
)

// ReminderWorker sweeps the store once a day and nudges every holder about
// the environments and services they still have reserved.
type ReminderWorker struct {
	svc          *service.ReservationService
	sender       domain.MessageSender
	reminderTime string
	logger       *zerolog.Logger

	now func() time.Time
}

// NewReminderWorker builds a worker. reminderTime is a local "HH:MM" used
// by Start; RunOnce ignores it.
func NewReminderWorker(svc *service.ReservationService, sender domain.MessageSender, reminderTime string, logger *zerolog.Logger) *ReminderWorker {
	return &ReminderWorker{
		svc:          svc,
		sender:       sender,
		reminderTime: reminderTime,
		logger:       logger,
		now:          time.Now,
	}
}

// RunOnce performs a single reminder sweep. Each holder gets exactly one
// send attempt: a failure is logged and counted, then abandoned until the
// next sweep, so one broken delivery never blocks the remaining holders.
// The returned error aggregates all failures.
func (w *ReminderWorker) RunOnce(ctx context.Context) error {
	holders, err := w.svc.HolderReservations(ctx)
	if err != nil {
		return fmt.Errorf("list reservations: %w", err)
	}

	if len(holders) == 0 {
		w.logger.Info().Msg("reminder sweep: nothing reserved, no messages sent")
		return nil
	}

	var failed []error
	for _, holder := range holders {
		if err := w.remindHolder(ctx, holder); err != nil {
			w.logger.Error().Err(err).
				Str("holder", holder.HolderID).
				Int("reservations", len(holder.Items)).
				Msg("reminder send failed")
			metrics.IncReminderFailure()
			failed = append(failed, fmt.Errorf("holder %s: %w", holder.HolderID, err))
			continue
		}
		metrics.IncReminderSent()
		w.logger.Info().
			Str("holder", holder.HolderID).
			Int("reservations", len(holder.Items)).
			Msg("reminder sent")
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d reminders failed: %w", len(failed), len(holders), errors.Join(failed...))
	}
	return nil
}

func (w *ReminderWorker) remindHolder(ctx context.Context, holder models.HolderReservations) error {
	channel := holder.Channel
	if channel == "" {
		// No recorded channel, DM the holder directly.
		channel = holder.HolderID
	}

	return w.sender.SendMessage(ctx, channel, render.ReminderFallback, render.ReminderBlocks(holder))
}

// Start runs daily sweeps at the configured local time until ctx is done.
func (w *ReminderWorker) Start(ctx context.Context) error {
	fireAt, err := time.Parse("15:04", w.reminderTime)
	if err != nil {
		return fmt.Errorf("parse reminder time %q: %w", w.reminderTime, err)
	}

	w.logger.Info().Str("reminder_time", w.reminderTime).Msg("reminder worker started")
	defer w.logger.Info().Msg("reminder worker stopped")

	for {
		wait := w.untilNextFire(fireAt.Hour(), fireAt.Minute())
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if err := w.RunOnce(ctx); err != nil {
			w.logger.Error().Err(err).Msg("reminder sweep finished with errors")
		}
	}
}

// untilNextFire computes the duration until the next hh:mm in local time,
// rolling over to tomorrow if today's slot has already passed.
func (w *ReminderWorker) untilNextFire(hour, minute int) time.Duration {
	now := w.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
