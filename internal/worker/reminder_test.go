package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/cristopher-namchee/reserenv/internal/models"
	"github.com/cristopher-namchee/reserenv/internal/repository"
	"github.com/cristopher-namchee/reserenv/internal/service"
	"github.com/cristopher-namchee/reserenv/internal/vocab"
)

type fakeSend struct {
	channel  string
	fallback string
	blocks   []slack.Block
}

type fakeSender struct {
	sends    []fakeSend
	failing  map[string]bool
	attempts map[string]int
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		failing:  make(map[string]bool),
		attempts: make(map[string]int),
	}
}

func (f *fakeSender) SendMessage(_ context.Context, channel string, fallback string, blocks []slack.Block) error {
	f.attempts[channel]++
	if f.failing[channel] {
		return errors.New("slack unavailable")
	}
	f.sends = append(f.sends, fakeSend{channel: channel, fallback: fallback, blocks: blocks})
	return nil
}

func newTestService(t *testing.T) (*service.ReservationService, *repository.MemoryReservationRepository) {
	t.Helper()

	v, err := vocab.New(vocab.Config{
		Environments: []vocab.Resource{{Name: "dev"}, {Name: "staging"}},
		Services:     []vocab.Resource{{Name: "frontend"}, {Name: "backend"}},
	})
	if err != nil {
		t.Fatalf("vocab: %v", err)
	}

	logger := zerolog.Nop()
	repo := repository.NewMemoryReservationRepository()
	return service.NewReservationService(repo, v, true, &logger), repo
}

func seedReservation(t *testing.T, repo *repository.MemoryReservationRepository, key models.ResourceKey, holder, channel string) {
	t.Helper()
	err := repo.Put(context.Background(), key, &models.ReservationRecord{
		HolderID:   holder,
		ReservedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Channel:    channel,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", key, err)
	}
}

func TestRunOnceEmptyStore(t *testing.T) {
	svc, _ := newTestService(t)
	sender := newFakeSender()
	logger := zerolog.Nop()
	w := NewReminderWorker(svc, sender, "09:00", &logger)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(sender.sends) != 0 {
		t.Fatalf("expected no sends, got %d", len(sender.sends))
	}
}

func TestRunOnceOneMessagePerHolder(t *testing.T) {
	svc, repo := newTestService(t)
	seedReservation(t, repo, models.ResourceKey{Environment: "dev", Service: "frontend"}, "U1", "C99")
	seedReservation(t, repo, models.ResourceKey{Environment: "dev", Service: "backend"}, "U1", "C99")
	seedReservation(t, repo, models.ResourceKey{Environment: "staging", Service: "frontend"}, "U2", "")

	sender := newFakeSender()
	logger := zerolog.Nop()
	w := NewReminderWorker(svc, sender, "09:00", &logger)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(sender.sends) != 2 {
		t.Fatalf("expected one send per holder, got %d", len(sender.sends))
	}

	// Holders come out in stable order, so U1's channel message is first
	// and U2 falls back to a DM on their user id.
	if sender.sends[0].channel != "C99" {
		t.Fatalf("expected first send to recorded channel C99, got %s", sender.sends[0].channel)
	}
	if sender.sends[1].channel != "U2" {
		t.Fatalf("expected DM fallback to holder id, got %s", sender.sends[1].channel)
	}
	for _, send := range sender.sends {
		if send.fallback != "🔔 Environment Reservation Reminder" {
			t.Fatalf("unexpected fallback text %q", send.fallback)
		}
		if len(send.blocks) == 0 {
			t.Fatalf("expected non-empty blocks")
		}
	}
}

func TestRunOnceSingleAttemptPerHolder(t *testing.T) {
	svc, repo := newTestService(t)
	seedReservation(t, repo, models.ResourceKey{Environment: "dev", Service: "frontend"}, "U1", "C99")

	sender := newFakeSender()
	sender.failing["C99"] = true

	logger := zerolog.Nop()
	w := NewReminderWorker(svc, sender, "09:00", &logger)

	// A failed send is abandoned until the next sweep, never retried
	// within the same run.
	if err := w.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected aggregate error")
	}
	if sender.attempts["C99"] != 1 {
		t.Fatalf("expected exactly 1 send attempt, got %d", sender.attempts["C99"])
	}
	if len(sender.sends) != 0 {
		t.Fatalf("expected no deliveries, got %d", len(sender.sends))
	}
}

func TestRunOnceFailureDoesNotBlockOtherHolders(t *testing.T) {
	svc, repo := newTestService(t)
	seedReservation(t, repo, models.ResourceKey{Environment: "dev", Service: "frontend"}, "U1", "C1")
	seedReservation(t, repo, models.ResourceKey{Environment: "staging", Service: "backend"}, "U2", "C2")

	sender := newFakeSender()
	sender.failing["C1"] = true

	logger := zerolog.Nop()
	w := NewReminderWorker(svc, sender, "09:00", &logger)

	err := w.RunOnce(context.Background())
	if err == nil {
		t.Fatalf("expected aggregate error")
	}
	if !strings.Contains(err.Error(), "1 of 2 reminders failed") {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sends) != 1 || sender.sends[0].channel != "C2" {
		t.Fatalf("expected U2's reminder to still go out, got %+v", sender.sends)
	}
}

func TestStartRejectsBadReminderTime(t *testing.T) {
	svc, _ := newTestService(t)
	logger := zerolog.Nop()
	w := NewReminderWorker(svc, newFakeSender(), "not-a-time", &logger)

	if err := w.Start(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestUntilNextFireRollsOver(t *testing.T) {
	svc, _ := newTestService(t)
	logger := zerolog.Nop()
	w := NewReminderWorker(svc, newFakeSender(), "09:00", &logger)

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return base }

	wait := w.untilNextFire(9, 0)
	if wait != 23*time.Hour {
		t.Fatalf("expected 23h until tomorrow 09:00, got %s", wait)
	}

	wait = w.untilNextFire(10, 30)
	if wait != 30*time.Minute {
		t.Fatalf("expected 30m until today 10:30, got %s", wait)
	}
}
