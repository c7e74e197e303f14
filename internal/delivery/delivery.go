package delivery

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/notebell/notebell/internal/models"
)

// Push payload types, matching the messaging transport contract.
const (
	PushTypeTrigger = "trigger_reminder"
	PushTypeSync    = "sync_reminder"
)

// PushPayload is the data block of an incoming push message.
type PushPayload struct {
	Type       string `json:"type"`
	ReminderID int64  `json:"reminderId"`
	EventID    string `json:"eventId"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

// NotificationStore is the append-only sent ledger.
type NotificationStore interface {
	Record(ctx context.Context, rec *models.NotificationRecord) error
	// HasSent reports whether a record exists for the occurrence,
	// optionally filtered to one source (empty source matches any).
	HasSent(ctx context.Context, reminderID int64, eventID string, source models.DeliverySource) (bool, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// Notifier shows a user-visible notification.
type Notifier interface {
	Notify(ctx context.Context, userID int64, title, body string) error
}

// Rescheduler re-runs scheduling for one reminder, used by sync pushes.
type Rescheduler interface {
	RescheduleByID(ctx context.Context, reminderID int64) error
}

// Handler adjudicates between the two delivery channels racing to show
// the same logical occurrence. Each channel checks whether the other one
// already delivered the event before displaying, and records its own
// delivery after displaying. The ledger is the source of truth for
// later checks, not a lock.
type Handler struct {
	ledger    NotificationStore
	notifier  Notifier
	scheduler Rescheduler
	retention time.Duration
	now       func() time.Time
}

// DefaultRetentionDays is how long delivered-notification records are
// kept before opportunistic pruning removes them.
const DefaultRetentionDays = 7

func NewHandler(ledger NotificationStore, notifier Notifier, scheduler Rescheduler, retentionDays int) *Handler {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Handler{
		ledger:    ledger,
		notifier:  notifier,
		scheduler: scheduler,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
	}
}

// HandleLocalFire shows a locally-armed notification unless the push
// channel already delivered the same occurrence.
func (h *Handler) HandleLocalFire(ctx context.Context, rem *models.Reminder, eventID string) error {
	sent, err := h.ledger.HasSent(ctx, rem.ReminderID, eventID, models.SourcePush)
	if err != nil {
		return fmt.Errorf("failed to check notification ledger: %w", err)
	}
	if sent {
		log.Printf("Suppressing local notification for reminder %d event %s: already delivered via push", rem.ReminderID, eventID)
		return nil
	}
	if err := h.notifier.Notify(ctx, rem.UserID, rem.Title, rem.Body); err != nil {
		return fmt.Errorf("failed to show notification: %w", err)
	}
	if err := h.record(ctx, rem.ReminderID, eventID, models.SourceLocal); err != nil {
		return err
	}
	h.pruneOld(ctx)
	return nil
}

// HandlePush processes an incoming push message. Trigger pushes go
// through the same deduplication as local fires, against the local
// channel; sync pushes just re-run scheduling for the reminder.
func (h *Handler) HandlePush(ctx context.Context, userID int64, p PushPayload) error {
	switch p.Type {
	case PushTypeSync:
		return h.scheduler.RescheduleByID(ctx, p.ReminderID)
	case PushTypeTrigger:
		sent, err := h.ledger.HasSent(ctx, p.ReminderID, p.EventID, models.SourceLocal)
		if err != nil {
			return fmt.Errorf("failed to check notification ledger: %w", err)
		}
		if sent {
			log.Printf("Suppressing push notification for reminder %d event %s: already delivered locally", p.ReminderID, p.EventID)
			return nil
		}
		if err := h.notifier.Notify(ctx, userID, p.Title, p.Body); err != nil {
			return fmt.Errorf("failed to show notification: %w", err)
		}
		if err := h.record(ctx, p.ReminderID, p.EventID, models.SourcePush); err != nil {
			return err
		}
		h.pruneOld(ctx)
		return nil
	default:
		return fmt.Errorf("unknown push type %q", p.Type)
	}
}

func (h *Handler) record(ctx context.Context, reminderID int64, eventID string, source models.DeliverySource) error {
	now := h.now()
	rec := &models.NotificationRecord{
		ID:         uuid.NewString(),
		ReminderID: reminderID,
		EventID:    eventID,
		Source:     source,
		SentAt:     now,
		CreatedAt:  now,
	}
	if err := h.ledger.Record(ctx, rec); err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

// pruneOld trims expired ledger rows. It runs piggybacked on normal
// delivery handling rather than on its own timer, and failures only get
// logged.
func (h *Handler) pruneOld(ctx context.Context) {
	n, err := h.ledger.Prune(ctx, h.now().Add(-h.retention))
	if err != nil {
		log.Printf("Failed to prune notification ledger: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Pruned %d expired notification ledger rows", n)
	}
}
