package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/notebell/notebell/internal/ai"
	"github.com/notebell/notebell/internal/delivery"
	"github.com/notebell/notebell/internal/models"
	"github.com/notebell/notebell/internal/reconcile"
)

// ReminderStore is the reminder persistence the handlers need.
type ReminderStore interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	GetByID(ctx context.Context, reminderID int64) (*models.Reminder, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Reminder, error)
	GetActive(ctx context.Context) ([]*models.Reminder, error)
	Update(ctx context.Context, reminder *models.Reminder) error
	Delete(ctx context.Context, reminderID int64) error
	SetSnoozedUntil(ctx context.Context, reminderID int64, until *time.Time) error
	SetLastAcknowledgedAt(ctx context.Context, reminderID int64, at *time.Time) error
}

// Scheduler is the orchestrator surface the handlers drive.
type Scheduler interface {
	RescheduleOne(ctx context.Context, rem *models.Reminder) (reconcile.Result, error)
	RescheduleByID(ctx context.Context, reminderID int64) error
	CancelOne(ctx context.Context, reminderID int64) error
	RescheduleAllActive(ctx context.Context, reminders []*models.Reminder) int
}

// PushHandler consumes push payloads.
type PushHandler interface {
	HandlePush(ctx context.Context, userID int64, p delivery.PushPayload) error
}

// SentLedger is the slice of the notification ledger the API touches.
type SentLedger interface {
	Dismiss(ctx context.Context, reminderID int64) error
}

// ScheduleParser parses natural-language schedules. Optional.
type ScheduleParser interface {
	ParseSchedule(ctx context.Context, text string, now time.Time) (*ai.Schedule, error)
}

// Waker pokes the dispatcher after schedule changes so due alarms are
// picked up without waiting for the next tick. Optional.
type Waker interface {
	Notify()
}

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Reminders ReminderStore
	Scheduler Scheduler
	Push      PushHandler
	Ledger    SentLedger
	Parser    ScheduleParser
	Waker     Waker
}

// NewRouter creates the HTTP router exposing the external scheduling
// triggers.
func NewRouter(deps *Deps) http.Handler {
	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/reminders", h.createReminder)
		r.Get("/reminders", h.listReminders)
		r.Put("/reminders/{id}", h.updateReminder)
		r.Delete("/reminders/{id}", h.deleteReminder)
		r.Post("/reminders/{id}/snooze", h.snoozeReminder)
		r.Post("/reminders/{id}/ack", h.ackReminder)
		r.Post("/push", h.receivePush)
		r.Post("/resync", h.resync)
		r.Post("/parse-schedule", h.parseSchedule)
	})

	return r
}
