package models

import "time"

// ScheduleStatus is the reconciliation state recorded for a reminder.
type ScheduleStatus string

const (
	StatusScheduled ScheduleStatus = "scheduled"
	StatusCanceled  ScheduleStatus = "canceled"
	StatusError     ScheduleStatus = "error"
)

// ScheduleEntry is one schedule ledger row: which device notifications
// are currently armed for a reminder and the fingerprint they were armed
// for. NotificationIDs is empty whenever the status is canceled, and
// after an arm failure; a cancel failure keeps the stale ids recorded so
// a later reconcile can retry the cancellation.
type ScheduleEntry struct {
	ReminderID        int64          `json:"reminder_id"`
	NotificationIDs   []string       `json:"notification_ids"`
	LastScheduledHash string         `json:"last_scheduled_hash"`
	Status            ScheduleStatus `json:"status"`
	LastScheduledAt   time.Time      `json:"last_scheduled_at"`
	LastError         string         `json:"last_error,omitempty"`
}

// DeliverySource identifies which channel showed a notification.
type DeliverySource string

const (
	SourceLocal DeliverySource = "local"
	SourcePush  DeliverySource = "push"
)

// NotificationRecord is one append-only notification ledger row,
// inserted when a notification was actually shown to the user.
type NotificationRecord struct {
	ID         string         `json:"id"`
	ReminderID int64          `json:"reminder_id"`
	EventID    string         `json:"event_id"`
	Source     DeliverySource `json:"source"`
	SentAt     time.Time      `json:"sent_at"`
	Dismissed  bool           `json:"dismissed"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ArmedAlarm is a device-level notification armed through the alarm
// port, waiting to fire at its trigger time.
type ArmedAlarm struct {
	NotificationID string    `json:"notification_id"`
	ReminderID     int64     `json:"reminder_id"`
	UserID         int64     `json:"user_id"`
	TriggerAt      time.Time `json:"trigger_at"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	EventID        string    `json:"event_id"`
	CreatedAt      time.Time `json:"created_at"`
}
