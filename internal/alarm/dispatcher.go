package alarm

import (
	"context"
	"log"
	"time"

	"github.com/notebell/notebell/internal/delivery"
	"github.com/notebell/notebell/internal/models"
	"github.com/notebell/notebell/internal/orchestrate"
	"github.com/notebell/notebell/internal/repository"
)

// Dispatcher fires armed alarms when their trigger time passes. It is
// the headless counterpart of the foreground entry points: a ticker loop
// that polls for due rows, delivers them through the dedup handler, and
// advances each fired series to its next occurrence.
type Dispatcher struct {
	alarms        *repository.ArmedAlarmRepository
	reminders     *repository.ReminderRepository
	handler       *delivery.Handler
	orchestrator  *orchestrate.Orchestrator
	checkInterval time.Duration
	notifyCh      chan struct{}
}

func NewDispatcher(
	alarms *repository.ArmedAlarmRepository,
	reminders *repository.ReminderRepository,
	handler *delivery.Handler,
	orchestrator *orchestrate.Orchestrator,
	checkInterval time.Duration,
) *Dispatcher {
	if checkInterval <= 0 {
		checkInterval = 1 * time.Minute
	}
	return &Dispatcher{
		alarms:        alarms,
		reminders:     reminders,
		handler:       handler,
		orchestrator:  orchestrator,
		checkInterval: checkInterval,
		notifyCh:      make(chan struct{}, 1),
	}
}

// Notify triggers an immediate check. Non-blocking if a check is already
// pending.
func (d *Dispatcher) Notify() {
	select {
	case d.notifyCh <- struct{}{}:
	default:
		// Channel already has a pending notification, skip
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	log.Println("Alarm dispatcher started")
	ticker := time.NewTicker(d.checkInterval)
	defer ticker.Stop()

	// Wait a bit for migrations to complete before first check
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
	}

	d.check(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Alarm dispatcher stopped")
			return
		case <-ticker.C:
			d.check(ctx)
		case <-d.notifyCh:
			log.Println("Alarm dispatcher triggered by notification")
			d.check(ctx)
		}
	}
}

func (d *Dispatcher) check(ctx context.Context) {
	now := time.Now()
	due, err := d.alarms.GetDue(ctx, now)
	if err != nil {
		log.Printf("Failed to get due alarms: %v", err)
		return
	}
	for _, alarm := range due {
		d.fire(ctx, alarm, now)
	}
}

func (d *Dispatcher) fire(ctx context.Context, alarm *models.ArmedAlarm, now time.Time) {
	rem, err := d.reminders.GetByID(ctx, alarm.ReminderID)
	if err != nil {
		log.Printf("Failed to load reminder %d for alarm %s: %v", alarm.ReminderID, alarm.NotificationID, err)
		return
	}

	if err := d.handler.HandleLocalFire(ctx, rem, alarm.EventID); err != nil {
		// Leave the row armed so the next tick retries delivery.
		log.Printf("Failed to deliver alarm %s for reminder %d: %v", alarm.NotificationID, alarm.ReminderID, err)
		return
	}

	if err := d.alarms.Cancel(ctx, alarm.NotificationID); err != nil {
		log.Printf("Failed to disarm fired alarm %s: %v", alarm.NotificationID, err)
	}

	if err := d.reminders.MarkFired(ctx, alarm.ReminderID, alarm.TriggerAt); err != nil {
		log.Printf("Failed to mark reminder %d fired: %v", alarm.ReminderID, err)
	}
	rem.TriggerAt = &alarm.TriggerAt
	rem.LastFiredAt = &alarm.TriggerAt
	if rem.SnoozedUntil != nil && !rem.SnoozedUntil.After(alarm.TriggerAt) {
		rem.SnoozedUntil = nil
	}

	// MarkFired moved the trigger, so the fingerprint changed and this
	// arms the next occurrence (or records canceled for a one-shot).
	if _, err := d.orchestrator.RescheduleOne(ctx, rem); err != nil {
		log.Printf("Failed to advance reminder %d after firing: %v", alarm.ReminderID, err)
		return
	}

	log.Printf("Fired alarm %s for reminder %d (user %d)", alarm.NotificationID, alarm.ReminderID, alarm.UserID)
}
