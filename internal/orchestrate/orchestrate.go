package orchestrate

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/notebell/notebell/internal/models"
	"github.com/notebell/notebell/internal/reconcile"
)

// ReminderStore is the slice of reminder persistence the orchestrator
// needs: loading by id and keeping the derived next-trigger field
// current after a reconcile.
type ReminderStore interface {
	GetByID(ctx context.Context, reminderID int64) (*models.Reminder, error)
	SetNextTriggerAt(ctx context.Context, reminderID int64, at *time.Time) error
}

// Orchestrator is the single entry point every external trigger goes
// through: foreground saves, push arrivals, the dispatcher loop and the
// cold-start sweep. Reconciles for the same reminder are serialized on a
// per-reminder mutex; the reconciler itself holds no locks, and without
// this two triggers racing on stale ledger state could each arm a
// notification.
type Orchestrator struct {
	rec       *reconcile.Reconciler
	reminders ReminderStore

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(rec *reconcile.Reconciler, reminders ReminderStore) *Orchestrator {
	return &Orchestrator{
		rec:       rec,
		reminders: reminders,
		locks:     make(map[int64]*sync.Mutex),
	}
}

func (o *Orchestrator) lockFor(reminderID int64) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[reminderID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[reminderID] = l
	}
	return l
}

// RescheduleOne reconciles a single reminder and persists its computed
// next trigger. A failed next-trigger write is logged but does not fail
// the reschedule: the armed notification is already correct and the
// audit field catches up on the next reconcile.
func (o *Orchestrator) RescheduleOne(ctx context.Context, rem *models.Reminder) (reconcile.Result, error) {
	l := o.lockFor(rem.ReminderID)
	l.Lock()
	defer l.Unlock()

	res, err := o.rec.Reconcile(ctx, rem)
	if err != nil {
		return res, err
	}
	if res.Outcome == reconcile.OutcomeUnchanged {
		return res, nil
	}
	if err := o.reminders.SetNextTriggerAt(ctx, rem.ReminderID, res.NextTrigger); err != nil {
		log.Printf("Failed to persist next trigger for reminder %d: %v", rem.ReminderID, err)
	}
	rem.NextTriggerAt = res.NextTrigger
	return res, nil
}

// RescheduleByID loads the reminder and reschedules it. Used by the
// push sync path, which only carries an id.
func (o *Orchestrator) RescheduleByID(ctx context.Context, reminderID int64) error {
	rem, err := o.reminders.GetByID(ctx, reminderID)
	if err != nil {
		return fmt.Errorf("failed to load reminder %d: %w", reminderID, err)
	}
	_, err = o.RescheduleOne(ctx, rem)
	return err
}

// CancelOne disarms everything for a reminder. It reconciles a synthetic
// inactive reminder so the ledger bookkeeping stays in one place.
func (o *Orchestrator) CancelOne(ctx context.Context, reminderID int64) error {
	l := o.lockFor(reminderID)
	l.Lock()
	defer l.Unlock()

	if _, err := o.rec.Reconcile(ctx, &models.Reminder{ReminderID: reminderID, Active: false}); err != nil {
		return err
	}
	if err := o.reminders.SetNextTriggerAt(ctx, reminderID, nil); err != nil {
		log.Printf("Failed to clear next trigger for reminder %d: %v", reminderID, err)
	}
	return nil
}

// RescheduleAllActive is the bulk pass run at cold start and on
// connectivity recovery. One reminder's failure does not abort the
// batch; the return value counts successes.
func (o *Orchestrator) RescheduleAllActive(ctx context.Context, reminders []*models.Reminder) int {
	count := 0
	for _, rem := range reminders {
		if !rem.Active {
			continue
		}
		if _, err := o.RescheduleOne(ctx, rem); err != nil {
			log.Printf("Failed to reschedule reminder %d: %v", rem.ReminderID, err)
			continue
		}
		count++
	}
	return count
}
