package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/notebell/notebell/internal/models"
	"github.com/notebell/notebell/internal/recurrence"
	"github.com/notebell/notebell/internal/schedhash"
)

// Failure classes surfaced to callers. All are also recorded in the
// schedule ledger before being returned, so status stays inspectable
// across process death.
var (
	ErrCancelFailed   = errors.New("alarm cancel rejected")
	ErrScheduleFailed = errors.New("alarm schedule rejected")
	ErrLedgerWrite    = errors.New("schedule ledger write failed")
)

// AlarmRequest describes one device-level notification to arm.
type AlarmRequest struct {
	ReminderID int64
	UserID     int64
	TriggerAt  time.Time
	Title      string
	Body       string
	EventID    string
}

// AlarmPort arms and disarms device-level notifications. Cancel must be
// safe to call on an id that is no longer armed.
type AlarmPort interface {
	Schedule(ctx context.Context, req AlarmRequest) (string, error)
	Cancel(ctx context.Context, notificationID string) error
}

// ScheduleStore persists one ledger entry per reminder. Get returns
// (nil, nil) for a reminder that has never been reconciled.
type ScheduleStore interface {
	Get(ctx context.Context, reminderID int64) (*models.ScheduleEntry, error)
	Put(ctx context.Context, entry *models.ScheduleEntry) error
}

// Outcome reports what a reconcile did.
type Outcome string

const (
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeScheduled Outcome = "scheduled"
	OutcomeCanceled  Outcome = "canceled"
)

type Result struct {
	Outcome         Outcome
	NotificationIDs []string
	NextTrigger     *time.Time
}

// Reconciler drives the armed notifications for a reminder toward the
// state its current fields call for.
type Reconciler struct {
	store ScheduleStore
	alarm AlarmPort
	now   func() time.Time
}

func New(store ScheduleStore, alarm AlarmPort) *Reconciler {
	return &Reconciler{store: store, alarm: alarm, now: time.Now}
}

// DesiredHash fingerprints the reminder fields that require a
// reschedule when they change.
func DesiredHash(rem *models.Reminder) string {
	return schedhash.Hash(rem.TriggerAt, string(rem.Repeat.Normalize().Kind),
		rem.Active, rem.SnoozedUntil, rem.Title, rem.Repeat.Config())
}

// Reconcile runs the schedule state machine for one reminder:
//
//   - inactive: cancel whatever is armed, record canceled
//   - active, unchanged fingerprint, already scheduled: no-op
//   - otherwise: cancel stale ids, compute the next trigger, arm a new
//     notification, record scheduled
//
// Cancel-then-arm is not transactional. If the cancel succeeds and the
// arm fails, nothing is left armed and the entry holds error status: a
// silently missing notification over a silently duplicated one.
func (r *Reconciler) Reconcile(ctx context.Context, rem *models.Reminder) (Result, error) {
	desired := DesiredHash(rem)

	entry, err := r.store.Get(ctx, rem.ReminderID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}
	if entry == nil {
		entry = &models.ScheduleEntry{ReminderID: rem.ReminderID, Status: models.StatusCanceled}
	}

	if !rem.Active {
		return r.cancelAndRecord(ctx, entry, desired)
	}

	if entry.Status == models.StatusScheduled && entry.LastScheduledHash == desired {
		return Result{
			Outcome:         OutcomeUnchanged,
			NotificationIDs: entry.NotificationIDs,
			NextTrigger:     rem.NextTriggerAt,
		}, nil
	}

	if err := r.cancelArmed(ctx, entry); err != nil {
		return Result{}, err
	}

	trigger, ok := r.nextTrigger(rem)
	if !ok {
		// One-shot in the past or a degenerate rule: nothing to arm.
		return r.cancelAndRecord(ctx, entry, desired)
	}

	id, err := r.alarm.Schedule(ctx, AlarmRequest{
		ReminderID: rem.ReminderID,
		UserID:     rem.UserID,
		TriggerAt:  trigger,
		Title:      rem.Title,
		Body:       rem.Body,
		EventID:    models.EventID(rem.ReminderID, trigger),
	})
	if err != nil {
		entry.NotificationIDs = nil
		entry.Status = models.StatusError
		entry.LastError = err.Error()
		entry.LastScheduledAt = r.now()
		if perr := r.store.Put(ctx, entry); perr != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrLedgerWrite, perr)
		}
		return Result{}, fmt.Errorf("%w: %v", ErrScheduleFailed, err)
	}

	entry.NotificationIDs = []string{id}
	entry.Status = models.StatusScheduled
	entry.LastScheduledHash = desired
	entry.LastError = ""
	entry.LastScheduledAt = r.now()
	if err := r.store.Put(ctx, entry); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}
	return Result{
		Outcome:         OutcomeScheduled,
		NotificationIDs: entry.NotificationIDs,
		NextTrigger:     &trigger,
	}, nil
}

// cancelAndRecord disarms anything still armed and persists the entry in
// canceled state.
func (r *Reconciler) cancelAndRecord(ctx context.Context, entry *models.ScheduleEntry, desired string) (Result, error) {
	if err := r.cancelArmed(ctx, entry); err != nil {
		return Result{}, err
	}
	entry.Status = models.StatusCanceled
	entry.LastScheduledHash = desired
	entry.LastError = ""
	entry.LastScheduledAt = r.now()
	if err := r.store.Put(ctx, entry); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}
	return Result{Outcome: OutcomeCanceled}, nil
}

// cancelArmed disarms every id recorded on the entry. On failure the
// entry keeps its old ids in error state so a later reconcile can find
// and re-cancel them.
func (r *Reconciler) cancelArmed(ctx context.Context, entry *models.ScheduleEntry) error {
	for _, id := range entry.NotificationIDs {
		if err := r.alarm.Cancel(ctx, id); err != nil {
			entry.Status = models.StatusError
			entry.LastError = err.Error()
			entry.LastScheduledAt = r.now()
			if perr := r.store.Put(ctx, entry); perr != nil {
				return fmt.Errorf("%w: %v", ErrLedgerWrite, perr)
			}
			return fmt.Errorf("%w: %v", ErrCancelFailed, err)
		}
	}
	entry.NotificationIDs = nil
	return nil
}

// nextTrigger resolves the desired fire time: an explicit snooze wins,
// otherwise the recurrence engine computes the next occurrence from the
// series anchor.
func (r *Reconciler) nextTrigger(rem *models.Reminder) (time.Time, bool) {
	if rem.SnoozedUntil != nil {
		return *rem.SnoozedUntil, true
	}
	anchor := rem.Anchor()
	if anchor.IsZero() {
		return time.Time{}, false
	}
	anchor = anchor.In(time.Local)
	return recurrence.NextTrigger(r.now(), anchor, rem.BaseLocal(time.Local), rem.Repeat)
}
