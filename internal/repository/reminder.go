package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/notebell/notebell/internal/database"
	"github.com/notebell/notebell/internal/models"
	"github.com/notebell/notebell/internal/recurrence"
)

const reminderColumns = `reminder_id, user_id, title, body, active, trigger_at, repeat, recurrence_rule,
		 snoozed_until, start_at, base_at_local, next_trigger_at, last_fired_at, last_acknowledged_at, created_at`

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	repeatJSON, err := json.Marshal(reminder.Repeat.Normalize())
	if err != nil {
		return fmt.Errorf("failed to encode repeat rule: %w", err)
	}
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (user_id, title, body, active, trigger_at, repeat, recurrence_rule,
		    snoozed_until, start_at, base_at_local, next_trigger_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING reminder_id, created_at`,
		reminder.UserID, reminder.Title, reminder.Body, reminder.Active, reminder.TriggerAt,
		repeatJSON, reminder.RecurrenceRule, reminder.SnoozedUntil, reminder.StartAt,
		reminder.BaseAtLocal, reminder.NextTriggerAt,
	).Scan(&reminder.ReminderID, &reminder.CreatedAt)
}

func (r *ReminderRepository) GetByID(ctx context.Context, reminderID int64) (*models.Reminder, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE reminder_id = $1`,
		reminderID,
	)
	return scanReminder(row)
}

func (r *ReminderRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE user_id = $1
		 ORDER BY next_trigger_at ASC NULLS LAST`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

// GetActive returns every active reminder, the input of the cold-start
// reschedule sweep.
func (r *ReminderRepository) GetActive(ctx context.Context) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE active = true
		 ORDER BY next_trigger_at ASC NULLS LAST`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (r *ReminderRepository) Update(ctx context.Context, reminder *models.Reminder) error {
	repeatJSON, err := json.Marshal(reminder.Repeat.Normalize())
	if err != nil {
		return fmt.Errorf("failed to encode repeat rule: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`UPDATE reminders SET title = $1, body = $2, active = $3, trigger_at = $4, repeat = $5,
		    recurrence_rule = $6, snoozed_until = $7, start_at = $8, base_at_local = $9
		 WHERE reminder_id = $10`,
		reminder.Title, reminder.Body, reminder.Active, reminder.TriggerAt, repeatJSON,
		reminder.RecurrenceRule, reminder.SnoozedUntil, reminder.StartAt, reminder.BaseAtLocal,
		reminder.ReminderID,
	)
	return err
}

func (r *ReminderRepository) Delete(ctx context.Context, reminderID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM reminders WHERE reminder_id = $1`, reminderID)
	return err
}

func (r *ReminderRepository) SetNextTriggerAt(ctx context.Context, reminderID int64, at *time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET next_trigger_at = $1 WHERE reminder_id = $2`,
		at, reminderID)
	return err
}

func (r *ReminderRepository) SetSnoozedUntil(ctx context.Context, reminderID int64, until *time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET snoozed_until = $1 WHERE reminder_id = $2`,
		until, reminderID)
	return err
}

func (r *ReminderRepository) SetLastAcknowledgedAt(ctx context.Context, reminderID int64, at *time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET last_acknowledged_at = $1 WHERE reminder_id = $2`,
		at, reminderID)
	return err
}

// MarkFired records that an occurrence was delivered: the trigger moves
// to the fired occurrence (which changes the schedule fingerprint, so
// the next reconcile arms the following one), last_fired_at is stamped,
// and an expired snooze is cleared so the series resumes its cadence.
func (r *ReminderRepository) MarkFired(ctx context.Context, reminderID int64, firedAt time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET trigger_at = $1, last_fired_at = $1,
		    snoozed_until = CASE WHEN snoozed_until <= $1 THEN NULL ELSE snoozed_until END
		 WHERE reminder_id = $2`,
		firedAt, reminderID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*models.Reminder, error) {
	reminder := &models.Reminder{}
	var repeatJSON []byte
	if err := row.Scan(&reminder.ReminderID, &reminder.UserID, &reminder.Title, &reminder.Body,
		&reminder.Active, &reminder.TriggerAt, &repeatJSON, &reminder.RecurrenceRule,
		&reminder.SnoozedUntil, &reminder.StartAt, &reminder.BaseAtLocal, &reminder.NextTriggerAt,
		&reminder.LastFiredAt, &reminder.LastAcknowledgedAt, &reminder.CreatedAt); err != nil {
		return nil, err
	}
	rep, err := decodeRepeat(repeatJSON, reminder.RecurrenceRule)
	if err != nil {
		return nil, fmt.Errorf("reminder %d: %w", reminder.ReminderID, err)
	}
	reminder.Repeat = rep
	return reminder, nil
}

func scanReminders(rows pgx.Rows) ([]*models.Reminder, error) {
	var reminders []*models.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}

// decodeRepeat is the storage-boundary normalization: current rows carry
// the repeat union as JSON, rows from before the union migration carry a
// raw RRULE string.
func decodeRepeat(repeatJSON []byte, legacyRule string) (models.Repeat, error) {
	if len(repeatJSON) > 0 && string(repeatJSON) != "null" {
		var rep models.Repeat
		if err := json.Unmarshal(repeatJSON, &rep); err != nil {
			return models.Repeat{}, fmt.Errorf("failed to decode repeat rule: %w", err)
		}
		return rep.Normalize(), nil
	}
	if legacyRule != "" {
		return recurrence.FromRRule(legacyRule)
	}
	return models.Repeat{Kind: models.RepeatNone}.Normalize(), nil
}
