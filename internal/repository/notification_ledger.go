package repository

import (
	"context"
	"time"

	"github.com/notebell/notebell/internal/database"
	"github.com/notebell/notebell/internal/models"
)

// NotificationLedgerRepository persists the append-only sent ledger. It
// satisfies delivery.NotificationStore.
type NotificationLedgerRepository struct {
	db *database.DB
}

func NewNotificationLedgerRepository(db *database.DB) *NotificationLedgerRepository {
	return &NotificationLedgerRepository{db: db}
}

func (r *NotificationLedgerRepository) Record(ctx context.Context, rec *models.NotificationRecord) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO notification_ledger (id, reminder_id, event_id, source, sent_at, dismissed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.ReminderID, rec.EventID, rec.Source, rec.SentAt, rec.Dismissed, rec.CreatedAt,
	)
	return err
}

func (r *NotificationLedgerRepository) HasSent(ctx context.Context, reminderID int64, eventID string, source models.DeliverySource) (bool, error) {
	var exists bool
	var err error
	if source == "" {
		err = r.db.Pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM notification_ledger WHERE reminder_id = $1 AND event_id = $2)`,
			reminderID, eventID,
		).Scan(&exists)
	} else {
		err = r.db.Pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM notification_ledger WHERE reminder_id = $1 AND event_id = $2 AND source = $3)`,
			reminderID, eventID, source,
		).Scan(&exists)
	}
	return exists, err
}

func (r *NotificationLedgerRepository) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM notification_ledger WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Dismiss marks every undismissed record for a reminder as acknowledged.
func (r *NotificationLedgerRepository) Dismiss(ctx context.Context, reminderID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE notification_ledger SET dismissed = TRUE WHERE reminder_id = $1 AND NOT dismissed`,
		reminderID)
	return err
}
