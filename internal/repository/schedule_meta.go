package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/notebell/notebell/internal/database"
	"github.com/notebell/notebell/internal/models"
)

// ScheduleMetaRepository persists the schedule ledger, one row per
// reminder. It satisfies reconcile.ScheduleStore.
type ScheduleMetaRepository struct {
	db *database.DB
}

func NewScheduleMetaRepository(db *database.DB) *ScheduleMetaRepository {
	return &ScheduleMetaRepository{db: db}
}

func (r *ScheduleMetaRepository) Get(ctx context.Context, reminderID int64) (*models.ScheduleEntry, error) {
	entry := &models.ScheduleEntry{}
	var idsJSON []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT reminder_id, notification_ids, last_scheduled_hash, status, last_scheduled_at, last_error
		 FROM schedule_meta WHERE reminder_id = $1`,
		reminderID,
	).Scan(&entry.ReminderID, &idsJSON, &entry.LastScheduledHash, &entry.Status,
		&entry.LastScheduledAt, &entry.LastError)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(idsJSON) > 0 {
		if err := json.Unmarshal(idsJSON, &entry.NotificationIDs); err != nil {
			return nil, fmt.Errorf("failed to decode notification ids: %w", err)
		}
	}
	return entry, nil
}

func (r *ScheduleMetaRepository) Put(ctx context.Context, entry *models.ScheduleEntry) error {
	ids := entry.NotificationIDs
	if ids == nil {
		ids = []string{}
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode notification ids: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO schedule_meta (reminder_id, notification_ids, last_scheduled_hash, status, last_scheduled_at, last_error)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (reminder_id) DO UPDATE SET
		    notification_ids = EXCLUDED.notification_ids,
		    last_scheduled_hash = EXCLUDED.last_scheduled_hash,
		    status = EXCLUDED.status,
		    last_scheduled_at = EXCLUDED.last_scheduled_at,
		    last_error = EXCLUDED.last_error`,
		entry.ReminderID, idsJSON, entry.LastScheduledHash, entry.Status,
		entry.LastScheduledAt, entry.LastError,
	)
	return err
}
