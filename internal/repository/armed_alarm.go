package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/notebell/notebell/internal/database"
	"github.com/notebell/notebell/internal/models"
	"github.com/notebell/notebell/internal/reconcile"
)

// ArmedAlarmRepository is the production alarm port: an armed
// notification is a row in armed_alarms, fired by the dispatcher when
// its trigger time passes. It satisfies reconcile.AlarmPort.
type ArmedAlarmRepository struct {
	db *database.DB
}

func NewArmedAlarmRepository(db *database.DB) *ArmedAlarmRepository {
	return &ArmedAlarmRepository{db: db}
}

func (r *ArmedAlarmRepository) Schedule(ctx context.Context, req reconcile.AlarmRequest) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO armed_alarms (notification_id, reminder_id, user_id, trigger_at, title, body, event_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, req.ReminderID, req.UserID, req.TriggerAt, req.Title, req.Body, req.EventID,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Cancel disarms a notification. Deleting a row that is already gone is
// a no-op, which keeps Cancel idempotent.
func (r *ArmedAlarmRepository) Cancel(ctx context.Context, notificationID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM armed_alarms WHERE notification_id = $1`, notificationID)
	return err
}

// GetDue returns alarms whose trigger time has passed, oldest first.
func (r *ArmedAlarmRepository) GetDue(ctx context.Context, until time.Time) ([]*models.ArmedAlarm, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT notification_id, reminder_id, user_id, trigger_at, title, body, event_id, created_at
		 FROM armed_alarms WHERE trigger_at <= $1
		 ORDER BY trigger_at ASC`,
		until,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alarms []*models.ArmedAlarm
	for rows.Next() {
		alarm := &models.ArmedAlarm{}
		if err := rows.Scan(&alarm.NotificationID, &alarm.ReminderID, &alarm.UserID,
			&alarm.TriggerAt, &alarm.Title, &alarm.Body, &alarm.EventID, &alarm.CreatedAt); err != nil {
			return nil, err
		}
		alarms = append(alarms, alarm)
	}
	return alarms, rows.Err()
}
