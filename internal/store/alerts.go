package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tushar743-ui/Mediflow-AI-sub000/domain"
)

type Alerts struct {
	db *sqlx.DB
}

// InsertDedup inserts the alert unless an unsent alert for the same
// (consumer, medicine, alert_type) already exists, in which case it reports
// inserted=false. The dedup is the partial unique index on unsent rows, so
// concurrent batch workers cannot produce duplicates.
func (s *Alerts) InsertDedup(ctx context.Context, alert *domain.ProactiveAlert) (bool, error) {
	if alert.TriggeredAt.IsZero() {
		alert.TriggeredAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO proactive_alerts (consumer_id, medicine_id, alert_type, message, triggered_at, sent)
		 VALUES (?, ?, ?, ?, ?, 0)`,
		alert.ConsumerID, alert.MedicineID, alert.AlertType, alert.Message, alert.TriggeredAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	alert.ID, err = res.LastInsertId()
	return true, err
}

// MarkSent is a one-way transition; marking an already-sent alert is a no-op.
func (s *Alerts) MarkSent(ctx context.Context, alertID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE proactive_alerts SET sent = 1 WHERE id = ? AND sent = 0`, alertID)
	return err
}

// Pending returns unsent alerts for the consumer (including system-wide ones)
// triggered within the window, newest first.
func (s *Alerts) Pending(ctx context.Context, consumerID int64, window time.Duration) ([]domain.ProactiveAlert, error) {
	cutoff := time.Now().UTC().Add(-window)
	var alerts []domain.ProactiveAlert
	err := s.db.SelectContext(ctx, &alerts,
		`SELECT * FROM proactive_alerts
		  WHERE (consumer_id = ? OR consumer_id IS NULL) AND sent = 0 AND triggered_at >= ?
		  ORDER BY triggered_at DESC`,
		consumerID, cutoff)
	return alerts, err
}
