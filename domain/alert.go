package domain

import "time"

const (
	AlertTypeRefillReminder = "refill_reminder"
	AlertTypeLowStock       = "low_stock"
)

// ProactiveAlert is a deduplicated notification candidate. ConsumerID is nil
// for system-wide alerts. Sent only ever moves false -> true.
type ProactiveAlert struct {
	ID          int64     `db:"id" json:"id"`
	ConsumerID  *int64    `db:"consumer_id" json:"consumer_id,omitempty"`
	MedicineID  int64     `db:"medicine_id" json:"medicine_id"`
	AlertType   string    `db:"alert_type" json:"alert_type"`
	Message     string    `db:"message" json:"message"`
	TriggeredAt time.Time `db:"triggered_at" json:"triggered_at"`
	Sent        bool      `db:"sent" json:"sent"`
}
