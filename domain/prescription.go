package domain

import "time"

type Prescription struct {
	ID         int64      `db:"id" json:"id"`
	ConsumerID int64      `db:"consumer_id" json:"consumer_id"`
	MedicineID int64      `db:"medicine_id" json:"medicine_id"`
	Verified   bool       `db:"verified" json:"verified"`
	ExpiryDate *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
