package domain

import "time"

// ConsumptionRecord is an append-only log entry written by the forecaster
// whenever a depletion prediction results in an alert.
type ConsumptionRecord struct {
	ID                    int64     `db:"id" json:"id"`
	ConsumerID            int64     `db:"consumer_id" json:"consumer_id"`
	MedicineID            int64     `db:"medicine_id" json:"medicine_id"`
	PurchaseDate          time.Time `db:"purchase_date" json:"purchase_date"`
	Quantity              int64     `db:"quantity" json:"quantity"`
	ExpectedDepletionDate time.Time `db:"expected_depletion_date" json:"expected_depletion_date"`
}
