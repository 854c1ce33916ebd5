package domain

import "time"

// Order statuses. Transitions are monotonic: pending_payment -> confirmed ->
// fulfilled, or pending_payment/confirmed -> cancelled.
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusFulfilled      = "fulfilled"
	OrderStatusCancelled      = "cancelled"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusVoided  = "voided"
)

type Order struct {
	ID               int64     `db:"id" json:"id"`
	ConsumerID       int64     `db:"consumer_id" json:"consumer_id"`
	Status           string    `db:"status" json:"status"`
	PaymentStatus    string    `db:"payment_status" json:"payment_status"`
	PaymentReference *string   `db:"payment_reference" json:"payment_reference,omitempty"`
	TotalAmount      float64   `db:"total_amount" json:"total_amount"`
	WebhookSent      bool      `db:"webhook_sent" json:"webhook_sent"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

type OrderItem struct {
	ID              int64   `db:"id" json:"id"`
	OrderID         int64   `db:"order_id" json:"order_id"`
	MedicineID      int64   `db:"medicine_id" json:"medicine_id"`
	Quantity        int64   `db:"quantity" json:"quantity"`
	DosageFrequency string  `db:"dosage_frequency" json:"dosage_frequency"`
	UnitPrice       float64 `db:"unit_price" json:"unit_price"`
	Subtotal        float64 `db:"subtotal" json:"subtotal"`
}

// OrderRequest is one sanitized order line handed to the safety evaluator and
// the lifecycle manager.
type OrderRequest struct {
	MedicineID      int64   `json:"medicine_id"`
	Quantity        int64   `json:"quantity"`
	DosageFrequency string  `json:"dosage_frequency"`
	UnitPrice       float64 `json:"unit_price"`
}
