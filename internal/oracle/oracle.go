package oracle

import "context"

// CheckVerdict is the oracle's answer to a dosage review.
type CheckVerdict struct {
	Passed   bool   `json:"passed"`
	Severity string `json:"severity"`
	Reason   string `json:"reason"`
}

// AlertVerdict is the oracle's answer to a refill judgment.
type AlertVerdict struct {
	Alert   bool   `json:"alert"`
	Urgency string `json:"urgency"`
	Message string `json:"message"`
}

// DosageContext carries everything the oracle needs to review one order line.
type DosageContext struct {
	MedicineName string `json:"medicine_name"`
	DosageInfo   string `json:"dosage_info"`
	Quantity     int64  `json:"quantity"`
	Frequency    string `json:"frequency"`
}

// RefillContext carries a depletion prediction for alert judgment.
type RefillContext struct {
	MedicineName         string  `json:"medicine_name"`
	DaysUntilDepletion   int     `json:"days_until_depletion"`
	DaysBetweenOrders    int     `json:"days_between_orders"`
	AverageQuantity      float64 `json:"average_quantity"`
	DosageInfo           string  `json:"dosage_info"`
	PrescriptionRequired bool    `json:"prescription_required"`
	DaysSinceLastOrder   int     `json:"days_since_last_order"`
}

// Oracle is an external advisory decision provider. It may fail or time out;
// every caller defines its own deterministic fallback and never propagates an
// oracle error.
type Oracle interface {
	ReviewDosage(ctx context.Context, dc DosageContext) (CheckVerdict, error)
	JudgeRefill(ctx context.Context, rc RefillContext) (AlertVerdict, error)
}
