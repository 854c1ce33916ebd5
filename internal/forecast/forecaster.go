package forecast

import (
	"math"
	"time"

	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/store"
)

// Confidence scoring constants. The base score grows with order count and
// with a recognizable cadence, capped below certainty.
const (
	confidenceBase        = 0.50
	confidenceCap         = 0.95
	monthlyCadenceLow     = 20
	monthlyCadenceHigh    = 40
	quarterlyCadenceLow   = 80
	quarterlyCadenceHigh  = 100
	averageQuantityWindow = 3
)

// Prediction is a per-consumer, per-medicine depletion forecast.
type Prediction struct {
	ConsumerID            int64     `json:"consumer_id"`
	MedicineID            int64     `json:"medicine_id"`
	MedicineName          string    `json:"medicine_name"`
	DaysBetweenOrders     int       `json:"days_between_orders"`
	AverageQuantity       float64   `json:"average_quantity"`
	LastOrderDate         time.Time `json:"last_order_date"`
	ExpectedDepletionDate time.Time `json:"expected_depletion_date"`
	DaysUntilDepletion    int       `json:"days_until_depletion"`
	Confidence            float64   `json:"confidence"`
	ShouldAlert           bool      `json:"should_alert"`
	Urgency               string    `json:"urgency,omitempty"`
	Message               string    `json:"message,omitempty"`
}

// Predict derives a depletion forecast from a consumer's fulfilled purchase
// history, newest first. It needs at least two purchases; ok is false
// otherwise. Pure with respect to its inputs.
func Predict(history []store.PastOrder, now time.Time) (Prediction, bool) {
	if len(history) < 2 {
		return Prediction{}, false
	}

	daysBetween := int(math.Round(history[0].Date.Sub(history[1].Date).Hours() / 24))

	window := history
	if len(window) > averageQuantityWindow {
		window = window[:averageQuantityWindow]
	}
	var sum int64
	for _, p := range window {
		sum += p.Quantity
	}
	avgQuantity := float64(sum) / float64(len(window))

	expectedDepletion := history[0].Date.AddDate(0, 0, daysBetween)
	daysUntil := int(math.Round(expectedDepletion.Sub(now).Hours() / 24))

	confidence := confidenceBase
	switch {
	case len(history) >= 5:
		confidence += 0.30
	case len(history) >= 3:
		confidence += 0.20
	default:
		confidence += 0.10
	}
	switch {
	case daysBetween >= monthlyCadenceLow && daysBetween <= monthlyCadenceHigh:
		confidence += 0.20
	case daysBetween >= quarterlyCadenceLow && daysBetween <= quarterlyCadenceHigh:
		confidence += 0.15
	}
	if confidence > confidenceCap {
		confidence = confidenceCap
	}

	return Prediction{
		DaysBetweenOrders:     daysBetween,
		AverageQuantity:       avgQuantity,
		LastOrderDate:         history[0].Date,
		ExpectedDepletionDate: expectedDepletion,
		DaysUntilDepletion:    daysUntil,
		Confidence:            confidence,
	}, true
}
