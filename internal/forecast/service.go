package forecast

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tushar743-ui/Mediflow-AI-sub000/domain"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/oracle"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/store"
)

// fallbackAlertDays is the deterministic rule applied when the refill oracle
// is unavailable: alert iff depletion is this many days away or fewer.
const fallbackAlertDays = 7

const batchWorkers = 4

// Service runs depletion forecasts and feeds the alert store.
type Service struct {
	orders      *store.Orders
	medicines   *store.Medicines
	consumption *store.Consumption
	alerts      *store.Alerts
	policy      oracle.Oracle
	alertWindow time.Duration
	log         *zap.Logger
}

func NewService(st *store.Store, policy oracle.Oracle, alertWindowDays int, log *zap.Logger) *Service {
	if alertWindowDays <= 0 {
		alertWindowDays = 7
	}
	return &Service{
		orders:      st.Orders,
		medicines:   st.Medicines,
		consumption: st.Consumption,
		alerts:      st.Alerts,
		policy:      policy,
		alertWindow: time.Duration(alertWindowDays) * 24 * time.Hour,
		log:         log,
	}
}

// RunBatch forecasts every (consumer, medicine) pair with repeat fulfilled
// orders. Consumers are processed in parallel; each consumer's writes touch
// disjoint rows and alert dedup is guaranteed by the store, so no mutual
// exclusion between workers is needed.
func (s *Service) RunBatch(ctx context.Context) ([]Prediction, error) {
	pairs, err := s.orders.ConsumersWithRepeatOrders(ctx)
	if err != nil {
		return nil, err
	}

	byConsumer := make(map[int64][]store.ConsumerMedicine)
	for _, p := range pairs {
		byConsumer[p.ConsumerID] = append(byConsumer[p.ConsumerID], p)
	}

	var (
		mu          sync.Mutex
		predictions []Prediction
		wg          sync.WaitGroup
		sem         = make(chan struct{}, batchWorkers)
	)
	for _, consumerPairs := range byConsumer {
		wg.Add(1)
		sem <- struct{}{}
		go func(consumerPairs []store.ConsumerMedicine) {
			defer wg.Done()
			defer func() { <-sem }()
			for _, pair := range consumerPairs {
				pred, err := s.forecastPair(ctx, pair)
				if err != nil {
					s.log.Warn("forecast failed",
						zap.Int64("consumer_id", pair.ConsumerID),
						zap.Int64("medicine_id", pair.MedicineID),
						zap.Error(err))
					continue
				}
				if pred == nil {
					continue
				}
				mu.Lock()
				predictions = append(predictions, *pred)
				mu.Unlock()
			}
		}(consumerPairs)
	}
	wg.Wait()

	s.log.Info("forecast batch complete",
		zap.Int("pairs", len(pairs)),
		zap.Int("predictions", len(predictions)))
	return predictions, nil
}

func (s *Service) forecastPair(ctx context.Context, pair store.ConsumerMedicine) (*Prediction, error) {
	history, err := s.orders.FulfilledHistory(ctx, pair.ConsumerID, pair.MedicineID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	pred, ok := Predict(history, now)
	if !ok {
		return nil, nil
	}
	pred.ConsumerID = pair.ConsumerID
	pred.MedicineID = pair.MedicineID

	med, err := s.medicines.GetByID(ctx, pair.MedicineID)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, nil
	}
	pred.MedicineName = med.Name

	daysSinceLast := int(now.Sub(pred.LastOrderDate).Hours() / 24)
	verdict, err := s.policy.JudgeRefill(ctx, oracle.RefillContext{
		MedicineName:         med.Name,
		DaysUntilDepletion:   pred.DaysUntilDepletion,
		DaysBetweenOrders:    pred.DaysBetweenOrders,
		AverageQuantity:      pred.AverageQuantity,
		DosageInfo:           med.DosageInfo,
		PrescriptionRequired: med.PrescriptionRequired,
		DaysSinceLastOrder:   daysSinceLast,
	})
	if err != nil {
		// Deterministic fallback when the oracle is unavailable.
		s.log.Warn("refill oracle unavailable, applying fallback rule",
			zap.Int64("medicine_id", med.ID), zap.Error(err))
		verdict = oracle.AlertVerdict{
			Alert:   pred.DaysUntilDepletion <= fallbackAlertDays,
			Urgency: "medium",
			Message: fmt.Sprintf("%s may run out around %s", med.Name, pred.ExpectedDepletionDate.Format("2006-01-02")),
		}
	}
	pred.ShouldAlert = verdict.Alert
	pred.Urgency = verdict.Urgency
	pred.Message = verdict.Message

	if !pred.ShouldAlert {
		return &pred, nil
	}

	record := &domain.ConsumptionRecord{
		ConsumerID:            pair.ConsumerID,
		MedicineID:            pair.MedicineID,
		PurchaseDate:          pred.LastOrderDate,
		Quantity:              int64(math.Round(pred.AverageQuantity)),
		ExpectedDepletionDate: pred.ExpectedDepletionDate,
	}
	if err := s.consumption.Insert(ctx, record); err != nil {
		return nil, err
	}

	consumerID := pair.ConsumerID
	alert := &domain.ProactiveAlert{
		ConsumerID:  &consumerID,
		MedicineID:  pair.MedicineID,
		AlertType:   domain.AlertTypeRefillReminder,
		Message:     pred.Message,
		TriggeredAt: now,
	}
	inserted, err := s.alerts.InsertDedup(ctx, alert)
	if err != nil {
		return nil, err
	}
	if !inserted {
		s.log.Debug("duplicate refill alert suppressed",
			zap.Int64("consumer_id", pair.ConsumerID),
			zap.Int64("medicine_id", pair.MedicineID))
	}
	return &pred, nil
}

// PendingAlerts returns the consumer's unsent alerts within the recency
// window, newest first.
func (s *Service) PendingAlerts(ctx context.Context, consumerID int64) ([]domain.ProactiveAlert, error) {
	return s.alerts.Pending(ctx, consumerID, s.alertWindow)
}

// MarkAlertSent flips an alert to sent; the transition is one-way.
func (s *Service) MarkAlertSent(ctx context.Context, alertID int64) error {
	return s.alerts.MarkSent(ctx, alertID)
}
