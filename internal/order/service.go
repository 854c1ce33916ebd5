package order

import (
	"context"

	"go.uber.org/zap"

	"github.com/tushar743-ui/Mediflow-AI-sub000/domain"
)

// Lifecycle is the transactional order store the service drives.
type Lifecycle interface {
	Create(ctx context.Context, consumerID int64, items []domain.OrderRequest, totalAmount float64) (*domain.Order, []domain.OrderItem, error)
	Confirm(ctx context.Context, orderID int64, paymentRef string) (*domain.Order, error)
	Cancel(ctx context.Context, orderID int64) (*domain.Order, error)
	Fulfill(ctx context.Context, orderID int64) (*domain.Order, error)
	GetByID(ctx context.Context, orderID int64) (*domain.Order, error)
	ItemsByOrder(ctx context.Context, orderID int64) ([]domain.OrderItem, error)
	MarkWebhookSent(ctx context.Context, orderID int64) error
}

// Notifier delivers the post-confirmation fulfillment notification.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *domain.Order, items []domain.OrderItem) error
}

// Service manages the order state machine: pending_payment -> confirmed ->
// fulfilled, or pending_payment/confirmed -> cancelled.
type Service struct {
	orders   Lifecycle
	notifier Notifier
	log      *zap.Logger
}

func NewService(orders Lifecycle, notifier Notifier, log *zap.Logger) *Service {
	return &Service{orders: orders, notifier: notifier, log: log}
}

// Create atomically inserts the order, its items and the matching stock
// reservations. The caller is expected to have run the safety evaluator.
func (s *Service) Create(ctx context.Context, consumerID int64, items []domain.OrderRequest, totalAmount float64) (*domain.Order, []domain.OrderItem, error) {
	order, created, err := s.orders.Create(ctx, consumerID, items, totalAmount)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("consumer_id", consumerID),
		zap.Int("items", len(created)),
		zap.Float64("total", order.TotalAmount))
	return order, created, nil
}

// ConfirmAfterPayment transitions the order to confirmed and then notifies
// the fulfillment collaborator. The notification runs after the transition
// commits; its failure is logged and never rolls back the confirmation.
func (s *Service) ConfirmAfterPayment(ctx context.Context, orderID int64, paymentRef string) (*domain.Order, error) {
	order, err := s.orders.Confirm(ctx, orderID, paymentRef)
	if err != nil {
		return nil, err
	}
	s.log.Info("order confirmed", zap.Int64("order_id", orderID), zap.String("payment_reference", paymentRef))

	items, err := s.orders.ItemsByOrder(ctx, orderID)
	if err != nil {
		s.log.Warn("unable to load items for notification", zap.Int64("order_id", orderID), zap.Error(err))
		items = nil
	}
	if err := s.notifier.OrderConfirmed(ctx, order, items); err != nil {
		s.log.Warn("fulfillment notification failed", zap.Int64("order_id", orderID), zap.Error(err))
		return order, nil
	}
	if err := s.orders.MarkWebhookSent(ctx, orderID); err != nil {
		s.log.Warn("unable to mark webhook sent", zap.Int64("order_id", orderID), zap.Error(err))
	}
	return order, nil
}

// Cancel restores the order's reserved stock and marks it cancelled. Safe to
// repeat: a second cancel is a no-op success.
func (s *Service) Cancel(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := s.orders.Cancel(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.log.Info("order cancelled", zap.Int64("order_id", orderID))
	return order, nil
}

// Fulfill completes a confirmed order.
func (s *Service) Fulfill(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := s.orders.Fulfill(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.log.Info("order fulfilled", zap.Int64("order_id", orderID))
	return order, nil
}

func (s *Service) Get(ctx context.Context, orderID int64) (*domain.Order, []domain.OrderItem, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil || order == nil {
		return order, nil, err
	}
	items, err := s.orders.ItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}
