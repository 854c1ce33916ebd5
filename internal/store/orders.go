package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tushar743-ui/Mediflow-AI-sub000/domain"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/apperr"
)

type Orders struct {
	db *sqlx.DB
}

// PastOrder is one fulfilled purchase of a medicine, used by the forecaster.
type PastOrder struct {
	Date     time.Time `db:"created_at"`
	Quantity int64     `db:"quantity"`
}

// ConsumerMedicine identifies a (consumer, medicine) pair with repeat
// fulfilled orders, the unit of work for a forecast batch.
type ConsumerMedicine struct {
	ConsumerID int64 `db:"consumer_id"`
	MedicineID int64 `db:"medicine_id"`
}

// Create inserts the order, its items and the matching stock decrements as a
// single transaction. Stock is reserved here, before payment. Any failure
// rolls back every write of this call.
func (s *Orders) Create(ctx context.Context, consumerID int64, items []domain.OrderRequest, totalAmount float64) (*domain.Order, []domain.OrderItem, error) {
	if len(items) == 0 {
		return nil, nil, apperr.Validation("order has no items")
	}
	var computed float64
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, nil, apperr.Validation("item quantity must be positive")
		}
		computed += float64(item.Quantity) * item.UnitPrice
	}
	if totalAmount <= 0 {
		totalAmount = computed
	} else if math.Abs(totalAmount-computed) > 0.01 {
		return nil, nil, apperr.Validation("total_amount %.2f does not match item subtotals %.2f", totalAmount, computed)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, apperr.Persistence("unable to start order transaction", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (consumer_id, status, payment_status, total_amount, webhook_sent, created_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		consumerID, domain.OrderStatusPendingPayment, domain.PaymentStatusPending, totalAmount, now)
	if err != nil {
		return nil, nil, apperr.Persistence("unable to create order", err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return nil, nil, apperr.Persistence("unable to read order id", err)
	}

	created := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		// Reserve stock with a conditional decrement so the non-negative
		// invariant holds without a separate read.
		upd, err := tx.ExecContext(ctx,
			`UPDATE medicines SET stock_quantity = stock_quantity - ? WHERE id = ? AND stock_quantity >= ?`,
			item.Quantity, item.MedicineID, item.Quantity)
		if err != nil {
			return nil, nil, apperr.Persistence("unable to reserve stock", err)
		}
		if n, _ := upd.RowsAffected(); n == 0 {
			return nil, nil, apperr.Validation("medicine %d missing or short on stock", item.MedicineID)
		}

		subtotal := float64(item.Quantity) * item.UnitPrice
		ins, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, medicine_id, quantity, dosage_frequency, unit_price, subtotal)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			orderID, item.MedicineID, item.Quantity, item.DosageFrequency, item.UnitPrice, subtotal)
		if err != nil {
			return nil, nil, apperr.Persistence("unable to add order item", err)
		}
		itemID, err := ins.LastInsertId()
		if err != nil {
			return nil, nil, apperr.Persistence("unable to read item id", err)
		}
		created = append(created, domain.OrderItem{
			ID:              itemID,
			OrderID:         orderID,
			MedicineID:      item.MedicineID,
			Quantity:        item.Quantity,
			DosageFrequency: item.DosageFrequency,
			UnitPrice:       item.UnitPrice,
			Subtotal:        subtotal,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, apperr.Persistence("unable to finalize order", err)
	}

	order := &domain.Order{
		ID:            orderID,
		ConsumerID:    consumerID,
		Status:        domain.OrderStatusPendingPayment,
		PaymentStatus: domain.PaymentStatusPending,
		TotalAmount:   totalAmount,
		CreatedAt:     now,
	}
	return order, created, nil
}

// Confirm transitions pending_payment -> confirmed and records the payment
// reference. The conditional update is the only writer, so concurrent
// confirm/cancel calls on one order have at most one winner.
func (s *Orders) Confirm(ctx context.Context, orderID int64, paymentRef string) (*domain.Order, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, payment_status = ?, payment_reference = ?
		  WHERE id = ? AND status = ?`,
		domain.OrderStatusConfirmed, domain.PaymentStatusPaid, paymentRef,
		orderID, domain.OrderStatusPendingPayment)
	if err != nil {
		return nil, apperr.Persistence("unable to confirm order", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, apperr.Persistence("unable to confirm order", err)
	}
	if n == 0 {
		order, err := s.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, apperr.NotFound("order %d not found", orderID)
		}
		return nil, apperr.StateConflict("order %d is %s, cannot confirm", orderID, order.Status)
	}
	return s.GetByID(ctx, orderID)
}

// Cancel restores each item's reserved stock and transitions the order to
// cancelled in one transaction. The status guard makes it idempotent: a
// repeated cancel is a no-op success and never double-restores stock.
func (s *Orders) Cancel(ctx context.Context, orderID int64) (*domain.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Persistence("unable to start cancel transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?,
		        payment_status = CASE WHEN payment_status = ? THEN ? ELSE payment_status END
		  WHERE id = ? AND status IN (?, ?)`,
		domain.OrderStatusCancelled, domain.PaymentStatusPaid, domain.PaymentStatusVoided,
		orderID, domain.OrderStatusPendingPayment, domain.OrderStatusConfirmed)
	if err != nil {
		return nil, apperr.Persistence("unable to cancel order", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, apperr.Persistence("unable to cancel order", err)
	}
	if n == 0 {
		// Release the transaction's connection before reading through the
		// pool; with a single connection the read would otherwise block.
		_ = tx.Rollback()
		order, err := s.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, apperr.NotFound("order %d not found", orderID)
		}
		if order.Status == domain.OrderStatusCancelled {
			// Repeated identical cancel is defined as a no-op success.
			return order, nil
		}
		return nil, apperr.StateConflict("order %d is %s, cannot cancel", orderID, order.Status)
	}

	var items []domain.OrderItem
	if err := tx.SelectContext(ctx, &items, `SELECT * FROM order_items WHERE order_id = ?`, orderID); err != nil {
		return nil, apperr.Persistence("unable to load order items", err)
	}
	for _, item := range items {
		if _, err := tx.ExecContext(ctx,
			`UPDATE medicines SET stock_quantity = stock_quantity + ? WHERE id = ?`,
			item.Quantity, item.MedicineID); err != nil {
			return nil, apperr.Persistence("unable to restore stock", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Persistence("unable to finalize cancellation", err)
	}
	return s.GetByID(ctx, orderID)
}

// Fulfill transitions confirmed -> fulfilled.
func (s *Orders) Fulfill(ctx context.Context, orderID int64) (*domain.Order, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE id = ? AND status = ?`,
		domain.OrderStatusFulfilled, orderID, domain.OrderStatusConfirmed)
	if err != nil {
		return nil, apperr.Persistence("unable to fulfill order", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		order, err := s.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, apperr.NotFound("order %d not found", orderID)
		}
		return nil, apperr.StateConflict("order %d is %s, cannot fulfill", orderID, order.Status)
	}
	return s.GetByID(ctx, orderID)
}

func (s *Orders) GetByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	var order domain.Order
	err := s.db.GetContext(ctx, &order, `SELECT * FROM orders WHERE id = ?`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("unable to load order", err)
	}
	return &order, nil
}

func (s *Orders) ItemsByOrder(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := s.db.SelectContext(ctx, &items, `SELECT * FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	return items, err
}

// RecentQuantities returns quantities of the consumer's most recent
// non-cancelled orders of a medicine, newest first.
func (s *Orders) RecentQuantities(ctx context.Context, consumerID, medicineID int64, limit int) ([]int64, error) {
	var quantities []int64
	err := s.db.SelectContext(ctx, &quantities,
		`SELECT oi.quantity
		   FROM order_items oi
		   JOIN orders o ON o.id = oi.order_id
		  WHERE o.consumer_id = ? AND oi.medicine_id = ? AND o.status != ?
		  ORDER BY o.created_at DESC LIMIT ?`,
		consumerID, medicineID, domain.OrderStatusCancelled, limit)
	return quantities, err
}

// FulfilledHistory returns the consumer's fulfilled purchases of a medicine,
// newest first.
func (s *Orders) FulfilledHistory(ctx context.Context, consumerID, medicineID int64) ([]PastOrder, error) {
	var history []PastOrder
	err := s.db.SelectContext(ctx, &history,
		`SELECT o.created_at, oi.quantity
		   FROM order_items oi
		   JOIN orders o ON o.id = oi.order_id
		  WHERE o.consumer_id = ? AND oi.medicine_id = ? AND o.status = ?
		  ORDER BY o.created_at DESC`,
		consumerID, medicineID, domain.OrderStatusFulfilled)
	return history, err
}

// ConsumersWithRepeatOrders lists (consumer, medicine) pairs with at least
// two fulfilled orders, the candidates for a forecast batch.
func (s *Orders) ConsumersWithRepeatOrders(ctx context.Context) ([]ConsumerMedicine, error) {
	var pairs []ConsumerMedicine
	err := s.db.SelectContext(ctx, &pairs,
		`SELECT o.consumer_id, oi.medicine_id
		   FROM order_items oi
		   JOIN orders o ON o.id = oi.order_id
		  WHERE o.status = ?
		  GROUP BY o.consumer_id, oi.medicine_id
		 HAVING COUNT(*) >= 2`,
		domain.OrderStatusFulfilled)
	return pairs, err
}

func (s *Orders) MarkWebhookSent(ctx context.Context, orderID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE orders SET webhook_sent = 1 WHERE id = ?`, orderID)
	return err
}
