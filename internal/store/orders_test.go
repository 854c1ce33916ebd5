package store

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/tushar743-ui/Mediflow-AI-sub000/domain"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/apperr"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/database"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/migrations"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db := database.Connect(":memory:")
	migrations.Run(db)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedConsumer(t *testing.T, db *sqlx.DB) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO consumers (username, email, password) VALUES ('test', 'test@example.com', 'x')`)
	if err != nil {
		t.Fatalf("seed consumer: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func seedMedicine(t *testing.T, db *sqlx.DB, name string, stock int64, price float64) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO medicines (name, stock_quantity, price) VALUES (?, ?, ?)`, name, stock, price)
	if err != nil {
		t.Fatalf("seed medicine %s: %v", name, err)
	}
	id, _ := res.LastInsertId()
	return id
}

func stockOf(t *testing.T, db *sqlx.DB, medicineID int64) int64 {
	t.Helper()
	var stock int64
	if err := db.Get(&stock, `SELECT stock_quantity FROM medicines WHERE id = ?`, medicineID); err != nil {
		t.Fatalf("read stock: %v", err)
	}
	return stock
}

func TestCreateOrderDecrementsStockAndTotals(t *testing.T) {
	db := newTestDB(t)
	st := New(db)
	ctx := context.Background()

	consumerID := seedConsumer(t, db)
	medA := seedMedicine(t, db, "Paracetamol", 10, 5.00)
	medB := seedMedicine(t, db, "Cetirizine", 8, 3.00)

	order, items, err := st.Orders.Create(ctx, consumerID, []domain.OrderRequest{
		{MedicineID: medA, Quantity: 2, UnitPrice: 5.00},
		{MedicineID: medB, Quantity: 1, UnitPrice: 3.00},
	}, 13.00)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.TotalAmount != 13.00 {
		t.Errorf("total = %.2f, want 13.00", order.TotalAmount)
	}
	if order.Status != domain.OrderStatusPendingPayment {
		t.Errorf("status = %q, want pending_payment", order.Status)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Subtotal != 10.00 || items[1].Subtotal != 3.00 {
		t.Errorf("subtotals = %.2f, %.2f, want 10.00, 3.00", items[0].Subtotal, items[1].Subtotal)
	}
	if got := stockOf(t, db, medA); got != 8 {
		t.Errorf("medicine A stock = %d, want 8", got)
	}
	if got := stockOf(t, db, medB); got != 7 {
		t.Errorf("medicine B stock = %d, want 7", got)
	}
}

func TestCreateOrderRollsBackOnFailure(t *testing.T) {
	db := newTestDB(t)
	st := New(db)
	ctx := context.Background()

	consumerID := seedConsumer(t, db)
	medA := seedMedicine(t, db, "Paracetamol", 10, 5.00)

	// Second line references a medicine that does not exist; the whole
	// transaction must roll back, leaving A's stock unchanged.
	_, _, err := st.Orders.Create(ctx, consumerID, []domain.OrderRequest{
		{MedicineID: medA, Quantity: 2, UnitPrice: 5.00},
		{MedicineID: 9999, Quantity: 1, UnitPrice: 3.00},
	}, 0)
	if err == nil {
		t.Fatal("expected error for unknown medicine")
	}
	if got := stockOf(t, db, medA); got != 10 {
		t.Errorf("medicine A stock = %d after rollback, want 10", got)
	}

	var count int
	if err := db.Get(&count, `SELECT COUNT(*) FROM orders`); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Errorf("orders = %d after rollback, want 0", count)
	}
}

func TestCreateOrderRejectsMismatchedTotal(t *testing.T) {
	db := newTestDB(t)
	st := New(db)

	consumerID := seedConsumer(t, db)
	medA := seedMedicine(t, db, "Paracetamol", 10, 5.00)

	_, _, err := st.Orders.Create(context.Background(), consumerID, []domain.OrderRequest{
		{MedicineID: medA, Quantity: 2, UnitPrice: 5.00},
	}, 99.00)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCancelOrderRestoresStockOnce(t *testing.T) {
	db := newTestDB(t)
	st := New(db)
	ctx := context.Background()

	consumerID := seedConsumer(t, db)
	medA := seedMedicine(t, db, "Paracetamol", 10, 5.00)

	order, _, err := st.Orders.Create(ctx, consumerID, []domain.OrderRequest{
		{MedicineID: medA, Quantity: 4, UnitPrice: 5.00},
	}, 0)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if got := stockOf(t, db, medA); got != 6 {
		t.Fatalf("stock after create = %d, want 6", got)
	}

	cancelled, err := st.Orders.Cancel(ctx, order.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}
	if got := stockOf(t, db, medA); got != 10 {
		t.Errorf("stock after cancel = %d, want 10", got)
	}

	// Second cancel is a no-op success, never a double credit.
	again, err := st.Orders.Cancel(ctx, order.ID)
	if err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
	if again.Status != domain.OrderStatusCancelled {
		t.Errorf("status = %q after repeat cancel, want cancelled", again.Status)
	}
	if got := stockOf(t, db, medA); got != 10 {
		t.Errorf("stock after repeat cancel = %d, want 10", got)
	}
}

func TestConfirmThenCancelConflict(t *testing.T) {
	db := newTestDB(t)
	st := New(db)
	ctx := context.Background()

	consumerID := seedConsumer(t, db)
	medA := seedMedicine(t, db, "Paracetamol", 10, 5.00)

	order, _, err := st.Orders.Create(ctx, consumerID, []domain.OrderRequest{
		{MedicineID: medA, Quantity: 2, UnitPrice: 5.00},
	}, 0)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	confirmed, err := st.Orders.Confirm(ctx, order.ID, "pay_123")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != domain.OrderStatusConfirmed {
		t.Errorf("status = %q, want confirmed", confirmed.Status)
	}
	if confirmed.PaymentReference == nil || *confirmed.PaymentReference != "pay_123" {
		t.Errorf("payment reference not recorded")
	}

	// A confirmed order can still be cancelled; stock comes back.
	if _, err := st.Orders.Cancel(ctx, order.ID); err != nil {
		t.Fatalf("cancel confirmed order: %v", err)
	}
	if got := stockOf(t, db, medA); got != 10 {
		t.Errorf("stock = %d after cancelling confirmed order, want 10", got)
	}

	// But confirming a cancelled order is a conflict.
	if _, err := st.Orders.Confirm(ctx, order.ID, "pay_456"); !apperr.IsKind(err, apperr.KindStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestDoubleConfirmConflict(t *testing.T) {
	db := newTestDB(t)
	st := New(db)
	ctx := context.Background()

	consumerID := seedConsumer(t, db)
	medA := seedMedicine(t, db, "Paracetamol", 10, 5.00)

	order, _, err := st.Orders.Create(ctx, consumerID, []domain.OrderRequest{
		{MedicineID: medA, Quantity: 1, UnitPrice: 5.00},
	}, 0)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := st.Orders.Confirm(ctx, order.ID, "pay_1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := st.Orders.Confirm(ctx, order.ID, "pay_2"); !apperr.IsKind(err, apperr.KindStateConflict) {
		t.Fatalf("expected state conflict on double confirm, got %v", err)
	}
}

func TestFulfillRequiresConfirmed(t *testing.T) {
	db := newTestDB(t)
	st := New(db)
	ctx := context.Background()

	consumerID := seedConsumer(t, db)
	medA := seedMedicine(t, db, "Paracetamol", 10, 5.00)

	order, _, err := st.Orders.Create(ctx, consumerID, []domain.OrderRequest{
		{MedicineID: medA, Quantity: 1, UnitPrice: 5.00},
	}, 0)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if _, err := st.Orders.Fulfill(ctx, order.ID); !apperr.IsKind(err, apperr.KindStateConflict) {
		t.Fatalf("expected conflict fulfilling pending order, got %v", err)
	}
	if _, err := st.Orders.Confirm(ctx, order.ID, "pay_1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	fulfilled, err := st.Orders.Fulfill(ctx, order.ID)
	if err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if fulfilled.Status != domain.OrderStatusFulfilled {
		t.Errorf("status = %q, want fulfilled", fulfilled.Status)
	}
}

func TestRecentQuantitiesExcludesCancelled(t *testing.T) {
	db := newTestDB(t)
	st := New(db)
	ctx := context.Background()

	consumerID := seedConsumer(t, db)
	medA := seedMedicine(t, db, "Paracetamol", 100, 5.00)

	if _, _, err := st.Orders.Create(ctx, consumerID, []domain.OrderRequest{
		{MedicineID: medA, Quantity: 5, UnitPrice: 5.00},
	}, 0); err != nil {
		t.Fatalf("create order: %v", err)
	}

	dropped, _, err := st.Orders.Create(ctx, consumerID, []domain.OrderRequest{
		{MedicineID: medA, Quantity: 50, UnitPrice: 5.00},
	}, 0)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := st.Orders.Cancel(ctx, dropped.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	quantities, err := st.Orders.RecentQuantities(ctx, consumerID, medA, 5)
	if err != nil {
		t.Fatalf("recent quantities: %v", err)
	}
	if len(quantities) != 1 || quantities[0] != 5 {
		t.Errorf("quantities = %v, want [5]", quantities)
	}
}
