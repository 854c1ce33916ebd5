package store

import (
	"context"
	"testing"
	"time"

	"github.com/tushar743-ui/Mediflow-AI-sub000/domain"
)

func TestAlertInsertDedup(t *testing.T) {
	db := newTestDB(t)
	st := New(db)
	ctx := context.Background()

	consumerID := seedConsumer(t, db)
	medA := seedMedicine(t, db, "Metformin", 100, 2.00)

	alert := &domain.ProactiveAlert{
		ConsumerID: &consumerID,
		MedicineID: medA,
		AlertType:  domain.AlertTypeRefillReminder,
		Message:    "running low",
	}
	inserted, err := st.Alerts.InsertDedup(ctx, alert)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !inserted {
		t.Fatal("first insert reported duplicate")
	}

	dup := &domain.ProactiveAlert{
		ConsumerID: &consumerID,
		MedicineID: medA,
		AlertType:  domain.AlertTypeRefillReminder,
		Message:    "running low again",
	}
	inserted, err = st.Alerts.InsertDedup(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Fatal("duplicate unsent alert was inserted")
	}

	var count int
	if err := db.Get(&count, `SELECT COUNT(*) FROM proactive_alerts WHERE sent = 0`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("unsent alerts = %d, want 1", count)
	}

	// Once the alert is sent, a new unsent alert for the same triple may be
	// created.
	if err := st.Alerts.MarkSent(ctx, alert.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	inserted, err = st.Alerts.InsertDedup(ctx, dup)
	if err != nil {
		t.Fatalf("insert after sent: %v", err)
	}
	if !inserted {
		t.Error("insert after previous alert was sent should succeed")
	}
}

func TestAlertPendingWindow(t *testing.T) {
	db := newTestDB(t)
	st := New(db)
	ctx := context.Background()

	consumerID := seedConsumer(t, db)
	medA := seedMedicine(t, db, "Metformin", 100, 2.00)
	medB := seedMedicine(t, db, "Atorvastatin", 100, 4.00)

	fresh := &domain.ProactiveAlert{
		ConsumerID:  &consumerID,
		MedicineID:  medA,
		AlertType:   domain.AlertTypeRefillReminder,
		Message:     "fresh",
		TriggeredAt: time.Now().UTC().Add(-time.Hour),
	}
	stale := &domain.ProactiveAlert{
		ConsumerID:  &consumerID,
		MedicineID:  medB,
		AlertType:   domain.AlertTypeRefillReminder,
		Message:     "stale",
		TriggeredAt: time.Now().UTC().Add(-10 * 24 * time.Hour),
	}
	for _, a := range []*domain.ProactiveAlert{fresh, stale} {
		if _, err := st.Alerts.InsertDedup(ctx, a); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	pending, err := st.Alerts.Pending(ctx, consumerID, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d alerts, want 1", len(pending))
	}
	if pending[0].Message != "fresh" {
		t.Errorf("pending message = %q, want fresh", pending[0].Message)
	}

	if err := st.Alerts.MarkSent(ctx, fresh.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	pending, err = st.Alerts.Pending(ctx, consumerID, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("pending after sent: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d after mark sent, want 0", len(pending))
	}
}

func TestPrescriptionFindValid(t *testing.T) {
	db := newTestDB(t)
	st := New(db)
	ctx := context.Background()
	now := time.Now().UTC()

	consumerID := seedConsumer(t, db)
	medA := seedMedicine(t, db, "Alprazolam", 50, 6.00)

	// No prescription on file.
	rx, err := st.Prescriptions.FindValid(ctx, consumerID, medA, now)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rx != nil {
		t.Fatal("expected no prescription")
	}

	// Unverified prescriptions do not count.
	if err := st.Prescriptions.Insert(ctx, &domain.Prescription{ConsumerID: consumerID, MedicineID: medA, Verified: false}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rx, _ := st.Prescriptions.FindValid(ctx, consumerID, medA, now); rx != nil {
		t.Fatal("unverified prescription treated as valid")
	}

	// Expired prescriptions do not count.
	past := now.Add(-24 * time.Hour)
	if err := st.Prescriptions.Insert(ctx, &domain.Prescription{ConsumerID: consumerID, MedicineID: medA, Verified: true, ExpiryDate: &past}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rx, _ := st.Prescriptions.FindValid(ctx, consumerID, medA, now); rx != nil {
		t.Fatal("expired prescription treated as valid")
	}

	// A verified prescription with no expiry never expires.
	if err := st.Prescriptions.Insert(ctx, &domain.Prescription{ConsumerID: consumerID, MedicineID: medA, Verified: true}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	rx, err = st.Prescriptions.FindValid(ctx, consumerID, medA, now)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rx == nil {
		t.Fatal("verified prescription without expiry should be valid")
	}
}
