package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tushar743-ui/Mediflow-AI-sub000/domain"
)

type Prescriptions struct {
	db *sqlx.DB
}

// FindValid returns a verified prescription for the consumer and medicine
// whose expiry is either unset (never expires) or in the future.
func (s *Prescriptions) FindValid(ctx context.Context, consumerID, medicineID int64, now time.Time) (*domain.Prescription, error) {
	var rx domain.Prescription
	err := s.db.GetContext(ctx, &rx,
		`SELECT id, consumer_id, medicine_id, verified, expiry_date
		   FROM prescriptions
		  WHERE consumer_id = ? AND medicine_id = ? AND verified = 1
		    AND (expiry_date IS NULL OR expiry_date > ?)
		  ORDER BY id DESC LIMIT 1`,
		consumerID, medicineID, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rx, nil
}

func (s *Prescriptions) Insert(ctx context.Context, rx *domain.Prescription) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO prescriptions (consumer_id, medicine_id, verified, expiry_date) VALUES (?, ?, ?, ?)`,
		rx.ConsumerID, rx.MedicineID, rx.Verified, rx.ExpiryDate)
	if err != nil {
		return err
	}
	rx.ID, err = res.LastInsertId()
	return err
}
