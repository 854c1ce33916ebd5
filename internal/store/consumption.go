package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/tushar743-ui/Mediflow-AI-sub000/domain"
)

type Consumption struct {
	db *sqlx.DB
}

// Insert appends one record to the consumption log.
func (s *Consumption) Insert(ctx context.Context, rec *domain.ConsumptionRecord) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO consumption_records (consumer_id, medicine_id, purchase_date, quantity, expected_depletion_date)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ConsumerID, rec.MedicineID, rec.PurchaseDate, rec.Quantity, rec.ExpectedDepletionDate)
	if err != nil {
		return err
	}
	rec.ID, err = res.LastInsertId()
	return err
}

func (s *Consumption) ByConsumer(ctx context.Context, consumerID int64) ([]domain.ConsumptionRecord, error) {
	var records []domain.ConsumptionRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT * FROM consumption_records WHERE consumer_id = ? ORDER BY purchase_date DESC`, consumerID)
	return records, err
}
