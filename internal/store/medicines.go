package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/tushar743-ui/Mediflow-AI-sub000/domain"
)

type Medicines struct {
	db *sqlx.DB
}

func (s *Medicines) GetByID(ctx context.Context, id int64) (*domain.Medicine, error) {
	var med domain.Medicine
	err := s.db.GetContext(ctx, &med, `SELECT * FROM medicines WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &med, nil
}

func (s *Medicines) GetByName(ctx context.Context, name string) (*domain.Medicine, error) {
	var med domain.Medicine
	err := s.db.GetContext(ctx, &med, `SELECT * FROM medicines WHERE name = ? COLLATE NOCASE`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &med, nil
}

func (s *Medicines) Search(ctx context.Context, query string, limit int) ([]domain.Medicine, error) {
	if limit <= 0 {
		limit = 25
	}
	var medicines []domain.Medicine
	if query == "" {
		err := s.db.SelectContext(ctx, &medicines, `SELECT * FROM medicines ORDER BY name LIMIT ?`, limit)
		return medicines, err
	}
	like := "%" + query + "%"
	err := s.db.SelectContext(ctx, &medicines,
		`SELECT * FROM medicines WHERE name LIKE ? OR category LIKE ? ORDER BY name LIMIT ?`, like, like, limit)
	return medicines, err
}
