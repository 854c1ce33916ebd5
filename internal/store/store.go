package store

import "github.com/jmoiron/sqlx"

// Store bundles the per-entity repositories over one database handle.
type Store struct {
	Medicines     *Medicines
	Prescriptions *Prescriptions
	Orders        *Orders
	Consumption   *Consumption
	Alerts        *Alerts
}

func New(db *sqlx.DB) *Store {
	return &Store{
		Medicines:     &Medicines{db: db},
		Prescriptions: &Prescriptions{db: db},
		Orders:        &Orders{db: db},
		Consumption:   &Consumption{db: db},
		Alerts:        &Alerts{db: db},
	}
}
