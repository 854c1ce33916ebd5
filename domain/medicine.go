package domain

type Medicine struct {
	ID                   int64   `db:"id" json:"id"`
	Name                 string  `db:"name" json:"name"`
	StockQuantity        int64   `db:"stock_quantity" json:"stock_quantity"`
	UnitType             string  `db:"unit_type" json:"unit_type"`
	PrescriptionRequired bool    `db:"prescription_required" json:"prescription_required"`
	DosageInfo           string  `db:"dosage_info" json:"dosage_info"`
	Price                float64 `db:"price" json:"price"`
	Category             string  `db:"category" json:"category"`
}
