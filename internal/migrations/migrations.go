package migrations

import (
	"log"

	"github.com/jmoiron/sqlx"
)

// Run creates the database schema.
func Run(db *sqlx.DB) {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS consumers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS medicines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
			unit_type TEXT NOT NULL DEFAULT 'tablet',
			prescription_required INTEGER NOT NULL DEFAULT 0,
			dosage_info TEXT NOT NULL DEFAULT '',
			price REAL NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS prescriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			consumer_id INTEGER NOT NULL REFERENCES consumers(id),
			medicine_id INTEGER NOT NULL REFERENCES medicines(id),
			verified INTEGER NOT NULL DEFAULT 0,
			expiry_date TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			consumer_id INTEGER NOT NULL REFERENCES consumers(id),
			status TEXT NOT NULL DEFAULT 'pending_payment',
			payment_status TEXT NOT NULL DEFAULT 'pending',
			payment_reference TEXT,
			total_amount REAL NOT NULL,
			webhook_sent INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id INTEGER NOT NULL REFERENCES orders(id),
			medicine_id INTEGER NOT NULL REFERENCES medicines(id),
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			dosage_frequency TEXT NOT NULL DEFAULT '',
			unit_price REAL NOT NULL,
			subtotal REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS consumption_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			consumer_id INTEGER NOT NULL REFERENCES consumers(id),
			medicine_id INTEGER NOT NULL REFERENCES medicines(id),
			purchase_date TIMESTAMP NOT NULL,
			quantity INTEGER NOT NULL,
			expected_depletion_date TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS proactive_alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			consumer_id INTEGER REFERENCES consumers(id),
			medicine_id INTEGER NOT NULL REFERENCES medicines(id),
			alert_type TEXT NOT NULL,
			message TEXT NOT NULL,
			triggered_at TIMESTAMP NOT NULL,
			sent INTEGER NOT NULL DEFAULT 0
		);`,
		// At most one unsent alert per (consumer, medicine, alert_type).
		// System-wide alerts have a NULL consumer and collapse onto 0.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_unsent
			ON proactive_alerts (ifnull(consumer_id, 0), medicine_id, alert_type)
			WHERE sent = 0;`,
		`CREATE INDEX IF NOT EXISTS idx_orders_consumer ON orders (consumer_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
	}
}
