package seed

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// LoadMedicines ingests the CSV catalog into the medicines table, ignoring
// duplicates. Columns: name, stock_quantity, unit_type, prescription_required,
// dosage_info, price, category.
func LoadMedicines(db *sqlx.DB, csvPath string) {
	file, err := os.Open(csvPath)
	if err != nil {
		log.Printf("unable to load medicine catalog %s: %v", csvPath, err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Printf("unable to read medicine header: %v", err)
		return
	}

	tx, err := db.Beginx()
	if err != nil {
		log.Printf("unable to start medicine transaction: %v", err)
		return
	}
	stmt, err := tx.Preparex(`INSERT OR IGNORE INTO medicines (name, stock_quantity, unit_type, prescription_required, dosage_info, price, category) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		log.Printf("unable to prepare medicine insert: %v", err)
		_ = tx.Rollback()
		return
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("unable to read medicine row: %v", err)
			continue
		}
		if len(record) < 7 {
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		stock, _ := strconv.ParseInt(strings.TrimSpace(record[1]), 10, 64)
		unitType := strings.TrimSpace(record[2])
		rxRequired := strings.EqualFold(strings.TrimSpace(record[3]), "true") || strings.TrimSpace(record[3]) == "1"
		dosage := strings.TrimSpace(record[4])
		price, _ := strconv.ParseFloat(strings.TrimSpace(record[5]), 64)
		category := strings.TrimSpace(record[6])

		if _, err := stmt.Exec(name, stock, unitType, rxRequired, dosage, price, category); err != nil {
			log.Printf("unable to insert medicine %s: %v", name, err)
		} else {
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("unable to commit medicine seed: %v", err)
	} else {
		log.Printf("seeded medicine catalog with %d rows", rows)
	}
}
