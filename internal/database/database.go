package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Open opens the SQLite database at path and initializes the schema.
// Foreign keys are enabled through the DSN so every connection the pool
// opens enforces them, not just the first.
func Open(path string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", path+sep+"_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)")
	if err != nil {
		return nil, err
	}
	if err := InitSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

// InitSchema creates all tables if they don't exist.
func InitSchema(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS processes (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			currency TEXT DEFAULT 'PEN',
			igv_rate REAL DEFAULT 0.18 CHECK(igv_rate >= 0 AND igv_rate <= 1),
			order_suffix TEXT DEFAULT '',
			next_order_seq INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS baseline_items (
			id TEXT PRIMARY KEY,
			process_id TEXT NOT NULL,
			item_code TEXT DEFAULT '',
			description TEXT NOT NULL,
			unit TEXT DEFAULT '',
			sheet_name TEXT DEFAULT '',
			section_path TEXT DEFAULT '[]',
			required_qty REAL NOT NULL DEFAULT 0 CHECK(required_qty >= 0),
			ref_unit_price REAL DEFAULT 0,
			ref_total_price REAL DEFAULT 0,
			FOREIGN KEY (process_id) REFERENCES processes(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS quotations (
			id TEXT PRIMARY KEY,
			process_id TEXT NOT NULL,
			supplier_label TEXT NOT NULL,
			currency TEXT DEFAULT 'PEN',
			exchange_rate REAL DEFAULT 1 CHECK(exchange_rate > 0),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (process_id) REFERENCES processes(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS offer_lines (
			id TEXT PRIMARY KEY,
			quotation_id TEXT NOT NULL,
			baseline_id TEXT,
			description TEXT DEFAULT '',
			qty REAL,
			unit_price REAL,
			total_price REAL,
			row_order INTEGER,
			FOREIGN KEY (quotation_id) REFERENCES quotations(id) ON DELETE CASCADE,
			FOREIGN KEY (baseline_id) REFERENCES baseline_items(id)
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_orders (
			id TEXT PRIMARY KEY,
			process_id TEXT NOT NULL,
			quotation_id TEXT,
			supplier_name TEXT DEFAULT '',
			order_number TEXT NOT NULL,
			issue_date TEXT DEFAULT '',
			currency TEXT DEFAULT 'PEN',
			subtotal REAL DEFAULT 0,
			discount_rate REAL DEFAULT 0 CHECK(discount_rate >= 0 AND discount_rate <= 1),
			discount REAL DEFAULT 0,
			net_subtotal REAL DEFAULT 0,
			igv REAL DEFAULT 0,
			total REAL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(process_id, order_number),
			FOREIGN KEY (process_id) REFERENCES processes(id) ON DELETE CASCADE,
			FOREIGN KEY (quotation_id) REFERENCES quotations(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS order_lines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id TEXT NOT NULL,
			baseline_id TEXT,
			description TEXT DEFAULT '',
			unit TEXT DEFAULT '',
			qty REAL NOT NULL CHECK(qty > 0),
			unit_price REAL DEFAULT 0 CHECK(unit_price >= 0),
			row_order INTEGER,
			FOREIGN KEY (order_id) REFERENCES purchase_orders(id) ON DELETE CASCADE,
			FOREIGN KEY (baseline_id) REFERENCES baseline_items(id)
		)`,
		`CREATE TABLE IF NOT EXISTS deliveries (
			id TEXT PRIMARY KEY,
			process_id TEXT NOT NULL,
			order_id TEXT,
			supplier_name TEXT DEFAULT '',
			guide_number TEXT,
			date TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (process_id) REFERENCES processes(id) ON DELETE CASCADE,
			FOREIGN KEY (order_id) REFERENCES purchase_orders(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS delivery_lines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			delivery_id TEXT NOT NULL,
			baseline_id TEXT,
			description TEXT DEFAULT '',
			unit TEXT DEFAULT '',
			qty REAL NOT NULL CHECK(qty >= 0),
			FOREIGN KEY (delivery_id) REFERENCES deliveries(id) ON DELETE CASCADE,
			FOREIGN KEY (baseline_id) REFERENCES baseline_items(id)
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT DEFAULT 'system',
			action TEXT NOT NULL,
			module TEXT NOT NULL,
			record_id TEXT NOT NULL,
			summary TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// SP converts a NullString to a *string.
func SP(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

// FP converts a NullFloat64 to a *float64.
func FP(nf sql.NullFloat64) *float64 {
	if nf.Valid {
		return &nf.Float64
	}
	return nil
}

// IP converts a NullInt64 to a *int.
func IP(ni sql.NullInt64) *int {
	if ni.Valid {
		v := int(ni.Int64)
		return &v
	}
	return nil
}

// NS converts a *string to a NullString for inserts.
func NS(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// NF converts a *float64 to a NullFloat64 for inserts.
func NF(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

// NI converts a *int to a NullInt64 for inserts.
func NI(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

// EncodeSectionPath serializes a section path for storage.
func EncodeSectionPath(path []string) string {
	if len(path) == 0 {
		return "[]"
	}
	b, err := json.Marshal(path)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// DecodeSectionPath deserializes a stored section path.
func DecodeSectionPath(s string) []string {
	var path []string
	if err := json.Unmarshal([]byte(s), &path); err != nil {
		return []string{}
	}
	if path == nil {
		return []string{}
	}
	return path
}

// DBTX is the subset of sql.DB and sql.Tx the sequence helpers run on, so the
// advance can join the transaction that inserts the order.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// NextOrderSeq returns the next order sequence number for a process without
// advancing it.
func NextOrderSeq(db DBTX, processID string) (int, error) {
	var seq int
	err := db.QueryRow("SELECT next_order_seq FROM processes WHERE id=?", processID).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// AdvanceOrderSeq increments the per-process order sequence and returns the
// sequence value that was consumed.
func AdvanceOrderSeq(db DBTX, processID string) (int, error) {
	seq, err := NextOrderSeq(db, processID)
	if err != nil {
		return 0, err
	}
	_, err = db.Exec("UPDATE processes SET next_order_seq = next_order_seq + 1 WHERE id=?", processID)
	if err != nil {
		return 0, err
	}
	return seq, nil
}
