// Package testutil provides shared helpers for handler and engine tests:
// an in-memory database with the full schema, fixture builders for the
// common entities, and envelope decoding.
package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"procura/internal/database"
	"procura/internal/models"
)

// SetupTestDB creates an in-memory SQLite database with foreign keys on and
// the full schema applied. The pool is pinned to a single connection: every
// in-memory connection is its own database, and the foreign-key pragma is
// per-connection.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := database.InitSchema(db); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// CreateTestProcess inserts a process with the standard defaults and returns
// its id.
func CreateTestProcess(t *testing.T, db *sql.DB, name string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec("INSERT INTO processes (id,name,currency,igv_rate,order_suffix,next_order_seq) VALUES (?,?,?,?,?,?)",
		id, name, "PEN", 0.18, "OBRA", 1)
	if err != nil {
		t.Fatalf("Failed to create test process: %v", err)
	}
	return id
}

// CreateTestItem inserts a baseline item and returns its id.
func CreateTestItem(t *testing.T, db *sql.DB, processID, code, desc, unit string, qty, unitPrice float64) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO baseline_items
		(id,process_id,item_code,description,unit,sheet_name,section_path,required_qty,ref_unit_price,ref_total_price)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		id, processID, code, desc, unit, "Sheet1", "[]", qty, unitPrice, qty*unitPrice)
	if err != nil {
		t.Fatalf("Failed to create test item: %v", err)
	}
	return id
}

// CreateTestQuotation inserts a quotation header and returns its id.
func CreateTestQuotation(t *testing.T, db *sql.DB, processID, supplier, currency string, rate float64) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec("INSERT INTO quotations (id,process_id,supplier_label,currency,exchange_rate) VALUES (?,?,?,?,?)",
		id, processID, supplier, currency, rate)
	if err != nil {
		t.Fatalf("Failed to create test quotation: %v", err)
	}
	return id
}

// CreateTestOfferLine inserts an offer line matched to a baseline item.
func CreateTestOfferLine(t *testing.T, db *sql.DB, quotationID, baselineID string, qty, unitPrice float64, rowOrder int) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO offer_lines
		(id,quotation_id,baseline_id,description,qty,unit_price,total_price,row_order)
		VALUES (?,?,?,?,?,?,?,?)`,
		id, quotationID, baselineID, "offer", qty, unitPrice, qty*unitPrice, rowOrder)
	if err != nil {
		t.Fatalf("Failed to create test offer line: %v", err)
	}
	return id
}

// JSONRequest builds a request with a JSON-encoded body.
func JSONRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertStatus checks that the HTTP status code matches expected.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// DecodeEnvelope decodes an API response envelope and extracts the data.
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode API envelope: %v", err)
	}
	dataBytes, _ := json.Marshal(resp.Data)
	if err := json.Unmarshal(dataBytes, v); err != nil {
		t.Fatalf("Failed to decode data from envelope: %v", err)
	}
}
