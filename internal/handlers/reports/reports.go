// Package reports serves the operational dashboard views, chiefly the
// reconciled per-item progress rows.
package reports

import (
	"database/sql"
	"net/http"

	"procura/internal/handlers/catalog"
	"procura/internal/progress"
	"procura/internal/response"
)

// Handler holds dependencies for report handlers. Read-only.
type Handler struct {
	DB *sql.DB
}

// sumByBaseline runs an aggregation query returning per-baseline-item
// quantity sums.
func sumByBaseline(db *sql.DB, query, processID string) (map[string]float64, error) {
	rows, err := db.Query(query, processID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]float64{}
	for rows.Next() {
		var id string
		var qty float64
		rows.Scan(&id, &qty)
		out[id] = qty
	}
	return out, nil
}

// GetProgress recomputes per-item ordered/received figures from the order
// and delivery ledgers, reconciles them against the summarization step's
// aggregates, and returns the resulting records filtered by the optional
// q and status query parameters.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request, processID string) {
	var exists int
	h.DB.QueryRow("SELECT COUNT(*) FROM processes WHERE id=?", processID).Scan(&exists)
	if exists == 0 {
		response.Err(w, "process not found", 404)
		return
	}

	items, err := catalog.LoadBaseline(h.DB, processID)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}

	ordered, err := sumByBaseline(h.DB, `SELECT ol.baseline_id, COALESCE(SUM(ol.qty),0)
		FROM order_lines ol JOIN purchase_orders po ON ol.order_id = po.id
		WHERE po.process_id=? AND ol.baseline_id IS NOT NULL GROUP BY ol.baseline_id`, processID)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	received, err := sumByBaseline(h.DB, `SELECT dl.baseline_id, COALESCE(SUM(dl.qty),0)
		FROM delivery_lines dl JOIN deliveries d ON dl.delivery_id = d.id
		WHERE d.process_id=? AND dl.baseline_id IS NOT NULL GROUP BY dl.baseline_id`, processID)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}

	supplied := progress.Summarize(items, ordered, received)
	records := progress.Build(items, ordered, received, supplied)
	records = progress.Filter(records, r.URL.Query().Get("q"), r.URL.Query().Get("status"))
	response.JSON(w, records)
}
