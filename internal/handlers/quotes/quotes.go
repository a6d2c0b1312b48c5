package quotes

import (
	"database/sql"
	"fmt"
	"net/http"

	"procura/internal/audit"
	"procura/internal/database"
	"procura/internal/models"
	"procura/internal/response"
	"procura/internal/websocket"
)

// LoadQuotations returns a process's quotations with nested offer lines, in
// creation order with lines in source row order.
func LoadQuotations(db *sql.DB, processID string) ([]models.Quotation, error) {
	rows, err := db.Query(`SELECT id,process_id,supplier_label,COALESCE(currency,'PEN'),COALESCE(exchange_rate,1),created_at
		FROM quotations WHERE process_id=? ORDER BY created_at, id`, processID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotations := []models.Quotation{}
	for rows.Next() {
		var q models.Quotation
		rows.Scan(&q.ID, &q.ProcessID, &q.SupplierLabel, &q.Currency, &q.ExchangeRate, &q.CreatedAt)
		q.Lines = []models.OfferLine{}
		quotations = append(quotations, q)
	}

	for i := range quotations {
		lineRows, err := db.Query(`SELECT id,quotation_id,baseline_id,COALESCE(description,''),qty,unit_price,total_price,row_order
			FROM offer_lines WHERE quotation_id=? ORDER BY COALESCE(row_order, 1000000), rowid`, quotations[i].ID)
		if err != nil {
			return nil, err
		}
		for lineRows.Next() {
			var l models.OfferLine
			var baselineID sql.NullString
			var qty, unitPrice, totalPrice sql.NullFloat64
			var rowOrder sql.NullInt64
			lineRows.Scan(&l.ID, &l.QuotationID, &baselineID, &l.Description, &qty, &unitPrice, &totalPrice, &rowOrder)
			l.BaselineID = database.SP(baselineID)
			l.Qty = database.FP(qty)
			l.UnitPrice = database.FP(unitPrice)
			l.TotalPrice = database.FP(totalPrice)
			l.RowOrder = database.IP(rowOrder)
			quotations[i].Lines = append(quotations[i].Lines, l)
		}
		lineRows.Close()
	}
	return quotations, nil
}

// ListQuotations returns all quotations of a process with their offer lines.
func (h *Handler) ListQuotations(w http.ResponseWriter, r *http.Request, processID string) {
	quotations, err := LoadQuotations(h.DB, processID)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	response.JSON(w, quotations)
}

// DeleteQuotation deletes a quotation. When dependent orders or deliveries
// exist the delete is rejected with a structured 409 unless force is set;
// with force the dependents cascade away with it.
func (h *Handler) DeleteQuotation(w http.ResponseWriter, r *http.Request, id string) {
	var processID string
	err := h.DB.QueryRow("SELECT process_id FROM quotations WHERE id=?", id).Scan(&processID)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}

	var orderCount, deliveryCount int
	h.DB.QueryRow("SELECT COUNT(*) FROM purchase_orders WHERE quotation_id=?", id).Scan(&orderCount)
	h.DB.QueryRow(`SELECT COUNT(*) FROM deliveries WHERE order_id IN
		(SELECT id FROM purchase_orders WHERE quotation_id=?)`, id).Scan(&deliveryCount)

	force := r.URL.Query().Get("force") == "true"
	if (orderCount > 0 || deliveryCount > 0) && !force {
		response.Conflict(w, "quotation has dependent records; re-invoke with force=true to cascade", map[string]int{
			"orders":     orderCount,
			"deliveries": deliveryCount,
		})
		return
	}

	if _, err := h.DB.Exec("DELETE FROM quotations WHERE id=?", id); err != nil {
		response.Err(w, err.Error(), 500)
		return
	}

	username := h.GetUsername(r)
	summary := "Deleted quotation " + id
	if force && (orderCount > 0 || deliveryCount > 0) {
		summary = fmt.Sprintf("Force-deleted quotation %s with %d orders and %d deliveries", id, orderCount, deliveryCount)
	}
	audit.LogAudit(h.DB, nil, username, audit.ActionDelete, "quotation", id, summary)
	if h.Hub != nil {
		h.Hub.BroadcastChange(websocket.EventQuotationDeleted, processID, "delete", id)
	}
	response.JSON(w, map[string]interface{}{"deleted": id, "orders": orderCount, "deliveries": deliveryCount})
}
