package procurement

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"procura/internal/audit"
	"procura/internal/database"
	"procura/internal/models"
	"procura/internal/orders"
	"procura/internal/response"
	"procura/internal/websocket"
)

// LoadOrder returns one purchase order with its lines in supplier row order.
func LoadOrder(db *sql.DB, id string) (models.PurchaseOrder, error) {
	var o models.PurchaseOrder
	var quotationID sql.NullString
	err := db.QueryRow(`SELECT id,process_id,quotation_id,COALESCE(supplier_name,''),order_number,
		COALESCE(issue_date,''),COALESCE(currency,'PEN'),subtotal,discount_rate,discount,net_subtotal,igv,total,created_at
		FROM purchase_orders WHERE id=?`, id).
		Scan(&o.ID, &o.ProcessID, &quotationID, &o.SupplierName, &o.OrderNumber,
			&o.IssueDate, &o.Currency, &o.Subtotal, &o.DiscountRate, &o.Discount, &o.NetSubtotal, &o.IGV, &o.Total, &o.CreatedAt)
	if err != nil {
		return o, err
	}
	o.QuotationID = database.SP(quotationID)
	o.Lines = []models.OrderLine{}

	rows, err := db.Query(`SELECT id,order_id,baseline_id,COALESCE(description,''),COALESCE(unit,''),qty,unit_price,row_order
		FROM order_lines WHERE order_id=? ORDER BY COALESCE(row_order, 1000000), id`, id)
	if err != nil {
		return o, err
	}
	defer rows.Close()
	for rows.Next() {
		var l models.OrderLine
		var baselineID sql.NullString
		var rowOrder sql.NullInt64
		rows.Scan(&l.ID, &l.OrderID, &baselineID, &l.Description, &l.Unit, &l.Qty, &l.UnitPrice, &rowOrder)
		l.BaselineID = database.SP(baselineID)
		l.RowOrder = database.IP(rowOrder)
		o.Lines = append(o.Lines, l)
	}
	return o, nil
}

// ListOrders returns a process's purchase orders with lines, plus the next
// sequence value and the order number it would produce.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request, processID string) {
	info, err := h.processInfo(processID)
	if err != nil {
		response.Err(w, "process not found", 404)
		return
	}
	seq, err := database.NextOrderSeq(h.DB, processID)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}

	rows, err := h.DB.Query("SELECT id FROM purchase_orders WHERE process_id=? ORDER BY created_at, order_number", processID)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		rows.Scan(&id)
		ids = append(ids, id)
	}

	list := []models.PurchaseOrder{}
	for _, id := range ids {
		o, err := LoadOrder(h.DB, id)
		if err != nil {
			response.Err(w, err.Error(), 500)
			return
		}
		list = append(list, o)
	}

	response.JSON(w, map[string]interface{}{
		"orders":            list,
		"next_sequence":     seq,
		"next_order_number": orders.FormatOrderNumber(seq, info.OrderSuffix),
	})
}

// SaveOrder persists a new purchase order from a draft. The per-process
// sequence advances only when the automatic number was consumed; an
// operator-entered number leaves the sequence alone. A duplicate order
// number is a 409 and the caller's draft stays intact for retry.
func (h *Handler) SaveOrder(w http.ResponseWriter, r *http.Request, processID string) {
	info, err := h.processInfo(processID)
	if err != nil {
		response.Err(w, "process not found", 404)
		return
	}

	var draft orders.Draft
	if err := response.DecodeBody(r, &draft); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}
	draft.ProcessID = processID

	if ve := orders.Validate(draft); ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	seq, err := database.NextOrderSeq(h.DB, processID)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	autoNumbered := false
	if draft.OrderNumber == "" && !draft.ManualNumber {
		draft = orders.Renumber(draft, seq, info.OrderSuffix)
		autoNumbered = true
	}

	totals := orders.ComputeTotals(draft.Lines, info.IGVRate, draft.DiscountRate)
	currency := draft.Currency
	if currency == "" {
		currency = info.Currency
	}

	id := uuid.NewString()
	now := time.Now().Format("2006-01-02 15:04:05")

	tx, err := h.DB.Begin()
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	_, err = tx.Exec(`INSERT INTO purchase_orders
		(id,process_id,quotation_id,supplier_name,order_number,issue_date,currency,
		 subtotal,discount_rate,discount,net_subtotal,igv,total,created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, processID, database.NS(draft.QuotationID), draft.SupplierName, draft.OrderNumber,
		draft.IssueDate, currency, totals.Subtotal, totals.DiscountRate, totals.Discount,
		totals.NetSubtotal, totals.IGV, totals.Total, now)
	if err != nil {
		tx.Rollback()
		if strings.Contains(err.Error(), "UNIQUE") {
			response.Err(w, "order number "+draft.OrderNumber+" already exists for this process", 409)
			return
		}
		response.Err(w, err.Error(), 500)
		return
	}
	for _, l := range draft.Lines {
		_, err = tx.Exec("INSERT INTO order_lines (order_id,baseline_id,description,unit,qty,unit_price,row_order) VALUES (?,?,?,?,?,?,?)",
			id, database.NS(l.BaselineID), l.Description, l.Unit, l.Qty, l.UnitPrice, database.NI(l.RowOrder))
		if err != nil {
			tx.Rollback()
			response.Err(w, err.Error(), 500)
			return
		}
	}
	if autoNumbered {
		if _, err := database.AdvanceOrderSeq(tx, processID); err != nil {
			tx.Rollback()
			response.Err(w, err.Error(), 500)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		response.Err(w, err.Error(), 500)
		return
	}

	username := h.GetUsername(r)
	audit.LogAudit(h.DB, nil, username, audit.ActionCreate, "order", id, "Created order "+draft.OrderNumber)
	if h.Hub != nil {
		h.Hub.BroadcastChange(websocket.EventOrderSaved, processID, "create", id)
	}

	order, err := LoadOrder(h.DB, id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	nextSeq, _ := database.NextOrderSeq(h.DB, processID)
	response.JSON(w, map[string]interface{}{
		"order":             order,
		"next_sequence":     nextSeq,
		"next_order_number": orders.FormatOrderNumber(nextSeq, info.OrderSuffix),
	})
}

// UpdateOrder replaces a saved order's header and lines from a draft. The
// order number is retained unless the draft explicitly carries a new one.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request, processID, orderID string) {
	existing, err := LoadOrder(h.DB, orderID)
	if err != nil || existing.ProcessID != processID {
		response.Err(w, "not found", 404)
		return
	}
	info, err := h.processInfo(processID)
	if err != nil {
		response.Err(w, "process not found", 404)
		return
	}

	var draft orders.Draft
	if err := response.DecodeBody(r, &draft); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}
	draft.ProcessID = processID
	if draft.OrderNumber == "" {
		draft.OrderNumber = existing.OrderNumber
	}

	if ve := orders.Validate(draft); ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	totals := orders.ComputeTotals(draft.Lines, info.IGVRate, draft.DiscountRate)
	currency := draft.Currency
	if currency == "" {
		currency = existing.Currency
	}

	tx, err := h.DB.Begin()
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	_, err = tx.Exec(`UPDATE purchase_orders SET quotation_id=?,supplier_name=?,order_number=?,issue_date=?,currency=?,
		subtotal=?,discount_rate=?,discount=?,net_subtotal=?,igv=?,total=? WHERE id=?`,
		database.NS(draft.QuotationID), draft.SupplierName, draft.OrderNumber, draft.IssueDate, currency,
		totals.Subtotal, totals.DiscountRate, totals.Discount, totals.NetSubtotal, totals.IGV, totals.Total, orderID)
	if err != nil {
		tx.Rollback()
		if strings.Contains(err.Error(), "UNIQUE") {
			response.Err(w, "order number "+draft.OrderNumber+" already exists for this process", 409)
			return
		}
		response.Err(w, err.Error(), 500)
		return
	}
	if _, err := tx.Exec("DELETE FROM order_lines WHERE order_id=?", orderID); err != nil {
		tx.Rollback()
		response.Err(w, err.Error(), 500)
		return
	}
	for _, l := range draft.Lines {
		_, err = tx.Exec("INSERT INTO order_lines (order_id,baseline_id,description,unit,qty,unit_price,row_order) VALUES (?,?,?,?,?,?,?)",
			orderID, database.NS(l.BaselineID), l.Description, l.Unit, l.Qty, l.UnitPrice, database.NI(l.RowOrder))
		if err != nil {
			tx.Rollback()
			response.Err(w, err.Error(), 500)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		response.Err(w, err.Error(), 500)
		return
	}

	username := h.GetUsername(r)
	audit.LogAudit(h.DB, nil, username, audit.ActionUpdate, "order", orderID, "Updated order "+draft.OrderNumber)
	if h.Hub != nil {
		h.Hub.BroadcastChange(websocket.EventOrderSaved, processID, "update", orderID)
	}

	order, err := LoadOrder(h.DB, orderID)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	response.JSON(w, map[string]interface{}{"order": order})
}
