package procurement

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/google/uuid"

	"procura/internal/audit"
	"procura/internal/database"
	"procura/internal/deliveries"
	"procura/internal/models"
	"procura/internal/response"
	"procura/internal/websocket"
)

// LoadDelivery returns one delivery with its lines.
func LoadDelivery(db *sql.DB, id string) (models.Delivery, error) {
	var d models.Delivery
	var orderID, guideNumber sql.NullString
	err := db.QueryRow(`SELECT id,process_id,order_id,COALESCE(supplier_name,''),guide_number,COALESCE(date,''),created_at
		FROM deliveries WHERE id=?`, id).
		Scan(&d.ID, &d.ProcessID, &orderID, &d.SupplierName, &guideNumber, &d.Date, &d.CreatedAt)
	if err != nil {
		return d, err
	}
	d.OrderID = database.SP(orderID)
	d.GuideNumber = database.SP(guideNumber)
	d.Lines = []models.DeliveryLine{}

	rows, err := db.Query(`SELECT id,delivery_id,baseline_id,COALESCE(description,''),COALESCE(unit,''),qty
		FROM delivery_lines WHERE delivery_id=? ORDER BY id`, id)
	if err != nil {
		return d, err
	}
	defer rows.Close()
	for rows.Next() {
		var l models.DeliveryLine
		var baselineID sql.NullString
		rows.Scan(&l.ID, &l.DeliveryID, &baselineID, &l.Description, &l.Unit, &l.Qty)
		l.BaselineID = database.SP(baselineID)
		d.Lines = append(d.Lines, l)
	}
	return d, nil
}

// ListDeliveries returns a process's delivery guides with lines.
func (h *Handler) ListDeliveries(w http.ResponseWriter, r *http.Request, processID string) {
	rows, err := h.DB.Query("SELECT id FROM deliveries WHERE process_id=? ORDER BY date DESC, created_at DESC", processID)
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

	list := []models.Delivery{}
	for _, id := range ids {
		d, err := LoadDelivery(h.DB, id)
		if err != nil {
			response.Err(w, err.Error(), 500)
			return
		}
		list = append(list, d)
	}
	response.JSON(w, list)
}

// SaveDelivery persists a new delivery guide from a draft. Lines with zero
// quantity are dropped: a seeded draft starts with everything at zero and
// only what the operator actually entered is recorded.
func (h *Handler) SaveDelivery(w http.ResponseWriter, r *http.Request, processID string) {
	if _, err := h.processInfo(processID); err != nil {
		response.Err(w, "process not found", 404)
		return
	}

	var draft deliveries.Draft
	if err := response.DecodeBody(r, &draft); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}
	draft.ProcessID = processID

	if ve := deliveries.Validate(draft); ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	if draft.OrderID != nil {
		var count int
		h.DB.QueryRow("SELECT COUNT(*) FROM purchase_orders WHERE id=? AND process_id=?", *draft.OrderID, processID).Scan(&count)
		if count == 0 {
			response.Err(w, "order_id: referenced order not found", 400)
			return
		}
	}

	id := uuid.NewString()
	now := time.Now().Format("2006-01-02 15:04:05")

	tx, err := h.DB.Begin()
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	_, err = tx.Exec("INSERT INTO deliveries (id,process_id,order_id,supplier_name,guide_number,date,created_at) VALUES (?,?,?,?,?,?,?)",
		id, processID, database.NS(draft.OrderID), draft.SupplierName, database.NS(draft.GuideNumber), draft.Date, now)
	if err != nil {
		tx.Rollback()
		response.Err(w, err.Error(), 500)
		return
	}
	for _, l := range draft.Lines {
		if l.Qty <= 0 {
			continue
		}
		_, err = tx.Exec("INSERT INTO delivery_lines (delivery_id,baseline_id,description,unit,qty) VALUES (?,?,?,?,?)",
			id, database.NS(l.BaselineID), l.Description, l.Unit, l.Qty)
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
	audit.LogAudit(h.DB, nil, username, audit.ActionCreate, "delivery", id, "Recorded delivery for "+draft.SupplierName)
	if h.Hub != nil {
		h.Hub.BroadcastChange(websocket.EventDeliverySaved, processID, "create", id)
	}

	delivery, err := LoadDelivery(h.DB, id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	response.JSON(w, delivery)
}
