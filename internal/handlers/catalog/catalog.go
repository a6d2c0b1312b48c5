package catalog

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"procura/internal/database"
	"procura/internal/models"
	"procura/internal/response"
	"procura/internal/validation"
)

// ListProcesses returns all procurement processes.
func (h *Handler) ListProcesses(w http.ResponseWriter, r *http.Request) {
	rows, err := h.DB.Query("SELECT id,name,COALESCE(currency,'PEN'),COALESCE(igv_rate,0.18),COALESCE(order_suffix,''),next_order_seq,created_at FROM processes ORDER BY created_at DESC")
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	items := []models.Process{}
	for rows.Next() {
		var p models.Process
		rows.Scan(&p.ID, &p.Name, &p.Currency, &p.IGVRate, &p.OrderSuffix, &p.NextOrderSeq, &p.CreatedAt)
		items = append(items, p)
	}
	response.JSON(w, items)
}

// CreateProcess creates a new procurement process.
func (h *Handler) CreateProcess(w http.ResponseWriter, r *http.Request) {
	var p models.Process
	if err := response.DecodeBody(r, &p); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", p.Name)
	validation.ValidateMaxLength(ve, "name", p.Name, 200)
	if p.IGVRate != 0 {
		validation.ValidateRate(ve, "igv_rate", p.IGVRate)
	}
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	p.ID = uuid.NewString()
	if p.Currency == "" {
		p.Currency = "PEN"
	}
	if p.IGVRate == 0 {
		p.IGVRate = 0.18
	}
	p.NextOrderSeq = 1
	now := time.Now().Format("2006-01-02 15:04:05")
	_, err := h.DB.Exec("INSERT INTO processes (id,name,currency,igv_rate,order_suffix,next_order_seq,created_at) VALUES (?,?,?,?,?,?,?)",
		p.ID, p.Name, p.Currency, p.IGVRate, p.OrderSuffix, p.NextOrderSeq, now)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	p.CreatedAt = now
	response.JSON(w, p)
}

// LoadBaseline returns the baseline items of a process in import order.
func LoadBaseline(db *sql.DB, processID string) ([]models.BaselineItem, error) {
	rows, err := db.Query(`SELECT id,process_id,COALESCE(item_code,''),description,COALESCE(unit,''),
		COALESCE(sheet_name,''),COALESCE(section_path,'[]'),required_qty,
		COALESCE(ref_unit_price,0),COALESCE(ref_total_price,0)
		FROM baseline_items WHERE process_id=? ORDER BY rowid`, processID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.BaselineItem{}
	for rows.Next() {
		var it models.BaselineItem
		var sectionPath string
		rows.Scan(&it.ID, &it.ProcessID, &it.ItemCode, &it.Description, &it.Unit,
			&it.SheetName, &sectionPath, &it.RequiredQty, &it.RefUnitPrice, &it.RefTotalPrice)
		it.SectionPath = database.DecodeSectionPath(sectionPath)
		items = append(items, it)
	}
	return items, nil
}

// ListBaseline returns the baseline items of a process, optionally filtered
// by a free-text query against code, description, sheet and section path.
// With a positive limit the result is paginated and carries total/page/limit
// metadata; baselines run to thousands of rows.
func (h *Handler) ListBaseline(w http.ResponseWriter, r *http.Request, processID string) {
	all, err := LoadBaseline(h.DB, processID)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}

	query := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("q")))
	items := []models.BaselineItem{}
	for _, it := range all {
		if query != "" && !matchesBaseline(it, query) {
			continue
		}
		items = append(items, it)
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit > 0 {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		total := len(items)
		start := (page - 1) * limit
		if start > total {
			start = total
		}
		end := start + limit
		if end > total {
			end = total
		}
		response.JSONMeta(w, items[start:end], total, page, limit)
		return
	}
	response.JSON(w, items)
}

func matchesBaseline(it models.BaselineItem, query string) bool {
	if strings.Contains(strings.ToUpper(it.Description), query) ||
		strings.Contains(strings.ToUpper(it.ItemCode), query) ||
		strings.Contains(strings.ToUpper(it.SheetName), query) {
		return true
	}
	for _, s := range it.SectionPath {
		if strings.Contains(strings.ToUpper(s), query) {
			return true
		}
	}
	return false
}
