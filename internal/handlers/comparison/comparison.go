package comparison

import (
	"database/sql"
	"net/http"

	"procura/internal/compare"
	"procura/internal/handlers/catalog"
	"procura/internal/handlers/quotes"
	"procura/internal/models"
	"procura/internal/response"
)

// Handler holds dependencies for comparison view handlers. All endpoints are
// read-only view models; no mutation happens here.
type Handler struct {
	DB *sql.DB
}

func (h *Handler) load(processID string) ([]models.BaselineItem, []models.Quotation, string, error) {
	var baseCurrency string
	if err := h.DB.QueryRow("SELECT COALESCE(currency,'PEN') FROM processes WHERE id=?", processID).Scan(&baseCurrency); err != nil {
		return nil, nil, "", err
	}
	items, err := catalog.LoadBaseline(h.DB, processID)
	if err != nil {
		return nil, nil, "", err
	}
	quotations, err := quotes.LoadQuotations(h.DB, processID)
	if err != nil {
		return nil, nil, "", err
	}
	return items, quotations, baseCurrency, nil
}

// GetComparison returns the per-item comparison rows: every offer per
// baseline item, the best offer and savings over the runner-up.
func (h *Handler) GetComparison(w http.ResponseWriter, r *http.Request, processID string) {
	items, quotations, baseCurrency, err := h.load(processID)
	if err != nil {
		response.Err(w, "process not found", 404)
		return
	}
	response.JSON(w, compare.CompareItems(items, quotations, baseCurrency))
}

// GetRanking returns the supplier ranking: per-quotation coverage and
// normalized amounts, the default winner candidate, and quotations grouped
// by logical supplier for side-by-side rendering.
func (h *Handler) GetRanking(w http.ResponseWriter, r *http.Request, processID string) {
	items, quotations, baseCurrency, err := h.load(processID)
	if err != nil {
		response.Err(w, "process not found", 404)
		return
	}
	rows := compare.RankQuotations(items, quotations, baseCurrency)
	response.JSON(w, map[string]interface{}{
		"ranking":        rows,
		"winner":         compare.SelectWinner(rows),
		"suppliers":      compare.GroupBySupplier(quotations),
		"baseline_total": compare.BaselineTotal(items),
	})
}
