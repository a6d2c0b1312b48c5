package procurement

import (
	"database/sql"
	"net/http"

	"procura/internal/websocket"
)

// Handler holds dependencies for purchase order and delivery handlers.
type Handler struct {
	DB  *sql.DB
	Hub *websocket.Hub

	// GetUsername resolves the acting user for audit entries. Set by main.
	GetUsername func(r *http.Request) string
}

type processInfo struct {
	Currency    string
	IGVRate     float64
	OrderSuffix string
}

func (h *Handler) processInfo(processID string) (processInfo, error) {
	var p processInfo
	err := h.DB.QueryRow("SELECT COALESCE(currency,'PEN'),COALESCE(igv_rate,0.18),COALESCE(order_suffix,'') FROM processes WHERE id=?", processID).
		Scan(&p.Currency, &p.IGVRate, &p.OrderSuffix)
	return p, err
}
