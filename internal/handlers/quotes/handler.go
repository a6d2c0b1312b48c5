package quotes

import (
	"database/sql"
	"net/http"

	"procura/internal/websocket"
)

// Handler holds dependencies for quotation handlers.
type Handler struct {
	DB  *sql.DB
	Hub *websocket.Hub

	// GetUsername resolves the acting user for audit entries. Set by main.
	GetUsername func(r *http.Request) string
}
