package audit

import (
	"database/sql"
	"log"

	"procura/internal/websocket"
)

// Action constants.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// LogAudit records a mutation in the audit log and notifies connected clients.
// Audit failures are logged, never surfaced: the write that triggered the
// entry already succeeded.
func LogAudit(db *sql.DB, hub *websocket.Hub, username, action, module, recordID, summary string) {
	_, err := db.Exec("INSERT INTO audit_log (username, action, module, record_id, summary) VALUES (?, ?, ?, ?, ?)",
		username, action, module, recordID, summary)
	if err != nil {
		log.Printf("audit log error: %v", err)
	}
	if hub != nil {
		hub.Broadcast(websocket.Event{
			Type:   module + "_" + action,
			ID:     recordID,
			Action: action,
		})
	}
}
