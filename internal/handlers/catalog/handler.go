package catalog

import (
	"database/sql"
)

// Handler holds dependencies for process and baseline catalog handlers.
// Baseline items are import-created and read-only here; the only mutation is
// process creation.
type Handler struct {
	DB *sql.DB
}
