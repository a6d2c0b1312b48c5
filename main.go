package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"procura/internal/config"
	"procura/internal/database"
	"procura/internal/handlers/catalog"
	"procura/internal/handlers/comparison"
	"procura/internal/handlers/procurement"
	"procura/internal/handlers/quotes"
	"procura/internal/handlers/reports"
	"procura/internal/importer"
	"procura/internal/websocket"
)

// requestUsername resolves the acting username for the audit trail. There is
// no account system; deployments sit behind a reverse proxy that sets the
// X-User header, and anything else is recorded as "system".
func requestUsername(r *http.Request) string {
	if u := strings.TrimSpace(r.Header.Get("X-User")); u != "" {
		return u
	}
	return "system"
}

func logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	importBaseline := flag.String("import-baseline", "", "Baseline xlsx to import, then exit")
	importQuotes := flag.String("import-quotes", "", "Quotation xlsx to import, then exit")
	importProcess := flag.String("process", "", "Process id for -import-baseline / -import-quotes")
	quoteCurrency := flag.String("quote-currency", "", "Currency for -import-quotes (defaults to process base currency)")
	quoteRate := flag.Float64("quote-rate", 1, "Exchange rate to base currency for -import-quotes")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatal("Config load failed: ", err)
		}
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config: ", err)
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("DB init failed: ", err)
	}
	defer db.Close()

	if *importBaseline != "" || *importQuotes != "" {
		if *importProcess == "" {
			log.Fatal("-process is required with -import-baseline / -import-quotes")
		}
		if *importBaseline != "" {
			n, err := importer.ImportBaseline(db, *importProcess, *importBaseline)
			if err != nil {
				log.Fatal("Baseline import failed: ", err)
			}
			log.Printf("Imported %d baseline items", n)
		}
		if *importQuotes != "" {
			currency := *quoteCurrency
			if currency == "" {
				currency = cfg.BaseCurrency
			}
			n, err := importer.ImportQuotations(db, *importProcess, *importQuotes, currency, *quoteRate)
			if err != nil {
				log.Fatal("Quotation import failed: ", err)
			}
			log.Printf("Imported %d quotations", n)
		}
		return
	}

	hub := websocket.NewHub()

	catalogH := &catalog.Handler{DB: db}
	quotesH := &quotes.Handler{DB: db, Hub: hub, GetUsername: requestUsername}
	comparisonH := &comparison.Handler{DB: db}
	procurementH := &procurement.Handler{DB: db, Hub: hub, GetUsername: requestUsername}
	reportsH := &reports.Handler{DB: db}

	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.HandleWebSocket(hub, w, r)
	})

	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/")
		path = strings.TrimSuffix(path, "/")
		parts := strings.Split(path, "/")

		switch {
		// Processes
		case path == "processes" && r.Method == "GET":
			catalogH.ListProcesses(w, r)
		case path == "processes" && r.Method == "POST":
			catalogH.CreateProcess(w, r)

		// Per-process resources: processes/{id}/...
		case parts[0] == "processes" && len(parts) == 3 && parts[2] == "baseline" && r.Method == "GET":
			catalogH.ListBaseline(w, r, parts[1])
		case parts[0] == "processes" && len(parts) == 3 && parts[2] == "quotations" && r.Method == "GET":
			quotesH.ListQuotations(w, r, parts[1])
		case parts[0] == "processes" && len(parts) == 4 && parts[2] == "quotations" && r.Method == "DELETE":
			quotesH.DeleteQuotation(w, r, parts[3])
		case parts[0] == "quotations" && len(parts) == 2 && r.Method == "DELETE":
			quotesH.DeleteQuotation(w, r, parts[1])
		case parts[0] == "processes" && len(parts) == 3 && parts[2] == "comparison" && r.Method == "GET":
			comparisonH.GetComparison(w, r, parts[1])
		case parts[0] == "processes" && len(parts) == 3 && parts[2] == "ranking" && r.Method == "GET":
			comparisonH.GetRanking(w, r, parts[1])
		case parts[0] == "processes" && len(parts) == 3 && parts[2] == "orders" && r.Method == "GET":
			procurementH.ListOrders(w, r, parts[1])
		case parts[0] == "processes" && len(parts) == 3 && parts[2] == "orders" && r.Method == "POST":
			procurementH.SaveOrder(w, r, parts[1])
		case parts[0] == "processes" && len(parts) == 4 && parts[2] == "orders" && r.Method == "PUT":
			procurementH.UpdateOrder(w, r, parts[1], parts[3])
		case parts[0] == "processes" && len(parts) == 3 && parts[2] == "deliveries" && r.Method == "GET":
			procurementH.ListDeliveries(w, r, parts[1])
		case parts[0] == "processes" && len(parts) == 3 && parts[2] == "deliveries" && r.Method == "POST":
			procurementH.SaveDelivery(w, r, parts[1])
		case parts[0] == "processes" && len(parts) == 3 && parts[2] == "progress" && r.Method == "GET":
			reportsH.GetProgress(w, r, parts[1])

		default:
			http.Error(w, `{"error":"not found"}`, 404)
		}
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Listening on %s (db %s)", addr, cfg.DBPath)
	log.Fatal(http.ListenAndServe(addr, logRequest(mux)))
}
