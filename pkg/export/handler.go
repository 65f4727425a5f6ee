package export

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/archplot/archplot/pkg/config"
)

// HandleExport handles GET /v1/curves/{name}/export
// Query params:
//   - format: "json" or "csv" (default: json)
func (e *Exporter) HandleExport(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if name == "" {
		http.Error(w, "curve name is required", http.StatusBadRequest)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = config.DefaultExportFormat
	}
	if format != "json" && format != "csv" {
		http.Error(w, "Invalid format. Must be 'json' or 'csv'", http.StatusBadRequest)
		return
	}

	// Set appropriate headers
	timestamp := time.Now().Format("20060102-150405")
	if format == "json" {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-%s.json", name, timestamp))
	} else {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-%s.csv", name, timestamp))
	}

	var result *Result
	var err error
	if format == "json" {
		result, err = e.ExportJSON(w, name)
	} else {
		result, err = e.ExportCSV(w, name)
	}

	if err != nil {
		log.Printf("Export failed: %v", err)
		http.Error(w, fmt.Sprintf("Export failed: %v", err), http.StatusInternalServerError)
		return
	}

	log.Printf("Exported %d samples (%s) for curve %s", result.SamplesExported, format, result.Curve)
}
