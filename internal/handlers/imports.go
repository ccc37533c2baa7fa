package handlers

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"inventory-monitor-api/pkg/importer"
)

// RowMetrics records per-row import outcomes.
type RowMetrics interface {
	ImportRow(outcome string)
}

// ImportsHandler handles bulk file import operations
type ImportsHandler struct {
	DB       *pgxpool.Pool
	Metrics  RowMetrics
	MaxBytes int64
}

// NewImportsHandler creates a new imports handler
func NewImportsHandler(db *pgxpool.Pool, metrics RowMetrics) *ImportsHandler {
	return &ImportsHandler{
		DB:       db,
		Metrics:  metrics,
		MaxBytes: 20 << 20, // 20 MB
	}
}

// UploadFile handles CSV and XLSX uploads for asset import
func (h *ImportsHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	// Limit body size
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	// Require multipart
	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		http.Error(w, "content-type must be multipart/form-data", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	dryRun := r.FormValue("dry_run") == "true"
	maxErrors := 50
	if v := r.FormValue("max_errors"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxErrors = n
		}
	}

	// File
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	format, ok := fileFormat(header)
	if !ok {
		http.Error(w, "only .csv and .xlsx files are accepted", http.StatusBadRequest)
		return
	}

	sum, impErr := importer.ImportFile(r.Context(), h.DB, file, importer.ImportOptions{
		Format:    format,
		DryRun:    dryRun,
		MaxErrors: maxErrors,
	})

	if h.Metrics != nil {
		for _, row := range sum.Rows {
			h.Metrics.ImportRow(row.Outcome)
		}
	}

	if impErr != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "IMPORT_FAILED",
			"details": impErr.Error(),
			"data":    sum, // might include partial
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": sum,
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// fileFormat maps the upload's extension onto an importer format.
func fileFormat(h *multipart.FileHeader) (string, bool) {
	switch strings.ToLower(filepath.Ext(h.Filename)) {
	case ".csv":
		return "csv", true
	case ".xlsx":
		return "xlsx", true
	}
	return "", false
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
