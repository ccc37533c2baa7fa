package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"inventory-monitor-api/internal/datestatus"
	"inventory-monitor-api/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const assetServiceColumns = `id, asset_id, contract_id, service_start, service_end, price,
	category, category_vendor, created_at, updated_at`

// assetServiceResponse decorates a service with its derived window status.
type assetServiceResponse struct {
	models.AssetService
	ServiceStatus *datestatus.Status `json:"service_status"`
}

func serviceOut(svc models.AssetService) assetServiceResponse {
	return assetServiceResponse{
		AssetService: svc,
		ServiceStatus: datestatus.Classify(
			svc.ServiceStart, svc.ServiceEnd, time.Now(), datestatus.DefaultWarnDays, "Service"),
	}
}

func scanAssetService(scan func(dest ...any) error, svc *models.AssetService, extra ...any) error {
	dest := []any{
		&svc.ID, &svc.AssetID, &svc.ContractID, &svc.ServiceStart, &svc.ServiceEnd,
		&svc.Price, &svc.Category, &svc.CategoryVendor, &svc.CreatedAt, &svc.UpdatedAt,
	}
	dest = append(dest, extra...)
	return scan(dest...)
}

// listAssetServices handles asset service listing with filters and pagination
func (s *Server) listAssetServices(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	values := r.URL.Query()

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	if v := strings.TrimSpace(values.Get("asset_id")); v != "" {
		clauses = append(clauses, fmt.Sprintf("asset_id = $%d", arg))
		args = append(args, v)
		arg++
	}
	if v := strings.TrimSpace(values.Get("contract_id")); v != "" {
		clauses = append(clauses, fmt.Sprintf("contract_id = $%d", arg))
		args = append(args, v)
		arg++
	}
	if v := strings.TrimSpace(values.Get("category")); v != "" {
		clauses = append(clauses, fmt.Sprintf("category = $%d", arg))
		args = append(args, v)
		arg++
	}
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(category ILIKE $%d OR category_vendor ILIKE $%d)", arg, arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	sqlStr := fmt.Sprintf(`
		SELECT %s,
		       COUNT(*) OVER() as total_count
		FROM asset_services%s`, assetServiceColumns, whereClause)

	allowedSort := map[string]string{
		"id":            "id",
		"asset_id":      "asset_id",
		"service_start": "service_start",
		"service_end":   "service_end",
		"price":         "price",
		"created_at":    "created_at",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort)
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	services := []interface{}{}
	var totalCount int
	for rows.Next() {
		var svc models.AssetService
		if err := scanAssetService(rows.Scan, &svc, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		services = append(services, serviceOut(svc))
	}

	sendListResponse(w, services, totalCount, params)
}

// getAssetService handles getting a single asset service by ID
func (s *Server) getAssetService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var svc models.AssetService
	err := scanAssetService(s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM asset_services WHERE id = $1`, assetServiceColumns), id).Scan, &svc)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(serviceOut(svc)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// createAssetService handles creating a new asset service
func (s *Server) createAssetService(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssetServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	if req.AssetID == 0 {
		sendValidationError(w, "asset_id", "asset_id is required")
		return
	}
	price := decimal.Zero
	if req.Price != nil {
		if req.Price.IsNegative() {
			sendValidationError(w, "price", "price must not be negative")
			return
		}
		price = *req.Price
	}
	if req.ServiceStart != nil && req.ServiceEnd != nil && req.ServiceStart.After(*req.ServiceEnd) {
		sendValidationError(w, "service_start", "service_start cannot be after service_end")
		return
	}

	var svc models.AssetService
	err := scanAssetService(s.DB.QueryRowContext(r.Context(), fmt.Sprintf(`
		INSERT INTO asset_services (asset_id, contract_id, service_start, service_end, price, category, category_vendor)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, assetServiceColumns),
		req.AssetID, req.ContractID, req.ServiceStart, req.ServiceEnd, price,
		nullIfEmpty(req.Category), nullIfEmpty(req.CategoryVendor)).Scan, &svc)
	if err != nil {
		if isFKViolation(err) {
			sendValidationError(w, "asset_id", "referenced asset or contract does not exist")
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(serviceOut(svc)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// updateAssetService handles updating an existing asset service. The
// date-order rule is checked against the merged row.
func (s *Server) updateAssetService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateAssetServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	if req.Price != nil && req.Price.IsNegative() {
		sendValidationError(w, "price", "price must not be negative")
		return
	}

	var out models.AssetService
	err := inTx(r.Context(), s.DB, func(tx *sql.Tx) error {
		var current models.AssetService
		err := scanAssetService(tx.QueryRowContext(r.Context(),
			fmt.Sprintf(`SELECT %s FROM asset_services WHERE id = $1 FOR UPDATE`, assetServiceColumns), id).Scan, &current)
		if err != nil {
			return err
		}

		next := current
		if req.ContractID != nil {
			next.ContractID = req.ContractID
		}
		if req.ServiceStart != nil {
			next.ServiceStart = req.ServiceStart
		}
		if req.ServiceEnd != nil {
			next.ServiceEnd = req.ServiceEnd
		}
		if req.Price != nil {
			next.Price = *req.Price
		}
		if req.Category != nil {
			next.Category = req.Category
		}
		if req.CategoryVendor != nil {
			next.CategoryVendor = req.CategoryVendor
		}

		if next.ServiceStart != nil && next.ServiceEnd != nil && next.ServiceStart.After(*next.ServiceEnd) {
			return fieldError{field: "service_start", msg: "service_start cannot be after service_end"}
		}

		return scanAssetService(tx.QueryRowContext(r.Context(), fmt.Sprintf(`
			UPDATE asset_services
			SET contract_id = $1, service_start = $2, service_end = $3, price = $4,
			    category = $5, category_vendor = $6, updated_at = now()
			WHERE id = $7
			RETURNING %s`, assetServiceColumns),
			next.ContractID, next.ServiceStart, next.ServiceEnd, next.Price,
			next.Category, next.CategoryVendor, id).Scan, &out)
	})
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if ferr, ok := err.(fieldError); ok {
		sendValidationError(w, ferr.field, ferr.msg)
		return
	}
	if err != nil {
		if isFKViolation(err) {
			sendValidationError(w, "contract_id", "contract does not exist")
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(serviceOut(out)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// deleteAssetService handles deleting an asset service
func (s *Server) deleteAssetService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM asset_services WHERE id = $1`, id)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
