package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"inventory-monitor-api/internal/datestatus"
	"inventory-monitor-api/internal/models"
	"inventory-monitor-api/internal/serials"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const assetColumns = `id, serial, serial_actual, partnumber, asset_number, project, vendor,
	quantity, price, assignment_status, lifecycle_status, warranty_start, warranty_end,
	assigned_kind, assigned_id, assigned_name, order_contract_id, type_id, created_at, updated_at`

// assetResponse decorates an asset with its derived presentation fields.
type assetResponse struct {
	models.Asset
	AssignmentStatusColor string             `json:"assignment_status_color"`
	LifecycleStatusColor  string             `json:"lifecycle_status_color"`
	WarrantyStatus        *datestatus.Status `json:"warranty_status"`
}

func (s *Server) assetResponse(a models.Asset) assetResponse {
	return assetResponse{
		Asset:                 a,
		AssignmentStatusColor: a.AssignmentColor(),
		LifecycleStatusColor:  a.LifecycleColor(),
		WarrantyStatus: datestatus.Classify(
			a.WarrantyStart, a.WarrantyEnd, time.Now(), datestatus.DefaultWarnDays, "Warranty"),
	}
}

func scanAsset(scan func(dest ...any) error, a *models.Asset, extra ...any) error {
	dest := []any{
		&a.ID, &a.Serial, &a.SerialActual, &a.Partnumber, &a.AssetNumber, &a.Project, &a.Vendor,
		&a.Quantity, &a.Price, &a.AssignmentStatus, &a.LifecycleStatus, &a.WarrantyStart, &a.WarrantyEnd,
		&a.AssignedKind, &a.AssignedID, &a.AssignedName, &a.OrderContractID, &a.TypeID,
		&a.CreatedAt, &a.UpdatedAt,
	}
	dest = append(dest, extra...)
	return scan(dest...)
}

// listAssets handles asset listing with filters and pagination
func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	values := r.URL.Query()

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	// exact-match filters
	for param, col := range map[string]string{
		"serial":        "a.serial",
		"serial_actual": "a.serial_actual",
		"partnumber":    "a.partnumber",
	} {
		if v := strings.TrimSpace(values.Get(param)); v != "" {
			clauses = append(clauses, fmt.Sprintf("%s = $%d", col, arg))
			args = append(args, v)
			arg++
		}
	}

	// substring filters
	for param, col := range map[string]string{
		"asset_number":   "a.asset_number",
		"project":        "a.project",
		"vendor":         "a.vendor",
		"order_contract": "c.name",
		"assigned_name":  "a.assigned_name",
	} {
		if v := strings.TrimSpace(values.Get(param)); v != "" {
			clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", col, arg))
			args = append(args, "%"+v+"%")
			arg++
		}
	}

	// choice filters
	for param, col := range map[string]string{
		"assignment_status": "a.assignment_status",
		"lifecycle_status":  "a.lifecycle_status",
		"type":              "a.type_id",
	} {
		if v := strings.TrimSpace(values.Get(param)); v != "" {
			clauses = append(clauses, fmt.Sprintf("%s = $%d", col, arg))
			args = append(args, v)
			arg++
		}
	}

	// range filters
	for param, expr := range map[string]string{
		"price_min":           "a.price >= $%d",
		"price_max":           "a.price <= $%d",
		"quantity_min":        "a.quantity >= $%d",
		"quantity_max":        "a.quantity <= $%d",
		"warranty_start_from": "a.warranty_start >= $%d",
		"warranty_start_to":   "a.warranty_start <= $%d",
		"warranty_end_from":   "a.warranty_end >= $%d",
		"warranty_end_to":     "a.warranty_end <= $%d",
	} {
		if v := strings.TrimSpace(values.Get(param)); v != "" {
			clauses = append(clauses, fmt.Sprintf(expr, arg))
			args = append(args, v)
			arg++
		}
	}

	// free-text search
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf(
			"(a.serial ILIKE $%d OR a.serial_actual ILIKE $%d OR a.asset_number ILIKE $%d OR a.partnumber ILIKE $%d OR a.project ILIKE $%d OR a.vendor ILIKE $%d)",
			arg, arg, arg, arg, arg, arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	sqlStr := `
		SELECT a.id, a.serial, a.serial_actual, a.partnumber, a.asset_number, a.project, a.vendor,
		       a.quantity, a.price, a.assignment_status, a.lifecycle_status, a.warranty_start, a.warranty_end,
		       a.assigned_kind, a.assigned_id, a.assigned_name, a.order_contract_id, a.type_id,
		       a.created_at, a.updated_at,
		       COUNT(*) OVER() as total_count
		FROM assets a
		LEFT JOIN contracts c ON a.order_contract_id = c.id` + whereClause

	allowedSort := map[string]string{
		"id":               "a.id",
		"serial":           "a.serial",
		"asset_number":     "a.asset_number",
		"price":            "a.price",
		"quantity":         "a.quantity",
		"warranty_end":     "a.warranty_end",
		"lifecycle_status": "a.lifecycle_status",
		"created_at":       "a.created_at",
		"updated_at":       "a.updated_at",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort)
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	assets := []interface{}{}
	var totalCount int
	for rows.Next() {
		var a models.Asset
		if err := scanAsset(rows.Scan, &a, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		assets = append(assets, s.assetResponse(a))
	}

	sendListResponse(w, assets, totalCount, params)
}

// getAsset handles getting a single asset by ID
func (s *Server) getAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var a models.Asset
	err := scanAsset(s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM assets WHERE id = $1`, assetColumns), id).Scan, &a)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.assetResponse(a)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// validateAssetTarget enforces the tagged assignment variant: kind and id come
// and go together and never point at more than one target.
func validateAssetTarget(kind *string, id *int64) (field, msg string) {
	if kind == nil && id == nil {
		return "", ""
	}
	if kind == nil || id == nil {
		return "assigned_kind", "assigned_kind and assigned_id must be set together"
	}
	if !models.ValidAssignedKind(*kind) {
		return "assigned_kind", "assigned_kind must be one of site, location, rack, device, module"
	}
	return "", ""
}

// createAsset handles creating a new asset
func (s *Server) createAsset(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	if strings.TrimSpace(req.Serial) == "" {
		sendValidationError(w, "serial", "serial is required")
		return
	}

	serialActual := req.Serial
	if req.SerialActual != nil && strings.TrimSpace(*req.SerialActual) != "" {
		serialActual = *req.SerialActual
	}

	quantity := 1
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			sendValidationError(w, "quantity", "quantity must not be negative")
			return
		}
		quantity = *req.Quantity
	}

	price := decimal.Zero
	if req.Price != nil {
		if req.Price.IsNegative() {
			sendValidationError(w, "price", "price must not be negative")
			return
		}
		price = *req.Price
	}

	assignmentStatus := models.AssignmentStocked
	if req.AssignmentStatus != nil {
		if !models.ValidAssignmentStatus(*req.AssignmentStatus) {
			sendValidationError(w, "assignment_status", "unknown assignment status")
			return
		}
		assignmentStatus = *req.AssignmentStatus
	}

	lifecycleStatus := models.LifecycleNew
	if req.LifecycleStatus != nil {
		if !models.ValidLifecycleStatus(*req.LifecycleStatus) {
			sendValidationError(w, "lifecycle_status", "unknown lifecycle status")
			return
		}
		lifecycleStatus = *req.LifecycleStatus
	}

	if req.WarrantyStart != nil && req.WarrantyEnd != nil && req.WarrantyStart.After(*req.WarrantyEnd) {
		sendValidationError(w, "warranty_start", "warranty_start cannot be after warranty_end")
		return
	}

	if field, msg := validateAssetTarget(req.AssignedKind, req.AssignedID); field != "" {
		sendValidationError(w, field, msg)
		return
	}

	var a models.Asset
	err := scanAsset(s.DB.QueryRowContext(r.Context(), fmt.Sprintf(`
		INSERT INTO assets (serial, serial_actual, partnumber, asset_number, project, vendor,
		                    quantity, price, assignment_status, lifecycle_status,
		                    warranty_start, warranty_end, assigned_kind, assigned_id, assigned_name,
		                    order_contract_id, type_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING %s`, assetColumns),
		req.Serial, serialActual, nullIfEmpty(req.Partnumber), nullIfEmpty(req.AssetNumber),
		nullIfEmpty(req.Project), nullIfEmpty(req.Vendor), quantity, price,
		assignmentStatus, lifecycleStatus, req.WarrantyStart, req.WarrantyEnd,
		req.AssignedKind, req.AssignedID, nullIfEmpty(req.AssignedName),
		req.OrderContractID, req.TypeID).Scan, &a)
	if err != nil {
		if isFKViolation(err) {
			http.Error(w, "referenced contract or asset type does not exist", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(s.assetResponse(a)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// auditAsset records the current row as a pre-image before a mutation. Runs
// inside the mutation's transaction so the audit and the change commit
// together.
func auditAsset(ctx context.Context, q querier, assetID interface{}) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO asset_audit (asset_id, pre_image)
		SELECT id, to_jsonb(assets.*) FROM assets WHERE id = $1`, assetID)
	return err
}

// updateAsset handles updating an existing asset. Serial edits through this
// path are explicit admin edits; RMA completion is the only other writer.
func (s *Server) updateAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	if req.Quantity != nil && *req.Quantity < 0 {
		sendValidationError(w, "quantity", "quantity must not be negative")
		return
	}
	if req.Price != nil && req.Price.IsNegative() {
		sendValidationError(w, "price", "price must not be negative")
		return
	}
	if req.AssignmentStatus != nil && !models.ValidAssignmentStatus(*req.AssignmentStatus) {
		sendValidationError(w, "assignment_status", "unknown assignment status")
		return
	}
	if req.LifecycleStatus != nil && !models.ValidLifecycleStatus(*req.LifecycleStatus) {
		sendValidationError(w, "lifecycle_status", "unknown lifecycle status")
		return
	}
	if req.WarrantyStart != nil && req.WarrantyEnd != nil && req.WarrantyStart.After(*req.WarrantyEnd) {
		sendValidationError(w, "warranty_start", "warranty_start cannot be after warranty_end")
		return
	}
	if req.AssignedKind != nil || req.AssignedID != nil {
		if field, msg := validateAssetTarget(req.AssignedKind, req.AssignedID); field != "" {
			sendValidationError(w, field, msg)
			return
		}
	}

	type set struct {
		sql string
		val interface{}
	}
	sets := make([]set, 0, 16)
	arg := 1
	add := func(col string, val interface{}) {
		sets = append(sets, set{fmt.Sprintf("%s = $%d", col, arg), val})
		arg++
	}

	if req.Serial != nil {
		if strings.TrimSpace(*req.Serial) == "" {
			sendValidationError(w, "serial", "serial must not be empty")
			return
		}
		add("serial", *req.Serial)
	}
	if req.SerialActual != nil {
		if strings.TrimSpace(*req.SerialActual) == "" {
			sendValidationError(w, "serial_actual", "serial_actual must not be empty")
			return
		}
		add("serial_actual", *req.SerialActual)
	}
	if req.Partnumber != nil {
		add("partnumber", nullIfEmpty(req.Partnumber))
	}
	if req.AssetNumber != nil {
		add("asset_number", nullIfEmpty(req.AssetNumber))
	}
	if req.Project != nil {
		add("project", nullIfEmpty(req.Project))
	}
	if req.Vendor != nil {
		add("vendor", nullIfEmpty(req.Vendor))
	}
	if req.Quantity != nil {
		add("quantity", *req.Quantity)
	}
	if req.Price != nil {
		add("price", *req.Price)
	}
	if req.AssignmentStatus != nil {
		add("assignment_status", *req.AssignmentStatus)
	}
	if req.LifecycleStatus != nil {
		add("lifecycle_status", *req.LifecycleStatus)
	}
	if req.WarrantyStart != nil {
		add("warranty_start", *req.WarrantyStart)
	}
	if req.WarrantyEnd != nil {
		add("warranty_end", *req.WarrantyEnd)
	}
	if req.AssignedKind != nil {
		add("assigned_kind", req.AssignedKind)
		add("assigned_id", req.AssignedID)
		add("assigned_name", nullIfEmpty(req.AssignedName))
	}
	if req.OrderContractID != nil {
		add("order_contract_id", *req.OrderContractID)
	}
	if req.TypeID != nil {
		add("type_id", *req.TypeID)
	}

	if len(sets) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	args := make([]interface{}, 0, len(sets)+1)
	sqlStr := "UPDATE assets SET updated_at = now()"
	for _, sset := range sets {
		sqlStr += ", " + sset.sql
		args = append(args, sset.val)
	}
	sqlStr += fmt.Sprintf(" WHERE id = $%d RETURNING %s", len(args)+1, assetColumns)
	args = append(args, id)

	var out models.Asset
	err := inTx(r.Context(), s.DB, func(tx *sql.Tx) error {
		if err := auditAsset(r.Context(), tx, id); err != nil {
			return err
		}
		return scanAsset(tx.QueryRowContext(r.Context(), sqlStr, args...).Scan, &out)
	})
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		if isFKViolation(err) {
			http.Error(w, "referenced contract or asset type does not exist", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.assetResponse(out)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// deleteAsset handles deleting an asset. Dependent RMAs, services and
// external links protect the row.
func (s *Server) deleteAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		if isFKViolation(err) {
			http.Error(w, "asset is referenced by RMAs, services or external inventory", http.StatusConflict)
			return
		}
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

// getAssetProbes serves the probes whose serial appears anywhere in the
// asset's serial history, newest first.
func (s *Server) getAssetProbes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var assetID int64
	err := s.DB.QueryRowContext(r.Context(), `SELECT id FROM assets WHERE id = $1`, id).Scan(&assetID)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	probes, err := serials.RelatedProbes(r.Context(), s.DB, assetID, time.Now(), s.recentDays())
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(probes); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
