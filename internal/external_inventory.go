package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"inventory-monitor-api/internal/models"

	"github.com/go-chi/chi/v5"
)

// asset_ids rides along as a JSON array so the scan stays on plain text.
const externalInventoryColumns = `e.id, e.external_id, e.inventory_number, e.name, e.serial_number,
	e.person_code, e.location_code, e.department_code, e.project_code, e.user_note, e.status,
	e.created_at, e.updated_at,
	COALESCE((SELECT json_agg(l.asset_id ORDER BY l.asset_id)
	          FROM external_inventory_assets l
	          WHERE l.external_inventory_id = e.id), '[]')::text`

// externalInventoryResponse decorates a row with the display resolution of
// its status code.
type externalInventoryResponse struct {
	models.ExternalInventory
	StatusDisplay *models.StatusDisplay `json:"status_display,omitempty"`
}

func (s *Server) externalOut(e models.ExternalInventory) externalInventoryResponse {
	out := externalInventoryResponse{ExternalInventory: e}
	if e.Status != nil {
		label, color := s.Cfg.Runtime.StatusDisplay(*e.Status)
		out.StatusDisplay = &models.StatusDisplay{
			Code:    *e.Status,
			Label:   label,
			Color:   color,
			Tooltip: s.Cfg.Runtime.Tooltip(*e.Status),
		}
	}
	return out
}

func scanExternalInventory(scan func(dest ...any) error, e *models.ExternalInventory, extra ...any) error {
	var assetIDs string
	dest := []any{
		&e.ID, &e.ExternalID, &e.InventoryNumber, &e.Name, &e.SerialNumber,
		&e.PersonCode, &e.LocationCode, &e.DepartmentCode, &e.ProjectCode,
		&e.UserNote, &e.Status, &e.CreatedAt, &e.UpdatedAt, &assetIDs,
	}
	dest = append(dest, extra...)
	if err := scan(dest...); err != nil {
		return err
	}
	return json.Unmarshal([]byte(assetIDs), &e.AssetIDs)
}

// listExternalInventory handles external inventory listing with filters and
// pagination
func (s *Server) listExternalInventory(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	values := r.URL.Query()

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	switch values.Get("has_assets") {
	case "true":
		clauses = append(clauses, "EXISTS (SELECT 1 FROM external_inventory_assets l WHERE l.external_inventory_id = e.id)")
	case "false":
		clauses = append(clauses, "NOT EXISTS (SELECT 1 FROM external_inventory_assets l WHERE l.external_inventory_id = e.id)")
	}
	if v := strings.TrimSpace(values.Get("status")); v != "" {
		clauses = append(clauses, fmt.Sprintf("e.status = $%d", arg))
		args = append(args, v)
		arg++
	}
	if v := strings.TrimSpace(values.Get("serial_number")); v != "" {
		clauses = append(clauses, fmt.Sprintf("e.serial_number = $%d", arg))
		args = append(args, v)
		arg++
	}
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf(
			"(e.external_id ILIKE $%d OR e.inventory_number ILIKE $%d OR e.name ILIKE $%d OR e.serial_number ILIKE $%d OR e.person_code ILIKE $%d OR e.location_code ILIKE $%d OR e.department_code ILIKE $%d OR e.project_code ILIKE $%d OR e.user_note ILIKE $%d)",
			arg, arg, arg, arg, arg, arg, arg, arg, arg))
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
		FROM external_inventory e%s`, externalInventoryColumns, whereClause)

	allowedSort := map[string]string{
		"id":               "e.id",
		"external_id":      "e.external_id",
		"inventory_number": "e.inventory_number",
		"name":             "e.name",
		"status":           "e.status",
		"created_at":       "e.created_at",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort)
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	items := []interface{}{}
	var totalCount int
	for rows.Next() {
		var e models.ExternalInventory
		if err := scanExternalInventory(rows.Scan, &e, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		items = append(items, s.externalOut(e))
	}

	sendListResponse(w, items, totalCount, params)
}

// getExternalInventory handles getting a single external inventory row by ID
func (s *Server) getExternalInventory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var e models.ExternalInventory
	err := scanExternalInventory(s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM external_inventory e WHERE e.id = $1`, externalInventoryColumns), id).Scan, &e)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.externalOut(e)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// createExternalInventory handles creating a new external inventory row
func (s *Server) createExternalInventory(w http.ResponseWriter, r *http.Request) {
	var req models.CreateExternalInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	if strings.TrimSpace(req.ExternalID) == "" {
		sendValidationError(w, "external_id", "external_id is required")
		return
	}

	var e models.ExternalInventory
	err := scanExternalInventory(s.DB.QueryRowContext(r.Context(), fmt.Sprintf(`
		INSERT INTO external_inventory AS e (external_id, inventory_number, name, serial_number,
		                                    person_code, location_code, department_code, project_code,
		                                    user_note, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING %s`, externalInventoryColumns),
		req.ExternalID, nullIfEmpty(req.InventoryNumber), nullIfEmpty(req.Name),
		nullIfEmpty(req.SerialNumber), nullIfEmpty(req.PersonCode), nullIfEmpty(req.LocationCode),
		nullIfEmpty(req.DepartmentCode), nullIfEmpty(req.ProjectCode),
		nullIfEmpty(req.UserNote), nullIfEmpty(req.Status)).Scan, &e)
	if err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "external_id already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(s.externalOut(e)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// updateExternalInventory handles updating an existing external inventory row
func (s *Server) updateExternalInventory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateExternalInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	sets := []string{"updated_at = now()"}
	args := []interface{}{}
	arg := 1
	add := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, arg))
		args = append(args, val)
		arg++
	}

	if req.ExternalID != nil {
		if strings.TrimSpace(*req.ExternalID) == "" {
			sendValidationError(w, "external_id", "external_id must not be empty")
			return
		}
		add("external_id", *req.ExternalID)
	}
	if req.InventoryNumber != nil {
		add("inventory_number", nullIfEmpty(req.InventoryNumber))
	}
	if req.Name != nil {
		add("name", nullIfEmpty(req.Name))
	}
	if req.SerialNumber != nil {
		add("serial_number", nullIfEmpty(req.SerialNumber))
	}
	if req.PersonCode != nil {
		add("person_code", nullIfEmpty(req.PersonCode))
	}
	if req.LocationCode != nil {
		add("location_code", nullIfEmpty(req.LocationCode))
	}
	if req.DepartmentCode != nil {
		add("department_code", nullIfEmpty(req.DepartmentCode))
	}
	if req.ProjectCode != nil {
		add("project_code", nullIfEmpty(req.ProjectCode))
	}
	if req.UserNote != nil {
		add("user_note", nullIfEmpty(req.UserNote))
	}
	if req.Status != nil {
		add("status", nullIfEmpty(req.Status))
	}

	if len(sets) == 1 {
		http.Error(w, "no fields to update", 400)
		return
	}

	sqlStr := fmt.Sprintf(`UPDATE external_inventory AS e SET %s WHERE e.id = $%d RETURNING %s`,
		strings.Join(sets, ", "), arg, externalInventoryColumns)
	args = append(args, id)

	var e models.ExternalInventory
	err := scanExternalInventory(s.DB.QueryRowContext(r.Context(), sqlStr, args...).Scan, &e)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "external_id already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.externalOut(e)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// deleteExternalInventory handles deleting an external inventory row. Links
// to assets detach with the row; the assets stay.
func (s *Server) deleteExternalInventory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM external_inventory WHERE id = $1`, id)
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

// linkExternalInventoryAsset handles attaching an asset to an external row.
// Linking twice is a no-op.
func (s *Server) linkExternalInventoryAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		AssetID int64 `json:"asset_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if req.AssetID == 0 {
		sendValidationError(w, "asset_id", "asset_id is required")
		return
	}

	_, err := s.DB.ExecContext(r.Context(), `
		INSERT INTO external_inventory_assets (external_inventory_id, asset_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, id, req.AssetID)
	if err != nil {
		if isFKViolation(err) {
			sendValidationError(w, "asset_id", "external row or asset does not exist")
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	var e models.ExternalInventory
	err = scanExternalInventory(s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM external_inventory e WHERE e.id = $1`, externalInventoryColumns), id).Scan, &e)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.externalOut(e)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// unlinkExternalInventoryAsset handles detaching an asset from an external
// row.
func (s *Server) unlinkExternalInventoryAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	assetID := chi.URLParam(r, "assetID")

	res, err := s.DB.ExecContext(r.Context(), `
		DELETE FROM external_inventory_assets
		WHERE external_inventory_id = $1 AND asset_id = $2`, id, assetID)
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
