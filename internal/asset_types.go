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

const assetTypeColumns = `id, name, slug, description, color, created_at, updated_at`

func scanAssetType(scan func(dest ...any) error, t *models.AssetType, extra ...any) error {
	dest := []any{&t.ID, &t.Name, &t.Slug, &t.Description, &t.Color, &t.CreatedAt, &t.UpdatedAt}
	dest = append(dest, extra...)
	return scan(dest...)
}

// slugify derives a URL-safe slug from a display name.
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// listAssetTypes handles asset type listing with pagination
func (s *Server) listAssetTypes(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR slug ILIKE $%d)", arg, arg))
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
		FROM asset_types%s`, assetTypeColumns, whereClause)

	allowedSort := map[string]string{
		"id":         "id",
		"name":       "name",
		"slug":       "slug",
		"created_at": "created_at",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort)
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	types := []interface{}{}
	var totalCount int
	for rows.Next() {
		var t models.AssetType
		if err := scanAssetType(rows.Scan, &t, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		types = append(types, t)
	}

	sendListResponse(w, types, totalCount, params)
}

// getAssetType handles getting a single asset type by ID
func (s *Server) getAssetType(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var t models.AssetType
	err := scanAssetType(s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM asset_types WHERE id = $1`, assetTypeColumns), id).Scan, &t)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(t); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// createAssetType handles creating a new asset type
func (s *Server) createAssetType(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssetTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		sendValidationError(w, "name", "name is required")
		return
	}
	slug := slugify(req.Name)
	if req.Slug != nil && strings.TrimSpace(*req.Slug) != "" {
		slug = slugify(*req.Slug)
	}
	if slug == "" {
		sendValidationError(w, "slug", "slug cannot be derived from name")
		return
	}

	var t models.AssetType
	err := scanAssetType(s.DB.QueryRowContext(r.Context(), fmt.Sprintf(`
		INSERT INTO asset_types (name, slug, description, color)
		VALUES ($1, $2, $3, $4)
		RETURNING %s`, assetTypeColumns),
		req.Name, slug, nullIfEmpty(req.Description), nullIfEmpty(req.Color)).Scan, &t)
	if err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "asset type name or slug already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(t); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// updateAssetType handles updating an existing asset type
func (s *Server) updateAssetType(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateAssetTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	sets := []string{"updated_at = now()"}
	args := []interface{}{}
	arg := 1

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			sendValidationError(w, "name", "name must not be empty")
			return
		}
		sets = append(sets, fmt.Sprintf("name = $%d", arg))
		args = append(args, *req.Name)
		arg++
	}
	if req.Slug != nil {
		slug := slugify(*req.Slug)
		if slug == "" {
			sendValidationError(w, "slug", "slug must not be empty")
			return
		}
		sets = append(sets, fmt.Sprintf("slug = $%d", arg))
		args = append(args, slug)
		arg++
	}
	if req.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", arg))
		args = append(args, nullIfEmpty(req.Description))
		arg++
	}
	if req.Color != nil {
		sets = append(sets, fmt.Sprintf("color = $%d", arg))
		args = append(args, nullIfEmpty(req.Color))
		arg++
	}

	if len(sets) == 1 {
		http.Error(w, "no fields to update", 400)
		return
	}

	sqlStr := fmt.Sprintf(`UPDATE asset_types SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), arg, assetTypeColumns)
	args = append(args, id)

	var t models.AssetType
	err := scanAssetType(s.DB.QueryRowContext(r.Context(), sqlStr, args...).Scan, &t)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "asset type name or slug already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(t); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// deleteAssetType handles deleting an asset type. Assets protect the row.
func (s *Server) deleteAssetType(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM asset_types WHERE id = $1`, id)
	if err != nil {
		if isFKViolation(err) {
			http.Error(w, "asset type is referenced by assets", http.StatusConflict)
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
