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

const contractorColumns = `id, name, company, address, tenant, created_at, updated_at`

func scanContractor(scan func(dest ...any) error, c *models.Contractor, extra ...any) error {
	dest := []any{&c.ID, &c.Name, &c.Company, &c.Address, &c.Tenant, &c.CreatedAt, &c.UpdatedAt}
	dest = append(dest, extra...)
	return scan(dest...)
}

// listContractors handles contractor listing with filters and pagination
func (s *Server) listContractors(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	if v := strings.TrimSpace(r.URL.Query().Get("tenant")); v != "" {
		clauses = append(clauses, fmt.Sprintf("tenant = $%d", arg))
		args = append(args, v)
		arg++
	}
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR company ILIKE $%d)", arg, arg))
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
		FROM contractors%s`, contractorColumns, whereClause)

	allowedSort := map[string]string{
		"id":         "id",
		"name":       "name",
		"company":    "company",
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

	contractors := []interface{}{}
	var totalCount int
	for rows.Next() {
		var c models.Contractor
		if err := scanContractor(rows.Scan, &c, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		contractors = append(contractors, c)
	}

	sendListResponse(w, contractors, totalCount, params)
}

// getContractor handles getting a single contractor by ID
func (s *Server) getContractor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var c models.Contractor
	err := scanContractor(s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM contractors WHERE id = $1`, contractorColumns), id).Scan, &c)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(c); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// createContractor handles creating a new contractor
func (s *Server) createContractor(w http.ResponseWriter, r *http.Request) {
	var req models.CreateContractorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		sendValidationError(w, "name", "name is required")
		return
	}

	var c models.Contractor
	err := scanContractor(s.DB.QueryRowContext(r.Context(), fmt.Sprintf(`
		INSERT INTO contractors (name, company, address, tenant)
		VALUES ($1, $2, $3, $4)
		RETURNING %s`, contractorColumns),
		req.Name, nullIfEmpty(req.Company), nullIfEmpty(req.Address), nullIfEmpty(req.Tenant)).Scan, &c)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(c); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// updateContractor handles updating an existing contractor
func (s *Server) updateContractor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateContractorRequest
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
	if req.Company != nil {
		sets = append(sets, fmt.Sprintf("company = $%d", arg))
		args = append(args, nullIfEmpty(req.Company))
		arg++
	}
	if req.Address != nil {
		sets = append(sets, fmt.Sprintf("address = $%d", arg))
		args = append(args, nullIfEmpty(req.Address))
		arg++
	}
	if req.Tenant != nil {
		sets = append(sets, fmt.Sprintf("tenant = $%d", arg))
		args = append(args, nullIfEmpty(req.Tenant))
		arg++
	}

	if len(sets) == 1 {
		http.Error(w, "no fields to update", 400)
		return
	}

	sqlStr := fmt.Sprintf(`UPDATE contractors SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), arg, contractorColumns)
	args = append(args, id)

	var c models.Contractor
	err := scanContractor(s.DB.QueryRowContext(r.Context(), sqlStr, args...).Scan, &c)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(c); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// deleteContractor handles deleting a contractor. Contracts protect the row.
func (s *Server) deleteContractor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM contractors WHERE id = $1`, id)
	if err != nil {
		if isFKViolation(err) {
			http.Error(w, "contractor is referenced by contracts", http.StatusConflict)
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
