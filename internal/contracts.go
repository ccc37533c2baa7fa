package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"inventory-monitor-api/internal/models"

	"github.com/go-chi/chi/v5"
)

const contractColumns = `id, name, name_internal, type, price, signed, accepted,
	invoicing_start, invoicing_end, parent_id, contractor_id, created_at, updated_at`

// contractResponse decorates a contract with its derived tree role.
type contractResponse struct {
	models.Contract
	ContractType string `json:"contract_type"`
}

func contractOut(c models.Contract) contractResponse {
	return contractResponse{Contract: c, ContractType: c.ContractType()}
}

func scanContract(scan func(dest ...any) error, c *models.Contract, extra ...any) error {
	dest := []any{
		&c.ID, &c.Name, &c.NameInternal, &c.Type, &c.Price, &c.Signed, &c.Accepted,
		&c.InvoicingStart, &c.InvoicingEnd, &c.ParentID, &c.ContractorID,
		&c.CreatedAt, &c.UpdatedAt,
	}
	dest = append(dest, extra...)
	return scan(dest...)
}

// validateContractHierarchy enforces the two-level contract tree. The tree
// never goes deeper than master -> subcontract, and a subcontract always
// shares its parent's contractor.
func validateContractHierarchy(ctx context.Context, q querier, contractID *int64, parentID, contractorID *int64) error {
	if parentID == nil {
		return nil
	}
	if contractID != nil && *contractID == *parentID {
		return fieldError{field: "parent", msg: "Subcontract cannot be set as Parent Contract"}
	}

	var parentParentID, parentContractorID *int64
	var parentContractorName sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT c.parent_id, c.contractor_id, co.name
		FROM contracts c
		LEFT JOIN contractors co ON c.contractor_id = co.id
		WHERE c.id = $1`, *parentID).Scan(&parentParentID, &parentContractorID, &parentContractorName)
	if err == sql.ErrNoRows {
		return fieldError{field: "parent", msg: "Parent contract does not exist"}
	}
	if err != nil {
		return err
	}

	if parentParentID != nil {
		return fieldError{field: "parent", msg: "Subcontract cannot be set as Parent Contract"}
	}
	// The subcontract's contractor must match the parent's exactly, a
	// missing contractor on either side included.
	mismatch := (parentContractorID == nil) != (contractorID == nil) ||
		(parentContractorID != nil && contractorID != nil && *contractorID != *parentContractorID)
	if mismatch {
		return fieldError{field: "contractor",
			msg: "Contractor must be same as Parent contractor: " + parentContractorName.String}
	}

	// A contract that already has subcontracts cannot itself become one.
	if contractID != nil {
		var children int
		err := q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM contracts WHERE parent_id = $1`, *contractID).Scan(&children)
		if err != nil {
			return err
		}
		if children > 0 {
			return fieldError{field: "parent", msg: "Subcontract cannot be set as Parent Contract"}
		}
	}
	return nil
}

// listContracts handles contract listing with filters and pagination
func (s *Server) listContracts(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	values := r.URL.Query()

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	if values.Get("master_only") == "true" {
		clauses = append(clauses, "parent_id IS NULL")
	}
	switch values.Get("contract_type") {
	case "contract":
		clauses = append(clauses, "parent_id IS NULL")
	case "subcontract":
		clauses = append(clauses, "parent_id IS NOT NULL")
	}
	if v := strings.TrimSpace(values.Get("type")); v != "" {
		clauses = append(clauses, fmt.Sprintf("type = $%d", arg))
		args = append(args, v)
		arg++
	}
	if v := strings.TrimSpace(values.Get("contractor_id")); v != "" {
		clauses = append(clauses, fmt.Sprintf("contractor_id = $%d", arg))
		args = append(args, v)
		arg++
	}
	if v := strings.TrimSpace(values.Get("parent_id")); v != "" {
		clauses = append(clauses, fmt.Sprintf("parent_id = $%d", arg))
		args = append(args, v)
		arg++
	}
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR name_internal ILIKE $%d)", arg, arg))
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
		FROM contracts%s`, contractColumns, whereClause)

	allowedSort := map[string]string{
		"id":              "id",
		"name":            "name",
		"name_internal":   "name_internal",
		"type":            "type",
		"price":           "price",
		"signed":          "signed",
		"invoicing_start": "invoicing_start",
		"invoicing_end":   "invoicing_end",
		"created_at":      "created_at",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort)
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	contracts := []interface{}{}
	var totalCount int
	for rows.Next() {
		var c models.Contract
		if err := scanContract(rows.Scan, &c, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		contracts = append(contracts, contractOut(c))
	}

	sendListResponse(w, contracts, totalCount, params)
}

// getContract handles getting a single contract by ID
func (s *Server) getContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var c models.Contract
	err := scanContract(s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM contracts WHERE id = $1`, contractColumns), id).Scan, &c)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(contractOut(c)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// createContract handles creating a new contract
func (s *Server) createContract(w http.ResponseWriter, r *http.Request) {
	var req models.CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		sendValidationError(w, "name", "name is required")
		return
	}
	nameInternal := req.Name
	if req.NameInternal != nil && strings.TrimSpace(*req.NameInternal) != "" {
		nameInternal = *req.NameInternal
	}
	ctype := models.ContractOther
	if req.Type != nil {
		if !models.ValidContractType(*req.Type) {
			sendValidationError(w, "type", "unknown contract type")
			return
		}
		ctype = *req.Type
	}
	if req.Price != nil && req.Price.IsNegative() {
		sendValidationError(w, "price", "price must not be negative")
		return
	}
	if req.InvoicingStart != nil && req.InvoicingEnd != nil && req.InvoicingStart.After(*req.InvoicingEnd) {
		sendValidationError(w, "invoicing_start", "Invoicing Start cannot be set after Invoicing End")
		return
	}

	if err := validateContractHierarchy(r.Context(), s.DB, nil, req.ParentID, req.ContractorID); err != nil {
		if ferr, ok := err.(fieldError); ok {
			sendValidationError(w, ferr.field, ferr.msg)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	var c models.Contract
	err := scanContract(s.DB.QueryRowContext(r.Context(), fmt.Sprintf(`
		INSERT INTO contracts (name, name_internal, type, price, signed, accepted,
		                       invoicing_start, invoicing_end, parent_id, contractor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING %s`, contractColumns),
		req.Name, nameInternal, ctype, req.Price, req.Signed, req.Accepted,
		req.InvoicingStart, req.InvoicingEnd, req.ParentID, req.ContractorID).Scan, &c)
	if err != nil {
		if isFKViolation(err) {
			http.Error(w, "referenced parent or contractor does not exist", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(contractOut(c)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// updateContract handles updating an existing contract. Hierarchy rules are
// checked against the merged row so partial updates cannot sneak past them.
func (s *Server) updateContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	if req.Type != nil && !models.ValidContractType(*req.Type) {
		sendValidationError(w, "type", "unknown contract type")
		return
	}
	if req.Price != nil && req.Price.IsNegative() {
		sendValidationError(w, "price", "price must not be negative")
		return
	}

	var out models.Contract
	err := inTx(r.Context(), s.DB, func(tx *sql.Tx) error {
		var current models.Contract
		err := scanContract(tx.QueryRowContext(r.Context(),
			fmt.Sprintf(`SELECT %s FROM contracts WHERE id = $1 FOR UPDATE`, contractColumns), id).Scan, &current)
		if err != nil {
			return err
		}

		next := current
		if req.Name != nil {
			if strings.TrimSpace(*req.Name) == "" {
				return fieldError{field: "name", msg: "name must not be empty"}
			}
			next.Name = *req.Name
		}
		if req.NameInternal != nil {
			next.NameInternal = *req.NameInternal
		}
		if req.Type != nil {
			next.Type = *req.Type
		}
		if req.Price != nil {
			next.Price = req.Price
		}
		if req.Signed != nil {
			next.Signed = req.Signed
		}
		if req.Accepted != nil {
			next.Accepted = req.Accepted
		}
		if req.InvoicingStart != nil {
			next.InvoicingStart = req.InvoicingStart
		}
		if req.InvoicingEnd != nil {
			next.InvoicingEnd = req.InvoicingEnd
		}
		if req.ParentID != nil {
			next.ParentID = req.ParentID
		}
		if req.ContractorID != nil {
			next.ContractorID = req.ContractorID
		}

		if next.InvoicingStart != nil && next.InvoicingEnd != nil && next.InvoicingStart.After(*next.InvoicingEnd) {
			return fieldError{field: "invoicing_start", msg: "Invoicing Start cannot be set after Invoicing End"}
		}
		if err := validateContractHierarchy(r.Context(), tx, &current.ID, next.ParentID, next.ContractorID); err != nil {
			return err
		}

		return scanContract(tx.QueryRowContext(r.Context(), fmt.Sprintf(`
			UPDATE contracts
			SET name = $1, name_internal = $2, type = $3, price = $4, signed = $5, accepted = $6,
			    invoicing_start = $7, invoicing_end = $8, parent_id = $9, contractor_id = $10,
			    updated_at = now()
			WHERE id = $11
			RETURNING %s`, contractColumns),
			next.Name, next.NameInternal, next.Type, next.Price, next.Signed, next.Accepted,
			next.InvoicingStart, next.InvoicingEnd, next.ParentID, next.ContractorID,
			id).Scan, &out)
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
			http.Error(w, "referenced parent or contractor does not exist", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(contractOut(out)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// deleteContract handles deleting a contract. Subcontracts, invoices, assets
// and services protect the row.
func (s *Server) deleteContract(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		if isFKViolation(err) {
			http.Error(w, "contract is referenced by subcontracts, invoices, assets or services", http.StatusConflict)
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
