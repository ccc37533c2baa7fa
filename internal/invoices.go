package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"inventory-monitor-api/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const invoiceColumns = `id, name, name_internal, price, project, invoicing_start, invoicing_end,
	contract_id, created_at, updated_at`

func scanInvoice(scan func(dest ...any) error, i *models.Invoice, extra ...any) error {
	dest := []any{
		&i.ID, &i.Name, &i.NameInternal, &i.Price, &i.Project,
		&i.InvoicingStart, &i.InvoicingEnd, &i.ContractID, &i.CreatedAt, &i.UpdatedAt,
	}
	dest = append(dest, extra...)
	return scan(dest...)
}

// listInvoices handles invoice listing with filters and pagination
func (s *Server) listInvoices(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	values := r.URL.Query()

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	if v := strings.TrimSpace(values.Get("contract_id")); v != "" {
		clauses = append(clauses, fmt.Sprintf("contract_id = $%d", arg))
		args = append(args, v)
		arg++
	}
	if v := strings.TrimSpace(values.Get("project")); v != "" {
		clauses = append(clauses, fmt.Sprintf("project ILIKE $%d", arg))
		args = append(args, "%"+v+"%")
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
		FROM invoices%s`, invoiceColumns, whereClause)

	allowedSort := map[string]string{
		"id":              "id",
		"name":            "name",
		"price":           "price",
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

	invoices := []interface{}{}
	var totalCount int
	for rows.Next() {
		var i models.Invoice
		if err := scanInvoice(rows.Scan, &i, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		invoices = append(invoices, i)
	}

	sendListResponse(w, invoices, totalCount, params)
}

// getInvoice handles getting a single invoice by ID
func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var i models.Invoice
	err := scanInvoice(s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1`, invoiceColumns), id).Scan, &i)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(i); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// createInvoice handles creating a new invoice
func (s *Server) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		sendValidationError(w, "name", "name is required")
		return
	}
	if req.ContractID == 0 {
		sendValidationError(w, "contract_id", "contract_id is required")
		return
	}
	nameInternal := req.Name
	if req.NameInternal != nil && strings.TrimSpace(*req.NameInternal) != "" {
		nameInternal = *req.NameInternal
	}
	price := decimal.Zero
	if req.Price != nil {
		if req.Price.IsNegative() {
			sendValidationError(w, "price", "price must not be negative")
			return
		}
		price = *req.Price
	}
	if req.InvoicingStart != nil && req.InvoicingEnd != nil && req.InvoicingStart.After(*req.InvoicingEnd) {
		sendValidationError(w, "invoicing_start", "Invoicing Start cannot be set after Invoicing End")
		return
	}

	var i models.Invoice
	err := scanInvoice(s.DB.QueryRowContext(r.Context(), fmt.Sprintf(`
		INSERT INTO invoices (name, name_internal, price, project, invoicing_start, invoicing_end, contract_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, invoiceColumns),
		req.Name, nameInternal, price, nullIfEmpty(req.Project),
		req.InvoicingStart, req.InvoicingEnd, req.ContractID).Scan, &i)
	if err != nil {
		if isFKViolation(err) {
			sendValidationError(w, "contract_id", "contract does not exist")
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(i); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// updateInvoice handles updating an existing invoice. The date-order rule is
// checked against the merged row.
func (s *Server) updateInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	if req.Price != nil && req.Price.IsNegative() {
		sendValidationError(w, "price", "price must not be negative")
		return
	}

	var out models.Invoice
	err := inTx(r.Context(), s.DB, func(tx *sql.Tx) error {
		var current models.Invoice
		err := scanInvoice(tx.QueryRowContext(r.Context(),
			fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1 FOR UPDATE`, invoiceColumns), id).Scan, &current)
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
		if req.Price != nil {
			next.Price = *req.Price
		}
		if req.Project != nil {
			next.Project = req.Project
		}
		if req.InvoicingStart != nil {
			next.InvoicingStart = req.InvoicingStart
		}
		if req.InvoicingEnd != nil {
			next.InvoicingEnd = req.InvoicingEnd
		}
		if req.ContractID != nil {
			next.ContractID = *req.ContractID
		}

		if next.InvoicingStart != nil && next.InvoicingEnd != nil && next.InvoicingStart.After(*next.InvoicingEnd) {
			return fieldError{field: "invoicing_start", msg: "Invoicing Start cannot be set after Invoicing End"}
		}

		return scanInvoice(tx.QueryRowContext(r.Context(), fmt.Sprintf(`
			UPDATE invoices
			SET name = $1, name_internal = $2, price = $3, project = $4,
			    invoicing_start = $5, invoicing_end = $6, contract_id = $7, updated_at = now()
			WHERE id = $8
			RETURNING %s`, invoiceColumns),
			next.Name, next.NameInternal, next.Price, next.Project,
			next.InvoicingStart, next.InvoicingEnd, next.ContractID, id).Scan, &out)
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
	if err := json.NewEncoder(w).Encode(out); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// deleteInvoice handles deleting an invoice
func (s *Server) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM invoices WHERE id = $1`, id)
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
