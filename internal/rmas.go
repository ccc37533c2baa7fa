package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"inventory-monitor-api/internal/models"

	"github.com/go-chi/chi/v5"
)

const rmaColumns = `id, rma_number, asset_id, original_serial, replacement_serial, status,
	date_issued, date_replaced, issue_description, vendor_response, created_at, updated_at`

func scanRMA(scan func(dest ...any) error, m *models.RMA, extra ...any) error {
	dest := []any{
		&m.ID, &m.RMANumber, &m.AssetID, &m.OriginalSerial, &m.ReplacementSerial, &m.Status,
		&m.DateIssued, &m.DateReplaced, &m.IssueDescription, &m.VendorResponse,
		&m.CreatedAt, &m.UpdatedAt,
	}
	dest = append(dest, extra...)
	return scan(dest...)
}

// listRMAs handles RMA listing with filters and pagination
func (s *Server) listRMAs(w http.ResponseWriter, r *http.Request) {
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
	if v := strings.TrimSpace(values.Get("status")); v != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", arg))
		args = append(args, v)
		arg++
	}
	if v := strings.TrimSpace(values.Get("serial")); v != "" {
		clauses = append(clauses, fmt.Sprintf("(original_serial = $%d OR replacement_serial = $%d)", arg, arg))
		args = append(args, v)
		arg++
	}
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf(
			"(rma_number ILIKE $%d OR original_serial ILIKE $%d OR replacement_serial ILIKE $%d OR issue_description ILIKE $%d)",
			arg, arg, arg, arg))
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
		FROM rmas%s`, rmaColumns, whereClause)

	allowedSort := map[string]string{
		"id":            "id",
		"rma_number":    "rma_number",
		"status":        "status",
		"date_issued":   "date_issued",
		"date_replaced": "date_replaced",
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

	rmas := []interface{}{}
	var totalCount int
	for rows.Next() {
		var m models.RMA
		if err := scanRMA(rows.Scan, &m, &totalCount); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		rmas = append(rmas, m)
	}

	sendListResponse(w, rmas, totalCount, params)
}

// getRMA handles getting a single RMA by ID
func (s *Server) getRMA(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var m models.RMA
	err := scanRMA(s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM rmas WHERE id = $1`, rmaColumns), id).Scan, &m)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(m); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// createRMA handles opening an RMA. The original serial defaults to the
// asset's current serial at creation time, so a chain of RMAs records each
// hop of the serial history.
func (s *Server) createRMA(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRMARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	if req.AssetID == 0 {
		sendValidationError(w, "asset_id", "asset_id is required")
		return
	}

	status := models.RMAInvestigating
	if req.Status != nil {
		if !models.ValidRMAStatus(*req.Status) {
			sendValidationError(w, "status", "unknown RMA status")
			return
		}
		status = *req.Status
	}

	replacement := ""
	if req.ReplacementSerial != nil {
		replacement = strings.TrimSpace(*req.ReplacementSerial)
	}

	var out models.RMA
	err := inTx(r.Context(), s.DB, func(tx *sql.Tx) error {
		var currentSerial string
		err := tx.QueryRowContext(r.Context(),
			`SELECT serial FROM assets WHERE id = $1 FOR UPDATE`, req.AssetID).Scan(&currentSerial)
		if err != nil {
			return err
		}

		original := currentSerial
		if req.OriginalSerial != nil && strings.TrimSpace(*req.OriginalSerial) != "" {
			original = strings.TrimSpace(*req.OriginalSerial)
		}

		err = scanRMA(tx.QueryRowContext(r.Context(), fmt.Sprintf(`
			INSERT INTO rmas (rma_number, asset_id, original_serial, replacement_serial, status,
			                  date_issued, date_replaced, issue_description, vendor_response)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING %s`, rmaColumns),
			nullIfEmpty(req.RMANumber), req.AssetID, original, replacement, status,
			req.DateIssued, req.DateReplaced,
			nullIfEmpty(req.IssueDescription), nullIfEmpty(req.VendorResponse)).Scan, &out)
		if err != nil {
			return err
		}

		// An RMA born completed swaps the serial immediately. Without a
		// replacement serial the completion is recorded but the asset is
		// left alone.
		if status == models.RMACompleted && out.ReplacementSerial != "" {
			return s.swapAssetSerial(r.Context(), tx, &out, currentSerial)
		}
		return nil
	})
	if err == sql.ErrNoRows {
		sendValidationError(w, "asset_id", "asset does not exist")
		return
	}
	if err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "RMA number already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(out); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// swapAssetSerial applies a completed RMA to its asset: the asset's current
// serial becomes the replacement serial. The asset row must already be locked
// by the caller's transaction. No-op when the serial already matches, which
// makes repeated completion idempotent.
func (s *Server) swapAssetSerial(ctx context.Context, tx *sql.Tx, m *models.RMA, currentSerial string) error {
	if currentSerial == m.ReplacementSerial {
		return nil
	}
	if err := auditAsset(ctx, tx, m.AssetID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE assets SET serial = $1, updated_at = now() WHERE id = $2`,
		m.ReplacementSerial, m.AssetID)
	if err != nil {
		return err
	}
	if m.DateReplaced == nil {
		// date_replaced is a DATE column; store and echo the day only so the
		// response matches subsequent reads.
		y, mo, d := time.Now().UTC().Date()
		today := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
		_, err = tx.ExecContext(ctx,
			`UPDATE rmas SET date_replaced = $1, updated_at = now() WHERE id = $2`, today, m.ID)
		if err != nil {
			return err
		}
		m.DateReplaced = &today
	}
	s.Metrics.RMACompleted()
	return nil
}

// updateRMA handles updating an RMA. Moving the status to completed swaps the
// asset's serial in the same transaction.
func (s *Server) updateRMA(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateRMARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	if req.Status != nil && !models.ValidRMAStatus(*req.Status) {
		sendValidationError(w, "status", "unknown RMA status")
		return
	}

	var out models.RMA
	err := inTx(r.Context(), s.DB, func(tx *sql.Tx) error {
		var current models.RMA
		err := scanRMA(tx.QueryRowContext(r.Context(),
			fmt.Sprintf(`SELECT %s FROM rmas WHERE id = $1 FOR UPDATE`, rmaColumns), id).Scan, &current)
		if err != nil {
			return err
		}

		next := current
		if req.RMANumber != nil {
			next.RMANumber = req.RMANumber
		}
		if req.OriginalSerial != nil {
			next.OriginalSerial = strings.TrimSpace(*req.OriginalSerial)
		}
		if req.ReplacementSerial != nil {
			next.ReplacementSerial = strings.TrimSpace(*req.ReplacementSerial)
		}
		if req.Status != nil {
			next.Status = *req.Status
		}
		if req.DateIssued != nil {
			next.DateIssued = req.DateIssued
		}
		if req.DateReplaced != nil {
			next.DateReplaced = req.DateReplaced
		}
		if req.IssueDescription != nil {
			next.IssueDescription = req.IssueDescription
		}
		if req.VendorResponse != nil {
			next.VendorResponse = req.VendorResponse
		}

		// Only the transition into completed swaps the serial. Editing an
		// already-completed RMA must not touch the asset again, and
		// completing without a replacement serial records the status change
		// but leaves the asset alone.
		completing := current.Status != models.RMACompleted &&
			next.Status == models.RMACompleted && next.ReplacementSerial != ""

		err = scanRMA(tx.QueryRowContext(r.Context(), fmt.Sprintf(`
			UPDATE rmas
			SET rma_number = $1, original_serial = $2, replacement_serial = $3, status = $4,
			    date_issued = $5, date_replaced = $6, issue_description = $7, vendor_response = $8,
			    updated_at = now()
			WHERE id = $9
			RETURNING %s`, rmaColumns),
			next.RMANumber, next.OriginalSerial, next.ReplacementSerial, next.Status,
			next.DateIssued, next.DateReplaced, next.IssueDescription, next.VendorResponse,
			id).Scan, &out)
		if err != nil {
			return err
		}

		if completing {
			var currentSerial string
			err := tx.QueryRowContext(r.Context(),
				`SELECT serial FROM assets WHERE id = $1 FOR UPDATE`, out.AssetID).Scan(&currentSerial)
			if err != nil {
				return err
			}
			return s.swapAssetSerial(r.Context(), tx, &out, currentSerial)
		}
		return nil
	})
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "RMA number already exists", http.StatusConflict)
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

// deleteRMA handles deleting an RMA. Completed RMAs stay deletable; the
// serial swap they applied is already recorded on the asset and its audit
// trail.
func (s *Server) deleteRMA(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM rmas WHERE id = $1`, id)
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
