package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
)

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx so handlers and the
// RMA engine can share query code inside and outside transactions.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// inTx runs fn inside a transaction, rolling back on error or panic.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// validationError is the field-scoped error payload for rejected writes.
type validationError struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

// fieldError carries a field-scoped validation failure out of a transaction.
type fieldError struct {
	field string
	msg   string
}

func (e fieldError) Error() string { return e.msg }

// sendValidationError reports a field-scoped validation failure. The write is
// rejected; nothing else about the request state changes.
func sendValidationError(w http.ResponseWriter, field, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(validationError{Error: message, Field: field})
}

// isUniqueViolation sniffs a unique-constraint failure from the driver error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}

// isFKViolation sniffs a foreign-key (protected relation) failure.
func isFKViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "foreign key")
}
