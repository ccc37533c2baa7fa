package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"
)

// Row outcomes as they appear in the import log.
const (
	OutcomeSuccess = "Success"
	OutcomeWarning = "Warning"
	OutcomeFailure = "Failure"
)

// dateLayout is the spreadsheet date format the export tools produce.
const dateLayout = "02.01.2006"

// ImportOptions defines the configuration for bulk import operations
type ImportOptions struct {
	Format    string // "csv" or "xlsx"
	DryRun    bool
	MaxErrors int // default 50
}

// RowResult is the per-row entry of the import log.
type RowResult struct {
	Row     int    `json:"row"`
	Serial  string `json:"serial,omitempty"`
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`
}

// ImportSummary contains the overall import statistics
type ImportSummary struct {
	Created int         `json:"created"`
	Updated int         `json:"updated"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
	Rows    []RowResult `json:"rows"`
	DryRun  bool        `json:"dry_run"`
}

// importedRow is one parsed spreadsheet row.
type importedRow struct {
	vendor          string
	partnumber      string
	quantity        *int
	price           *decimal.Decimal
	serial          string
	serialActual    string
	orderContract   string
	project         string
	serviceFrom     *time.Time
	serviceTo       *time.Time
	serviceContract string
	servicePrice    *decimal.Decimal
}

// hasService reports whether the row carries any service columns.
func (r *importedRow) hasService() bool {
	return r.serviceFrom != nil || r.serviceTo != nil || r.serviceContract != "" || r.servicePrice != nil
}

// ImportFile processes a CSV or XLSX export and loads assets plus their
// service windows. The whole import runs in one transaction; a dry run rolls
// it back at the end.
func ImportFile(ctx context.Context, db *pgxpool.Pool, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	summary := ImportSummary{
		DryRun: opts.DryRun,
		Rows:   []RowResult{},
	}

	if opts.MaxErrors == 0 {
		opts.MaxErrors = 50
	}

	records, err := readRecords(r, opts.Format)
	if err != nil {
		return summary, err
	}
	if len(records) < 2 {
		return summary, errors.New("file has no data rows")
	}

	columns, err := mapHeader(records[0])
	if err != nil {
		return summary, err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, record := range records[1:] {
		rowNum := i + 2 // 1-based, after the header

		if blankRecord(record) {
			continue
		}

		row, err := parseRow(record, columns)
		if err != nil {
			summary.Failed++
			summary.Rows = append(summary.Rows, RowResult{Row: rowNum, Outcome: OutcomeFailure, Message: err.Error()})
			if summary.Failed > opts.MaxErrors {
				return summary, fmt.Errorf("too many errors (%d), stopping import", summary.Failed)
			}
			continue
		}

		result := importRow(ctx, tx, row, &summary)
		result.Row = rowNum
		result.Serial = row.serial
		summary.Rows = append(summary.Rows, result)
		if result.Outcome == OutcomeFailure {
			summary.Failed++
			if summary.Failed > opts.MaxErrors {
				return summary, fmt.Errorf("too many errors (%d), stopping import", summary.Failed)
			}
		}
	}

	if opts.DryRun {
		return summary, tx.Rollback(ctx)
	}
	return summary, tx.Commit(ctx)
}

// readRecords normalizes both input formats into rows of cells. XLSX input
// reads the first sheet only.
func readRecords(r io.Reader, format string) ([][]string, error) {
	switch format {
	case "csv", "":
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		records, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		return records, nil
	case "xlsx":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		xlFile, err := xlsx.OpenBinary(data)
		if err != nil {
			return nil, fmt.Errorf("failed to open XLSX file: %w", err)
		}
		if len(xlFile.Sheets) == 0 {
			return nil, errors.New("XLSX file has no sheets")
		}
		sheet := xlFile.Sheets[0]
		records := [][]string{}
		for rowIdx := 0; rowIdx < sheet.MaxRow; rowIdx++ {
			row, err := sheet.Row(rowIdx)
			if err != nil {
				break
			}
			cells := make([]string, 0, sheet.MaxCol)
			for colIdx := 0; colIdx < sheet.MaxCol; colIdx++ {
				cell := row.GetCell(colIdx)
				if cell == nil {
					cells = append(cells, "")
					continue
				}
				cells = append(cells, strings.TrimSpace(cell.String()))
			}
			records = append(records, cells)
		}
		return records, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// mapHeader resolves known column names to their indexes. Unknown columns are
// ignored so exports with extra bookkeeping columns still import.
func mapHeader(header []string) (map[string]int, error) {
	known := map[string]bool{
		"manufacturer": true, "part_nmr": true, "quantity": true, "contract_price": true,
		"sn_original": true, "sn_actual": true, "order_contract": true, "project": true,
		"service_from": true, "service_to": true, "service_contract": true, "service_price": true,
	}
	columns := map[string]int{}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if known[name] {
			columns[name] = i
		}
	}
	if _, ok := columns["sn_original"]; !ok {
		return nil, errors.New("missing required column: sn_original")
	}
	return columns, nil
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cellAt(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseRow(record []string, columns map[string]int) (*importedRow, error) {
	row := &importedRow{
		vendor:          cellAt(record, columns, "manufacturer"),
		partnumber:      cellAt(record, columns, "part_nmr"),
		serial:          cellAt(record, columns, "sn_original"),
		serialActual:    cellAt(record, columns, "sn_actual"),
		orderContract:   cellAt(record, columns, "order_contract"),
		project:         cellAt(record, columns, "project"),
		serviceContract: cellAt(record, columns, "service_contract"),
	}

	if row.serial == "" {
		return nil, errors.New("sn_original is required")
	}
	if row.serialActual == "" {
		row.serialActual = row.serial
	}

	if v := cellAt(record, columns, "quantity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid quantity: %s", v)
		}
		row.quantity = &n
	}
	if v := cellAt(record, columns, "contract_price"); v != "" {
		d, err := decimal.NewFromString(normalizePrice(v))
		if err != nil || d.IsNegative() {
			return nil, fmt.Errorf("invalid contract_price: %s", v)
		}
		row.price = &d
	}
	if v := cellAt(record, columns, "service_price"); v != "" {
		d, err := decimal.NewFromString(normalizePrice(v))
		if err != nil || d.IsNegative() {
			return nil, fmt.Errorf("invalid service_price: %s", v)
		}
		row.servicePrice = &d
	}
	if v := cellAt(record, columns, "service_from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, fmt.Errorf("invalid service_from: %s", v)
		}
		row.serviceFrom = &t
	}
	if v := cellAt(record, columns, "service_to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, fmt.Errorf("invalid service_to: %s", v)
		}
		row.serviceTo = &t
	}
	if row.serviceFrom != nil && row.serviceTo != nil && row.serviceFrom.After(*row.serviceTo) {
		return nil, errors.New("service_from cannot be after service_to")
	}

	return row, nil
}

// normalizePrice strips thousands separators and currency noise the export
// tools leave in price cells.
func normalizePrice(v string) string {
	v = strings.ReplaceAll(v, " ", "")
	v = strings.ReplaceAll(v, " ", "")
	if strings.Contains(v, ",") && !strings.Contains(v, ".") {
		v = strings.ReplaceAll(v, ",", ".")
	} else {
		v = strings.ReplaceAll(v, ",", "")
	}
	return v
}

// importRow applies one parsed row: upsert the asset by serial, then attach
// the service window if the row carries one.
func importRow(ctx context.Context, tx pgx.Tx, row *importedRow, summary *ImportSummary) RowResult {
	var orderContractID *int64
	if row.orderContract != "" {
		id, err := contractByName(ctx, tx, row.orderContract)
		if err == pgx.ErrNoRows {
			return RowResult{Outcome: OutcomeFailure, Message: "Order contract not found"}
		}
		if err != nil {
			return RowResult{Outcome: OutcomeFailure, Message: err.Error()}
		}
		orderContractID = &id
	}

	warnings := []string{}

	var assetID int64
	err := tx.QueryRow(ctx,
		`SELECT id FROM assets WHERE serial = $1 ORDER BY id LIMIT 1`, row.serial).Scan(&assetID)
	switch {
	case err == pgx.ErrNoRows:
		quantity := 1
		if row.quantity != nil {
			quantity = *row.quantity
		}
		price := decimal.Zero
		if row.price != nil {
			price = *row.price
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO assets (serial, serial_actual, partnumber, project, vendor, quantity, price, order_contract_id)
			VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
			RETURNING id`,
			row.serial, row.serialActual, row.partnumber, row.project, row.vendor,
			quantity, price, orderContractID).Scan(&assetID)
		if err != nil {
			return RowResult{Outcome: OutcomeFailure, Message: err.Error()}
		}
		summary.Created++
	case err != nil:
		return RowResult{Outcome: OutcomeFailure, Message: err.Error()}
	default:
		// Existing serial: refresh the row instead of duplicating it.
		_, err := tx.Exec(ctx, `
			UPDATE assets
			SET serial_actual     = $2,
			    partnumber        = COALESCE(NULLIF($3, ''), partnumber),
			    project           = COALESCE(NULLIF($4, ''), project),
			    vendor            = COALESCE(NULLIF($5, ''), vendor),
			    quantity          = COALESCE($6, quantity),
			    price             = COALESCE($7, price),
			    order_contract_id = COALESCE($8, order_contract_id),
			    updated_at        = now()
			WHERE id = $1`,
			assetID, row.serialActual, row.partnumber, row.project, row.vendor,
			row.quantity, row.price, orderContractID)
		if err != nil {
			return RowResult{Outcome: OutcomeFailure, Message: err.Error()}
		}
		summary.Updated++
		warnings = append(warnings, "asset already exists, updated")
	}

	if row.hasService() {
		var serviceContractID *int64
		if row.serviceContract != "" {
			id, err := contractByName(ctx, tx, row.serviceContract)
			if err == pgx.ErrNoRows {
				return RowResult{Outcome: OutcomeFailure, Message: "Service contract not found"}
			}
			if err != nil {
				return RowResult{Outcome: OutcomeFailure, Message: err.Error()}
			}
			serviceContractID = &id
		}

		price := decimal.Zero
		if row.servicePrice != nil {
			price = *row.servicePrice
		}

		// A duplicate is the same contract, dates and price; a differing
		// price is a new service window.
		var existing int64
		err := tx.QueryRow(ctx, `
			SELECT id FROM asset_services
			WHERE asset_id = $1
			  AND contract_id IS NOT DISTINCT FROM $2
			  AND service_start IS NOT DISTINCT FROM $3
			  AND service_end IS NOT DISTINCT FROM $4
			  AND price = $5`,
			assetID, serviceContractID, row.serviceFrom, row.serviceTo, price).Scan(&existing)
		switch {
		case err == pgx.ErrNoRows:
			_, err := tx.Exec(ctx, `
				INSERT INTO asset_services (asset_id, contract_id, service_start, service_end, price)
				VALUES ($1, $2, $3, $4, $5)`,
				assetID, serviceContractID, row.serviceFrom, row.serviceTo, price)
			if err != nil {
				return RowResult{Outcome: OutcomeFailure, Message: err.Error()}
			}
		case err != nil:
			return RowResult{Outcome: OutcomeFailure, Message: err.Error()}
		default:
			summary.Skipped++
			warnings = append(warnings, "duplicate service skipped")
		}
	}

	if len(warnings) > 0 {
		return RowResult{Outcome: OutcomeWarning, Message: strings.Join(warnings, "; ")}
	}
	return RowResult{Outcome: OutcomeSuccess}
}

func contractByName(ctx context.Context, tx pgx.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM contracts WHERE name = $1 OR name_internal = $1`, name).Scan(&id)
	return id, err
}
