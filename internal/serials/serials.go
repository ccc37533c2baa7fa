// Package serials resolves the serial history of an asset and the probes that
// observed any serial in it. History is always recomputed from the RMA log,
// never materialized.
package serials

import (
	"context"
	"database/sql"
	"time"

	"inventory-monitor-api/internal/models"
)

// Querier is the read-only slice of database/sql needed by the resolver. Both
// *sql.DB and *sql.Tx satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// History returns every serial ever associated with the asset: the current and
// original serials plus each RMA's original and replacement serial. Empty
// strings are dropped and duplicates collapse, preserving first-seen order.
func History(ctx context.Context, q Querier, assetID int64) ([]string, error) {
	var serial, serialActual string
	err := q.QueryRowContext(ctx,
		`SELECT serial, serial_actual FROM assets WHERE id = $1`,
		assetID).Scan(&serial, &serialActual)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	out := make([]string, 0, 4)
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	add(serial)
	add(serialActual)

	rows, err := q.QueryContext(ctx,
		`SELECT original_serial, replacement_serial FROM rmas WHERE asset_id = $1 ORDER BY id`,
		assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var original, replacement string
		if err := rows.Scan(&original, &replacement); err != nil {
			return nil, err
		}
		add(original)
		add(replacement)
	}
	return out, rows.Err()
}

// RelatedProbes returns all probes whose serial appears in the asset's serial
// history, newest first, ties broken by descending id. Adding an RMA can only
// grow the result.
func RelatedProbes(ctx context.Context, q Querier, assetID int64, now time.Time, recentDays int) ([]models.Probe, error) {
	history, err := History(ctx, q, assetID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return []models.Probe{}, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, time, creation_time, serial, name, part, category,
		       device_id, device_descriptor, site_descriptor, location_descriptor,
		       description, discovered_data,
		       COUNT(*) OVER (PARTITION BY serial) AS changes_count
		FROM probes
		WHERE serial = ANY($1)
		ORDER BY time DESC, id DESC`, history)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cutoff := now.AddDate(0, 0, -recentDays)
	probes := []models.Probe{}
	for rows.Next() {
		var p models.Probe
		if err := rows.Scan(
			&p.ID, &p.Time, &p.CreationTime, &p.Serial, &p.Name, &p.Part, &p.Category,
			&p.DeviceID, &p.DeviceDescriptor, &p.SiteDescriptor, &p.LocationDescriptor,
			&p.Description, &p.DiscoveredData, &p.ChangesCount,
		); err != nil {
			return nil, err
		}
		p.Recent = !p.Time.Before(cutoff)
		probes = append(probes, p)
	}
	return probes, rows.Err()
}
