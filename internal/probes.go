package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inventory-monitor-api/internal/models"

	"github.com/go-chi/chi/v5"
)

// listProbes handles probe listing with filters, free-text search and the
// derived latest-per-serial views.
func (s *Server) listProbes(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	values := r.URL.Query()

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	// optional serial substring filter
	if serial := strings.TrimSpace(values.Get("serial")); serial != "" {
		clauses = append(clauses, fmt.Sprintf("p.serial ILIKE $%d", arg))
		args = append(args, "%"+serial+"%")
		arg++
	}

	// optional device set filter; "null" selects probes without a device
	if deviceIDs := values["device_id"]; len(deviceIDs) > 0 {
		ids := make([]int64, 0, len(deviceIDs))
		withNull := false
		for _, raw := range deviceIDs {
			if strings.EqualFold(strings.TrimSpace(raw), "null") {
				withNull = true
				continue
			}
			if id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
		switch {
		case len(ids) > 0 && withNull:
			clauses = append(clauses, fmt.Sprintf("(p.device_id = ANY($%d) OR p.device_id IS NULL)", arg))
			args = append(args, ids)
			arg++
		case len(ids) > 0:
			clauses = append(clauses, fmt.Sprintf("p.device_id = ANY($%d)", arg))
			args = append(args, ids)
			arg++
		case withNull:
			clauses = append(clauses, "p.device_id IS NULL")
		}
	}

	// optional time range
	if from := strings.TrimSpace(values.Get("time_from")); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			clauses = append(clauses, fmt.Sprintf("p.time >= $%d", arg))
			args = append(args, t)
			arg++
		}
	}
	if to := strings.TrimSpace(values.Get("time_to")); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			clauses = append(clauses, fmt.Sprintf("p.time <= $%d", arg))
			args = append(args, t)
			arg++
		}
	}

	// free-text search across descriptor fields and description
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf(
			"(p.name ILIKE $%d OR p.part ILIKE $%d OR p.category ILIKE $%d OR p.device_descriptor ILIKE $%d OR p.site_descriptor ILIKE $%d OR p.location_descriptor ILIKE $%d OR p.description ILIKE $%d)",
			arg, arg, arg, arg, arg, arg, arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	// Derived latest views are computed over the whole log and composed with
	// the filters above as a post-filter.
	if values.Get("latest_only") == "true" {
		clauses = append(clauses, "p.id IN (SELECT DISTINCT ON (serial) id FROM probes ORDER BY serial, time DESC, id DESC)")
	} else if values.Get("latest_only_per_device") == "true" {
		clauses = append(clauses, "p.id IN (SELECT DISTINCT ON (serial, device_id) id FROM probes ORDER BY serial, device_id, time DESC, id DESC)")
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	sqlStr := fmt.Sprintf(`
		SELECT p.id, p.time, p.creation_time, p.serial, p.name, p.part, p.category,
		       p.device_id, p.device_descriptor, p.site_descriptor, p.location_descriptor,
		       p.description, p.discovered_data,
		       (SELECT COUNT(*) FROM probes c WHERE c.serial = p.serial) AS changes_count,
		       COUNT(*) OVER() as total_count
		FROM probes p%s`, whereClause)

	allowedSort := map[string]string{
		"id":            "p.id",
		"time":          "p.time",
		"serial":        "p.serial",
		"name":          "p.name",
		"creation_time": "p.creation_time",
	}
	if params.sort == "" {
		params.sort = "-time,-id"
	}
	sqlStr += buildOrderBy(params.sort, allowedSort)
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	cutoff := time.Now().AddDate(0, 0, -s.recentDays())
	probes := []interface{}{}
	var totalCount int
	for rows.Next() {
		var p models.Probe
		if err := rows.Scan(
			&p.ID, &p.Time, &p.CreationTime, &p.Serial, &p.Name, &p.Part, &p.Category,
			&p.DeviceID, &p.DeviceDescriptor, &p.SiteDescriptor, &p.LocationDescriptor,
			&p.Description, &p.DiscoveredData, &p.ChangesCount, &totalCount,
		); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		p.Recent = !p.Time.Before(cutoff)
		probes = append(probes, p)
	}

	sendListResponse(w, probes, totalCount, params)
}

// getProbe handles getting a single probe by ID
func (s *Server) getProbe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var p models.Probe
	err := s.DB.QueryRowContext(r.Context(), `
		SELECT p.id, p.time, p.creation_time, p.serial, p.name, p.part, p.category,
		       p.device_id, p.device_descriptor, p.site_descriptor, p.location_descriptor,
		       p.description, p.discovered_data,
		       (SELECT COUNT(*) FROM probes c WHERE c.serial = p.serial) AS changes_count
		FROM probes p WHERE p.id = $1`, id).Scan(
		&p.ID, &p.Time, &p.CreationTime, &p.Serial, &p.Name, &p.Part, &p.Category,
		&p.DeviceID, &p.DeviceDescriptor, &p.SiteDescriptor, &p.LocationDescriptor,
		&p.Description, &p.DiscoveredData, &p.ChangesCount)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	p.Recent = !p.Time.Before(time.Now().AddDate(0, 0, -s.recentDays()))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// createProbe handles probe ingestion. Probes are observations: a bad payload
// is rejected wholesale, an accepted probe is immutable afterwards.
func (s *Server) createProbe(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProbeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}

	if req.Time == nil {
		sendValidationError(w, "time", "time is required")
		return
	}
	if strings.TrimSpace(req.Serial) == "" {
		sendValidationError(w, "serial", "serial is required")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		sendValidationError(w, "name", "name is required")
		return
	}

	var discoveredJSON []byte
	if req.DiscoveredData != nil {
		var err error
		discoveredJSON, err = json.Marshal(req.DiscoveredData)
		if err != nil {
			http.Error(w, "invalid discovered_data JSON", 400)
			return
		}
	} else {
		discoveredJSON = []byte("{}")
	}

	var p models.Probe
	err := s.DB.QueryRowContext(r.Context(), `
		INSERT INTO probes (time, serial, name, part, category, device_id,
		                    device_descriptor, site_descriptor, location_descriptor,
		                    description, discovered_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, time, creation_time, serial, name, part, category, device_id,
		          device_descriptor, site_descriptor, location_descriptor,
		          description, discovered_data
	`, req.Time, req.Serial, req.Name, nullIfEmpty(req.Part), nullIfEmpty(req.Category),
		req.DeviceID, nullIfEmpty(req.DeviceDescriptor), nullIfEmpty(req.SiteDescriptor),
		nullIfEmpty(req.LocationDescriptor), nullIfEmpty(req.Description), discoveredJSON).Scan(
		&p.ID, &p.Time, &p.CreationTime, &p.Serial, &p.Name, &p.Part, &p.Category,
		&p.DeviceID, &p.DeviceDescriptor, &p.SiteDescriptor, &p.LocationDescriptor,
		&p.Description, &p.DiscoveredData)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if err := s.DB.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM probes WHERE serial = $1`, p.Serial).Scan(&p.ChangesCount); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	p.Recent = !p.Time.Before(time.Now().AddDate(0, 0, -s.recentDays()))
	s.Metrics.ProbeIngested()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// bulkDeleteProbes is the only way probes leave the log.
func (s *Server) bulkDeleteProbes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if len(req.IDs) == 0 {
		sendValidationError(w, "ids", "ids must not be empty")
		return
	}

	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM probes WHERE id = ANY($1)`, req.IDs)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	n, _ := res.RowsAffected()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]int64{"deleted": n}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
