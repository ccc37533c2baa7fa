//go:build integration

package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"inventory-monitor-api/internal/models"
	"inventory-monitor-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProbe(t *testing.T, serial string, deviceID *int64, at time.Time) models.Probe {
	t.Helper()
	req := models.CreateProbeRequest{
		Time:     &at,
		Serial:   serial,
		Name:     "optic-" + serial,
		DeviceID: deviceID,
		DiscoveredData: map[string]interface{}{
			"seen_at": at.Format(time.RFC3339),
		},
	}
	w := doRequest(t, "POST", "/probes", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var probe models.Probe
	decodeBody(t, w, &probe)
	return probe
}

func int64Ptr(v int64) *int64 { return &v }

func TestProbeIngestionAndLatest(t *testing.T) {
	testutil.RequireIntegration(t)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// Two serials, observations out of order; SER-A seen on two devices.
	seedProbe(t, "SER-A", int64Ptr(10), base)
	latestA := seedProbe(t, "SER-A", int64Ptr(11), base.Add(2*time.Hour))
	seedProbe(t, "SER-A", int64Ptr(10), base.Add(time.Hour))
	latestB := seedProbe(t, "SER-B", nil, base.Add(30*time.Minute))

	t.Run("ListAll", func(t *testing.T) {
		w := doRequest(t, "GET", "/probes?serial=SER-A", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []models.Probe `json:"data"`
			Page struct {
				Total int `json:"total"`
			} `json:"page"`
		}
		decodeBody(t, w, &resp)
		assert.Equal(t, 3, resp.Page.Total)
		// Newest first.
		require.NotEmpty(t, resp.Data)
		assert.Equal(t, latestA.ID, resp.Data[0].ID)
	})

	t.Run("LatestOnly", func(t *testing.T) {
		w := doRequest(t, "GET", "/probes?latest_only=true", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []models.Probe `json:"data"`
		}
		decodeBody(t, w, &resp)

		bySerial := map[string]models.Probe{}
		for _, p := range resp.Data {
			_, dup := bySerial[p.Serial]
			assert.False(t, dup, "serial %s appears twice in latest_only", p.Serial)
			bySerial[p.Serial] = p
		}
		require.Contains(t, bySerial, "SER-A")
		require.Contains(t, bySerial, "SER-B")
		assert.Equal(t, latestA.ID, bySerial["SER-A"].ID)
		assert.Equal(t, latestB.ID, bySerial["SER-B"].ID)
		// Three observations of SER-A total.
		assert.Equal(t, 3, bySerial["SER-A"].ChangesCount)
	})

	t.Run("LatestOnlyPerDevice", func(t *testing.T) {
		w := doRequest(t, "GET", "/probes?latest_only_per_device=true&serial=SER-A", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []models.Probe `json:"data"`
		}
		decodeBody(t, w, &resp)

		// One row per (serial, device) pair: devices 10 and 11.
		require.Len(t, resp.Data, 2)
		seen := map[int64]bool{}
		for _, p := range resp.Data {
			require.NotNil(t, p.DeviceID)
			seen[*p.DeviceID] = true
		}
		assert.True(t, seen[10])
		assert.True(t, seen[11])
	})

	t.Run("TimeWindow", func(t *testing.T) {
		from := base.Add(90 * time.Minute).Format(time.RFC3339)
		w := doRequest(t, "GET", "/probes?serial=SER-A&time_from="+from, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []models.Probe `json:"data"`
		}
		decodeBody(t, w, &resp)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, latestA.ID, resp.Data[0].ID)
	})

	t.Run("LatestTieGoesToHighestID", func(t *testing.T) {
		tie := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		first := seedProbe(t, "SER-TIE", nil, tie)
		second := seedProbe(t, "SER-TIE", nil, tie)
		require.Greater(t, second.ID, first.ID)

		w := doRequest(t, "GET", "/probes?latest_only=true&serial=SER-TIE", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []models.Probe `json:"data"`
		}
		decodeBody(t, w, &resp)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, second.ID, resp.Data[0].ID)
	})
}

func TestProbeValidation(t *testing.T) {
	testutil.RequireIntegration(t)

	now := time.Now().UTC()

	cases := []struct {
		name  string
		body  models.CreateProbeRequest
		field string
	}{
		{"MissingSerial", models.CreateProbeRequest{Time: &now, Name: "x"}, "serial"},
		{"MissingName", models.CreateProbeRequest{Time: &now, Serial: "X1"}, "name"},
		{"MissingTime", models.CreateProbeRequest{Serial: "X1", Name: "x"}, "time"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(t, "POST", "/probes", tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var resp struct {
				Field string `json:"field"`
			}
			decodeBody(t, w, &resp)
			assert.Equal(t, tc.field, resp.Field)
		})
	}
}

func TestProbeBulkDelete(t *testing.T) {
	testutil.RequireIntegration(t)

	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	p1 := seedProbe(t, "SER-DEL", nil, at)
	p2 := seedProbe(t, "SER-DEL", nil, at.Add(time.Minute))

	t.Run("EditorForbidden", func(t *testing.T) {
		w := doRequestAs(t, "POST", "/probes/bulk-delete",
			map[string][]int64{"ids": {p1.ID}}, "editor")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("AdminDeletes", func(t *testing.T) {
		w := doRequest(t, "POST", "/probes/bulk-delete",
			map[string][]int64{"ids": {p1.ID, p2.ID}})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Deleted int `json:"deleted"`
		}
		decodeBody(t, w, &resp)
		assert.Equal(t, 2, resp.Deleted)

		get := doRequest(t, "GET", fmt.Sprintf("/probes/%d", p1.ID), nil)
		assert.Equal(t, http.StatusNotFound, get.Code)
	})
}
