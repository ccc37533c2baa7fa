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

func seedAsset(t *testing.T, serial string) models.Asset {
	t.Helper()
	w := doRequest(t, "POST", "/assets", models.CreateAssetRequest{Serial: serial})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var asset models.Asset
	decodeBody(t, w, &asset)
	return asset
}

func auditCount(t *testing.T, assetID int64) int {
	t.Helper()
	var n int
	err := testDB.QueryRow(`SELECT COUNT(*) FROM asset_audit WHERE asset_id = $1`, assetID).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestRMASerialSwap(t *testing.T) {
	testutil.RequireIntegration(t)

	asset := seedAsset(t, "RMA-ORIG-1")

	// Open the RMA without naming the original serial; it is taken from the
	// asset at creation time.
	w := doRequest(t, "POST", "/rmas", models.CreateRMARequest{AssetID: asset.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rma models.RMA
	decodeBody(t, w, &rma)
	assert.Equal(t, "RMA-ORIG-1", rma.OriginalSerial)
	assert.Equal(t, "investigating", rma.Status)

	t.Run("CompleteSwapsSerial", func(t *testing.T) {
		status := "completed"
		replacement := "RMA-REPL-1"
		w := doRequest(t, "PUT", fmt.Sprintf("/rmas/%d", rma.ID),
			models.UpdateRMARequest{Status: &status, ReplacementSerial: &replacement})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var updated models.RMA
		decodeBody(t, w, &updated)
		assert.Equal(t, "completed", updated.Status)
		require.NotNil(t, updated.DateReplaced)

		// date_replaced is a date; the response matches a later read.
		get := doRequest(t, "GET", fmt.Sprintf("/rmas/%d", rma.ID), nil)
		var fetched models.RMA
		decodeBody(t, get, &fetched)
		require.NotNil(t, fetched.DateReplaced)
		assert.True(t, updated.DateReplaced.Equal(*fetched.DateReplaced))

		get = doRequest(t, "GET", fmt.Sprintf("/assets/%d", asset.ID), nil)
		require.Equal(t, http.StatusOK, get.Code)

		var after models.Asset
		decodeBody(t, get, &after)
		assert.Equal(t, "RMA-REPL-1", after.Serial)
		// The registered serial never moves.
		assert.Equal(t, "RMA-ORIG-1", after.SerialActual)

		// The pre-image of the swap is on the audit trail.
		assert.Equal(t, 1, auditCount(t, asset.ID))
	})

	t.Run("RepeatCompletionIsIdempotent", func(t *testing.T) {
		status := "completed"
		replacement := "RMA-REPL-1"
		w := doRequest(t, "PUT", fmt.Sprintf("/rmas/%d", rma.ID),
			models.UpdateRMARequest{Status: &status, ReplacementSerial: &replacement})
		require.Equal(t, http.StatusOK, w.Code)

		// No second swap, no second audit row.
		assert.Equal(t, 1, auditCount(t, asset.ID))

		get := doRequest(t, "GET", fmt.Sprintf("/assets/%d", asset.ID), nil)
		var after models.Asset
		decodeBody(t, get, &after)
		assert.Equal(t, "RMA-REPL-1", after.Serial)
	})

	t.Run("EditingStaleCompletedRMAKeepsSerial", func(t *testing.T) {
		// A newer RMA moves the asset on again.
		status := "completed"
		replacement := "RMA-REPL-2"
		w := doRequest(t, "POST", "/rmas", models.CreateRMARequest{
			AssetID:           asset.ID,
			Status:            &status,
			ReplacementSerial: &replacement,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.Equal(t, 2, auditCount(t, asset.ID))

		// An unrelated edit of the older completed RMA must not re-apply
		// its replacement serial.
		note := "vendor shipped a refurb"
		w = doRequest(t, "PUT", fmt.Sprintf("/rmas/%d", rma.ID),
			models.UpdateRMARequest{VendorResponse: &note})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		get := doRequest(t, "GET", fmt.Sprintf("/assets/%d", asset.ID), nil)
		var after models.Asset
		decodeBody(t, get, &after)
		assert.Equal(t, "RMA-REPL-2", after.Serial)
		assert.Equal(t, 2, auditCount(t, asset.ID))
	})
}

func TestRMACompleteWithoutReplacement(t *testing.T) {
	testutil.RequireIntegration(t)

	asset := seedAsset(t, "RMA-NOREPL-1")

	w := doRequest(t, "POST", "/rmas", models.CreateRMARequest{AssetID: asset.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rma models.RMA
	decodeBody(t, w, &rma)

	// Completing with nothing to swap to records the status change only.
	status := "completed"
	w = doRequest(t, "PUT", fmt.Sprintf("/rmas/%d", rma.ID),
		models.UpdateRMARequest{Status: &status})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	get := doRequest(t, "GET", fmt.Sprintf("/assets/%d", asset.ID), nil)
	var after models.Asset
	decodeBody(t, get, &after)
	assert.Equal(t, "RMA-NOREPL-1", after.Serial)
	assert.Equal(t, 0, auditCount(t, asset.ID))
}

func TestRMACreatedCompleted(t *testing.T) {
	testutil.RequireIntegration(t)

	asset := seedAsset(t, "RMA-ORIG-2")

	status := "completed"
	replacement := "RMA-REPL-2"
	w := doRequest(t, "POST", "/rmas", models.CreateRMARequest{
		AssetID:           asset.ID,
		Status:            &status,
		ReplacementSerial: &replacement,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	get := doRequest(t, "GET", fmt.Sprintf("/assets/%d", asset.ID), nil)
	var after models.Asset
	decodeBody(t, get, &after)
	assert.Equal(t, "RMA-REPL-2", after.Serial)
	assert.Equal(t, "RMA-ORIG-2", after.SerialActual)
}

func TestAssetSerialHistoryProbes(t *testing.T) {
	testutil.RequireIntegration(t)

	asset := seedAsset(t, "HIST-1")

	// RMA chain HIST-1 -> HIST-2.
	status := "completed"
	replacement := "HIST-2"
	w := doRequest(t, "POST", "/rmas", models.CreateRMARequest{
		AssetID:           asset.ID,
		Status:            &status,
		ReplacementSerial: &replacement,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	old := seedProbe(t, "HIST-1", nil, base)
	recent := seedProbe(t, "HIST-2", nil, time.Now().UTC())
	seedProbe(t, "HIST-UNRELATED", nil, base)

	get := doRequest(t, "GET", fmt.Sprintf("/assets/%d/probes", asset.ID), nil)
	require.Equal(t, http.StatusOK, get.Code, get.Body.String())

	var probes []models.Probe
	decodeBody(t, get, &probes)

	require.Len(t, probes, 2)
	// Newest first; recency flag tracks the probe window.
	assert.Equal(t, recent.ID, probes[0].ID)
	assert.True(t, probes[0].Recent)
	assert.Equal(t, old.ID, probes[1].ID)
	assert.False(t, probes[1].Recent)
}
