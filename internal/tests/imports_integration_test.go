//go:build integration

package tests

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"inventory-monitor-api/internal/models"
	"inventory-monitor-api/internal/testutil"
	"inventory-monitor-api/pkg/importer"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadCSV(t *testing.T, csvBody string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "assets.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csvBody))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/imports/file", &buf)
	req.Header.Set("Authorization", "Bearer "+authToken(t, "admin"))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	testServer.Router.ServeHTTP(w, req)
	return w
}

func TestImportCSV(t *testing.T) {
	testutil.RequireIntegration(t)

	// The order contract rows refer to by name.
	w := doRequest(t, "POST", "/contracts", models.CreateContractRequest{Name: "Import Order 2025"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	csvBody := "manufacturer,part_nmr,quantity,contract_price,sn_original,order_contract,project,service_from,service_to,service_price\n" +
		"Cisco,PN-100,2,1500.00,IMP-SN-1,Import Order 2025,Backbone,01.01.2025,31.12.2025,99.50\n" +
		"Juniper,PN-200,1,800.00,IMP-SN-2,Missing Contract,Edge,,,\n" +
		"Cisco,PN-100,3,1400.00,IMP-SN-1,Import Order 2025,Backbone,,,\n"

	resp := uploadCSV(t, csvBody)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out struct {
		Data importer.ImportSummary `json:"data"`
	}
	decodeBody(t, resp, &out)

	assert.Equal(t, 1, out.Data.Created)
	assert.Equal(t, 1, out.Data.Updated)
	assert.Equal(t, 1, out.Data.Failed)
	require.Len(t, out.Data.Rows, 3)

	assert.Equal(t, importer.OutcomeSuccess, out.Data.Rows[0].Outcome)
	assert.Equal(t, importer.OutcomeFailure, out.Data.Rows[1].Outcome)
	assert.Equal(t, "Order contract not found", out.Data.Rows[1].Message)
	assert.Equal(t, importer.OutcomeWarning, out.Data.Rows[2].Outcome)

	// The duplicate row refreshed the asset instead of duplicating it.
	list := doRequest(t, "GET", "/assets?serial=IMP-SN-1", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var assets struct {
		Data []models.Asset `json:"data"`
		Page struct {
			Total int `json:"total"`
		} `json:"page"`
	}
	decodeBody(t, list, &assets)
	require.Equal(t, 1, assets.Page.Total)
	assert.Equal(t, 3, assets.Data[0].Quantity)
	assert.True(t, assets.Data[0].Price.Equal(decimal.NewFromInt(1400)))
}

func TestImportDuplicateServiceSkipped(t *testing.T) {
	testutil.RequireIntegration(t)

	csvBody := "sn_original,service_from,service_to,service_price\n" +
		"IMP-SVC-1,01.02.2025,28.02.2025,10.00\n"

	first := uploadCSV(t, csvBody)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	second := uploadCSV(t, csvBody)
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())

	var out struct {
		Data importer.ImportSummary `json:"data"`
	}
	decodeBody(t, second, &out)
	require.Len(t, out.Data.Rows, 1)
	assert.Equal(t, importer.OutcomeWarning, out.Data.Rows[0].Outcome)
	assert.Equal(t, 1, out.Data.Skipped)

	// Same dates but a different price is a new service, not a duplicate.
	repriced := "sn_original,service_from,service_to,service_price\n" +
		"IMP-SVC-1,01.02.2025,28.02.2025,12.00\n"
	third := uploadCSV(t, repriced)
	require.Equal(t, http.StatusOK, third.Code, third.Body.String())

	decodeBody(t, third, &out)
	require.Len(t, out.Data.Rows, 1)
	assert.Equal(t, 0, out.Data.Skipped)

	services := serviceCountForSerial(t, "IMP-SVC-1")
	assert.Equal(t, 2, services)
}

func serviceCountForSerial(t *testing.T, serial string) int {
	t.Helper()
	var n int
	err := testDB.QueryRow(`
		SELECT COUNT(*) FROM asset_services s
		JOIN assets a ON s.asset_id = a.id
		WHERE a.serial = $1`, serial).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestImportDryRunRollsBack(t *testing.T) {
	testutil.RequireIntegration(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("dry_run", "true"))
	fw, err := mw.CreateFormFile("file", "assets.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("sn_original\nIMP-DRY-1\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/imports/file", &buf)
	req.Header.Set("Authorization", "Bearer "+authToken(t, "admin"))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	testServer.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	list := doRequest(t, "GET", "/assets?serial=IMP-DRY-1", nil)
	var assets struct {
		Page struct {
			Total int `json:"total"`
		} `json:"page"`
	}
	decodeBody(t, list, &assets)
	assert.Equal(t, 0, assets.Page.Total)
}

func TestImportRejectsUnknownExtension(t *testing.T) {
	testutil.RequireIntegration(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "assets.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("sn_original\nX\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/imports/file", &buf)
	req.Header.Set("Authorization", "Bearer "+authToken(t, "admin"))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	testServer.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
