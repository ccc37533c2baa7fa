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

func seedContractor(t *testing.T, name string) models.Contractor {
	t.Helper()
	w := doRequest(t, "POST", "/contractors", models.CreateContractorRequest{Name: name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var c models.Contractor
	decodeBody(t, w, &c)
	return c
}

type contractBody struct {
	models.Contract
	ContractType string `json:"contract_type"`
}

func TestContractHierarchy(t *testing.T) {
	testutil.RequireIntegration(t)

	acme := seedContractor(t, "Acme Networks")
	other := seedContractor(t, "Other Corp")

	// Master contract owned by Acme.
	w := doRequest(t, "POST", "/contracts", models.CreateContractRequest{
		Name:         "Frame Agreement 2025",
		ContractorID: &acme.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var master contractBody
	decodeBody(t, w, &master)
	assert.Equal(t, "contract", master.ContractType)

	// Subcontract under the master, same contractor.
	w = doRequest(t, "POST", "/contracts", models.CreateContractRequest{
		Name:         "Order 2025-01",
		ParentID:     &master.ID,
		ContractorID: &acme.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sub contractBody
	decodeBody(t, w, &sub)
	assert.Equal(t, "subcontract", sub.ContractType)

	t.Run("SubcontractCannotBeParent", func(t *testing.T) {
		w := doRequest(t, "POST", "/contracts", models.CreateContractRequest{
			Name:         "Order 2025-02",
			ParentID:     &sub.ID,
			ContractorID: &acme.ID,
		})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Error string `json:"error"`
			Field string `json:"field"`
		}
		decodeBody(t, w, &resp)
		assert.Equal(t, "parent", resp.Field)
		assert.Equal(t, "Subcontract cannot be set as Parent Contract", resp.Error)
	})

	t.Run("ContractorMustMatchParent", func(t *testing.T) {
		w := doRequest(t, "POST", "/contracts", models.CreateContractRequest{
			Name:         "Order 2025-03",
			ParentID:     &master.ID,
			ContractorID: &other.ID,
		})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Error string `json:"error"`
			Field string `json:"field"`
		}
		decodeBody(t, w, &resp)
		assert.Equal(t, "contractor", resp.Field)
		assert.Equal(t, "Contractor must be same as Parent contractor: Acme Networks", resp.Error)
	})

	t.Run("ContractorMustMatchContractorlessParent", func(t *testing.T) {
		w := doRequest(t, "POST", "/contracts", models.CreateContractRequest{Name: "Orphan Master"})
		require.Equal(t, http.StatusCreated, w.Code)
		var orphan contractBody
		decodeBody(t, w, &orphan)

		// The parent has no contractor, so the subcontract may not name one.
		w = doRequest(t, "POST", "/contracts", models.CreateContractRequest{
			Name:         "Order 2025-04",
			ParentID:     &orphan.ID,
			ContractorID: &acme.ID,
		})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Field string `json:"field"`
		}
		decodeBody(t, w, &resp)
		assert.Equal(t, "contractor", resp.Field)
	})

	t.Run("ParentWithChildrenCannotBecomeSub", func(t *testing.T) {
		w := doRequest(t, "POST", "/contracts", models.CreateContractRequest{
			Name:         "Another Master",
			ContractorID: &acme.ID,
		})
		require.Equal(t, http.StatusCreated, w.Code)
		var another contractBody
		decodeBody(t, w, &another)

		// Try to move the master (which has a subcontract) under it.
		w = doRequest(t, "PUT", fmt.Sprintf("/contracts/%d", master.ID),
			models.UpdateContractRequest{ParentID: &another.ID, ContractorID: &acme.ID})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Field string `json:"field"`
		}
		decodeBody(t, w, &resp)
		assert.Equal(t, "parent", resp.Field)
	})

	t.Run("InvoicingDateOrder", func(t *testing.T) {
		start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
		w := doRequest(t, "POST", "/contracts", models.CreateContractRequest{
			Name:           "Bad Dates",
			InvoicingStart: &start,
			InvoicingEnd:   &end,
		})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Error string `json:"error"`
			Field string `json:"field"`
		}
		decodeBody(t, w, &resp)
		assert.Equal(t, "invoicing_start", resp.Field)
		assert.Equal(t, "Invoicing Start cannot be set after Invoicing End", resp.Error)
	})

	t.Run("MasterOnlyFilter", func(t *testing.T) {
		w := doRequest(t, "GET", "/contracts?master_only=true", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []contractBody `json:"data"`
		}
		decodeBody(t, w, &resp)
		for _, c := range resp.Data {
			assert.Nil(t, c.ParentID, "master_only returned subcontract %s", c.Name)
		}
	})

	t.Run("SubcontractTypeFilter", func(t *testing.T) {
		w := doRequest(t, "GET", "/contracts?contract_type=subcontract", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []contractBody `json:"data"`
		}
		decodeBody(t, w, &resp)
		require.NotEmpty(t, resp.Data)
		for _, c := range resp.Data {
			assert.NotNil(t, c.ParentID)
		}
	})

	t.Run("DeleteProtectedByChildren", func(t *testing.T) {
		w := doRequest(t, "DELETE", fmt.Sprintf("/contracts/%d", master.ID), nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("DeleteContractorProtected", func(t *testing.T) {
		w := doRequest(t, "DELETE", fmt.Sprintf("/contractors/%d", acme.ID), nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestInvoiceDateRule(t *testing.T) {
	testutil.RequireIntegration(t)

	w := doRequest(t, "POST", "/contracts", models.CreateContractRequest{Name: "Invoice Holder"})
	require.Equal(t, http.StatusCreated, w.Code)
	var holder contractBody
	decodeBody(t, w, &holder)

	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	w = doRequest(t, "POST", "/invoices", models.CreateInvoiceRequest{
		Name:           "INV-1",
		ContractID:     holder.ID,
		InvoicingStart: &start,
		InvoicingEnd:   &end,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	decodeBody(t, w, &resp)
	assert.Equal(t, "invoicing_start", resp.Field)
	assert.Equal(t, "Invoicing Start cannot be set after Invoicing End", resp.Error)
}
