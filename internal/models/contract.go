package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Contract is one level of the two-level contract tree: a master contract has
// no parent, a subcontract has exactly one and can never itself be a parent.
type Contract struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	NameInternal   string           `json:"name_internal"`
	Type           string           `json:"type"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Signed         *time.Time       `json:"signed,omitempty"`
	Accepted       *time.Time       `json:"accepted,omitempty"`
	InvoicingStart *time.Time       `json:"invoicing_start,omitempty"`
	InvoicingEnd   *time.Time       `json:"invoicing_end,omitempty"`
	ParentID       *int64           `json:"parent_id,omitempty"`
	ContractorID   *int64           `json:"contractor_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// ContractType derives "subcontract" vs "contract" from parent presence.
func (c *Contract) ContractType() string {
	if c.ParentID != nil {
		return "subcontract"
	}
	return "contract"
}

// CreateContractRequest is the request body for creating a contract.
type CreateContractRequest struct {
	Name           string           `json:"name"`
	NameInternal   *string          `json:"name_internal,omitempty"`
	Type           *string          `json:"type,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Signed         *time.Time       `json:"signed,omitempty"`
	Accepted       *time.Time       `json:"accepted,omitempty"`
	InvoicingStart *time.Time       `json:"invoicing_start,omitempty"`
	InvoicingEnd   *time.Time       `json:"invoicing_end,omitempty"`
	ParentID       *int64           `json:"parent_id,omitempty"`
	ContractorID   *int64           `json:"contractor_id,omitempty"`
}

// UpdateContractRequest is the request body for updating a contract. nil
// fields are left untouched; explicit nulls cannot clear parent or contractor
// through this shape, clearing goes through dedicated zero values.
type UpdateContractRequest struct {
	Name           *string          `json:"name,omitempty"`
	NameInternal   *string          `json:"name_internal,omitempty"`
	Type           *string          `json:"type,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Signed         *time.Time       `json:"signed,omitempty"`
	Accepted       *time.Time       `json:"accepted,omitempty"`
	InvoicingStart *time.Time       `json:"invoicing_start,omitempty"`
	InvoicingEnd   *time.Time       `json:"invoicing_end,omitempty"`
	ParentID       *int64           `json:"parent_id,omitempty"`
	ContractorID   *int64           `json:"contractor_id,omitempty"`
}

// Contractor owns contracts; deletion is blocked while contracts reference it.
type Contractor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Company   *string   `json:"company,omitempty"`
	Address   *string   `json:"address,omitempty"`
	Tenant    *string   `json:"tenant,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateContractorRequest is the request body for creating a contractor.
type CreateContractorRequest struct {
	Name    string  `json:"name"`
	Company *string `json:"company,omitempty"`
	Address *string `json:"address,omitempty"`
	Tenant  *string `json:"tenant,omitempty"`
}

// UpdateContractorRequest is the request body for updating a contractor.
type UpdateContractorRequest struct {
	Name    *string `json:"name,omitempty"`
	Company *string `json:"company,omitempty"`
	Address *string `json:"address,omitempty"`
	Tenant  *string `json:"tenant,omitempty"`
}

// Invoice belongs to exactly one contract.
type Invoice struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	NameInternal   string          `json:"name_internal"`
	Price          decimal.Decimal `json:"price"`
	Project        *string         `json:"project,omitempty"`
	InvoicingStart *time.Time      `json:"invoicing_start,omitempty"`
	InvoicingEnd   *time.Time      `json:"invoicing_end,omitempty"`
	ContractID     int64           `json:"contract_id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CreateInvoiceRequest is the request body for creating an invoice.
type CreateInvoiceRequest struct {
	Name           string           `json:"name"`
	NameInternal   *string          `json:"name_internal,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Project        *string          `json:"project,omitempty"`
	InvoicingStart *time.Time       `json:"invoicing_start,omitempty"`
	InvoicingEnd   *time.Time       `json:"invoicing_end,omitempty"`
	ContractID     int64            `json:"contract_id"`
}

// UpdateInvoiceRequest is the request body for updating an invoice.
type UpdateInvoiceRequest struct {
	Name           *string          `json:"name,omitempty"`
	NameInternal   *string          `json:"name_internal,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Project        *string          `json:"project,omitempty"`
	InvoicingStart *time.Time       `json:"invoicing_start,omitempty"`
	InvoicingEnd   *time.Time       `json:"invoicing_end,omitempty"`
	ContractID     *int64           `json:"contract_id,omitempty"`
}
