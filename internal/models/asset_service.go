package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetService is a maintenance or support window purchased for an asset,
// optionally tied to a service contract.
type AssetService struct {
	ID             int64           `json:"id"`
	AssetID        int64           `json:"asset_id"`
	ContractID     *int64          `json:"contract_id,omitempty"`
	ServiceStart   *time.Time      `json:"service_start,omitempty"`
	ServiceEnd     *time.Time      `json:"service_end,omitempty"`
	Price          decimal.Decimal `json:"price"`
	Category       *string         `json:"category,omitempty"`
	CategoryVendor *string         `json:"category_vendor,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CreateAssetServiceRequest is the request body for creating an asset service.
type CreateAssetServiceRequest struct {
	AssetID        int64            `json:"asset_id"`
	ContractID     *int64           `json:"contract_id,omitempty"`
	ServiceStart   *time.Time       `json:"service_start,omitempty"`
	ServiceEnd     *time.Time       `json:"service_end,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Category       *string          `json:"category,omitempty"`
	CategoryVendor *string          `json:"category_vendor,omitempty"`
}

// UpdateAssetServiceRequest is the request body for updating an asset service.
type UpdateAssetServiceRequest struct {
	ContractID     *int64           `json:"contract_id,omitempty"`
	ServiceStart   *time.Time       `json:"service_start,omitempty"`
	ServiceEnd     *time.Time       `json:"service_end,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Category       *string          `json:"category,omitempty"`
	CategoryVendor *string          `json:"category_vendor,omitempty"`
}
