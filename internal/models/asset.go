package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is the core internally-tracked inventory record. Serial may evolve
// over time through RMA completions; SerialActual keeps the serial the asset
// was first registered with.
type Asset struct {
	ID               int64           `json:"id"`
	Serial           string          `json:"serial"`
	SerialActual     string          `json:"serial_actual"`
	Partnumber       *string         `json:"partnumber,omitempty"`
	AssetNumber      *string         `json:"asset_number,omitempty"`
	Project          *string         `json:"project,omitempty"`
	Vendor           *string         `json:"vendor,omitempty"`
	Quantity         int             `json:"quantity"`
	Price            decimal.Decimal `json:"price"`
	AssignmentStatus string          `json:"assignment_status"`
	LifecycleStatus  string          `json:"lifecycle_status"`
	WarrantyStart    *time.Time      `json:"warranty_start,omitempty"`
	WarrantyEnd      *time.Time      `json:"warranty_end,omitempty"`
	AssignedKind     *string         `json:"assigned_kind,omitempty"`
	AssignedID       *int64          `json:"assigned_id,omitempty"`
	AssignedName     *string         `json:"assigned_name,omitempty"`
	OrderContractID  *int64          `json:"order_contract_id,omitempty"`
	TypeID           *int64          `json:"type_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// AssignmentColor returns the presentation color for the asset's assignment
// status.
func (a *Asset) AssignmentColor() string {
	return AssignmentStatusColor(a.AssignmentStatus)
}

// LifecycleColor returns the presentation color for the asset's lifecycle
// status.
func (a *Asset) LifecycleColor() string {
	return LifecycleStatusColor(a.LifecycleStatus)
}

// CreateAssetRequest is the request body for creating an asset.
type CreateAssetRequest struct {
	Serial           string           `json:"serial"`
	SerialActual     *string          `json:"serial_actual,omitempty"`
	Partnumber       *string          `json:"partnumber,omitempty"`
	AssetNumber      *string          `json:"asset_number,omitempty"`
	Project          *string          `json:"project,omitempty"`
	Vendor           *string          `json:"vendor,omitempty"`
	Quantity         *int             `json:"quantity,omitempty"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	AssignmentStatus *string          `json:"assignment_status,omitempty"`
	LifecycleStatus  *string          `json:"lifecycle_status,omitempty"`
	WarrantyStart    *time.Time       `json:"warranty_start,omitempty"`
	WarrantyEnd      *time.Time       `json:"warranty_end,omitempty"`
	AssignedKind     *string          `json:"assigned_kind,omitempty"`
	AssignedID       *int64           `json:"assigned_id,omitempty"`
	AssignedName     *string          `json:"assigned_name,omitempty"`
	OrderContractID  *int64           `json:"order_contract_id,omitempty"`
	TypeID           *int64           `json:"type_id,omitempty"`
}

// UpdateAssetRequest is the request body for updating an asset. nil fields
// are left untouched.
type UpdateAssetRequest struct {
	Serial           *string          `json:"serial,omitempty"`
	SerialActual     *string          `json:"serial_actual,omitempty"`
	Partnumber       *string          `json:"partnumber,omitempty"`
	AssetNumber      *string          `json:"asset_number,omitempty"`
	Project          *string          `json:"project,omitempty"`
	Vendor           *string          `json:"vendor,omitempty"`
	Quantity         *int             `json:"quantity,omitempty"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	AssignmentStatus *string          `json:"assignment_status,omitempty"`
	LifecycleStatus  *string          `json:"lifecycle_status,omitempty"`
	WarrantyStart    *time.Time       `json:"warranty_start,omitempty"`
	WarrantyEnd      *time.Time       `json:"warranty_end,omitempty"`
	AssignedKind     *string          `json:"assigned_kind,omitempty"`
	AssignedID       *int64           `json:"assigned_id,omitempty"`
	AssignedName     *string          `json:"assigned_name,omitempty"`
	OrderContractID  *int64           `json:"order_contract_id,omitempty"`
	TypeID           *int64           `json:"type_id,omitempty"`
}
