package models

import "time"

// ExternalInventory mirrors a row from an outside inventory system. Rows link
// many-to-many with internal assets; neither side owns the other.
type ExternalInventory struct {
	ID              int64     `json:"id"`
	ExternalID      string    `json:"external_id"`
	InventoryNumber *string   `json:"inventory_number,omitempty"`
	Name            *string   `json:"name,omitempty"`
	SerialNumber    *string   `json:"serial_number,omitempty"`
	PersonCode      *string   `json:"person_code,omitempty"`
	LocationCode    *string   `json:"location_code,omitempty"`
	DepartmentCode  *string   `json:"department_code,omitempty"`
	ProjectCode     *string   `json:"project_code,omitempty"`
	UserNote        *string   `json:"user_note,omitempty"`
	Status          *string   `json:"status,omitempty"`
	AssetIDs        []int64   `json:"asset_ids"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StatusDisplay is the presentation of an external status code, resolved from
// injected configuration.
type StatusDisplay struct {
	Code    string `json:"code"`
	Label   string `json:"label"`
	Color   string `json:"color"`
	Tooltip string `json:"tooltip,omitempty"`
}

// CreateExternalInventoryRequest is the request body for creating an external
// inventory row.
type CreateExternalInventoryRequest struct {
	ExternalID      string  `json:"external_id"`
	InventoryNumber *string `json:"inventory_number,omitempty"`
	Name            *string `json:"name,omitempty"`
	SerialNumber    *string `json:"serial_number,omitempty"`
	PersonCode      *string `json:"person_code,omitempty"`
	LocationCode    *string `json:"location_code,omitempty"`
	DepartmentCode  *string `json:"department_code,omitempty"`
	ProjectCode     *string `json:"project_code,omitempty"`
	UserNote        *string `json:"user_note,omitempty"`
	Status          *string `json:"status,omitempty"`
}

// UpdateExternalInventoryRequest is the request body for updating an external
// inventory row.
type UpdateExternalInventoryRequest struct {
	ExternalID      *string `json:"external_id,omitempty"`
	InventoryNumber *string `json:"inventory_number,omitempty"`
	Name            *string `json:"name,omitempty"`
	SerialNumber    *string `json:"serial_number,omitempty"`
	PersonCode      *string `json:"person_code,omitempty"`
	LocationCode    *string `json:"location_code,omitempty"`
	DepartmentCode  *string `json:"department_code,omitempty"`
	ProjectCode     *string `json:"project_code,omitempty"`
	UserNote        *string `json:"user_note,omitempty"`
	Status          *string `json:"status,omitempty"`
}
