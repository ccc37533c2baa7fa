package models

import "time"

// RMA is a return-merchandise authorization for an asset. Completing an RMA
// with a replacement serial swaps the owning asset's current serial; the
// original serial stays on the RMA and forms the asset's serial history.
type RMA struct {
	ID                int64      `json:"id"`
	RMANumber         *string    `json:"rma_number,omitempty"`
	AssetID           int64      `json:"asset_id"`
	OriginalSerial    string     `json:"original_serial"`
	ReplacementSerial string     `json:"replacement_serial"`
	Status            string     `json:"status"`
	DateIssued        *time.Time `json:"date_issued,omitempty"`
	DateReplaced      *time.Time `json:"date_replaced,omitempty"`
	IssueDescription  *string    `json:"issue_description,omitempty"`
	VendorResponse    *string    `json:"vendor_response,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CreateRMARequest is the request body for opening an RMA.
type CreateRMARequest struct {
	RMANumber         *string    `json:"rma_number,omitempty"`
	AssetID           int64      `json:"asset_id"`
	OriginalSerial    *string    `json:"original_serial,omitempty"`
	ReplacementSerial *string    `json:"replacement_serial,omitempty"`
	Status            *string    `json:"status,omitempty"`
	DateIssued        *time.Time `json:"date_issued,omitempty"`
	DateReplaced      *time.Time `json:"date_replaced,omitempty"`
	IssueDescription  *string    `json:"issue_description,omitempty"`
	VendorResponse    *string    `json:"vendor_response,omitempty"`
}

// UpdateRMARequest is the request body for updating an RMA. nil fields are
// left untouched.
type UpdateRMARequest struct {
	RMANumber         *string    `json:"rma_number,omitempty"`
	OriginalSerial    *string    `json:"original_serial,omitempty"`
	ReplacementSerial *string    `json:"replacement_serial,omitempty"`
	Status            *string    `json:"status,omitempty"`
	DateIssued        *time.Time `json:"date_issued,omitempty"`
	DateReplaced      *time.Time `json:"date_replaced,omitempty"`
	IssueDescription  *string    `json:"issue_description,omitempty"`
	VendorResponse    *string    `json:"vendor_response,omitempty"`
}
