package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Probe is a single discovery observation. Rows are immutable after insert;
// the serial/device association to assets is always computed, never stored.
type Probe struct {
	ID                 int64     `json:"id"`
	Time               time.Time `json:"time"`
	CreationTime       time.Time `json:"creation_time"`
	Serial             string    `json:"serial"`
	Name               string    `json:"name"`
	Part               *string   `json:"part,omitempty"`
	Category           *string   `json:"category,omitempty"`
	DeviceID           *int64    `json:"device_id,omitempty"`
	DeviceDescriptor   *string   `json:"device_descriptor,omitempty"`
	SiteDescriptor     *string   `json:"site_descriptor,omitempty"`
	LocationDescriptor *string   `json:"location_descriptor,omitempty"`
	Description        *string   `json:"description,omitempty"`
	DiscoveredData     JSONB     `json:"discovered_data"`

	// Annotations computed at read time.
	ChangesCount int  `json:"changes_count"`
	Recent       bool `json:"recent"`
}

// CreateProbeRequest is the ingestion payload.
type CreateProbeRequest struct {
	Time               *time.Time             `json:"time"`
	Serial             string                 `json:"serial"`
	Name               string                 `json:"name"`
	Part               *string                `json:"part,omitempty"`
	Category           *string                `json:"category,omitempty"`
	DeviceID           *int64                 `json:"device_id,omitempty"`
	DeviceDescriptor   *string                `json:"device_descriptor,omitempty"`
	SiteDescriptor     *string                `json:"site_descriptor,omitempty"`
	LocationDescriptor *string                `json:"location_descriptor,omitempty"`
	Description        *string                `json:"description,omitempty"`
	DiscoveredData     map[string]interface{} `json:"discovered_data,omitempty"`
}

// JSONB is a custom type for JSONB fields
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}
