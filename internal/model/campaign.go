package model

import (
	"github.com/google/uuid"
)

// Campaign status constants
const (
	CampaignStatusActive = "active"
	CampaignStatusPaused = "paused"
)

// Campaign source constants
const (
	SourceFacebookAds = "facebook_ads"
	SourceCSVImport   = "csv_import"
	SourceManual      = "manual"
)

// Campaign is an organization-scoped marketing campaign. Synced
// campaigns carry the provider's id in ExternalID; the pair
// (organization_id, external_id) is the natural key for reconciliation.
type Campaign struct {
	Base
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name" binding:"required"`
	Source         string    `json:"source" db:"source"`
	ExternalID     *string   `json:"external_id,omitempty" db:"external_id"`
	Status         string    `json:"status" db:"status"`
	Config         JSONMap   `json:"config" db:"config"`
}
