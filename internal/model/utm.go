package model

import (
	"github.com/google/uuid"
)

// UTMData is an attribution-dimension row. Synced rows are upserted on
// (organization_id, month, utm_campaign, utm_term, utm_content); CSV
// imports append without a uniqueness constraint.
type UTMData struct {
	Base
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Month          string    `json:"month" db:"month"`
	UTMSource      string    `json:"utm_source" db:"utm_source"`
	UTMMedium      string    `json:"utm_medium" db:"utm_medium"`
	UTMCampaign    string    `json:"utm_campaign" db:"utm_campaign"`
	UTMTerm        string    `json:"utm_term" db:"utm_term"`
	UTMContent     string    `json:"utm_content" db:"utm_content"`
	Interactions   int64     `json:"interactions" db:"interactions"`
	Leads          int64     `json:"leads" db:"leads"`
	QualifiedLeads int64     `json:"qualified_leads" db:"qualified_leads"`
	Visits         int64     `json:"visits" db:"visits"`
	Sales          int64     `json:"sales" db:"sales"`
	Spent          float64   `json:"spent" db:"spent"`
}
