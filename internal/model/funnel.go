package model

import (
	"github.com/google/uuid"
)

// FunnelData is a weekly metric row. For synced data exactly one row
// exists per (organization_id, campaign_id, period_start, period_end);
// CSV imports append without that constraint.
type FunnelData struct {
	Base
	OrganizationID uuid.UUID  `json:"organization_id" db:"organization_id"`
	CampaignID     *uuid.UUID `json:"campaign_id,omitempty" db:"campaign_id"`
	Month          string     `json:"month" db:"month"`
	Week           string     `json:"week" db:"week"`
	PeriodStart    *string    `json:"period_start,omitempty" db:"period_start"`
	PeriodEnd      *string    `json:"period_end,omitempty" db:"period_end"`
	Spent          float64    `json:"spent" db:"spent"`
	Impressions    int64      `json:"impressions" db:"impressions"`
	Reach          int64      `json:"reach" db:"reach"`
	Clicks         int64      `json:"clicks" db:"clicks"`
	Leads          int64      `json:"leads" db:"leads"`
	QualifiedLeads int64      `json:"qualified_leads" db:"qualified_leads"`
	Visits         int64      `json:"visits" db:"visits"`
	FollowUp       int64      `json:"follow_up" db:"follow_up"`
	Sales          int64      `json:"sales" db:"sales"`
	Source         string     `json:"source" db:"source"`
}

// FunnelTotals aggregates funnel metrics over a filter window.
type FunnelTotals struct {
	Spent          float64 `json:"spent" db:"spent"`
	Impressions    int64   `json:"impressions" db:"impressions"`
	Reach          int64   `json:"reach" db:"reach"`
	Clicks         int64   `json:"clicks" db:"clicks"`
	Leads          int64   `json:"leads" db:"leads"`
	QualifiedLeads int64   `json:"qualified_leads" db:"qualified_leads"`
	Visits         int64   `json:"visits" db:"visits"`
	FollowUp       int64   `json:"follow_up" db:"follow_up"`
	Sales          int64   `json:"sales" db:"sales"`
}
