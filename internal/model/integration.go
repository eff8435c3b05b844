package model

import (
	"time"

	"github.com/google/uuid"
)

// Integration providers
const (
	ProviderFacebookAds  = "facebook_ads"
	ProviderGoogleSheets = "google_sheets"
	ProviderGoogleAds    = "google_ads"
	ProviderWebhook      = "webhook"
	ProviderCSV          = "csv"
)

// Integration is the single row per (organization, provider). Config
// holds the credential plus provider metadata as an opaque blob;
// at most one active row exists per composite key, enforced by upsert.
type Integration struct {
	Base
	OrganizationID uuid.UUID  `json:"organization_id" db:"organization_id"`
	Provider       string     `json:"provider" db:"provider"`
	Config         JSONMap    `json:"config" db:"config"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	LastSyncAt     *time.Time `json:"last_sync_at" db:"last_sync_at"`
}

// Credential is the typed view of the OAuth material embedded in
// Integration.Config.
type Credential struct {
	AccessToken    string     `json:"access_token"`
	RefreshToken   string     `json:"refresh_token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	AdAccountID    string     `json:"ad_account_id,omitempty"`
	AdAccountName  string     `json:"ad_account_name,omitempty"`
	UserID         string     `json:"user_id,omitempty"`
	UserName       string     `json:"user_name,omitempty"`
	UserEmail      string     `json:"user_email,omitempty"`
}

// Credential extracts the typed credential from the config blob.
func (i *Integration) Credential() Credential {
	cred := Credential{
		AccessToken:   i.Config.GetString("access_token"),
		RefreshToken:  i.Config.GetString("refresh_token"),
		AdAccountID:   i.Config.GetString("ad_account_id"),
		AdAccountName: i.Config.GetString("ad_account_name"),
		UserID:        i.Config.GetString("user_id"),
		UserName:      i.Config.GetString("user_name"),
		UserEmail:     i.Config.GetString("user_email"),
	}
	if raw := i.Config.GetString("token_expires_at"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			cred.TokenExpiresAt = &t
		}
	}
	return cred
}

// IsExpired reports whether the stored token has passed its expiry.
// A missing expiry is treated as not expired (Facebook long-lived
// tokens are checked against their recorded 60-day window).
func (c Credential) IsExpired(now time.Time) bool {
	if c.TokenExpiresAt == nil {
		return false
	}
	return !now.Before(*c.TokenExpiresAt)
}
