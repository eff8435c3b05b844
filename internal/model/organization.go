package model

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Membership role constants
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// Organization is the tenant boundary. Every other entity hangs off
// organization_id.
type Organization struct {
	Base
	Name string `json:"name" db:"name" binding:"required"`
	Slug string `json:"slug" db:"slug"`
}

// Slugify derives a URL-safe slug from an organization name.
// Non-alphanumeric runs collapse into single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// Membership assigns a user a role within an organization.
type Membership struct {
	Base
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	Role           string    `json:"role" db:"role"`
}

// Member is a membership joined with user details for listing.
type Member struct {
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Email    string    `json:"email" db:"email"`
	Name     string    `json:"name" db:"name"`
	Role     string    `json:"role" db:"role"`
	JoinedAt time.Time `json:"joined_at" db:"created_at"`
}

// CanManageIntegrations reports whether the role may connect,
// disconnect or sync provider integrations.
func CanManageIntegrations(role string) bool {
	return role == RoleOwner || role == RoleAdmin
}

// CanImport reports whether the role may trigger CSV imports.
func CanImport(role string) bool {
	return role == RoleOwner || role == RoleAdmin || role == RoleEditor
}

// ValidRole reports whether the role is one the system knows.
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// AddMemberRequest represents member addition parameters
type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,oneof=owner admin editor viewer"`
}

// UpdateMemberRequest represents member role update parameters
type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required,oneof=owner admin editor viewer"`
}
