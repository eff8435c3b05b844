package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/funnelhq/funnel-api/internal/model"
	"github.com/funnelhq/funnel-api/internal/repository"
	"github.com/funnelhq/funnel-api/pkg/auth"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextOrgID     = "organization_id"
	ContextOrgRole   = "organization_role"
)

type AuthMiddleware struct {
	jwt            auth.JWTService
	membershipRepo repository.MembershipRepository
}

func NewAuthMiddleware(jwt auth.JWTService, membershipRepo repository.MembershipRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwt:            jwt,
		membershipRepo: membershipRepo,
	}
}

// Authenticate verifies the bearer token and sets user identity in
// context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "invalid authorization format")
			return
		}

		claims, err := m.jwt.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(ContextUserID, claims.UserID.String())
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}

// OrgContext resolves the :orgID route param against the caller's
// memberships. Non-members get 403 regardless of whether the org
// exists, so org IDs don't leak.
func (m *AuthMiddleware) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetString(ContextUserID))
		if err != nil {
			abortUnauthorized(c, "invalid user identity")
			return
		}

		orgID, err := uuid.Parse(c.Param("orgID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
				Code:    http.StatusBadRequest,
				Message: "invalid organization ID",
				TraceID: c.GetString(ContextRequestID),
			})
			return
		}

		role, err := m.membershipRepo.GetRole(c.Request.Context(), orgID, userID)
		if err != nil || role == "" {
			abortForbidden(c, "not a member of this organization")
			return
		}

		c.Set(ContextOrgID, orgID.String())
		c.Set(ContextOrgRole, role)
		c.Next()
	}
}

// RequireIntegrationManager restricts to owner and admin roles.
func (m *AuthMiddleware) RequireIntegrationManager() gin.HandlerFunc {
	return requireRole(model.CanManageIntegrations, "only owners and admins may manage integrations")
}

// RequireImporter restricts to owner, admin and editor roles.
func (m *AuthMiddleware) RequireImporter() gin.HandlerFunc {
	return requireRole(model.CanImport, "insufficient role for data imports")
}

func requireRole(allowed func(string) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !allowed(c.GetString(ContextOrgRole)) {
			abortForbidden(c, message)
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user's ID from context.
func UserID(c *gin.Context) uuid.UUID {
	id, _ := uuid.Parse(c.GetString(ContextUserID))
	return id
}

// OrgID returns the resolved organization ID from context.
func OrgID(c *gin.Context) uuid.UUID {
	id, _ := uuid.Parse(c.GetString(ContextOrgID))
	return id
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Code:    http.StatusUnauthorized,
		Message: message,
		TraceID: c.GetString(ContextRequestID),
	})
}

func abortForbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
		Code:    http.StatusForbidden,
		Message: message,
		TraceID: c.GetString(ContextRequestID),
	})
}
