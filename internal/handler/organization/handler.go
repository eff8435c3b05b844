package organization

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/funnelhq/funnel-api/internal/middleware"
	"github.com/funnelhq/funnel-api/internal/model"
	"github.com/funnelhq/funnel-api/internal/service/organization"
	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
	"github.com/funnelhq/funnel-api/pkg/httputil"
)

type Handler struct {
	svc  organization.Servicer
	auth *middleware.AuthMiddleware
}

func NewHandler(svc organization.Servicer, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{svc: svc, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/organizations", h.List)

	org := r.Group("/organizations/:orgID")
	org.Use(h.auth.OrgContext())
	{
		org.GET("", h.Get)
		org.PATCH("", h.auth.RequireIntegrationManager(), h.Update)

		org.GET("/members", h.ListMembers)
		org.POST("/members", h.auth.RequireIntegrationManager(), h.AddMember)
		org.PATCH("/members/:userID", h.auth.RequireIntegrationManager(), h.UpdateMember)
		org.DELETE("/members/:userID", h.auth.RequireIntegrationManager(), h.RemoveMember)
	}
}

func (h *Handler) List(c *gin.Context) {
	orgs, err := h.svc.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, orgs)
}

func (h *Handler) Get(c *gin.Context) {
	org, err := h.svc.Get(c.Request.Context(), middleware.OrgID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, org)
}

func (h *Handler) Update(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	org, err := h.svc.Update(c.Request.Context(), middleware.OrgID(c), req.Name)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, org)
}

func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.svc.ListMembers(c.Request.Context(), middleware.OrgID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, members)
}

func (h *Handler) AddMember(c *gin.Context) {
	var req model.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	inviter := c.GetString(middleware.ContextUserEmail)
	member, err := h.svc.AddMember(c.Request.Context(), middleware.OrgID(c), inviter, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httputil.Response{Success: true, Data: member})
}

func (h *Handler) UpdateMember(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid user ID", err))
		return
	}

	var req model.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	if err := h.svc.UpdateMemberRole(c.Request.Context(), middleware.OrgID(c), userID, req.Role); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"updated": true})
}

func (h *Handler) RemoveMember(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid user ID", err))
		return
	}

	if err := h.svc.RemoveMember(c.Request.Context(), middleware.OrgID(c), userID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"removed": true})
}
