package funnel

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/funnelhq/funnel-api/internal/middleware"
	"github.com/funnelhq/funnel-api/internal/model"
	"github.com/funnelhq/funnel-api/internal/service/funnel"
	"github.com/funnelhq/funnel-api/pkg/httputil"
)

type Handler struct {
	svc  funnel.Servicer
	auth *middleware.AuthMiddleware
}

func NewHandler(svc funnel.Servicer, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{svc: svc, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	org := r.Group("/organizations/:orgID")
	org.Use(h.auth.OrgContext())
	{
		org.GET("/campaigns", h.ListCampaigns)
		org.POST("/campaigns", h.auth.RequireImporter(), h.CreateCampaign)
		org.GET("/funnel", h.List)
		org.POST("/funnel", h.auth.RequireImporter(), h.CreateRow)
		org.GET("/funnel/totals", h.Totals)
		org.GET("/utm", h.ListUTM)
		org.POST("/utm", h.auth.RequireImporter(), h.CreateUTMRow)
	}
}

func (h *Handler) ListCampaigns(c *gin.Context) {
	campaigns, err := h.svc.ListCampaigns(c.Request.Context(), middleware.OrgID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, campaigns)
}

func (h *Handler) CreateCampaign(c *gin.Context) {
	var req struct {
		Name   string `json:"name" binding:"required"`
		Status string `json:"status" binding:"omitempty,oneof=active paused"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	campaign, err := h.svc.CreateCampaign(c.Request.Context(), middleware.OrgID(c), req.Name, req.Status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httputil.Response{Success: true, Data: campaign})
}

// CreateRow accepts a manually entered weekly row.
func (h *Handler) CreateRow(c *gin.Context) {
	var row model.FunnelData
	if err := c.ShouldBindJSON(&row); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	if err := h.svc.CreateRow(c.Request.Context(), middleware.OrgID(c), &row); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httputil.Response{Success: true, Data: &row})
}

func (h *Handler) CreateUTMRow(c *gin.Context) {
	var row model.UTMData
	if err := c.ShouldBindJSON(&row); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	if err := h.svc.CreateUTMRow(c.Request.Context(), middleware.OrgID(c), &row); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httputil.Response{Success: true, Data: &row})
}

// List returns funnel rows, optionally filtered by ?month=Janeiro and
// windowed by ?page/?page_size. The month-filtered set is one org's
// weekly rows, so the page is cut in memory after the query.
func (h *Handler) List(c *gin.Context) {
	rows, err := h.svc.List(c.Request.Context(), middleware.OrgID(c), c.Query("month"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	p := bindPagination(c)
	start, end := p.Bounds(len(rows))
	httputil.RespondWithPagination(c, rows[start:end], p.Page, p.PageSize, len(rows))
}

func (h *Handler) Totals(c *gin.Context) {
	totals, err := h.svc.Totals(c.Request.Context(), middleware.OrgID(c), c.Query("month"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, totals)
}

func (h *Handler) ListUTM(c *gin.Context) {
	rows, err := h.svc.ListUTM(c.Request.Context(), middleware.OrgID(c), c.Query("month"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	p := bindPagination(c)
	start, end := p.Bounds(len(rows))
	httputil.RespondWithPagination(c, rows[start:end], p.Page, p.PageSize, len(rows))
}

func bindPagination(c *gin.Context) model.Pagination {
	var p model.Pagination
	_ = c.ShouldBindQuery(&p)
	return p.Normalize()
}
