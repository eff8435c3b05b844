package integration

import (
	"github.com/gin-gonic/gin"

	"github.com/funnelhq/funnel-api/internal/middleware"
	"github.com/funnelhq/funnel-api/internal/service/funnel"
	"github.com/funnelhq/funnel-api/internal/service/integration"
	sheetssvc "github.com/funnelhq/funnel-api/internal/service/sheets"
	"github.com/funnelhq/funnel-api/pkg/httputil"
)

type SheetsHandler struct {
	svc         sheetssvc.Servicer
	funnelSvc   funnel.Servicer
	auth        *middleware.AuthMiddleware
	redirectURI string
	appURL      string
}

func NewSheetsHandler(
	svc sheetssvc.Servicer,
	funnelSvc funnel.Servicer,
	auth *middleware.AuthMiddleware,
	redirectURI, appURL string,
) *SheetsHandler {
	return &SheetsHandler{
		svc:         svc,
		funnelSvc:   funnelSvc,
		auth:        auth,
		redirectURI: redirectURI,
		appURL:      appURL,
	}
}

func (h *SheetsHandler) RegisterCallbackRoutes(r *gin.RouterGroup) {
	r.GET("/integrations/google-sheets/callback", h.Callback)
}

func (h *SheetsHandler) RegisterRoutes(r *gin.RouterGroup) {
	org := r.Group("/organizations/:orgID/integrations/google-sheets")
	org.Use(h.auth.OrgContext(), h.auth.RequireIntegrationManager())
	{
		org.GET("/connect", h.Connect)
		org.GET("/status", h.Status)
		org.GET("/spreadsheets", h.ListSpreadsheets)
		org.GET("/spreadsheets/:spreadsheetID/sheets", h.ListSheets)
		org.POST("/import", h.Import)
		org.POST("/export", h.Export)
		org.DELETE("", h.Disconnect)
	}
}

func (h *SheetsHandler) Connect(c *gin.Context) {
	url := h.svc.OAuthURL(middleware.OrgID(c), middleware.UserID(c), h.redirectURI)
	httputil.RespondWithSuccess(c, gin.H{"url": url})
}

func (h *SheetsHandler) Callback(c *gin.Context) {
	handleOAuthCallback(c, h.appURL, "google_sheets", h.exchange, providerCallbackError)
}

func (h *SheetsHandler) exchange(c *gin.Context, state *integration.OAuthState, code string) error {
	return h.svc.CompleteConnect(c.Request.Context(), state.OrganizationID, code, h.redirectURI)
}

func (h *SheetsHandler) Status(c *gin.Context) {
	status, err := h.svc.Status(c.Request.Context(), middleware.OrgID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, status)
}

func (h *SheetsHandler) ListSpreadsheets(c *gin.Context) {
	sheets, err := h.svc.ListSpreadsheets(c.Request.Context(), middleware.OrgID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, sheets)
}

func (h *SheetsHandler) ListSheets(c *gin.Context) {
	titles, err := h.svc.ListSheets(c.Request.Context(), middleware.OrgID(c), c.Param("spreadsheetID"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, titles)
}

func (h *SheetsHandler) Import(c *gin.Context) {
	var req sheetssvc.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	result, err := h.svc.Import(c.Request.Context(), middleware.OrgID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.funnelSvc.InvalidateTotals(c.Request.Context(), middleware.OrgID(c))
	httputil.RespondWithSuccess(c, result)
}

func (h *SheetsHandler) Export(c *gin.Context) {
	var req sheetssvc.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithValidationError(c, err)
		return
	}

	result, err := h.svc.Export(c.Request.Context(), middleware.OrgID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}

func (h *SheetsHandler) Disconnect(c *gin.Context) {
	if err := h.svc.Disconnect(c.Request.Context(), middleware.OrgID(c)); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"disconnected": true})
}
