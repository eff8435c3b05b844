package integration

import (
	"github.com/gin-gonic/gin"

	"github.com/funnelhq/funnel-api/internal/middleware"
	facebooksvc "github.com/funnelhq/funnel-api/internal/service/facebook"
	"github.com/funnelhq/funnel-api/internal/service/funnel"
	"github.com/funnelhq/funnel-api/internal/service/integration"
	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
	"github.com/funnelhq/funnel-api/pkg/httputil"
)

type FacebookHandler struct {
	svc         facebooksvc.Servicer
	funnelSvc   funnel.Servicer
	auth        *middleware.AuthMiddleware
	redirectURI string
	appURL      string
}

func NewFacebookHandler(
	svc facebooksvc.Servicer,
	funnelSvc funnel.Servicer,
	auth *middleware.AuthMiddleware,
	redirectURI, appURL string,
) *FacebookHandler {
	return &FacebookHandler{
		svc:         svc,
		funnelSvc:   funnelSvc,
		auth:        auth,
		redirectURI: redirectURI,
		appURL:      appURL,
	}
}

// RegisterCallbackRoutes registers the OAuth callback, which Facebook
// calls without a bearer token.
func (h *FacebookHandler) RegisterCallbackRoutes(r *gin.RouterGroup) {
	r.GET("/integrations/facebook/callback", h.Callback)
}

func (h *FacebookHandler) RegisterRoutes(r *gin.RouterGroup) {
	org := r.Group("/organizations/:orgID/integrations/facebook")
	org.Use(h.auth.OrgContext(), h.auth.RequireIntegrationManager())
	{
		org.GET("/connect", h.Connect)
		org.GET("/status", h.Status)
		org.POST("/sync", h.Sync)
		org.DELETE("", h.Disconnect)
	}
}

// Connect returns the authorization URL for the frontend to redirect
// to.
func (h *FacebookHandler) Connect(c *gin.Context) {
	url := h.svc.OAuthURL(middleware.OrgID(c), middleware.UserID(c), h.redirectURI)
	httputil.RespondWithSuccess(c, gin.H{"url": url})
}

// Callback lands the browser back from Facebook's dialog. The outcome
// is always a redirect to the app; failures carry an error code in
// the query string.
func (h *FacebookHandler) Callback(c *gin.Context) {
	handleOAuthCallback(c, h.appURL, "facebook", h.exchange, facebookCallbackError)
}

func (h *FacebookHandler) exchange(c *gin.Context, state *integration.OAuthState, code string) error {
	return h.svc.CompleteConnect(c.Request.Context(), state.OrganizationID, code, h.redirectURI)
}

// facebookCallbackError maps a connect failure onto the error code
// the frontend shows.
func facebookCallbackError(err error) string {
	if err == facebooksvc.ErrNoAdAccounts {
		return "no_ad_accounts"
	}
	if appErr, ok := err.(*apperrors.AppError); ok && appErr.Code == apperrors.ErrProvider {
		return "token_error"
	}
	return "db_error"
}

func (h *FacebookHandler) Sync(c *gin.Context) {
	var req struct {
		DateStart string `json:"date_start"`
		DateEnd   string `json:"date_end"`
	}
	// Body is optional; defaults cover the current month.
	_ = c.ShouldBindJSON(&req)

	resp, err := h.svc.Sync(c.Request.Context(), middleware.OrgID(c), req.DateStart, req.DateEnd)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.funnelSvc.InvalidateTotals(c.Request.Context(), middleware.OrgID(c))
	httputil.RespondWithSuccess(c, resp)
}

func (h *FacebookHandler) Status(c *gin.Context) {
	status, err := h.svc.Status(c.Request.Context(), middleware.OrgID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, status)
}

func (h *FacebookHandler) Disconnect(c *gin.Context) {
	if err := h.svc.Disconnect(c.Request.Context(), middleware.OrgID(c)); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"disconnected": true})
}
