package integration

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/funnelhq/funnel-api/internal/service/integration"
	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
)

type exchangeFunc func(c *gin.Context, state *integration.OAuthState, code string) error

type errorCodeFunc func(err error) string

// handleOAuthCallback runs the common callback flow: the provider
// redirected the user's browser here, so the response is always a
// redirect back to the app, carrying either connected=true or an
// error code.
func handleOAuthCallback(c *gin.Context, appURL, provider string, exchange exchangeFunc, errorCode errorCodeFunc) {
	fail := func(code string) {
		c.Redirect(http.StatusFound, callbackRedirect(appURL, provider, code))
	}

	// The user clicked "cancel" on the consent screen.
	if c.Query("error") != "" {
		fail("denied")
		return
	}

	code := c.Query("code")
	rawState := c.Query("state")
	if code == "" || rawState == "" {
		fail("missing_params")
		return
	}

	state, err := integration.DecodeState(rawState)
	if err != nil {
		fail("invalid_state")
		return
	}

	if err := exchange(c, state, code); err != nil {
		fail(errorCode(err))
		return
	}

	c.Redirect(http.StatusFound, callbackRedirect(appURL, provider, ""))
}

func callbackRedirect(appURL, provider, errorCode string) string {
	q := url.Values{}
	q.Set("provider", provider)
	if errorCode != "" {
		q.Set("error", errorCode)
	} else {
		q.Set("connected", "true")
	}
	return appURL + "/settings/integrations?" + q.Encode()
}

// providerCallbackError is the default mapping for providers without
// provider-specific failure modes.
func providerCallbackError(err error) string {
	if appErr, ok := err.(*apperrors.AppError); ok && appErr.Code == apperrors.ErrProvider {
		return "token_error"
	}
	return "db_error"
}
