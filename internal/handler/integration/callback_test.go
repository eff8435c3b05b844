package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelhq/funnel-api/internal/model"
	facebooksvc "github.com/funnelhq/funnel-api/internal/service/facebook"
	"github.com/funnelhq/funnel-api/internal/service/funnel"
	"github.com/funnelhq/funnel-api/internal/service/integration"
	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
)

const testAppURL = "http://app.test"

type fakeFacebookService struct {
	connectErr  error
	connectedTo uuid.UUID
}

func (f *fakeFacebookService) OAuthURL(orgID, userID uuid.UUID, redirectURI string) string {
	return "https://facebook.test/dialog"
}

func (f *fakeFacebookService) CompleteConnect(ctx context.Context, orgID uuid.UUID, code, redirectURI string) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connectedTo = orgID
	return nil
}

func (f *fakeFacebookService) Sync(ctx context.Context, orgID uuid.UUID, dateStart, dateEnd string) (*facebooksvc.SyncResponse, error) {
	return &facebooksvc.SyncResponse{}, nil
}

func (f *fakeFacebookService) Status(ctx context.Context, orgID uuid.UUID) (*facebooksvc.Status, error) {
	return &facebooksvc.Status{}, nil
}

func (f *fakeFacebookService) Disconnect(ctx context.Context, orgID uuid.UUID) error {
	return nil
}

type noopFunnelService struct{}

func (noopFunnelService) List(ctx context.Context, orgID uuid.UUID, month string) ([]*model.FunnelData, error) {
	return nil, nil
}

func (noopFunnelService) ListUTM(ctx context.Context, orgID uuid.UUID, month string) ([]*model.UTMData, error) {
	return nil, nil
}

func (noopFunnelService) Totals(ctx context.Context, orgID uuid.UUID, month string) (*funnel.TotalsResponse, error) {
	return &funnel.TotalsResponse{}, nil
}

func (noopFunnelService) InvalidateTotals(ctx context.Context, orgID uuid.UUID) {}

func (noopFunnelService) ListCampaigns(ctx context.Context, orgID uuid.UUID) ([]*model.Campaign, error) {
	return nil, nil
}

func (noopFunnelService) CreateCampaign(ctx context.Context, orgID uuid.UUID, name, status string) (*model.Campaign, error) {
	return nil, nil
}

func (noopFunnelService) CreateRow(ctx context.Context, orgID uuid.UUID, row *model.FunnelData) error {
	return nil
}

func (noopFunnelService) CreateUTMRow(ctx context.Context, orgID uuid.UUID, row *model.UTMData) error {
	return nil
}

func newCallbackRouter(svc *fakeFacebookService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	handler := NewFacebookHandler(svc, noopFunnelService{}, nil, "http://api.test/callback", testAppURL)
	handler.RegisterCallbackRoutes(&engine.RouterGroup)
	return engine
}

func doCallback(t *testing.T, router *gin.Engine, query url.Values) *url.URL {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/integrations/facebook/callback?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/settings/integrations", location.Path)
	assert.Equal(t, "facebook", location.Query().Get("provider"))
	return location
}

func validState() string {
	return integration.EncodeState(uuid.New(), uuid.New())
}

func TestCallbackSuccess(t *testing.T) {
	svc := &fakeFacebookService{}
	router := newCallbackRouter(svc)

	orgID := uuid.New()
	location := doCallback(t, router, url.Values{
		"code":  {"auth-code"},
		"state": {integration.EncodeState(orgID, uuid.New())},
	})
	assert.Equal(t, "true", location.Query().Get("connected"))
	assert.Empty(t, location.Query().Get("error"))
	assert.Equal(t, orgID, svc.connectedTo)
}

func TestCallbackUserDenied(t *testing.T) {
	router := newCallbackRouter(&fakeFacebookService{})

	location := doCallback(t, router, url.Values{"error": {"access_denied"}})
	assert.Equal(t, "denied", location.Query().Get("error"))
}

func TestCallbackMissingParams(t *testing.T) {
	router := newCallbackRouter(&fakeFacebookService{})

	location := doCallback(t, router, url.Values{"code": {"auth-code"}})
	assert.Equal(t, "missing_params", location.Query().Get("error"))

	location = doCallback(t, router, url.Values{"state": {validState()}})
	assert.Equal(t, "missing_params", location.Query().Get("error"))
}

func TestCallbackInvalidState(t *testing.T) {
	router := newCallbackRouter(&fakeFacebookService{})

	location := doCallback(t, router, url.Values{
		"code":  {"auth-code"},
		"state": {"not-base64!"},
	})
	assert.Equal(t, "invalid_state", location.Query().Get("error"))
}

func TestCallbackErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"no ad accounts", facebooksvc.ErrNoAdAccounts, "no_ad_accounts"},
		{"provider failure", apperrors.Provider("facebook", "bad code"), "token_error"},
		{"storage failure", apperrors.Internal(fmt.Errorf("db down")), "db_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newCallbackRouter(&fakeFacebookService{connectErr: tt.err})

			location := doCallback(t, router, url.Values{
				"code":  {"auth-code"},
				"state": {validState()},
			})
			assert.Equal(t, tt.code, location.Query().Get("error"))
			assert.Empty(t, location.Query().Get("connected"))
		})
	}
}
