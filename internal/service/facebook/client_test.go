package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient("app-id", "app-secret", 5*time.Second).WithBaseURL(server.URL)
	return client, server
}

func TestListCampaigns(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/act_123/campaigns")
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		w.Write([]byte(`{"data":[
			{"id":"c1","name":"Campanha A","status":"ACTIVE","objective":"LEAD_GENERATION"},
			{"id":"c2","name":"Campanha B","status":"PAUSED"}
		]}`))
	}))
	defer server.Close()

	campaigns, err := client.ListCampaigns(context.Background(), "tok", "act_123")
	require.NoError(t, err)
	require.Len(t, campaigns, 2)
	assert.Equal(t, "c1", campaigns[0].ID)
	assert.Equal(t, "ACTIVE", campaigns[0].Status)
}

func TestGraphErrorEnvelopeInOKBody(t *testing.T) {
	// The Graph API reports token errors inside 200 responses; the
	// client must surface them as provider errors anyway.
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"error":{"message":"Error validating access token","type":"OAuthException","code":190}}`))
	}))
	defer server.Close()

	_, err := client.ListCampaigns(context.Background(), "expired", "act_123")
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrProvider, appErr.Code)
	assert.Contains(t, appErr.Message, "Error validating access token")
}

func TestGraphErrorNonOKStatus(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Unsupported get request"}}`))
	}))
	defer server.Close()

	_, err := client.GetCampaignInsights(context.Background(), "tok", "act_123", "2026-03-01", "2026-03-31")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported get request")
}

func TestGetCampaignInsightsTimeRangeParam(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.JSONEq(t, `{"since":"2026-03-01","until":"2026-03-31"}`, r.URL.Query().Get("time_range"))
		assert.Equal(t, "campaign", r.URL.Query().Get("level"))
		w.Write([]byte(`{"data":[{"campaign_id":"c1","spend":"123.45","impressions":"1000",
			"actions":[{"action_type":"lead","value":"7"}],
			"date_start":"2026-03-01","date_stop":"2026-03-31"}]}`))
	}))
	defer server.Close()

	rows, err := client.GetCampaignInsights(context.Background(), "tok", "act_123", "2026-03-01", "2026-03-31")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "123.45", rows[0].Spend)
}

func TestExchangeCodeFallsBackToShortLivedToken(t *testing.T) {
	calls := 0
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("grant_type") == "fb_exchange_token" {
			w.Write([]byte(`{"error":{"message":"exchange unavailable"}}`))
			return
		}
		w.Write([]byte(`{"access_token":"short-tok","expires_in":3600}`))
	}))
	defer server.Close()

	token, err := client.ExchangeCode(context.Background(), "code", "http://cb")
	require.NoError(t, err)
	assert.Equal(t, "short-tok", token.AccessToken)
	assert.Equal(t, int64(3600), token.ExpiresIn)
	assert.Equal(t, 2, calls)
}

func TestParseUTMTags(t *testing.T) {
	params := ParseUTMTags("utm_source=facebook&utm_medium=paid-social&utm_campaign=lan%C3%A7amento&utm_content=video-a")

	assert.Equal(t, "facebook", params["utm_source"])
	assert.Equal(t, "paid-social", params["utm_medium"])
	assert.Equal(t, "lançamento", params["utm_campaign"])
	assert.Equal(t, "video-a", params["utm_content"])
}

func TestParseUTMTagsMalformed(t *testing.T) {
	assert.Empty(t, ParseUTMTags(""))

	// Pairs without both key and value are dropped; the rest survive.
	params := ParseUTMTags("utm_source=facebook&&novalue=&=nokey&utm_term")
	assert.Equal(t, map[string]string{"utm_source": "facebook"}, params)
}

func TestExtractActionMetric(t *testing.T) {
	actions := []Action{
		{ActionType: "lead", Value: "12"},
		{ActionType: "purchase", Value: "3"},
		{ActionType: "link_click", Value: "oops"},
	}

	assert.Equal(t, int64(12), ExtractActionMetric(actions, "lead"))
	assert.Equal(t, int64(3), ExtractActionMetric(actions, "purchase"))
	assert.Equal(t, int64(0), ExtractActionMetric(actions, "link_click"))
	assert.Equal(t, int64(0), ExtractActionMetric(actions, "offsite_conversion.fb_pixel_purchase"))
	assert.Equal(t, int64(0), ExtractActionMetric(nil, "lead"))
}

func TestWeekOfMonth(t *testing.T) {
	// March 2026 starts on a Sunday.
	assert.Equal(t, 1, WeekOfMonth(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, WeekOfMonth(time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2, WeekOfMonth(time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 5, WeekOfMonth(time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)))

	// February 2026 starts on a Sunday too; the 28th closes week 4.
	assert.Equal(t, 4, WeekOfMonth(time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)))
}

func TestPortugueseMonth(t *testing.T) {
	assert.Equal(t, "Janeiro", PortugueseMonth(time.January))
	assert.Equal(t, "Março", PortugueseMonth(time.March))
	assert.Equal(t, "Dezembro", PortugueseMonth(time.December))
}
