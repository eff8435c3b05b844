package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient("client-id", "client-secret").WithBaseURLs(server.URL)
	return client, server
}

func TestExchangeCode(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"token_type":"Bearer"}`))
	}))
	defer server.Close()

	token, err := client.ExchangeCode(context.Background(), "the-code", "http://cb")
	require.NoError(t, err)
	assert.Equal(t, "at", token.AccessToken)
	assert.Equal(t, "rt", token.RefreshToken)
	assert.Equal(t, int64(3600), token.ExpiresIn)
}

func TestRefreshToken(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt", r.PostForm.Get("refresh_token"))
		w.Write([]byte(`{"access_token":"fresh","expires_in":3600}`))
	}))
	defer server.Close()

	accessToken, expiresIn, err := client.RefreshToken(context.Background(), "rt")
	require.NoError(t, err)
	assert.Equal(t, "fresh", accessToken)
	assert.Equal(t, int64(3600), expiresIn)
}

func TestTokenEndpointError(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`))
	}))
	defer server.Close()

	_, _, err := client.RefreshToken(context.Background(), "revoked")
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrProvider, appErr.Code)
	assert.Contains(t, appErr.Message, "invalid_grant")
}

func TestListSpreadsheetsCachesPerToken(t *testing.T) {
	requests := 0
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/drive/files", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("q"), "spreadsheet")
		w.Write([]byte(`{"files":[{"id":"s1","name":"Funil 2026","modifiedTime":"2026-03-01T00:00:00Z"}]}`))
	}))
	defer server.Close()

	for i := 0; i < 3; i++ {
		sheets, err := client.ListSpreadsheets(context.Background(), "tok-a")
		require.NoError(t, err)
		require.Len(t, sheets, 1)
		assert.Equal(t, "Funil 2026", sheets[0].Name)
	}
	assert.Equal(t, 1, requests)

	// A different token is a different account and bypasses the cache.
	_, err := client.ListSpreadsheets(context.Background(), "tok-b")
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}

func TestListSheetTitles(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"sheets":[{"properties":{"title":"Funil"}},{"properties":{"title":"UTM"}}]}`))
	}))
	defer server.Close()

	titles, err := client.ListSheetTitles(context.Background(), "tok", "sheet-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Funil", "UTM"}, titles)
}

func TestGetValues(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"range":"Funil!A:Z","values":[["Mês","Leads"],["Janeiro","10"]]}`))
	}))
	defer server.Close()

	values, err := client.GetValues(context.Background(), "tok", "sheet-1", "Funil!A:Z")
	require.NoError(t, err)
	require.Len(t, values.Values, 2)
	assert.Equal(t, "Janeiro", values.Values[1][0])
}

func TestUpdateValuesSendsRange(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "USER_ENTERED", r.URL.Query().Get("valueInputOption"))

		var payload ValueRange
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Funil!A1", payload.Range)
		require.Len(t, payload.Values, 2)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	err := client.UpdateValues(context.Background(), "tok", "sheet-1", "Funil!A1", [][]interface{}{
		{"Mês", "Leads"},
		{"Janeiro", 10},
	})
	require.NoError(t, err)
}

func TestAPIErrorSurfacesGoogleMessage(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`))
	}))
	defer server.Close()

	_, err := client.GetValues(context.Background(), "tok", "sheet-1", "Funil!A:Z")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not have permission")
}
