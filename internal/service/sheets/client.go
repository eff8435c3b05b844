package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/funnelhq/funnel-api/internal/model"
	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
)

const (
	googleAuthURL   = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL  = "https://oauth2.googleapis.com/token"
	sheetsBaseURL   = "https://sheets.googleapis.com/v4"
	driveBaseURL    = "https://www.googleapis.com/drive/v3"
	oauthScopes     = "https://www.googleapis.com/auth/spreadsheets https://www.googleapis.com/auth/drive.readonly"
	spreadsheetMime = "application/vnd.google-apps.spreadsheet"

	listCacheTTL = 2 * time.Minute
)

// Token is Google's token endpoint response, for both the code
// exchange and the refresh grant.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Spreadsheet is a Drive file of the spreadsheet MIME type.
type Spreadsheet struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ModifiedTime string `json:"modifiedTime"`
	WebViewLink  string `json:"webViewLink"`
}

// ValueRange mirrors the Sheets values resource.
type ValueRange struct {
	Range  string          `json:"range,omitempty"`
	Values [][]interface{} `json:"values"`
}

type oauthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Client talks to the Google OAuth, Drive and Sheets APIs.
type Client struct {
	httpc        *http.Client
	authURL      string
	tokenURL     string
	sheetsURL    string
	driveURL     string
	clientID     string
	clientSecret string
	listCache    *gocache.Cache
}

func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		httpc:        &http.Client{Timeout: 30 * time.Second},
		authURL:      googleAuthURL,
		tokenURL:     googleTokenURL,
		sheetsURL:    sheetsBaseURL,
		driveURL:     driveBaseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		listCache:    gocache.New(listCacheTTL, 5*time.Minute),
	}
}

// WithBaseURLs points every endpoint at a test server.
func (c *Client) WithBaseURLs(base string) *Client {
	c.tokenURL = base + "/token"
	c.sheetsURL = base + "/sheets"
	c.driveURL = base + "/drive"
	return c
}

func (c *Client) Provider() string { return model.ProviderGoogleSheets }

// BuildOAuthURL asks for offline access so a refresh token comes back
// on the first consent.
func (c *Client) BuildOAuthURL(redirectURI, state string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", oauthScopes)
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	q.Set("state", state)
	return c.authURL + "?" + q.Encode()
}

// ExchangeCode trades the authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*Token, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("redirect_uri", redirectURI)
	form.Set("grant_type", "authorization_code")
	return c.postToken(ctx, form)
}

// RefreshToken implements the refresh grant; Google does not rotate
// the refresh token, so only the access token and expiry come back.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (string, int64, error) {
	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "refresh_token")

	token, err := c.postToken(ctx, form)
	if err != nil {
		return "", 0, err
	}
	return token.AccessToken, token.ExpiresIn, nil
}

func (c *Client) postToken(ctx context.Context, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apperrors.Provider(model.ProviderGoogleSheets, err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, apperrors.Provider(model.ProviderGoogleSheets, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Provider(model.ProviderGoogleSheets, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		var oe oauthError
		if json.Unmarshal(body, &oe) == nil && oe.Error != "" {
			return nil, apperrors.Provider(model.ProviderGoogleSheets, fmt.Sprintf("%s: %s", oe.Error, oe.ErrorDescription))
		}
		return nil, apperrors.Provider(model.ProviderGoogleSheets, fmt.Sprintf("token endpoint returned status %d", resp.StatusCode))
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, apperrors.Provider(model.ProviderGoogleSheets, err.Error())
	}
	if token.AccessToken == "" {
		return nil, apperrors.Provider(model.ProviderGoogleSheets, "token endpoint returned no access token")
	}
	return &token, nil
}

// ListSpreadsheets returns spreadsheet files visible to the connected
// account, newest first. Results are cached per token for a short
// window since spreadsheet pickers poll this.
func (c *Client) ListSpreadsheets(ctx context.Context, accessToken string) ([]Spreadsheet, error) {
	if cached, ok := c.listCache.Get(accessToken); ok {
		return cached.([]Spreadsheet), nil
	}

	q := url.Values{}
	q.Set("q", fmt.Sprintf("mimeType='%s' and trashed=false", spreadsheetMime))
	q.Set("orderBy", "modifiedTime desc")
	q.Set("pageSize", "50")
	q.Set("fields", "files(id,name,modifiedTime,webViewLink)")

	var out struct {
		Files []Spreadsheet `json:"files"`
	}
	if err := c.getJSON(ctx, accessToken, c.driveURL+"/files?"+q.Encode(), &out); err != nil {
		return nil, err
	}

	c.listCache.Set(accessToken, out.Files, gocache.DefaultExpiration)
	return out.Files, nil
}

// ListSheetTitles returns the tab names of a spreadsheet.
func (c *Client) ListSheetTitles(ctx context.Context, accessToken, spreadsheetID string) ([]string, error) {
	var out struct {
		Sheets []struct {
			Properties struct {
				Title string `json:"title"`
			} `json:"properties"`
		} `json:"sheets"`
	}
	endpoint := fmt.Sprintf("%s/spreadsheets/%s?fields=sheets.properties.title", c.sheetsURL, url.PathEscape(spreadsheetID))
	if err := c.getJSON(ctx, accessToken, endpoint, &out); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(out.Sheets))
	for _, s := range out.Sheets {
		titles = append(titles, s.Properties.Title)
	}
	return titles, nil
}

// GetValues reads a range from a spreadsheet.
func (c *Client) GetValues(ctx context.Context, accessToken, spreadsheetID, readRange string) (*ValueRange, error) {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s",
		c.sheetsURL, url.PathEscape(spreadsheetID), url.PathEscape(readRange))

	var out ValueRange
	if err := c.getJSON(ctx, accessToken, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateValues overwrites a range with the given rows.
func (c *Client) UpdateValues(ctx context.Context, accessToken, spreadsheetID, writeRange string, values [][]interface{}) error {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s?valueInputOption=USER_ENTERED",
		c.sheetsURL, url.PathEscape(spreadsheetID), url.PathEscape(writeRange))
	return c.writeValues(ctx, accessToken, http.MethodPut, endpoint, writeRange, values)
}

// AppendValues appends rows after the last row of the range's table.
func (c *Client) AppendValues(ctx context.Context, accessToken, spreadsheetID, writeRange string, values [][]interface{}) error {
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED",
		c.sheetsURL, url.PathEscape(spreadsheetID), url.PathEscape(writeRange))
	return c.writeValues(ctx, accessToken, http.MethodPost, endpoint, writeRange, values)
}

func (c *Client) writeValues(ctx context.Context, accessToken, method, endpoint, writeRange string, values [][]interface{}) error {
	payload, err := json.Marshal(ValueRange{Range: writeRange, Values: values})
	if err != nil {
		return apperrors.Provider(model.ProviderGoogleSheets, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return apperrors.Provider(model.ProviderGoogleSheets, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return apperrors.Provider(model.ProviderGoogleSheets, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return decodeAPIError(resp.StatusCode, body)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, accessToken, endpoint string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return apperrors.Provider(model.ProviderGoogleSheets, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return apperrors.Provider(model.ProviderGoogleSheets, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Provider(model.ProviderGoogleSheets, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return apperrors.Provider(model.ProviderGoogleSheets, err.Error())
	}
	return nil
}

func decodeAPIError(status int, body []byte) error {
	var ae apiError
	if json.Unmarshal(body, &ae) == nil && ae.Error.Message != "" {
		return apperrors.Provider(model.ProviderGoogleSheets, ae.Error.Message)
	}
	return apperrors.Provider(model.ProviderGoogleSheets, fmt.Sprintf("google api returned status %d", status))
}
