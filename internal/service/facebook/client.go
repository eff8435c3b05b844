package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
)

const (
	graphBaseURL  = "https://graph.facebook.com/v21.0"
	dialogBaseURL = "https://www.facebook.com/v21.0/dialog/oauth"

	// Single-page fetch limits; pagination past the first page is a
	// known scale limit of the sync design.
	campaignPageSize = 100
	insightPageSize  = 500
	adPageSize       = 500

	defaultLongLivedExpiry = 5184000 // ~60 days, in seconds
	defaultShortExpiry     = 3600
)

// Campaign is a campaign row from the Graph API.
type Campaign struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	Objective      string `json:"objective"`
	DailyBudget    string `json:"daily_budget"`
	LifetimeBudget string `json:"lifetime_budget"`
}

// Action is one entry of an insight's heterogeneous actions list.
type Action struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

// InsightRow is a campaign-level insight over a date range. Numeric
// metrics arrive as strings on the wire.
type InsightRow struct {
	CampaignID   string   `json:"campaign_id"`
	CampaignName string   `json:"campaign_name"`
	Spend        string   `json:"spend"`
	Impressions  string   `json:"impressions"`
	Reach        string   `json:"reach"`
	Clicks       string   `json:"clicks"`
	Actions      []Action `json:"actions"`
	DateStart    string   `json:"date_start"`
	DateStop     string   `json:"date_stop"`
}

// Ad carries the creative/adset/campaign metadata needed for UTM
// attribution.
type Ad struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Creative struct {
		URLTags string `json:"url_tags"`
	} `json:"creative"`
	Adset struct {
		Name string `json:"name"`
	} `json:"adset"`
	Campaign struct {
		Name string `json:"name"`
	} `json:"campaign"`
}

// AdAccount is an ad account accessible to the connected user.
type AdAccount struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AccountID     string `json:"account_id"`
	Currency      string `json:"currency"`
	AccountStatus int    `json:"account_status"`
}

// UserInfo identifies the connected Facebook user.
type UserInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Token is the result of an OAuth code exchange.
type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// apiError is the error-shaped body the Graph API returns with 200s
// and non-2xx alike.
type apiError struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type Client struct {
	httpc     *http.Client
	baseURL   string
	dialogURL string
	appID     string
	appSecret string
}

func NewClient(appID, appSecret string, timeout time.Duration) *Client {
	return &Client{
		httpc:     &http.Client{Timeout: timeout},
		baseURL:   graphBaseURL,
		dialogURL: dialogBaseURL,
		appID:     appID,
		appSecret: appSecret,
	}
}

// WithBaseURL points the client at a different Graph endpoint; used by
// tests with httptest servers.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

// BuildOAuthURL returns the dialog URL the user is redirected to.
func (c *Client) BuildOAuthURL(redirectURI, state string) string {
	scopes := strings.Join([]string{
		"ads_read",
		"ads_management",
		"business_management",
		"read_insights",
	}, ",")

	q := url.Values{}
	q.Set("client_id", c.appID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", scopes)
	q.Set("state", state)
	q.Set("response_type", "code")
	return c.dialogURL + "?" + q.Encode()
}

// ExchangeCode trades the OAuth code for an access token, then
// upgrades it to a long-lived (~60 day) token. If the long-lived
// exchange fails the short-lived token is returned instead.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*Token, error) {
	q := url.Values{}
	q.Set("client_id", c.appID)
	q.Set("client_secret", c.appSecret)
	q.Set("redirect_uri", redirectURI)
	q.Set("code", code)

	var short Token
	if err := c.getJSON(ctx, "/oauth/access_token?"+q.Encode(), &short); err != nil {
		return nil, err
	}
	if short.ExpiresIn == 0 {
		short.ExpiresIn = defaultShortExpiry
	}

	lq := url.Values{}
	lq.Set("grant_type", "fb_exchange_token")
	lq.Set("client_id", c.appID)
	lq.Set("client_secret", c.appSecret)
	lq.Set("fb_exchange_token", short.AccessToken)

	var long Token
	if err := c.getJSON(ctx, "/oauth/access_token?"+lq.Encode(), &long); err != nil {
		return &short, nil
	}
	if long.ExpiresIn == 0 {
		long.ExpiresIn = defaultLongLivedExpiry
	}
	return &long, nil
}

// GetUserAndAdAccounts fetches the connected user plus the ad accounts
// they can read.
func (c *Client) GetUserAndAdAccounts(ctx context.Context, accessToken string) (*UserInfo, []AdAccount, error) {
	q := url.Values{}
	q.Set("fields", "id,name")
	q.Set("access_token", accessToken)

	var user UserInfo
	if err := c.getJSON(ctx, "/me?"+q.Encode(), &user); err != nil {
		return nil, nil, err
	}

	aq := url.Values{}
	aq.Set("fields", "id,name,account_id,currency,account_status")
	aq.Set("access_token", accessToken)

	var accounts struct {
		Data []AdAccount `json:"data"`
	}
	if err := c.getJSON(ctx, "/me/adaccounts?"+aq.Encode(), &accounts); err != nil {
		return nil, nil, err
	}

	return &user, accounts.Data, nil
}

// ListCampaigns fetches the ad account's campaign list (first page only).
func (c *Client) ListCampaigns(ctx context.Context, accessToken, adAccountID string) ([]Campaign, error) {
	q := url.Values{}
	q.Set("fields", "id,name,status,objective,daily_budget,lifetime_budget,start_time,stop_time")
	q.Set("limit", fmt.Sprintf("%d", campaignPageSize))
	q.Set("access_token", accessToken)

	var resp struct {
		Data []Campaign `json:"data"`
	}
	if err := c.getJSON(ctx, "/"+adAccountID+"/campaigns?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetCampaignInsights fetches campaign-level insights for a date
// range. The time_range parameter is a JSON string per the Graph API's
// query contract. Results are capped at one 500-row page.
func (c *Client) GetCampaignInsights(ctx context.Context, accessToken, adAccountID, dateStart, dateEnd string) ([]InsightRow, error) {
	fields := strings.Join([]string{
		"campaign_name",
		"campaign_id",
		"spend",
		"impressions",
		"reach",
		"clicks",
		"cpc",
		"cpm",
		"ctr",
		"actions",
		"cost_per_action_type",
		"date_start",
		"date_stop",
	}, ",")

	q := url.Values{}
	q.Set("fields", fields)
	q.Set("time_range", fmt.Sprintf(`{"since":"%s","until":"%s"}`, dateStart, dateEnd))
	q.Set("level", "campaign")
	q.Set("limit", fmt.Sprintf("%d", insightPageSize))
	q.Set("access_token", accessToken)

	var resp struct {
		Data []InsightRow `json:"data"`
	}
	if err := c.getJSON(ctx, "/"+adAccountID+"/insights?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListAdsWithUTM fetches ads with nested creative url_tags plus adset
// and campaign names for fallback attribution.
func (c *Client) ListAdsWithUTM(ctx context.Context, accessToken, adAccountID string) ([]Ad, error) {
	q := url.Values{}
	q.Set("fields", "id,name,status,creative{url_tags,object_story_spec},adset{name},campaign{name}")
	q.Set("limit", fmt.Sprintf("%d", adPageSize))
	q.Set("access_token", accessToken)

	var resp struct {
		Data []Ad `json:"data"`
	}
	if err := c.getJSON(ctx, "/"+adAccountID+"/ads?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// getJSON performs a GET and decodes either the expected shape or the
// Graph error envelope. The Graph API reports errors inside 200
// bodies as well, so the body is decoded twice.
func (c *Client) getJSON(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return apperrors.Provider("facebook", err.Error())
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return apperrors.Provider("facebook", fmt.Sprintf("invalid response body: %v", err))
	}

	var apiErr apiError
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error != nil {
		return apperrors.Provider("facebook", apiErr.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.Provider("facebook", fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	return json.Unmarshal(raw, v)
}

// ParseUTMTags parses a creative's url_tags string. The value is a
// bare key=value&key=value tag string, not a full URL, so it is split
// manually instead of going through a URL parser.
func ParseUTMTags(urlTags string) map[string]string {
	params := make(map[string]string)
	if urlTags == "" {
		return params
	}

	for _, pair := range strings.Split(urlTags, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" || value == "" {
			continue
		}
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		params[key] = value
	}
	return params
}

// ExtractActionMetric finds the first action matching the given type
// and returns its value; 0 when absent or malformed.
func ExtractActionMetric(actions []Action, actionType string) int64 {
	for _, a := range actions {
		if a.ActionType == actionType {
			v, err := strconv.ParseInt(a.Value, 10, 64)
			if err != nil {
				return 0
			}
			return v
		}
	}
	return 0
}
