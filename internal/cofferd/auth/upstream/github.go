package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/endpoints"
)

const (
	githubUserURL   = "https://api.github.com/user"
	githubEmailsURL = "https://api.github.com/user/emails"

	deviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"

	maxResponseBytes = 1 << 20 // 1MB
)

// GitHubClient implements Exchanger against the GitHub device flow
type GitHubClient struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client

	// endpoint URLs are fields so tests can point at a local server
	deviceAuthURL string
	tokenURL      string
	userURL       string
	emailsURL     string
}

// NewGitHubClient creates a device-flow client for GitHub
func NewGitHubClient(clientID, clientSecret string, httpClient *http.Client) *GitHubClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &GitHubClient{
		clientID:      clientID,
		clientSecret:  clientSecret,
		httpClient:    httpClient,
		deviceAuthURL: endpoints.GitHub.DeviceAuthURL,
		tokenURL:      endpoints.GitHub.TokenURL,
		userURL:       githubUserURL,
		emailsURL:     githubEmailsURL,
	}
}

// RequestDeviceCode starts a device authorization
func (c *GitHubClient) RequestDeviceCode(ctx context.Context) (*DeviceGrant, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("scope", "read:user user:email")

	var resp struct {
		DeviceCode      string `json:"device_code"`
		UserCode        string `json:"user_code"`
		VerificationURI string `json:"verification_uri"`
		ExpiresIn       int    `json:"expires_in"`
		Interval        int    `json:"interval"`
		Error           string `json:"error"`
	}
	if err := c.postForm(ctx, c.deviceAuthURL, data, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" || resp.DeviceCode == "" {
		return nil, fmt.Errorf("%w: device code request rejected", ErrUpstream)
	}

	interval := resp.Interval
	if interval < 1 {
		interval = 5
	}

	return &DeviceGrant{
		DeviceCode:      resp.DeviceCode,
		UserCode:        resp.UserCode,
		VerificationURI: resp.VerificationURI,
		ExpiresIn:       resp.ExpiresIn,
		Interval:        interval,
	}, nil
}

// Exchange attempts to trade a device code for an access token
func (c *GitHubClient) Exchange(ctx context.Context, deviceCode string) (*ExchangeResult, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("device_code", deviceCode)
	data.Set("grant_type", deviceGrantType)

	var resp struct {
		AccessToken string      `json:"access_token"`
		Error       string      `json:"error"`
		Interval    json.Number `json:"interval"`
	}
	if err := c.postForm(ctx, c.tokenURL, data, &resp); err != nil {
		return nil, err
	}

	switch resp.Error {
	case "":
		if resp.AccessToken == "" {
			return nil, fmt.Errorf("%w: empty access token", ErrUpstream)
		}
		return &ExchangeResult{Status: StatusGranted, AccessToken: resp.AccessToken}, nil
	case "authorization_pending":
		return &ExchangeResult{Status: StatusPending}, nil
	case "slow_down":
		interval := 0
		if n, err := strconv.Atoi(resp.Interval.String()); err == nil {
			interval = n
		}
		return &ExchangeResult{Status: StatusSlowDown, Interval: interval}, nil
	case "expired_token":
		return &ExchangeResult{Status: StatusExpired}, nil
	case "access_denied":
		return &ExchangeResult{Status: StatusDenied}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUpstream, resp.Error)
	}
}

// FetchProfile loads the profile behind an upstream access token
func (c *GitHubClient) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var user struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := c.getJSON(ctx, c.userURL, accessToken, &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("%w: profile missing account id", ErrUpstream)
	}

	email := user.Email
	if email == "" {
		// Profile email is hidden for most accounts; the emails endpoint
		// requires the user:email scope requested above
		email = c.fetchPrimaryEmail(ctx, accessToken)
	}

	return &Profile{
		ProviderID: strconv.FormatInt(user.ID, 10),
		Login:      user.Login,
		Name:       user.Name,
		Email:      email,
	}, nil
}

func (c *GitHubClient) fetchPrimaryEmail(ctx context.Context, accessToken string) string {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := c.getJSON(ctx, c.emailsURL, accessToken, &emails); err != nil {
		return ""
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	if len(emails) > 0 {
		return emails[0].Email
	}
	return ""
}

func (c *GitHubClient) postForm(ctx context.Context, endpoint string, data url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return c.do(req, out)
}

func (c *GitHubClient) getJSON(ctx context.Context, endpoint, accessToken string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	return c.do(req, out)
}

func (c *GitHubClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return nil
}
