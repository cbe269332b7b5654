// Package client provides an HTTP client for interacting with the Coffer API
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// Client provides methods for interacting with the Coffer API
type Client struct {
	// baseURL is the root URL for all API requests
	baseURL string
	// httpClient is the underlying HTTP client
	httpClient *http.Client
	// accessToken is the bearer token sent with API requests
	accessToken string
	// refreshToken renews the access token when the server rejects it
	refreshToken string
	// deviceID identifies this client installation
	deviceID string
	// onTokens is called whenever the credentials change so the caller
	// can persist them
	onTokens func(accessToken, refreshToken string)
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithTokens sets the cached credentials from a previous login
func WithTokens(accessToken, refreshToken string) ClientOption {
	return func(c *Client) {
		c.accessToken = accessToken
		c.refreshToken = refreshToken
	}
}

// WithDeviceID sets the client installation identifier
func WithDeviceID(deviceID string) ClientOption {
	return func(c *Client) {
		c.deviceID = deviceID
	}
}

// WithTokenSink registers a callback invoked whenever the client's
// credentials change, such as after an automatic refresh
func WithTokenSink(fn func(accessToken, refreshToken string)) ClientOption {
	return func(c *Client) {
		c.onTokens = fn
	}
}

// WithTLSConfig sets custom TLS configuration
func WithTLSConfig(config *tls.Config) ClientOption {
	return func(c *Client) {
		tr := &http.Transport{
			TLSClientConfig: config,
		}
		c.httpClient = &http.Client{
			Transport: tr,
			Timeout:   30 * time.Second,
		}
	}
}

// NewClient creates a new API client
func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	// Validate and normalize base URL
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Path != "" {
		u.Path = ""
	}

	// Create client with defaults
	c := &Client{
		baseURL: u.String(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	// Apply options
	for _, opt := range options {
		opt(c)
	}

	return c, nil
}

// doRequest performs an HTTP request with automatic error handling.
// When the server rejects the access token and a refresh token is
// cached, it refreshes once and retries the request.
func (c *Client) doRequest(ctx context.Context, method, pathStr string, body interface{}) (*http.Response, error) {
	resp, err := c.doOnce(ctx, method, pathStr, body)
	if err != nil {
		return nil, err
	}

	// Auth endpoints return 401 for their own reasons; only data
	// requests are retried with a fresh token
	if resp.StatusCode != http.StatusUnauthorized ||
		c.refreshToken == "" ||
		strings.HasPrefix(pathStr, "/api/v1alpha1/auth") {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if err := c.refreshAccess(ctx); err != nil {
		return nil, err
	}
	return c.doOnce(ctx, method, pathStr, body)
}

// doOnce performs a single HTTP request without refresh handling
func (c *Client) doOnce(ctx context.Context, method, pathStr string, body interface{}) (*http.Response, error) {
	// Build full URL
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	rawPath := pathStr
	if i := strings.IndexByte(pathStr, '?'); i >= 0 {
		rawPath = pathStr[:i]
		u.RawQuery = pathStr[i+1:]
	}
	u.Path = path.Join(u.Path, rawPath)

	// Create request body if needed
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := encodeBody(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	// Create request
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	// Add headers
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing request: %w", err)
	}

	return resp, nil
}

// setTokens updates the cached credentials and notifies the sink
func (c *Client) setTokens(accessToken, refreshToken string) {
	c.accessToken = accessToken
	if refreshToken != "" {
		c.refreshToken = refreshToken
	}
	if c.onTokens != nil {
		c.onTokens(c.accessToken, c.refreshToken)
	}
}
