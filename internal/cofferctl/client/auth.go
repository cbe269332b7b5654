package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/coffersec/coffer/api/types/v1alpha1"
)

// StartLogin begins a device login and returns the codes the user
// needs to approve it in a browser
func (c *Client) StartLogin(ctx context.Context) (*v1alpha1.DeviceCodeResponse, error) {
	resp, err := c.doRequest(ctx, "POST", "/api/v1alpha1/auth/start", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var codes v1alpha1.DeviceCodeResponse
	if err := decodeResponse(resp, &codes); err != nil {
		return nil, err
	}
	return &codes, nil
}

// WaitForLogin polls the server until the pending login completes. It
// honors the server's Retry-After header, so slow-down responses and
// rate limits stretch the polling cadence rather than failing.
func (c *Client) WaitForLogin(ctx context.Context, deviceCode string, interval int) (*v1alpha1.TokenResponse, error) {
	if interval < 1 {
		interval = 5
	}

	for {
		tokens, retryAfter, err := c.pollLogin(ctx, deviceCode)
		if err != nil {
			return nil, err
		}
		if tokens != nil {
			c.setTokens(tokens.AccessToken, tokens.RefreshToken)
			return tokens, nil
		}

		if retryAfter > interval {
			interval = retryAfter
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(interval) * time.Second):
		}
	}
}

// pollLogin performs one poll. A nil token response with no error
// means the login is still pending; retryAfter carries the server's
// requested wait in seconds.
func (c *Client) pollLogin(ctx context.Context, deviceCode string) (*v1alpha1.TokenResponse, int, error) {
	resp, err := c.doRequest(ctx, "POST", "/api/v1alpha1/auth/poll", &v1alpha1.PollRequest{
		DeviceCode: deviceCode,
		DeviceID:   c.deviceID,
	})
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var tokens v1alpha1.TokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
			return nil, 0, fmt.Errorf("error decoding response: %w", err)
		}
		return &tokens, 0, nil

	case http.StatusPreconditionRequired, http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return nil, retryAfter, nil

	case http.StatusUnauthorized:
		return nil, 0, fmt.Errorf("login was denied or the code expired - run login again")

	default:
		return nil, 0, handleResponse(resp)
	}
}

// refreshAccess exchanges the cached refresh token for a new access token
func (c *Client) refreshAccess(ctx context.Context) error {
	resp, err := c.doOnce(ctx, "POST", "/api/v1alpha1/auth/refresh", &v1alpha1.RefreshRequest{
		RefreshToken: c.refreshToken,
		DeviceID:     c.deviceID,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("session expired - run login again")
	}

	var tokens v1alpha1.TokenResponse
	if err := decodeResponse(resp, &tokens); err != nil {
		return err
	}
	c.setTokens(tokens.AccessToken, tokens.RefreshToken)
	return nil
}

// Logout revokes the cached refresh token on the server and drops the
// local credentials
func (c *Client) Logout(ctx context.Context) error {
	if c.refreshToken == "" {
		return nil
	}

	resp, err := c.doOnce(ctx, "POST", "/api/v1alpha1/auth/logout", &v1alpha1.LogoutRequest{
		RefreshToken: c.refreshToken,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := handleResponse(resp); err != nil {
		return err
	}

	c.refreshToken = ""
	c.setTokens("", "")
	return nil
}
