package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/coffersec/coffer/api/types/v1alpha1"
)

// secretPath builds the request path for a named secret, optionally
// viewing the store as another user
func secretPath(name, suffix, viewAs string) string {
	p := fmt.Sprintf("/api/v1alpha1/secrets/%s%s", url.PathEscape(name), suffix)
	if viewAs != "" {
		p += "?view_as=" + url.QueryEscape(viewAs)
	}
	return p
}

// ListSecrets retrieves the secrets the caller may read. Values are
// omitted from listings; use GetSecret for the value.
func (c *Client) ListSecrets(ctx context.Context, viewAs string) ([]v1alpha1.Secret, error) {
	p := "/api/v1alpha1/secrets"
	if viewAs != "" {
		p += "?view_as=" + url.QueryEscape(viewAs)
	}
	resp, err := c.doRequest(ctx, "GET", p, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list struct {
		Items []v1alpha1.Secret `json:"items"`
	}
	if err := decodeResponse(resp, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// GetSecret retrieves a single secret, including its value
func (c *Client) GetSecret(ctx context.Context, name, viewAs string) (*v1alpha1.Secret, error) {
	resp, err := c.doRequest(ctx, "GET", secretPath(name, "", viewAs), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var secret v1alpha1.Secret
	if err := decodeResponse(resp, &secret); err != nil {
		return nil, err
	}
	return &secret, nil
}

// SetSecret creates or updates a secret value
func (c *Client) SetSecret(ctx context.Context, name, value string) (*v1alpha1.Secret, error) {
	resp, err := c.doRequest(ctx, "PUT", secretPath(name, "", ""), &v1alpha1.SetSecretRequest{
		Value: value,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var secret v1alpha1.Secret
	if err := decodeResponse(resp, &secret); err != nil {
		return nil, err
	}
	return &secret, nil
}

// DeleteSecret removes a secret and its history
func (c *Client) DeleteSecret(ctx context.Context, name string) error {
	resp, err := c.doRequest(ctx, "DELETE", secretPath(name, "", ""), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return handleResponse(resp)
}

// GetHistory retrieves a secret's version history, newest first
func (c *Client) GetHistory(ctx context.Context, name, viewAs string) ([]v1alpha1.SecretVersion, error) {
	resp, err := c.doRequest(ctx, "GET", secretPath(name, "/history", viewAs), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list struct {
		Items []v1alpha1.SecretVersion `json:"items"`
	}
	if err := decodeResponse(resp, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// ListACLs retrieves the grants on a secret
func (c *Client) ListACLs(ctx context.Context, name, viewAs string) ([]v1alpha1.AclEntry, error) {
	resp, err := c.doRequest(ctx, "GET", secretPath(name, "/acl", viewAs), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list struct {
		Items []v1alpha1.AclEntry `json:"items"`
	}
	if err := decodeResponse(resp, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// ShareSecret grants a principal access to a secret. Sharing with the
// same principal again replaces the previous grant.
func (c *Client) ShareSecret(ctx context.Context, name string, entry v1alpha1.AclEntry) error {
	resp, err := c.doRequest(ctx, "POST", secretPath(name, "/share", ""), &v1alpha1.ShareSecretRequest{
		AclEntry: entry,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return handleResponse(resp)
}

// UnshareSecret removes a principal's grant from a secret
func (c *Client) UnshareSecret(ctx context.Context, name, principal, principalID string) error {
	p := secretPath(name, "/share", "") + "?principal=" + url.QueryEscape(principal)
	if principalID != "" {
		p += "&principal_id=" + url.QueryEscape(principalID)
	}
	resp, err := c.doRequest(ctx, "DELETE", p, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return handleResponse(resp)
}
