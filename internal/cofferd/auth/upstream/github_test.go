package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *GitHubClient {
	c := NewGitHubClient("client-id", "client-secret", srv.Client())
	c.deviceAuthURL = srv.URL + "/login/device/code"
	c.tokenURL = srv.URL + "/login/oauth/access_token"
	c.userURL = srv.URL + "/user"
	c.emailsURL = srv.URL + "/user/emails"
	return c
}

func TestRequestDeviceCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login/device/code", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "read:user user:email", r.PostForm.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"device_code": "dc-123",
			"user_code": "ABCD-1234",
			"verification_uri": "https://github.com/login/device",
			"expires_in": 900,
			"interval": 5
		}`))
	}))
	defer srv.Close()

	grant, err := newTestClient(srv).RequestDeviceCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dc-123", grant.DeviceCode)
	assert.Equal(t, "ABCD-1234", grant.UserCode)
	assert.Equal(t, "https://github.com/login/device", grant.VerificationURI)
	assert.Equal(t, 900, grant.ExpiresIn)
	assert.Equal(t, 5, grant.Interval)
}

func TestRequestDeviceCodeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error": "incorrect_client_credentials"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).RequestDeviceCode(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestExchangeOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus Status
		wantToken  string
		wantIntvl  int
	}{
		{
			name:       "granted",
			body:       `{"access_token": "gho_abc", "token_type": "bearer"}`,
			wantStatus: StatusGranted,
			wantToken:  "gho_abc",
		},
		{
			name:       "pending",
			body:       `{"error": "authorization_pending"}`,
			wantStatus: StatusPending,
		},
		{
			name:       "slow down",
			body:       `{"error": "slow_down", "interval": 10}`,
			wantStatus: StatusSlowDown,
			wantIntvl:  10,
		},
		{
			name:       "expired",
			body:       `{"error": "expired_token"}`,
			wantStatus: StatusExpired,
		},
		{
			name:       "denied",
			body:       `{"error": "access_denied"}`,
			wantStatus: StatusDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "dc-123", r.PostForm.Get("device_code"))
				assert.Equal(t, deviceGrantType, r.PostForm.Get("grant_type"))

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			result, err := newTestClient(srv).Exchange(context.Background(), "dc-123")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantToken, result.AccessToken)
			assert.Equal(t, tt.wantIntvl, result.Interval)
		})
	}
}

func TestExchangeUnknownError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error": "unsupported_grant_type"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Exchange(context.Background(), "dc-123")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestExchangeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Exchange(context.Background(), "dc-123")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestFetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_abc", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 42, "login": "octocat", "name": "The Octocat", "email": "octo@example.com"}`))
	}))
	defer srv.Close()

	profile, err := newTestClient(srv).FetchProfile(context.Background(), "gho_abc")
	require.NoError(t, err)
	assert.Equal(t, "42", profile.ProviderID)
	assert.Equal(t, "octocat", profile.Login)
	assert.Equal(t, "The Octocat", profile.Name)
	assert.Equal(t, "octo@example.com", profile.Email)
}

func TestFetchProfileHiddenEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/user":
			w.Write([]byte(`{"id": 42, "login": "octocat", "name": "", "email": ""}`))
		case "/user/emails":
			w.Write([]byte(`[
				{"email": "other@example.com", "primary": false, "verified": true},
				{"email": "octo@example.com", "primary": true, "verified": true}
			]`))
		}
	}))
	defer srv.Close()

	profile, err := newTestClient(srv).FetchProfile(context.Background(), "gho_abc")
	require.NoError(t, err)
	assert.Equal(t, "octo@example.com", profile.Email)
}

func TestFetchProfileMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"login": "octocat"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchProfile(context.Background(), "gho_abc")
	assert.ErrorIs(t, err, ErrUpstream)
}
