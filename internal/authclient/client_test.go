package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/renoplan/renoplan/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOIDCConfig(issuer string) config.OIDCConfig {
	return config.OIDCConfig{
		IssuerURL:         issuer,
		ClientID:          "renoplan-web",
		ClientSecret:      "csecret",
		Scopes:            []string{"openid", "profile", "email"},
		AuthorizePath:     "/authorize",
		TokenPath:         "/oauth/token",
		IntrospectionPath: "/oauth/introspect",
		RevocationPath:    "/oauth/revoke",
	}
}

func TestBuildAuthorizationURL(t *testing.T) {
	c := New(testOIDCConfig("https://idp.example.com"))

	raw, err := c.BuildAuthorizationURL("http://localhost:4000/auth/callback", "random-state-123")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "idp.example.com", u.Host)
	assert.Equal(t, "/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "renoplan-web", q.Get("client_id"))
	assert.Equal(t, "random-state-123", q.Get("state"))
	assert.Equal(t, "http://localhost:4000/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "openid profile email", q.Get("scope"))
}

func TestBuildAuthorizationURLRequiresInputs(t *testing.T) {
	c := New(testOIDCConfig("https://idp.example.com"))
	_, err := c.BuildAuthorizationURL("", "state")
	assert.Error(t, err)
	_, err = c.BuildAuthorizationURL("http://cb", "")
	assert.Error(t, err)
}

func TestExchangeCodeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/token", r.URL.Path)
		_ = r.ParseForm()
		require.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		require.Equal(t, "good-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"id_token":      "idtok",
		})
	}))
	defer srv.Close()

	c := New(testOIDCConfig(srv.URL))
	ts, err := c.ExchangeCode(context.Background(), "good-code", "http://localhost/cb")
	require.NoError(t, err)
	assert.Equal(t, "at-1", ts.AccessToken)
	assert.Equal(t, "rt-1", ts.RefreshToken)
	assert.Equal(t, "idtok", ts.IDToken)
	assert.Equal(t, int64(3600), ts.ExpiresIn)
}

func TestExchangeCodeProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"code expired"}`))
	}))
	defer srv.Close()

	c := New(testOIDCConfig(srv.URL))
	_, err := c.ExchangeCode(context.Background(), "stale-code", "http://localhost/cb")
	require.Error(t, err)
	var ue *UpstreamAuthError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "code exchange", ue.Op)
}

func TestRefreshTokensKeepsRefreshWhenOmitted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		require.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "at-new",
			"token_type":   "Bearer",
			"expires_in":   1800,
		})
	}))
	defer srv.Close()

	c := New(testOIDCConfig(srv.URL))
	ts, err := c.RefreshTokens(context.Background(), "rt-old")
	require.NoError(t, err)
	assert.Equal(t, "at-new", ts.AccessToken)
	assert.Equal(t, "rt-old", ts.RefreshToken)
}

func TestRefreshTokensRotatedTokenFailsCleanly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	c := New(testOIDCConfig(srv.URL))
	_, err := c.RefreshTokens(context.Background(), "already-rotated")
	var ue *UpstreamAuthError
	require.ErrorAs(t, err, &ue)
}

func TestValidateAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "renoplan-web", user)
		require.Equal(t, "csecret", pass)
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("token") == "live-token" {
			_, _ = w.Write([]byte(`{"active":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"active":false}`))
	}))
	defer srv.Close()

	c := New(testOIDCConfig(srv.URL))
	assert.True(t, c.ValidateAccessToken(context.Background(), "live-token"))
	assert.False(t, c.ValidateAccessToken(context.Background(), "dead-token"))
}

func TestValidateAccessTokenFailsClosed(t *testing.T) {
	// non-200 response
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	c := New(testOIDCConfig(srv.URL))
	assert.False(t, c.ValidateAccessToken(context.Background(), "any"))
	srv.Close()

	// network failure: server already closed
	assert.False(t, c.ValidateAccessToken(context.Background(), "any"))
}

func TestRevoke(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotToken = r.Form.Get("token")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(testOIDCConfig(srv.URL))
	require.NoError(t, c.Revoke(context.Background(), "tok-1"))
	assert.Equal(t, "tok-1", gotToken)
}

func TestRevokeUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(testOIDCConfig(srv.URL))
	err := c.Revoke(context.Background(), "tok-1")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "revocation"))
}
