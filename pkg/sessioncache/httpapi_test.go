package sessioncache

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackendStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		_ = json.NewEncoder(w).Encode(map[string]string{
			"authorizationUrl": "https://idp.example.com/authorize?state=" + q.Get("state"),
			"state":            q.Get("state"),
		})
	})
	mux.HandleFunc("/api/auth/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") == "bad" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"authentication failed"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"accessToken":  "at-1",
			"refreshToken": "rt-1",
			"expiresIn":    3600,
			"user":         map[string]string{"id": "u1", "email": "pat@example.com"},
			"sessionId":    "sess-1",
		})
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"user":      map[string]string{"id": "u1"},
			"sessionId": "sess-1",
		})
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["refreshToken"] != "rt-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"accessToken":  "at-2",
			"refreshToken": "rt-2",
			"expiresIn":    1800,
			"sessionId":    "sess-1",
		})
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "logged out"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPAPIFlow(t *testing.T) {
	srv := newBackendStub(t)
	api := NewHTTPAPI(srv.URL)
	ctx := context.Background()

	u, err := api.AuthorizationURL(ctx, "http://localhost/cb", "s1")
	require.NoError(t, err)
	assert.Contains(t, u, "state=s1")

	res, err := api.ExchangeCallback(ctx, "good", "http://localhost/cb")
	require.NoError(t, err)
	assert.Equal(t, "at-1", res.Tokens.AccessToken)
	assert.Equal(t, "sess-1", res.SessionID)
	assert.Contains(t, string(res.User), "pat@example.com")

	me, err := api.Me(ctx, res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", me.SessionID)

	ref, err := api.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "at-2", ref.Tokens.AccessToken)
	assert.Equal(t, int64(1800), ref.Tokens.ExpiresIn)

	require.NoError(t, api.Logout(ctx, res.Tokens.AccessToken))
}

func TestHTTPAPISurfacesBackendErrors(t *testing.T) {
	srv := newBackendStub(t)
	api := NewHTTPAPI(srv.URL)

	_, err := api.ExchangeCallback(context.Background(), "bad", "http://localhost/cb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	_, err = api.Me(context.Background(), "wrong-token")
	require.Error(t, err)
}

func TestCacheAgainstHTTPBackend(t *testing.T) {
	srv := newBackendStub(t)
	st := NewMemoryStorage()
	c := New(NewHTTPAPI(srv.URL), st)
	(&manualTimers{}).hook(c)

	_, err := c.Login(context.Background(), "http://localhost/cb")
	require.NoError(t, err)
	state, _ := c.tab.Get(KeyState)
	require.NoError(t, c.HandleCallback(context.Background(), "good", state, "http://localhost/cb"))
	assert.Equal(t, StateAuthenticated, c.State())
	assert.Equal(t, "at-1", c.AccessToken())

	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, "at-2", c.AccessToken())
}
