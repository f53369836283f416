package sessioncache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPAPI drives the backend's /api/auth endpoints over HTTP.
type HTTPAPI struct {
	baseURL string
	http    *http.Client
}

func NewHTTPAPI(baseURL string) *HTTPAPI {
	return &HTTPAPI{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *HTTPAPI) AuthorizationURL(ctx context.Context, redirectURI, state string) (string, error) {
	q := url.Values{}
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	var resp struct {
		AuthorizationURL string `json:"authorizationUrl"`
	}
	if err := a.getJSON(ctx, "/api/auth/login?"+q.Encode(), "", &resp); err != nil {
		return "", err
	}
	return resp.AuthorizationURL, nil
}

func (a *HTTPAPI) ExchangeCallback(ctx context.Context, code, redirectURI string) (*LoginResult, error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("redirect_uri", redirectURI)
	var resp struct {
		AccessToken  string          `json:"accessToken"`
		RefreshToken string          `json:"refreshToken"`
		ExpiresIn    int64           `json:"expiresIn"`
		User         json.RawMessage `json:"user"`
		SessionID    string          `json:"sessionId"`
	}
	if err := a.getJSON(ctx, "/api/auth/callback?"+q.Encode(), "", &resp); err != nil {
		return nil, err
	}
	return &LoginResult{
		Tokens:    Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken, ExpiresIn: resp.ExpiresIn},
		User:      resp.User,
		SessionID: resp.SessionID,
	}, nil
}

func (a *HTTPAPI) Me(ctx context.Context, accessToken string) (*MeResult, error) {
	var resp struct {
		User      json.RawMessage `json:"user"`
		SessionID string          `json:"sessionId"`
		ExpiresAt time.Time       `json:"expiresAt"`
	}
	if err := a.getJSON(ctx, "/api/auth/me", accessToken, &resp); err != nil {
		return nil, err
	}
	return &MeResult{User: resp.User, SessionID: resp.SessionID, ExpiresAt: resp.ExpiresAt}, nil
}

func (a *HTTPAPI) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	body, _ := json.Marshal(map[string]string{"refreshToken": refreshToken})
	var resp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    int64  `json:"expiresIn"`
		SessionID    string `json:"sessionId"`
	}
	if err := a.postJSON(ctx, "/api/auth/refresh", "", body, &resp); err != nil {
		return nil, err
	}
	return &RefreshResult{
		Tokens:    Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken, ExpiresIn: resp.ExpiresIn},
		SessionID: resp.SessionID,
	}, nil
}

func (a *HTTPAPI) Logout(ctx context.Context, accessToken string) error {
	return a.postJSON(ctx, "/api/auth/logout", accessToken, nil, nil)
}

func (a *HTTPAPI) getJSON(ctx context.Context, path, bearer string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return err
	}
	return a.roundTrip(req, bearer, out)
}

func (a *HTTPAPI) postJSON(ctx context.Context, path, bearer string, body []byte, out interface{}) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.roundTrip(req, bearer, out)
}

func (a *HTTPAPI) roundTrip(req *http.Request, bearer string, out interface{}) error {
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(b))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
