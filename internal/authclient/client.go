package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/renoplan/renoplan/internal/config"
	"github.com/renoplan/renoplan/pkg/logger"
	"golang.org/x/oauth2"
)

// TokenSet is the provider response of a code exchange or refresh.
type TokenSet struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	IDToken      string `json:"idToken,omitempty"`
	TokenType    string `json:"tokenType,omitempty"`
	// ExpiresIn is the provider-reported access-token lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn"`
}

// UpstreamAuthError wraps a provider rejection (expired/reused code, mismatched
// redirect, failed introspection call). Provider-internal detail stays in logs
// and never reaches the client.
type UpstreamAuthError struct {
	Op  string
	Err error
}

func (e *UpstreamAuthError) Error() string {
	return fmt.Sprintf("upstream auth error during %s: %v", e.Op, e.Err)
}

func (e *UpstreamAuthError) Unwrap() error { return e.Err }

// Client bridges the application and the external identity provider.
type Client struct {
	cfg  config.OIDCConfig
	http *http.Client
}

func New(cfg config.OIDCConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.IssuerURL, "/") + path
}

func (c *Client) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       c.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.endpoint(c.cfg.AuthorizePath),
			TokenURL: c.endpoint(c.cfg.TokenPath),
		},
	}
}

// BuildAuthorizationURL deterministically constructs the provider /authorize URL
// with response_type=code, the configured client id and scopes, and the
// caller-supplied redirect_uri and state. No side effects.
func (c *Client) BuildAuthorizationURL(redirectURI, state string) (string, error) {
	if redirectURI == "" {
		return "", fmt.Errorf("redirect_uri is required")
	}
	if state == "" {
		return "", fmt.Errorf("state is required")
	}
	return c.oauthConfig(redirectURI).AuthCodeURL(state), nil
}

// ExchangeCode performs the authorization-code-for-token exchange.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenSet, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.oauthConfig(redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, &UpstreamAuthError{Op: "code exchange", Err: err}
	}
	return tokenSetFromOAuth2(tok), nil
}

// RefreshTokens exchanges a refresh token for a new token set. An
// already-rotated refresh token fails cleanly with UpstreamAuthError.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*TokenSet, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	src := c.oauthConfig("").TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, &UpstreamAuthError{Op: "token refresh", Err: err}
	}
	ts := tokenSetFromOAuth2(tok)
	if ts.RefreshToken == "" {
		// providers may omit the rotated refresh token; keep the current one
		ts.RefreshToken = refreshToken
	}
	return ts, nil
}

func tokenSetFromOAuth2(tok *oauth2.Token) *TokenSet {
	ts := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if v, ok := tok.Extra("expires_in").(float64); ok {
		ts.ExpiresIn = int64(v)
	} else if !tok.Expiry.IsZero() {
		ts.ExpiresIn = int64(time.Until(tok.Expiry).Seconds())
	}
	if id, ok := tok.Extra("id_token").(string); ok {
		ts.IDToken = id
	}
	return ts
}

// ValidateAccessToken asks the provider's introspection endpoint whether the
// token is active. The introspection result is authoritative: a network failure
// or non-200 response is treated as invalid (fail-closed), never silently valid.
func (c *Client) ValidateAccessToken(ctx context.Context, token string) bool {
	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", "access_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.cfg.IntrospectionPath), strings.NewReader(form.Encode()))
	if err != nil {
		logger.Errorf("introspection request build failed: %v", err)
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		// fail closed: a provider outage invalidates rather than trusts the token
		logger.Warnf("introspection call failed: %v", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Warnf("introspection returned %d", resp.StatusCode)
		return false
	}
	var body struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		logger.Warnf("introspection decode failed: %v", err)
		return false
	}
	return body.Active
}

// Revoke notifies the provider that a token is no longer in use. Best effort:
// callers log the error and proceed.
func (c *Client) Revoke(ctx context.Context, token string) error {
	form := url.Values{}
	form.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.cfg.RevocationPath), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return &UpstreamAuthError{Op: "revocation", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &UpstreamAuthError{Op: "revocation", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}
