package sessioncache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/renoplan/renoplan/pkg/logger"
)

// State is the cache's authentication state.
type State string

const (
	StateUninitialized   State = "uninitialized"
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
	StateRefreshing      State = "refreshing"
)

var (
	ErrStateMismatch    = errors.New("oauth state mismatch")
	ErrCodeAlreadyUsed  = errors.New("authorization code already handled")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Tokens is the persisted token set.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// SessionInfo is the persisted session metadata.
type SessionInfo struct {
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// LoginResult is what the backend returns from a successful callback exchange.
type LoginResult struct {
	Tokens    Tokens
	User      json.RawMessage
	SessionID string
}

// RefreshResult is what the backend returns from a token refresh.
type RefreshResult struct {
	Tokens    Tokens
	SessionID string
}

// MeResult is the authenticated-user snapshot.
type MeResult struct {
	User      json.RawMessage
	SessionID string
	ExpiresAt time.Time
}

// API is the backend auth surface the cache drives.
type API interface {
	AuthorizationURL(ctx context.Context, redirectURI, state string) (string, error)
	ExchangeCallback(ctx context.Context, code, redirectURI string) (*LoginResult, error)
	Me(ctx context.Context, accessToken string) (*MeResult, error)
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)
	Logout(ctx context.Context, accessToken string) error
}

// refreshLeeway is how long before token expiry the proactive refresh fires.
const refreshLeeway = 5 * time.Minute

// logoutTimeout bounds the upstream revocation call during Logout. Local
// state is cleared whether or not the call completes.
const logoutTimeout = 3 * time.Second

// Cache holds the client-side authentication state: the persisted token set,
// user snapshot and session metadata, plus a single proactive refresh timer.
// The oauth_state nonce lives in a separate tab-scoped store so it never
// outlives the login round-trip that created it.
// All methods are safe for concurrent use.
type Cache struct {
	api     API
	storage Storage
	tab     Storage

	mu       sync.Mutex
	state    State
	tokens   *Tokens
	user     json.RawMessage
	session  *SessionInfo
	timer    *time.Timer
	handled  map[string]bool

	// schedule is swapped out by tests to observe timer arming.
	schedule func(d time.Duration, f func()) *time.Timer
}

// New builds a cache over the given persistent storage with an ephemeral
// in-memory store for the oauth_state nonce.
func New(api API, storage Storage) *Cache {
	return NewWithTabStorage(api, storage, NewMemoryStorage())
}

// NewWithTabStorage builds a cache with an explicit tab-scoped store (the
// sessionStorage counterpart of the persistent localStorage argument).
func NewWithTabStorage(api API, storage, tab Storage) *Cache {
	return &Cache{
		api:      api,
		storage:  storage,
		tab:      tab,
		state:    StateUninitialized,
		handled:  make(map[string]bool),
		schedule: time.AfterFunc,
	}
}

// State returns the current authentication state.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// User returns the stored user snapshot, or nil when unauthenticated.
func (c *Cache) User() json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// AccessToken returns the current access token, or empty when unauthenticated.
func (c *Cache) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokens == nil {
		return ""
	}
	return c.tokens.AccessToken
}

// Load restores persisted state. With no stored tokens the cache settles in
// the unauthenticated state. Stored tokens are validated against the backend;
// a rejected access token triggers one refresh attempt, and if that fails too
// the stored state is cleared rather than trusted.
func (c *Cache) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateUninitialized {
		c.mu.Unlock()
		return fmt.Errorf("load called in state %s", c.state)
	}
	c.state = StateLoading
	tokens, user, session := c.readStorage()
	c.mu.Unlock()

	if tokens == nil {
		c.mu.Lock()
		c.state = StateUnauthenticated
		c.mu.Unlock()
		return nil
	}

	me, err := c.api.Me(ctx, tokens.AccessToken)
	if err == nil {
		c.mu.Lock()
		c.tokens = tokens
		c.user = me.User
		c.session = &SessionInfo{SessionID: me.SessionID, ExpiresAt: me.ExpiresAt}
		c.writeStorage()
		c.state = StateAuthenticated
		c.armRefreshLocked(tokens.ExpiresIn)
		c.mu.Unlock()
		return nil
	}
	logger.Debugf("stored access token rejected, attempting refresh: %v", err)

	res, err := c.api.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		logger.Infof("stored session could not be restored: %v", err)
		c.mu.Lock()
		c.clearLocked()
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	c.tokens = &res.Tokens
	c.user = user
	c.session = &SessionInfo{SessionID: res.SessionID}
	if session != nil {
		c.session.ExpiresAt = session.ExpiresAt
	}
	c.writeStorage()
	c.state = StateAuthenticated
	c.armRefreshLocked(res.Tokens.ExpiresIn)
	c.mu.Unlock()
	return nil
}

// Login starts an authorization-code flow: a fresh state nonce goes into the
// tab-scoped store and the provider authorization URL is returned for the
// caller to navigate to.
func (c *Cache) Login(ctx context.Context, redirectURI string) (string, error) {
	state := uuid.NewString()
	c.tab.Set(KeyState, state)
	u, err := c.api.AuthorizationURL(ctx, redirectURI, state)
	if err != nil {
		c.tab.Remove(KeyState)
		return "", err
	}
	return u, nil
}

// HandleCallback completes the flow started by Login. The state parameter
// must match the stored nonce, and each authorization code is exchanged at
// most once regardless of how many times the callback fires.
func (c *Cache) HandleCallback(ctx context.Context, code, state, redirectURI string) error {
	stored, ok := c.tab.Get(KeyState)
	if !ok || stored != state {
		return ErrStateMismatch
	}

	c.mu.Lock()
	if c.handled[code] {
		c.mu.Unlock()
		return ErrCodeAlreadyUsed
	}
	c.handled[code] = true
	c.mu.Unlock()

	res, err := c.api.ExchangeCallback(ctx, code, redirectURI)
	if err != nil {
		// the code round-trip is spent either way; the nonce must not linger
		c.tab.Remove(KeyState)
		return err
	}
	c.tab.Remove(KeyState)

	c.mu.Lock()
	c.tokens = &res.Tokens
	c.user = res.User
	c.session = &SessionInfo{SessionID: res.SessionID}
	c.writeStorage()
	c.state = StateAuthenticated
	c.armRefreshLocked(res.Tokens.ExpiresIn)
	c.mu.Unlock()
	return nil
}

// Refresh rotates the token pair now. On any failure the cache clears all
// stored state and reports unauthenticated; it never keeps half-rotated
// tokens.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.tokens == nil {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	rt := c.tokens.RefreshToken
	c.state = StateRefreshing
	c.mu.Unlock()

	res, err := c.api.Refresh(ctx, rt)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		logger.Infof("token refresh failed, clearing session: %v", err)
		c.clearLocked()
		return err
	}
	c.tokens = &res.Tokens
	if c.session == nil || c.session.SessionID != res.SessionID {
		c.session = &SessionInfo{SessionID: res.SessionID}
	}
	c.writeStorage()
	c.state = StateAuthenticated
	c.armRefreshLocked(res.Tokens.ExpiresIn)
	return nil
}

// Logout revokes the session upstream (best effort, bounded by
// logoutTimeout) and clears all local state unconditionally. A provider
// outage never leaves the client logged in.
func (c *Cache) Logout(ctx context.Context) {
	c.mu.Lock()
	var at string
	if c.tokens != nil {
		at = c.tokens.AccessToken
	}
	c.mu.Unlock()

	if at != "" {
		rctx, cancel := context.WithTimeout(ctx, logoutTimeout)
		defer cancel()
		if err := c.api.Logout(rctx, at); err != nil {
			logger.Warnf("logout revocation failed: %v", err)
		}
	}

	c.mu.Lock()
	c.clearLocked()
	c.mu.Unlock()
}

// RefreshDelay computes when the proactive refresh fires for a token lifetime:
// five minutes before expiry, immediately for shorter-lived tokens.
func RefreshDelay(expiresIn int64) time.Duration {
	d := time.Duration(expiresIn)*time.Second - refreshLeeway
	if d < 0 {
		return 0
	}
	return d
}

// armRefreshLocked cancels any pending timer and arms a new one. The cache
// owns at most one timer at a time.
func (c *Cache) armRefreshLocked(expiresIn int64) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timer = c.schedule(RefreshDelay(expiresIn), func() {
		if err := c.Refresh(context.Background()); err != nil {
			logger.Debugf("scheduled refresh failed: %v", err)
		}
	})
}

func (c *Cache) clearLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.tokens = nil
	c.user = nil
	c.session = nil
	c.state = StateUnauthenticated
	c.storage.Remove(KeyTokens)
	c.storage.Remove(KeyUser)
	c.storage.Remove(KeySession)
	c.tab.Remove(KeyState)
}

func (c *Cache) writeStorage() {
	if c.tokens != nil {
		if b, err := json.Marshal(c.tokens); err == nil {
			c.storage.Set(KeyTokens, string(b))
		}
	}
	if c.user != nil {
		c.storage.Set(KeyUser, string(c.user))
	}
	if c.session != nil {
		if b, err := json.Marshal(c.session); err == nil {
			c.storage.Set(KeySession, string(b))
		}
	}
}

// readStorage decodes the three persisted keys. Corrupt values read as absent.
func (c *Cache) readStorage() (*Tokens, json.RawMessage, *SessionInfo) {
	var tokens *Tokens
	if raw, ok := c.storage.Get(KeyTokens); ok {
		var t Tokens
		if err := json.Unmarshal([]byte(raw), &t); err == nil && t.AccessToken != "" {
			tokens = &t
		}
	}
	var user json.RawMessage
	if raw, ok := c.storage.Get(KeyUser); ok && json.Valid([]byte(raw)) {
		user = json.RawMessage(raw)
	}
	var session *SessionInfo
	if raw, ok := c.storage.Get(KeySession); ok {
		var s SessionInfo
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			session = &s
		}
	}
	return tokens, user, session
}
