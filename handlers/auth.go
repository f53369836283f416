package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/renoplan/renoplan/internal/authclient"
	"github.com/renoplan/renoplan/internal/models"
	"github.com/renoplan/renoplan/internal/sessions"
	"github.com/renoplan/renoplan/internal/tokens"
	"github.com/renoplan/renoplan/internal/users"
	"github.com/renoplan/renoplan/pkg/logger"
	"github.com/renoplan/renoplan/pkg/metrics"
)

const revokeTimeout = 3 * time.Second

// AuthHandler holds dependencies for the login, callback, refresh and logout
// endpoints.
type AuthHandler struct {
	auth        *authclient.Client
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	guard       CodeGuard
	sessionTTL  time.Duration
}

// NewAuthHandler wires the auth endpoints. sessionTTL is the session lifetime
// used when the provider's token response carries no expires_in.
func NewAuthHandler(auth *authclient.Client, u *users.Service, s *sessions.Service, guard CodeGuard, sessionTTL time.Duration) *AuthHandler {
	if guard == nil {
		guard = NewMemoryCodeGuard()
	}
	return &AuthHandler{auth: auth, usersSvc: u, sessionsSvc: s, guard: guard, sessionTTL: sessionTTL}
}

// effectiveExpiresIn substitutes the configured fallback lifetime when the
// provider omitted expires_in. Negative values pass through untouched so a
// provider-reported already-expired token stays expired.
func (h *AuthHandler) effectiveExpiresIn(expiresIn int64) int64 {
	if expiresIn == 0 && h.sessionTTL > 0 {
		return int64(h.sessionTTL / time.Second)
	}
	return expiresIn
}

// Register mounts the auth routes under /auth. authRequired guards the
// endpoints that need an established session.
func (h *AuthHandler) Register(rg *gin.RouterGroup, authRequired gin.HandlerFunc) {
	a := rg.Group("/auth")
	a.GET("/login", h.Login)
	a.GET("/callback", h.Callback)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)

	p := a.Group("", authRequired)
	p.GET("/me", h.Me)
	p.POST("/logout-all", h.LogoutAll)
}

// Login builds the provider authorization URL. The client redirects the
// browser there and stores the returned state for the callback check.
func (h *AuthHandler) Login(c *gin.Context) {
	redirectURI := c.Query("redirect_uri")
	state := c.Query("state")
	if state == "" {
		state = uuid.NewString()
	}
	u, err := h.auth.BuildAuthorizationURL(redirectURI, state)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authorizationUrl": u, "state": state})
}

// Callback exchanges the authorization code, verifies the identity, upserts
// the user and creates a session. A code is exchanged at most once; repeats
// of the same callback are rejected without contacting the provider.
func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	redirectURI := c.Query("redirect_uri")
	if code == "" || redirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and redirect_uri are required"})
		return
	}

	first, err := h.guard.FirstUse(c.Request.Context(), code)
	if err != nil {
		logger.Errorf("code guard failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !first {
		c.JSON(http.StatusConflict, gin.H{"error": "authorization code already used"})
		return
	}

	ts, err := h.auth.ExchangeCode(c.Request.Context(), code, redirectURI)
	if err != nil {
		logger.Warnf("code exchange rejected: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	claims, err := h.auth.IdentityClaims(c.Request.Context(), ts.IDToken)
	if err != nil {
		logger.Warnf("id token rejected: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	u, err := h.usersSvc.UpsertFromClaims(c.Request.Context(), claims)
	if err != nil {
		logger.Errorf("user upsert failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if u == nil {
		logger.Warnf("id token carries no subject")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	expiresIn := h.effectiveExpiresIn(ts.ExpiresIn)
	sess, err := h.sessionsSvc.Create(c.Request.Context(), u.ID, ts.AccessToken, ts.RefreshToken, expiresIn)
	if err != nil {
		logger.Errorf("session create failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	metrics.Logins.Inc()
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  ts.AccessToken,
		"refreshToken": ts.RefreshToken,
		"expiresIn":    expiresIn,
		"user":         u,
		"sessionId":    sess.ID,
	})
}

// Refresh rotates the token pair for the session holding the given refresh
// token. Every failure mode reads as 401 so an unknown token cannot be told
// apart from a rejected one.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessionsSvc.GetByRefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		logger.Errorf("refresh lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if sess == nil {
		metrics.TokenRefreshes.WithLabelValues("unknown_token").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	ts, err := h.auth.RefreshTokens(c.Request.Context(), req.RefreshToken)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("upstream_rejected").Inc()
		logger.Warnf("token refresh rejected: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	expiresIn := h.effectiveExpiresIn(ts.ExpiresIn)
	updated, err := h.sessionsSvc.Refresh(c.Request.Context(), sess.ID, ts.AccessToken, ts.RefreshToken, expiresIn)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			// logout raced the refresh; the new tokens are orphaned
			metrics.TokenRefreshes.WithLabelValues("session_gone").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		logger.Errorf("session update failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  ts.AccessToken,
		"refreshToken": ts.RefreshToken,
		"expiresIn":    expiresIn,
		"sessionId":    updated.ID,
	})
}

// Me returns the authenticated user and session.
func (h *AuthHandler) Me(c *gin.Context) {
	u, sess, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":      u,
		"sessionId": sess.ID,
		"expiresAt": sess.ExpiresAt,
	})
}

// Logout revokes the session's tokens upstream (best effort, bounded),
// blacklists the access token until its natural expiry and deletes the
// session. The session is identified by the request body or by the Bearer
// token; an already-gone session is a no-op, the response is 200 either way
// so logout never fails on the client side.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		AccessToken string `json:"accessToken"`
		SessionID   string `json:"sessionId"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.AccessToken == "" {
		if ah := c.GetHeader("Authorization"); strings.HasPrefix(ah, "Bearer ") {
			req.AccessToken = strings.TrimPrefix(ah, "Bearer ")
		}
	}

	var sess *sessions.Session
	var err error
	switch {
	case req.SessionID != "":
		sess, err = h.sessionsSvc.Get(c.Request.Context(), req.SessionID)
	case req.AccessToken != "":
		sess, err = h.sessionsSvc.GetByAccessToken(c.Request.Context(), req.AccessToken)
	}
	if err != nil {
		logger.Errorf("session lookup failed: %v", err)
	}

	if sess != nil {
		h.revokeAndBlacklist(c.Request.Context(), sess)
		if err := h.sessionsSvc.Delete(c.Request.Context(), sess.ID); err != nil {
			logger.Errorf("session delete failed: %v", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// LogoutAll terminates every session of the authenticated user.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	u, _, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	list, err := h.sessionsSvc.ListForUser(c.Request.Context(), u.ID)
	if err != nil {
		logger.Errorf("session list failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	for _, s := range list {
		h.revokeAndBlacklist(c.Request.Context(), s)
	}
	if err := h.sessionsSvc.DeleteAllForUser(c.Request.Context(), u.ID); err != nil {
		logger.Errorf("session delete failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out", "sessions": len(list)})
}

func (h *AuthHandler) revokeAndBlacklist(ctx context.Context, sess *sessions.Session) {
	rctx, cancel := context.WithTimeout(ctx, revokeTimeout)
	defer cancel()
	if err := h.auth.Revoke(rctx, sess.RefreshToken); err != nil {
		logger.Warnf("refresh token revocation failed: %v", err)
	}
	if err := h.auth.Revoke(rctx, sess.AccessToken); err != nil {
		logger.Warnf("access token revocation failed: %v", err)
	}

	if exp, err := tokens.ExpiryOf(sess.AccessToken); err == nil {
		if ttl := time.Until(exp); ttl > 0 {
			if err := sessions.BlacklistAccessToken(ctx, sess.AccessToken, ttl); err != nil {
				logger.Warnf("access token blacklist failed: %v", err)
			}
		}
	}
}

func sessionFromContext(c *gin.Context) (*models.User, *sessions.Session, bool) {
	uv, ok := c.Get("user")
	if !ok {
		return nil, nil, false
	}
	sv, ok := c.Get("session")
	if !ok {
		return nil, nil, false
	}
	u, uok := uv.(*models.User)
	sess, sok := sv.(*sessions.Session)
	if !uok || !sok || u == nil || sess == nil {
		return nil, nil, false
	}
	return u, sess, true
}
