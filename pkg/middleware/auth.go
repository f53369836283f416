package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/renoplan/renoplan/internal/sessions"
	"github.com/renoplan/renoplan/pkg/logger"
)

// Authentication failure taxonomy. Every variant maps to a uniform 401; the
// distinction exists for server-side logging only, to avoid user enumeration.
var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidToken      = errors.New("invalid token")
	ErrUserNotFound      = errors.New("user not found")
)

// TokenValidator reports whether the identity provider considers an access
// token active. Implementations must fail closed.
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) bool
}

// SessionSource resolves sessions by access token, with the owning user populated.
type SessionSource interface {
	GetByAccessToken(ctx context.Context, token string) (*sessions.Session, error)
	IsExpired(s *sessions.Session) bool
}

// BearerToken extracts the token from an Authorization: Bearer header.
func BearerToken(c *gin.Context) (string, error) {
	auth := c.GetHeader("Authorization")
	if auth == "" {
		return "", ErrMissingCredential
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrMissingCredential
	}
	return parts[1], nil
}

// Auth returns a middleware that authenticates requests against the session
// store and the provider's introspection endpoint. On success the session and
// its user are placed in the gin context under "session" and "user".
func Auth(src SessionSource, validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := BearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		reject := func(reason error) {
			logger.Debugf("auth rejected: %v", reason)
			// uniform body: no detail on which check failed
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		}

		if black, err := sessions.IsAccessTokenBlacklisted(c.Request.Context(), token); err != nil {
			logger.Warnf("blacklist check failed: %v", err)
			reject(ErrInvalidToken)
			return
		} else if black {
			reject(ErrInvalidToken)
			return
		}

		sess, err := src.GetByAccessToken(c.Request.Context(), token)
		if err != nil {
			logger.Errorf("session lookup failed: %v", err)
			reject(ErrInvalidToken)
			return
		}
		if sess == nil || src.IsExpired(sess) {
			reject(ErrInvalidToken)
			return
		}

		if validator != nil && !validator.ValidateAccessToken(c.Request.Context(), token) {
			reject(ErrInvalidToken)
			return
		}

		if sess.User == nil {
			// token resolves but the backing user row is gone
			reject(ErrUserNotFound)
			return
		}

		c.Set("session", sess)
		c.Set("user", sess.User)
		c.Next()
	}
}
