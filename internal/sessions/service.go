package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/renoplan/renoplan/internal/models"
	"github.com/renoplan/renoplan/pkg/logger"
	"github.com/renoplan/renoplan/pkg/metrics"
)

// UserLoader resolves the owning user for access-token lookups.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Service wraps repository operations with business logic
type Service struct {
	repo  Repository
	users UserLoader
}

// NewService creates a session service. users may be nil; access-token lookups
// then return sessions without the owning user populated.
func NewService(r Repository, users UserLoader) *Service {
	return &Service{repo: r, users: users}
}

// Create persists a new session from provider-issued tokens. expiresIn is the
// provider-reported lifetime in seconds and may be negative: an already-expired
// session is a valid construction input and is only flagged as expired when
// queried.
func (s *Service) Create(ctx context.Context, userID, accessToken, refreshToken string, expiresIn int64) (*Session, error) {
	sess := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(expiresIn) * time.Second),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.repo.Get(ctx, id)
}

// GetByAccessToken returns the session for the given access token including
// the owning user, or nil when no such session exists.
func (s *Service) GetByAccessToken(ctx context.Context, token string) (*Session, error) {
	sess, err := s.repo.GetByAccessToken(ctx, token)
	if err != nil || sess == nil {
		return sess, err
	}
	if s.users != nil {
		u, err := s.users.GetByID(ctx, sess.UserID)
		if err != nil {
			return nil, err
		}
		sess.User = u
	}
	return sess, nil
}

func (s *Service) GetByRefreshToken(ctx context.Context, token string) (*Session, error) {
	return s.repo.GetByRefreshToken(ctx, token)
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Session, error) {
	return s.repo.ListForUser(ctx, userID)
}

// Refresh replaces the token pair and recomputes expiry. Returns ErrNotFound
// when the session was deleted concurrently (e.g. logout raced the refresh).
func (s *Service) Refresh(ctx context.Context, id, accessToken, refreshToken string, expiresIn int64) (*Session, error) {
	expiresAt := time.Now().UTC().Add(time.Duration(expiresIn) * time.Second)
	return s.repo.UpdateTokens(ctx, id, accessToken, refreshToken, expiresAt)
}

// IsExpired reports whether the session's expiry has passed.
func (s *Service) IsExpired(sess *Session) bool {
	return !time.Now().UTC().Before(sess.ExpiresAt)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) DeleteAllForUser(ctx context.Context, userID string) error {
	return s.repo.DeleteAllForUser(ctx, userID)
}

// DeleteExpired removes every session whose expiry has passed and returns the
// number removed.
func (s *Service) DeleteExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, time.Now().UTC())
}

// RunSweeper runs the expiry sweep every interval until ctx is cancelled.
// Intended to be started as a goroutine from main.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.DeleteExpired(ctx)
			if err != nil {
				logger.Errorf("session sweep failed: %v", err)
				continue
			}
			if n > 0 {
				metrics.SessionsSwept.Add(float64(n))
				logger.Infof("session sweep removed %d expired sessions", n)
			}
		}
	}
}
