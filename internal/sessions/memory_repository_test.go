package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mkSession(id, userID string, createdAt, expiresAt time.Time) *Session {
	return &Session{
		ID:           id,
		UserID:       userID,
		AccessToken:  "at-" + id,
		RefreshToken: "rt-" + id,
		CreatedAt:    createdAt,
		ExpiresAt:    expiresAt,
	}
}

func TestMemoryRepository_CreateGetDelete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	s := mkSession("s1", "u1", now, now.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "u1", got.UserID)

	byTok, err := repo.GetByAccessToken(ctx, "at-s1")
	require.NoError(t, err)
	require.NotNil(t, byTok)
	require.Equal(t, "s1", byTok.ID)

	byRef, err := repo.GetByRefreshToken(ctx, "rt-s1")
	require.NoError(t, err)
	require.NotNil(t, byRef)

	require.NoError(t, repo.Delete(ctx, "s1"))
	got2, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Nil(t, got2)

	// deleting again is a no-op
	require.NoError(t, repo.Delete(ctx, "s1"))
}

func TestMemoryRepository_ListForUserNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, mkSession("a", "u1", base, base.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, mkSession("b", "u1", base.Add(time.Second), base.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, mkSession("c", "u1", base.Add(2*time.Second), base.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, mkSession("other", "u2", base.Add(3*time.Second), base.Add(time.Hour))))

	list, err := repo.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "c", list[0].ID)
	require.Equal(t, "b", list[1].ID)
	require.Equal(t, "a", list[2].ID)
}

func TestMemoryRepository_UpdateTokens(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, mkSession("s1", "u1", now, now.Add(time.Hour))))

	newExp := now.Add(2 * time.Hour)
	updated, err := repo.UpdateTokens(ctx, "s1", "new-at", "new-rt", newExp)
	require.NoError(t, err)
	require.Equal(t, "new-at", updated.AccessToken)
	require.Equal(t, "new-rt", updated.RefreshToken)
	require.True(t, updated.ExpiresAt.Equal(newExp))

	// update on a deleted session reports NotFound
	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = repo.UpdateTokens(ctx, "s1", "x", "y", newExp)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepository_DeleteExpired(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, mkSession("gone1", "u1", now, now.Add(-time.Minute))))
	require.NoError(t, repo.Create(ctx, mkSession("gone2", "u2", now, now.Add(-time.Second))))
	require.NoError(t, repo.Create(ctx, mkSession("kept", "u1", now, now.Add(time.Hour))))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	kept, err := repo.Get(ctx, "kept")
	require.NoError(t, err)
	require.NotNil(t, kept)

	// second sweep removes nothing
	n2, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(0), n2)
}

func TestMemoryRepository_DeleteAllForUser(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, mkSession("s1", "u1", now, now.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, mkSession("s2", "u1", now.Add(time.Second), now.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, mkSession("s3", "u2", now, now.Add(time.Hour))))

	require.NoError(t, repo.DeleteAllForUser(ctx, "u1"))

	list, err := repo.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, list)

	other, err := repo.ListForUser(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, other, 1)

	// no sessions left for u1, still a no-op
	require.NoError(t, repo.DeleteAllForUser(ctx, "u1"))
}
