package sessions

import (
	"context"
	"fmt"
	"testing"

	"github.com/renoplan/renoplan/internal/models"
)

type fakeUserLoader struct {
	user *models.User
}

func (f *fakeUserLoader) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.user != nil && f.user.ID == id {
		return f.user, nil
	}
	return nil, nil
}

func TestCreateAndExpirySemantics(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	live, err := svc.Create(ctx, "u1", "at-live", "rt-live", 3600)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if live.ID == "" {
		t.Fatal("expected generated session id")
	}
	if svc.IsExpired(live) {
		t.Fatal("session with expiresIn=3600 must not be expired")
	}

	// negative expiresIn is a valid construction input
	dead, err := svc.Create(ctx, "u1", "at-dead", "rt-dead", -3600)
	if err != nil {
		t.Fatalf("create with negative expiresIn failed: %v", err)
	}
	if !svc.IsExpired(dead) {
		t.Fatal("session with expiresIn=-3600 must be expired immediately")
	}

	// the store accepts the expired row; only the sweep removes it
	got, err := svc.Get(ctx, dead.ID)
	if err != nil || got == nil {
		t.Fatalf("expected expired session to be stored: %v %v", got, err)
	}

	n, err := svc.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("deleteExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected sweep to remove exactly 1 session, got %d", n)
	}
	still, _ := svc.Get(ctx, live.ID)
	if still == nil {
		t.Fatal("sweep must leave unexpired sessions untouched")
	}
}

func TestGetByAccessTokenIncludesUser(t *testing.T) {
	owner := &models.User{ID: "u1", IdpUserID: "sub-1", Email: "a@b.c", Name: "Alice"}
	svc := NewService(NewMemoryRepository(), &fakeUserLoader{user: owner})
	ctx := context.Background()

	created, err := svc.Create(ctx, "u1", "at-1", "rt-1", 3600)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := svc.GetByAccessToken(ctx, "at-1")
	if err != nil {
		t.Fatalf("get by access token: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Fatalf("unexpected session: %v", got)
	}
	if got.User == nil || got.User.Email != "a@b.c" {
		t.Fatalf("expected owning user to be populated, got %v", got.User)
	}

	missing, err := svc.GetByAccessToken(ctx, "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown token, got %v", missing)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	sess, err := svc.Create(ctx, "u1", "at-old", "rt-old", 60)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before := sess.ExpiresAt

	updated, err := svc.Refresh(ctx, sess.ID, "at-new", "rt-new", 3600)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if updated.AccessToken != "at-new" || updated.RefreshToken != "rt-new" {
		t.Fatalf("tokens not rotated: %+v", updated)
	}
	if !updated.ExpiresAt.After(before) {
		t.Fatalf("expiry not recomputed: %v <= %v", updated.ExpiresAt, before)
	}

	// old access token no longer resolves
	old, _ := svc.GetByAccessToken(ctx, "at-old")
	if old != nil {
		t.Fatal("expected old access token to be gone after rotation")
	}
}

func TestRefreshAfterLogoutReportsNotFound(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	sess, err := svc.Create(ctx, "u1", "at", "rt", 60)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Refresh(ctx, sess.ID, "x", "y", 60); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAllForUserKeepsUser(t *testing.T) {
	owner := &models.User{ID: "u1", IdpUserID: "sub-1"}
	loader := &fakeUserLoader{user: owner}
	svc := NewService(NewMemoryRepository(), loader)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, "u1", fmt.Sprintf("at-%d", i), fmt.Sprintf("rt-%d", i), 3600); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := svc.DeleteAllForUser(ctx, "u1"); err != nil {
		t.Fatalf("deleteAllForUser: %v", err)
	}
	list, err := svc.ListForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no sessions, got %d", len(list))
	}
	// the user record is untouched by session deletion
	u, err := loader.GetByID(ctx, "u1")
	if err != nil || u == nil {
		t.Fatalf("user row must survive session deletion: %v %v", u, err)
	}
}
