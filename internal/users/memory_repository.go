package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/renoplan/renoplan/internal/models"
)

// MemoryUserRepository is an in-memory UserRepository used for unit tests and
// for running the service without a Mongo instance.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	byID  map[string]*models.User
	byIdp map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:  make(map[string]*models.User),
		byIdp: make(map[string]string),
	}
}

func (r *MemoryUserRepository) UpsertByIdpID(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if id, ok := r.byIdp[u.IdpUserID]; ok {
		existing := r.byID[id]
		existing.Email = u.Email
		existing.Name = u.Name
		existing.Phone = u.Phone
		existing.Company = u.Company
		existing.LastLoginAt = now
		existing.UpdatedAt = now
		cp := *existing
		return &cp, nil
	}
	created := *u
	created.ID = uuid.NewString()
	created.CreatedAt = now
	created.UpdatedAt = now
	created.LastLoginAt = now
	r.byID[created.ID] = &created
	r.byIdp[created.IdpUserID] = created.ID
	cp := created
	return &cp, nil
}

func (r *MemoryUserRepository) GetByIdpID(ctx context.Context, idpUserID string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.byIdp[idpUserID]; ok {
		cp := *r.byID[id]
		return &cp, nil
	}
	return nil, nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}
