package users

import (
	"context"

	"github.com/renoplan/renoplan/internal/models"
)

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// UpsertFromClaims creates or updates a user from identity-provider claims.
// The upsert is keyed by the sub claim and is idempotent: repeated identical
// claims leave a single row, unchanged after the first write apart from
// lastLoginAt. Returns nil when the claims carry no subject.
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, nil
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	phone, _ := claims["phone_number"].(string)
	company, _ := claims["company"].(string)

	u := &models.User{
		IdpUserID: sub,
		Email:     email,
		Name:      name,
		Phone:     phone,
		Company:   company,
	}
	return s.repo.UpsertByIdpID(ctx, u)
}

func (s *Service) GetByIdpID(ctx context.Context, idpUserID string) (*models.User, error) {
	return s.repo.GetByIdpID(ctx, idpUserID)
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}
