package app

import (
	"context"
	"fmt"

	"github.com/webcrate/orderflow/internal/domain"
)

// UserService manages registrant profiles.
type UserService struct {
	repo domain.UserRepository
}

// NewUserService creates a service backed by the given repository.
func NewUserService(repo domain.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Upsert validates the contact payload and creates or updates the profile
// keyed by its email, returning the stored row.
func (s *UserService) Upsert(ctx context.Context, contact domain.ContactInfo) (domain.User, error) {
	if err := contact.Validate(); err != nil {
		return domain.User{}, err
	}

	id, err := generateID()
	if err != nil {
		return domain.User{}, fmt.Errorf("generating user id: %w", err)
	}

	user, err := s.repo.UpsertByEmail(ctx, domain.NewUser("usr_"+id, contact))
	if err != nil {
		return domain.User{}, fmt.Errorf("upserting user: %w", err)
	}
	return user, nil
}

// GetByID returns a user by its unique identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	return s.repo.GetByID(ctx, id)
}
