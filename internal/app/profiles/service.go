package profiles

import (
	"context"
	"fmt"

	"conti/internal/app"
	"conti/internal/auth"
	"conti/shared/go/models"
)

// Store captures the persistence needs for profile lookups.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// Service exposes profile lookups.
type Service interface {
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	Me(ctx context.Context, caller auth.Caller) (*models.UserProfile, error)
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("profile lookup: %w", app.ErrUnauthenticated)
	}
	return s.store.GetProfile(ctx, userID)
}

// Me returns the caller's own profile.
func (s *service) Me(ctx context.Context, caller auth.Caller) (*models.UserProfile, error) {
	if caller.ID == "" {
		return nil, app.ErrUnauthenticated
	}
	profile, err := s.Get(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if profile.Email == "" {
		profile.Email = caller.Email
	}
	return profile, nil
}
