package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"conti/shared/go/models"
)

// GetProfile loads the team profile of a user. A user id that is not a uuid
// cannot have a profile and reports ErrNotFound.
func (s *Store) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("get profile %q: %w", userID, ErrNotFound)
	}

	var profile models.UserProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT id::text, COALESCE(email, ''), role
		FROM `+TableProfiles+`
		WHERE id = $1`, userID).
		Scan(&profile.ID, &profile.Email, &profile.Role)
	if err != nil {
		return nil, wrapErr("get profile", err)
	}
	return &profile, nil
}
