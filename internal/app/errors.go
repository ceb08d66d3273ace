// Package app holds the domain services and the errors they share.
package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrValidation signals missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidIdentifier signals a missing or placeholder path identifier.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrUnauthenticated indicates there is no verified caller.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the caller lacks the role or ownership required.
	ErrForbidden = errors.New("forbidden")
)

// placeholderID is what clients send when an id was never populated.
const placeholderID = "undefined"

// ValidID rejects empty, placeholder and non-uuid identifiers.
func ValidID(name, id string) error {
	id = strings.TrimSpace(id)
	if id == "" || id == placeholderID {
		return fmt.Errorf("%s is required: %w", name, ErrInvalidIdentifier)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s %q is not a valid id: %w", name, id, ErrInvalidIdentifier)
	}
	return nil
}

// Validationf builds an ErrValidation with a message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}
