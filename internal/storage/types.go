package storage

import (
	"errors"
	"fmt"

	"github.com/scrypster/ankimcp/pkg/types"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidateProfile checks the fields every backend requires.
func ValidateProfile(p *types.CardProfile) error {
	if p == nil {
		return fmt.Errorf("%w: profile is nil", ErrInvalidInput)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: profile name is required", ErrInvalidInput)
	}
	if p.NoteType == "" {
		return fmt.Errorf("%w: profile %q: note type is required", ErrInvalidInput, p.Name)
	}
	return nil
}
