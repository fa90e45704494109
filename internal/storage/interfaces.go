// Package storage defines the persistence interfaces for card profiles and
// user settings. Backends live in the sqlite and postgres subpackages.
package storage

import (
	"context"

	"github.com/scrypster/ankimcp/pkg/types"
)

// ProfileStore persists card profiles.
type ProfileStore interface {
	// SaveProfile creates or updates the profile with the same name (upsert
	// semantics). On return p carries the stored ID and timestamps.
	SaveProfile(ctx context.Context, p *types.CardProfile) error

	// GetProfile returns the named profile or ErrNotFound.
	GetProfile(ctx context.Context, name string) (*types.CardProfile, error)

	// ListProfiles returns all profiles ordered by name.
	ListProfiles(ctx context.Context) ([]*types.CardProfile, error)

	// DeleteProfile removes the named profile or returns ErrNotFound.
	DeleteProfile(ctx context.Context, name string) error

	// Close releases any resources held by the store.
	Close() error
}

// SettingsStore persists user settings as key/value pairs.
type SettingsStore interface {
	// GetSetting returns the value for key or ErrNotFound.
	GetSetting(ctx context.Context, key string) (string, error)

	// SetSetting stores value under key, replacing any previous value.
	SetSetting(ctx context.Context, key, value string) error
}

// Store is implemented by every backend.
type Store interface {
	ProfileStore
	SettingsStore
}
