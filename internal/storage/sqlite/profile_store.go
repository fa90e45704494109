// Package sqlite provides the SQLite implementation of the storage
// interfaces, using the CGO-free modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/ankimcp/internal/storage"
	"github.com/scrypster/ankimcp/pkg/types"
)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the SQLite database at dsn and
// applies the schema. Use ":memory:" for a throwaway database.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer; a single connection
	// serialises writes and keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveProfile upserts p by name.
func (s *Store) SaveProfile(ctx context.Context, p *types.CardProfile) error {
	if err := storage.ValidateProfile(p); err != nil {
		return err
	}

	mapping, err := json.Marshal(nonNilMapping(p.Mapping))
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode mapping: %w", err)
	}
	tags, err := json.Marshal(nonNilTags(p.Tags))
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode tags: %w", err)
	}

	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, name, deck, note_type, mapping, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			deck = excluded.deck,
			note_type = excluded.note_type,
			mapping = excluded.mapping,
			tags = excluded.tags,
			updated_at = excluded.updated_at
	`, id, p.Name, p.Deck, p.NoteType, string(mapping), string(tags), now, now)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save profile %q: %w", p.Name, err)
	}

	stored, err := s.GetProfile(ctx, p.Name)
	if err != nil {
		return err
	}
	*p = *stored
	return nil
}

// GetProfile returns the named profile.
func (s *Store) GetProfile(ctx context.Context, name string) (*types.CardProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, deck, note_type, mapping, tags, created_at, updated_at
		FROM profiles WHERE name = ?`, name)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load profile %q: %w", name, err)
	}
	return p, nil
}

// ListProfiles returns every profile ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]*types.CardProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, deck, note_type, mapping, tags, created_at, updated_at
		FROM profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*types.CardProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// DeleteProfile removes the named profile.
func (s *Store) DeleteProfile(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete profile %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetSetting returns the value stored under key.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: failed to read setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("sqlite: failed to write setting %q: %w", key, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*types.CardProfile, error) {
	var (
		p                    types.CardProfile
		mapping, tags        string
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Deck, &p.NoteType, &mapping, &tags, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(mapping), &p.Mapping); err != nil {
		return nil, fmt.Errorf("corrupt mapping for profile %q: %w", p.Name, err)
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("corrupt tags for profile %q: %w", p.Name, err)
	}
	var err error
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func nonNilMapping(m types.SemanticMapping) types.SemanticMapping {
	if m == nil {
		return types.SemanticMapping{}
	}
	return m
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
