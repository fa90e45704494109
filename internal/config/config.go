// Package config provides configuration management for ankimcp.
// It loads settings from environment variables with the ANKIMCP_ prefix
// and provides sensible defaults for all configuration options.
//
// Card defaults (default deck and note type) can also be persisted to the
// settings table of the profile database. LoadConfigFromDB reads from the
// store first and falls back to environment variables. SaveConfig writes
// them back.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/scrypster/ankimcp/internal/storage"
)

// Settings table keys for persisted card defaults.
const (
	SettingDefaultDeck     = "default_deck"
	SettingDefaultNoteType = "default_note_type"
)

// Config holds all configuration settings for ankimcp.
type Config struct {
	Anki     AnkiConfig
	Storage  StorageConfig
	Server   ServerConfig
	Defaults DefaultsConfig
}

// AnkiConfig describes how to reach AnkiConnect.
type AnkiConfig struct {
	URL               string        // AnkiConnect endpoint (default: http://127.0.0.1:8765)
	APIKey            string        // Optional AnkiConnect API key
	Timeout           time.Duration // Per-request timeout (default: 10s)
	RequestsPerSecond float64       // Client-side rate limit (default: 20)
	Burst             int           // Rate limiter burst (default: 5)
}

// StorageConfig contains profile database configuration.
type StorageConfig struct {
	StorageEngine string // sqlite or postgres (default: sqlite)
	DataPath      string // Directory holding the SQLite file (default: ./data)
	PostgresDSN   string // Required when StorageEngine is postgres
}

// ServerConfig contains MCP server configuration.
type ServerConfig struct {
	Transport string // stdio or websocket (default: stdio)
	Host      string // WebSocket listen host (default: 127.0.0.1)
	Port      int    // WebSocket listen port (default: 8766)
}

// DefaultsConfig holds the card defaults used when no profile is given.
type DefaultsConfig struct {
	// Deck is the deck new cards go to.
	// Env var: ANKIMCP_DEFAULT_DECK
	// Database key: default_deck
	Deck string

	// NoteType is the note type new cards use.
	// Env var: ANKIMCP_DEFAULT_NOTE_TYPE
	// Database key: default_note_type
	NoteType string

	// SampleSize is the number of notes sampled by deck analysis (default: 10).
	SampleSize int
}

// LoadConfig loads configuration from environment variables with sensible defaults.
// Use LoadConfigFromDB to also read persisted card defaults.
func LoadConfig() (*Config, error) {
	cfg := buildBaseConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromDB loads configuration from both environment variables and the
// settings store. Stored values take precedence over environment variables.
//
// Returns an error if store is nil.
func LoadConfigFromDB(ctx context.Context, store storage.SettingsStore) (*Config, error) {
	if store == nil {
		return nil, errors.New("config: settings store is required")
	}

	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	for key, dst := range map[string]*string{
		SettingDefaultDeck:     &cfg.Defaults.Deck,
		SettingDefaultNoteType: &cfg.Defaults.NoteType,
	} {
		value, err := store.GetSetting(ctx, key)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("config: failed to load %s from database: %w", key, err)
		}
		if value != "" {
			*dst = value
		}
	}

	return cfg, nil
}

// SaveConfig persists the card defaults to the settings store with upsert
// semantics.
//
// Returns an error if store is nil.
func (c *Config) SaveConfig(ctx context.Context, store storage.SettingsStore) error {
	if store == nil {
		return errors.New("config: settings store is required")
	}

	if err := store.SetSetting(ctx, SettingDefaultDeck, c.Defaults.Deck); err != nil {
		return fmt.Errorf("config: failed to save %s: %w", SettingDefaultDeck, err)
	}
	if err := store.SetSetting(ctx, SettingDefaultNoteType, c.Defaults.NoteType); err != nil {
		return fmt.Errorf("config: failed to save %s: %w", SettingDefaultNoteType, err)
	}
	return nil
}

// Validate rejects unknown engines and transports.
func (c *Config) Validate() error {
	switch c.Storage.StorageEngine {
	case "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("config: ANKIMCP_POSTGRES_DSN is required when storage engine is postgres")
		}
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.StorageEngine)
	}

	switch c.Server.Transport {
	case "stdio", "websocket":
	default:
		return fmt.Errorf("config: unknown transport %q", c.Server.Transport)
	}

	if c.Defaults.SampleSize < 1 {
		return fmt.Errorf("config: sample size must be at least 1, got %d", c.Defaults.SampleSize)
	}
	return nil
}

// DatabasePath returns the SQLite file path under DataPath.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataPath, "ankimcp.db")
}

// ListenAddr returns the WebSocket listen address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func buildBaseConfig() *Config {
	return &Config{
		Anki: AnkiConfig{
			URL:               getEnv("ANKIMCP_ANKI_URL", "http://127.0.0.1:8765"),
			APIKey:            getEnv("ANKIMCP_ANKI_API_KEY", ""),
			Timeout:           getEnvDuration("ANKIMCP_ANKI_TIMEOUT", 10*time.Second),
			RequestsPerSecond: getEnvFloat("ANKIMCP_ANKI_RATE", 20),
			Burst:             getEnvInt("ANKIMCP_ANKI_BURST", 5),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("ANKIMCP_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("ANKIMCP_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("ANKIMCP_POSTGRES_DSN", ""),
		},
		Server: ServerConfig{
			Transport: getEnv("ANKIMCP_TRANSPORT", "stdio"),
			Host:      getEnv("ANKIMCP_HOST", "127.0.0.1"),
			Port:      getEnvInt("ANKIMCP_PORT", 8766),
		},
		Defaults: DefaultsConfig{
			Deck:       getEnv("ANKIMCP_DEFAULT_DECK", ""),
			NoteType:   getEnv("ANKIMCP_DEFAULT_NOTE_TYPE", ""),
			SampleSize: getEnvInt("ANKIMCP_SAMPLE_SIZE", 10),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("30s", "1m").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
