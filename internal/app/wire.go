// Package app builds the shared object graph used by the ankimcp binaries
// from a loaded configuration.
package app

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/scrypster/ankimcp/internal/anki"
	"github.com/scrypster/ankimcp/internal/cards"
	"github.com/scrypster/ankimcp/internal/config"
	"github.com/scrypster/ankimcp/internal/storage"
	"github.com/scrypster/ankimcp/internal/storage/postgres"
	"github.com/scrypster/ankimcp/internal/storage/sqlite"
)

// OpenStore opens the profile store selected by cfg.Storage.StorageEngine,
// creating the SQLite data directory when needed.
func OpenStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		store, err := postgres.NewStore(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "sqlite", "":
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory %q: %w", cfg.Storage.DataPath, err)
		}
		store, err := sqlite.NewStore(cfg.DatabasePath())
		if err != nil {
			return nil, fmt.Errorf("failed to open database at %q: %w", cfg.DatabasePath(), err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Storage.StorageEngine)
	}
}

// NewAnkiClient creates an AnkiConnect client from cfg.
func NewAnkiClient(cfg *config.Config) *anki.Client {
	return anki.NewClient(anki.Config{
		URL:               cfg.Anki.URL,
		APIKey:            cfg.Anki.APIKey,
		Timeout:           cfg.Anki.Timeout,
		RequestsPerSecond: cfg.Anki.RequestsPerSecond,
		Burst:             cfg.Anki.Burst,
	})
}

// Env is the wired application.
type Env struct {
	Config *config.Config
	Store  storage.Store
	Anki   *anki.Client
	Cards  *cards.Service
}

// Setup loads configuration (environment, then stored card defaults), opens
// the store and wires the card service. Callers must Close the result.
func Setup(ctx context.Context) (*Env, error) {
	base, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(base)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfigFromDB(ctx, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	client := NewAnkiClient(cfg)
	return &Env{
		Config: cfg,
		Store:  store,
		Anki:   client,
		Cards:  NewService(cfg, client, store),
	}, nil
}

// NewService wires a cards.Service with the configured defaults.
func NewService(cfg *config.Config, backend cards.Backend, store storage.ProfileStore) *cards.Service {
	return cards.NewService(backend, store, cards.Defaults{
		Deck:       cfg.Defaults.Deck,
		NoteType:   cfg.Defaults.NoteType,
		SampleSize: cfg.Defaults.SampleSize,
	})
}

// Close releases the store.
func (e *Env) Close() {
	if err := e.Store.Close(); err != nil {
		log.Printf("store close error: %v", err)
	}
}
