package config_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/scrypster/ankimcp/internal/config"
	"github.com/scrypster/ankimcp/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ANKIMCP_ANKI_URL", "ANKIMCP_ANKI_TIMEOUT", "ANKIMCP_ANKI_RATE",
		"ANKIMCP_STORAGE_ENGINE", "ANKIMCP_POSTGRES_DSN", "ANKIMCP_TRANSPORT",
		"ANKIMCP_HOST", "ANKIMCP_PORT", "ANKIMCP_DEFAULT_DECK",
		"ANKIMCP_DEFAULT_NOTE_TYPE", "ANKIMCP_SAMPLE_SIZE",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8765", cfg.Anki.URL)
	assert.Equal(t, 10*time.Second, cfg.Anki.Timeout)
	assert.Equal(t, 20.0, cfg.Anki.RequestsPerSecond)
	assert.Equal(t, "sqlite", cfg.Storage.StorageEngine)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "127.0.0.1:8766", cfg.ListenAddr(),
		"Default host must be 127.0.0.1 for security")
	assert.Equal(t, 10, cfg.Defaults.SampleSize)
	assert.Empty(t, cfg.Defaults.Deck)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANKIMCP_ANKI_URL", "http://anki:8765")
	t.Setenv("ANKIMCP_ANKI_TIMEOUT", "3s")
	t.Setenv("ANKIMCP_ANKI_RATE", "2.5")
	t.Setenv("ANKIMCP_TRANSPORT", "websocket")
	t.Setenv("ANKIMCP_PORT", "9000")
	t.Setenv("ANKIMCP_SAMPLE_SIZE", "25")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://anki:8765", cfg.Anki.URL)
	assert.Equal(t, 3*time.Second, cfg.Anki.Timeout)
	assert.Equal(t, 2.5, cfg.Anki.RequestsPerSecond)
	assert.Equal(t, "websocket", cfg.Server.Transport)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Defaults.SampleSize)
}

func TestLoadConfig_UnparseableValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANKIMCP_PORT", "not-a-port")
	t.Setenv("ANKIMCP_ANKI_TIMEOUT", "soon")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8766, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Anki.Timeout)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown engine", map[string]string{"ANKIMCP_STORAGE_ENGINE": "mongo"}},
		{"postgres without dsn", map[string]string{"ANKIMCP_STORAGE_ENGINE": "postgres"}},
		{"unknown transport", map[string]string{"ANKIMCP_TRANSPORT": "http"}},
		{"zero sample size", map[string]string{"ANKIMCP_SAMPLE_SIZE": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	clearEnv(t)
	store := openTestStore(t)
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.Defaults.Deck = "Japanese"
	cfg.Defaults.NoteType = "Japanese (recognition)"
	require.NoError(t, cfg.SaveConfig(ctx, store))

	loaded, err := config.LoadConfigFromDB(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "Japanese", loaded.Defaults.Deck)
	assert.Equal(t, "Japanese (recognition)", loaded.Defaults.NoteType)
}

// TestLoadConfigFromDB_DBOverridesEnvVar verifies that the stored value
// takes precedence over the environment variable.
func TestLoadConfigFromDB_DBOverridesEnvVar(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANKIMCP_DEFAULT_DECK", "env-deck")
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetSetting(ctx, config.SettingDefaultDeck, "db-deck"))

	cfg, err := config.LoadConfigFromDB(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "db-deck", cfg.Defaults.Deck)
}

// TestLoadConfigFromDB_FallsBackToEnvVar verifies that when no stored entry
// exists, LoadConfigFromDB falls back to the environment variable.
func TestLoadConfigFromDB_FallsBackToEnvVar(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANKIMCP_DEFAULT_NOTE_TYPE", "Basic")
	store := openTestStore(t)

	cfg, err := config.LoadConfigFromDB(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, "Basic", cfg.Defaults.NoteType)
}

func TestLoadConfigFromDB_NilStore(t *testing.T) {
	_, err := config.LoadConfigFromDB(context.Background(), nil)
	assert.Error(t, err)

	err = (&config.Config{}).SaveConfig(context.Background(), nil)
	assert.Error(t, err)
}

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
