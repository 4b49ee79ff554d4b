package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
	assert.False(t, cfg.Production())
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "llama3.2:latest", cfg.Ollama.Model)
	assert.Equal(t, 5*time.Second, cfg.Ollama.ProbeTimeout)
	assert.Equal(t, "duckduckgo", cfg.Search.Provider)
	assert.Equal(t, 10, cfg.Search.MaxResults)
	assert.Equal(t, 24*time.Hour, cfg.Database.SessionTTL)
	assert.Equal(t, 16000, cfg.Chat.HistoryBudget)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9999
  mode: production
ollama:
  base_url: http://ollama.internal:11434
search:
  provider: serper
  api_key: secret
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.True(t, cfg.Production())
	assert.Equal(t, "http://ollama.internal:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "serper", cfg.Search.Provider)
	assert.Equal(t, "secret", cfg.Search.APIKey)
	// Unset fields keep defaults.
	assert.Equal(t, "llama3.2:latest", cfg.Ollama.Model)
}
