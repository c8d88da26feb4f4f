package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "data", s.DataDir)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "@every 1h", s.Schedule)
	assert.Equal(t, "30s", s.LLM.Timeout)
}

func TestFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /srv/tickets
log_level: debug
llm:
  provider: anthropic
  model: claude-test
`), 0o644))
	t.Setenv("TICKETLENS_LOG_LEVEL", "warn")
	t.Setenv("TICKETLENS_LLM_API_KEY", "from-env")

	s, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "/srv/tickets", s.DataDir)
	assert.Equal(t, "warn", s.LogLevel, "env wins over file")
	assert.Equal(t, "anthropic", s.LLM.Provider)
	assert.Equal(t, "claude-test", s.LLM.Model)
	assert.Equal(t, "from-env", s.LLM.APIKey)
}

func TestDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TICKETLENS_DB_PATH=/tmp/corpus.db\n"), 0o644))
	// godotenv never overrides variables already set; register cleanup for the one it sets.
	t.Setenv("TICKETLENS_DB_PATH", "")
	require.NoError(t, os.Unsetenv("TICKETLENS_DB_PATH"))

	s, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/corpus.db", s.DBPath)

	_, err = Load("", filepath.Join(dir, "missing.env"))
	assert.NoError(t, err, "a missing .env is not an error")
}

func TestMissingSettingsFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err)
}
