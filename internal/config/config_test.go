package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8001/api", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Editor.SyncInterval)
	assert.Equal(t, 5*time.Second, cfg.Editor.AutosaveInterval)
	assert.Equal(t, "claude-haiku", cfg.LLM.Anthropic.Model)
	assert.Equal(t, ":8001", cfg.Demo.Addr)
}

func TestLoadEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("THREATLAB_API_BASE_URL", "https://tm.example.com/api/")
	t.Setenv("THREATLAB_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://tm.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.toml")
	content := `
[api]
base_url = "http://10.0.0.5:9000/api"
timeout = "5s"

[llm]
provider = "mock"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:9000/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "mock", cfg.LLM.Provider)
}

func TestLoadMissingFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestUserConfigDirIsSearched(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "threatlab"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "threatlab", "threatlab.toml"),
		[]byte("[store]\npath = \"/tmp/tl.db\"\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tl.db", cfg.Store.Path)
}

func TestLLMKeyFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("THREATLAB_LLM_PROVIDER", "openai")
	t.Setenv("THREATLAB_LLM_OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
}
