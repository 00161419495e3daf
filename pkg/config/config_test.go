package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("CODESMITH_MODEL", "")
	t.Setenv("CODESMITH_BASE_URL", "")
	t.Setenv("CODESMITH_WORKSPACE", "")
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearOverrides(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "codesmith", cfg.App.Name)
	assert.Equal(t, 25, cfg.App.MaxIterations)
	assert.Equal(t, 5000, cfg.App.MaxToolOutput)
	assert.Equal(t, "codesmith.db", cfg.Memory.Path)

	name, p := cfg.GetDefaultProvider()
	assert.Equal(t, "openrouter", name)
	assert.Equal(t, "openrouter/optimus-alpha", p.Model)
	assert.True(t, p.Enabled)
}

func TestLoadConfig_ParsesYAML(t *testing.T) {
	clearOverrides(t)

	raw := `
app:
  name: smith
  workspace: /tmp/work
  max_iterations: 7
providers:
  openai:
    api_key: sk-test
    model: gpt-4o-mini
    enabled: true
  openrouter:
    enabled: false
policy:
  denied_tools: [shell]
  denied_patterns: ['rm\s+-rf']
memory:
  path: /tmp/smith.db
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "smith", cfg.App.Name)
	assert.Equal(t, "/tmp/work", cfg.App.Workspace)
	assert.Equal(t, 7, cfg.App.MaxIterations)
	assert.Equal(t, []string{"shell"}, cfg.Policy.DeniedTools)
	assert.Equal(t, "/tmp/smith.db", cfg.Memory.Path)

	name, p := cfg.GetDefaultProvider()
	assert.Equal(t, "openai", name)
	assert.Equal(t, "sk-test", p.APIKey)
	assert.Equal(t, "gpt-4o-mini", p.Model)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	clearOverrides(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app: [not a mapping"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearOverrides(t)
	t.Setenv("OPENROUTER_API_KEY", "env-key")
	t.Setenv("CODESMITH_MODEL", "env/model")
	t.Setenv("CODESMITH_BASE_URL", "https://example.test/v1")
	t.Setenv("CODESMITH_WORKSPACE", "/srv/agent")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/srv/agent", cfg.App.Workspace)

	_, p := cfg.GetDefaultProvider()
	assert.Equal(t, "env-key", p.APIKey)
	assert.Equal(t, "env/model", p.Model)
	assert.Equal(t, "https://example.test/v1", p.BaseURL)
}

func TestGetDefaultProvider_StableOrder(t *testing.T) {
	cfg := &Config{Providers: map[string]ProviderConfig{
		"zeta":  {Enabled: true, Model: "z"},
		"alpha": {Enabled: true, Model: "a"},
		"beta":  {Enabled: false, Model: "b"},
	}}

	name, p := cfg.GetDefaultProvider()
	assert.Equal(t, "alpha", name)
	assert.Equal(t, "a", p.Model)
}

func TestGetDefaultProvider_NoneEnabled(t *testing.T) {
	cfg := &Config{Providers: map[string]ProviderConfig{
		"openrouter": {Enabled: false},
	}}

	name, _ := cfg.GetDefaultProvider()
	assert.Equal(t, "", name)
}
