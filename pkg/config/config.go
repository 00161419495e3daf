package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig                 `yaml:"app"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Memory    MemoryConfig              `yaml:"memory"`
	Policy    PolicyConfig              `yaml:"policy"`
}

type AppConfig struct {
	Name              string `yaml:"name"`
	Workspace         string `yaml:"workspace"`
	PromptsDir        string `yaml:"prompts_dir"`
	LogDir            string `yaml:"log_dir"`
	MaxIterations     int    `yaml:"max_iterations"`
	MaxToolOutput     int    `yaml:"max_tool_output"`
	LLMCallsPerMinute int    `yaml:"llm_calls_per_minute"`
	ShellTimeoutSecs  int    `yaml:"shell_timeout_seconds"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	Enabled bool   `yaml:"enabled"`
}

type MemoryConfig struct {
	Path string `yaml:"path"`
}

type PolicyConfig struct {
	DeniedTools    []string `yaml:"denied_tools"`
	DeniedPatterns []string `yaml:"denied_patterns"`
}

// envOverrides let the important settings come from the environment (or a
// .env file loaded by main) without editing the config file.
type envOverrides struct {
	APIKey    string `envconfig:"OPENROUTER_API_KEY"`
	Model     string `envconfig:"CODESMITH_MODEL"`
	BaseURL   string `envconfig:"CODESMITH_BASE_URL"`
	Workspace string `envconfig:"CODESMITH_WORKSPACE"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:              "codesmith",
			Workspace:         ".",
			PromptsDir:        "prompts",
			LogDir:            "logs",
			MaxIterations:     25,
			MaxToolOutput:     5000,
			LLMCallsPerMinute: 30,
			ShellTimeoutSecs:  120,
		},
		Providers: map[string]ProviderConfig{
			"openrouter": {
				Model:   "openrouter/optimus-alpha",
				BaseURL: "https://openrouter.ai/api/v1",
				Enabled: true,
			},
		},
		Memory: MemoryConfig{
			Path: "codesmith.db",
		},
	}
}

// LoadConfig reads the YAML config file and applies environment overrides.
// A missing file is not an error; defaults are used instead.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to defaults
	default:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	var ov envOverrides
	if err := envconfig.Process("", &ov); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}
	cfg.applyOverrides(ov)

	return cfg, nil
}

func (c *Config) applyOverrides(ov envOverrides) {
	if ov.Workspace != "" {
		c.App.Workspace = ov.Workspace
	}
	name, p := c.GetDefaultProvider()
	if name == "" {
		return
	}
	if ov.APIKey != "" {
		p.APIKey = ov.APIKey
	}
	if ov.Model != "" {
		p.Model = ov.Model
	}
	if ov.BaseURL != "" {
		p.BaseURL = ov.BaseURL
	}
	c.Providers[name] = p
}

// GetDefaultProvider returns the first enabled provider, scanning names in
// sorted order so the choice is stable.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if p := c.Providers[name]; p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}
