package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (SWITCHBOARD_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: SWITCHBOARD_MODE -> mode, etc.
	if err := k.Load(env.Provider("SWITCHBOARD_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SWITCHBOARD_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validModes is the set of recognized dispatch modes.
var validModes = map[Mode]bool{
	ModeNormal:   true,
	ModeBrownout: true,
}

// validBackupTypes is the set of providers usable as the backup cloud.
var validBackupTypes = map[ProviderType]bool{
	ProviderMoonshot:  true,
	ProviderAnthropic: true,
	ProviderGroq:      true,
}

// validLogLevels and validLogFormats mirror what the logger accepts.
var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if !validModes[c.Mode] {
		return fmt.Errorf("invalid mode %q: must be one of normal, brownout", c.Mode)
	}

	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}

	if c.Providers.Ollama.URL == "" {
		return fmt.Errorf("providers.ollama.url is required")
	}
	if c.Providers.Ollama.Model == "" {
		return fmt.Errorf("providers.ollama.model is required")
	}
	if c.Providers.Ollama.MaxRPM < 0 {
		return fmt.Errorf("providers.ollama.max_rpm must be non-negative")
	}

	if c.Providers.OpenAI.Model == "" {
		return fmt.Errorf("providers.openai.model is required")
	}

	if c.Providers.Backup.Type != "" {
		if !validBackupTypes[c.Providers.Backup.Type] {
			return fmt.Errorf("invalid providers.backup.type %q: must be one of moonshot, anthropic, groq", c.Providers.Backup.Type)
		}
		if c.Providers.Backup.Model == "" {
			return fmt.Errorf("providers.backup.model is required when a backup type is set")
		}
	}

	for name, b := range map[string]BreakerConfig{
		"ollama": c.Breakers.Ollama,
		"openai": c.Breakers.OpenAI,
		"backup": c.Breakers.Backup,
	} {
		if b.MaxFailures < 1 {
			return fmt.Errorf("breakers.%s.max_failures must be at least 1", name)
		}
		if b.CooldownSec < 0 {
			return fmt.Errorf("breakers.%s.cooldown_sec must be non-negative", name)
		}
	}

	if c.Health.CacheTTLSec < 0 {
		return fmt.Errorf("health.cache_ttl_sec must be non-negative")
	}

	if c.Cache.SweepSchedule != "" {
		if _, err := cron.ParseStandard(c.Cache.SweepSchedule); err != nil {
			return fmt.Errorf("invalid cache.sweep_schedule %q: %w", c.Cache.SweepSchedule, err)
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Logging.Level != "" && !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level %q: must be one of debug, info, warn, error", c.Logging.Level)
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format %q: must be one of text, json", c.Logging.Format)
	}

	if c.Session.MaxMessages < 1 {
		return fmt.Errorf("session.max_messages must be at least 1")
	}
	if c.Session.ContextWindow < 1 {
		return fmt.Errorf("session.context_window must be at least 1")
	}
	if c.Session.ContextWindow > c.Session.MaxMessages {
		return fmt.Errorf("session.context_window cannot exceed session.max_messages")
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderMoonshot:
		return "KIMI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGroq:
		return "GROQ_API_KEY"
	default:
		return ""
	}
}
