package config

// backupModels maps each backup provider type to its default model.
var backupModels = map[ProviderType]string{
	ProviderMoonshot:  "moonshot-v1-auto",
	ProviderAnthropic: "claude-haiku-4-5-20251001",
	ProviderGroq:      "llama-3.1-8b-instant",
}

// DefaultBackupModel returns the default model for a backup provider
// type, falling back to the moonshot default for unknown types.
func DefaultBackupModel(p ProviderType) string {
	if m, ok := backupModels[p]; ok {
		return m
	}
	return backupModels[ProviderMoonshot]
}

// DefaultConfig returns a Config with sensible defaults: local llama
// for volume, gpt-4o-mini as the primary cloud, kimi as the backup.
func DefaultConfig() *Config {
	return &Config{
		Mode:         ModeNormal,
		DBPath:       ".switchboard/switchboard.db",
		KeywordsPath: "keywords.yml",
		Providers: ProvidersConfig{
			Ollama: OllamaConfig{
				URL:   "http://localhost:11434",
				Model: "llama3.2",
			},
			OpenAI: CloudConfig{
				Model:     "gpt-4o-mini",
				APIKeyEnv: "OPENAI_API_KEY",
			},
			Backup: BackupConfig{
				Type:      ProviderMoonshot,
				Model:     "moonshot-v1-auto",
				APIKeyEnv: "KIMI_API_KEY",
			},
		},
		Breakers: BreakersConfig{
			Ollama: BreakerConfig{MaxFailures: 3, CooldownSec: 60},
			OpenAI: BreakerConfig{MaxFailures: 2, CooldownSec: 30},
			Backup: BreakerConfig{MaxFailures: 2, CooldownSec: 30},
		},
		Health: HealthConfig{
			CacheTTLSec: 8,
		},
		Cache: CacheConfig{
			SweepSchedule:   "*/5 * * * *",
			ExcludeProjects: nil,
			ProjectsRoot:    ".",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Session: SessionConfig{
			MaxMessages:   20,
			ContextWindow: 10,
		},
	}
}
