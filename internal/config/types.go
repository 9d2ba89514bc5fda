package config

// Mode controls the dispatch posture. Brownout withholds cloud
// escalation from requests that don't explicitly trigger it.
type Mode string

const (
	ModeNormal   Mode = "normal"
	ModeBrownout Mode = "brownout"
)

// ProviderType identifies a model backend.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
	ProviderMoonshot  ProviderType = "moonshot"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderGroq      ProviderType = "groq"
)

// Config is the top-level switchboard configuration, corresponding to .switchboard.yml.
type Config struct {
	Mode         Mode            `yaml:"mode" koanf:"mode"`
	DBPath       string          `yaml:"db_path" koanf:"db_path"`
	KeywordsPath string          `yaml:"keywords_path" koanf:"keywords_path"`
	Providers    ProvidersConfig `yaml:"providers" koanf:"providers"`
	Breakers     BreakersConfig  `yaml:"breakers" koanf:"breakers"`
	Health       HealthConfig    `yaml:"health" koanf:"health"`
	Cache        CacheConfig     `yaml:"cache" koanf:"cache"`
	Server       ServerConfig    `yaml:"server" koanf:"server"`
	Logging      LoggingConfig   `yaml:"logging" koanf:"logging"`
	Session      SessionConfig   `yaml:"session" koanf:"session"`
}

// ProvidersConfig selects the model backends for the three dispatch roles:
// local workhorse, primary cloud, backup cloud.
type ProvidersConfig struct {
	Ollama OllamaConfig `yaml:"ollama" koanf:"ollama"`
	OpenAI CloudConfig  `yaml:"openai" koanf:"openai"`
	Backup BackupConfig `yaml:"backup" koanf:"backup"`
}

// OllamaConfig points at the local model daemon.
type OllamaConfig struct {
	URL   string `yaml:"url" koanf:"url"`
	Model string `yaml:"model" koanf:"model"`
	// MaxRPM caps requests per minute to the daemon; 0 means no cap.
	MaxRPM int `yaml:"max_rpm" koanf:"max_rpm"`
}

// CloudConfig holds settings for a hosted API backend. APIKeyEnv names
// the environment variable carrying the credential.
type CloudConfig struct {
	Model     string `yaml:"model" koanf:"model"`
	APIKeyEnv string `yaml:"api_key_env" koanf:"api_key_env"`
}

// BackupConfig selects the second cloud tried when the primary is rate
// limited. Type may be moonshot, anthropic, or groq; an empty type
// disables the backup and the cascade runs single-cloud.
type BackupConfig struct {
	Type      ProviderType `yaml:"type" koanf:"type"`
	Model     string       `yaml:"model" koanf:"model"`
	APIKeyEnv string       `yaml:"api_key_env" koanf:"api_key_env"`
	URL       string       `yaml:"url" koanf:"url"`
}

// BreakerConfig holds circuit breaker thresholds for one dependency.
type BreakerConfig struct {
	MaxFailures int `yaml:"max_failures" koanf:"max_failures"`
	CooldownSec int `yaml:"cooldown_sec" koanf:"cooldown_sec"`
}

// BreakersConfig holds per-dependency breaker thresholds.
type BreakersConfig struct {
	Ollama BreakerConfig `yaml:"ollama" koanf:"ollama"`
	OpenAI BreakerConfig `yaml:"openai" koanf:"openai"`
	Backup BreakerConfig `yaml:"backup" koanf:"backup"`
}

// HealthConfig tunes the backend health monitor.
type HealthConfig struct {
	// CacheTTLSec is how long a probed health snapshot stays fresh.
	CacheTTLSec int `yaml:"cache_ttl_sec" koanf:"cache_ttl_sec"`
}

// CacheConfig tunes the response cache.
type CacheConfig struct {
	// SweepSchedule is a cron expression for expired-entry sweeps.
	SweepSchedule string `yaml:"sweep_schedule" koanf:"sweep_schedule"`
	// ExcludeProjects are glob patterns for projects whose responses
	// must never be cached.
	ExcludeProjects []string `yaml:"exclude_projects" koanf:"exclude_projects"`
	// ProjectsRoot is the directory containing project checkouts,
	// used to resolve git state for cache keys.
	ProjectsRoot string `yaml:"projects_root" koanf:"projects_root"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port" koanf:"port"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
	File   string `yaml:"file" koanf:"file"`
}

// SessionConfig caps per-user conversation history.
type SessionConfig struct {
	// MaxMessages is the number of messages retained per session.
	MaxMessages int `yaml:"max_messages" koanf:"max_messages"`
	// ContextWindow is how many recent messages are sent to the model.
	ContextWindow int `yaml:"context_window" koanf:"context_window"`
}
