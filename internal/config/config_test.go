package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Mode != ModeNormal {
		t.Errorf("expected default mode %q, got %q", ModeNormal, cfg.Mode)
	}
	if cfg.Providers.Ollama.URL != "http://localhost:11434" {
		t.Errorf("unexpected default ollama url %q", cfg.Providers.Ollama.URL)
	}
	if cfg.Providers.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("unexpected default openai model %q", cfg.Providers.OpenAI.Model)
	}
	if cfg.Providers.Backup.Type != ProviderMoonshot {
		t.Errorf("expected moonshot backup, got %q", cfg.Providers.Backup.Type)
	}
	if cfg.Breakers.Ollama.MaxFailures != 3 || cfg.Breakers.Ollama.CooldownSec != 60 {
		t.Errorf("unexpected ollama breaker defaults: %+v", cfg.Breakers.Ollama)
	}
	if cfg.Breakers.OpenAI.MaxFailures != 2 || cfg.Breakers.OpenAI.CooldownSec != 30 {
		t.Errorf("unexpected openai breaker defaults: %+v", cfg.Breakers.OpenAI)
	}
	if cfg.Health.CacheTTLSec != 8 {
		t.Errorf("expected health cache ttl 8, got %d", cfg.Health.CacheTTLSec)
	}
	if cfg.Session.MaxMessages != 20 || cfg.Session.ContextWindow != 10 {
		t.Errorf("unexpected session defaults: %+v", cfg.Session)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.switchboard.yml")

	original := DefaultConfig()
	original.Mode = ModeBrownout
	original.Providers.OpenAI.Model = "gpt-4o"
	original.Providers.Backup.Type = ProviderGroq
	original.Providers.Backup.Model = "llama-3.1-8b-instant"
	original.Cache.ExcludeProjects = []string{"secret-*", "infra/**"}
	original.Server.Port = 9090

	// Save.
	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Load back.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify round-trip.
	if loaded.Mode != original.Mode {
		t.Errorf("mode: got %q, want %q", loaded.Mode, original.Mode)
	}
	if loaded.Providers.OpenAI.Model != original.Providers.OpenAI.Model {
		t.Errorf("openai model: got %q, want %q", loaded.Providers.OpenAI.Model, original.Providers.OpenAI.Model)
	}
	if loaded.Providers.Backup.Type != original.Providers.Backup.Type {
		t.Errorf("backup type: got %q, want %q", loaded.Providers.Backup.Type, original.Providers.Backup.Type)
	}
	if loaded.Server.Port != original.Server.Port {
		t.Errorf("port: got %d, want %d", loaded.Server.Port, original.Server.Port)
	}
	if len(loaded.Cache.ExcludeProjects) != len(original.Cache.ExcludeProjects) {
		t.Fatalf("exclude_projects length: got %d, want %d",
			len(loaded.Cache.ExcludeProjects), len(original.Cache.ExcludeProjects))
	}
	for i, v := range loaded.Cache.ExcludeProjects {
		if v != original.Cache.ExcludeProjects[i] {
			t.Errorf("exclude_projects[%d]: got %q, want %q", i, v, original.Cache.ExcludeProjects[i])
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Mode != ModeNormal {
		t.Errorf("expected default mode, got %q", cfg.Mode)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Override mode via env var.
	os.Setenv("SWITCHBOARD_MODE", "brownout")
	defer os.Unsetenv("SWITCHBOARD_MODE")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Mode != ModeBrownout {
		t.Errorf("env override failed: got %q, want %q", loaded.Mode, ModeBrownout)
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateInvalidMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = "blackout"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid mode")
	}
}

func TestValidateEmptyOllamaURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers.Ollama.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty ollama url")
	}
}

func TestValidateEmptyOpenAIModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers.OpenAI.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty openai model")
	}
}

func TestValidateInvalidBackupType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers.Backup.Type = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid backup type")
	}
}

func TestValidateBackupDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers.Backup = BackupConfig{}
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty backup should be valid (single-cloud mode), got: %v", err)
	}
}

func TestValidateBreakerThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Breakers.Ollama.MaxFailures = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero max_failures")
	}

	cfg = DefaultConfig()
	cfg.Breakers.OpenAI.CooldownSec = -10
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative cooldown_sec")
	}
}

func TestValidateInvalidSweepSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.SweepSchedule = "every five minutes"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for malformed cron expression")
	}
}

func TestValidateInvalidPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for port 0")
	}

	cfg = DefaultConfig()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for port out of range")
	}
}

func TestValidateInvalidLogging(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid log level")
	}

	cfg = DefaultConfig()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid log format")
	}
}

func TestValidateSessionWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.ContextWindow = 30
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error when context_window exceeds max_messages")
	}
}

func TestDefaultBackupModel(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderMoonshot, "moonshot-v1-auto"},
		{ProviderAnthropic, "claude-haiku-4-5-20251001"},
		{ProviderGroq, "llama-3.1-8b-instant"},
		{"unknown", "moonshot-v1-auto"},
	}
	for _, tt := range tests {
		if got := DefaultBackupModel(tt.provider); got != tt.want {
			t.Errorf("DefaultBackupModel(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderMoonshot, "KIMI_API_KEY"},
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderGroq, "GROQ_API_KEY"},
		{ProviderOllama, ""},
	}
	for _, tt := range tests {
		got := APIKeyEnvVar(tt.provider)
		if got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"secret-*", []string{"secret-*"}},
		{"", nil},
		{"  ,  , ", nil},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndTrim(%q) len = %d, want %d", tt.input, len(got), len(tt.want))
			continue
		}
		for i, v := range got {
			if v != tt.want[i] {
				t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
			}
		}
	}
}
