package config

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
)

// detectOllama checks whether a local Ollama daemon answers at url so
// the wizard can tell the user what it found.
func detectOllama(url string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url + "/api/version")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .switchboard.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to switchboard! Let's configure your gateway.")
	fmt.Println()

	defaults := DefaultConfig()

	// 1. Local model daemon.
	ollamaPrompt := promptui.Prompt{
		Label:   "Ollama URL",
		Default: defaults.Providers.Ollama.URL,
	}
	ollamaURL, err := ollamaPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("ollama url: %w", err)
	}
	ollamaURL = strings.TrimRight(ollamaURL, "/")

	if detectOllama(ollamaURL) {
		fmt.Printf("Found a running Ollama daemon at %s\n\n", ollamaURL)
	} else {
		fmt.Printf("No Ollama daemon answered at %s — requests will escalate to the cloud until one is running.\n\n", ollamaURL)
	}

	modelPrompt := promptui.Prompt{
		Label:   "Ollama model",
		Default: defaults.Providers.Ollama.Model,
	}
	ollamaModel, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("ollama model: %w", err)
	}

	// 2. Primary cloud model.
	openaiPrompt := promptui.Select{
		Label: "Primary cloud model",
		Items: []string{
			"gpt-4o-mini — fast & cheap",
			"gpt-4o      — stronger reasoning",
		},
	}
	openaiIdx, _, err := openaiPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("primary model selection: %w", err)
	}
	openaiModels := []string{"gpt-4o-mini", "gpt-4o"}
	openaiModel := openaiModels[openaiIdx]

	// 3. Backup cloud.
	backupPrompt := promptui.Select{
		Label: "Backup cloud provider (used when the primary is rate limited)",
		Items: []string{"moonshot", "anthropic", "groq", "none"},
	}
	_, backupStr, err := backupPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("backup selection: %w", err)
	}

	var backup BackupConfig
	if backupStr != "none" {
		backupType := ProviderType(backupStr)
		backup = BackupConfig{
			Type:      backupType,
			Model:     DefaultBackupModel(backupType),
			APIKeyEnv: APIKeyEnvVar(backupType),
		}
	}

	// 4. HTTP port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP server port",
		Default: strconv.Itoa(defaults.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > 65535 {
				return fmt.Errorf("port must be a number between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	port, _ := strconv.Atoi(portStr)

	// 5. Projects excluded from the response cache.
	excludePrompt := promptui.Prompt{
		Label:   "Projects to exclude from caching (comma-separated globs, blank for none)",
		Default: "",
	}
	excludeStr, err := excludePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Providers.Ollama.URL = ollamaURL
	cfg.Providers.Ollama.Model = ollamaModel
	cfg.Providers.OpenAI.Model = openaiModel
	cfg.Providers.Backup = backup
	cfg.Server.Port = port
	cfg.Cache.ExcludeProjects = splitAndTrim(excludeStr)

	// Point out missing credentials.
	for _, envVar := range []string{cfg.Providers.OpenAI.APIKeyEnv, cfg.Providers.Backup.APIKeyEnv} {
		if envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running switchboard serve.\n", envVar)
		}
	}

	// Save to .switchboard.yml.
	configPath := ".switchboard.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
