// Package route holds the deterministic routing layer: the exact-match
// keyword registry, the escalation detector that decides when a request
// deserves the costly cloud model, and the router that picks a serving
// layer from live health and breaker state.
package route

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// KeywordEntry is one versioned command in the registry.
type KeywordEntry struct {
	Command    string `yaml:"command"`
	Response   string `yaml:"response"`
	AllowsArgs bool   `yaml:"allows_args"`
	Version    int    `yaml:"version"`
}

// KeywordRegistry answers exact-match commands from a versioned table.
// Matching is exact-string after trimming, never substring and never
// case-insensitive; fuzzy matching belongs to the classifier.
type KeywordRegistry struct {
	mu      sync.RWMutex
	path    string
	entries map[string]KeywordEntry
}

// LoadKeywordRegistry reads the registry from a YAML file. A missing
// file yields an empty registry rather than an error: a gateway with no
// keyword table still dispatches.
func LoadKeywordRegistry(path string) (*KeywordRegistry, error) {
	r := &KeywordRegistry{path: path, entries: make(map[string]KeywordEntry)}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return r, nil
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewKeywordRegistry builds a registry from in-memory entries.
func NewKeywordRegistry(entries []KeywordEntry) *KeywordRegistry {
	r := &KeywordRegistry{entries: make(map[string]KeywordEntry, len(entries))}
	for _, e := range entries {
		e.Command = strings.TrimSpace(e.Command)
		r.entries[e.Command] = e
	}
	return r
}

// Reload re-reads the registry file, replacing the table atomically.
func (r *KeywordRegistry) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("reading keyword registry %s: %w", r.path, err)
	}

	var entries []KeywordEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing keyword registry %s: %w", r.path, err)
	}

	table := make(map[string]KeywordEntry, len(entries))
	for _, e := range entries {
		e.Command = strings.TrimSpace(e.Command)
		if e.Command == "" {
			return fmt.Errorf("keyword registry %s: entry with empty command", r.path)
		}
		table[e.Command] = e
	}

	r.mu.Lock()
	r.entries = table
	r.mu.Unlock()
	return nil
}

// Match looks up the trimmed text as an exact command.
func (r *KeywordRegistry) Match(text string) (KeywordEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[strings.TrimSpace(text)]
	return entry, ok
}

// Commands returns a copy of every registered entry.
func (r *KeywordRegistry) Commands() []KeywordEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]KeywordEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}
