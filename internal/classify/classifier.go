// Package classify turns raw message text into an intent. It runs a
// strictly ordered cascade — keywords, the local model, the cloud
// models, a hardcoded fallback — and each phase only pays for itself
// when the cheaper ones produced nothing.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ziadkadry99/switchboard/internal/health"
	"github.com/ziadkadry99/switchboard/internal/llm"
)

// Classification is the immutable result of one classify call.
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"` // keyword, ollama, openai, fallback
	Cacheable  bool    `json:"cacheable"`
	TTL        int     `json:"ttl"`
	Reason     string  `json:"reason"`
}

// LocalModel is the slice of the Ollama client the classifier needs:
// completions plus the cached liveness probe.
type LocalModel interface {
	llm.Provider
	Alive(ctx context.Context) bool
}

// CloudBackend couples a cloud provider with the model it serves. The
// health tracker keys on the pair.
type CloudBackend struct {
	Provider llm.Provider
	Model    string
}

func (b CloudBackend) configured() bool { return b.Provider != nil }

func (b CloudBackend) trackingKey() string {
	return health.Key(b.Provider.Name(), b.Model)
}

// Classifier runs the intent cascade. It never returns an error: every
// failure advances to the next phase and the fallback phase is pure
// local logic.
type Classifier struct {
	local      LocalModel
	localModel string
	primary    CloudBackend
	backup     CloudBackend
	tracker    *health.Tracker
	logger     *slog.Logger

	classifyTimeout time.Duration
}

// New creates a Classifier. backup.Provider may be nil, which runs the
// cloud phase single-provider.
func New(local LocalModel, localModel string, primary, backup CloudBackend, tracker *health.Tracker, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		local:           local,
		localModel:      localModel,
		primary:         primary,
		backup:          backup,
		tracker:         tracker,
		logger:          logger,
		classifyTimeout: 15 * time.Second,
	}
}

// Classify runs the cascade on one message.
func (c *Classifier) Classify(ctx context.Context, message string) Classification {
	if result, ok := c.keywordPhase(message); ok {
		return result
	}

	if result, ok := c.localPhase(ctx, message); ok {
		// The local model may notice real work, but it doesn't get to
		// decide it: quality intents are re-checked in the cloud.
		if needsCloudQuality[result.Intent] {
			if cloud, ok := c.cloudPhase(ctx, message); ok {
				return cloud
			}
		}
		return result
	}

	if result, ok := c.cloudPhase(ctx, message); ok {
		return result
	}

	return c.fallbackPhase(message)
}

// keywordPhase scans the lowered text against each intent's keyword
// list. First match wins, so the intent table order matters.
func (c *Classifier) keywordPhase(message string) (Classification, bool) {
	lowered := strings.ToLower(message)
	for _, cfg := range intentConfigs {
		for _, keyword := range cfg.keywords {
			if strings.Contains(lowered, keyword) {
				return c.build(cfg.intent, 0.95, "keyword", fmt.Sprintf("matched keyword %q", keyword)), true
			}
		}
	}
	return Classification{}, false
}

// localPhase asks the local model for a label from the closed
// vocabulary. Anything outside the vocabulary is a non-result.
func (c *Classifier) localPhase(ctx context.Context, message string) (Classification, bool) {
	if c.local == nil || !c.local.Alive(ctx) {
		return Classification{}, false
	}

	label, ok := c.askModel(ctx, c.local, message)
	if !ok {
		return Classification{}, false
	}

	return c.build(label, 0.80, "ollama", fmt.Sprintf("local model %s", c.localModel)), true
}

// cloudPhase tries the primary then the backup cloud, each gated by
// the health tracker. Failures are silent: the caller falls through.
func (c *Classifier) cloudPhase(ctx context.Context, message string) (Classification, bool) {
	for _, backend := range []CloudBackend{c.primary, c.backup} {
		if !backend.configured() {
			continue
		}
		if !c.tracker.IsAvailable(backend.trackingKey()) {
			c.logger.Debug("skipping rate limited provider",
				"provider", backend.trackingKey(),
				"retry_in_sec", c.tracker.SecondsUntilAvailable(backend.trackingKey()))
			continue
		}

		label, ok := c.askCloud(ctx, backend, message)
		if !ok {
			continue
		}

		reason := fmt.Sprintf("%s %s", backend.Provider.Name(), backend.Model)
		return c.build(label, 0.90, "openai", reason), true
	}
	return Classification{}, false
}

// askCloud sends the classification prompt to one cloud backend,
// feeding rate-limit state back into the tracker either way.
func (c *Classifier) askCloud(ctx context.Context, backend CloudBackend, message string) (Intent, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.classifyTimeout)
	defer cancel()

	resp, err := backend.Provider.Complete(ctx, llm.CompletionRequest{
		Model:       backend.Model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(classificationPrompt, message)}},
		MaxTokens:   20,
		Temperature: 0.1,
	})
	if err != nil {
		if rle, ok := llm.IsRateLimit(err); ok {
			c.tracker.RecordRateLimited(backend.Provider.Name(), backend.Model, rle.RetryAfter)
		} else {
			c.logger.Warn("cloud classification failed",
				"provider", backend.Provider.Name(), "error", err)
		}
		return "", false
	}

	c.tracker.UpdateFromHeaders(backend.Provider.Name(), backend.Model, resp.Headers)

	return parseLabel(resp.Content)
}

// askModel sends the classification prompt to the local model.
func (c *Classifier) askModel(ctx context.Context, provider llm.Provider, message string) (Intent, bool) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := provider.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(classificationPrompt, message)}},
		MaxTokens:   20,
		Temperature: 0.1,
	})
	if err != nil {
		c.logger.Warn("local classification failed", "error", err)
		return "", false
	}

	return parseLabel(resp.Content)
}

// parseLabel validates a model answer against the closed vocabulary.
func parseLabel(content string) (Intent, bool) {
	label := Intent(strings.ToLower(strings.TrimSpace(content)))
	if _, ok := configByIntent[label]; !ok {
		return "", false
	}
	return label, true
}

// fallbackPhase is the terminal phase: pure word rules, no network,
// cannot fail.
func (c *Classifier) fallbackPhase(message string) Classification {
	lowered := strings.ToLower(message)

	if len(strings.Fields(message)) < 5 {
		return c.build(IntentTrivial, 0.5, "fallback", "short message")
	}

	for _, word := range []string{"error", "fix", "broken"} {
		if strings.Contains(lowered, word) {
			return c.build(IntentDebugging, 0.6, "fallback", "contains error keywords")
		}
	}

	return c.build(IntentUnknown, 0.0, "fallback", "could not classify")
}

// build fills a Classification with the intent's cache policy.
func (c *Classifier) build(intent Intent, confidence float64, method, reason string) Classification {
	cfg := configByIntent[intent]
	return Classification{
		Intent:     intent,
		Confidence: confidence,
		Method:     method,
		Cacheable:  cfg.cacheable,
		TTL:        cfg.ttl,
		Reason:     reason,
	}
}

// Stats reports the classifier's configuration and liveness for the
// status surfaces.
type Stats struct {
	LocalModel     string `json:"local_model"`
	LocalAlive     bool   `json:"local_alive"`
	PrimaryModel   string `json:"primary_model,omitempty"`
	BackupModel    string `json:"backup_model,omitempty"`
	IntentCount    int    `json:"intent_count"`
	PrimaryHealthy bool   `json:"primary_healthy"`
	BackupHealthy  bool   `json:"backup_healthy"`
}

// Stats returns a point-in-time view of the cascade's dependencies.
func (c *Classifier) Stats(ctx context.Context) Stats {
	stats := Stats{
		LocalModel:  c.localModel,
		IntentCount: len(intentConfigs),
	}
	if c.local != nil {
		stats.LocalAlive = c.local.Alive(ctx)
	}
	if c.primary.configured() {
		stats.PrimaryModel = c.primary.Model
		stats.PrimaryHealthy = c.tracker.IsAvailable(c.primary.trackingKey())
	}
	if c.backup.configured() {
		stats.BackupModel = c.backup.Model
		stats.BackupHealthy = c.tracker.IsAvailable(c.backup.trackingKey())
	}
	return stats
}
