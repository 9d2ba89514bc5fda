// Package gateway is the full message-to-response pipeline: classify
// the intent, answer from the cheapest layer that can serve it, and
// always give the caller something back. Exact keyword commands and
// trivial chatter never touch a model; cheap intents run on the local
// model; real work goes through the cloud cascade with rate-limit and
// breaker gating.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/switchboard/internal/breaker"
	"github.com/ziadkadry99/switchboard/internal/cache"
	"github.com/ziadkadry99/switchboard/internal/classify"
	"github.com/ziadkadry99/switchboard/internal/config"
	"github.com/ziadkadry99/switchboard/internal/decision"
	"github.com/ziadkadry99/switchboard/internal/health"
	"github.com/ziadkadry99/switchboard/internal/llm"
	"github.com/ziadkadry99/switchboard/internal/metrics"
	"github.com/ziadkadry99/switchboard/internal/route"
)

const systemPrompt = "You are Switchboard, a helpful AI assistant. " +
	"Be concise and direct. Keep responses short unless detail is needed."

const (
	exhaustedReply = "All providers are currently rate limited. " +
		"I'll be back online shortly — try again in a minute."
	panicReply = "Something went wrong on my end. Try again in a moment."
)

// trivialReplies answers small talk without an API call. Matching is
// substring against the lowered, punctuation-stripped text.
var trivialReplies = []struct {
	key   string
	reply string
}{
	{"thank you", "You're welcome!"},
	{"thanks", "You're welcome!"},
	{"good job", "Appreciate it!"},
	{"got it", "Great."},
	{"understood", "Perfect."},
	{"acknowledged", "Noted."},
	{"hello", "Hey there! What do you need?"},
	{"hey", "What's up? How can I help?"},
	{"hi", "Hey! What can I help you with?"},
	{"ok", "Got it."},
	{"cool", "Right on."},
	{"nice", "Thanks!"},
}

// ollamaIntents are the intents cheap enough that the local model
// generates the answer. Everything else goes through the cloud cascade.
var ollamaIntents = map[classify.Intent]bool{
	classify.IntentStatusCheck: true,
	classify.IntentHowTo:       true,
	classify.IntentTrivial:     true,
	classify.IntentUnknown:     true,
}

// Request is one inbound message.
type Request struct {
	UserID   string
	Text     string
	Priority string
	Project  string
}

// Result is the gateway's answer plus the audit facts about how it was
// produced.
type Result struct {
	Response  string
	RequestID string
	Layer     decision.Layer
	Intent    classify.Intent
	CacheHit  bool
}

// Deps wires the gateway's collaborators. Cache, Resolver, Decisions,
// and Monitor are optional; the pipeline degrades around a missing one.
type Deps struct {
	Classifier *classify.Classifier
	Router     *route.Router
	Monitor    *health.Monitor
	Tracker    *health.Tracker
	Breakers   *breaker.Breaker
	Cache      *cache.Cache
	Resolver   *cache.StateResolver
	Decisions  *decision.Store
	Sessions   *SessionStore

	Local      classify.LocalModel
	LocalModel string
	Primary    classify.CloudBackend
	Backup     classify.CloudBackend

	BreakerPolicies config.BreakersConfig
	Logger          *slog.Logger
}

// Gateway runs the dispatch pipeline. Handle never panics outward and
// never returns an empty string.
type Gateway struct {
	classifier *classify.Classifier
	router     *route.Router
	monitor    *health.Monitor
	tracker    *health.Tracker
	breakers   *breaker.Breaker
	cache      *cache.Cache
	resolver   *cache.StateResolver
	decisions  *decision.Store
	sessions   *SessionStore

	local      classify.LocalModel
	localModel string
	primary    classify.CloudBackend
	backup     classify.CloudBackend

	policies config.BreakersConfig
	logger   *slog.Logger

	generateTimeout time.Duration
}

// New creates a Gateway from its dependencies.
func New(deps Deps) *Gateway {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Sessions == nil {
		deps.Sessions = NewSessionStore(0, 0)
	}
	return &Gateway{
		classifier:      deps.Classifier,
		router:          deps.Router,
		monitor:         deps.Monitor,
		tracker:         deps.Tracker,
		breakers:        deps.Breakers,
		cache:           deps.Cache,
		resolver:        deps.Resolver,
		decisions:       deps.Decisions,
		sessions:        deps.Sessions,
		local:           deps.Local,
		localModel:      deps.LocalModel,
		primary:         deps.Primary,
		backup:          deps.Backup,
		policies:        deps.BreakerPolicies,
		logger:          deps.Logger,
		generateTimeout: 30 * time.Second,
	}
}

// Handle is the library entry point: one message in, one response out.
func (g *Gateway) Handle(ctx context.Context, userID, text, priority string) string {
	return g.Dispatch(ctx, Request{UserID: userID, Text: text, Priority: priority}).Response
}

// Dispatch runs the full pipeline and returns the response with its
// provenance.
func (g *Gateway) Dispatch(ctx context.Context, req Request) (result Result) {
	start := time.Now()
	result = Result{RequestID: uuid.NewString()}

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("gateway panic recovered", "user", req.UserID, "panic", r)
			result.Response = panicReply
			result.Layer = decision.LayerFallback
		}
	}()

	if req.Priority == "" {
		req.Priority = "normal"
	}

	snap := g.snapshot(ctx)
	routed := g.router.Route(route.Envelope{
		RequestID: result.RequestID,
		UserID:    req.UserID,
		Text:      req.Text,
		Priority:  req.Priority,
	}, snap)
	record := routed.Record
	perLayer := make(map[string]float64)

	// Exact commands answer straight from the keyword table.
	if record.Layer == decision.LayerKeyword {
		entry, _ := g.router.Keywords().Match(req.Text)
		result.Response = entry.Response
		result.Layer = decision.LayerKeyword
		g.finish(ctx, record, perLayer, start)
		return result
	}

	classifyStart := time.Now()
	classification := g.classifier.Classify(ctx, req.Text)
	perLayer["classify"] = msSince(classifyStart)
	result.Intent = classification.Intent
	g.logger.Info("classified",
		"user", req.UserID,
		"intent", classification.Intent,
		"method", classification.Method,
		"confidence", classification.Confidence)

	if classification.Intent == classify.IntentTrivial {
		result.Response = trivialReply(req.Text)
		result.Layer = decision.LayerKeyword
		record.Layer = decision.LayerKeyword
		record.Reason = "trivial canned reply"
		record.EstimatedCostUSD = 0
		g.finish(ctx, record, perLayer, start)
		return result
	}

	stateSig := ""
	if req.Project != "" && g.resolver != nil {
		stateSig = g.resolver.StateFor(ctx, req.Project).Signature()
	}
	if classification.Cacheable && g.cache != nil {
		if hit, ok := g.cache.Get(string(classification.Intent), req.Project, stateSig); ok {
			g.sessions.Append(req.UserID,
				llm.Message{Role: llm.RoleUser, Content: req.Text},
				llm.Message{Role: llm.RoleAssistant, Content: hit.Response})
			result.Response = hit.Response
			result.CacheHit = true
			result.Layer = record.Layer
			record.Reason = "cache hit"
			record.EstimatedCostUSD = 0
			g.finish(ctx, record, perLayer, start)
			return result
		}
	}

	g.sessions.Append(req.UserID, llm.Message{Role: llm.RoleUser, Content: req.Text})
	messages := append([]llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}},
		g.sessions.Window(req.UserID)...)

	response := ""
	served := decision.LayerFallback

	cheap := ollamaIntents[classification.Intent]
	if cheap {
		localStart := time.Now()
		response = g.generateLocal(ctx, messages)
		perLayer["ollama"] = msSince(localStart)
		if response != "" {
			served = decision.LayerOllama
		}
	}
	if response == "" {
		cloudStart := time.Now()
		var model string
		response, model = g.generateQuality(ctx, messages)
		perLayer["openai"] = msSince(cloudStart)
		if response != "" {
			served = decision.LayerOpenAI
			record.Reason = fmt.Sprintf("served by %s", model)
		}
	}
	if response == "" && !cheap {
		// Last resort: a degraded local answer beats no answer.
		localStart := time.Now()
		response = g.generateLocal(ctx, messages)
		perLayer["ollama"] = msSince(localStart)
		if response != "" {
			served = decision.LayerOllama
			record.Reason = "cloud exhausted, local last resort"
		}
	}

	if response == "" {
		record.Layer = decision.LayerFallback
		record.Reason = "all providers exhausted"
		record.Confidence = 0.5
		record.EstimatedCostUSD = 0
		g.finish(ctx, record, perLayer, start)
		result.Response = exhaustedReply
		result.Layer = decision.LayerFallback
		return result
	}

	g.sessions.Append(req.UserID, llm.Message{Role: llm.RoleAssistant, Content: response})
	if classification.Cacheable && g.cache != nil {
		g.cache.Put(string(classification.Intent), req.Project, stateSig, response,
			int64(llm.EstimateTokens(response)), "exact_match")
	}

	record.Layer = served
	if served != decision.LayerOpenAI {
		record.EstimatedCostUSD = 0
	}
	g.finish(ctx, record, perLayer, start)
	result.Response = response
	result.Layer = served
	return result
}

// snapshot asks the monitor when one is wired, and otherwise derives
// availability from the local probe and the tracker.
func (g *Gateway) snapshot(ctx context.Context) health.SystemSnapshot {
	if g.monitor != nil {
		return g.monitor.Snapshot(ctx)
	}
	snap := health.SystemSnapshot{CheckedAt: time.Now().UTC()}
	if g.local != nil {
		snap.OllamaUp = g.local.Alive(ctx)
	}
	if g.primary.Provider != nil {
		snap.OpenAIUp = g.tracker.IsAvailable(health.Key(g.primary.Provider.Name(), g.primary.Model))
	}
	if g.backup.Provider != nil {
		snap.BackupUp = g.tracker.IsAvailable(health.Key(g.backup.Provider.Name(), g.backup.Model))
	}
	return snap
}

// generateLocal produces a response on the local model, or "" if it
// can't right now.
func (g *Gateway) generateLocal(ctx context.Context, messages []llm.Message) string {
	if g.local == nil || !g.breakers.CanAttempt("ollama") || !g.local.Alive(ctx) {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, g.generateTimeout)
	defer cancel()

	resp, err := g.local.Complete(ctx, llm.CompletionRequest{
		Model:       g.localModel,
		Messages:    messages,
		MaxTokens:   1024,
		Temperature: 0.7,
	})
	if err != nil {
		g.breakers.RecordFailure("ollama",
			time.Duration(g.policies.Ollama.CooldownSec)*time.Second,
			g.policies.Ollama.MaxFailures, err)
		return ""
	}

	g.breakers.RecordSuccess("ollama")
	return strings.TrimSpace(resp.Content)
}

// generateQuality runs the primary-then-backup cloud cascade, feeding
// rate-limit state into the tracker and failures into the breakers.
// Returns the response and the model that produced it.
func (g *Gateway) generateQuality(ctx context.Context, messages []llm.Message) (string, string) {
	backends := []struct {
		backend classify.CloudBackend
		dep     string
		policy  config.BreakerConfig
	}{
		{g.primary, "openai", g.policies.OpenAI},
		{g.backup, "backup", g.policies.Backup},
	}

	for _, b := range backends {
		if b.backend.Provider == nil {
			continue
		}
		key := health.Key(b.backend.Provider.Name(), b.backend.Model)
		if !g.breakers.CanAttempt(b.dep) || !g.tracker.IsAvailable(key) {
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, g.generateTimeout)
		resp, err := b.backend.Provider.Complete(callCtx, llm.CompletionRequest{
			Model:       b.backend.Model,
			Messages:    messages,
			MaxTokens:   1024,
			Temperature: 0.7,
		})
		cancel()

		if err != nil {
			if rle, ok := llm.IsRateLimit(err); ok {
				g.tracker.RecordRateLimited(b.backend.Provider.Name(), b.backend.Model, rle.RetryAfter)
				g.logger.Warn("provider rate limited",
					"provider", b.backend.Provider.Name(), "retry_after_sec", rle.RetryAfter)
			} else {
				g.breakers.RecordFailure(b.dep,
					time.Duration(b.policy.CooldownSec)*time.Second,
					b.policy.MaxFailures, err)
			}
			continue
		}

		g.tracker.UpdateFromHeaders(b.backend.Provider.Name(), b.backend.Model, resp.Headers)
		g.breakers.RecordSuccess(b.dep)
		metrics.EstimatedCostUSD.WithLabelValues(resp.Model).Add(
			llm.EstimateCost(b.backend.Model, resp.InputTokens, resp.OutputTokens))

		return strings.TrimSpace(resp.Content), b.backend.Model
	}

	return "", ""
}

// finish stamps latency onto the record, persists it best-effort, and
// feeds the dispatch metrics.
func (g *Gateway) finish(ctx context.Context, record decision.Record, perLayer map[string]float64, start time.Time) {
	record.LatencyMSTotal = msSince(start)
	record.LatencyMSPerLayer = perLayer

	if g.decisions != nil {
		if err := g.decisions.Log(ctx, record); err != nil {
			g.logger.Warn("decision log write failed", "request", record.RequestID, "error", err)
		}
	}

	metrics.DispatchesTotal.WithLabelValues(string(record.Layer), record.Intent).Inc()
	metrics.DispatchLatency.WithLabelValues(string(record.Layer)).Observe(time.Since(start).Seconds())
}

// NewSession clears a user's history and reports the live provider
// lineup.
func (g *Gateway) NewSession(ctx context.Context, userID string) string {
	g.sessions.Clear(userID)

	var providers []string
	if g.local != nil && g.local.Alive(ctx) {
		providers = append(providers, "ollama/"+g.localModel)
	}
	if g.primary.Provider != nil {
		providers = append(providers, fmt.Sprintf("%s/%s [%s]",
			g.primary.Provider.Name(), g.primary.Model, g.healthLabel(g.primary)))
	}
	if g.backup.Provider != nil {
		providers = append(providers, fmt.Sprintf("%s/%s [%s]",
			g.backup.Provider.Name(), g.backup.Model, g.healthLabel(g.backup)))
	}
	if len(providers) == 0 {
		providers = append(providers, "fallback only")
	}
	return "New session started. Providers: " + strings.Join(providers, ", ")
}

// Status renders a provider health summary for the status command and
// keyword replies.
func (g *Gateway) Status(ctx context.Context) string {
	lines := []string{"Switchboard Status:"}

	localState := "DOWN"
	if g.local != nil && g.local.Alive(ctx) {
		localState = "UP"
	}
	lines = append(lines, fmt.Sprintf("  Ollama: %s (%s)", localState, g.localModel))

	if g.primary.Provider != nil {
		lines = append(lines, fmt.Sprintf("  %s: %s (%s)",
			g.primary.Provider.Name(), g.healthLabel(g.primary), g.primary.Model))
	}
	if g.backup.Provider != nil {
		lines = append(lines, fmt.Sprintf("  %s: %s (%s)",
			g.backup.Provider.Name(), g.healthLabel(g.backup), g.backup.Model))
	}

	stats := g.tracker.Stats()
	for key, p := range stats.Providers {
		if p.Status == health.StatusRed {
			lines = append(lines, fmt.Sprintf("  Rate limited: %s (retry in %ds)",
				key, g.tracker.SecondsUntilAvailable(key)))
		}
	}

	return strings.Join(lines, "\n")
}

func (g *Gateway) healthLabel(backend classify.CloudBackend) string {
	key := health.Key(backend.Provider.Name(), backend.Model)
	if h, ok := g.tracker.HealthFor(key); ok {
		return string(h.Status)
	}
	return "unknown"
}

// trivialReply picks the canned answer for small talk.
func trivialReply(text string) string {
	msg := strings.TrimRight(strings.TrimSpace(strings.ToLower(text)), "!?.,")
	for _, t := range trivialReplies {
		if strings.Contains(msg, t.key) {
			return t.reply
		}
	}
	return "Got it."
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
