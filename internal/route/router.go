package route

import (
	"time"

	"github.com/ziadkadry99/switchboard/internal/breaker"
	"github.com/ziadkadry99/switchboard/internal/config"
	"github.com/ziadkadry99/switchboard/internal/decision"
	"github.com/ziadkadry99/switchboard/internal/health"
)

// openAICostEstimate is the flat per-call estimate recorded for cloud
// dispatches. Real spend is tracked per model by the metrics package;
// the decision log only needs an order of magnitude.
const openAICostEstimate = 0.01

// Envelope is one inbound request as the router sees it.
type Envelope struct {
	RequestID string
	UserID    string
	Text      string
	Priority  string
}

// CostGuard explains whether the costly layer was permitted, for the
// audit trail.
type CostGuard struct {
	OpenAIAllowed bool   `json:"openai_allowed"`
	Why           string `json:"why"`
}

// Decision is the router's full answer for one request.
type Decision struct {
	Record     decision.Record
	CostGuard  CostGuard
	Escalation EscalationResult
}

// Router picks a serving layer from keyword state, health, breakers,
// and the operating mode. It holds no per-request state and never
// fails: an unreachable dependency just drops that layer from
// consideration, and fallback is always available.
type Router struct {
	mode     config.Mode
	keywords *KeywordRegistry
	breakers *breaker.Breaker
	now      func() time.Time
}

// NewRouter creates a Router.
func NewRouter(mode config.Mode, keywords *KeywordRegistry, breakers *breaker.Breaker) *Router {
	return &Router{
		mode:     mode,
		keywords: keywords,
		breakers: breakers,
		now:      time.Now,
	}
}

// Keywords exposes the registry so the gateway can answer matched
// commands from the same table the router decided on.
func (r *Router) Keywords() *KeywordRegistry { return r.keywords }

// Route decides the serving layer for one request against a health
// snapshot and emits the audit record.
func (r *Router) Route(req Envelope, snapshot health.SystemSnapshot) Decision {
	text := req.Text
	entry, keywordMatched := r.keywords.Match(text)

	keyword := ""
	if keywordMatched {
		keyword = entry.Command
	}
	intent := DeriveIntent(text, keyword)
	escalation := DetectEscalation(text)
	brownout := r.mode == config.ModeBrownout
	priorityOverride := req.Priority == "high"

	layer := decision.LayerFallback
	reason := "no layer available"
	var keywordHit *string
	guard := CostGuard{OpenAIAllowed: false, Why: "not evaluated"}

	if keywordMatched {
		layer = decision.LayerKeyword
		reason = "exact keyword command"
		keywordHit = &entry.Command
		guard.Why = "keyword handled"
	} else {
		ollamaAvailable := snapshot.OllamaUp && r.breakers.CanAttempt("ollama")
		openaiAvailable := snapshot.OpenAIUp && r.breakers.CanAttempt("openai")

		openaiAllowed := escalation.Triggered
		openaiReason := "no triggers"
		if len(escalation.Reasons) > 0 {
			openaiReason = joinReasons(escalation.Reasons)
		}

		if brownout && !priorityOverride {
			if !escalation.Triggered {
				openaiAllowed = false
				openaiReason = "brownout denies non-trigger request"
			}
		} else if priorityOverride {
			openaiAllowed = true
			openaiReason = "priority override"
		}

		guard = CostGuard{OpenAIAllowed: openaiAllowed, Why: openaiReason}

		switch {
		case ollamaAvailable:
			if openaiAllowed && openaiAvailable && escalation.Triggered {
				layer = decision.LayerOpenAI
				reason = openaiReason
			} else {
				layer = decision.LayerOllama
				reason = "handled by ollama"
			}
		case openaiAvailable && (openaiAllowed || priorityOverride):
			layer = decision.LayerOpenAI
			reason = "ollama unavailable, openai escalation"
			guard = CostGuard{OpenAIAllowed: true, Why: reason}
		default:
			layer = decision.LayerFallback
			reason = "models unavailable"
			guard = CostGuard{OpenAIAllowed: false, Why: reason}
		}
	}

	confidence := 0.9
	if layer == decision.LayerFallback {
		confidence = 0.5
	}
	cost := 0.0
	if layer == decision.LayerOpenAI {
		cost = openAICostEstimate
	}

	checkedAt := snapshot.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = r.now()
	}

	record := decision.Record{
		RequestID:        req.RequestID,
		ReceivedAt:       r.now().UTC(),
		UserID:           req.UserID,
		Layer:            layer,
		Intent:           intent,
		Confidence:       confidence,
		Reason:           reason,
		KeywordHit:       keywordHit,
		OllamaOK:         snapshot.OllamaUp,
		OpenAIOK:         snapshot.OpenAIUp,
		EstimatedCostUSD: cost,
		HealthCheckedAt:  checkedAt.UTC(),
		BrownoutActive:   brownout,
		CircuitBreakers: map[string]string{
			"ollama": r.breakers.StateFor("ollama"),
			"openai": r.breakers.StateFor("openai"),
		},
	}

	return Decision{Record: record, CostGuard: guard, Escalation: escalation}
}

func joinReasons(reasons []string) string {
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += ", " + r
	}
	return out
}
