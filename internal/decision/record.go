// Package decision defines the audit record emitted for every routed
// request and the store that persists it. Records are validated before
// they are written: a decision log with malformed rows is worse than a
// request that failed loudly.
package decision

import (
	"fmt"
	"time"
)

// Layer names the path that served a request.
type Layer string

const (
	LayerKeyword  Layer = "keyword"
	LayerOllama   Layer = "ollama"
	LayerOpenAI   Layer = "openai"
	LayerFallback Layer = "fallback"
)

// validLayers is the closed set accepted by Validate.
var validLayers = map[Layer]bool{
	LayerKeyword:  true,
	LayerOllama:   true,
	LayerOpenAI:   true,
	LayerFallback: true,
}

// validIntents is the audit-label vocabulary. This is the router's
// coarse intent deriver, not the classifier's richer intent set.
var validIntents = map[string]bool{
	"status":         true,
	"howto":          true,
	"trivial":        true,
	"unknown":        true,
	"code_debug":     true,
	"code_review":    true,
	"feature_design": true,
	"architecture":   true,
	"security":       true,
}

// Record is one immutable audit entry per routed request.
type Record struct {
	ID                string             `json:"id,omitempty"`
	RequestID         string             `json:"request_id"`
	ReceivedAt        time.Time          `json:"received_at"`
	UserID            string             `json:"user_id"`
	Layer             Layer              `json:"layer"`
	Intent            string             `json:"intent"`
	Confidence        float64            `json:"confidence"`
	Reason            string             `json:"reason"`
	KeywordHit        *string            `json:"keyword_hit"`
	OllamaOK          bool               `json:"ollama_ok"`
	OpenAIOK          bool               `json:"openai_ok"`
	LatencyMSTotal    float64            `json:"latency_ms_total"`
	LatencyMSPerLayer map[string]float64 `json:"latency_ms_per_layer,omitempty"`
	EstimatedCostUSD  float64            `json:"estimated_cost_usd"`
	HealthCheckedAt   time.Time          `json:"health_checked_at"`
	BrownoutActive    bool               `json:"brownout_active"`
	CircuitBreakers   map[string]string  `json:"circuit_breakers,omitempty"`
}

// Validate checks the record against the decision log schema. Invalid
// records must be rejected by callers, never silently logged.
func (r Record) Validate() error {
	if r.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}
	if r.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if r.ReceivedAt.IsZero() {
		return fmt.Errorf("received_at is required")
	}
	if r.HealthCheckedAt.IsZero() {
		return fmt.Errorf("health_checked_at is required")
	}
	if !validLayers[r.Layer] {
		return fmt.Errorf("invalid layer %q: must be one of keyword, ollama, openai, fallback", r.Layer)
	}
	if !validIntents[r.Intent] {
		return fmt.Errorf("invalid intent %q", r.Intent)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range [0, 1]", r.Confidence)
	}
	if r.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	if r.LatencyMSTotal < 0 {
		return fmt.Errorf("latency_ms_total must be non-negative")
	}
	for layer, ms := range r.LatencyMSPerLayer {
		if ms < 0 {
			return fmt.Errorf("latency_ms_per_layer[%s] must be non-negative", layer)
		}
	}
	if r.EstimatedCostUSD < 0 {
		return fmt.Errorf("estimated_cost_usd must be non-negative")
	}
	return nil
}
