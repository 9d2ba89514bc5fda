package health

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ziadkadry99/switchboard/internal/metrics"
)

// Status grades how much rate-limit headroom a provider has left.
type Status string

const (
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
)

// ProviderHealth is the tracked rate-limit posture for one provider+model.
type ProviderHealth struct {
	Status            Status    `json:"status"`
	RequestsRemaining int       `json:"requests_remaining"`
	RequestsLimit     int       `json:"requests_limit"`
	TokensRemaining   int       `json:"tokens_remaining"`
	TokensLimit       int       `json:"tokens_limit"`
	RequestsPct       float64   `json:"requests_pct"`
	TokensPct         float64   `json:"tokens_pct"`
	Bottleneck        string    `json:"bottleneck,omitempty"`
	ResetAt           time.Time `json:"reset_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// headerFamily names the response headers a provider uses to report
// its rate-limit budget.
type headerFamily struct {
	requestsRemaining string
	requestsLimit     string
	tokensRemaining   string
	tokensLimit       string
	requestsReset     string
	tokensReset       string
}

var openAIFamily = headerFamily{
	requestsRemaining: "x-ratelimit-remaining-requests",
	requestsLimit:     "x-ratelimit-limit-requests",
	tokensRemaining:   "x-ratelimit-remaining-tokens",
	tokensLimit:       "x-ratelimit-limit-tokens",
	requestsReset:     "x-ratelimit-reset-requests",
	tokensReset:       "x-ratelimit-reset-tokens",
}

var anthropicFamily = headerFamily{
	requestsRemaining: "anthropic-ratelimit-requests-remaining",
	requestsLimit:     "anthropic-ratelimit-requests-limit",
	tokensRemaining:   "anthropic-ratelimit-tokens-remaining",
	tokensLimit:       "anthropic-ratelimit-tokens-limit",
	requestsReset:     "anthropic-ratelimit-requests-reset",
	tokensReset:       "anthropic-ratelimit-tokens-reset",
}

// headerFamilies maps provider names to their header scheme. Groq and
// Moonshot copy OpenAI's headers verbatim.
var headerFamilies = map[string]headerFamily{
	"openai":    openAIFamily,
	"groq":      openAIFamily,
	"moonshot":  openAIFamily,
	"anthropic": anthropicFamily,
}

// Tracker keeps per-provider rate-limit health derived from response
// headers. Providers it has never heard from count as green: the
// tracker only withholds a backend once there is evidence against it.
type Tracker struct {
	mu      sync.Mutex
	records map[string]*ProviderHealth
	store   *SnapshotStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewTracker creates a Tracker. store may be nil, in which case
// snapshots are not persisted.
func NewTracker(store *SnapshotStore, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		records: make(map[string]*ProviderHealth),
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
}

// UpdateFromHeaders ingests the rate-limit headers of a successful
// response. Providers with no known header family are ignored.
func (t *Tracker) UpdateFromHeaders(provider, model string, headers http.Header) {
	family, ok := headerFamilies[provider]
	if !ok {
		return
	}
	now := t.now()

	requestsRemaining := headerInt(headers, family.requestsRemaining)
	requestsLimit := headerInt(headers, family.requestsLimit)
	tokensRemaining := headerInt(headers, family.tokensRemaining)
	tokensLimit := headerInt(headers, family.tokensLimit)

	reqPct := 100.0
	if requestsLimit > 0 {
		reqPct = float64(requestsRemaining) / float64(requestsLimit) * 100
	}
	tokPct := 100.0
	if tokensLimit > 0 {
		tokPct = float64(tokensRemaining) / float64(tokensLimit) * 100
	}

	minPct := reqPct
	if tokPct < minPct {
		minPct = tokPct
	}
	status := StatusRed
	switch {
	case minPct > 20:
		status = StatusGreen
	case minPct > 5:
		status = StatusYellow
	}

	bottleneck := "tokens"
	if reqPct < tokPct {
		bottleneck = "requests"
	}

	resetReq := parseResetDuration(headers.Get(family.requestsReset), now)
	resetTok := parseResetDuration(headers.Get(family.tokensReset), now)
	resetSec := resetReq
	if resetTok > resetSec {
		resetSec = resetTok
	}

	record := &ProviderHealth{
		Status:            status,
		RequestsRemaining: requestsRemaining,
		RequestsLimit:     requestsLimit,
		TokensRemaining:   tokensRemaining,
		TokensLimit:       tokensLimit,
		RequestsPct:       reqPct,
		TokensPct:         tokPct,
		Bottleneck:        bottleneck,
		ResetAt:           now.Add(time.Duration(resetSec) * time.Second),
		UpdatedAt:         now,
	}

	key := Key(provider, model)
	t.mu.Lock()
	t.records[key] = record
	t.mu.Unlock()
	metrics.SetProviderHealth(key, string(status))

	if status != StatusGreen {
		t.logger.Warn("provider rate limit headroom low",
			"provider", key, "status", string(status),
			"requests_pct", reqPct, "tokens_pct", tokPct, "bottleneck", bottleneck)
	}

	t.persist(provider, model, record)
}

// RecordRateLimited forces a provider red after an explicit 429.
// retryAfterSec <= 0 falls back to a one minute hold.
func (t *Tracker) RecordRateLimited(provider, model string, retryAfterSec int) {
	if retryAfterSec <= 0 {
		retryAfterSec = 60
	}
	now := t.now()
	record := &ProviderHealth{
		Status:     StatusRed,
		Bottleneck: "rate_limited_429",
		ResetAt:    now.Add(time.Duration(retryAfterSec) * time.Second),
		UpdatedAt:  now,
	}

	key := Key(provider, model)
	t.mu.Lock()
	t.records[key] = record
	t.mu.Unlock()
	metrics.RateLimitHitsTotal.WithLabelValues(key).Inc()
	metrics.SetProviderHealth(key, string(StatusRed))

	t.logger.Warn("provider rate limited",
		"provider", key, "retry_after_sec", retryAfterSec)

	t.persist(provider, model, record)
}

// get returns the live record for key, promoting an expired red to
// yellow first. Callers must hold t.mu.
func (t *Tracker) get(key string) *ProviderHealth {
	record, ok := t.records[key]
	if !ok {
		return nil
	}
	if record.Status == StatusRed && !t.now().Before(record.ResetAt) {
		record.Status = StatusYellow
		metrics.SetProviderHealth(key, string(StatusYellow))
		t.logger.Info("rate limit window passed, promoting to yellow", "provider", key)
	}
	return record
}

// IsAvailable reports whether the provider can take traffic. Untracked
// providers are available.
func (t *Tracker) IsAvailable(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	record := t.get(key)
	return record == nil || record.Status != StatusRed
}

// SecondsUntilAvailable returns how long until a red provider's window
// resets. Zero for anything not red.
func (t *Tracker) SecondsUntilAvailable(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	record := t.get(key)
	if record == nil || record.Status != StatusRed {
		return 0
	}
	secs := int(record.ResetAt.Sub(t.now()).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}

// HealthFor returns a copy of the tracked record for key.
func (t *Tracker) HealthFor(key string) (ProviderHealth, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	record := t.get(key)
	if record == nil {
		return ProviderHealth{}, false
	}
	return *record, true
}

// ProviderStatus is the per-key summary inside Stats.
type ProviderStatus struct {
	Status            Status  `json:"status"`
	RequestsPct       float64 `json:"requests_pct"`
	TokensPct         float64 `json:"tokens_pct"`
	Bottleneck        string  `json:"bottleneck,omitempty"`
	SecondsUntilReset int     `json:"seconds_until_reset"`
}

// Stats summarizes every tracked provider.
type Stats struct {
	Tracked   int                       `json:"tracked"`
	Green     int                       `json:"green"`
	Yellow    int                       `json:"yellow"`
	Red       int                       `json:"red"`
	Providers map[string]ProviderStatus `json:"providers"`
}

// Stats returns a point-in-time summary of every tracked provider.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := Stats{Providers: make(map[string]ProviderStatus, len(t.records))}
	for key := range t.records {
		record := t.get(key)
		stats.Tracked++
		switch record.Status {
		case StatusGreen:
			stats.Green++
		case StatusYellow:
			stats.Yellow++
		case StatusRed:
			stats.Red++
		}

		secs := 0
		if record.Status == StatusRed {
			if until := int(record.ResetAt.Sub(t.now()).Seconds()); until > 0 {
				secs = until
			}
		}
		stats.Providers[key] = ProviderStatus{
			Status:            record.Status,
			RequestsPct:       record.RequestsPct,
			TokensPct:         record.TokensPct,
			Bottleneck:        record.Bottleneck,
			SecondsUntilReset: secs,
		}
	}
	return stats
}

// persist saves a snapshot best-effort; tracking never fails because
// the database did.
func (t *Tracker) persist(provider, model string, record *ProviderHealth) {
	if t.store == nil {
		return
	}
	snap := Snapshot{
		Timestamp:         record.UpdatedAt,
		Provider:          provider,
		Model:             model,
		Status:            record.Status,
		RequestsRemaining: record.RequestsRemaining,
		RequestsLimit:     record.RequestsLimit,
		TokensRemaining:   record.TokensRemaining,
		TokensLimit:       record.TokensLimit,
		TimeUntilReset:    int(record.ResetAt.Sub(record.UpdatedAt).Seconds()),
		Bottleneck:        record.Bottleneck,
	}
	if err := t.store.Save(snap); err != nil {
		t.logger.Warn("failed to persist rate limit snapshot", "provider", provider, "error", err)
	}
}

func headerInt(headers http.Header, name string) int {
	n, err := strconv.Atoi(headers.Get(name))
	if err != nil {
		return 0
	}
	return n
}
