// Package breaker holds a minimal circuit breaker for dispatch
// dependencies. It answers one question — should we even try this
// backend right now — and is deliberately dumber than the health
// tracker: no half-open probing, just a failure count and a cooldown.
package breaker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ziadkadry99/switchboard/internal/metrics"
)

// State is a point-in-time copy of one dependency's breaker state.
type State struct {
	Failures     int       `json:"failures"`
	TrippedUntil time.Time `json:"tripped_until"`
	LastError    string    `json:"last_error"`
}

// Tripped reports whether the trip window is still open at now.
func (s State) Tripped(now time.Time) bool {
	return now.Before(s.TrippedUntil)
}

// Breaker tracks consecutive failures per dependency and trips a
// cooldown window once a threshold is crossed.
type Breaker struct {
	mu     sync.Mutex
	states map[string]*State
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Breaker.
func New(logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Breaker{
		states: make(map[string]*State),
		logger: logger,
		now:    time.Now,
	}
}

// CanAttempt reports whether the dependency is outside any trip window.
// Unknown dependencies can always be attempted.
func (b *Breaker) CanAttempt(dep string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.states[dep]
	return !ok || !s.Tripped(b.now())
}

// RecordFailure counts one failure against dep and remembers the error.
// Crossing maxFailures trips the breaker for cooldown and resets the
// counter, so recovery after the window gets a full allowance again.
func (b *Breaker) RecordFailure(dep string, cooldown time.Duration, maxFailures int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.states[dep]
	if !ok {
		s = &State{}
		b.states[dep] = s
	}
	s.Failures++
	if err != nil {
		s.LastError = err.Error()
	}
	if s.Failures < maxFailures {
		b.logger.Debug("dependency failure",
			"dependency", dep, "failures", s.Failures, "threshold", maxFailures, "error", err)
		return
	}

	s.TrippedUntil = b.now().Add(cooldown)
	s.Failures = 0
	metrics.BreakerTripsTotal.WithLabelValues(dep).Inc()
	b.logger.Warn("circuit breaker tripped",
		"dependency", dep, "cooldown", cooldown.String(), "error", err)
}

// RecordSuccess clears all failure state for dep.
func (b *Breaker) RecordSuccess(dep string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, dep)
}

// State returns a copy of the dependency's state. Unknown dependencies
// yield the zero State.
func (b *Breaker) State(dep string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.states[dep]; ok {
		return *s
	}
	return State{}
}

// StateFor renders the dependency's breaker state for decision records.
func (b *Breaker) StateFor(dep string) string {
	if b.CanAttempt(dep) {
		return "ok"
	}
	return "tripped"
}
