package health

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"
)

// SystemSnapshot is a point-in-time view of every dispatch dependency.
type SystemSnapshot struct {
	CheckedAt time.Time `json:"checked_at"`
	OllamaUp  bool      `json:"ollama_up"`
	OpenAIUp  bool      `json:"openai_up"`
	BackupUp  bool      `json:"backup_up"`
	Providers Stats     `json:"providers"`
}

// CloudProbe reports whether the cloud backend currently answers. The
// production probe issues a one-token completion.
type CloudProbe func(ctx context.Context) bool

// Monitor answers "what is up right now" without probing on every
// request: snapshots are cached for a short TTL so a burst of routing
// decisions shares one probe.
type Monitor struct {
	tracker    *Tracker
	ollamaURL  string
	openaiKey  string
	backupKey  string
	ttl        time.Duration
	client     *http.Client
	cloudProbe CloudProbe

	// mu guards the cached snapshot only; refreshMu serializes the
	// network probes so a slow dependency never blocks cached reads.
	mu        sync.Mutex
	refreshMu sync.Mutex
	last      *SystemSnapshot
	lastAt    time.Time
	now       func() time.Time
}

// NewMonitor creates a Monitor. openaiKey and backupKey are tracking
// keys as produced by Key; backupKey may be empty when no backup cloud
// is configured. ttl <= 0 selects the 8 second default.
func NewMonitor(tracker *Tracker, ollamaURL, openaiKey, backupKey string, ttl time.Duration) *Monitor {
	if ttl <= 0 {
		ttl = 8 * time.Second
	}
	return &Monitor{
		tracker:   tracker,
		ollamaURL: ollamaURL,
		openaiKey: openaiKey,
		backupKey: backupKey,
		ttl:       ttl,
		client:    &http.Client{},
		now:       time.Now,
	}
}

// SetCloudProbe installs an active cloud liveness check, consulted on
// refresh when the tracker still reports the cloud available. Without
// one the tracker's rate-limit view is the only signal, which cannot
// see a hard outage that produces no headers and no 429s. Call during
// wiring, before the first Snapshot.
func (m *Monitor) SetCloudProbe(probe CloudProbe) {
	m.cloudProbe = probe
}

// Snapshot returns the current dependency view, probing at most once
// per TTL window.
func (m *Monitor) Snapshot(ctx context.Context) SystemSnapshot {
	if snap, ok := m.cached(); ok {
		return snap
	}

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()
	// Another caller may have refreshed while we waited for the lock.
	if snap, ok := m.cached(); ok {
		return snap
	}

	now := m.now()
	snap := SystemSnapshot{
		CheckedAt: now,
		OllamaUp:  m.probeOllama(ctx),
		OpenAIUp:  m.tracker.IsAvailable(m.openaiKey),
		Providers: m.tracker.Stats(),
	}
	if snap.OpenAIUp && m.cloudProbe != nil {
		snap.OpenAIUp = m.cloudProbe(ctx)
	}
	if m.backupKey != "" {
		snap.BackupUp = m.tracker.IsAvailable(m.backupKey)
	}

	m.mu.Lock()
	m.last = &snap
	m.lastAt = now
	m.mu.Unlock()
	return snap
}

func (m *Monitor) cached() (SystemSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last != nil && m.now().Sub(m.lastAt) < m.ttl {
		return *m.last, true
	}
	return SystemSnapshot{}, false
}

// Invalidate drops the cached snapshot so the next call probes fresh.
func (m *Monitor) Invalidate() {
	m.mu.Lock()
	m.last = nil
	m.mu.Unlock()
}

func (m *Monitor) probeOllama(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.ollamaURL+"/api/version", nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}
