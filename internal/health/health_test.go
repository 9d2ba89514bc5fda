package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ziadkadry99/switchboard/internal/db"
)

func TestKeyKnownPairs(t *testing.T) {
	tests := []struct {
		provider, model, want string
	}{
		{"openai", "gpt-4o-mini", "openai_gpt4o_mini"},
		{"openai", "gpt-4o", "openai_gpt4o"},
		{"ollama", "llama3.2", "ollama_llama32"},
		{"groq", "llama-3.1-8b-instant", "groq_llama_8b"},
		{"groq", "llama-3.3-70b-versatile", "groq_llama_70b"},
		{"anthropic", "haiku", "haiku"},
		{"anthropic", "opus", "claude_opus"},
		{"moonshot", "kimi-2.5", "kimi_2_5"},
		{"moonshot", "moonshot-v1-auto", "moonshot_moonshot-v1-auto"},
		{"openai", "gpt-5", "openai_gpt-5"},
	}
	for _, tt := range tests {
		if got := Key(tt.provider, tt.model); got != tt.want {
			t.Errorf("Key(%q, %q) = %q, want %q", tt.provider, tt.model, got, tt.want)
		}
	}
}

func TestParseResetDuration(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		value string
		want  int
	}{
		{"", 60},
		{"30s", 30},
		{"0s", 1},
		{"1m30s", 90},
		{"6m0s", 360},
		{"2h", 7200},
		{"1h30m", 5400},
		{"59.9s", 59},
		{"45", 45},
		{"0.5", 1},
		{"garbage", 60},
		{"2024-06-01T12:02:00Z", 120},
		{"2024-06-01T11:00:00Z", 1},
		{"2024-06-01T12:00:30+00:00", 30},
		{"Tgarbage", 60},
	}
	for _, tt := range tests {
		if got := parseResetDuration(tt.value, now); got != tt.want {
			t.Errorf("parseResetDuration(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func openAIHeaders(reqRem, reqLim, tokRem, tokLim int, resetReq, resetTok string) http.Header {
	h := http.Header{}
	h.Set("x-ratelimit-remaining-requests", strconv.Itoa(reqRem))
	h.Set("x-ratelimit-limit-requests", strconv.Itoa(reqLim))
	h.Set("x-ratelimit-remaining-tokens", strconv.Itoa(tokRem))
	h.Set("x-ratelimit-limit-tokens", strconv.Itoa(tokLim))
	if resetReq != "" {
		h.Set("x-ratelimit-reset-requests", resetReq)
	}
	if resetTok != "" {
		h.Set("x-ratelimit-reset-tokens", resetTok)
	}
	return h
}

func TestUpdateFromHeadersStatusGrades(t *testing.T) {
	tests := []struct {
		name       string
		headers    http.Header
		wantStatus Status
	}{
		{"plenty of headroom", openAIHeaders(80, 100, 900, 1000, "1s", "1s"), StatusGreen},
		{"just above green line", openAIHeaders(21, 100, 1000, 1000, "1s", "1s"), StatusGreen},
		{"at green line", openAIHeaders(20, 100, 1000, 1000, "1s", "1s"), StatusYellow},
		{"yellow band", openAIHeaders(10, 100, 1000, 1000, "1s", "1s"), StatusYellow},
		{"at yellow line", openAIHeaders(5, 100, 1000, 1000, "1s", "1s"), StatusRed},
		{"nearly exhausted", openAIHeaders(3, 100, 1000, 1000, "1s", "1s"), StatusRed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker(nil, nil)
			tracker.UpdateFromHeaders("openai", "gpt-4o-mini", tt.headers)
			got, ok := tracker.HealthFor("openai_gpt4o_mini")
			if !ok {
				t.Fatal("expected a tracked record")
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestUpdateFromHeadersBottleneck(t *testing.T) {
	tracker := NewTracker(nil, nil)

	// Requests tighter than tokens.
	tracker.UpdateFromHeaders("openai", "gpt-4o-mini", openAIHeaders(5, 100, 900, 1000, "1s", "1s"))
	got, _ := tracker.HealthFor("openai_gpt4o_mini")
	if got.Bottleneck != "requests" {
		t.Errorf("bottleneck = %q, want requests", got.Bottleneck)
	}

	// Tokens tighter than requests.
	tracker.UpdateFromHeaders("openai", "gpt-4o-mini", openAIHeaders(90, 100, 50, 1000, "1s", "1s"))
	got, _ = tracker.HealthFor("openai_gpt4o_mini")
	if got.Bottleneck != "tokens" {
		t.Errorf("bottleneck = %q, want tokens", got.Bottleneck)
	}
}

func TestUpdateFromHeadersMissingLimitsMeansGreen(t *testing.T) {
	tracker := NewTracker(nil, nil)
	tracker.UpdateFromHeaders("openai", "gpt-4o-mini", http.Header{})
	got, ok := tracker.HealthFor("openai_gpt4o_mini")
	if !ok {
		t.Fatal("expected a tracked record")
	}
	if got.Status != StatusGreen {
		t.Errorf("status = %q, want green when no limits are reported", got.Status)
	}
	if got.RequestsPct != 100 || got.TokensPct != 100 {
		t.Errorf("pcts = %v/%v, want 100/100", got.RequestsPct, got.TokensPct)
	}
}

func TestUpdateFromHeadersAnthropicFamily(t *testing.T) {
	h := http.Header{}
	h.Set("anthropic-ratelimit-requests-remaining", "4")
	h.Set("anthropic-ratelimit-requests-limit", "100")
	h.Set("anthropic-ratelimit-tokens-remaining", "90000")
	h.Set("anthropic-ratelimit-tokens-limit", "100000")
	h.Set("anthropic-ratelimit-requests-reset", "2024-06-01T12:01:00Z")
	h.Set("anthropic-ratelimit-tokens-reset", "2024-06-01T12:00:30Z")

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(nil, nil)
	tracker.now = func() time.Time { return now }

	tracker.UpdateFromHeaders("anthropic", "haiku", h)
	got, ok := tracker.HealthFor("haiku")
	if !ok {
		t.Fatal("expected a tracked record")
	}
	if got.Status != StatusRed {
		t.Errorf("status = %q, want red at 4%% requests", got.Status)
	}
	if got.Bottleneck != "requests" {
		t.Errorf("bottleneck = %q, want requests", got.Bottleneck)
	}
	// The longer of the two reset horizons wins.
	if want := now.Add(60 * time.Second); !got.ResetAt.Equal(want) {
		t.Errorf("reset at %v, want %v", got.ResetAt, want)
	}
}

func TestUpdateFromHeadersUnknownProviderIgnored(t *testing.T) {
	tracker := NewTracker(nil, nil)
	tracker.UpdateFromHeaders("mystery", "model-x", openAIHeaders(1, 100, 1, 100, "1s", "1s"))
	if _, ok := tracker.HealthFor("mystery_model-x"); ok {
		t.Error("unknown provider should not create a record")
	}
	if !tracker.IsAvailable("mystery_model-x") {
		t.Error("untracked providers are available")
	}
}

func TestRecordRateLimited(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(nil, nil)
	tracker.now = func() time.Time { return now }

	tracker.RecordRateLimited("openai", "gpt-4o-mini", 90)

	if tracker.IsAvailable("openai_gpt4o_mini") {
		t.Error("rate limited provider should be unavailable")
	}
	if got := tracker.SecondsUntilAvailable("openai_gpt4o_mini"); got != 90 {
		t.Errorf("SecondsUntilAvailable = %d, want 90", got)
	}
	rec, _ := tracker.HealthFor("openai_gpt4o_mini")
	if rec.Bottleneck != "rate_limited_429" {
		t.Errorf("bottleneck = %q, want rate_limited_429", rec.Bottleneck)
	}
}

func TestRecordRateLimitedDefaultsHold(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(nil, nil)
	tracker.now = func() time.Time { return now }

	tracker.RecordRateLimited("openai", "gpt-4o", 0)
	if got := tracker.SecondsUntilAvailable("openai_gpt4o"); got != 60 {
		t.Errorf("SecondsUntilAvailable = %d, want default hold of 60", got)
	}
}

func TestRedPromotesToYellowAfterReset(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(nil, nil)
	tracker.now = func() time.Time { return now }

	tracker.RecordRateLimited("openai", "gpt-4o-mini", 30)
	if tracker.IsAvailable("openai_gpt4o_mini") {
		t.Fatal("should be red inside the hold window")
	}

	// Advance past the reset deadline.
	tracker.now = func() time.Time { return now.Add(31 * time.Second) }

	if !tracker.IsAvailable("openai_gpt4o_mini") {
		t.Error("provider should be available after the window passes")
	}
	rec, _ := tracker.HealthFor("openai_gpt4o_mini")
	if rec.Status != StatusYellow {
		t.Errorf("status = %q, want yellow after promotion", rec.Status)
	}
	if got := tracker.SecondsUntilAvailable("openai_gpt4o_mini"); got != 0 {
		t.Errorf("SecondsUntilAvailable = %d, want 0 once promoted", got)
	}
}

func TestStats(t *testing.T) {
	tracker := NewTracker(nil, nil)
	tracker.UpdateFromHeaders("openai", "gpt-4o-mini", openAIHeaders(80, 100, 900, 1000, "1s", "1s"))
	tracker.UpdateFromHeaders("openai", "gpt-4o", openAIHeaders(10, 100, 900, 1000, "1s", "1s"))
	tracker.RecordRateLimited("moonshot", "kimi-2.5", 60)

	stats := tracker.Stats()
	if stats.Tracked != 3 {
		t.Errorf("tracked = %d, want 3", stats.Tracked)
	}
	if stats.Green != 1 || stats.Yellow != 1 || stats.Red != 1 {
		t.Errorf("counts = %d/%d/%d, want 1 green, 1 yellow, 1 red",
			stats.Green, stats.Yellow, stats.Red)
	}
	kimi, ok := stats.Providers["kimi_2_5"]
	if !ok {
		t.Fatal("expected kimi_2_5 in stats")
	}
	if kimi.Status != StatusRed || kimi.SecondsUntilReset <= 0 {
		t.Errorf("unexpected kimi summary: %+v", kimi)
	}
}

func TestSnapshotPersistence(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	defer database.Close()

	store := NewSnapshotStore(database)
	tracker := NewTracker(store, nil)

	tracker.UpdateFromHeaders("openai", "gpt-4o-mini", openAIHeaders(80, 100, 900, 1000, "30s", "1m"))
	tracker.RecordRateLimited("openai", "gpt-4o-mini", 45)
	tracker.UpdateFromHeaders("moonshot", "kimi-2.5", openAIHeaders(50, 100, 500, 1000, "10s", "10s"))

	snaps, err := store.Recent("openai", 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 openai snapshots, got %d", len(snaps))
	}
	// Most recent first: the forced 429 came after the header update.
	if snaps[0].Status != StatusRed || snaps[0].Bottleneck != "rate_limited_429" {
		t.Errorf("latest snapshot should be the 429: %+v", snaps[0])
	}
	if snaps[0].TimeUntilReset != 45 {
		t.Errorf("time_until_reset = %d, want 45", snaps[0].TimeUntilReset)
	}
	if snaps[1].Status != StatusGreen {
		t.Errorf("older snapshot should be green: %+v", snaps[1])
	}

	moonshot, err := store.Recent("moonshot", 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(moonshot) != 1 {
		t.Errorf("expected 1 moonshot snapshot, got %d", len(moonshot))
	}
}

func TestTrackerNilStoreIsFine(t *testing.T) {
	tracker := NewTracker(nil, nil)
	tracker.UpdateFromHeaders("openai", "gpt-4o-mini", openAIHeaders(80, 100, 900, 1000, "1s", "1s"))
	tracker.RecordRateLimited("openai", "gpt-4o-mini", 10)
	// No panic is the assertion.
}

func TestMonitorCachesSnapshot(t *testing.T) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/version" {
			http.NotFound(w, r)
			return
		}
		probes.Add(1)
		w.Write([]byte(`{"version":"0.5.0"}`))
	}))
	defer srv.Close()

	tracker := NewTracker(nil, nil)
	tracker.RecordRateLimited("openai", "gpt-4o-mini", 60)

	monitor := NewMonitor(tracker, srv.URL, "openai_gpt4o_mini", "kimi_2_5", time.Minute)
	ctx := context.Background()

	first := monitor.Snapshot(ctx)
	second := monitor.Snapshot(ctx)

	if probes.Load() != 1 {
		t.Errorf("expected 1 probe within TTL, got %d", probes.Load())
	}
	if !first.OllamaUp || !second.OllamaUp {
		t.Error("ollama should be up")
	}
	if first.OpenAIUp {
		t.Error("openai should be down while rate limited")
	}
	if !first.BackupUp {
		t.Error("untracked backup should count as up")
	}
	if !first.CheckedAt.Equal(second.CheckedAt) {
		t.Error("cached snapshot should keep its checked_at")
	}

	monitor.Invalidate()
	monitor.Snapshot(ctx)
	if probes.Load() != 2 {
		t.Errorf("expected a fresh probe after Invalidate, got %d", probes.Load())
	}
}

func TestMonitorOllamaDown(t *testing.T) {
	tracker := NewTracker(nil, nil)
	monitor := NewMonitor(tracker, "http://127.0.0.1:1", "openai_gpt4o_mini", "", time.Minute)

	snap := monitor.Snapshot(context.Background())
	if snap.OllamaUp {
		t.Error("unreachable daemon should report down")
	}
	if !snap.OpenAIUp {
		t.Error("untracked openai should count as up")
	}
	if snap.BackupUp {
		t.Error("no backup configured should report false")
	}
}

func TestMonitorCloudProbeGatesOpenAI(t *testing.T) {
	tracker := NewTracker(nil, nil)
	monitor := NewMonitor(tracker, "http://127.0.0.1:1", "openai_gpt4o_mini", "", time.Minute)

	// Hard outage: no headers, no 429s, so the tracker stays green.
	// Only the active probe can see it.
	var probes atomic.Int32
	monitor.SetCloudProbe(func(ctx context.Context) bool {
		probes.Add(1)
		return false
	})

	snap := monitor.Snapshot(context.Background())
	if snap.OpenAIUp {
		t.Error("failing cloud probe should report openai down despite a green tracker")
	}
	if probes.Load() != 1 {
		t.Errorf("expected 1 probe call, got %d", probes.Load())
	}

	monitor.Invalidate()
	monitor.SetCloudProbe(func(ctx context.Context) bool {
		probes.Add(1)
		return true
	})
	if snap := monitor.Snapshot(context.Background()); !snap.OpenAIUp {
		t.Error("passing probe with a green tracker should report openai up")
	}
}

func TestMonitorCloudProbeSkippedWhenRateLimited(t *testing.T) {
	tracker := NewTracker(nil, nil)
	tracker.RecordRateLimited("openai", "gpt-4o-mini", 60)

	monitor := NewMonitor(tracker, "http://127.0.0.1:1", "openai_gpt4o_mini", "", time.Minute)
	var probes atomic.Int32
	monitor.SetCloudProbe(func(ctx context.Context) bool {
		probes.Add(1)
		return true
	})

	snap := monitor.Snapshot(context.Background())
	if snap.OpenAIUp {
		t.Error("rate-limited provider should report down regardless of the probe")
	}
	if probes.Load() != 0 {
		t.Errorf("probe should not run against a rate-limited provider, got %d calls", probes.Load())
	}
}

func TestMonitorCachedReadsNotBlockedByRefresh(t *testing.T) {
	tracker := NewTracker(nil, nil)
	monitor := NewMonitor(tracker, "http://127.0.0.1:1", "openai_gpt4o_mini", "", time.Minute)

	snap := SystemSnapshot{CheckedAt: time.Now(), OllamaUp: true, OpenAIUp: true}
	monitor.mu.Lock()
	monitor.last = &snap
	monitor.lastAt = time.Now()
	monitor.mu.Unlock()

	// Simulate a slow probe in flight: the refresh lock is held, but a
	// fresh cached snapshot must still be readable.
	monitor.refreshMu.Lock()
	defer monitor.refreshMu.Unlock()

	done := make(chan SystemSnapshot, 1)
	go func() { done <- monitor.Snapshot(context.Background()) }()

	select {
	case got := <-done:
		if !got.OllamaUp {
			t.Error("expected the cached snapshot")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cached snapshot read blocked behind an in-flight refresh")
	}
}
