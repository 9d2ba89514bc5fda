package classify

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ziadkadry99/switchboard/internal/health"
	"github.com/ziadkadry99/switchboard/internal/llm"
)

// scriptedProvider answers every Complete call with a fixed response
// or error and counts invocations.
type scriptedProvider struct {
	name  string
	reply string
	err   error
	calls int
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Content: p.reply, Headers: http.Header{}}, nil
}

type scriptedLocal struct {
	scriptedProvider
	alive bool
}

func (p *scriptedLocal) Alive(ctx context.Context) bool { return p.alive }

// neutralMessage avoids every intent keyword so tests reach the model
// phases.
const neutralMessage = "describe quantum entanglement in detail please"

func newTestClassifier(local *scriptedLocal, primary, backup *scriptedProvider) (*Classifier, *health.Tracker) {
	tracker := health.NewTracker(nil, nil)
	var primaryBackend, backupBackend CloudBackend
	if primary != nil {
		primaryBackend = CloudBackend{Provider: primary, Model: "gpt-4o-mini"}
	}
	if backup != nil {
		backupBackend = CloudBackend{Provider: backup, Model: "moonshot-v1-auto"}
	}
	var localModel LocalModel
	if local != nil {
		localModel = local
	}
	return New(localModel, "llama3.2", primaryBackend, backupBackend, tracker, nil), tracker
}

func TestKeywordPhaseWinsInstantly(t *testing.T) {
	local := &scriptedLocal{alive: true}
	classifier, _ := newTestClassifier(local, nil, nil)

	got := classifier.Classify(context.Background(), "What's the status of the deployment?")
	if got.Intent != IntentStatusCheck {
		t.Errorf("intent = %s, want status_check", got.Intent)
	}
	if got.Method != "keyword" || got.Confidence != 0.95 {
		t.Errorf("method/confidence = %s/%v", got.Method, got.Confidence)
	}
	if !got.Cacheable || got.TTL != 60 {
		t.Errorf("cache policy = %v/%d, want cacheable with 60s TTL", got.Cacheable, got.TTL)
	}
	if local.calls != 0 {
		t.Errorf("keyword hit must not call any model, got %d calls", local.calls)
	}
}

func TestLocalPhaseTrustedForCheapIntents(t *testing.T) {
	local := &scriptedLocal{scriptedProvider: scriptedProvider{name: "ollama", reply: "how_to"}, alive: true}
	primary := &scriptedProvider{name: "openai", reply: "how_to"}
	classifier, _ := newTestClassifier(local, primary, nil)

	got := classifier.Classify(context.Background(), neutralMessage)
	if got.Intent != IntentHowTo || got.Method != "ollama" {
		t.Errorf("got %s via %s, want how_to via ollama", got.Intent, got.Method)
	}
	if got.Confidence != 0.80 {
		t.Errorf("confidence = %v, want 0.80", got.Confidence)
	}
	if primary.calls != 0 {
		t.Error("cheap intents must not escalate to the cloud")
	}
}

func TestQualityIntentReclassifiedByCloud(t *testing.T) {
	local := &scriptedLocal{scriptedProvider: scriptedProvider{name: "ollama", reply: "debugging"}, alive: true}
	primary := &scriptedProvider{name: "openai", reply: "feature_work"}
	classifier, _ := newTestClassifier(local, primary, nil)

	got := classifier.Classify(context.Background(), neutralMessage)
	if got.Intent != IntentFeatureWork || got.Method != "openai" {
		t.Errorf("got %s via %s, want feature_work via openai (cloud second opinion)", got.Intent, got.Method)
	}
	if got.Confidence != 0.90 {
		t.Errorf("confidence = %v, want 0.90", got.Confidence)
	}
	if got.Cacheable {
		t.Error("feature_work must not be cacheable")
	}
}

func TestQualityIntentKeptWhenCloudHasNothing(t *testing.T) {
	local := &scriptedLocal{scriptedProvider: scriptedProvider{name: "ollama", reply: "code_review"}, alive: true}
	primary := &scriptedProvider{name: "openai", err: errors.New("boom")}
	classifier, _ := newTestClassifier(local, primary, nil)

	got := classifier.Classify(context.Background(), neutralMessage)
	if got.Intent != IntentCodeReview || got.Method != "ollama" {
		t.Errorf("got %s via %s, want the local answer kept", got.Intent, got.Method)
	}
}

func TestOutOfVocabularyIsANonResult(t *testing.T) {
	local := &scriptedLocal{scriptedProvider: scriptedProvider{name: "ollama", reply: "sandwich_order"}, alive: true}
	primary := &scriptedProvider{name: "openai", reply: "HOW_TO \n"}
	classifier, _ := newTestClassifier(local, primary, nil)

	// Local answered garbage; the cloud's answer (normalized) stands.
	got := classifier.Classify(context.Background(), neutralMessage)
	if got.Intent != IntentHowTo || got.Method != "openai" {
		t.Errorf("got %s via %s, want how_to via openai", got.Intent, got.Method)
	}
}

func TestDeadLocalSkipsToCloud(t *testing.T) {
	local := &scriptedLocal{scriptedProvider: scriptedProvider{name: "ollama", reply: "how_to"}, alive: false}
	primary := &scriptedProvider{name: "openai", reply: "status_check"}
	classifier, _ := newTestClassifier(local, primary, nil)

	got := classifier.Classify(context.Background(), neutralMessage)
	if got.Intent != IntentStatusCheck || got.Method != "openai" {
		t.Errorf("got %s via %s, want status_check via openai", got.Intent, got.Method)
	}
	if local.calls != 0 {
		t.Error("dead local model must not be called")
	}
}

func TestRateLimitedPrimaryFallsToBackup(t *testing.T) {
	local := &scriptedLocal{alive: false}
	primary := &scriptedProvider{name: "openai", err: &llm.RateLimitError{Provider: "openai", RetryAfter: 90}}
	backup := &scriptedProvider{name: "moonshot", reply: "how_to"}
	classifier, tracker := newTestClassifier(local, primary, backup)

	got := classifier.Classify(context.Background(), neutralMessage)
	if got.Intent != IntentHowTo || got.Method != "openai" {
		t.Errorf("got %s via %s, want how_to via the backup cloud", got.Intent, got.Method)
	}

	// The 429 must have force-redded the primary.
	if tracker.IsAvailable("openai_gpt4o_mini") {
		t.Error("primary should be red after the 429")
	}

	// A second call skips the primary outright.
	primary.calls = 0
	classifier.Classify(context.Background(), neutralMessage)
	if primary.calls != 0 {
		t.Errorf("red primary was still called %d times", primary.calls)
	}
}

func TestFallbackPhaseRules(t *testing.T) {
	classifier, _ := newTestClassifier(nil, nil, nil)

	short := classifier.fallbackPhase("zzz qqq")
	if short.Intent != IntentTrivial || short.Confidence != 0.5 || !short.Cacheable {
		t.Errorf("short message fallback = %+v", short)
	}

	errorish := classifier.fallbackPhase("aaa bbb ccc ddd something broken here")
	if errorish.Intent != IntentDebugging || errorish.Confidence != 0.6 {
		t.Errorf("error-word fallback = %+v", errorish)
	}

	unknown := classifier.fallbackPhase("one two three four five six seven")
	if unknown.Intent != IntentUnknown || unknown.Confidence != 0 {
		t.Errorf("unknown fallback = %+v", unknown)
	}
	if unknown.Method != "fallback" {
		t.Errorf("method = %s, want fallback", unknown.Method)
	}
}

func TestEverythingFailedReachesFallback(t *testing.T) {
	local := &scriptedLocal{scriptedProvider: scriptedProvider{name: "ollama", err: errors.New("connection refused")}, alive: true}
	primary := &scriptedProvider{name: "openai", err: errors.New("timeout")}
	backup := &scriptedProvider{name: "moonshot", err: errors.New("timeout")}
	classifier, _ := newTestClassifier(local, primary, backup)

	got := classifier.Classify(context.Background(), neutralMessage)
	if got.Method != "fallback" {
		t.Errorf("method = %s, want fallback when every phase fails", got.Method)
	}
}

func TestStatsReportsConfiguration(t *testing.T) {
	local := &scriptedLocal{alive: true}
	primary := &scriptedProvider{name: "openai"}
	classifier, tracker := newTestClassifier(local, primary, nil)
	tracker.RecordRateLimited("openai", "gpt-4o-mini", 60)

	stats := classifier.Stats(context.Background())
	if !stats.LocalAlive || stats.LocalModel != "llama3.2" {
		t.Errorf("local stats = %+v", stats)
	}
	if stats.PrimaryHealthy {
		t.Error("rate limited primary should report unhealthy")
	}
	if stats.BackupModel != "" {
		t.Error("unconfigured backup should be empty")
	}
}
