package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// intentTTLs maps intents to cache lifetimes in seconds. A zero entry
// means the intent's answers depend on live conversation state and
// must never be cached.
var intentTTLs = map[string]int{
	// Answers that go stale as soon as the world moves.
	"status_check": 60,
	"health_check": 60,
	"uptime":       60,

	// Documentation-shaped answers.
	"how_to":    3600,
	"reference": 3600,
	"command":   3600,

	// Pleasantries barely change.
	"trivial":  86400,
	"greeting": 86400,

	// Conversational work is never cacheable.
	"code_review":  0,
	"debugging":    0,
	"error_fix":    0,
	"feature_work": 0,
	"task":         0,

	"unknown": 3600,
}

// defaultTTL covers intents the table doesn't list.
const defaultTTL = 3600

// TTLFor returns the cache lifetime for an intent and whether the
// intent is cacheable at all.
func TTLFor(intent string) (int, bool) {
	ttl, ok := intentTTLs[intent]
	if !ok {
		return defaultTTL, true
	}
	if ttl == 0 {
		return 0, false
	}
	return ttl, true
}

// EntryKey derives the deterministic cache key for an intent within a
// project at a given repository state. An empty project scopes the
// entry globally.
func EntryKey(intent, project, stateSignature string) string {
	if project == "" {
		project = "global"
	}
	sum := sha256.Sum256([]byte(intent + ":" + project + ":" + stateSignature))
	return hex.EncodeToString(sum[:])[:12]
}
