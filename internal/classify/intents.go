package classify

// Intent is a classified message category.
type Intent string

const (
	IntentStatusCheck Intent = "status_check"
	IntentHowTo       Intent = "how_to"
	IntentCodeReview  Intent = "code_review"
	IntentDebugging   Intent = "debugging"
	IntentFeatureWork Intent = "feature_work"
	IntentTrivial     Intent = "trivial"
	IntentUnknown     Intent = "unknown"
)

// intentConfig couples an intent with its keyword triggers and cache
// policy. TTL 0 means the intent's answers are not cacheable.
type intentConfig struct {
	intent    Intent
	keywords  []string
	cacheable bool
	ttl       int
}

// intentConfigs is ordered: keyword matching scans top to bottom and
// the first hit wins, so earlier intents shadow later ones.
var intentConfigs = []intentConfig{
	{
		intent: IntentStatusCheck,
		keywords: []string{
			"status", "running", "health", "uptime", "working",
			"how is", "is the", "health check", "alive",
		},
		cacheable: true,
		ttl:       60,
	},
	{
		intent: IntentHowTo,
		keywords: []string{
			"how do i", "how to", "what's the command", "how can i",
			"guide", "tutorial", "documentation", "help with",
		},
		cacheable: true,
		ttl:       3600,
	},
	{
		intent: IntentCodeReview,
		keywords: []string{
			"review", "check this", "look at", "pull request", "pr",
			"code review", "audit", "feedback on code",
		},
	},
	{
		intent: IntentDebugging,
		keywords: []string{
			"error", "broken", "fix", "debug", "why", "not working",
			"issue", "bug", "failed", "crash", "exception",
		},
	},
	{
		intent: IntentFeatureWork,
		keywords: []string{
			"build", "add", "create", "implement", "develop",
			"new feature", "task", "epic", "story",
		},
	},
	{
		intent: IntentTrivial,
		keywords: []string{
			"thanks", "thank you", "ok", "cool", "nice", "good job",
			"got it", "understood", "acknowledged",
		},
		cacheable: true,
		ttl:       86400,
	},
	{
		intent: IntentUnknown,
	},
}

// configByIntent indexes intentConfigs for label lookups.
var configByIntent = func() map[Intent]intentConfig {
	m := make(map[Intent]intentConfig, len(intentConfigs))
	for _, cfg := range intentConfigs {
		m[cfg.intent] = cfg
	}
	return m
}()

// needsCloudQuality marks intents the local model is allowed to
// suggest but not to decide: real work gets a second opinion.
var needsCloudQuality = map[Intent]bool{
	IntentCodeReview:  true,
	IntentDebugging:   true,
	IntentFeatureWork: true,
}

// classificationPrompt is shared by the local and cloud passes. The
// closed vocabulary makes label parsing trivial.
const classificationPrompt = `You are a message classifier. Classify this message into ONE category ONLY.

Categories and examples:
- status_check: "What's the status?" "Is it running?" "Health check?" "Uptime?" "How is X?"
- how_to: "How do I run tests?" "What's the command?" "Guide to X?" "Documentation?"
- code_review: "Review my code" "Check this PR" "Feedback on this"
- debugging: "Fix this error" "Why is it broken?" "Debug this issue"
- feature_work: "Build X feature" "Add Y" "Implement Z" "Task: do X"
- trivial: "Thanks!" "Got it" "Cool" "Nice job"
- unknown: Doesn't fit above

Message: "%s"

Respond with ONLY the category name in lowercase (status_check, how_to, etc), no explanation.`
