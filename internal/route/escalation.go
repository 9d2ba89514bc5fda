package route

import "strings"

// Marker sets that justify spending money on the cloud model. Scanned
// as plain substrings against the lowered text.
var (
	codeMarkers = []string{
		"```", "traceback", "exception", "docker", "npm", "pip",
		"railway", "systemd", "python", "def ",
	}

	workflowTerms = []string{
		"bug", "fix", "review", "refactor", "pr", "pull request",
		"test failing", "deploy", "ci", "pipeline",
	}

	architectureTerms = []string{
		"system design", "module", "interface", "api contract",
		"schema", "routing",
	}

	securityTerms = []string{
		"key", "token", "leak", "exposed", "cve", "auth",
	}
)

// engineeringMarkers is the union used for the long-request check.
var engineeringMarkers = func() []string {
	var all []string
	all = append(all, codeMarkers...)
	all = append(all, workflowTerms...)
	all = append(all, architectureTerms...)
	all = append(all, securityTerms...)
	return all
}()

// longRequestThreshold is the byte length past which a technical
// request counts as escalation-worthy on size alone.
const longRequestThreshold = 400

// EscalationResult says whether a request justified cloud spend, and why.
type EscalationResult struct {
	Triggered bool     `json:"triggered"`
	Reasons   []string `json:"reasons"`
}

// containsAny returns the needles found in the lowered text, in needle
// order.
func containsAny(lowered string, needles []string) []string {
	var hits []string
	for _, needle := range needles {
		if strings.Contains(lowered, needle) {
			hits = append(hits, needle)
		}
	}
	return hits
}

// DetectEscalation scores text against the marker sets. Any hit
// triggers escalation, with the matched terms recorded as the reason.
func DetectEscalation(text string) EscalationResult {
	lowered := strings.ToLower(text)
	var reasons []string

	if hits := containsAny(lowered, codeMarkers); len(hits) > 0 {
		reasons = append(reasons, "code markers: "+strings.Join(hits, ", "))
	}
	if hits := containsAny(lowered, workflowTerms); len(hits) > 0 {
		reasons = append(reasons, "workflow: "+strings.Join(hits, ", "))
	}
	if hits := containsAny(lowered, architectureTerms); len(hits) > 0 {
		reasons = append(reasons, "architecture: "+strings.Join(hits, ", "))
	}
	if hits := containsAny(lowered, securityTerms); len(hits) > 0 {
		reasons = append(reasons, "security: "+strings.Join(hits, ", "))
	}
	if len(text) >= longRequestThreshold && len(containsAny(lowered, engineeringMarkers)) > 0 {
		reasons = append(reasons, "long+technical request")
	}

	return EscalationResult{Triggered: len(reasons) > 0, Reasons: reasons}
}

// DeriveIntent labels text for the decision log. This is a coarse
// pattern pass for audit readability only; the classifier owns the
// real intent decision.
func DeriveIntent(text, keyword string) string {
	switch keyword {
	case "status", "health", "version", "router status", "budget":
		return "status"
	case "help", "commands", "what can you do":
		return "howto"
	}

	lowered := strings.ToLower(text)
	switch {
	case strings.Contains(lowered, "roadmap"):
		return "unknown"
	case len(containsAny(lowered, securityTerms)) > 0:
		return "security"
	case len(containsAny(lowered, architectureTerms)) > 0:
		return "architecture"
	case len(containsAny(lowered, codeMarkers)) > 0:
		return "code_debug"
	case len(containsAny(lowered, workflowTerms)) > 0:
		return "code_review"
	case strings.Contains(lowered, "how") || strings.Contains(lowered, "instructions"):
		return "howto"
	case len(text) < 80:
		return "trivial"
	default:
		return "unknown"
	}
}
