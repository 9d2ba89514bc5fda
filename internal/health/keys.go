package health

// knownKeys maps well-known provider+model pairs to their short
// tracking keys. Dashboards and stored snapshots use these names, so
// they stay stable even when model identifiers change.
var knownKeys = map[[2]string]string{
	{"openai", "gpt-4o-mini"}:           "openai_gpt4o_mini",
	{"openai", "gpt-4o"}:                "openai_gpt4o",
	{"ollama", "llama3.2"}:              "ollama_llama32",
	{"groq", "llama-3.1-8b-instant"}:    "groq_llama_8b",
	{"groq", "llama-3.3-70b-versatile"}: "groq_llama_70b",
	{"anthropic", "haiku"}:              "haiku",
	{"anthropic", "opus"}:               "claude_opus",
	{"moonshot", "kimi-2.5"}:            "kimi_2_5",
}

// Key composes the tracking key for a provider+model pair. Unknown
// pairs get the generic provider_model form.
func Key(provider, model string) string {
	if k, ok := knownKeys[[2]string{provider, model}]; ok {
		return k
	}
	return provider + "_" + model
}
