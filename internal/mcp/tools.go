package mcp

import "github.com/mark3labs/mcp-go/mcp"

// dispatchMessageTool defines the dispatch_message MCP tool.
var dispatchMessageTool = mcp.NewTool("dispatch_message",
	mcp.WithDescription("Send a message through the dispatch pipeline and get the response. The cheapest capable layer answers: keyword table, local model, or cloud cascade."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("Identifier for the conversation session"),
	),
	mcp.WithString("message",
		mcp.Required(),
		mcp.Description("The message text to dispatch"),
	),
	mcp.WithString("priority",
		mcp.Description("Request priority; high overrides brownout cloud gating"),
		mcp.Enum("normal", "high"),
	),
)

// previewRouteTool defines the preview_route MCP tool.
var previewRouteTool = mcp.NewTool("preview_route",
	mcp.WithDescription("Dry-run the routing decision for a message without dispatching it. Returns the decision record, cost guard, and escalation analysis as JSON."),
	mcp.WithString("message",
		mcp.Required(),
		mcp.Description("The message text to evaluate"),
	),
	mcp.WithString("priority",
		mcp.Description("Request priority; high overrides brownout cloud gating"),
		mcp.Enum("normal", "high"),
	),
)

// providerHealthTool defines the provider_health MCP tool.
var providerHealthTool = mcp.NewTool("provider_health",
	mcp.WithDescription("Get the current health of every model provider: liveness probes plus rate-limit headroom status."),
)

// cacheStatsTool defines the cache_stats MCP tool.
var cacheStatsTool = mcp.NewTool("cache_stats",
	mcp.WithDescription("Get response cache statistics: hits, misses, hit rate, writes, evictions, and tokens saved."),
)
