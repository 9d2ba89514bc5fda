package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/switchboard/internal/gateway"
	"github.com/ziadkadry99/switchboard/internal/health"
	"github.com/ziadkadry99/switchboard/internal/route"
)

// handleDispatchMessage runs the full pipeline for one message.
func (s *Server) handleDispatchMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: message"), nil
	}
	priority := request.GetString("priority", "normal")

	result := s.gw.Dispatch(ctx, gateway.Request{
		UserID:   userID,
		Text:     message,
		Priority: priority,
	})

	return mcp.NewToolResultText(fmt.Sprintf(
		"%s\n\n[layer=%s request_id=%s cache_hit=%v]",
		result.Response, result.Layer, result.RequestID, result.CacheHit,
	)), nil
}

// handlePreviewRoute returns the routing decision without dispatching.
func (s *Server) handlePreviewRoute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: message"), nil
	}
	priority := request.GetString("priority", "normal")

	snap := health.SystemSnapshot{CheckedAt: time.Now().UTC()}
	if s.monitor != nil {
		snap = s.monitor.Snapshot(ctx)
	}

	decided := s.router.Route(route.Envelope{
		RequestID: uuid.NewString(),
		UserID:    "preview",
		Text:      message,
		Priority:  priority,
	}, snap)

	out, err := json.MarshalIndent(struct {
		Record     any `json:"record"`
		CostGuard  any `json:"cost_guard"`
		Escalation any `json:"escalation"`
	}{decided.Record, decided.CostGuard, decided.Escalation}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding failed: %v", err)), nil
	}

	return mcp.NewToolResultText(string(out)), nil
}

// handleProviderHealth reports probe and rate-limit state for every provider.
func (s *Server) handleProviderHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := struct {
		System    any `json:"system,omitempty"`
		RateLimit any `json:"rate_limits"`
	}{RateLimit: s.tracker.Stats()}

	if s.monitor != nil {
		out.System = s.monitor.Snapshot(ctx)
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(encoded)), nil
}

// handleCacheStats reports response cache counters.
func (s *Server) handleCacheStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	encoded, err := json.MarshalIndent(s.cache.Statistics(), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(encoded)), nil
}
