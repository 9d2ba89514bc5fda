// Package mcp exposes the dispatch pipeline over the Model Context
// Protocol, so agent tooling can send messages, dry-run routing
// decisions, and inspect provider health without the HTTP surface.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/switchboard/internal/cache"
	"github.com/ziadkadry99/switchboard/internal/gateway"
	"github.com/ziadkadry99/switchboard/internal/health"
	"github.com/ziadkadry99/switchboard/internal/route"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the dispatch tools.
type Server struct {
	gw      *gateway.Gateway
	router  *route.Router
	monitor *health.Monitor
	tracker *health.Tracker
	cache   *cache.Cache
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(gw *gateway.Gateway, router *route.Router, monitor *health.Monitor, tracker *health.Tracker, responseCache *cache.Cache) *Server {
	s := &Server{
		gw:      gw,
		router:  router,
		monitor: monitor,
		tracker: tracker,
		cache:   responseCache,
	}

	s.mcp = server.NewMCPServer(
		"switchboard",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(dispatchMessageTool, s.handleDispatchMessage)
	s.mcp.AddTool(previewRouteTool, s.handlePreviewRoute)
	s.mcp.AddTool(providerHealthTool, s.handleProviderHealth)
	s.mcp.AddTool(cacheStatsTool, s.handleCacheStats)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
