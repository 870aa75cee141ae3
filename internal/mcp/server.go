package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("fitrun", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("fitrun workout server. Browse the workout plan catalog, review completed workouts, training volume and progress toward weight, strength and stamina goals. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListPlans, Handler: h.listPlans},
		server.ServerTool{Tool: toolGetPlan, Handler: h.getPlan},
		server.ServerTool{Tool: toolGetCompletions, Handler: h.getCompletions},
		server.ServerTool{Tool: toolGetProgressSummary, Handler: h.getProgressSummary},
		server.ServerTool{Tool: toolGetTrainingSummary, Handler: h.getTrainingSummary},
		server.ServerTool{Tool: toolGetProgressEntries, Handler: h.getProgressEntries},
		server.ServerTool{Tool: toolCalculateBMI, Handler: h.calculateBMI},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resPlanCatalog, Handler: h.planCatalog},
		server.ServerResource{Resource: resRecentCompletions, Handler: h.recentCompletions},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resPlanCatalog = mcp.NewResource(
	"fitrun://plan_catalog",
	"Plan Catalog",
	mcp.WithResourceDescription("All workout plans with their exercises, durations and rest intervals"),
	mcp.WithMIMEType("application/json"),
)

var resRecentCompletions = mcp.NewResource(
	"fitrun://recent_completions",
	"Recent Completions",
	mcp.WithResourceDescription("Workouts completed in the last 14 days"),
	mcp.WithMIMEType("application/json"),
)
