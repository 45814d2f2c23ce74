package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kxtools/insights-mcp/internal/guidance"
	"github.com/kxtools/insights-mcp/internal/insights"
	"github.com/kxtools/insights-mcp/internal/params"
	"github.com/kxtools/insights-mcp/internal/query"
	"github.com/kxtools/insights-mcp/internal/telemetry"
)

// Server wraps the MCP server with the query pipelines, the data engine
// client, and the telemetry tracker. Each tool call runs the full
// sanitize-normalize-execute-govern chain under the size tracker.
type Server struct {
	mcpServer *mcp.Server
	client    insights.Client
	tracker   *telemetry.Tracker
	guidance  *guidance.Store

	getData *query.Pipeline
	countBy *query.Pipeline

	verbose bool
}

// ServerOptions configures the MCP server.
type ServerOptions struct {
	Verbose bool // Enable verbose logging
}

// NewServer creates an MCP server exposing the Insights query tools and
// guidance resources.
func NewServer(client insights.Client, tracker *telemetry.Tracker, docs *guidance.Store, opts ...ServerOptions) (*Server, error) {
	if client == nil {
		return nil, fmt.Errorf("insights client cannot be nil")
	}
	if tracker == nil {
		return nil, fmt.Errorf("telemetry tracker cannot be nil")
	}
	if docs == nil {
		return nil, fmt.Errorf("guidance store cannot be nil")
	}

	var verbose bool
	if len(opts) > 0 {
		verbose = opts[0].Verbose
	}

	s := &Server{
		client:   client,
		tracker:  tracker,
		guidance: docs,
		verbose:  verbose,
	}

	s.getData = query.NewPipeline(params.GetDataSchema(), func(ctx context.Context, fields params.Fields) (*insights.Result, error) {
		return s.client.GetData(ctx, params.BindGetData(fields))
	})
	s.countBy = query.NewPipeline(params.CountBySchema(), func(ctx context.Context, fields params.Fields) (*insights.Result, error) {
		return s.client.CountBy(ctx, params.BindCountBy(fields))
	})

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "insights-mcp",
		Title:   "kdb Insights Queries for Agents",
		Version: "0.2.0",
	}, &mcp.ServerOptions{
		Instructions: `kdb Insights query server. Tools take a single JSON-encoded parameter object.

Workflow: insights_get_meta (discover tables/columns) -> insights_get_data or insights_get_countby.

Always bound queries: use start_time/end_time and limit (negative limit = last N rows, capped at 1000).
Resources: insights://guidance/get-data, insights://guidance/count-by, insights://guidance/sql-queries, insights://tables/{table}.`,
	})

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until the context is
// cancelled or EOF is received on stdin.
func (s *Server) Run(ctx context.Context) error {
	transport := &mcp.StdioTransport{}
	err := s.mcpServer.Run(ctx, transport)

	s.guidance.Stop()
	return err
}

// MCPServer returns the underlying mcp.Server for use with alternative
// transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}
