package mcpserver

import (
	"context"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kxtools/insights-mcp/internal/insights"
	"github.com/kxtools/insights-mcp/internal/query"
	"github.com/kxtools/insights-mcp/internal/telemetry"
)

// Tool 1: insights_get_data

type GetDataInput struct {
	Query string `json:"query" jsonschema:"JSON object with get_data parameters, e.g. {\"table\":\"dOrderReport\",\"start_time\":\"2026.02.08\",\"limit\":-5}"`
}

// Tool 2: insights_get_meta

type GetMetaInput struct {
	Key   string `json:"key,omitempty" jsonschema:"Metadata section to return: rc, dap, api, agg, assembly, or schema (default assembly)"`
	Table string `json:"tbl,omitempty" jsonschema:"Narrow the schema section to one table"`
}

// Tool 3: insights_get_countby

type GetCountByInput struct {
	Query string `json:"query" jsonschema:"JSON object with countBy parameters: table, byCols, startTS, endTS, optional limit"`
}

// QueryOutput is the governed response every tool resolves to, success or
// error. Pipeline faults surface here as status \"error\", never as a raw
// tool error.
type QueryOutput struct {
	Status        string           `json:"status" jsonschema:"success or error"`
	Data          []map[string]any `json:"data" jsonschema:"Result rows (possibly empty)"`
	Message       string           `json:"message,omitempty" jsonschema:"Truncation notice, empty-result notice, or error cause"`
	DroppedParams []string         `json:"dropped_params,omitempty" jsonschema:"Input keys removed by the allow-list sanitizer"`
}

func toOutput(resp query.Response) QueryOutput {
	return QueryOutput{
		Status:        resp.Status,
		Data:          resp.Data,
		Message:       resp.Message,
		DroppedParams: resp.DroppedParams,
	}
}

func (s *Server) handleGetData(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetDataInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	resp := telemetry.Observe(s.tracker, "insights_get_data", input.Query, func() query.Response {
		return s.getData.Run(ctx, input.Query)
	})
	s.logOutcome("insights_get_data", resp)
	return &mcp.CallToolResult{}, toOutput(resp), nil
}

func (s *Server) handleGetCountBy(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetCountByInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	resp := telemetry.Observe(s.tracker, "insights_get_countby", input.Query, func() query.Response {
		return s.countBy.Run(ctx, input.Query)
	})
	s.logOutcome("insights_get_countby", resp)
	return &mcp.CallToolResult{}, toOutput(resp), nil
}

func (s *Server) handleGetMeta(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetMetaInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	summary := map[string]any{"key": input.Key, "tbl": input.Table}
	resp := telemetry.Observe(s.tracker, "insights_get_meta", summary, func() query.Response {
		return s.runGetMeta(ctx, input.Key, input.Table)
	})
	s.logOutcome("insights_get_meta", resp)
	return &mcp.CallToolResult{}, toOutput(resp), nil
}

// runGetMeta fetches engine metadata and narrows it to the requested
// section, optionally to a single table's schema. Follows the same governed
// response shape as the query tools.
func (s *Server) runGetMeta(ctx context.Context, key, table string) query.Response {
	if key == "" {
		key = "assembly"
	}

	meta, err := s.client.GetMeta(ctx)
	if err != nil {
		return query.Error(err)
	}

	if table != "" {
		record, err := meta.TableSchema(table)
		if err != nil {
			return query.Error(err)
		}
		return query.Govern(&insights.Result{RowCount: 1, Rows: []map[string]any{record}}, nil)
	}

	section, ok := meta.Section(key)
	if !ok {
		return query.Error(fmt.Errorf("unknown metadata section %q (expected one of %v)", key, insights.SectionNames()))
	}
	return query.Govern(metaRows(key, section), nil)
}

// metaRows shapes one metadata section into a row set. Sections that are
// already lists of records pass through; anything else becomes a single row
// keyed by the section name.
func metaRows(key string, section any) *insights.Result {
	if items, ok := section.([]any); ok {
		rows := make([]map[string]any, 0, len(items))
		for _, item := range items {
			if record, ok := item.(map[string]any); ok {
				rows = append(rows, record)
			} else {
				rows = append(rows, map[string]any{key: item})
			}
		}
		return &insights.Result{RowCount: len(rows), Rows: rows}
	}
	if section == nil {
		return &insights.Result{RowCount: 0, Rows: nil}
	}
	return &insights.Result{RowCount: 1, Rows: []map[string]any{{key: section}}}
}

func (s *Server) logOutcome(tool string, resp query.Response) {
	if resp.Status == query.StatusError {
		log.Printf("%s failed: %s", tool, resp.Message)
		return
	}
	if s.verbose {
		log.Printf("%s returned %d rows", tool, len(resp.Data))
	}
}

// Register all tools

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "insights_get_data",
		Description: "Query one kdb Insights table with filters, grouping, aggregations, and time bounds. Input is a JSON string of parameters; unknown keys are dropped and reported. Defaults: last 15 minutes, limit 1000 (limits clamp to [-1000, 1000]; negative = last N rows). Use filter/group_by/aggregations to reduce result size and pull specific columns only. See insights://guidance/get-data for syntax and examples.",
	}, s.handleGetData)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "insights_get_meta",
		Description: "Discover what the data engine knows: assemblies, tables, columns, and registered aggregations. Call this FIRST to learn table and column names before querying. key selects a metadata section (rc, dap, api, agg, assembly, schema; default assembly); tbl narrows the schema section to one table's columns.",
	}, s.handleGetMeta)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "insights_get_countby",
		Description: "Count rows per distinct value of one or more columns over a time range, via the countBy aggregation. Much cheaper than pulling rows and counting client-side. Requires table, byCols, startTS, and endTS. See insights://guidance/count-by for the parameter shapes.",
	}, s.handleGetCountBy)
}
