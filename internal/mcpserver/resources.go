package mcpserver

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kxtools/insights-mcp/internal/guidance"
)

// registerResources registers the guidance documents and the live table
// description template.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "insights://guidance/get-data",
		Name:        "get-data-guidance",
		Description: "Parameter reference and examples for the insights_get_data tool.",
		MIMEType:    "text/markdown",
	}, s.handleGuidanceResource(guidance.DocGetData))

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "insights://guidance/count-by",
		Name:        "count-by-guidance",
		Description: "Parameter reference and examples for the insights_get_countby tool.",
		MIMEType:    "text/markdown",
	}, s.handleGuidanceResource(guidance.DocCountBy))

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "insights://guidance/sql-queries",
		Name:        "sql-query-guidance",
		Description: "Supported SQL surface when composing ad-hoc SELECT statements.",
		MIMEType:    "text/markdown",
	}, s.handleGuidanceResource(guidance.DocSQLQueries))

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "insights://tables/{table}",
		Name:        "table-detail",
		Description: "Column names and types for one table, from live engine metadata.",
		MIMEType:    "text/plain",
	}, s.handleTableResource)
}

// ─── Guidance resource handlers ─────────────────────────────────────────

func (s *Server) handleGuidanceResource(name string) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		text, ok := s.guidance.Get(name)
		if !ok {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return textResult(req.Params.URI, text), nil
	}
}

// ─── Table detail template handler ──────────────────────────────────────

func (s *Server) handleTableResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	table, err := extractURIParam(req.Params.URI, "insights://tables/")
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	meta, err := s.client.GetMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}

	record, err := meta.TableSchema(table)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\n", table)
	b.WriteString(strings.Repeat("═", len(table)+7) + "\n")

	cols := make([]string, 0, len(record))
	for col := range record {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	colW := 6
	for _, col := range cols {
		if len(col) > colW {
			colW = len(col)
		}
	}

	fmt.Fprintf(&b, "  %-*s  %s\n", colW, "Column", "Type")
	fmt.Fprintf(&b, "  %-*s  %s\n", colW, strings.Repeat("─", colW), "────")
	for _, col := range cols {
		fmt.Fprintf(&b, "  %-*s  %s\n", colW, col, columnType(record[col]))
	}

	return textResult(req.Params.URI, b.String()), nil
}

// columnType extracts the type label from one column record. The schema
// section stores each column as {"typ": "...", ...}; fall back to a plain
// rendering for anything else.
func columnType(v any) string {
	if record, ok := v.(map[string]any); ok {
		if typ, ok := record["typ"].(string); ok {
			return typ
		}
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// ─── Helpers ────────────────────────────────────────────────────────────

// extractURIParam extracts the parameter value from a URI by stripping the
// prefix and URL-decoding the remainder.
func extractURIParam(uri, prefix string) (string, error) {
	if !strings.HasPrefix(uri, prefix) {
		return "", fmt.Errorf("invalid URI: %s", uri)
	}
	param := strings.TrimPrefix(uri, prefix)
	if param == "" {
		return "", fmt.Errorf("empty parameter in URI: %s", uri)
	}
	decoded, err := url.PathUnescape(param)
	if err != nil {
		return "", fmt.Errorf("invalid encoding in URI: %w", err)
	}
	return decoded, nil
}

// textResult wraps a string in a ReadResourceResult.
func textResult(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:  uri,
			Text: text,
		}},
	}
}
