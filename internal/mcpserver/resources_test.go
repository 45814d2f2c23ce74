package mcpserver

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxtools/insights-mcp/internal/guidance"
)

func readResource(t *testing.T, server *Server, handler mcp.ResourceHandler, uri string) (*mcp.ReadResourceResult, error) {
	t.Helper()
	return handler(context.Background(), &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	})
}

func TestGuidanceResourceServesDocument(t *testing.T) {
	server := newTestServer(t, &fakeClient{})

	handler := server.handleGuidanceResource(guidance.DocGetData)
	result, err := readResource(t, server, handler, "insights://guidance/get-data")
	require.NoError(t, err)

	require.Len(t, result.Contents, 1)
	assert.Equal(t, "insights://guidance/get-data", result.Contents[0].URI)
	assert.NotEmpty(t, result.Contents[0].Text)
}

func TestGuidanceResourceUnknownDocument(t *testing.T) {
	server := newTestServer(t, &fakeClient{})

	handler := server.handleGuidanceResource("missing-doc")
	_, err := readResource(t, server, handler, "insights://guidance/missing-doc")
	assert.Error(t, err)
}

func TestTableResourceRendersSchema(t *testing.T) {
	server := newTestServer(t, &fakeClient{meta: testMeta()})

	result, err := readResource(t, server, server.handleTableResource, "insights://tables/trades")
	require.NoError(t, err)

	require.Len(t, result.Contents, 1)
	text := result.Contents[0].Text
	assert.Contains(t, text, "Table: trades")
	assert.Contains(t, text, "sym")
	assert.Contains(t, text, "symbol")
	assert.Contains(t, text, "price")
	assert.Contains(t, text, "float")
}

func TestTableResourceUnknownTable(t *testing.T) {
	server := newTestServer(t, &fakeClient{meta: testMeta()})

	_, err := readResource(t, server, server.handleTableResource, "insights://tables/absent")
	assert.Error(t, err)
}

func TestTableResourceMetaFailure(t *testing.T) {
	server := newTestServer(t, &fakeClient{err: errors.New("gateway down")})

	_, err := readResource(t, server, server.handleTableResource, "insights://tables/trades")
	require.Error(t, err)
	assert.ErrorContains(t, err, "gateway down")
}

func TestExtractURIParam(t *testing.T) {
	table, err := extractURIParam("insights://tables/dOrderReport", "insights://tables/")
	require.NoError(t, err)
	assert.Equal(t, "dOrderReport", table)

	// Percent-encoded segments decode.
	table, err = extractURIParam("insights://tables/my%20table", "insights://tables/")
	require.NoError(t, err)
	assert.Equal(t, "my table", table)

	_, err = extractURIParam("insights://tables/", "insights://tables/")
	assert.Error(t, err)

	_, err = extractURIParam("other://tables/x", "insights://tables/")
	assert.Error(t, err)
}

func TestColumnType(t *testing.T) {
	assert.Equal(t, "symbol", columnType(map[string]any{"typ": "symbol"}))
	assert.Equal(t, "float", columnType("float"))
	assert.Equal(t, "42", columnType(42))
}
