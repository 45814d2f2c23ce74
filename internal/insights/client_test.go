package insights

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxtools/insights-mcp/internal/params"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(Config{GatewayURL: srv.URL})
	require.NoError(t, err)
	return client
}

func TestGetDataDecodesRows(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"header":  map[string]any{"rc": 0},
			"payload": []map[string]any{{"sym": "ABC"}, {"sym": "DEF"}},
		})
	})

	call := &params.GetDataCall{
		Table:     "orders",
		StartTime: "2026.02.08",
		EndTime:   "2026.02.09",
		GroupBy:   []string{"sym"},
		Limit:     params.Limit{Values: []int{-5}, Scalar: true},
	}

	result, err := client.GetData(context.Background(), call)
	require.NoError(t, err)

	assert.Equal(t, "/servicegateway/kxi/getData", gotPath)
	assert.Equal(t, 2, result.RowCount)
	assert.Len(t, result.Rows, 2)
	assert.Equal(t, "ABC", result.Rows[0]["sym"])

	// Wire body carries the table plus normalized kwargs.
	assert.Equal(t, "orders", gotBody["table"])
	assert.Equal(t, []any{"sym"}, gotBody["group_by"])
	assert.Equal(t, float64(-5), gotBody["limit"], "scalar limit keeps its scalar wire shape")
}

func TestGetDataDoesNotMutateCall(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"header":  map[string]any{"rc": 0},
			"payload": []map[string]any{},
		})
	})

	call := &params.GetDataCall{Table: "orders", StartTime: "a", EndTime: "b", Limit: params.DefaultLimit()}
	want := *call

	_, err := client.GetData(context.Background(), call)
	require.NoError(t, err)
	assert.Equal(t, want, *call, "executor must not mutate its descriptor")

	// A second call with the same descriptor behaves identically.
	_, err = client.GetData(context.Background(), call)
	require.NoError(t, err)
	assert.Equal(t, want, *call)
}

func TestGatewayErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusBadGateway)
	})

	_, err := client.GetData(context.Background(), &params.GetDataCall{Table: "orders"})
	require.Error(t, err)
	assert.True(t, IsUpstream(err))

	ue := err.(*UpstreamError)
	assert.Equal(t, http.StatusBadGateway, ue.Status)
}

func TestGatewayEngineRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"header": map[string]any{"rc": 10, "ai": "unknown table"},
		})
	})

	_, err := client.GetData(context.Background(), &params.GetDataCall{Table: "nope"})
	require.Error(t, err)
	assert.True(t, IsUpstream(err))
	assert.Contains(t, err.Error(), "unknown table")
}

func TestGatewayMalformedEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	})

	_, err := client.GetData(context.Background(), &params.GetDataCall{Table: "orders"})
	require.Error(t, err)
	assert.True(t, IsUpstream(err))
}

func TestGatewayUnreachable(t *testing.T) {
	client, err := NewHTTPClient(Config{GatewayURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = client.GetData(context.Background(), &params.GetDataCall{Table: "orders"})
	require.Error(t, err)
	assert.True(t, IsUpstream(err))
}

func TestCountByUsesConfiguredUDA(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{
			"header":  map[string]any{"rc": 0},
			"payload": []map[string]any{{"sym": "ABC", "count": 12}},
		})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(Config{GatewayURL: srv.URL, CountByUDA: "myorg_countBy"})
	require.NoError(t, err)

	call := &params.CountByCall{
		Table:   "orders",
		ByCols:  []string{"sym"},
		StartTS: "2026-02-11T00:00:00",
		EndTS:   "2026-02-11T23:00:00",
		Limit:   params.DefaultLimit(),
	}
	result, err := client.CountBy(context.Background(), call)
	require.NoError(t, err)

	assert.Equal(t, "/servicegateway/myorg_countBy", gotPath)
	assert.Equal(t, 1, result.RowCount)
}

func TestGetMetaSections(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"header": map[string]any{"rc": 0},
			"payload": map[string]any{
				"assembly": []any{map[string]any{"assembly": "smbcpoc"}},
				"schema": map[string]any{
					"table": []any{"orders", "quotes"},
					"columns": []any{
						map[string]any{"sym": map[string]any{"typ": "symbol"}},
						map[string]any{"bid": map[string]any{"typ": "float"}},
					},
				},
			},
		})
	})

	meta, err := client.GetMeta(context.Background())
	require.NoError(t, err)

	_, ok := meta.Section("assembly")
	assert.True(t, ok)

	assert.Equal(t, []string{"orders", "quotes"}, meta.Tables())

	record, err := meta.TableSchema("orders")
	require.NoError(t, err)
	assert.Contains(t, record, "sym")

	_, err = meta.TableSchema("trades")
	require.Error(t, err)
}

func TestNewHTTPClientValidation(t *testing.T) {
	_, err := NewHTTPClient(Config{})
	require.Error(t, err)

	_, err = NewHTTPClient(Config{GatewayURL: "http://host\x7f"})
	require.Error(t, err)
}
