// Package insights is the client for a kdb Insights style service gateway.
// It owns the only network boundary in the query pipeline: requests are
// normalized descriptors, responses are row sets, and every failure mode
// surfaces as an UpstreamError. The client never retries; reconnection
// policy belongs to whoever owns the connection.
package insights

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kxtools/insights-mcp/internal/params"
)

// Result is one query's row set. RowCount always equals len(Rows) as
// returned by the engine, before any response governance is applied.
type Result struct {
	RowCount int
	Rows     []map[string]any
}

// Client is the data engine surface the pipeline executes against.
type Client interface {
	GetData(ctx context.Context, call *params.GetDataCall) (*Result, error)
	GetMeta(ctx context.Context) (*Meta, error)
	CountBy(ctx context.Context, call *params.CountByCall) (*Result, error)
}

// Config configures the HTTP gateway client.
type Config struct {
	// GatewayURL is the base URL of the service gateway, e.g.
	// https://insights.example.com
	GatewayURL string

	// CountByUDA is the registered name of the countBy custom aggregation.
	CountByUDA string

	// Insecure skips TLS certificate verification. Development only.
	Insecure bool
}

// DefaultCountByUDA is the UDA name used when none is configured.
const DefaultCountByUDA = "exampleuda_countBy"

// HTTPClient talks JSON to the service gateway.
type HTTPClient struct {
	base       *url.URL
	countByUDA string
	http       *http.Client
}

// NewHTTPClient creates a gateway client. No timeout is set on the
// underlying http.Client: the caller imposes latency bounds via ctx.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("gateway URL cannot be empty")
	}
	base, err := url.Parse(cfg.GatewayURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway URL %q: %w", cfg.GatewayURL, err)
	}

	uda := cfg.CountByUDA
	if uda == "" {
		uda = DefaultCountByUDA
	}

	httpClient := &http.Client{}
	if cfg.Insecure {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &HTTPClient{
		base:       base,
		countByUDA: uda,
		http:       httpClient,
	}, nil
}

// envelope is the gateway's response wrapper. rc 0 in the header means the
// engine accepted the call; anything else carries diagnostic text in ai.
type envelope struct {
	Header  map[string]any  `json:"header"`
	Payload json.RawMessage `json:"payload"`
}

// GetData executes a get_data query. The descriptor is read, never mutated,
// so a caller-side retry can reuse it as-is.
func (c *HTTPClient) GetData(ctx context.Context, call *params.GetDataCall) (*Result, error) {
	body := call.Args()
	body[params.FieldTable] = call.Table

	env, err := c.post(ctx, "getData", "/servicegateway/kxi/getData", body)
	if err != nil {
		return nil, err
	}
	return decodeRows("getData", env)
}

// GetMeta fetches the engine's metadata document.
func (c *HTTPClient) GetMeta(ctx context.Context) (*Meta, error) {
	env, err := c.post(ctx, "getMeta", "/servicegateway/kxi/getMeta", map[string]any{})
	if err != nil {
		return nil, err
	}

	var sections map[string]any
	if err := json.Unmarshal(env.Payload, &sections); err != nil {
		return nil, &UpstreamError{Op: "getMeta", Msg: "malformed metadata payload", Err: err}
	}
	return &Meta{Sections: sections}, nil
}

// CountBy invokes the countBy custom aggregation.
func (c *HTTPClient) CountBy(ctx context.Context, call *params.CountByCall) (*Result, error) {
	path := "/servicegateway/" + url.PathEscape(c.countByUDA)
	env, err := c.post(ctx, c.countByUDA, path, call.Params())
	if err != nil {
		return nil, err
	}
	return decodeRows(c.countByUDA, env)
}

// post issues one gateway call and validates the response envelope.
func (c *HTTPClient) post(ctx context.Context, op, path string, body any) (*envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &UpstreamError{Op: op, Msg: "encode request", Err: err}
	}

	endpoint := *c.base
	endpoint.Path = strings.TrimSuffix(endpoint.Path, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, &UpstreamError{Op: op, Msg: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: op, Msg: "gateway unreachable", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Msg: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Msg: strings.TrimSpace(string(data))}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Msg: "malformed response envelope", Err: err}
	}

	if rc, ok := env.Header["rc"]; ok {
		if n, ok := rc.(float64); ok && n != 0 {
			msg := "engine rejected the call"
			if ai, ok := env.Header["ai"].(string); ok && ai != "" {
				msg = ai
			}
			return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Msg: fmt.Sprintf("rc=%v: %s", rc, msg)}
		}
	}
	return &env, nil
}

// decodeRows unpacks a row-set payload.
func decodeRows(op string, env *envelope) (*Result, error) {
	var rows []map[string]any
	if err := json.Unmarshal(env.Payload, &rows); err != nil {
		return nil, &UpstreamError{Op: op, Msg: "malformed row payload", Err: err}
	}
	return &Result{RowCount: len(rows), Rows: rows}, nil
}
