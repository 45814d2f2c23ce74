// Package query chains the per-call pipeline: sanitize, normalize, execute,
// govern. Each stage is a fallible function passing an explicit value to the
// next; the governor at the end is the single point where errors become the
// uniform response shape callers see.
package query

import (
	"fmt"

	"github.com/kxtools/insights-mcp/internal/insights"
	"github.com/kxtools/insights-mcp/internal/params"
)

// Response is the uniform shape every tool call resolves to, success or not.
// Data is always present (possibly empty); a caller never has to guess
// whether a missing key means zero rows or a fault.
type Response struct {
	Status        string           `json:"status"`
	Data          []map[string]any `json:"data"`
	Message       string           `json:"message,omitempty"`
	DroppedParams []string         `json:"dropped_params,omitempty"`
}

const (
	// StatusSuccess marks a call that completed, even if it returned no rows
	// or a truncated view.
	StatusSuccess = "success"
	// StatusError marks a call that failed anywhere in the pipeline.
	StatusError = "error"
)

// Govern applies the response cap policy to a raw result. The cap itself is
// requested upstream via the limit parameter; this stage reports truthfully
// on what came back:
//
//   - zero rows: success with an explicit "No rows returned" message
//   - more rows than MaxRowsReturned: success with a message naming both the
//     shown count and the true total. The payload is NOT re-sliced here; if
//     the engine ignored the limit hint the oversize payload is reported,
//     not corrected.
//   - otherwise: success, with the sanitizer's dropped-key report attached
//     as a diagnostic.
func Govern(result *insights.Result, dropped []string) Response {
	total := result.RowCount

	if total == 0 {
		return Response{
			Status:  StatusSuccess,
			Data:    []map[string]any{},
			Message: "No rows returned",
		}
	}

	if total > params.MaxRowsReturned {
		return Response{
			Status:  StatusSuccess,
			Data:    result.Rows,
			Message: fmt.Sprintf("Showing first %d of %d rows", params.MaxRowsReturned, total),
		}
	}

	return Response{
		Status:        StatusSuccess,
		Data:          result.Rows,
		DroppedParams: dropped,
	}
}

// Error converts any pipeline failure into the uniform error response. This
// is the only error-to-response translation point; no raw fault ever reaches
// a caller.
func Error(err error) Response {
	return Response{
		Status:  StatusError,
		Data:    []map[string]any{},
		Message: err.Error(),
	}
}
