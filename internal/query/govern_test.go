package query

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kxtools/insights-mcp/internal/insights"
)

func makeRows(n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{"i": i}
	}
	return rows
}

func TestGovernZeroRows(t *testing.T) {
	resp := Govern(&insights.Result{RowCount: 0, Rows: nil}, []string{"zebra"})

	assert.Equal(t, StatusSuccess, resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
	assert.Equal(t, "No rows returned", resp.Message)
}

func TestGovernTruncationMessage(t *testing.T) {
	rows := makeRows(1500)
	resp := Govern(&insights.Result{RowCount: 1500, Rows: rows}, nil)

	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Contains(t, resp.Message, "1000")
	assert.Contains(t, resp.Message, "1500")
	assert.Equal(t, "Showing first 1000 of 1500 rows", resp.Message)
}

// The governor reports an over-cap payload but does not re-slice it: if the
// upstream ignored the limit hint and returned more than the cap, the full
// payload passes through with a truthful message. Documented behavior, not
// an accident.
func TestGovernDoesNotResliceOversizePayload(t *testing.T) {
	rows := makeRows(1500)
	resp := Govern(&insights.Result{RowCount: 1500, Rows: rows}, nil)

	assert.Len(t, resp.Data, 1500, "oversize payloads are reported, not corrected")
	assert.Empty(t, resp.DroppedParams, "dropped params only surface on the untruncated path")
}

func TestGovernNormalPathSurfacesDroppedParams(t *testing.T) {
	rows := makeRows(3)
	resp := Govern(&insights.Result{RowCount: 3, Rows: rows}, []string{"alpha", "zebra"})

	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Len(t, resp.Data, 3)
	assert.Empty(t, resp.Message)
	assert.Equal(t, []string{"alpha", "zebra"}, resp.DroppedParams)
}

func TestGovernAtCapExactly(t *testing.T) {
	rows := makeRows(1000)
	resp := Govern(&insights.Result{RowCount: 1000, Rows: rows}, nil)

	assert.Empty(t, resp.Message, "exactly at the cap is not truncation")
	assert.Len(t, resp.Data, 1000)
}

func TestErrorResponse(t *testing.T) {
	resp := Error(errors.New("gateway unreachable"))

	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "gateway unreachable", resp.Message)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
}

func TestGovernMessageNamesBothCounts(t *testing.T) {
	for _, total := range []int{1001, 2500, 100000} {
		resp := Govern(&insights.Result{RowCount: total, Rows: makeRows(total)}, nil)
		assert.True(t, strings.Contains(resp.Message, "1000"), "message must name the cap")
		assert.True(t, strings.Contains(resp.Message, fmt.Sprintf("%d", total)), "message must name the true total")
	}
}
