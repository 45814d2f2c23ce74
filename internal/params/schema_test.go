package params

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectRejectsBadJSON(t *testing.T) {
	_, err := ParseObject(`{"table":`)
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	if !IsInvalidInput(err) {
		t.Fatalf("expected InvalidInputError, got %T", err)
	}
}

func TestParseObjectRejectsNonObject(t *testing.T) {
	for _, raw := range []string{`[1,2,3]`, `"table"`, `42`, `null`} {
		_, err := ParseObject(raw)
		if err == nil {
			t.Fatalf("expected error for %s", raw)
		}
		if !IsInvalidInput(err) {
			t.Fatalf("expected InvalidInputError for %s, got %T", raw, err)
		}
	}
}

func TestSanitizeDropsUnknownKeys(t *testing.T) {
	schema := CountBySchema()

	raw := map[string]any{
		"table":   "orders",
		"byCols":  "sym",
		"startTS": "2026-02-11T00:00:00",
		"endTS":   "2026-02-11T23:00:00",
		"zebra":   true,
		"alpha":   1,
	}

	clean, dropped := schema.Sanitize(raw)

	assert.Equal(t, []string{"alpha", "zebra"}, dropped, "dropped keys must be sorted")
	allowed := schema.Allowed()
	for k := range clean {
		assert.True(t, allowed[k], "sanitized key %q not in allow-list", k)
	}
	assert.Len(t, clean, 4)
}

func TestSanitizeRoundTrip(t *testing.T) {
	schema := GetDataSchema()

	raw := map[string]any{
		"table":    "orders",
		"group_by": []any{"sym"},
		"limit":    float64(10),
	}

	clean, dropped := schema.Sanitize(raw)

	assert.Empty(t, dropped)
	assert.Equal(t, Fields(raw), clean, "sanitization of allow-listed input must be a no-op")
}

func TestNormalizeMissingRequiredField(t *testing.T) {
	schema := CountBySchema()

	clean := Fields{
		"table":   "orders",
		"byCols":  "sym",
		"startTS": "2026-02-11T00:00:00",
	}

	_, err := schema.Normalize(clean, time.Now())
	require.Error(t, err)

	ve, ok := err.(*ValidationError)
	require.True(t, ok, "expected ValidationError, got %T", err)
	assert.Equal(t, "endTS", ve.Field)
}

func TestNormalizeCountByScenario(t *testing.T) {
	schema := CountBySchema()

	clean := Fields{
		"table":   "orders",
		"byCols":  "sym",
		"startTS": "2026-02-11T00:00:00",
		"endTS":   "2026-02-11T23:00:00",
	}

	fields, err := schema.Normalize(clean, time.Now())
	require.NoError(t, err)

	call := BindCountBy(fields)
	assert.Equal(t, "orders", call.Table)
	assert.Equal(t, []string{"sym"}, call.ByCols, "scalar byCols must canonicalize to a list")
	assert.Equal(t, "2026-02-11T00:00:00", call.StartTS)
	assert.Equal(t, "2026-02-11T23:00:00", call.EndTS)
	assert.Equal(t, DefaultLimit(), call.Limit)
}

func TestNormalizeGetDataTimeDefaults(t *testing.T) {
	schema := GetDataSchema()
	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)

	fields, err := schema.Normalize(Fields{"table": "orders"}, now)
	require.NoError(t, err)

	call := BindGetData(fields)
	assert.Equal(t, "2026-02-11T12:00:00Z", call.EndTime)
	assert.Equal(t, "2026-02-11T11:45:00Z", call.StartTime)
	assert.Equal(t, DefaultLimit(), call.Limit)
}

func TestNormalizeGetDataKeepsExplicitTimes(t *testing.T) {
	schema := GetDataSchema()

	fields, err := schema.Normalize(Fields{
		"table":      "orders",
		"start_time": "2026.02.08",
		"end_time":   "2026.02.09",
	}, time.Now())
	require.NoError(t, err)

	call := BindGetData(fields)
	assert.Equal(t, "2026.02.08", call.StartTime)
	assert.Equal(t, "2026.02.09", call.EndTime)
}

func TestSliceRequiredWithSliceTemporality(t *testing.T) {
	schema := GetDataSchema()
	now := time.Now()

	// temporality=slice with no slice fails
	_, err := schema.Normalize(Fields{"table": "t", "temporality": "slice"}, now)
	require.Error(t, err)
	ve, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, "slice", ve.Field)

	// temporality=slice with empty slice fails
	_, err = schema.Normalize(Fields{"table": "t", "temporality": "slice", "slice": []any{}}, now)
	require.Error(t, err)

	// temporality=slice with a slice succeeds
	fields, err := schema.Normalize(Fields{
		"table":       "t",
		"temporality": "slice",
		"slice":       []any{"09:00", "17:00"},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "17:00"}, BindGetData(fields).Slice)

	// temporality=snapshot without slice succeeds
	_, err = schema.Normalize(Fields{"table": "t", "temporality": "snapshot"}, now)
	require.NoError(t, err)
}

func TestNormalizeEnumRestrictions(t *testing.T) {
	schema := GetDataSchema()
	now := time.Now()

	_, err := schema.Normalize(Fields{"table": "t", "fill": "backward"}, now)
	require.Error(t, err)

	_, err = schema.Normalize(Fields{"table": "t", "temporality": "windowed"}, now)
	require.Error(t, err)

	fields, err := schema.Normalize(Fields{"table": "t", "fill": "zero"}, now)
	require.NoError(t, err)
	assert.Equal(t, "zero", BindGetData(fields).Fill)
}

func TestNormalizeTableRequired(t *testing.T) {
	for _, schema := range []*Schema{GetDataSchema(), CountBySchema()} {
		_, err := schema.Normalize(Fields{}, time.Now())
		require.Error(t, err, schema.Tool)
		ve, ok := err.(*ValidationError)
		require.True(t, ok)
		assert.Equal(t, "table", ve.Field)
	}
}
