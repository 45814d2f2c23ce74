package params

import (
	"encoding/json"
	"math"
)

// MaxRowsReturned is the hard ceiling on rows surfaced to a caller. The same
// constant bounds the limit parameter forwarded upstream: limits are clamped
// into [-MaxRowsReturned, MaxRowsReturned] rather than rejected.
const MaxRowsReturned = 1000

// A Shape validates one raw field value and returns its canonical form.
// field is the parameter name, used only for error messages.
type Shape func(field string, v any) (any, error)

// NonEmptyString accepts a non-empty string.
func NonEmptyString(field string, v any) (any, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil, validationf(field, "must be a non-empty string")
	}
	return s, nil
}

// StringOrList accepts a string or a list of strings and collapses both into
// the canonical []string form used downstream.
func StringOrList(field string, v any) (any, error) {
	switch val := v.(type) {
	case string:
		return []string{val}, nil
	case []any:
		return stringSlice(field, val)
	case []string:
		return val, nil
	}
	return nil, validationf(field, "must be a string or list of strings")
}

// StringList accepts only a list of strings, never a bare scalar.
func StringList(field string, v any) (any, error) {
	switch val := v.(type) {
	case []any:
		return stringSlice(field, val)
	case []string:
		return val, nil
	}
	return nil, validationf(field, "must be a list of strings")
}

func stringSlice(field string, vals []any) ([]string, error) {
	out := make([]string, len(vals))
	for i, item := range vals {
		s, ok := item.(string)
		if !ok {
			return nil, validationf(field, "must contain only strings")
		}
		out[i] = s
	}
	return out, nil
}

// Enum accepts a string drawn from a fixed set of values.
func Enum(allowed ...string) Shape {
	return func(field string, v any) (any, error) {
		s, ok := v.(string)
		if ok {
			for _, a := range allowed {
				if s == a {
					return s, nil
				}
			}
		}
		return nil, validationf(field, "must be one of %v", allowed)
	}
}

// StringMap accepts an object whose values are all strings.
func StringMap(field string, v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]string, len(val))
		for k, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, validationf(field, "values must all be strings")
			}
			out[k] = s
		}
		return out, nil
	case map[string]string:
		return val, nil
	}
	return nil, validationf(field, "must be a mapping of string to string")
}

// A FilterClause is one upstream filter condition in the wire shape
// ["function", "column", parameter]. Elements are kept as received; the
// contract only requires exactly three of them.
type FilterClause []any

// FilterClauses accepts a list of 3-element filter conditions.
func FilterClauses(field string, v any) (any, error) {
	vals, ok := v.([]any)
	if !ok {
		return nil, validationf(field, "must be a list of conditions")
	}
	out := make([]FilterClause, len(vals))
	for i, item := range vals {
		clause, ok := item.([]any)
		if !ok || len(clause) != 3 {
			return nil, validationf(field, "each condition must be a 3-item list: [\"function\",\"column\",parameter]")
		}
		out[i] = FilterClause(clause)
	}
	return out, nil
}

// Aggregations is the canonical form of the aggregations parameter. Exactly
// one of Columns or Assignments is populated: mixed input shapes are a
// validation failure, never silently merged.
type Aggregations struct {
	Columns     []string    // bare aggregation/column names
	Assignments [][3]string // [assignName, aggFn, column] triplets
}

// MarshalJSON emits the wire shape the upstream engine expects: a list of
// strings or a list of 3-string lists.
func (a Aggregations) MarshalJSON() ([]byte, error) {
	if a.Assignments != nil {
		return json.Marshal(a.Assignments)
	}
	return json.Marshal(a.Columns)
}

// AggregationsShape accepts a string, a list of strings, or a list of
// 3-string triplets. The two list forms must not be mixed.
func AggregationsShape(field string, v any) (any, error) {
	switch val := v.(type) {
	case string:
		return Aggregations{Columns: []string{val}}, nil
	case []any:
		if len(val) == 0 {
			return Aggregations{Columns: []string{}}, nil
		}
		switch val[0].(type) {
		case string:
			cols, err := stringSlice(field, val)
			if err != nil {
				return nil, validationf(field, "must be all strings or all 3-string triplets, not a mix")
			}
			return Aggregations{Columns: cols}, nil
		case []any:
			triplets := make([][3]string, len(val))
			for i, item := range val {
				trip, ok := item.([]any)
				if !ok {
					return nil, validationf(field, "must be all strings or all 3-string triplets, not a mix")
				}
				if len(trip) != 3 {
					return nil, validationf(field, "triplets must be [\"assignName\",\"aggFn\",\"column\"] (3 strings)")
				}
				for j, elem := range trip {
					s, ok := elem.(string)
					if !ok {
						return nil, validationf(field, "triplets must be [\"assignName\",\"aggFn\",\"column\"] (3 strings)")
					}
					triplets[i][j] = s
				}
			}
			return Aggregations{Assignments: triplets}, nil
		}
	}
	return nil, validationf(field, "must be a string, list of strings, or list of 3-string triplets")
}

// Limit is the canonical form of the limit parameter. Values is always the
// list form; Scalar records whether the caller sent a bare integer so the
// wire shape survives the round trip (a scalar -10 means "last 10 rows"
// upstream, which a 1-element list does not).
type Limit struct {
	Values []int
	Scalar bool
}

// MarshalJSON preserves the scalar-vs-list wire shape.
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.Scalar && len(l.Values) == 1 {
		return json.Marshal(l.Values[0])
	}
	return json.Marshal(l.Values)
}

// DefaultLimit is the limit applied when the caller omits one.
func DefaultLimit() Limit {
	return Limit{Values: []int{MaxRowsReturned}, Scalar: true}
}

// Clamp saturates n into [-MaxRowsReturned, MaxRowsReturned]. Clamping is
// idempotent: an already-clamped value maps to itself.
func Clamp(n int) int {
	if n > MaxRowsReturned {
		return MaxRowsReturned
	}
	if n < -MaxRowsReturned {
		return -MaxRowsReturned
	}
	return n
}

// ClampedIntOrList accepts an integer or a list of integers, clamping every
// value into [-MaxRowsReturned, MaxRowsReturned]. Out-of-range values are
// saturated, not rejected. Zero is rejected inside lists: a zero row count
// is meaningless in the list form upstream.
func ClampedIntOrList(field string, v any) (any, error) {
	if n, ok := intValue(v); ok {
		return Limit{Values: []int{Clamp(n)}, Scalar: true}, nil
	}
	if vals, ok := v.([]any); ok {
		out := make([]int, len(vals))
		for i, item := range vals {
			n, ok := intValue(item)
			if !ok || n == 0 {
				return nil, validationf(field, "must be an integer or list of non-zero integers")
			}
			out[i] = Clamp(n)
		}
		return Limit{Values: out}, nil
	}
	return nil, validationf(field, "must be an integer or list of integers")
}

// intValue extracts an integral value from the shapes encoding/json may
// produce. Floats with a fractional part are not integers.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}
