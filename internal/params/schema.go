// Package params turns untrusted JSON tool parameters into validated,
// canonical call descriptors. Each tool declares its contract as a Schema:
// an allow-list of fields, a Shape per field, required-when predicates, and
// cross-field post-checks. One generic engine consumes the schemas, so the
// tools differ only in data, not in validation code.
package params

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// Fields holds normalized parameter values keyed by field name. Values are
// in canonical form (e.g. []string for scalar-or-list fields) once Normalize
// has run.
type Fields map[string]any

// Field declares one parameter: its name, the Shape that validates and
// canonicalizes it, and an optional requirement predicate. A nil Required
// means the field is optional.
type Field struct {
	Name     string
	Shape    Shape
	Required func(Fields) bool
}

// Always marks a field as unconditionally required.
func Always(Fields) bool { return true }

// Schema is the full declarative contract for one tool's parameters.
type Schema struct {
	Tool   string
	Fields []Field

	// Defaults fills in values for absent optional fields after per-field
	// validation. now is the wall-clock time of the call, injected so time
	// defaults are testable.
	Defaults func(f Fields, now time.Time)

	// PostCheck enforces cross-field invariants that cannot be expressed
	// per field, such as "slice is mandatory when temporality is slice".
	// It runs after every field has been validated.
	PostCheck func(f Fields) error
}

// ParseObject decodes a raw JSON document and requires the top level to be
// an object. Numbers are preserved as json.Number so integral checks do not
// lose precision.
func ParseObject(raw string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &InvalidInputError{Reason: "query must be valid JSON: " + err.Error(), Err: err}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, invalidf("query JSON must be an object")
	}
	return obj, nil
}

// Allowed returns the schema's allow-list: the set of field names the tool
// accepts.
func (s *Schema) Allowed() map[string]bool {
	allowed := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		allowed[f.Name] = true
	}
	return allowed
}

// Sanitize strips every key not in the allow-list and reports what was
// dropped. Dropped keys are sorted so diagnostic messages are deterministic.
// Nothing is ever silently discarded: the caller decides what to do with
// the report, but the information survives this stage.
func (s *Schema) Sanitize(raw map[string]any) (Fields, []string) {
	allowed := s.Allowed()

	clean := make(Fields, len(raw))
	dropped := []string{}
	for k, v := range raw {
		if allowed[k] {
			clean[k] = v
		} else {
			dropped = append(dropped, k)
		}
	}
	sort.Strings(dropped)
	return clean, dropped
}

// Normalize validates every sanitized field against its Shape, enforces
// requirement predicates, applies defaults, and runs cross-field
// post-checks. The returned Fields hold only canonical values.
func (s *Schema) Normalize(clean Fields, now time.Time) (Fields, error) {
	norm := make(Fields, len(clean))

	for _, f := range s.Fields {
		v, present := clean[f.Name]
		if !present || v == nil {
			continue
		}
		canonical, err := f.Shape(f.Name, v)
		if err != nil {
			return nil, err
		}
		norm[f.Name] = canonical
	}

	// Requirement predicates see the normalized values of other fields, so
	// they run after the per-field pass.
	for _, f := range s.Fields {
		if f.Required == nil {
			continue
		}
		if _, present := norm[f.Name]; !present && f.Required(norm) {
			return nil, validationf(f.Name, "missing required param")
		}
	}

	if s.Defaults != nil {
		s.Defaults(norm, now)
	}
	if s.PostCheck != nil {
		if err := s.PostCheck(norm); err != nil {
			return nil, err
		}
	}
	return norm, nil
}
