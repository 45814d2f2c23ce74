package insights

import "fmt"

// Meta is the engine's structured metadata document. The gateway returns an
// object keyed by section name (rc, dap, api, agg, assembly, schema); the
// sections themselves are engine-defined, so they stay loosely typed with
// navigation helpers for the shapes the tools rely on.
type Meta struct {
	Sections map[string]any
}

// SectionNames lists the metadata sections the engine publishes.
func SectionNames() []string {
	return []string{"rc", "dap", "api", "agg", "assembly", "schema"}
}

// Section returns one metadata section by key.
func (m *Meta) Section(key string) (any, bool) {
	v, ok := m.Sections[key]
	return v, ok
}

// TableSchema returns the column schema for one table. The schema section is
// a pair of parallel lists: "table" (names) and "columns" (one column record
// per table).
func (m *Meta) TableSchema(table string) (map[string]any, error) {
	section, ok := m.Sections["schema"]
	if !ok {
		return nil, fmt.Errorf("metadata has no schema section")
	}
	schema, ok := section.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema section has unexpected shape")
	}

	names, ok := schema["table"].([]any)
	if !ok {
		return nil, fmt.Errorf("schema section has no table list")
	}
	columns, ok := schema["columns"].([]any)
	if !ok {
		return nil, fmt.Errorf("schema section has no columns list")
	}

	for i, name := range names {
		if name != table {
			continue
		}
		if i >= len(columns) {
			return nil, fmt.Errorf("schema for table %q is missing", table)
		}
		record, ok := columns[i].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("schema for table %q has unexpected shape", table)
		}
		return record, nil
	}
	return nil, fmt.Errorf("table %q not found in schema", table)
}

// Tables lists the table names present in the schema section.
func (m *Meta) Tables() []string {
	section, ok := m.Sections["schema"]
	if !ok {
		return nil
	}
	schema, ok := section.(map[string]any)
	if !ok {
		return nil
	}
	names, ok := schema["table"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if s, ok := n.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
