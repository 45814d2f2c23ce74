package params

import "time"

// Field names shared by the tool schemas.
const (
	FieldTable          = "table"
	FieldStartTime      = "start_time"
	FieldEndTime        = "end_time"
	FieldInputTimezone  = "input_timezone"
	FieldOutputTimezone = "output_timezone"
	FieldFilter         = "filter"
	FieldGroupBy        = "group_by"
	FieldAggregations   = "aggregations"
	FieldFill           = "fill"
	FieldTemporality    = "temporality"
	FieldSlice          = "slice"
	FieldSortColumns    = "sort_columns"
	FieldLabels         = "labels"
	FieldLimit          = "limit"

	FieldByCols  = "byCols"
	FieldStartTS = "startTS"
	FieldEndTS   = "endTS"
)

// defaultWindow is how far back start_time reaches when the caller gives no
// time range at all.
const defaultWindow = 15 * time.Minute

// GetDataSchema is the parameter contract for the insights_get_data tool.
func GetDataSchema() *Schema {
	return &Schema{
		Tool: "insights_get_data",
		Fields: []Field{
			{Name: FieldTable, Shape: NonEmptyString, Required: Always},
			{Name: FieldStartTime, Shape: NonEmptyString},
			{Name: FieldEndTime, Shape: NonEmptyString},
			{Name: FieldInputTimezone, Shape: NonEmptyString},
			{Name: FieldOutputTimezone, Shape: NonEmptyString},
			{Name: FieldFilter, Shape: FilterClauses},
			{Name: FieldGroupBy, Shape: StringOrList},
			{Name: FieldAggregations, Shape: AggregationsShape},
			{Name: FieldFill, Shape: Enum("forward", "zero")},
			{Name: FieldTemporality, Shape: Enum("slice", "snapshot")},
			{Name: FieldSlice, Shape: StringList},
			{Name: FieldSortColumns, Shape: StringOrList},
			{Name: FieldLabels, Shape: StringMap},
			{Name: FieldLimit, Shape: ClampedIntOrList},
		},
		Defaults: func(f Fields, now time.Time) {
			if _, ok := f[FieldLimit]; !ok {
				f[FieldLimit] = DefaultLimit()
			}
			// Missing time bounds default to a short trailing window ending
			// at the call time, so an unbounded query can never happen by
			// accident.
			if _, ok := f[FieldEndTime]; !ok {
				f[FieldEndTime] = now.UTC().Format(time.RFC3339)
			}
			if _, ok := f[FieldStartTime]; !ok {
				f[FieldStartTime] = now.UTC().Add(-defaultWindow).Format(time.RFC3339)
			}
		},
		PostCheck: checkSliceTemporality,
	}
}

// checkSliceTemporality is the one cross-field rule in the contract: slice
// is ignored unless temporality is "slice", in which case it is mandatory
// and non-empty. Kept as an explicit post-check so the two-state rule cannot
// be weakened by per-field edits.
func checkSliceTemporality(f Fields) error {
	if f[FieldTemporality] != "slice" {
		return nil
	}
	sl, _ := f[FieldSlice].([]string)
	if len(sl) == 0 {
		return validationf(FieldSlice, "must be provided as a non-empty list of strings when temporality is \"slice\"")
	}
	return nil
}

// CountBySchema is the parameter contract for the insights_get_countby tool.
// Unlike get_data, the time bounds have no defaults: countBy aggregates over
// the full range it is given, so the caller must state one.
func CountBySchema() *Schema {
	return &Schema{
		Tool: "insights_get_countby",
		Fields: []Field{
			{Name: FieldTable, Shape: NonEmptyString, Required: Always},
			{Name: FieldByCols, Shape: StringOrList, Required: Always},
			{Name: FieldStartTS, Shape: NonEmptyString, Required: Always},
			{Name: FieldEndTS, Shape: NonEmptyString, Required: Always},
			{Name: FieldLimit, Shape: ClampedIntOrList},
		},
		Defaults: func(f Fields, _ time.Time) {
			if _, ok := f[FieldLimit]; !ok {
				f[FieldLimit] = DefaultLimit()
			}
		},
	}
}

// GetDataCall is the canonical descriptor for one get_data invocation.
// Zero-valued optional fields were absent from the request.
type GetDataCall struct {
	Table          string
	StartTime      string
	EndTime        string
	InputTimezone  string
	OutputTimezone string
	Filter         []FilterClause
	GroupBy        []string
	Aggregations   *Aggregations
	Fill           string
	Temporality    string
	Slice          []string
	SortColumns    []string
	Labels         map[string]string
	Limit          Limit
}

// BindGetData assembles a typed descriptor from normalized fields.
func BindGetData(f Fields) *GetDataCall {
	call := &GetDataCall{
		Table:          str(f, FieldTable),
		StartTime:      str(f, FieldStartTime),
		EndTime:        str(f, FieldEndTime),
		InputTimezone:  str(f, FieldInputTimezone),
		OutputTimezone: str(f, FieldOutputTimezone),
		Fill:           str(f, FieldFill),
		Temporality:    str(f, FieldTemporality),
	}
	call.Filter, _ = f[FieldFilter].([]FilterClause)
	call.GroupBy, _ = f[FieldGroupBy].([]string)
	call.Slice, _ = f[FieldSlice].([]string)
	call.SortColumns, _ = f[FieldSortColumns].([]string)
	call.Labels, _ = f[FieldLabels].(map[string]string)
	if aggs, ok := f[FieldAggregations].(Aggregations); ok {
		call.Aggregations = &aggs
	}
	if limit, ok := f[FieldLimit].(Limit); ok {
		call.Limit = limit
	}
	return call
}

// Args returns the upstream keyword arguments, excluding the table name
// which travels separately in the gateway request.
func (c *GetDataCall) Args() map[string]any {
	args := map[string]any{
		FieldStartTime: c.StartTime,
		FieldEndTime:   c.EndTime,
		FieldLimit:     c.Limit,
	}
	if c.InputTimezone != "" {
		args[FieldInputTimezone] = c.InputTimezone
	}
	if c.OutputTimezone != "" {
		args[FieldOutputTimezone] = c.OutputTimezone
	}
	if c.Filter != nil {
		args[FieldFilter] = c.Filter
	}
	if c.GroupBy != nil {
		args[FieldGroupBy] = c.GroupBy
	}
	if c.Aggregations != nil {
		args[FieldAggregations] = *c.Aggregations
	}
	if c.Fill != "" {
		args[FieldFill] = c.Fill
	}
	if c.Temporality != "" {
		args[FieldTemporality] = c.Temporality
	}
	if c.Slice != nil {
		args[FieldSlice] = c.Slice
	}
	if c.SortColumns != nil {
		args[FieldSortColumns] = c.SortColumns
	}
	if c.Labels != nil {
		args[FieldLabels] = c.Labels
	}
	return args
}

// CountByCall is the canonical descriptor for one countBy invocation.
type CountByCall struct {
	Table   string
	ByCols  []string
	StartTS string
	EndTS   string
	Limit   Limit
}

// BindCountBy assembles a typed descriptor from normalized fields.
func BindCountBy(f Fields) *CountByCall {
	call := &CountByCall{
		Table:   str(f, FieldTable),
		StartTS: str(f, FieldStartTS),
		EndTS:   str(f, FieldEndTS),
	}
	call.ByCols, _ = f[FieldByCols].([]string)
	if limit, ok := f[FieldLimit].(Limit); ok {
		call.Limit = limit
	}
	return call
}

// Params returns the countBy UDA parameter object.
func (c *CountByCall) Params() map[string]any {
	return map[string]any{
		FieldTable:   c.Table,
		FieldByCols:  c.ByCols,
		FieldStartTS: c.StartTS,
		FieldEndTS:   c.EndTS,
		FieldLimit:   c.Limit,
	}
}

func str(f Fields, name string) string {
	s, _ := f[name].(string)
	return s
}
