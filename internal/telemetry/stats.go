package telemetry

import "sort"

// Stats is the aggregate view over a telemetry log. All computation is
// read-side; building a Stats never touches the log file beyond one read.
type Stats struct {
	TotalCalls      int
	TotalQueryMB    float64
	TotalResponseMB float64
	FirstTimestamp  string
	LastTimestamp   string
	ByTool          map[string]*ToolStats
}

// ToolStats aggregates one tool's calls.
type ToolStats struct {
	Calls           int
	TotalQueryMB    float64
	TotalResponseMB float64
	AvgResponseMB   float64
	MaxResponseMB   float64
	TotalDurationMS float64
	AvgDurationMS   float64

	durationSamples int
}

// StatsFilter narrows which entries contribute to the aggregate. Zero
// values mean "no filter".
type StatsFilter struct {
	// Since keeps entries with Timestamp >= Since. Timestamps are RFC3339
	// UTC, so the comparison is lexicographic; a bare date like
	// "2026-08-01" works as a prefix bound.
	Since string
	// Tool keeps entries for one tool name.
	Tool string
}

// Matches reports whether an entry passes the filter.
func (f StatsFilter) Matches(e Entry) bool {
	if f.Since != "" && e.Timestamp < f.Since {
		return false
	}
	if f.Tool != "" && e.Tool != f.Tool {
		return false
	}
	return true
}

// Stats aggregates the log under the given filter.
func (t *Tracker) Stats(filter StatsFilter) (*Stats, error) {
	entries, err := t.Entries()
	if err != nil {
		return nil, err
	}
	return Aggregate(entries, filter), nil
}

// Aggregate computes statistics over a set of entries.
func Aggregate(entries []Entry, filter StatsFilter) *Stats {
	stats := &Stats{ByTool: make(map[string]*ToolStats)}

	for _, e := range entries {
		if !filter.Matches(e) {
			continue
		}

		stats.TotalCalls++
		stats.TotalQueryMB += e.QuerySizeMB
		stats.TotalResponseMB += e.ResponseSizeMB
		if stats.FirstTimestamp == "" {
			stats.FirstTimestamp = e.Timestamp
		}
		stats.LastTimestamp = e.Timestamp

		ts := stats.ByTool[e.Tool]
		if ts == nil {
			ts = &ToolStats{}
			stats.ByTool[e.Tool] = ts
		}
		ts.Calls++
		ts.TotalQueryMB += e.QuerySizeMB
		ts.TotalResponseMB += e.ResponseSizeMB
		if e.ResponseSizeMB > ts.MaxResponseMB {
			ts.MaxResponseMB = e.ResponseSizeMB
		}
		if e.DurationMS != nil {
			ts.TotalDurationMS += *e.DurationMS
			ts.durationSamples++
		}
	}

	for _, ts := range stats.ByTool {
		ts.AvgResponseMB = ts.TotalResponseMB / float64(ts.Calls)
		if ts.durationSamples > 0 {
			ts.AvgDurationMS = ts.TotalDurationMS / float64(ts.durationSamples)
		}
	}
	return stats
}

// ToolNames returns the tool names present in the aggregate, sorted.
func (s *Stats) ToolNames() []string {
	names := make([]string, 0, len(s.ByTool))
	for name := range s.ByTool {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
