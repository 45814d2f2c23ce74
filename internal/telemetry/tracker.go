// Package telemetry records per-call size and timing metrics to a durable
// JSON log. Recording is strictly best-effort: a telemetry failure is logged
// to stderr and swallowed, and can never be the reason a tool call fails.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// bytesPerMiB converts serialized byte counts to the MiB figures stored in
// the log.
const bytesPerMiB = 1024 * 1024

// summaryMaxString is the longest string value kept verbatim in a query
// summary before truncation.
const summaryMaxString = 100

// Entry is one durable record of a call's size and timing metrics. Entries
// are immutable once appended.
type Entry struct {
	ID             string   `json:"id"`
	Timestamp      string   `json:"timestamp"`
	Tool           string   `json:"tool"`
	QuerySizeMB    float64  `json:"query_size_mb"`
	ResponseSizeMB float64  `json:"response_size_mb"`
	DurationMS     *float64 `json:"duration_ms"`
	QuerySummary   any      `json:"query_summary"`
}

// Tracker appends call metrics to a JSON log file. The log is a single JSON
// array rewritten wholesale on each append, so the whole read-append-rewrite
// cycle runs under one mutex to keep concurrent callers from losing entries.
type Tracker struct {
	path string

	mu sync.Mutex // serializes all log file access

	now func() time.Time

	subMu sync.Mutex
	subs  map[chan Entry]struct{}
}

// NewTracker creates a tracker writing to the given log file. The file is
// created on first append.
func NewTracker(path string) *Tracker {
	return &Tracker{
		path: path,
		now:  time.Now,
		subs: make(map[chan Entry]struct{}),
	}
}

// Path returns the log file path.
func (t *Tracker) Path() string { return t.path }

// Record measures the query and response and appends one entry to the log.
// All failures are logged and swallowed; the returned entry reflects what
// was (or would have been) written.
func (t *Tracker) Record(tool string, query, response any, duration time.Duration) Entry {
	ms := float64(duration) / float64(time.Millisecond)
	entry := Entry{
		ID:             uuid.NewString(),
		Timestamp:      t.now().UTC().Format(time.RFC3339),
		Tool:           tool,
		QuerySizeMB:    SizeMB(query),
		ResponseSizeMB: SizeMB(response),
		DurationMS:     &ms,
		QuerySummary:   Summarize(query),
	}

	if err := t.append(entry); err != nil {
		log.Printf("telemetry: failed to record %s call: %v", tool, err)
	}
	t.publish(entry)

	return entry
}

// Observe wraps one tool call: it measures wall-clock duration, forwards the
// response unaltered, and records the call. The response type is generic so
// the observer stays transparent to whatever pipeline it wraps.
func Observe[T any](t *Tracker, tool string, query any, fn func() T) T {
	start := time.Now()
	response := fn()
	t.Record(tool, query, response, time.Since(start))
	return response
}

// append performs the serialized read-modify-write cycle for one entry.
func (t *Tracker) append(entry Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries, err := t.readLocked()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	return t.writeLocked(entries)
}

// Entries returns every entry currently in the log, oldest first. A missing
// log file is an empty log, not an error.
func (t *Tracker) Entries() ([]Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readLocked()
}

func (t *Tracker) readLocked() ([]Entry, error) {
	data, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read log %s: %w", t.path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse log %s: %w", t.path, err)
	}
	return entries, nil
}

func (t *Tracker) writeLocked(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode log: %w", err)
	}
	if err := os.WriteFile(t.path, data, 0o644); err != nil {
		return fmt.Errorf("write log %s: %w", t.path, err)
	}
	return nil
}

// Subscribe returns a channel receiving each entry as it is recorded, plus
// an unsubscribe function. Slow consumers drop updates rather than blocking
// the recorder.
func (t *Tracker) Subscribe() (<-chan Entry, func()) {
	ch := make(chan Entry, 16)

	t.subMu.Lock()
	t.subs[ch] = struct{}{}
	t.subMu.Unlock()

	unsubscribe := func() {
		t.subMu.Lock()
		delete(t.subs, ch)
		t.subMu.Unlock()
	}
	return ch, unsubscribe
}

func (t *Tracker) publish(entry Entry) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	for ch := range t.subs {
		select {
		case ch <- entry:
		default:
		}
	}
}

// SizeMB returns the serialized size of v in MiB. Strings count their UTF-8
// bytes; everything else is measured as JSON. Unencodable values measure as
// zero rather than failing.
func SizeMB(v any) float64 {
	var size int
	switch val := v.(type) {
	case string:
		size = len(val)
	case []byte:
		size = len(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return 0
		}
		size = len(data)
	}
	return float64(size) / bytesPerMiB
}

// Summarize builds a compact representation of a query for the log entry.
// Long strings are truncated with an ellipsis marker and collections are
// reduced to a type-and-length note, so one oversized query cannot bloat
// the log.
func Summarize(query any) any {
	switch q := query.(type) {
	case map[string]any:
		summary := make(map[string]any, len(q))
		for k, v := range q {
			summary[k] = summarizeValue(v)
		}
		return summary
	case string:
		return truncate(q)
	default:
		return truncate(fmt.Sprintf("%v", q))
	}
}

func summarizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return truncate(val)
	case []any:
		return fmt.Sprintf("<list len=%d>", len(val))
	case map[string]any:
		return fmt.Sprintf("<map len=%d>", len(val))
	default:
		return val
	}
}

func truncate(s string) string {
	if len(s) > summaryMaxString {
		return s[:summaryMaxString] + "..."
	}
	return s
}
