// Package webui serves a small dashboard over the telemetry log: aggregate
// stats as JSON, recent entries, and a WebSocket feed of calls as they are
// recorded.
package webui

import (
	"context"
	"embed"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"

	"github.com/kxtools/insights-mcp/internal/telemetry"
)

//go:embed static/index.html
var staticFiles embed.FS

// Server serves the embedded web UI and WebSocket updates.
type Server struct {
	tracker *telemetry.Tracker
}

// New creates a new web UI server.
func New(t *telemetry.Tracker) *Server {
	return &Server{tracker: t}
}

// RegisterRoutes attaches web UI routes to an existing ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ui/", s.handleUI)
	mux.HandleFunc("GET /ui", s.handleUIRedirect)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/entries", s.handleEntries)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// ListenAndServe starts a standalone HTTP server for the web UI.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// handleUIRedirect redirects /ui to /ui/ for consistent routing.
func (s *Server) handleUIRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/ui/", http.StatusMovedPermanently)
}

// handleUI serves the embedded index.html.
func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	data, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "UI not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// statsResponse is the JSON shape for /api/stats.
type statsResponse struct {
	TotalCalls      int                       `json:"total_calls"`
	TotalQueryMB    float64                   `json:"total_query_mb"`
	TotalResponseMB float64                   `json:"total_response_mb"`
	FirstTimestamp  string                    `json:"first_timestamp,omitempty"`
	LastTimestamp   string                    `json:"last_timestamp,omitempty"`
	ByTool          map[string]toolStatsBlock `json:"by_tool"`
}

type toolStatsBlock struct {
	Calls           int     `json:"calls"`
	TotalResponseMB float64 `json:"total_response_mb"`
	AvgResponseMB   float64 `json:"avg_response_mb"`
	MaxResponseMB   float64 `json:"max_response_mb"`
	AvgDurationMS   float64 `json:"avg_duration_ms"`
}

// handleStats returns aggregate stats, optionally filtered by since/tool.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := s.tracker.Stats(telemetry.StatsFilter{
		Since: q.Get("since"),
		Tool:  q.Get("tool"),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := statsResponse{
		TotalCalls:      stats.TotalCalls,
		TotalQueryMB:    stats.TotalQueryMB,
		TotalResponseMB: stats.TotalResponseMB,
		FirstTimestamp:  stats.FirstTimestamp,
		LastTimestamp:   stats.LastTimestamp,
		ByTool:          make(map[string]toolStatsBlock, len(stats.ByTool)),
	}
	for name, ts := range stats.ByTool {
		resp.ByTool[name] = toolStatsBlock{
			Calls:           ts.Calls,
			TotalResponseMB: ts.TotalResponseMB,
			AvgResponseMB:   ts.AvgResponseMB,
			MaxResponseMB:   ts.MaxResponseMB,
			AvgDurationMS:   ts.AvgDurationMS,
		}
	}
	writeJSON(w, resp)
}

// handleEntries returns recent log entries, newest last.
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	entries, err := s.tracker.Entries()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	filter := telemetry.StatsFilter{
		Since: q.Get("since"),
		Tool:  q.Get("tool"),
	}
	filtered := make([]telemetry.Entry, 0, len(entries))
	for _, e := range entries {
		if filter.Matches(e) {
			filtered = append(filtered, e)
		}
	}

	limit := 50
	if limitStr := q.Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}
	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}

	writeJSON(w, filtered)
}

// handleWebSocket upgrades to WebSocket and streams entries as they are
// recorded.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow any origin for localhost dev
	})
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	entryCh, unsubscribe := s.tracker.Subscribe()
	defer unsubscribe()

	// Backfill recent history so a fresh connection is not blank.
	const backfill = 20
	if entries, err := s.tracker.Entries(); err == nil {
		start := len(entries) - backfill
		if start < 0 {
			start = 0
		}
		for _, e := range entries[start:] {
			if err := writeEntry(ctx, conn, e); err != nil {
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-entryCh:
			if !ok {
				return
			}
			if err := writeEntry(ctx, conn, entry); err != nil {
				return
			}
		}
	}
}

func writeEntry(ctx context.Context, conn *websocket.Conn, entry telemetry.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("webui: encode response: %v", err)
	}
}
