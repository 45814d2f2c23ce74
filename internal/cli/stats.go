package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/kxtools/insights-mcp/internal/telemetry"
)

// ViewStatsCommand returns the CLI command definition for the 'view-stats'
// subcommand: a human-readable summary of the telemetry log.
func ViewStatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "view-stats",
		Usage: "Summarize telemetry log size and timing metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Telemetry log file path",
				Value: DefaultSizeLog,
			},
			&cli.StringFlag{
				Name:  "since",
				Usage: "Only include entries since this date (YYYY-MM-DD)",
			},
			&cli.StringFlag{
				Name:  "tool",
				Usage: "Only include entries for this tool",
			},
			&cli.BoolFlag{
				Name:  "detail",
				Usage: "Also print the most recent entries",
			},
		},
		Action: runViewStats,
	}
}

// runViewStats is pure read-side reporting; an absent or empty log is a
// normal outcome, not an error, and always exits 0.
func runViewStats(ctx context.Context, cmd *cli.Command) error {
	logFile := cmd.String("log-file")
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		fmt.Printf("No log file found at %s\n", logFile)
		return nil
	}

	tracker := telemetry.NewTracker(logFile)
	entries, err := tracker.Entries()
	if err != nil {
		fmt.Printf("No log file found at %s\n", logFile)
		return nil
	}

	filter := telemetry.StatsFilter{
		Tool: cmd.String("tool"),
	}
	if since := cmd.String("since"); since != "" {
		filter.Since = since + "T00:00:00"
	}

	matched := make([]telemetry.Entry, 0, len(entries))
	for _, e := range entries {
		if filter.Matches(e) {
			matched = append(matched, e)
		}
	}
	if len(matched) == 0 {
		fmt.Println("No matching logs found")
		return nil
	}

	stats := telemetry.Aggregate(matched, telemetry.StatsFilter{})

	rule := strings.Repeat("=", 80)
	thin := strings.Repeat("-", 80)

	fmt.Println(rule)
	fmt.Println("MCP API CALL SIZE SUMMARY")
	fmt.Println(rule)
	fmt.Printf("Total calls: %d\n", stats.TotalCalls)
	fmt.Printf("Date range: %s to %s\n", dateOf(stats.FirstTimestamp), dateOf(stats.LastTimestamp))
	fmt.Println()

	fmt.Println("BY TOOL:")
	fmt.Println(thin)
	for _, tool := range stats.ToolNames() {
		ts := stats.ByTool[tool]
		fmt.Printf("\n%s:\n", tool)
		fmt.Printf("  Calls:            %d\n", ts.Calls)
		fmt.Printf("  Total Query:      %s\n", formatMB(ts.TotalQueryMB))
		fmt.Printf("  Total Response:   %s\n", formatMB(ts.TotalResponseMB))
		fmt.Printf("  Avg Response:     %s\n", formatMB(ts.AvgResponseMB))
		fmt.Printf("  Max Response:     %s\n", formatMB(ts.MaxResponseMB))
		if ts.AvgDurationMS > 0 {
			fmt.Printf("  Avg Duration:     %.0f ms\n", ts.AvgDurationMS)
		}
	}

	fmt.Println()
	fmt.Println(rule)
	fmt.Println("OVERALL TOTALS:")
	fmt.Printf("  Total Query Data:    %s\n", formatMB(stats.TotalQueryMB))
	fmt.Printf("  Total Response Data: %s\n", formatMB(stats.TotalResponseMB))
	fmt.Printf("  Combined:            %s\n", formatMB(stats.TotalQueryMB+stats.TotalResponseMB))
	fmt.Println(rule)

	if cmd.Bool("detail") {
		fmt.Println("\nDETAILED LOGS:")
		fmt.Println(thin)
		start := len(matched) - 20
		if start < 0 {
			start = 0
		}
		for _, e := range matched[start:] {
			fmt.Printf("\n%s\n", e.Timestamp)
			fmt.Printf("  Tool:     %s\n", e.Tool)
			fmt.Printf("  Query:    %s\n", formatMB(e.QuerySizeMB))
			fmt.Printf("  Response: %s\n", formatMB(e.ResponseSizeMB))
			if e.QuerySummary != nil {
				fmt.Printf("  Summary:  %v\n", e.QuerySummary)
			}
			if e.DurationMS != nil {
				fmt.Printf("  Duration: %.0f ms\n", *e.DurationMS)
			}
		}
	}

	return nil
}

// formatMB renders a MiB figure, dropping to KB below one MiB.
func formatMB(mb float64) string {
	if mb < 1 {
		return fmt.Sprintf("%.2f KB", mb*1024)
	}
	return fmt.Sprintf("%.2f MB", mb)
}

// dateOf trims an RFC3339 timestamp to its date part.
func dateOf(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}
