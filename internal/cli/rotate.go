package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/urfave/cli/v3"

	"github.com/kxtools/insights-mcp/internal/telemetry"
)

// RotateCommand returns the CLI command definition for the 'rotate'
// subcommand: archive the telemetry log and trim it to a retention window.
func RotateCommand() *cli.Command {
	return &cli.Command{
		Name:  "rotate",
		Usage: "Archive and trim the telemetry size log",
		Description: `Copies the live telemetry log to a timestamped archive, then rewrites
the live log keeping only entries newer than the retention window. The
archive is written before the live file is touched, so an interrupted
rotation never loses data.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Telemetry log file path",
				Value: DefaultSizeLog,
			},
			&cli.IntFlag{
				Name:  "keep-days",
				Usage: "Number of days of entries to keep",
				Value: telemetry.DefaultKeepDays,
			},
		},
		Action: runRotate,
	}
}

// runRotate always exits 0: rotation problems are reported, not fatal, so
// cron-style invocations never page on a missing log.
func runRotate(ctx context.Context, cmd *cli.Command) error {
	tracker := telemetry.NewTracker(cmd.String("log-file"))

	archived, err := tracker.Rotate(cmd.Int("keep-days"))
	if err != nil {
		log.Printf("rotation failed: %v", err)
		return nil
	}

	fmt.Printf("Archived %d old entries\n", archived)
	return nil
}
