package main

import (
	"context"
	"fmt"
	"os"

	cliframework "github.com/urfave/cli/v3"

	"github.com/kxtools/insights-mcp/internal/cli"
)

const version = "0.2.0"

func main() {
	app := &cliframework.Command{
		Name:    "insights-mcp",
		Usage:   "MCP server for kdb Insights queries",
		Version: version,
		Commands: []*cliframework.Command{
			cli.ServeCommand(),
			cli.RotateCommand(),
			cli.ViewStatsCommand(),
			cli.DoctorCommand(version),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
