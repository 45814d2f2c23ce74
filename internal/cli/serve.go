package cli

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/kxtools/insights-mcp/internal/guidance"
	"github.com/kxtools/insights-mcp/internal/insights"
	"github.com/kxtools/insights-mcp/internal/mcpserver"
	"github.com/kxtools/insights-mcp/internal/telemetry"
	"github.com/kxtools/insights-mcp/internal/webui"
)

// ServeCommand returns the CLI command definition for the 'serve' subcommand.
// It starts the MCP server on stdio, talking to the Insights service gateway.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the Insights MCP server on stdio",
		Description: `Starts an MCP server on stdio exposing the insights_get_data,
insights_get_meta, and insights_get_countby tools against a kdb Insights
service gateway. Every call's size and duration is appended to the
telemetry log for later rotation and reporting.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a JSON or YAML config file",
			},
			&cli.StringFlag{
				Name:  "gateway-url",
				Usage: "Base URL of the Insights service gateway",
			},
			&cli.StringFlag{
				Name:  "countby-uda",
				Usage: "Registered name of the countBy aggregation",
			},
			&cli.BoolFlag{
				Name:  "insecure",
				Usage: "Skip TLS certificate verification (development only)",
			},
			&cli.StringFlag{
				Name:  "size-log",
				Usage: "Telemetry log file path",
			},
			&cli.StringFlag{
				Name:  "guidance-dir",
				Usage: "Directory of guidance .md files overriding the embedded defaults",
			},
			&cli.StringFlag{
				Name:  "webui-host",
				Usage: "Web UI bind address",
			},
			&cli.IntFlag{
				Name:  "webui-port",
				Usage: "Web UI port (0 disables the dashboard)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose logging",
			},
		},
		Action: runServe,
	}
}

// runServe wires together all components: gateway client, telemetry tracker,
// guidance store, MCP server, and the optional web UI.
func runServe(cliCtx context.Context, cmd *cli.Command) error {
	cfg, err := LoadEffectiveConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	// Flags override config files.
	overlay := &Config{
		GatewayURL:  cmd.String("gateway-url"),
		CountByUDA:  cmd.String("countby-uda"),
		Insecure:    cmd.Bool("insecure"),
		SizeLog:     cmd.String("size-log"),
		GuidanceDir: cmd.String("guidance-dir"),
		WebUIHost:   cmd.String("webui-host"),
		WebUIPort:   cmd.Int("webui-port"),
		Verbose:     cmd.Bool("verbose"),
	}
	cfg = MergeConfigs(cfg, overlay)

	if cfg.Verbose {
		log.Println("Configuration:")
		log.Printf("  Gateway:   %s", cfg.GatewayURL)
		log.Printf("  Size log:  %s", cfg.SizeLog)
		if cfg.GuidanceDir != "" {
			log.Printf("  Guidance:  %s", cfg.GuidanceDir)
		}
		if cfg.WebUIPort > 0 {
			log.Printf("  Web UI:    %s:%d", cfg.WebUIHost, cfg.WebUIPort)
		}
	}

	client, err := insights.NewHTTPClient(insights.Config{
		GatewayURL: cfg.GatewayURL,
		CountByUDA: cfg.CountByUDA,
		Insecure:   cfg.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to create gateway client: %w", err)
	}

	tracker := telemetry.NewTracker(cfg.SizeLog)

	docs, err := guidance.NewStore(cfg.GuidanceDir, cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to load guidance documents: %w", err)
	}

	ctx, cancel := context.WithCancel(cliCtx)
	defer cancel()

	if err := docs.Start(ctx); err != nil {
		return fmt.Errorf("failed to start guidance watcher: %w", err)
	}

	server, err := mcpserver.NewServer(client, tracker, docs, mcpserver.ServerOptions{Verbose: cfg.Verbose})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Optional telemetry dashboard.
	if cfg.WebUIPort > 0 {
		addr := net.JoinHostPort(cfg.WebUIHost, strconv.Itoa(cfg.WebUIPort))
		ui := webui.New(tracker)
		go func() {
			log.Printf("Web UI listening on http://%s/ui/", addr)
			if err := ui.ListenAndServe(ctx, addr); err != nil {
				log.Printf("web UI stopped: %v", err)
			}
		}()
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		if cfg.Verbose {
			log.Printf("Received signal %v, shutting down", sig)
		}
		cancel()
	}()

	log.Println("MCP server ready on stdio")
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
