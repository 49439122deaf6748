package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/meta-ads-mcp/internal/mcpserver"
	"github.com/giantswarm/meta-ads-mcp/pkg/logging"
)

var (
	serveTransport string
	serveHTTPAddr  string
)

// serveCmd runs the MCP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Starts the Meta Ads MCP server and registers the get_login_link tool.

By default the server speaks MCP over stdio, which is what MCP hosts such as
Claude Desktop or Cursor expect when they spawn the process. Use
--transport streamable-http to serve over HTTP instead.

Logs are always written to stderr so stdout stays reserved for the protocol.

Configuration is read from config.yaml in --config-dir and from environment
variables (META_APP_ID, META_APP_SECRET, META_ACCESS_TOKEN, ...).`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, err := mcpserver.ParseTransport(serveTransport)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.InitForMCP(level)

	a := newApp(cfg, true)
	defer a.Close()

	if !cfg.LoginLinkEnabled() {
		logging.Info("Serve", "Login link capability is disabled")
	}

	srv := mcpserver.New(a.orchestrator, GetVersion())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return srv.Serve(gctx, transport, serveHTTPAddr, os.Stdin, os.Stdout)
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Info("Serve", "Shutting down")
		// Release the callback port even if a login is still pending.
		return a.manager.Close()
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveTransport, "transport", string(mcpserver.TransportStdio), "MCP transport: stdio or streamable-http")
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http-addr", "localhost:8090", "Listen address for the streamable-http transport")
}
