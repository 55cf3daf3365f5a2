package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sourcecheck/internal/server"
	"github.com/jackzampolin/sourcecheck/internal/telemetry"
	"github.com/jackzampolin/sourcecheck/version"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sourcecheck server",
	Long: `Start the sourcecheck HTTP server.

The server opens the sqlite database in the home directory and serves the
source, rule, check, content and metrics APIs. The config file is watched;
reader settings apply immediately and check settings apply to the next run.
On Ctrl+C or SIGTERM the active run is stopped before the database closes.

The server provides:
  - /health       - Basic server health check
  - /ready        - Readiness check (includes store status)
  - /swagger.json - OpenAPI document

Examples:
  sourcecheck serve                    # Start on the configured port (default 8080)
  sourcecheck serve --port 3000        # Start on custom port
  sourcecheck serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := newLogger()
		if err != nil {
			return err
		}

		h, err := getHome()
		if err != nil {
			return err
		}

		mgr, err := loadConfig(h, logger)
		if err != nil {
			return err
		}
		mgr.WatchConfig()
		cfg := mgr.Get()

		if err := telemetry.Init(ctx, telemetry.Config{
			Enabled: cfg.Telemetry.Enabled,
			Stdout:  cfg.Telemetry.Stdout,
			Version: version.GitRelease,
		}); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			telemetry.Shutdown(shutdownCtx)
		}()

		host, port := serveHost, servePort
		if host == "" {
			host = cfg.Server.Host
		}
		if port == "" {
			port = cfg.Server.Port
		}

		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			Home:          h,
			ConfigManager: mgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: server.port)")

	rootCmd.AddCommand(serveCmd)
}
