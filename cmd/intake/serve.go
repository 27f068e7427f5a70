package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/intakehq/intake/internal/config"
	"github.com/intakehq/intake/internal/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the intake server",
	Long: `Start the intake HTTP server.

The server accepts analysis jobs, drives them through the workflow on a
worker pool, and resumes suspended jobs when completion events arrive
over SQS or the webhook endpoint.

The server provides:
  - /health                 - Basic server health check
  - /ready                  - Readiness check (includes the job store)
  - /api/jobs               - Create and list jobs
  - /api/jobs/{id}          - Job status
  - /api/events/completion  - Completion event webhook

Examples:
  intake serve                    # Start on default port 8280
  intake serve --port 3000        # Start on custom port
  intake serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		mgr.WatchConfig()

		cfg := mgr.Get()
		if serveHost != "" {
			cfg.Server.Host = serveHost
		}
		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		srv, err := server.New(server.Config{
			Config: cfg,
			Logger: logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config <path>",
	Short: "Write a default config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.WriteDefault(args[0])
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initConfigCmd)
}
