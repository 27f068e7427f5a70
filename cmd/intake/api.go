package main

import (
	"github.com/spf13/cobra"

	"github.com/intakehq/intake/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running intake server via HTTP.

These commands require a running server (intake serve).
Use --server to specify a custom server URL. Job commands authenticate
with the bearer token in INTAKE_TOKEN.

Examples:
  intake api health                 # Check server health
  intake api jobs create a.mp3      # Create a job
  intake api jobs status <id>       # Get a job's status`,
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Job management commands",
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Completion event commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8280", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))

	// Jobs as subcommand group
	for _, ep := range endpoints.JobCommands() {
		jobsCmd.AddCommand(ep.Command(getServerURL))
	}

	// Event delivery for testing against mock backends
	eventsCmd.AddCommand((&endpoints.CompletionEventEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(jobsCmd)
	apiCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(apiCmd)
}
