package main

import (
	"github.com/spf13/cobra"

	"github.com/intakehq/intake/internal/api"
	"github.com/intakehq/intake/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Media analysis job orchestration service",
	Long: `Intake runs asynchronous media analysis jobs.

A job takes an uploaded recording, sends it to an external analysis
backend, extracts structured data from the resulting transcript with an
LLM, and validates the result against a form schema before publishing
it.

Jobs suspend while the analysis runs; completion events delivered over
SQS or the webhook endpoint resume them.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.intake/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
