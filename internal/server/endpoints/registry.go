package endpoints

import (
	"github.com/intakehq/intake/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// WebhookToken authenticates pushed completion events.
	WebhookToken string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},

		// Job endpoints
		&CreateJobEndpoint{},
		&ListJobsEndpoint{},
		&JobStatusEndpoint{},

		// Event ingress
		&CompletionEventEndpoint{WebhookToken: cfg.WebhookToken},
	}
}

// JobCommands returns endpoints for job operations.
// This groups job-related commands under "jobs" subcommand.
func JobCommands() []api.Endpoint {
	return []api.Endpoint{
		&CreateJobEndpoint{},
		&ListJobsEndpoint{},
		&JobStatusEndpoint{},
	}
}
