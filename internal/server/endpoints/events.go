package endpoints

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/intakehq/intake/internal/analysis"
	"github.com/intakehq/intake/internal/api"
	"github.com/intakehq/intake/internal/svcctx"
)

// CompletionEventResponse acknowledges an accepted event.
type CompletionEventResponse struct {
	Accepted bool `json:"accepted"`
}

// CompletionEventEndpoint handles POST /api/events/completion. It is
// the webhook ingress for analysis backends that push completion
// notifications instead of using the queue.
type CompletionEventEndpoint struct {
	// WebhookToken authenticates the caller. Empty disables the route's
	// token check (local development with a mock backend).
	WebhookToken string
}

func (e *CompletionEventEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/events/completion", e.handler
}

func (e *CompletionEventEndpoint) RequiresInit() bool { return true }

func (e *CompletionEventEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if e.WebhookToken != "" {
		got := r.Header.Get("X-Webhook-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(e.WebhookToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid webhook token")
			return
		}
	}

	var ev analysis.CompletionEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload: "+err.Error())
		return
	}
	if ev.CorrelationHandle == "" {
		writeError(w, http.StatusBadRequest, "correlation_handle is required")
		return
	}

	// Correlation happens on the worker pool; duplicates and unknown
	// handles are settled there, so acceptance is unconditional.
	svcctx.RunnerFrom(r.Context()).EnqueueEvent(ev)

	writeJSON(w, http.StatusAccepted, CompletionEventResponse{Accepted: true})
}

func (e *CompletionEventEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputRef, reason string
	var failed bool

	cmd := &cobra.Command{
		Use:   "complete <correlation-handle>",
		Short: "Deliver a completion event (testing)",
		Long: `Deliver an analysis completion event to the server.

This mirrors what the analysis backend posts and is useful when testing
against a mock backend.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev := analysis.CompletionEvent{
				CorrelationHandle: args[0],
				Outcome:           analysis.OutcomeSuccess,
				OutputRef:         outputRef,
			}
			if failed {
				ev.Outcome = analysis.OutcomeFailure
				ev.Reason = reason
			}

			client := api.NewClient(getServerURL())
			var resp CompletionEventResponse
			if err := client.Post(cmd.Context(), "/api/events/completion", ev, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}

	cmd.Flags().StringVar(&outputRef, "output-ref", "", "blob reference of the analysis output")
	cmd.Flags().BoolVar(&failed, "failed", false, "deliver a failure event")
	cmd.Flags().StringVar(&reason, "reason", "", "failure reason")
	return cmd
}
