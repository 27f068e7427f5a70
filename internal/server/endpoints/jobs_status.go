package endpoints

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/intakehq/intake/internal/api"
	"github.com/intakehq/intake/internal/auth"
	"github.com/intakehq/intake/internal/job"
	"github.com/intakehq/intake/internal/status"
	"github.com/intakehq/intake/internal/svcctx"
)

// JobStatusEndpoint handles GET /api/jobs/{id}.
type JobStatusEndpoint struct{}

func (e *JobStatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs/{id}", e.handler
}

func (e *JobStatusEndpoint) RequiresInit() bool { return true }

func (e *JobStatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.FromRequest(r, svcctx.VerifierFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job id is required")
		return
	}

	snap, err := svcctx.StatusFrom(r.Context()).GetStatus(r.Context(), id, ownerID)
	if err != nil {
		switch {
		case errors.Is(err, job.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, auth.ErrForbidden):
			writeError(w, http.StatusForbidden, "job belongs to another owner")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (e *JobStatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Get a job's status",
		Long: `Get the current status of a job you own.

Completed jobs report the artifact references for the transcript and
the validated structured data. Failed jobs report the error kind, the
stage that failed, and a message.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var snap status.Snapshot
			if err := client.Get(cmd.Context(), "/api/jobs/"+args[0], &snap); err != nil {
				return err
			}
			return api.Output(snap)
		},
	}
}
