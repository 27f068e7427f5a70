package endpoints

import (
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/intakehq/intake/internal/api"
	"github.com/intakehq/intake/internal/auth"
	"github.com/intakehq/intake/internal/status"
	"github.com/intakehq/intake/internal/svcctx"
)

// defaultListLimit caps list responses unless the client asks for less.
const defaultListLimit = 50

// ListJobsResponse is the response for GET /api/jobs.
type ListJobsResponse struct {
	Jobs []*status.Snapshot `json:"jobs"`
}

// ListJobsEndpoint handles GET /api/jobs.
type ListJobsEndpoint struct{}

func (e *ListJobsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs", e.handler
}

func (e *ListJobsEndpoint) RequiresInit() bool { return true }

func (e *ListJobsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.FromRequest(r, svcctx.VerifierFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n < limit {
			limit = n
		}
	}

	snaps, err := svcctx.StatusFrom(r.Context()).ListJobs(r.Context(), ownerID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ListJobsResponse{Jobs: snaps})
}

func (e *ListJobsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListJobsResponse
			path := "/api/jobs"
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of jobs to return")
	return cmd
}
