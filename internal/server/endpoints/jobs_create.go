package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/intakehq/intake/internal/api"
	"github.com/intakehq/intake/internal/auth"
	"github.com/intakehq/intake/internal/blob"
	"github.com/intakehq/intake/internal/forms"
	"github.com/intakehq/intake/internal/mediatype"
	"github.com/intakehq/intake/internal/svcctx"
)

// uploadURLTTL bounds how long a presigned upload URL stays valid.
const uploadURLTTL = 15 * time.Minute

// CreateJobRequest is the payload for POST /api/jobs.
type CreateJobRequest struct {
	Filename   string        `json:"filename"`
	SizeBytes  int64         `json:"size_bytes"`
	FormSchema *forms.Schema `json:"form_schema,omitempty"`
}

// CreateJobUpload describes where the client should PUT the media file.
type CreateJobUpload struct {
	URL          string `json:"url,omitempty"`
	Method       string `json:"method"`
	ContentType  string `json:"content_type"`
	MaxSizeBytes int64  `json:"max_size_bytes"`
}

// CreateJobResponse is the response for POST /api/jobs.
type CreateJobResponse struct {
	JobID     string          `json:"job_id"`
	Status    string          `json:"status"`
	SourceRef string          `json:"source_ref"`
	Upload    CreateJobUpload `json:"upload"`
}

// CreateJobEndpoint handles POST /api/jobs.
type CreateJobEndpoint struct{}

func (e *CreateJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/jobs", e.handler
}

func (e *CreateJobEndpoint) RequiresInit() bool { return true }

func (e *CreateJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := auth.FromRequest(r, svcctx.VerifierFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := mediatype.ValidateFilename(req.Filename); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := mediatype.ValidateSize(req.SizeBytes); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	contentType, err := mediatype.ContentType(req.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The upload key is minted before the job record so the source ref
	// is immutable from creation onward.
	sourceRef := fmt.Sprintf("uploads/%s/%s", uuid.NewString(), req.Filename)

	eng := svcctx.EngineFrom(r.Context())
	j, err := eng.CreateJob(r.Context(), ownerID, sourceRef, req.FormSchema)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := CreateJobResponse{
		JobID:     j.ID,
		Status:    string(j.Status),
		SourceRef: sourceRef,
		Upload: CreateJobUpload{
			Method:       http.MethodPut,
			ContentType:  contentType,
			MaxSizeBytes: mediatype.MaxFileSizeBytes,
		},
	}

	// S3-backed stores hand out a presigned PUT; filesystem stores
	// expect the media to be placed under the data root directly.
	url, err := blob.SignPut(svcctx.BlobsFrom(r.Context()), sourceRef, contentType, uploadURLTTL)
	if err != nil && !errors.Is(err, blob.ErrSigningUnsupported) {
		writeError(w, http.StatusInternalServerError, "failed to sign upload url: "+err.Error())
		return
	}
	resp.Upload.URL = url

	if runner := svcctx.RunnerFrom(r.Context()); runner != nil {
		runner.Enqueue(j.ID)
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (e *CreateJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	var schemaFile string
	var sizeBytes int64

	cmd := &cobra.Command{
		Use:   "create <filename>",
		Short: "Create an analysis job",
		Long: `Create an analysis job for a media file.

The server validates the file type, mints an upload location, and
returns the job id to poll. Pass --schema-file to attach a form schema
the structured results must conform to.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := CreateJobRequest{Filename: args[0], SizeBytes: sizeBytes}

			if schemaFile != "" {
				data, err := os.ReadFile(schemaFile)
				if err != nil {
					return fmt.Errorf("failed to read schema file: %w", err)
				}
				var schema forms.Schema
				if err := json.Unmarshal(data, &schema); err != nil {
					return fmt.Errorf("failed to parse schema file: %w", err)
				}
				req.FormSchema = &schema
			}

			client := api.NewClient(getServerURL())
			var resp CreateJobResponse
			if err := client.Post(cmd.Context(), "/api/jobs", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}

	cmd.Flags().StringVar(&schemaFile, "schema-file", "", "JSON file with the form schema")
	cmd.Flags().Int64Var(&sizeBytes, "size", 0, "declared file size in bytes")
	return cmd
}
