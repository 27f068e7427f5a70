// Package extract is the contract with the structured-extraction
// backend: an LLM that converts analysis output (transcript, OCR text)
// into structured JSON shaped by an optional form schema.
package extract

import (
	"context"
	"encoding/json"

	"github.com/intakehq/intake/internal/forms"
)

// Backend extracts structured data from content. The call is
// synchronous from the stage handler's perspective.
type Backend interface {
	Extract(ctx context.Context, content string, schema *forms.Schema) (json.RawMessage, error)
}
