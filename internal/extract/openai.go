package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/intakehq/intake/internal/forms"
)

const openAIDefaultModel = openai.ChatModelGPT4oMini

// OpenAIConfig configures the OpenAI extraction backend.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	MaxRetries int           // SDK transport retries (default 3)
	Timeout    time.Duration // HTTP timeout (default 120s)
	BaseURL    string        // Optional (tests, compatible gateways)
	HTTPClient *http.Client  // Optional (tests)
}

// OpenAIBackend extracts structured data using the OpenAI chat API.
type OpenAIBackend struct {
	model  string
	client openai.Client
}

// NewOpenAIBackend creates an OpenAI-backed extractor.
func NewOpenAIBackend(cfg OpenAIConfig) (*OpenAIBackend, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIBackend{
		model:  cfg.Model,
		client: openai.NewClient(opts...),
	}, nil
}

const systemPrompt = `You extract structured data from media analysis output.
Respond with a single JSON object and nothing else.`

// Extract sends the content and optional schema to the model and
// returns the parsed JSON document.
func (b *OpenAIBackend) Extract(ctx context.Context, content string, schema *forms.Schema) (json.RawMessage, error) {
	prompt, err := buildPrompt(content, schema)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("extraction returned no choices")
	}

	return parseModelJSON(resp.Choices[0].Message.Content)
}

func buildPrompt(content string, schema *forms.Schema) (string, error) {
	var sb strings.Builder

	if schema != nil {
		schemaJSON, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal form schema: %w", err)
		}
		fmt.Fprintf(&sb, `Fill in the form below from the analyzed content.

Form schema:
%s

Respond with: {"form_id": %q, "responses": {<field_id>: <value>, ...}}
For select and radio fields the value must be one of the declared options, verbatim.
For text fields the value must be a string.
Omit fields the content does not answer.

`, schemaJSON, schema.FormID)
	} else {
		sb.WriteString(`Summarize the analyzed content as JSON:
{"form_id": "freeform_v1", "responses": {"summary": <string>, "main_topics": <string>, "sentiment": <string>}}

`)
	}

	sb.WriteString("Analyzed content:\n")
	sb.WriteString(content)
	return sb.String(), nil
}
