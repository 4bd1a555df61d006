package scanning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zombor/fuel-tracker/internal/openai"
)

// responder is the part of the OpenAI client the scanner needs
type responder interface {
	CreateResponse(ctx context.Context, req openai.Request) (*openai.Response, error)
}

// OpenAI implements the Scanner interface using the Responses API with a
// strict JSON schema
type OpenAI struct {
	client responder
	model  string
}

// NewOpenAI creates a new OpenAI Scanner instance
func NewOpenAI(client *openai.Client) *OpenAI {
	return &OpenAI{client: client, model: client.Model()}
}

// NewOpenAIWithClient creates a scanner over any responder, used by tests
func NewOpenAIWithClient(client responder, model string) *OpenAI {
	return &OpenAI{client: client, model: model}
}

// ScanReceipt analyzes a receipt and extracts the fuel-up fields
func (o *OpenAI) ScanReceipt(ctx context.Context, imageData []byte, contentType string) (*ExtractionResult, error) {
	url, err := dataURL(imageData, contentType)
	if err != nil {
		return nil, err
	}

	req := openai.Request{
		Model: o.model,
		Input: []openai.InputMessage{{
			Role: "user",
			Content: []openai.InputContent{
				openai.InputText(fuelReceiptPrompt),
				openai.InputImage(url),
			},
		}},
		Text: &openai.TextOptions{Format: openai.Format{
			Type:   "json_schema",
			Name:   SchemaName,
			Schema: ReceiptSchema(),
			Strict: true,
		}},
	}

	resp, err := o.client.CreateResponse(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, shape, err := resp.StructuredOutput()
	if err != nil {
		slog.Error("Failed to find structured output", "response", truncate(string(resp.Raw), 2000))
		return nil, err
	}

	data, err := decodeExtraction(strictValidator, raw)
	if err != nil {
		slog.Error("Structured output rejected", "shape", shape, "error", err)
		return nil, fmt.Errorf("%w: %v", openai.ErrNoStructuredOutput, err)
	}
	slog.Debug("Parsed structured output", "shape", shape)
	return data, nil
}

// Close is a no-op, the HTTP client holds no resources
func (o *OpenAI) Close() error {
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
