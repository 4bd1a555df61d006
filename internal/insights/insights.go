// Package insights asks the language model for a short plain-text summary of
// a selection of fuel logs.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/zombor/fuel-tracker/internal/fuellog"
	"github.com/zombor/fuel-tracker/internal/openai"
)

const (
	// DefaultModel is used when no insights model is configured
	DefaultModel = "gpt-5-mini"
	// MaxSample is how many records are sent to the model at most
	MaxSample = 80
	// NoContent is returned when the model answered without any text
	NoContent = "No content"
)

const systemPrompt = "You write concise, fact-based summaries."

var summaryPrompt = strings.Join([]string{
	"You are an assistant analyzing personal fuel logs. Summarize briefly:",
	"- Trends in price per liter.",
	"- Most frequent stations.",
	"- Total spend for the selected period and notable spikes.",
	"Be concise (max ~120 words). Output plain text.",
}, "\n")

// Filters describe the dashboard selection the sample was taken from. Year
// is a number or "all".
type Filters struct {
	CarID       *string `json:"carId"`
	Granularity string  `json:"granularity"`
	Year        any     `json:"year"`
}

type responder interface {
	CreateResponse(ctx context.Context, req openai.Request) (*openai.Response, error)
}

// Summarizer produces insights with the Responses API
type Summarizer struct {
	client responder
	model  string
}

// NewSummarizer creates a Summarizer. An empty model selects DefaultModel.
func NewSummarizer(client *openai.Client, model string) *Summarizer {
	return NewSummarizerWithClient(client, model)
}

// NewSummarizerWithClient creates a Summarizer over any responder, used by tests
func NewSummarizerWithClient(client responder, model string) *Summarizer {
	if model == "" {
		model = DefaultModel
	}
	return &Summarizer{client: client, model: model}
}

// Summarize returns the model's summary of sample. Model errors are returned
// as is so callers can surface the upstream status.
func (s *Summarizer) Summarize(ctx context.Context, filters Filters, sample []*fuellog.Record) (string, error) {
	filterJSON, err := json.Marshal(filters)
	if err != nil {
		return "", fmt.Errorf("encoding filters: %w", err)
	}

	req := openai.Request{
		Model: s.model,
		Input: []openai.InputMessage{
			{Role: "system", Content: []openai.InputContent{openai.InputText(systemPrompt)}},
			{Role: "user", Content: []openai.InputContent{
				openai.InputText(summaryPrompt),
				openai.InputText("Filters: " + string(filterJSON)),
				openai.InputText("Data sample:\n" + Compact(sample)),
			}},
		},
		Text: &openai.TextOptions{Format: openai.Format{Type: "text"}},
	}

	resp, err := s.client.CreateResponse(ctx, req)
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		slog.Warn("Insights response carried no text", "response_id", resp.ID)
		return NoContent, nil
	}
	return text, nil
}

// Compact renders up to MaxSample records one per line as
// "date | station | total=… | L=… | €/L=…", with "?" for unknown values
func Compact(sample []*fuellog.Record) string {
	if len(sample) > MaxSample {
		sample = sample[:MaxSample]
	}
	lines := make([]string, 0, len(sample))
	for _, r := range sample {
		if r == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s | %s | total=%s | L=%s | €/L=%s",
			day(r), orUnknown(r.StationName), number(r.PriceTotal), number(r.Liters), number(r.PricePerLiter)))
	}
	return strings.Join(lines, "\n")
}

func day(r *fuellog.Record) string {
	d := r.Date
	if d == "" && !r.CreatedAt.IsZero() {
		d = r.CreatedAt.UTC().Format("2006-01-02")
	}
	if len(d) > 10 {
		d = d[:10]
	}
	return d
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

func number(v *float64) string {
	if v == nil {
		return "?"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
