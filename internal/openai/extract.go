package openai

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrNoStructuredOutput is returned when no known response shape carries parsable JSON
var ErrNoStructuredOutput = errors.New("failed to parse structured output")

// Extractor pulls candidate JSON out of one response shape
type Extractor struct {
	Name    string
	Extract func(*Response) (json.RawMessage, bool)
}

// StructuredOutputExtractors are tried in order, the first one yielding a JSON object wins
var StructuredOutputExtractors = []Extractor{
	{Name: "output_text", Extract: fromOutputText},
	{Name: "content_text", Extract: fromTextBlock},
	{Name: "content_json", Extract: fromJSONBlock},
}

// StructuredOutput returns the JSON object the model produced, and the name of
// the extractor that found it
func (r *Response) StructuredOutput() (json.RawMessage, string, error) {
	for _, e := range StructuredOutputExtractors {
		raw, ok := e.Extract(r)
		if !ok || !isJSONObject(raw) {
			continue
		}
		return raw, e.Name, nil
	}
	return nil, "", ErrNoStructuredOutput
}

// Text returns the first textual output, or "" when the response has none
func (r *Response) Text() string {
	if r.OutputText != nil && *r.OutputText != "" {
		return *r.OutputText
	}
	for _, item := range r.Output {
		for _, c := range item.Content {
			if c.Text != nil && *c.Text != "" {
				return *c.Text
			}
		}
	}
	return ""
}

func fromOutputText(r *Response) (json.RawMessage, bool) {
	if r.OutputText == nil {
		return nil, false
	}
	return json.RawMessage(*r.OutputText), true
}

func fromTextBlock(r *Response) (json.RawMessage, bool) {
	for _, item := range r.Output {
		for _, c := range item.Content {
			if c.Type == "output_text" && c.Text != nil {
				return json.RawMessage(*c.Text), true
			}
		}
	}
	return nil, false
}

func fromJSONBlock(r *Response) (json.RawMessage, bool) {
	for _, item := range r.Output {
		for _, c := range item.Content {
			if c.Type == "output_json" && len(c.JSON) > 0 && !bytes.Equal(c.JSON, []byte("null")) {
				return c.JSON, true
			}
		}
	}
	return nil, false
}

func isJSONObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{' && json.Valid(raw)
}
