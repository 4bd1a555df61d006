package openai

import "encoding/json"

// Request is the body of POST /responses
type Request struct {
	Model string         `json:"model"`
	Input []InputMessage `json:"input"`
	Text  *TextOptions   `json:"text,omitempty"`
}

// InputMessage is one role-tagged message of the request input
type InputMessage struct {
	Role    string         `json:"role"`
	Content []InputContent `json:"content"`
}

// InputContent is a text or image part of an input message
type InputContent struct {
	Type     string `json:"type"` // input_text or input_image
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// InputText builds an input_text part
func InputText(text string) InputContent {
	return InputContent{Type: "input_text", Text: text}
}

// InputImage builds an input_image part from a URL or data URL
func InputImage(url string) InputContent {
	return InputContent{Type: "input_image", ImageURL: url}
}

// TextOptions configures the output format
type TextOptions struct {
	Format Format `json:"format"`
}

// Format requests plain text or schema constrained JSON output
type Format struct {
	Type   string         `json:"type"` // text or json_schema
	Name   string         `json:"name,omitempty"`
	Schema map[string]any `json:"schema,omitempty"`
	Strict bool           `json:"strict,omitempty"`
}

// Response is the subset of the Responses API reply we read
type Response struct {
	ID         string       `json:"id"`
	OutputText *string      `json:"output_text,omitempty"`
	Output     []OutputItem `json:"output"`

	Raw []byte `json:"-"`
}

// OutputItem is one item of the response output list
type OutputItem struct {
	Type    string          `json:"type"`
	Content []OutputContent `json:"content"`
}

// OutputContent is a content block of an output item
type OutputContent struct {
	Type string          `json:"type"` // output_text or output_json
	Text *string         `json:"text,omitempty"`
	JSON json.RawMessage `json:"json,omitempty"`
}
