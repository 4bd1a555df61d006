package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Defaults for a local Ollama install
const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "qwen2.5vl"
)

// Ollama implements the Scanner interface using a local Ollama server.
// Vision models with decent OCR work best, e.g. qwen2.5vl, llava:13b, minicpm-v.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates a new Ollama Scanner instance
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if modelName == "" {
		modelName = DefaultOllamaModel
	}

	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   modelName,
		client: &http.Client{
			Timeout: 120 * time.Second, // vision models are slow on CPU
		},
	}, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   any             `json:"format,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// ScanReceipt analyzes a receipt and extracts the fuel-up fields
func (o *Ollama) ScanReceipt(ctx context.Context, imageData []byte, contentType string) (*ExtractionResult, error) {
	pngData, err := preparePNG(imageData, contentType)
	if err != nil {
		return nil, err
	}

	chat, err := o.chat(ctx, ollamaChatRequest{
		Model:  o.model,
		Format: ReceiptSchema(),
		Messages: []ollamaMessage{
			{Role: "system", Content: "You are an expert at reading German fuel receipts. Read every line carefully."},
			{
				Role:    "user",
				Content: fuelReceiptPrompt + jsonOnlySuffix,
				Images:  []string{base64.StdEncoding.EncodeToString(pngData)},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	if !chat.Done {
		return nil, fmt.Errorf("ollama returned an incomplete response")
	}

	data, err := parseReceiptJSON(chat.Message.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}
	return data, nil
}

// chat sends a non-streaming request to /api/chat
func (o *Ollama) chat(ctx context.Context, body ollamaChatRequest) (*ollamaChatResponse, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encoding ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", &buf)
	if err != nil {
		return nil, fmt.Errorf("building ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding ollama response: %w", err)
	}
	return &out, nil
}

// Close is a no-op for the HTTP client
func (o *Ollama) Close() error {
	return nil
}
