package scanning

import (
	"fmt"
	"strings"
)

// parseReceiptJSON parses free-form model text: markdown fences and chatter
// around the JSON object are tolerated
func parseReceiptJSON(text string) (*ExtractionResult, error) {
	text = strings.TrimSpace(text)

	// Remove opening markdown code blocks
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	return decodeExtraction(lenientValidator, []byte(text[startIdx:endIdx+1]))
}
