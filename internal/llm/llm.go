package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lukasbauer/vocalkart/internal/intent"
)

// intentResponse is the JSON object the model is asked to return. Pointers
// distinguish a missing field from a zero value.
type intentResponse struct {
	Action          string         `json:"action"`
	Parameters      map[string]any `json:"parameters"`
	Confidence      *float64       `json:"confidence"`
	ResponseMessage string         `json:"response_message"`
}

// parseIntent decodes and validates a model reply. Every failure wraps
// intent.ErrInvalidIntent.
func parseIntent(content string) (intent.Intent, error) {
	content = stripCodeFence(content)
	if content == "" {
		return intent.Intent{}, fmt.Errorf("%w: empty response", intent.ErrInvalidIntent)
	}

	var resp intentResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return intent.Intent{}, fmt.Errorf("%w: %v (content: %s)", intent.ErrInvalidIntent, err, content)
	}
	if resp.Confidence == nil {
		return intent.Intent{}, fmt.Errorf("%w: missing confidence", intent.ErrInvalidIntent)
	}

	in := intent.Intent{
		Action:          intent.Action(strings.TrimSpace(resp.Action)),
		Parameters:      resp.Parameters,
		Confidence:      *resp.Confidence,
		ResponseMessage: strings.TrimSpace(resp.ResponseMessage),
	}
	if err := intent.Validate(in); err != nil {
		return intent.Intent{}, err
	}
	return in, nil
}

// stripCodeFence removes a markdown code block around the JSON, if any.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
