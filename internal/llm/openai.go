package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/lukasbauer/vocalkart/internal/intent"
)

// OpenAIClient detects intents with any OpenAI-compatible chat completions
// endpoint (OpenAI itself, Groq, a local gateway).
type OpenAIClient struct {
	client       openai.Client
	model        string
	systemPrompt string
	timeout      time.Duration
	temperature  float64
	maxTokens    int64
}

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string        // e.g., "https://api.groq.com/openai/v1/"; empty for OpenAI
	Model        string        // e.g., "gpt-4o-mini"
	SystemPrompt string        // Optional custom system prompt
	Timeout      time.Duration // per detection, 0 for 8s
	HTTPClient   *http.Client
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = IntentSystemPrompt
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	// The detector falls back to rules on failure, so retrying here only
	// delays the spoken answer.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAIClient{
		client:       openai.NewClient(opts...),
		model:        model,
		systemPrompt: systemPrompt,
		timeout:      timeout,
		temperature:  0.1,
		maxTokens:    500,
	}
}

// SetSystemPrompt sets a custom system prompt for this client.
func (c *OpenAIClient) SetSystemPrompt(prompt string) {
	if prompt != "" {
		c.systemPrompt = prompt
	}
}

// GetSystemPrompt returns the current system prompt.
func (c *OpenAIClient) GetSystemPrompt() string {
	return c.systemPrompt
}

// DetectIntent asks the model for the intent of text. Transport errors,
// timeouts and replies that are not a valid intent all return an error.
func (c *OpenAIClient) DetectIntent(ctx context.Context, text string) (intent.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.systemPrompt),
			openai.UserMessage(IntentUserPrompt(text)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	})
	if err != nil {
		return intent.Intent{}, fmt.Errorf("failed to get chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return intent.Intent{}, fmt.Errorf("%w: no choices in response", intent.ErrInvalidIntent)
	}

	return parseIntent(resp.Choices[0].Message.Content)
}
