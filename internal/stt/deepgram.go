package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lukasbauer/vocalkart/internal/capture"
)

const deepgramAPIURL = "https://api.deepgram.com/v1/listen"

// DeepgramClient implements Transcriber using Deepgram's prerecorded API.
type DeepgramClient struct {
	apiKey      string
	baseURL     string
	model       string
	smartFormat bool
	httpClient  *http.Client
}

// DeepgramConfig holds configuration for the Deepgram client.
type DeepgramConfig struct {
	APIKey      string
	BaseURL     string        // defaults to the public listen endpoint
	Model       string        // e.g., "nova-2"
	SmartFormat bool          // punctuation and number formatting
	Timeout     time.Duration // whole request, 0 for 30s
}

// deepgramResponse is the subset of the prerecorded response we read.
type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// NewDeepgramClient creates a new Deepgram client.
func NewDeepgramClient(cfg DeepgramConfig) *DeepgramClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = deepgramAPIURL
	}
	model := cfg.Model
	if model == "" {
		model = "nova-2"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DeepgramClient{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       model,
		smartFormat: cfg.SmartFormat,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Transcribe uploads the recording and returns the first alternative of the
// first channel. No retries.
func (c *DeepgramClient) Transcribe(ctx context.Context, audio capture.Audio, languageHint string) (string, error) {
	if len(audio.Data) == 0 {
		return "", &TranscriptionError{Err: errors.New("no audio captured")}
	}

	q := url.Values{}
	q.Set("model", c.model)
	if lang := deepgramLanguage(languageHint); lang != "" {
		q.Set("language", lang)
	}
	if c.smartFormat {
		q.Set("smart_format", "true")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"?"+q.Encode(), bytes.NewReader(audio.Data))
	if err != nil {
		return "", &TranscriptionError{Err: fmt.Errorf("failed to create request: %w", err)}
	}

	contentType := audio.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &TranscriptionError{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &TranscriptionError{Err: fmt.Errorf("Deepgram API error: %s - %s", resp.Status, string(respBody))}
	}

	var dgResp deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&dgResp); err != nil {
		return "", &TranscriptionError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	var transcript string
	if len(dgResp.Results.Channels) > 0 && len(dgResp.Results.Channels[0].Alternatives) > 0 {
		transcript = strings.TrimSpace(dgResp.Results.Channels[0].Alternatives[0].Transcript)
	}
	if transcript == "" {
		return "", &TranscriptionError{Err: errors.New("empty transcript")}
	}
	return transcript, nil
}

// deepgramLanguage maps a response language tag to a Deepgram language code.
// Indian English keeps its region; the Indic languages use the bare code.
func deepgramLanguage(tag string) string {
	if tag == "" || strings.EqualFold(tag, "en-IN") {
		return tag
	}
	base, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(base)
}
