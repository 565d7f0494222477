package stt

import (
	"context"

	"github.com/lukasbauer/vocalkart/internal/capture"
)

// Transcriber defines the interface for speech-to-text providers.
type Transcriber interface {
	// Transcribe converts a finished recording to plain text. languageHint is
	// a BCP 47 tag such as "hi-IN"; empty lets the provider decide.
	Transcribe(ctx context.Context, audio capture.Audio, languageHint string) (string, error)
}

// TranscriptionError is returned by every Transcriber failure, including
// timeouts and empty transcripts.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return "transcription failed: " + e.Err.Error()
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}
