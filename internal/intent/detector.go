package intent

import (
	"context"
	"errors"
	"log"

	"github.com/lukasbauer/vocalkart/internal/metrics"
)

// Primary is the first-choice detector, typically backed by a language model.
// Any returned error sends the turn to the rule matcher.
type Primary interface {
	DetectIntent(ctx context.Context, text string) (Intent, error)
}

// Detector composes a primary detector with the rule-based fallback.
type Detector struct {
	primary Primary
	matcher *Matcher
	logger  *log.Logger
}

// NewDetector creates a detector. primary may be nil, in which case every
// transcript goes straight to the rule matcher.
func NewDetector(primary Primary, logger *log.Logger) *Detector {
	return &Detector{
		primary: primary,
		matcher: NewMatcher(),
		logger:  logger,
	}
}

// Detect returns exactly one intent for text. The fallback runs only when the
// primary fails; a low-confidence primary answer is returned as is.
func (d *Detector) Detect(ctx context.Context, text string) Intent {
	if d.primary != nil {
		in, err := d.primary.DetectIntent(ctx, text)
		if err == nil {
			err = Validate(in)
		}
		if err == nil {
			in.Source = SourceLLM
			return in
		}
		d.logger.Printf("intent: primary detector failed, using rules: %v", err)
		metrics.DetectorFallbacksTotal.WithLabelValues(fallbackReason(err)).Inc()
	}

	in := d.matcher.Match(text)
	in.Source = SourceRules
	return in
}

// Process runs detection and language detection for one transcript.
func (d *Detector) Process(ctx context.Context, transcript string) Result {
	return Result{
		Transcript: transcript,
		Language:   DetectLanguage(transcript),
		Intent:     d.Detect(ctx, transcript),
	}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrInvalidIntent):
		return "invalid_response"
	default:
		return "error"
	}
}
