package intent

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"testing"
)

type fakePrimary struct {
	intent Intent
	err    error
	calls  int
}

func (f *fakePrimary) DetectIntent(ctx context.Context, text string) (Intent, error) {
	f.calls++
	return f.intent, f.err
}

func TestDetector_UsesPrimaryWhenValid(t *testing.T) {
	primary := &fakePrimary{intent: Intent{
		Action:          ActionNavigate,
		Parameters:      map[string]any{"screen": ScreenCatalog},
		Confidence:      0.9,
		ResponseMessage: "Opening your catalog",
	}}
	d := NewDetector(primary, log.New(io.Discard, "", 0))

	got := d.Detect(context.Background(), "open catalog")
	if got.Source != SourceLLM {
		t.Errorf("Source = %q, want %q", got.Source, SourceLLM)
	}
	if got.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want %v", got.Confidence, 0.9)
	}
	if got.ResponseMessage != "Opening your catalog" {
		t.Errorf("ResponseMessage = %q, want %q", got.ResponseMessage, "Opening your catalog")
	}
}

func TestDetector_LowConfidenceDoesNotFallBack(t *testing.T) {
	primary := &fakePrimary{intent: Intent{
		Action:     ActionUnknown,
		Parameters: map[string]any{},
		Confidence: 0.3,
	}}
	d := NewDetector(primary, log.New(io.Discard, "", 0))

	// The rules would say add_product here, but the primary answered.
	got := d.Detect(context.Background(), "add 1 kg tomatoes for 35 rupees")
	if got.Action != ActionUnknown {
		t.Errorf("Action = %q, want %q", got.Action, ActionUnknown)
	}
	if got.Source != SourceLLM {
		t.Errorf("Source = %q, want %q", got.Source, SourceLLM)
	}
}

func TestDetector_FallsBackOnError(t *testing.T) {
	primary := &fakePrimary{err: errors.New("connection refused")}
	d := NewDetector(primary, log.New(io.Discard, "", 0))

	got := d.Detect(context.Background(), "add 1 kg tomatoes for 35 rupees")
	if primary.calls != 1 {
		t.Errorf("primary calls = %d, want 1", primary.calls)
	}
	if got.Source != SourceRules {
		t.Errorf("Source = %q, want %q", got.Source, SourceRules)
	}
	if got.Action != ActionAddProduct {
		t.Fatalf("Action = %q, want %q", got.Action, ActionAddProduct)
	}
	if got.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", got.Confidence)
	}
	if q, _ := got.Number("quantity"); q != 1 {
		t.Errorf("quantity = %v, want 1", q)
	}
	if p, _ := got.Number("price"); p != 35 {
		t.Errorf("price = %v, want 35", p)
	}
	if got.String("unit") != "kg" {
		t.Errorf("unit = %q, want %q", got.String("unit"), "kg")
	}
	if got.String("name") != "tomatoes" {
		t.Errorf("name = %q, want %q", got.String("name"), "tomatoes")
	}
}

func TestDetector_FallsBackOnInvalidShape(t *testing.T) {
	tests := []struct {
		name   string
		intent Intent
	}{
		{"empty action", Intent{Parameters: map[string]any{}, Confidence: 0.9}},
		{"unsupported action", Intent{Action: "dance", Parameters: map[string]any{}, Confidence: 0.9}},
		{"nil parameters", Intent{Action: ActionNavigate, Confidence: 0.9}},
		{"confidence above one", Intent{Action: ActionNavigate, Parameters: map[string]any{}, Confidence: 1.5}},
		{"negative confidence", Intent{Action: ActionNavigate, Parameters: map[string]any{}, Confidence: -0.1}},
		{"nan confidence", Intent{Action: ActionNavigate, Parameters: map[string]any{}, Confidence: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(&fakePrimary{intent: tt.intent}, log.New(io.Discard, "", 0))
			got := d.Detect(context.Background(), "go home")
			if got.Source != SourceRules {
				t.Errorf("Source = %q, want %q", got.Source, SourceRules)
			}
			if got.Action != ActionNavigate || got.String("screen") != ScreenHome {
				t.Errorf("got %q/%q, want navigate/Home", got.Action, got.String("screen"))
			}
		})
	}
}

func TestDetector_NoPrimary(t *testing.T) {
	d := NewDetector(nil, log.New(io.Discard, "", 0))

	got := d.Detect(context.Background(), "hello there")
	if got.Action != ActionUnknown {
		t.Errorf("Action = %q, want %q", got.Action, ActionUnknown)
	}
	if got.Confidence != ConfidenceUnknown {
		t.Errorf("Confidence = %v, want %v", got.Confidence, ConfidenceUnknown)
	}
}

func TestDetector_Process(t *testing.T) {
	d := NewDetector(nil, log.New(io.Discard, "", 0))

	res := d.Process(context.Background(), "कैटलॉग खोलो")
	if res.Transcript != "कैटलॉग खोलो" {
		t.Errorf("Transcript = %q, want %q", res.Transcript, "कैटलॉग खोलो")
	}
	if res.Language != LangHindi {
		t.Errorf("Language = %q, want %q", res.Language, LangHindi)
	}
	if res.Intent.Action != ActionNavigate {
		t.Errorf("Action = %q, want %q", res.Intent.Action, ActionNavigate)
	}
}

func TestFallbackReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{ErrInvalidIntent, "invalid_response"},
		{errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		if got := fallbackReason(tt.err); got != tt.want {
			t.Errorf("fallbackReason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestIntentNumber(t *testing.T) {
	in := Intent{Parameters: map[string]any{
		"float":  35.0,
		"int":    2,
		"string": " 12.5 ",
		"bad":    "twelve",
		"bool":   true,
		"nil":    nil,
	}}

	tests := []struct {
		key    string
		want   float64
		wantOK bool
	}{
		{"float", 35, true},
		{"int", 2, true},
		{"string", 12.5, true},
		{"bad", 0, false},
		{"bool", 0, false},
		{"nil", 0, false},
		{"missing", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := in.Number(tt.key)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Number(%q) = %v, %v; want %v, %v", tt.key, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
