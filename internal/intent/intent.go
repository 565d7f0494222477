package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Action is the kind of side effect a voice command asks for.
type Action string

const (
	ActionNavigate     Action = "navigate"
	ActionAddProduct   Action = "add_product"
	ActionShareProduct Action = "share_product"
	ActionGetInfo      Action = "get_info"
	ActionUnknown      Action = "unknown"
)

// Valid reports whether a is one of the supported actions.
func (a Action) Valid() bool {
	switch a {
	case ActionNavigate, ActionAddProduct, ActionShareProduct, ActionGetInfo, ActionUnknown:
		return true
	}
	return false
}

// Screens the app can navigate to.
const (
	ScreenHome        = "Home"
	ScreenCatalog     = "Catalog"
	ScreenMarketplace = "Marketplace"
	ScreenSettings    = "Settings"
	ScreenAddProduct  = "AddProduct"
)

var knownScreens = []string{ScreenHome, ScreenCatalog, ScreenMarketplace, ScreenSettings, ScreenAddProduct}

// CanonicalScreen returns the navigation destination matching screen,
// ignoring case and surrounding space.
func CanonicalScreen(screen string) (string, bool) {
	screen = strings.TrimSpace(screen)
	for _, s := range knownScreens {
		if strings.EqualFold(s, screen) {
			return s, true
		}
	}
	return "", false
}

// KnownScreen reports whether screen is a navigation destination.
func KnownScreen(screen string) bool {
	_, ok := CanonicalScreen(screen)
	return ok
}

// Confidence tiers assigned by the rule matcher.
const (
	ConfidenceKeyword = 0.7
	ConfidencePattern = 0.8
	ConfidenceUnknown = 0.1
)

// Source identifies which detector produced an intent.
const (
	SourceLLM   = "llm"
	SourceRules = "rules"
)

// ErrInvalidIntent marks a detector response that does not have the intent shape.
var ErrInvalidIntent = errors.New("invalid intent")

// Intent is the structured interpretation of one spoken command.
// Treat it as a value: the dispatcher reads Parameters but never writes them.
type Intent struct {
	Action          Action         `json:"action"`
	Parameters      map[string]any `json:"parameters"`
	Confidence      float64        `json:"confidence"`
	ResponseMessage string         `json:"response_message,omitempty"`
	Source          string         `json:"source,omitempty"`
}

// Result is everything known about one voice turn after detection.
type Result struct {
	Transcript string `json:"transcript"`
	Language   string `json:"language"`
	Intent     Intent `json:"intent"`
}

// Unknown returns the fallback intent for text nothing recognized.
func Unknown() Intent {
	return Intent{
		Action:     ActionUnknown,
		Parameters: map[string]any{},
		Confidence: ConfidenceUnknown,
	}
}

// Validate checks that in has a supported action, a parameter mapping and a
// confidence within [0,1].
func Validate(in Intent) error {
	if in.Action == "" {
		return fmt.Errorf("%w: missing action", ErrInvalidIntent)
	}
	if !in.Action.Valid() {
		return fmt.Errorf("%w: unsupported action %q", ErrInvalidIntent, in.Action)
	}
	if in.Parameters == nil {
		return fmt.Errorf("%w: missing parameters", ErrInvalidIntent)
	}
	if math.IsNaN(in.Confidence) || in.Confidence < 0 || in.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v out of range", ErrInvalidIntent, in.Confidence)
	}
	return nil
}

// String returns the trimmed string parameter key, or "" when absent or not a string.
func (in Intent) String(key string) string {
	v, ok := in.Parameters[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// Number returns parameter key as a float64. Numeric strings are accepted
// because language models sometimes quote numbers.
func (in Intent) Number(key string) (float64, bool) {
	v, ok := in.Parameters[key]
	if !ok || v == nil {
		return 0, false
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
