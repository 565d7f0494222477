package voice

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lukasbauer/vocalkart/internal/capture"
	"github.com/lukasbauer/vocalkart/internal/dispatch"
	"github.com/lukasbauer/vocalkart/internal/eventlog"
	"github.com/lukasbauer/vocalkart/internal/intent"
	"github.com/lukasbauer/vocalkart/internal/metrics"
	"github.com/lukasbauer/vocalkart/internal/stt"
)

// State is the controller's position in the voice cycle.
type State string

const (
	StateIdle         State = "idle"
	StateListening    State = "listening"
	StateTranscribing State = "transcribing"
	StateDetecting    State = "detecting"
	StateDispatching  State = "dispatching"
	StateNarrating    State = "narrating"
)

var (
	// ErrCycleInFlight rejects a toggle while a turn is being processed.
	ErrCycleInFlight = errors.New("voice cycle already in progress")
	// ErrClosed rejects a toggle after Close.
	ErrClosed = errors.New("voice controller closed")
)

// Spoken when a stage fails before there is anything better to say.
const (
	MsgTranscriptionFailed = "Sorry, I couldn't hear that clearly. Please try again."
	MsgRecordingFailed     = "Sorry, the recording failed. Please try again."
)

// Capture is the recording lifecycle the controller drives.
type Capture interface {
	RequestAndStart(ctx context.Context) error
	Stop(ctx context.Context) (capture.Audio, error)
	Release()
}

// Detector turns a transcript into a result.
type Detector interface {
	Process(ctx context.Context, transcript string) intent.Result
}

// Dispatcher executes a detected intent.
type Dispatcher interface {
	Dispatch(ctx context.Context, in intent.Intent, ownerID string) dispatch.Outcome
}

// Speaker narrates a response.
type Speaker interface {
	Speak(ctx context.Context, text, languageTag string)
}

// Config holds per-session settings.
type Config struct {
	OwnerID      string
	LanguageHint string // passed to the transcriber, e.g. "hi-IN"
}

// Turn is the record of one finished voice cycle.
type Turn struct {
	ID         string           `json:"id"`
	Transcript string           `json:"transcript"`
	Language   string           `json:"language"`
	Intent     intent.Intent    `json:"intent"`
	Outcome    dispatch.Outcome `json:"outcome"`
	Err        error            `json:"-"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Controller runs the Idle → Listening → Transcribing → Detecting →
// Dispatching → Narrating → Idle cycle for one user. Only one cycle is in
// progress at a time.
type Controller struct {
	capture    Capture
	stt        stt.Transcriber
	detector   Detector
	dispatcher Dispatcher
	speaker    Speaker
	events     *eventlog.Logger
	logger     *log.Logger
	cfg        Config

	mu        sync.Mutex
	state     State
	starting  bool
	closed    bool
	turnID    string
	startedAt time.Time
	onState   func(State)
	inflight  sync.WaitGroup
}

// NewController wires a controller. events may be nil.
func NewController(
	c Capture,
	transcriber stt.Transcriber,
	detector Detector,
	dispatcher Dispatcher,
	speaker Speaker,
	events *eventlog.Logger,
	cfg Config,
	logger *log.Logger,
) *Controller {
	return &Controller{
		capture:    c,
		stt:        transcriber,
		detector:   detector,
		dispatcher: dispatcher,
		speaker:    speaker,
		events:     events,
		logger:     logger,
		cfg:        cfg,
		state:      StateIdle,
	}
}

// OnStateChange registers fn to be called after every transition.
func (c *Controller) OnStateChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = fn
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TurnID returns the id of the turn being recorded or processed, "" when idle.
func (c *Controller) TurnID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turnID
}

// SetLanguageHint changes the transcription language for the next turns.
func (c *Controller) SetLanguageHint(tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.LanguageHint = strings.TrimSpace(tag)
}

// Toggle starts recording when idle, and processes the recording when
// listening. Processing runs to completion before Toggle returns the turn.
// A toggle during processing fails with ErrCycleInFlight and changes
// nothing. Starting can fail with capture.ErrPermissionDenied; every other
// failure is narrated and reported in Turn.Err.
func (c *Controller) Toggle(ctx context.Context) (*Turn, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.starting {
		c.mu.Unlock()
		return nil, c.reject()
	}
	switch c.state {
	case StateIdle:
		c.starting = true
		c.inflight.Add(1)
		c.mu.Unlock()
		return nil, c.start(ctx)
	case StateListening:
		c.inflight.Add(1)
		turn := &Turn{ID: c.turnID, StartedAt: c.startedAt}
		notify := c.transitionLocked(StateTranscribing)
		c.mu.Unlock()
		notify()
		c.process(ctx, turn)
		return turn, nil
	default:
		c.mu.Unlock()
		return nil, c.reject()
	}
}

func (c *Controller) reject() error {
	metrics.CaptureRejectionsTotal.WithLabelValues("cycle_in_flight").Inc()
	return ErrCycleInFlight
}

func (c *Controller) start(ctx context.Context) error {
	defer c.inflight.Done()

	err := c.capture.RequestAndStart(ctx)

	c.mu.Lock()
	c.starting = false
	if err == nil && c.closed {
		// Closed while the device was starting.
		c.mu.Unlock()
		c.capture.Release()
		return ErrClosed
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Printf("voice: failed to start recording: %v", err)
		return err
	}
	c.turnID = uuid.NewString()
	c.startedAt = time.Now()
	turnID := c.turnID
	notify := c.transitionLocked(StateListening)
	c.mu.Unlock()

	notify()
	c.events.LogAsync(c.cfg.OwnerID, turnID, eventlog.EventRecordingStarted, map[string]any{
		"language_hint": c.languageHint(),
	})
	return nil
}

// process runs every stage after Listening. The deferred cleanup is the
// single exit: it releases the capture and returns to Idle whatever failed.
func (c *Controller) process(ctx context.Context, turn *Turn) {
	stoppedAt := time.Now()
	defer c.cleanup(turn, stoppedAt)

	hint := c.languageHint()
	audio, err := c.capture.Stop(ctx)
	if err != nil {
		turn.Err = err
		c.logger.Printf("voice: failed to stop recording: %v", err)
		c.narrate(ctx, turn, MsgRecordingFailed, fallbackLanguage(hint))
		return
	}
	c.events.LogAsync(c.cfg.OwnerID, turn.ID, eventlog.EventRecordingStopped, map[string]any{
		"bytes":     len(audio.Data),
		"mime_type": audio.MimeType,
	})

	text, err := c.stt.Transcribe(ctx, audio, hint)
	if err == nil && strings.TrimSpace(text) == "" {
		err = &stt.TranscriptionError{Err: errors.New("empty transcript")}
	}
	if err != nil {
		turn.Err = err
		c.logger.Printf("voice: transcription failed: %v", err)
		c.events.LogAsync(c.cfg.OwnerID, turn.ID, eventlog.EventTranscriptionFailed, map[string]any{
			"error": err.Error(),
		})
		c.narrate(ctx, turn, MsgTranscriptionFailed, fallbackLanguage(hint))
		return
	}
	c.events.LogAsync(c.cfg.OwnerID, turn.ID, eventlog.EventTranscribed, map[string]any{
		"transcript": text,
	})

	c.setState(StateDetecting)
	res := c.detector.Process(ctx, text)
	turn.Transcript = res.Transcript
	turn.Language = res.Language
	turn.Intent = res.Intent
	c.events.LogAsync(c.cfg.OwnerID, turn.ID, eventlog.EventIntentDetected, map[string]any{
		"action":     res.Intent.Action,
		"parameters": res.Intent.Parameters,
		"confidence": res.Intent.Confidence,
		"source":     res.Intent.Source,
		"language":   res.Language,
	})

	c.setState(StateDispatching)
	turn.Outcome = c.dispatcher.Dispatch(ctx, res.Intent, c.cfg.OwnerID)
	if turn.Outcome.Err != nil {
		turn.Err = turn.Outcome.Err
	}
	c.events.LogAsync(c.cfg.OwnerID, turn.ID, eventlog.EventDispatched, map[string]any{
		"status":   turn.Outcome.Status,
		"response": turn.Outcome.Response,
	})

	c.narrate(ctx, turn, turn.Outcome.Response, res.Language)
}

func (c *Controller) narrate(ctx context.Context, turn *Turn, text, language string) {
	c.setState(StateNarrating)
	if c.speaker != nil {
		c.speaker.Speak(ctx, text, language)
	}
	c.events.LogAsync(c.cfg.OwnerID, turn.ID, eventlog.EventNarrated, map[string]any{
		"text":     text,
		"language": language,
	})
}

func (c *Controller) cleanup(turn *Turn, stoppedAt time.Time) {
	c.capture.Release()

	turn.FinishedAt = time.Now()
	metrics.VoiceTurnSeconds.Observe(turn.FinishedAt.Sub(stoppedAt).Seconds())

	data := map[string]any{"duration_ms": turn.FinishedAt.Sub(turn.StartedAt).Milliseconds()}
	if turn.Err != nil {
		data["error"] = turn.Err.Error()
	}
	c.events.LogAsync(c.cfg.OwnerID, turn.ID, eventlog.EventTurnCompleted, data)

	c.mu.Lock()
	c.turnID = ""
	c.mu.Unlock()
	c.setState(StateIdle)
	c.inflight.Done()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	notify := c.transitionLocked(s)
	c.mu.Unlock()
	notify()
}

// transitionLocked sets the state with c.mu held and returns the listener
// call, to be made after unlocking.
func (c *Controller) transitionLocked(s State) func() {
	c.state = s
	fn := c.onState
	return func() {
		if fn != nil {
			fn(s)
		}
	}
}

func (c *Controller) languageHint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.LanguageHint
}

func fallbackLanguage(hint string) string {
	if hint == "" {
		return intent.LangEnglish
	}
	return hint
}

// Close releases any live recording and waits for an in-flight cycle to
// finish. Later toggles fail with ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	listening := c.state == StateListening
	turnID := c.turnID
	notify := func() {}
	if listening {
		c.turnID = ""
		notify = c.transitionLocked(StateIdle)
	}
	c.mu.Unlock()

	if listening {
		c.capture.Release()
		notify()
		c.events.LogAsync(c.cfg.OwnerID, turnID, eventlog.EventTurnCompleted, map[string]any{
			"error": "session closed while listening",
		})
	}
	c.inflight.Wait()
}
