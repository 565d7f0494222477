package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lukasbauer/vocalkart/internal/capture"
	"github.com/lukasbauer/vocalkart/internal/dispatch"
	"github.com/lukasbauer/vocalkart/internal/eventlog"
	"github.com/lukasbauer/vocalkart/internal/intent"
	"github.com/lukasbauer/vocalkart/internal/narrator"
	"github.com/lukasbauer/vocalkart/internal/share"
	"github.com/lukasbauer/vocalkart/internal/voice"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const defaultAudioFormat = "audio/webm"

// clientMessage is a text frame sent by the app.
type clientMessage struct {
	Type        string `json:"type"` // hello, permission, toggle, publish
	Language    string `json:"language,omitempty"`
	Format      string `json:"format,omitempty"`
	Permission  *bool  `json:"permission,omitempty"`
	Granted     bool   `json:"granted,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// serverMessage is a text frame sent to the app.
type serverMessage struct {
	Type         string              `json:"type"` // state, navigate, audio, turn, published, error
	State        voice.State         `json:"state,omitempty"`
	TurnID       string              `json:"turn_id,omitempty"`
	Screen       string              `json:"screen,omitempty"`
	Params       map[string]any      `json:"params,omitempty"`
	MimeType     string              `json:"mime_type,omitempty"`
	Audio        []byte              `json:"audio,omitempty"`
	Turn         *turnMessage        `json:"turn,omitempty"`
	Destination  string              `json:"destination,omitempty"`
	Destinations []share.Destination `json:"destinations,omitempty"`
	Error        string              `json:"error,omitempty"`
}

type turnMessage struct {
	ID         string               `json:"id"`
	Transcript string               `json:"transcript"`
	Language   string               `json:"language"`
	Intent     intent.Intent        `json:"intent"`
	Response   string               `json:"response"`
	Status     string               `json:"status"`
	Share      *dispatch.ShareOffer `json:"share,omitempty"`
	Error      string               `json:"error,omitempty"`
}

func newTurnMessage(t *voice.Turn) *turnMessage {
	m := &turnMessage{
		ID:         t.ID,
		Transcript: t.Transcript,
		Language:   t.Language,
		Intent:     t.Intent,
		Response:   t.Outcome.Response,
		Status:     t.Outcome.Status,
		Share:      t.Outcome.Share,
	}
	if t.Err != nil {
		m.Error = t.Err.Error()
	}
	return m
}

// voiceSession is one app connection. It is the navigator and the audio
// player for its controller.
type voiceSession struct {
	userID string
	conn   *websocket.Conn
	connMu sync.Mutex

	device     *capture.StreamDevice
	controller *voice.Controller
	share      *share.Service
	events     *eventlog.Logger
	logger     *log.Logger

	offerMu   sync.Mutex
	offer     *dispatch.ShareOffer
	offerTurn string

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func (r *Router) handleVoiceWS(w http.ResponseWriter, req *http.Request) {
	user := getAuthUser(req.Context())
	if user == nil {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if r.transcriber == nil {
		r.logger.Printf("voice_ws: no transcriber configured")
		captureError(req, fmt.Errorf("voice not configured: missing speech-to-text"), "voice_ws: configuration error")
		http.Error(w, `{"error": "voice not configured"}`, http.StatusServiceUnavailable)
		return
	}
	handle, ok := r.sessions.Add()
	if !ok {
		http.Error(w, `{"error": "server is draining"}`, http.StatusServiceUnavailable)
		return
	}
	defer handle.Done()

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Printf("voice_ws: upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &voiceSession{
		userID: user.ID,
		conn:   conn,
		device: capture.NewStreamDevice(defaultAudioFormat, r.cfg.MaxRecordingBytes),
		share:  r.share,
		events: r.eventLog,
		logger: r.logger,
		ctx:    ctx,
		cancel: cancel,
	}

	var sharer dispatch.Sharer
	if r.share != nil {
		sharer = r.share
	}
	disp := dispatch.New(s, r.products, sharer, dispatch.Options{
		OwnerID:  user.ID,
		Category: r.cfg.DefaultCategory,
	}, r.logger)

	s.controller = voice.NewController(
		capture.NewSession(s.device, r.logger),
		r.transcriber,
		r.detector,
		disp,
		narrator.New(r.synthesizer, s, r.logger),
		r.eventLog,
		voice.Config{OwnerID: user.ID, LanguageHint: r.cfg.DefaultLanguage},
		r.logger,
	)
	s.controller.OnStateChange(func(st voice.State) {
		s.send(serverMessage{Type: "state", State: st, TurnID: s.controller.TurnID()})
	})
	handle.OnDrain(s.stopReading)

	r.logger.Printf("voice_ws: session opened for %s", user.ID)
	s.run()
	r.logger.Printf("voice_ws: session closed for %s", user.ID)
}

func (s *voiceSession) run() {
	defer s.cleanup()

	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("voice_ws: read error for %s: %v", s.userID, err)
			}
			return
		}

		if msgType == websocket.BinaryMessage {
			s.handleAudio(msg)
			continue
		}

		var m clientMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			s.logger.Printf("voice_ws: failed to parse message: %v", err)
			s.send(serverMessage{Type: "error", Error: "invalid_message"})
			continue
		}

		switch m.Type {
		case "hello":
			if m.Language != "" {
				s.controller.SetLanguageHint(m.Language)
			}
			s.device.SetMimeType(m.Format)
			if m.Permission != nil {
				s.device.SetPermission(*m.Permission)
			}
			s.send(serverMessage{Type: "state", State: s.controller.State()})

		case "permission":
			s.device.SetPermission(m.Granted)

		case "toggle":
			s.handleToggle()

		case "publish":
			s.async(func() { s.publish(share.Destination(m.Destination)) })

		default:
			s.send(serverMessage{Type: "error", Error: "unknown_message_type"})
		}
	}
}

func (s *voiceSession) handleAudio(chunk []byte) {
	// Chunks outside a recording are dropped.
	if !s.device.Recording() {
		return
	}
	if _, err := s.device.Write(chunk); errors.Is(err, capture.ErrRecordingTooLarge) {
		s.send(serverMessage{Type: "error", Error: "recording_too_large"})
	}
}

// handleToggle starts recording on the read loop, so audio frames that
// follow the toggle land in the new recording. Processing runs on its own
// goroutine and later toggles are rejected by the controller meanwhile.
func (s *voiceSession) handleToggle() {
	if s.controller.State() == voice.StateIdle {
		s.toggle()
		return
	}
	s.async(s.toggle)
}

func (s *voiceSession) toggle() {
	turn, err := s.controller.Toggle(s.ctx)
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		s.send(serverMessage{Type: "error", Error: "permission_denied"})
	case errors.Is(err, voice.ErrCycleInFlight):
		s.send(serverMessage{Type: "error", Error: "cycle_in_flight"})
	case err != nil:
		s.logger.Printf("voice_ws: toggle failed for %s: %v", s.userID, err)
		s.send(serverMessage{Type: "error", Error: "toggle_failed"})
	case turn != nil:
		if turn.Outcome.Share != nil {
			s.offerMu.Lock()
			s.offer = turn.Outcome.Share
			s.offerTurn = turn.ID
			s.offerMu.Unlock()
		}
		if turn.Err != nil {
			s.logger.Printf("voice_ws: turn %s for %s ended with error: %v", turn.ID, s.userID, turn.Err)
		}
		s.send(serverMessage{Type: "turn", Turn: newTurnMessage(turn)})
	}
}

// publish sends the product of the last share offer to dest.
func (s *voiceSession) publish(dest share.Destination) {
	s.offerMu.Lock()
	offer, turnID := s.offer, s.offerTurn
	s.offerMu.Unlock()

	if offer == nil || s.share == nil {
		s.send(serverMessage{Type: "error", Error: "nothing_to_share", Destination: string(dest)})
		return
	}

	err := s.share.Publish(s.ctx, dest, offer.Product, offer.Artifacts)
	data := map[string]any{"destination": dest, "product_id": offer.Product.ID, "ok": err == nil}
	if err != nil {
		data["error"] = err.Error()
	}
	s.events.LogAsync(s.userID, turnID, eventlog.EventShareAttempted, data)

	if err != nil {
		s.send(serverMessage{Type: "error", Error: "publish_failed", Destination: string(dest)})
		return
	}
	s.send(serverMessage{Type: "published", Destination: string(dest)})
}

func (s *voiceSession) async(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Navigate implements dispatch.Navigator.
func (s *voiceSession) Navigate(ctx context.Context, screen string, params map[string]any) error {
	return s.write(serverMessage{Type: "navigate", Screen: screen, Params: params})
}

// Play implements narrator.Player.
func (s *voiceSession) Play(ctx context.Context, audio []byte, mimeType string) error {
	return s.write(serverMessage{Type: "audio", MimeType: mimeType, Audio: audio})
}

func (s *voiceSession) write(m serverMessage) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn.WriteJSON(m)
}

func (s *voiceSession) send(m serverMessage) {
	if err := s.write(m); err != nil {
		s.logger.Printf("voice_ws: write %s failed: %v", m.Type, err)
	}
}

// stopReading ends the read loop when the server drains. The turn in flight,
// if any, still completes during cleanup.
func (s *voiceSession) stopReading() {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = s.conn.SetReadDeadline(time.Now())
}

// cleanup lets an in-flight turn finish, then stops the remaining work and
// closes the connection.
func (s *voiceSession) cleanup() {
	s.controller.Close()
	s.cancel()
	s.wg.Wait()
	_ = s.conn.Close()
}
