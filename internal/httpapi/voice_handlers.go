package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/lukasbauer/vocalkart/internal/dispatch"
	"github.com/lukasbauer/vocalkart/internal/eventlog"
	"github.com/lukasbauer/vocalkart/internal/tts"
)

const maxTextCommandLen = 1000

// navigation is a screen change requested while dispatching a text command.
type navigation struct {
	Screen string         `json:"screen"`
	Params map[string]any `json:"params,omitempty"`
}

// recordingNavigator collects navigations instead of driving a client.
type recordingNavigator struct {
	mu    sync.Mutex
	calls []navigation
}

func (n *recordingNavigator) Navigate(_ context.Context, screen string, params map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, navigation{Screen: screen, Params: params})
	return nil
}

func (n *recordingNavigator) navigations() []navigation {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]navigation(nil), n.calls...)
}

// handleVoiceText runs detection and dispatch on a typed transcript. Nothing
// is spoken; navigations are returned to the caller.
func (r *Router) handleVoiceText(w http.ResponseWriter, req *http.Request) {
	user := getAuthUser(req.Context())
	if user == nil {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	body.Text = strings.TrimSpace(body.Text)
	if body.Text == "" {
		http.Error(w, `{"error": "text is required"}`, http.StatusBadRequest)
		return
	}
	if len(body.Text) > maxTextCommandLen {
		http.Error(w, `{"error": "text is too long"}`, http.StatusBadRequest)
		return
	}

	turnID := uuid.NewString()
	ctx := req.Context()

	res := r.detector.Process(ctx, body.Text)
	r.eventLog.LogAsync(user.ID, turnID, eventlog.EventIntentDetected, map[string]any{
		"transcript": res.Transcript,
		"action":     res.Intent.Action,
		"parameters": res.Intent.Parameters,
		"confidence": res.Intent.Confidence,
		"source":     res.Intent.Source,
	})

	nav := &recordingNavigator{}
	var sharer dispatch.Sharer
	if r.share != nil {
		sharer = r.share
	}
	disp := dispatch.New(nav, r.products, sharer, dispatch.Options{
		OwnerID:  user.ID,
		Category: r.cfg.DefaultCategory,
	}, r.logger)
	out := disp.Dispatch(ctx, res.Intent, user.ID)

	r.eventLog.LogAsync(user.ID, turnID, eventlog.EventDispatched, map[string]any{
		"status":   out.Status,
		"response": out.Response,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"turn_id":     turnID,
		"result":      res,
		"outcome":     out,
		"navigations": nav.navigations(),
	})
}

// handleListVoices returns the curated voices, optionally for one language.
func (r *Router) handleListVoices(w http.ResponseWriter, req *http.Request) {
	language := req.URL.Query().Get("language")
	voices := tts.VoicesFor(language)
	if voices == nil {
		voices = []tts.Voice{}
	}
	resp := map[string]any{"voices": voices}
	if language != "" {
		resp["default"] = tts.VoiceFor(language)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTurnEvents returns the pipeline events of one of the caller's turns.
func (r *Router) handleTurnEvents(w http.ResponseWriter, req *http.Request) {
	user := getAuthUser(req.Context())
	if user == nil {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}

	turnID := req.PathValue("turnId")
	if _, err := uuid.Parse(turnID); err != nil {
		http.Error(w, `{"error": "invalid turn id"}`, http.StatusBadRequest)
		return
	}

	events, err := r.store.ListVoiceEvents(req.Context(), user.ID, turnID, 0)
	if err != nil {
		r.logger.Printf("voice: failed to list events for turn %s: %v", turnID, err)
		http.Error(w, `{"error": "failed to list events"}`, http.StatusInternalServerError)
		return
	}
	if len(events) == 0 {
		http.Error(w, `{"error": "turn not found"}`, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"turn_id": turnID,
		"events":  events,
	})
}

