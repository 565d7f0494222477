package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

var pushPlatforms = map[string]bool{"ios": true, "android": true}

type pushTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// decodePushToken reads and validates the body of the push endpoints. It
// writes the error response itself and reports whether to continue.
func decodePushToken(w http.ResponseWriter, req *http.Request, needPlatform bool) (pushTokenRequest, bool) {
	var body pushTokenRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return body, false
	}
	body.Token = strings.TrimSpace(body.Token)
	body.Platform = strings.ToLower(strings.TrimSpace(body.Platform))

	if body.Token == "" {
		http.Error(w, `{"error": "token is required"}`, http.StatusBadRequest)
		return body, false
	}
	if needPlatform && !pushPlatforms[body.Platform] {
		http.Error(w, `{"error": "platform must be 'ios' or 'android'"}`, http.StatusBadRequest)
		return body, false
	}
	return body, true
}

// handlePushRegister stores a device token so shared products can be pushed
// to the seller's other devices.
func (r *Router) handlePushRegister(w http.ResponseWriter, req *http.Request) {
	user := getAuthUser(req.Context())
	if user == nil {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}
	body, ok := decodePushToken(w, req, true)
	if !ok {
		return
	}

	if err := r.store.RegisterPushToken(req.Context(), user.ID, body.Token, body.Platform); err != nil {
		r.logger.Printf("push: failed to register token: %v", err)
		http.Error(w, `{"error": "failed to register token"}`, http.StatusInternalServerError)
		return
	}

	r.logger.Printf("push: registered %s token for seller %s", body.Platform, user.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handlePushUnregister removes one of the caller's device tokens.
func (r *Router) handlePushUnregister(w http.ResponseWriter, req *http.Request) {
	user := getAuthUser(req.Context())
	if user == nil {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}
	body, ok := decodePushToken(w, req, false)
	if !ok {
		return
	}

	if err := r.store.UnregisterPushToken(req.Context(), user.ID, body.Token); err != nil {
		r.logger.Printf("push: failed to unregister token: %v", err)
		http.Error(w, `{"error": "failed to unregister token"}`, http.StatusInternalServerError)
		return
	}

	r.logger.Printf("push: unregistered token for seller %s", user.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
