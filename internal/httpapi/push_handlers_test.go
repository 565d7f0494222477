package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/lukasbauer/vocalkart/internal/store"
)

func TestPushHandlersValidation(t *testing.T) {
	r := newTestRouter(nil)

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		user       string
		body       string
		wantStatus int
		wantErr    string
	}{
		{name: "register unauthorized", handler: r.handlePushRegister, body: `{"token": "t", "platform": "ios"}`, wantStatus: http.StatusUnauthorized},
		{name: "register invalid body", handler: r.handlePushRegister, user: "seller-1", body: `invalid json`, wantStatus: http.StatusBadRequest, wantErr: "invalid request body"},
		{name: "register missing token", handler: r.handlePushRegister, user: "seller-1", body: `{"token": "  ", "platform": "ios"}`, wantStatus: http.StatusBadRequest, wantErr: "token is required"},
		{name: "register bad platform", handler: r.handlePushRegister, user: "seller-1", body: `{"token": "t", "platform": "windows"}`, wantStatus: http.StatusBadRequest, wantErr: "platform must be"},
		{name: "unregister unauthorized", handler: r.handlePushUnregister, body: `{"token": "t"}`, wantStatus: http.StatusUnauthorized},
		{name: "unregister invalid body", handler: r.handlePushUnregister, user: "seller-1", body: `{`, wantStatus: http.StatusBadRequest, wantErr: "invalid request body"},
		{name: "unregister missing token", handler: r.handlePushUnregister, user: "seller-1", body: `{"token": ""}`, wantStatus: http.StatusBadRequest, wantErr: "token is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/push/register", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.user != "" {
				req = withUser(req, tt.user)
			}
			rec := httptest.NewRecorder()

			tt.handler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantErr != "" && !strings.Contains(rec.Body.String(), tt.wantErr) {
				t.Errorf("body = %q, should mention %q", rec.Body.String(), tt.wantErr)
			}
		})
	}
}

func TestPushTokensIntegration(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	s := store.New(db)
	r := newTestRouter(nil)
	r.store = s

	seller := "test-seller-" + uuid.NewString()
	defer func() {
		_, _ = db.Exec(ctx, "DELETE FROM device_push_tokens WHERE user_id = $1", seller)
	}()

	post := func(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/push", strings.NewReader(body)), seller)
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec
	}

	// Platform is normalized before it is stored.
	if rec := post(r.handlePushRegister, `{"token": "device-token-123", "platform": " IOS "}`); rec.Code != http.StatusOK {
		t.Fatalf("register status = %d, want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	tokens, err := s.GetUserPushTokens(ctx, seller)
	if err != nil {
		t.Fatalf("GetUserPushTokens failed: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Platform != "ios" {
		t.Fatalf("tokens = %+v, want one ios token", tokens)
	}

	if rec := post(r.handlePushUnregister, `{"token": "device-token-123"}`); rec.Code != http.StatusOK {
		t.Fatalf("unregister status = %d, want %d", rec.Code, http.StatusOK)
	}
	tokens, _ = s.GetUserPushTokens(ctx, seller)
	if len(tokens) != 0 {
		t.Errorf("tokens after unregister = %d, want 0", len(tokens))
	}
}
