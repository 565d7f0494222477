package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lukasbauer/vocalkart/internal/dispatch"
	"github.com/lukasbauer/vocalkart/internal/eventlog"
	"github.com/lukasbauer/vocalkart/internal/intent"
	"github.com/lukasbauer/vocalkart/internal/share"
	"github.com/lukasbauer/vocalkart/internal/store"
	"github.com/lukasbauer/vocalkart/internal/stt"
	"github.com/lukasbauer/vocalkart/internal/tts"
	"github.com/lukasbauer/vocalkart/internal/voice"
)

type RouterConfig struct {
	PublicBaseURL string

	// JWT Authentication
	JWTSecret string
	JWTExpiry time.Duration

	// Voice settings
	DefaultLanguage   string // transcription hint until the client says otherwise
	DefaultCategory   string // category of products added by voice
	MaxRecordingBytes int
}

// Deps are the collaborators the router hands to each voice session.
type Deps struct {
	Store       *store.Store
	Products    dispatch.ProductRepository
	Detector    *intent.Detector
	Transcriber stt.Transcriber
	Synthesizer tts.Synthesizer
	Share       *share.Service
	EventLog    *eventlog.Logger
	Sessions    *voice.SessionRegistry
}

type Router struct {
	cfg         RouterConfig
	logger      *log.Logger
	store       *store.Store
	products    dispatch.ProductRepository
	detector    *intent.Detector
	transcriber stt.Transcriber
	synthesizer tts.Synthesizer
	share       *share.Service
	eventLog    *eventlog.Logger
	sessions    *voice.SessionRegistry
	mux         *http.ServeMux
}

func NewRouter(cfg RouterConfig, logger *log.Logger, deps Deps) http.Handler {
	if deps.Sessions == nil {
		deps.Sessions = voice.NewSessionRegistry()
	}
	if deps.Detector == nil {
		deps.Detector = intent.NewDetector(nil, logger)
	}

	r := &Router{
		cfg:         cfg,
		logger:      logger,
		store:       deps.Store,
		products:    deps.Products,
		detector:    deps.Detector,
		transcriber: deps.Transcriber,
		synthesizer: deps.Synthesizer,
		share:       deps.Share,
		eventLog:    deps.EventLog,
		sessions:    deps.Sessions,
		mux:         http.NewServeMux(),
	}

	r.routes()
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes() {
	// Health and metrics
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)
	r.mux.HandleFunc("GET /readyz", r.handleReadyz)
	r.mux.Handle("GET /metrics", promhttp.Handler())

	// Voice websocket (token in header or query)
	r.mux.HandleFunc("GET /voice", r.withAuth(r.handleVoiceWS))

	// Protected API endpoints
	r.mux.HandleFunc("POST /api/voice/text", r.withAuth(r.handleVoiceText))
	r.mux.HandleFunc("GET /api/voices", r.withAuth(r.handleListVoices))
	r.mux.HandleFunc("GET /api/turns/{turnId}/events", r.withAuth(r.handleTurnEvents))

	r.mux.HandleFunc("GET /api/products", r.withAuth(r.handleListProducts))
	r.mux.HandleFunc("GET /api/share/destinations", r.withAuth(r.handleShareDestinations))
	r.mux.HandleFunc("POST /api/products/{id}/share", r.withAuth(r.handleShareProduct))

	// Push notifications (protected)
	r.mux.HandleFunc("POST /api/push/register", r.withAuth(r.handlePushRegister))
	r.mux.HandleFunc("POST /api/push/unregister", r.withAuth(r.handlePushUnregister))
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz reports 503 once draining has started, and when the database
// is unreachable.
func (r *Router) handleReadyz(w http.ResponseWriter, req *http.Request) {
	if r.sessions.IsDraining() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("draining"))
		return
	}
	if r.store != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := r.store.Ping(ctx); err != nil {
			r.logger.Printf("readyz: database ping failed: %v", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
