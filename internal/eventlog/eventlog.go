package eventlog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventType represents the type of voice turn event
type EventType string

const (
	EventRecordingStarted    EventType = "recording_started"
	EventRecordingStopped    EventType = "recording_stopped"
	EventTranscribed         EventType = "transcribed"
	EventTranscriptionFailed EventType = "transcription_failed"
	EventIntentDetected      EventType = "intent_detected"
	EventDispatched          EventType = "dispatched"
	EventNarrated            EventType = "narrated"
	EventTurnCompleted       EventType = "turn_completed"
	EventShareAttempted      EventType = "share_attempted"
)

// Logger provides async event logging to the database
type Logger struct {
	db *pgxpool.Pool

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a new event logger
func New(db *pgxpool.Pool) *Logger {
	return &Logger{db: db}
}

// Log writes an event to the database synchronously
func (l *Logger) Log(ctx context.Context, userID, turnID string, eventType EventType, data map[string]any) error {
	if l == nil || l.db == nil || turnID == "" {
		return nil // Silently skip if no DB or turn ID
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		dataJSON = []byte("{}")
	}

	_, err = l.db.Exec(ctx, `
		INSERT INTO voice_events (turn_id, user_id, event_type, event_data)
		VALUES ($1, $2, $3, $4)
	`, turnID, userID, string(eventType), dataJSON)

	return err
}

// LogAsync logs an event without blocking the caller
func (l *Logger) LogAsync(userID, turnID string, eventType EventType, data map[string]any) {
	if l == nil || l.db == nil || turnID == "" {
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.Log(ctx, userID, turnID, eventType, data)
	}()
}

// Close drops later LogAsync calls and blocks until every pending write has
// finished.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.wg.Wait()
}
