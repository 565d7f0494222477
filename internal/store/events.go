package store

import (
	"context"
	"encoding/json"
	"time"
)

// VoiceEvent is one pipeline event recorded for a voice turn.
type VoiceEvent struct {
	ID        string          `json:"id"`
	TurnID    string          `json:"turn_id"`
	UserID    string          `json:"user_id"`
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListVoiceEvents retrieves the events of one turn in the order they were
// written. Events of other sellers are never returned.
func (s *Store) ListVoiceEvents(ctx context.Context, userID, turnID string, limit int) ([]VoiceEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, turn_id, user_id, event_type, event_data, created_at
		FROM voice_events
		WHERE turn_id = $1 AND user_id = $2
		ORDER BY created_at ASC, id ASC
		LIMIT $3
	`, turnID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []VoiceEvent
	for rows.Next() {
		var e VoiceEvent
		var eventData []byte
		if err := rows.Scan(&e.ID, &e.TurnID, &e.UserID, &e.EventType, &eventData, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.EventData = json.RawMessage(eventData)
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteVoiceEventsBefore removes events written before cutoff and returns
// how many were deleted.
func (s *Store) DeleteVoiceEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM voice_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
