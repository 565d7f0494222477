package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// DevicePushToken is a device registered to receive share alerts.
type DevicePushToken struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	Platform  string    `json:"platform" db:"platform"` // ios or android
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RegisterPushToken stores token for userID. Registering a known token again
// updates its platform and moves it to the front of the list.
func (s *Store) RegisterPushToken(ctx context.Context, userID, token, platform string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO device_push_tokens (user_id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, token)
		DO UPDATE SET platform = EXCLUDED.platform, created_at = NOW()
	`, userID, token, platform)
	return err
}

// UnregisterPushToken forgets token. Tokens of other sellers are untouched.
func (s *Store) UnregisterPushToken(ctx context.Context, userID, token string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM device_push_tokens WHERE user_id = $1 AND token = $2`, userID, token)
	return err
}

// GetUserPushTokens lists the seller's devices, most recently registered first.
func (s *Store) GetUserPushTokens(ctx context.Context, userID string) ([]DevicePushToken, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text AS id, user_id, token, platform, created_at
		FROM device_push_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[DevicePushToken])
}
