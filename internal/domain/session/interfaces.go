package session

import "context"

// SessionRepository provides persistence for sessions.
// Update overwrites the stored session and appends any history entries
// not yet stored, as one atomic write.
type SessionRepository interface {
	Create(ctx context.Context, sess *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, sess *Session) error
}
