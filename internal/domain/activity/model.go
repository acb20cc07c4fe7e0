package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeRecommendationServed ActivityType = "recommendation_served"
	TypeSessionStarted       ActivityType = "session_started"
	TypeSessionUpdated       ActivityType = "session_updated"
	TypeSessionCompleted     ActivityType = "session_completed"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	SessionID    *string      `json:"session_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
