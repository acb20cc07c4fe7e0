package session

import (
	"slices"
	"time"
)

// Actions a wizard commonly sends. Any other action string is accepted and stored.
const (
	ActionSelect    = "select"
	ActionDeselect  = "deselect"
	ActionRecommend = "recommend"
	ActionComplete  = "complete"
)

// IsCompletion reports whether action marks the flow as complete.
func IsCompletion(action string) bool {
	return action == ActionComplete
}

// CompletedByLastStep reports whether the newest step is the one that set
// CompletedAt. Later completion steps leave CompletedAt unchanged.
func (s *Session) CompletedByLastStep() bool {
	if s.CompletedAt == nil || len(s.History) == 0 {
		return false
	}
	last := len(s.History) - 1
	if !IsCompletion(s.History[last].Action) {
		return false
	}
	for _, step := range s.History[:last] {
		if IsCompletion(step.Action) {
			return false
		}
	}
	return true
}

// ClientMetadata is captured once when a session is created.
type ClientMetadata struct {
	UserAgent string `json:"user_agent,omitempty"`
	IP        string `json:"ip,omitempty"`
}

// StepData is the session payload as it stood right after a mutation.
type StepData struct {
	UsageTags         []string `json:"usage_tags"`
	PriorityTags      []string `json:"priority_tags"`
	BodyType          *string  `json:"body_type"`
	FuelType          *string  `json:"fuel_type"`
	Budget            *int64   `json:"budget"`
	RecommendedCarIDs []string `json:"recommended_car_ids"`
	SelectedCarID     *string  `json:"selected_car_id"`
}

// Step is one entry of a session's append-only history.
type Step struct {
	Timestamp time.Time `json:"timestamp"`
	Step      string    `json:"step"`
	Action    string    `json:"action"`
	Data      StepData  `json:"data"`
}

// Session is the durable record of one wizard interaction
type Session struct {
	ID                string         `json:"id"`
	UsageTags         []string       `json:"usage_tags"`
	PriorityTags      []string       `json:"priority_tags"`
	BodyType          *string        `json:"body_type"`
	FuelType          *string        `json:"fuel_type"`
	Budget            *int64         `json:"budget"`
	RecommendedCarIDs []string       `json:"recommended_car_ids"`
	SelectedCarID     *string        `json:"selected_car_id"`
	History           []Step         `json:"history"`
	CreatedAt         time.Time      `json:"created_at"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	Client            ClientMetadata `json:"client_metadata"`
}

// Snapshot returns the current mutable fields as step data.
func (s *Session) Snapshot() StepData {
	return StepData{
		UsageTags:         orEmpty(s.UsageTags),
		PriorityTags:      orEmpty(s.PriorityTags),
		BodyType:          clonePtr(s.BodyType),
		FuelType:          clonePtr(s.FuelType),
		Budget:            clonePtr(s.Budget),
		RecommendedCarIDs: orEmpty(s.RecommendedCarIDs),
		SelectedCarID:     clonePtr(s.SelectedCarID),
	}
}

// Completed reports whether the flow has been marked complete.
func (s *Session) Completed() bool {
	return s.CompletedAt != nil
}

func (s *Session) clone() *Session {
	c := *s
	c.UsageTags = orEmpty(s.UsageTags)
	c.PriorityTags = orEmpty(s.PriorityTags)
	c.RecommendedCarIDs = orEmpty(s.RecommendedCarIDs)
	c.BodyType = clonePtr(s.BodyType)
	c.FuelType = clonePtr(s.FuelType)
	c.Budget = clonePtr(s.Budget)
	c.SelectedCarID = clonePtr(s.SelectedCarID)
	c.CompletedAt = clonePtr(s.CompletedAt)
	c.History = slices.Clone(s.History)
	return &c
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return slices.Clone(values)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
