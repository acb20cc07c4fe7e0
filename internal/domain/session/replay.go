package session

import "time"

// ReplayState is what a step log says about a session.
type ReplayState struct {
	Data        StepData   `json:"data"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Steps       int        `json:"steps"`
	LastStep    string     `json:"last_step,omitempty"`
}

// Replay folds a step log into the session state it produced. Each step
// carries the full post-merge payload, so the last step wins; completion is
// the timestamp of the first completing step.
func Replay(history []Step) ReplayState {
	state := ReplayState{
		Data: StepData{
			UsageTags:         []string{},
			PriorityTags:      []string{},
			RecommendedCarIDs: []string{},
		},
		Steps: len(history),
	}
	for _, step := range history {
		state.Data = step.Data
		state.LastStep = step.Step
		if IsCompletion(step.Action) && state.CompletedAt == nil {
			ts := step.Timestamp
			state.CompletedAt = &ts
		}
	}
	return state
}
