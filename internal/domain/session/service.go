package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/carwizard/internal/metrics"
	"github.com/rpggio/carwizard/internal/repository"
)

// Service tracks wizard sessions.
//
// Updates are load-merge-append-save sequences with no locking of their own.
// Two concurrent updates to the same session race; the store decides which
// one wins.
type Service struct {
	sessions SessionRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new session service.
func NewService(sessions SessionRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the time source used for step and completion timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// UpdateRequest is a partial update. Nil fields keep their stored value;
// an empty non-nil slice is a real value and clears the list.
type UpdateRequest struct {
	Step              string
	Action            string
	UsageTags         []string
	PriorityTags      []string
	BodyType          *string
	FuelType          *string
	Budget            *int64
	RecommendedCarIDs []string
	SelectedCarID     *string
}

// CreateOrGet returns the session with the given id, or creates a new one
// when id is empty or unknown. The boolean reports whether it was created.
func (s *Service) CreateOrGet(ctx context.Context, id string, meta ClientMetadata) (*Session, bool, error) {
	if strings.TrimSpace(id) != "" {
		sess, err := s.sessions.Get(ctx, id)
		if err == nil {
			return sess, false, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, false, fmt.Errorf("loading session: %w: %w", repository.ErrStorageFailure, err)
		}
		s.logger.Debug("session not found, starting a new one", "requested_id", id)
	}

	sess := &Session{
		ID:                uuid.NewString(),
		UsageTags:         []string{},
		PriorityTags:      []string{},
		RecommendedCarIDs: []string{},
		History:           []Step{},
		CreatedAt:         s.now(),
		Client:            meta,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, false, fmt.Errorf("creating session: %w: %w", repository.ErrStorageFailure, err)
	}
	metrics.SessionsCreated.Inc()
	return sess, true, nil
}

// Get fetches a session by ID.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInput
	}
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session: %w: %w", repository.ErrStorageFailure, err)
	}
	return sess, nil
}

// History returns the step log of a session in append order.
func (s *Service) History(ctx context.Context, id string) ([]Step, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.History, nil
}

// Update merges req into the stored session, appends one step, and saves.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Session, error) {
	if err := validateUpdate(id, req); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next := merge(current, req)
	next.History = append(next.History, Step{
		Timestamp: now,
		Step:      req.Step,
		Action:    req.Action,
		Data:      next.Snapshot(),
	})
	if IsCompletion(req.Action) && next.CompletedAt == nil {
		next.CompletedAt = &now
	}

	if err := s.sessions.Update(ctx, next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("saving session: %w: %w", repository.ErrStorageFailure, err)
	}

	metrics.RecordSessionStep(req.Action)
	s.logger.Debug("session updated",
		"session_id", next.ID,
		"step", req.Step,
		"action", req.Action,
		"history_len", len(next.History),
	)
	return next, nil
}

func validateUpdate(id string, req UpdateRequest) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Step) == "" {
		return fmt.Errorf("%w: step is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Action) == "" {
		return fmt.Errorf("%w: action is required", ErrInvalidInput)
	}
	if req.Budget != nil && *req.Budget < 0 {
		return fmt.Errorf("%w: budget must not be negative", ErrInvalidInput)
	}
	return nil
}

// merge resolves every mutable field as request value, else stored value,
// else the empty default. The stored session is left untouched.
func merge(current *Session, req UpdateRequest) *Session {
	next := current.clone()
	if req.UsageTags != nil {
		next.UsageTags = orEmpty(req.UsageTags)
	}
	if req.PriorityTags != nil {
		next.PriorityTags = orEmpty(req.PriorityTags)
	}
	if req.RecommendedCarIDs != nil {
		next.RecommendedCarIDs = orEmpty(req.RecommendedCarIDs)
	}
	if req.BodyType != nil {
		next.BodyType = clonePtr(req.BodyType)
	}
	if req.FuelType != nil {
		next.FuelType = clonePtr(req.FuelType)
	}
	if req.Budget != nil {
		next.Budget = clonePtr(req.Budget)
	}
	if req.SelectedCarID != nil {
		next.SelectedCarID = clonePtr(req.SelectedCarID)
	}
	return next
}
