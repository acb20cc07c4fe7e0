package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/rpggio/carwizard/internal/domain/vehicle"
)

// Service handles activity log operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// LogActivity logs an activity entry with the current timestamp if missing.
func (s *Service) LogActivity(ctx context.Context, entry *ActivityEntry) error {
	if entry == nil || entry.ActivityType == "" {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	s.logger.Debug("activity logged", "type", entry.ActivityType, "id", entry.ID)
	return nil
}

// GetRecentActivity lists activity entries with filtering.
func (s *Service) GetRecentActivity(ctx context.Context, opts ListActivityOptions) ([]ActivityEntry, error) {
	return s.repo.List(ctx, opts)
}

type recommendationDetails struct {
	Criteria   vehicle.Criteria `json:"criteria"`
	VehicleIDs []string         `json:"vehicle_ids"`
}

// RecordRecommendation logs a served recommendation list.
func (s *Service) RecordRecommendation(ctx context.Context, sessionID string, criteria vehicle.Criteria, vehicleIDs []string) error {
	details, err := json.Marshal(recommendationDetails{Criteria: criteria, VehicleIDs: vehicleIDs})
	if err != nil {
		return fmt.Errorf("encoding recommendation details: %w", err)
	}
	return s.LogActivity(ctx, &ActivityEntry{
		SessionID:    optionalID(sessionID),
		ActivityType: TypeRecommendationServed,
		Summary:      fmt.Sprintf("served %d vehicles", len(vehicleIDs)),
		Details:      string(details),
	})
}

// RecordSessionStarted logs the creation of a wizard session.
func (s *Service) RecordSessionStarted(ctx context.Context, sessionID string) error {
	return s.LogActivity(ctx, &ActivityEntry{
		SessionID:    optionalID(sessionID),
		ActivityType: TypeSessionStarted,
		Summary:      "session started",
	})
}

// RecordSessionStep logs a wizard step; completing steps get their own type.
func (s *Service) RecordSessionStep(ctx context.Context, sessionID, step, action string, completed bool) error {
	activityType := TypeSessionUpdated
	if completed {
		activityType = TypeSessionCompleted
	}
	return s.LogActivity(ctx, &ActivityEntry{
		SessionID:    optionalID(sessionID),
		ActivityType: activityType,
		Summary:      fmt.Sprintf("%s: %s", step, action),
	})
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
