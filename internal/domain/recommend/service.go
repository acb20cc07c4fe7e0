package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/carwizard/internal/domain/vehicle"
	"github.com/rpggio/carwizard/internal/metrics"
	"github.com/rpggio/carwizard/internal/repository"
)

// Service composes the filter and ranking stages over a catalog.
// It never writes session state.
type Service struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewService creates a new recommendation service.
func NewService(catalog Catalog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{catalog: catalog, logger: logger}
}

// Recommend returns every eligible vehicle, best match first.
func (s *Service) Recommend(ctx context.Context, criteria vehicle.Criteria) ([]vehicle.RankedVehicle, error) {
	if criteria.Budget != nil && *criteria.Budget < 0 {
		metrics.RecommendationErrors.WithLabelValues("invalid_input").Inc()
		return nil, fmt.Errorf("%w: budget must not be negative", ErrInvalidInput)
	}

	filters := criteria.CatalogFilters()
	start := time.Now()
	candidates, err := s.catalog.Query(ctx, filters)
	metrics.RecordCatalogQuery(time.Since(start))
	if err != nil {
		metrics.RecommendationErrors.WithLabelValues("storage").Inc()
		return nil, fmt.Errorf("querying catalog: %w: %w", repository.ErrStorageFailure, err)
	}

	// The catalog may push filters down only partially.
	candidates = vehicle.FilterBy(candidates, filters)
	ranked := vehicle.Rank(candidates, criteria.UsageTags, criteria.PriorityTags)

	metrics.RecordRecommendation(len(ranked))
	s.logger.Debug("recommendation ranked",
		"candidates", len(ranked),
		"usage_tags", len(criteria.UsageTags),
		"priority_tags", len(criteria.PriorityTags),
	)
	return ranked, nil
}

// EffectiveLimit resolves how many ranked vehicles a response shows.
// A zero request falls back to def; max caps the result when positive.
// Zero means no limit.
func EffectiveLimit(requested, def, max int) int {
	n := requested
	if n == 0 {
		n = def
	}
	if max > 0 && (n == 0 || n > max) {
		n = max
	}
	return n
}
