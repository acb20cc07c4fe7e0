package recommend

import (
	"context"

	"github.com/rpggio/carwizard/internal/domain/vehicle"
)

// Catalog returns vehicles matching a set of hard filters. Filters are
// applied case-insensitively; zero-valued filter fields match everything.
type Catalog interface {
	Query(ctx context.Context, filters vehicle.CatalogFilters) ([]vehicle.Vehicle, error)
}
