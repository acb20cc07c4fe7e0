package vehicle

import (
	"math"
	"strings"

	"github.com/rpggio/carwizard/internal/domain/taxonomy"
)

// unboundedBudget stands in for an absent budget so the price test always runs.
const unboundedBudget int64 = math.MaxInt64

// Vehicle is a catalog record. The core never mutates it.
type Vehicle struct {
	ID           string   `json:"id" yaml:"id"`
	Make         string   `json:"make,omitempty" yaml:"make"`
	Model        string   `json:"model,omitempty" yaml:"model"`
	Price        int64    `json:"price" yaml:"price"`
	BodyType     string   `json:"body_type" yaml:"body_type"`
	FuelType     string   `json:"fuel_type" yaml:"fuel_type"`
	Tags         []string `json:"tags" yaml:"tags"`
	QualityScore float64  `json:"quality_score" yaml:"quality_score"`
}

// HasTag reports whether tag is present in the vehicle's tag set.
func (v Vehicle) HasTag(tag string) bool {
	for _, t := range v.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Criteria is one recommendation request.
type Criteria struct {
	// Budget is a price ceiling; nil means unbounded.
	Budget *int64 `json:"budget,omitempty"`
	// BodyType is matched as a substring; empty or "any" disables the test.
	BodyType string `json:"body_type,omitempty"`
	// FuelType is a user-facing label, translated before matching.
	FuelType     string   `json:"fuel_type,omitempty"`
	UsageTags    []string `json:"usage_tags,omitempty"`
	PriorityTags []string `json:"priority_tags,omitempty"`
}

// RankedVehicle pairs a vehicle with its match score.
type RankedVehicle struct {
	Vehicle
	MatchScore float64 `json:"match_score"`
}

// CatalogFilters are the hard filters pushed down into a catalog query.
// Zero values mean "match all" for that dimension.
type CatalogFilters struct {
	MaxPrice           *int64
	BodyTypeContains   string
	FuelTypeStartsWith string
}

// CatalogFilters extracts the hard-filter fields, with the fuel label translated.
func (c Criteria) CatalogFilters() CatalogFilters {
	filters := CatalogFilters{MaxPrice: c.Budget}
	if body := strings.TrimSpace(c.BodyType); !taxonomy.IsAny(body) {
		filters.BodyTypeContains = body
	}
	if fuel := taxonomy.TranslateFuel(strings.TrimSpace(c.FuelType)); !taxonomy.IsAny(fuel) {
		filters.FuelTypeStartsWith = fuel
	}
	return filters
}

// IDs returns the vehicle ids of a ranked list in order.
func IDs(ranked []RankedVehicle) []string {
	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.ID)
	}
	return ids
}
