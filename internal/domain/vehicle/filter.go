package vehicle

import "strings"

// Filter keeps candidates that satisfy every hard constraint in c.
// It preserves input order and is idempotent.
func Filter(candidates []Vehicle, c Criteria) []Vehicle {
	return FilterBy(candidates, c.CatalogFilters())
}

// FilterBy applies already-extracted hard filters.
func FilterBy(candidates []Vehicle, f CatalogFilters) []Vehicle {
	ceiling := unboundedBudget
	if f.MaxPrice != nil {
		ceiling = *f.MaxPrice
	}
	body := strings.ToLower(f.BodyTypeContains)
	fuel := strings.ToLower(f.FuelTypeStartsWith)

	out := make([]Vehicle, 0, len(candidates))
	for _, v := range candidates {
		if v.Price > ceiling {
			continue
		}
		if body != "" && !strings.Contains(strings.ToLower(v.BodyType), body) {
			continue
		}
		if fuel != "" && !strings.HasPrefix(strings.ToLower(v.FuelType), fuel) {
			continue
		}
		out = append(out, v)
	}
	return out
}
