package vehicle

import "slices"

const (
	tagMatchWeight = 10.0
	qualityWeight  = 0.1
)

// Score computes the match score of v against a search-tag bag.
// Every occurrence in the bag counts, so a tag listed twice scores twice.
func Score(v Vehicle, searchTags []string) float64 {
	matches := 0
	for _, tag := range searchTags {
		if v.HasTag(tag) {
			matches++
		}
	}
	return tagMatchWeight*float64(matches) + qualityWeight*v.QualityScore
}

// Rank scores every candidate and sorts by score, highest first.
// Equal scores keep their input order.
func Rank(candidates []Vehicle, usageTags, priorityTags []string) []RankedVehicle {
	searchTags := make([]string, 0, len(usageTags)+len(priorityTags))
	searchTags = append(searchTags, usageTags...)
	searchTags = append(searchTags, priorityTags...)

	ranked := make([]RankedVehicle, len(candidates))
	for i, v := range candidates {
		ranked[i] = RankedVehicle{Vehicle: v, MatchScore: Score(v, searchTags)}
	}
	slices.SortStableFunc(ranked, func(a, b RankedVehicle) int {
		switch {
		case a.MatchScore > b.MatchScore:
			return -1
		case a.MatchScore < b.MatchScore:
			return 1
		default:
			return 0
		}
	})
	return ranked
}

// Top returns at most n entries of ranked; n <= 0 returns everything.
func Top(ranked []RankedVehicle, n int) []RankedVehicle {
	if n <= 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}
