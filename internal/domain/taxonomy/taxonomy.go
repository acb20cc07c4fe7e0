package taxonomy

import "strings"

// Any is the sentinel a wizard step sends when the user has no preference.
const Any = "any"

// Tag is a single entry of the tag vocabulary.
type Tag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Category groups tags presented together in one wizard step.
type Category struct {
	Name string `json:"name"`
	Tags []Tag  `json:"tags"`
}

const (
	CategoryUsage      = "usage"
	CategoryPriorities = "priorities"
)

var usageTags = []Tag{
	{ID: "city", Label: "City driving"},
	{ID: "long-trips", Label: "Long trips"},
	{ID: "mixed", Label: "Mixed use"},
	{ID: "winter", Label: "Winter conditions"},
	{ID: "family-focused", Label: "Family"},
	{ID: "sport", Label: "Sport"},
}

var priorityTags = []Tag{
	{ID: "safety", Label: "Safety"},
	{ID: "low-consumption", Label: "Low consumption"},
	{ID: "performance", Label: "Performance"},
	{ID: "comfort", Label: "Comfort"},
	{ID: "technology", Label: "Technology and ADAS"},
	{ID: "low-maintenance", Label: "Low maintenance cost"},
}

var bodyTypes = []string{
	"SUV",
	"Sedan",
	"Hatchback",
	"Station Wagon",
	"Coupe",
	"Convertible",
	"MPV",
	"Pickup",
}

// fuelOptions are the fuel labels offered by the wizard, all present in fuelLabels.
var fuelOptions = []string{
	"Any",
	"Gasoline",
	"Diesel",
	"Hybrid",
	"Mild Hybrid",
	"Plug-in Hybrid",
	"Electric",
	"LPG",
}

// fuelLabels maps user-facing fuel labels (lower-cased) to catalog labels.
var fuelLabels = map[string]string{
	"any":            Any,
	"gasoline":       "Petrol",
	"petrol":         "Petrol",
	"diesel":         "Diesel",
	"hybrid":         "Hybrid",
	"full hybrid":    "Hybrid",
	"mild hybrid":    "Petrol (MHEV)",
	"plug-in hybrid": "Plug-in Hybrid",
	"phev":           "Plug-in Hybrid",
	"electric":       "Electric",
	"ev":             "Electric",
	"lpg":            "LPG",
	"cng":            "CNG",
}

// Categories returns the full tag vocabulary in presentation order.
func Categories() []Category {
	return []Category{
		{Name: CategoryUsage, Tags: UsageTags()},
		{Name: CategoryPriorities, Tags: PriorityTags()},
	}
}

// UsageTags returns a copy of the usage vocabulary.
func UsageTags() []Tag {
	return append([]Tag(nil), usageTags...)
}

// PriorityTags returns a copy of the priorities vocabulary.
func PriorityTags() []Tag {
	return append([]Tag(nil), priorityTags...)
}

// BodyTypes returns the body types offered by the wizard.
func BodyTypes() []string {
	return append([]string(nil), bodyTypes...)
}

// FuelOptions returns the user-facing fuel labels offered by the wizard.
func FuelOptions() []string {
	return append([]string(nil), fuelOptions...)
}

// IsKnownTag reports whether tag belongs to the vocabulary. Ranking does not
// depend on it; unknown tags are still matched literally.
func IsKnownTag(tag string) bool {
	for _, t := range usageTags {
		if t.ID == tag {
			return true
		}
	}
	for _, t := range priorityTags {
		if t.ID == tag {
			return true
		}
	}
	return false
}

// IsAny reports whether a selection means "no preference".
func IsAny(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.EqualFold(v, Any)
}

// TranslateFuel maps a user-facing fuel label to the catalog label.
// Labels missing from the table are returned unchanged.
func TranslateFuel(label string) string {
	if internal, ok := fuelLabels[strings.ToLower(strings.TrimSpace(label))]; ok {
		return internal
	}
	return label
}
