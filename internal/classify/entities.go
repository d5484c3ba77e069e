package classify

import (
	"regexp"
	"strings"
)

// Entity categories extracted independently of the chosen intent.
const (
	EntityTime      = "time"
	EntityLocation  = "location"
	EntityEquipment = "equipment"
	EntityUrgency   = "urgency"
)

type entityCategory struct {
	name    string
	pattern *regexp.Regexp
}

var entityCategories = []entityCategory{
	{EntityTime, regexp.MustCompile(
		`\b(\d{1,2}:\d{2}\s?(am|pm)?|\d{1,2}\s?(am|pm)|morning|afternoon|evening|tonight|noon|midnight|today|tomorrow|yesterday)\b`)},
	{EntityLocation, regexp.MustCompile(
		`\b(building\s+\w+|floor\s+\w+|room\s+\w+|site\s+\w+|basement|rooftop|roof|warehouse|office|yard|entrance|parking lot)\b`)},
	{EntityEquipment, regexp.MustCompile(
		`\b(drill|ladder|forklift|crane|generator|pump|compressor|scaffold(ing)?|excavator|truck|hoist|welder)\b`)},
	{EntityUrgency, regexp.MustCompile(
		`\b(urgent(ly)?|asap|immediately|emergency|critical|right away)\b`)},
}

// extractEntities returns the literal matches per category found in the
// lower-cased text. Categories with no match are omitted entirely, never
// present with an empty list.
func extractEntities(text string) map[string][]string {
	lower := strings.ToLower(text)
	out := make(map[string][]string)
	for _, cat := range entityCategories {
		matches := cat.pattern.FindAllString(lower, -1)
		if len(matches) > 0 {
			out[cat.name] = matches
		}
	}
	return out
}

// flattenEntities joins all matches across categories, for review records.
func flattenEntities(entities map[string][]string) []string {
	var hits []string
	for _, cat := range entityCategories {
		hits = append(hits, entities[cat.name]...)
	}
	return hits
}
