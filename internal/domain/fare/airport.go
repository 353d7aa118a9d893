package fare

import "strings"

// DefaultAirportKeywords covers Mumbai's airport; deployments override it via configuration.
var DefaultAirportKeywords = []string{
	"airport",
	"terminal",
	"chhatrapati shivaji",
	"csia",
	"csmia",
	"bom",
}

// AirportMatcher classifies free-text locations as airport-related by
// case-insensitive substring match. False positives are accepted.
type AirportMatcher struct {
	keywords []string
}

// NewAirportMatcher builds a matcher; an empty list falls back to DefaultAirportKeywords.
func NewAirportMatcher(keywords []string) *AirportMatcher {
	if len(keywords) == 0 {
		keywords = DefaultAirportKeywords
	}
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			normalized = append(normalized, k)
		}
	}
	return &AirportMatcher{keywords: normalized}
}

// Keywords returns the normalized keyword list.
func (m *AirportMatcher) Keywords() []string {
	out := make([]string, len(m.keywords))
	copy(out, m.keywords)
	return out
}

// Matches reports whether label mentions an airport keyword.
func (m *AirportMatcher) Matches(label string) bool {
	lower := strings.ToLower(label)
	for _, k := range m.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// IsAirportTrip reports whether either endpoint is airport-related.
func (m *AirportMatcher) IsAirportTrip(pickupLabel, dropLabel string) bool {
	return m.Matches(pickupLabel) || m.Matches(dropLabel)
}
