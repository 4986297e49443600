package fmi

import (
	"strings"
)

// Classifier decides whether a MeasurementTimeseries carries air temperature.
//
// FMI bundles every requested quantity into one document and does not tag
// the series with a type, so two weak signals are combined: a substring match
// of the series' gml:id against Hints, and a latched match from the most
// recent observedProperty element seen before the series opened.
type Classifier struct {
	Hints []string
}

// NewClassifier returns a Classifier using hints, or DefaultTemperatureHints
// when hints is empty.
func NewClassifier(hints []string) Classifier {
	if len(hints) == 0 {
		hints = DefaultTemperatureHints
	}
	return Classifier{Hints: hints}
}

// IsTemperature reports whether a series with the given identifier is a
// temperature series. latched is the observedProperty carry-over for this
// series.
func (c Classifier) IsTemperature(id string, latched bool) bool {
	return latched || c.matchesHint(id)
}

func (c Classifier) matchesHint(id string) bool {
	if id == "" {
		return false
	}
	for _, hint := range c.Hints {
		if hint != "" && strings.Contains(id, hint) {
			return true
		}
	}
	return false
}

// MatchesObservedProperty reports whether observedProperty text describes air
// temperature.
func MatchesObservedProperty(text string) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	return strings.Contains(needle, "temperature") || strings.Contains(needle, "airtemp")
}
