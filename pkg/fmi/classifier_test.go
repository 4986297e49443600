package fmi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifierIsTemperature(t *testing.T) {
	classifier := NewClassifier(nil)

	testCases := []struct {
		name     string
		id       string
		latched  bool
		expected bool
	}{
		{"T2m_Suffix", "obs-obs-1-1-t2m", false, true},
		{"Temperature_Suffix", "mts-1-1-temperature", false, true},
		{"Hourly_Average_Code", "obs-obs-1-1-TA_PT1H_AVG", false, true},
		{"AirTemperature", "obs-AirTemperature-1", false, true},
		{"Wind_Speed", "obs-obs-1-1-WS_PT1H_AVG", false, false},
		{"Hint_Is_Case_Sensitive", "obs-obs-1-1-T2M", false, false},
		{"T2m_Without_Dash", "obst2m", false, false},
		{"Latched_Without_Hint", "obs-obs-1-1-WS_PT1H_AVG", true, true},
		{"Latched_With_Hint", "obs-obs-1-1-t2m", true, true},
		{"Empty_Id", "", false, false},
		{"Empty_Id_Latched", "", true, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, classifier.IsTemperature(tc.id, tc.latched))
		})
	}
}

func TestNewClassifierDefaults(t *testing.T) {
	assert.Equal(t, DefaultTemperatureHints, NewClassifier(nil).Hints)
	assert.Equal(t, DefaultTemperatureHints, NewClassifier([]string{}).Hints)
	assert.Equal(t, []string{"TEMP"}, NewClassifier([]string{"TEMP"}).Hints)
}

func TestClassifierIgnoresEmptyHint(t *testing.T) {
	classifier := Classifier{Hints: []string{""}}
	assert.False(t, classifier.IsTemperature("anything", false))
}

func TestMatchesObservedProperty(t *testing.T) {
	testCases := []struct {
		text     string
		expected bool
	}{
		{"http://opendata.fmi.fi/meta/AirTemperature", true},
		{"Air temperature", true},
		{"AIRTEMP", true},
		{"  dew point TEMPERATURE ", true},
		{"https://opendata.fmi.fi/meta?observableProperty=observation&param=t2m", false},
		{"wind speed", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.expected, MatchesObservedProperty(tc.text))
		})
	}
}
