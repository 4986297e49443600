package fmi

import (
	"time"
)

const (
	// DefaultBaseURL is the FMI open data WFS endpoint
	DefaultBaseURL = "https://opendata.fmi.fi/wfs"

	// StoredQueryHourlyTVP returns hourly weather observations for a place as
	// WaterML2 time-value pair series, one series per measured quantity.
	StoredQueryHourlyTVP = "fmi::observations::weather::hourly::timevaluepair"

	// DefaultDumpPath is where the raw response is written for offline inspection
	DefaultDumpPath = "fmi_initial_response.xml"
)

// DefaultTemperatureHints are gml:id substrings FMI uses for air temperature
// series in its observation stored queries.
var DefaultTemperatureHints = []string{
	"-t2m",
	"-temperature",
	"TA_PT1H_AVG",
	"AirTemperature",
}

// Datapoint is a single timestamped temperature reading
type Datapoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Parameter is one query string pair. A slice of Parameter keeps the order in
// which pairs are sent, unlike url.Values.
type Parameter struct {
	Key   string
	Value string
}
