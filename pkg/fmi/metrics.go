package fmi

import (
	"github.com/prometheus/client_golang/prometheus"

	"hist-temps/internal/metrics"
)

var (
	// requestCounter counts GetFeature calls by outcome: ok, transport,
	// status or exception
	requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "fmi",
			Name:      "requests_total",
			Help:      "Count of FMI WFS GetFeature requests by outcome",
		},
		[]string{"outcome"},
	)

	// requestHistogram records round trip time of GetFeature calls including
	// reading the body
	requestHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "fmi",
			Name:      "request_duration_seconds",
			Help:      "FMI WFS GetFeature duration distribution",
		},
	)

	datapointsExtracted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "fmi",
			Name:      "datapoints_extracted_total",
			Help:      "Count of temperature datapoints extracted from responses",
		},
	)

	// valuesSkipped counts temperature values that produced no datapoint,
	// either because the sensor reported NaN/empty or no time preceded them
	valuesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "fmi",
			Name:      "values_skipped_total",
			Help:      "Count of temperature values skipped during extraction",
		},
		[]string{"reason"},
	)
)

func init() {
	metrics.MustRegister(requestCounter)
	metrics.MustRegister(requestHistogram)
	metrics.MustRegister(datapointsExtracted)
	metrics.MustRegister(valuesSkipped)
}
