package sink

import (
	"context"
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"hist-temps/internal/config"
	"hist-temps/internal/metrics"
	"hist-temps/pkg/fmi"
)

// MeasurementTemperature is the measurement name of FMI air temperatures
const MeasurementTemperature = "temperature"

var (
	// writeCounter counts Sink.Write calls by sink kind and outcome
	writeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "sink",
			Name:      "writes_total",
			Help:      "Count of series writes by sink and outcome",
		},
		[]string{"sink", "outcome"},
	)
)

func init() {
	metrics.MustRegister(writeCounter)
}

// Series is a run of datapoints for one place and measurement
type Series struct {
	Place       string
	Measurement string
	Points      []fmi.Datapoint
}

// Sink receives collected series. Writes are not retried; a failed write is
// returned to the caller as is.
type Sink interface {
	Write(ctx context.Context, series Series) error
	Close() error
}

// New creates the sink selected by cfg.Kind. out is only used by the print
// sink.
func New(cfg config.Sink, out io.Writer, logger *slog.Logger) (Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", "sink", "sink", cfg.Kind)

	var (
		s   Sink
		err error
	)

	switch cfg.Kind {
	case config.SinkPrint, "":
		s = NewPrinter(out)
	case config.SinkInfluxDB:
		s = NewInfluxSink(cfg.InfluxDB, logger)
	case config.SinkSQLite:
		s, err = NewSQLiteSink(cfg.SQLite.Path, logger)
	case config.SinkPostgres:
		s, err = NewPostgresSink(cfg.Postgres.URL, logger)
	case config.SinkMQTT:
		s, err = NewMQTTSink(cfg.MQTT, logger)
	default:
		return nil, errors.Errorf("unknown sink kind %q", cfg.Kind)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s sink", cfg.Kind)
	}

	kind := cfg.Kind
	if kind == "" {
		kind = config.SinkPrint
	}

	return &instrumented{Sink: s, kind: kind}, nil
}

// instrumented counts the outcome of every write
type instrumented struct {
	Sink
	kind string
}

func (i *instrumented) Write(ctx context.Context, series Series) error {
	err := i.Sink.Write(ctx, series)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	writeCounter.WithLabelValues(i.kind, outcome).Inc()

	return err
}
