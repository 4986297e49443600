package observations

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"hist-temps/internal/random"
	"hist-temps/internal/sink"
	"hist-temps/pkg/fmi"
)

var (
	// ErrInvalidWindow is returned when a request ends before it starts
	ErrInvalidWindow = errors.New("end time is before start time")

	// ErrMissingPlace is returned when data is to be fetched without a place
	ErrMissingPlace = errors.New("place must not be empty")
)

// manager implements the Manager interface
type manager struct {
	source Source
	sink   sink.Sink
	rng    *rand.Rand
	logger *slog.Logger
}

// Option configures a manager
type Option func(*manager)

// WithRand sets the source of randomness for generated runs
func WithRand(rng *rand.Rand) Option {
	return func(m *manager) {
		m.rng = rng
	}
}

// NewManager creates a manager reading from source and writing to s
func NewManager(source Source, s sink.Sink, logger *slog.Logger, opts ...Option) Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &manager{
		source: source,
		sink:   s,
		logger: logger.With("module", "observations"),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Collect returns the datapoints for req
func (m *manager) Collect(ctx context.Context, req Request) ([]fmi.Datapoint, error) {
	return m.collect(ctx, req, m.logger)
}

// Deliver writes points to the sink
func (m *manager) Deliver(ctx context.Context, req Request, points []fmi.Datapoint) error {
	return m.deliver(ctx, req, points, m.logger)
}

// Run collects and delivers one series. Every log line of the run carries the
// same run_id.
func (m *manager) Run(ctx context.Context, req Request) error {
	logger := m.logger.With("run_id", uuid.New().String())
	logger.Info("run started", "place", req.Place, "start", req.Start.UTC(), "end", req.End.UTC())

	points, err := m.collect(ctx, req, logger)
	if err != nil {
		return err
	}

	if err := m.deliver(ctx, req, points, logger); err != nil {
		return err
	}

	logger.Info("run finished", "datapoints", len(points))
	return nil
}

func (m *manager) collect(ctx context.Context, req Request, logger *slog.Logger) ([]fmi.Datapoint, error) {
	if req.End.Before(req.Start) {
		return nil, errors.Wrapf(ErrInvalidWindow, "%s < %s", req.End.UTC(), req.Start.UTC())
	}

	if req.RandomCount != nil {
		points := random.Generate(req.Start, *req.RandomCount, m.rng)
		logger.Info("generated random datapoints", "count", len(points), "start", req.Start.UTC())
		return points, nil
	}

	if req.Place == "" {
		return nil, ErrMissingPlace
	}
	if m.source == nil {
		return nil, errors.New("no observation source configured")
	}

	points, err := m.source.Fetch(ctx, req.Start, req.End)
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect observations")
	}

	return points, nil
}

func (m *manager) deliver(ctx context.Context, req Request, points []fmi.Datapoint, logger *slog.Logger) error {
	series := sink.Series{
		Place:       req.Place,
		Measurement: sink.MeasurementTemperature,
		Points:      points,
	}

	if err := m.sink.Write(ctx, series); err != nil {
		return errors.Wrap(err, "failed to deliver observations")
	}

	logger.Debug("delivered observations", "place", req.Place, "datapoints", len(points))
	return nil
}
