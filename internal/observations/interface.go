package observations

import (
	"context"
	"time"

	"hist-temps/pkg/fmi"
)

// Source provides temperature observations for a time window. It is
// implemented by *fmi.Temperatures.
type Source interface {
	Fetch(ctx context.Context, start, end time.Time) ([]fmi.Datapoint, error)
}

// Manager collects one series per run and hands it to a sink
type Manager interface {
	// Collect returns the datapoints for req, fetched from the source or
	// generated when req.RandomCount is set
	Collect(ctx context.Context, req Request) ([]fmi.Datapoint, error)

	// Deliver writes points to the sink as the temperature series of
	// req.Place
	Deliver(ctx context.Context, req Request, points []fmi.Datapoint) error

	// Run collects and then delivers
	Run(ctx context.Context, req Request) error
}

// Request describes a single run
type Request struct {
	Place string
	Start time.Time
	End   time.Time

	// RandomCount switches the run to synthetic data: that many hourly
	// datapoints from Start, with no call to the source
	RandomCount *int
}
