package fmi

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Temperatures fetches hourly air temperature observations for one place
type Temperatures struct {
	place     string
	wfs       *WFSClient
	extractor *Extractor
	dumper    Dumper
	logger    *slog.Logger
}

// TemperaturesOption configures a Temperatures instance
type TemperaturesOption func(*Temperatures)

// WithWFSClient replaces the default client talking to DefaultBaseURL
func WithWFSClient(client *WFSClient) TemperaturesOption {
	return func(t *Temperatures) {
		t.wfs = client
	}
}

// WithHints replaces the identifier hints used to classify series
func WithHints(hints []string) TemperaturesOption {
	return func(t *Temperatures) {
		t.extractor = NewExtractor(NewClassifier(hints))
	}
}

// WithDumper sets where the raw response is dumped. nil disables dumping.
func WithDumper(d Dumper) TemperaturesOption {
	return func(t *Temperatures) {
		t.dumper = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) TemperaturesOption {
	return func(t *Temperatures) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTemperatures creates a fetcher for place, which is passed to FMI as is
// (a municipality or station name).
func NewTemperatures(place string, opts ...TemperaturesOption) *Temperatures {
	t := &Temperatures{
		place:  place,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.wfs == nil {
		t.wfs = NewWFSClient(nil, DefaultBaseURL, t.logger)
	}
	if t.extractor == nil {
		t.extractor = NewExtractor(NewClassifier(nil))
	}
	t.extractor.WithLogger(t.logger)

	return t
}

// Place returns the place name this instance queries
func (t *Temperatures) Place() string {
	return t.place
}

// Fetch returns the temperature series between start and end
func (t *Temperatures) Fetch(ctx context.Context, start, end time.Time) ([]Datapoint, error) {
	params := []Parameter{
		{Key: "starttime", Value: start.UTC().Format(time.RFC3339)},
		{Key: "endtime", Value: end.UTC().Format(time.RFC3339)},
		{Key: "place", Value: t.place},
	}

	body, err := t.wfs.GetFeature(ctx, StoredQueryHourlyTVP, params)
	if err != nil {
		return nil, err
	}

	if t.dumper != nil {
		t.dumper.Dump(body)
	}

	datapoints, err := t.extractor.Extract(strings.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to extract temperatures for %s", t.place)
	}

	t.logger.Info("fetched temperatures",
		"place", t.place,
		"start", start.UTC(),
		"end", end.UTC(),
		"datapoints", len(datapoints),
	)

	return datapoints, nil
}
