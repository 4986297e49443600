package sink

import (
	"context"
	"log/slog"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"

	"hist-temps/internal/config"
)

// InfluxSink writes series to an InfluxDB 2 bucket. Each datapoint becomes one
// point with the series measurement, a place tag and a value field.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
	logger   *slog.Logger
}

// NewInfluxSink creates a sink for the bucket in cfg. No connection is made
// until the first write.
func NewInfluxSink(cfg config.InfluxDBConfig, logger *slog.Logger) *InfluxSink {
	if logger == nil {
		logger = slog.Default()
	}

	client := influxdb2.NewClient(cfg.Host, cfg.Token)

	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		bucket:   cfg.Bucket,
		logger:   logger,
	}
}

func (s *InfluxSink) Write(ctx context.Context, series Series) error {
	if len(series.Points) == 0 {
		s.logger.Info("nothing to write to influxdb", "place", series.Place)
		return nil
	}

	points := make([]*write.Point, 0, len(series.Points))
	for _, dp := range series.Points {
		points = append(points, influxdb2.NewPoint(
			series.Measurement,
			map[string]string{"place": series.Place},
			map[string]interface{}{"value": dp.Value},
			dp.Timestamp,
		))
	}

	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return errors.Wrapf(err, "failed to write %d points to influxdb bucket %s", len(points), s.bucket)
	}

	s.logger.Info("wrote points to influxdb", "bucket", s.bucket, "place", series.Place, "points", len(points))
	return nil
}

func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
