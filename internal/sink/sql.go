package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"hist-temps/pkg/fmi"
)

const upsertDatapoint = `INSERT INTO datapoints (place, measurement, ts, value)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (place, measurement, ts) DO UPDATE
	SET value = EXCLUDED.value`

// SQLSink stores series in a datapoints table keyed by place, measurement and
// timestamp. Writing the same series twice leaves one row per timestamp with
// the latest value.
type SQLSink struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSQLiteSink opens (creating if needed) the SQLite database at path and
// migrates it.
func NewSQLiteSink(path string, logger *slog.Logger) (*SQLSink, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite database")
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	return newSQLSink(db, logger)
}

// NewPostgresSink connects to the PostgreSQL database at connStr and migrates
// it.
func NewPostgresSink(connStr string, logger *slog.Logger) (*SQLSink, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres connection")
	}

	return newSQLSink(db, logger)
}

func newSQLSink(db *sqlx.DB, logger *slog.Logger) (*SQLSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("driver", db.DriverName())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	if err := migrateUp(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLSink{db: db, logger: logger}, nil
}

// Write upserts every datapoint of series in a single transaction
func (s *SQLSink) Write(ctx context.Context, series Series) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(upsertDatapoint))
	if err != nil {
		return errors.Wrap(err, "failed to prepare upsert")
	}
	defer stmt.Close()

	for _, dp := range series.Points {
		_, err = stmt.ExecContext(ctx, series.Place, series.Measurement, dp.Timestamp.UTC(), dp.Value)
		if err != nil {
			return errors.Wrapf(err, "failed to upsert datapoint at %s", dp.Timestamp.UTC().Format(time.RFC3339))
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit datapoints")
	}

	s.logger.Info("stored datapoints", "place", series.Place, "measurement", series.Measurement, "points", len(series.Points))
	return nil
}

// Points returns the stored datapoints of a place and measurement ordered by
// timestamp
func (s *SQLSink) Points(ctx context.Context, place, measurement string) ([]fmi.Datapoint, error) {
	var rows []struct {
		Timestamp time.Time `db:"ts"`
		Value     float64   `db:"value"`
	}

	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT ts, value FROM datapoints WHERE place = ? AND measurement = ? ORDER BY ts`),
		place, measurement,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to select datapoints")
	}

	datapoints := make([]fmi.Datapoint, 0, len(rows))
	for _, r := range rows {
		datapoints = append(datapoints, fmi.Datapoint{Timestamp: r.Timestamp.UTC(), Value: r.Value})
	}
	return datapoints, nil
}

func (s *SQLSink) Close() error {
	return s.db.Close()
}

// sqliteDSN turns a file path into a mattn/go-sqlite3 DSN, creating the
// parent directory of plain paths.
func sqliteDSN(path string) (string, error) {
	params := []string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
