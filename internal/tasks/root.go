package tasks

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hist-temps/internal/clock"
	"hist-temps/internal/config"
	"hist-temps/internal/logging"
	"hist-temps/internal/metrics"
	"hist-temps/internal/observations"
	"hist-temps/internal/sink"
	"hist-temps/internal/version"
	"hist-temps/pkg/fmi"
)

// defaultWindow is the length of the window used when no start time is given
const defaultWindow = 24 * time.Hour

// NewRootCmd builds the hist-temps command. Sink output that is meant for the
// user goes to out; logs go to stderr. clk decides what "now" is when the
// window is left open.
func NewRootCmd(out io.Writer, clk clock.Clock) *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   version.BinaryName,
		Short: "Import historical temperatures from the FMI open data WFS",
		Long: `Fetches hourly air temperature observations for a place from the Finnish
Meteorological Institute open data WFS service and writes them to stdout,
InfluxDB, SQLite, PostgreSQL or an MQTT broker.

Places are passed to FMI as is, e.g. a municipality ("Turku") or a station
name ("Pori airport"). Times are RFC 3339; when omitted the last 24 hours up
to the current full hour are fetched.

Instead of fetching, --random-count generates synthetic hourly datapoints,
which is useful for exercising a sink without touching the network.`,
		Version:       version.VersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, out, clk)
		},
	}

	flags := cmd.Flags()
	flags.StringP("place", "p", "", "A place name passed to the WFS endpoint (eg. a city)")
	flags.StringP("starttime", "s", "", "Start of the window, RFC 3339 (default: endtime - 24h)")
	flags.StringP("endtime", "e", "", "End of the window, RFC 3339 (default: current full hour)")
	flags.Int("random-count", 0, "Generate this many random datapoints instead of fetching from FMI")
	flags.BoolP("write-influxdb", "w", false, "Write data to InfluxDB (same as --sink influxdb)")
	flags.String("sink", config.SinkPrint, "Where to write data: print, influxdb, sqlite, postgres or mqtt")
	flags.Bool("verbose", false, "Enable verbose output")

	// BindPFlag fails only for a nil flag, which is a programming error here.
	if err := v.BindPFlag("sink.kind", flags.Lookup("sink")); err != nil {
		panic(err)
	}

	return cmd
}

// Execute is our main entrypoint to the application
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(os.Stdout, clock.New()).ExecuteContext(ctx); err != nil {
		slog.Error("hist-temps failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, v *viper.Viper, out io.Writer, clk clock.Clock) error {
	flags := cmd.Flags()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	if writeInflux, _ := flags.GetBool("write-influxdb"); writeInflux {
		v.Set("sink.kind", config.SinkInfluxDB)
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		cfg.Log.Level = slog.LevelDebug
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.Log, version.Version, version.BinaryName)
	slog.SetDefault(logger)

	req, err := buildRequest(cmd, clk)
	if err != nil {
		return err
	}

	s, err := sink.New(cfg.Sink, out, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn("failed to close sink", "sink", cfg.Sink.Kind, "error", err)
		}
	}()

	var source observations.Source
	if req.RandomCount == nil {
		source = newSource(cfg, req.Place, logger)
	}

	err = observations.NewManager(source, s, logger).Run(ctx, req)

	if cfg.PushGateway != "" {
		if pushErr := metrics.Push(ctx, cfg.PushGateway, version.BinaryName); pushErr != nil {
			logger.Warn("failed to push metrics", "pushgateway", cfg.PushGateway, "error", pushErr)
		}
	}

	return err
}

// buildRequest turns flags into a run request. The window defaults to the
// 24 hours ending at the clock's current full hour.
func buildRequest(cmd *cobra.Command, clk clock.Clock) (observations.Request, error) {
	flags := cmd.Flags()

	place, _ := flags.GetString("place")
	place = strings.TrimSpace(place)

	var randomCount *int
	if flags.Changed("random-count") {
		count, _ := flags.GetInt("random-count")
		if count < 0 {
			return observations.Request{}, errors.Errorf("--random-count must not be negative, got %d", count)
		}
		randomCount = &count
	}

	if place == "" {
		if randomCount == nil {
			return observations.Request{}, errors.New("--place is required unless --random-count is given")
		}
		place = "random"
	}

	end := clk.Now().UTC().Truncate(time.Hour)
	if raw, _ := flags.GetString("endtime"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return observations.Request{}, errors.Wrapf(err, "invalid --endtime %q", raw)
		}
		end = parsed.UTC()
	}

	start := end.Add(-defaultWindow)
	if raw, _ := flags.GetString("starttime"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return observations.Request{}, errors.Wrapf(err, "invalid --starttime %q", raw)
		}
		start = parsed.UTC()
	}

	return observations.Request{
		Place:       place,
		Start:       start,
		End:         end,
		RandomCount: randomCount,
	}, nil
}

func newSource(cfg *config.Config, place string, logger *slog.Logger) observations.Source {
	var dumper fmi.Dumper
	if cfg.FMI.DumpEnabled {
		dumper = fmi.NewFileDumper(afero.NewOsFs(), cfg.FMI.DumpPath, logger)
	}

	return fmi.NewTemperatures(place,
		fmi.WithWFSClient(fmi.NewWFSClient(nil, cfg.FMI.BaseURL, logger)),
		fmi.WithHints(cfg.FMI.Hints),
		fmi.WithDumper(dumper),
		fmi.WithLogger(logger),
	)
}
