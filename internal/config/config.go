package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"hist-temps/pkg/fmi"
)

// EnvPrefix prefixes every environment variable read by the binary, except
// the bare INFLUXDB_* variables kept for existing deployments.
const EnvPrefix = "HIST_TEMPS"

// Sink kinds accepted by sink.kind
const (
	SinkPrint    = "print"
	SinkInfluxDB = "influxdb"
	SinkSQLite   = "sqlite"
	SinkPostgres = "postgres"
	SinkMQTT     = "mqtt"
)

// Config holds all configuration for a run
type Config struct {
	FMI         FMIConfig
	Log         LogConfig
	Sink        Sink
	PushGateway string
}

// FMIConfig holds settings for talking to the FMI open data WFS
type FMIConfig struct {
	BaseURL     string
	DumpPath    string
	DumpEnabled bool
	Hints       []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  slog.Level
	Format string // text, json
}

// Sink selects where collected datapoints go and carries the settings of
// every sink kind. Only the settings of Kind are validated.
type Sink struct {
	Kind     string
	InfluxDB InfluxDBConfig
	SQLite   SQLiteConfig
	Postgres PostgresConfig
	MQTT     MQTTConfig
}

type InfluxDBConfig struct {
	Host   string
	Org    string
	Token  string
	Bucket string
}

type SQLiteConfig struct {
	Path string
}

type PostgresConfig struct {
	URL string
}

type MQTTConfig struct {
	Broker      string
	TopicPrefix string
	ClientID    string
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("fmi.base_url", fmi.DefaultBaseURL)
	v.SetDefault("fmi.dump_path", fmi.DefaultDumpPath)
	v.SetDefault("fmi.dump_enabled", true)
	v.SetDefault("fmi.hints", fmi.DefaultTemperatureHints)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("sink.kind", SinkPrint)
	v.SetDefault("influxdb.bucket", "fmi")
	v.SetDefault("sqlite.path", "hist_temps.db")
	v.SetDefault("mqtt.topic_prefix", "hist-temps")
	v.SetDefault("mqtt.client_id", "hist-temps")
	v.SetDefault("metrics.pushgateway", "")
}

// NewViper returns a viper instance with defaults set and environment lookup
// configured, so fmi.base_url is read from HIST_TEMPS_FMI_BASE_URL.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	// The credentials were historically read without a prefix
	_ = v.BindEnv("influxdb.host", EnvPrefix+"_INFLUXDB_HOST", "INFLUXDB_HOST")
	_ = v.BindEnv("influxdb.org", EnvPrefix+"_INFLUXDB_ORG", "INFLUXDB_ORG")
	_ = v.BindEnv("influxdb.token", EnvPrefix+"_INFLUXDB_TOKEN", "INFLUXDB_TOKEN")

	return v
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. A missing file is not an error; variables already set win.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}

	for _, name := range filenames {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return errors.Wrapf(err, "failed to load %s", name)
		}
	}

	return nil
}

// Load reads .env and the environment and returns a validated Config
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	return FromViper(NewViper())
}

// FromViper builds a validated Config from v. Flags bound into v take
// precedence over the environment, as viper orders them.
func FromViper(v *viper.Viper) (*Config, error) {
	level, err := ParseLogLevel(v.GetString("log.level"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		FMI: FMIConfig{
			BaseURL:     strings.TrimSpace(v.GetString("fmi.base_url")),
			DumpPath:    strings.TrimSpace(v.GetString("fmi.dump_path")),
			DumpEnabled: v.GetBool("fmi.dump_enabled"),
			Hints:       stringList(v.Get("fmi.hints")),
		},
		Log: LogConfig{
			Level:  level,
			Format: strings.ToLower(strings.TrimSpace(v.GetString("log.format"))),
		},
		Sink: Sink{
			Kind: strings.ToLower(strings.TrimSpace(v.GetString("sink.kind"))),
			InfluxDB: InfluxDBConfig{
				Host:   strings.TrimSpace(v.GetString("influxdb.host")),
				Org:    strings.TrimSpace(v.GetString("influxdb.org")),
				Token:  strings.TrimSpace(v.GetString("influxdb.token")),
				Bucket: strings.TrimSpace(v.GetString("influxdb.bucket")),
			},
			SQLite: SQLiteConfig{
				Path: strings.TrimSpace(v.GetString("sqlite.path")),
			},
			Postgres: PostgresConfig{
				URL: strings.TrimSpace(v.GetString("postgres.url")),
			},
			MQTT: MQTTConfig{
				Broker:      strings.TrimSpace(v.GetString("mqtt.broker")),
				TopicPrefix: strings.Trim(strings.TrimSpace(v.GetString("mqtt.topic_prefix")), "/"),
				ClientID:    strings.TrimSpace(v.GetString("mqtt.client_id")),
			},
		},
		PushGateway: strings.TrimSpace(v.GetString("metrics.pushgateway")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the selected sink has everything it needs
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Errorf("invalid log.format %q (allowed: text, json)", c.Log.Format)
	}

	if c.FMI.BaseURL == "" {
		return errors.New("fmi.base_url must not be empty")
	}

	return c.Sink.Validate()
}

// Validate checks the settings of the selected sink kind
func (s Sink) Validate() error {
	var missing []string

	switch s.Kind {
	case SinkPrint:
	case SinkInfluxDB:
		if s.InfluxDB.Host == "" {
			missing = append(missing, "INFLUXDB_HOST")
		}
		if s.InfluxDB.Org == "" {
			missing = append(missing, "INFLUXDB_ORG")
		}
		if s.InfluxDB.Token == "" {
			missing = append(missing, "INFLUXDB_TOKEN")
		}
		if s.InfluxDB.Bucket == "" {
			missing = append(missing, EnvPrefix+"_INFLUXDB_BUCKET")
		}
	case SinkSQLite:
		if s.SQLite.Path == "" {
			missing = append(missing, EnvPrefix+"_SQLITE_PATH")
		}
	case SinkPostgres:
		if s.Postgres.URL == "" {
			missing = append(missing, EnvPrefix+"_POSTGRES_URL")
		}
	case SinkMQTT:
		if s.MQTT.Broker == "" {
			missing = append(missing, EnvPrefix+"_MQTT_BROKER")
		}
	default:
		return errors.Errorf("invalid sink.kind %q (allowed: %s, %s, %s, %s, %s)",
			s.Kind, SinkPrint, SinkInfluxDB, SinkSQLite, SinkPostgres, SinkMQTT)
	}

	if len(missing) > 0 {
		return errors.Errorf("missing required environment variables for %s sink: %s",
			s.Kind, strings.Join(missing, ", "))
	}

	return nil
}

// ParseLogLevel maps a level name onto slog.Level
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Errorf("invalid log.level %q (allowed: debug, info, warn, error)", s)
	}
}

// stringList accepts either a list (defaults, config files) or a comma
// separated string (environment variables).
func stringList(raw interface{}) []string {
	var items []string

	switch val := raw.(type) {
	case nil:
		return nil
	case string:
		items = strings.Split(val, ",")
	case []string:
		items = val
	case []interface{}:
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
	default:
		items = []string{fmt.Sprint(val)}
	}

	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
