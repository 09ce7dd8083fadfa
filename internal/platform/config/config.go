package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Event log sources.
const (
	SourceCSV      = "csv"
	SourceMinio    = "minio"
	SourcePostgres = "postgres"
)

type ServerConfig struct {
	Port            string `mapstructure:"port"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type SourceConfig struct {
	Kind       string   `mapstructure:"kind"`
	CSVPath    string   `mapstructure:"csv_path"`
	EventNames []string `mapstructure:"event_names"` // postgres only; empty = all
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Object    string `mapstructure:"object"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type PostgresConfig struct {
	DSN            string `mapstructure:"dsn"`
	MaxOpenConns   int    `mapstructure:"max_open_conns"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
	PersistReports bool   `mapstructure:"persist_reports"`
}

type QueryConfig struct {
	Workers   int   `mapstructure:"workers"`
	MaxGapSec int64 `mapstructure:"max_gap_sec"`
}

type CacheConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxSizeMB   int  `mapstructure:"max_size_mb"`
	TTLSeconds  int  `mapstructure:"ttl_seconds"`
	CounterSize int  `mapstructure:"counter_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Source   SourceConfig   `mapstructure:"source"`
	Minio    MinioConfig    `mapstructure:"minio"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Query    QueryConfig    `mapstructure:"query"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"data":        "source.csv_path",
	"source":      "source.kind",
	"workers":     "query.workers",
	"max_gap_sec": "query.max_gap_sec",
	"port":        "server.port",
	"log_level":   "log.level",
	"log_pretty":  "log.pretty",
}

// LoadConfig merges defaults, an optional config.yaml, FUNNEL_* environment
// variables and the given flags, in increasing priority. flags may be nil.
// A --config flag names the file explicitly and makes it mandatory.
func LoadConfig(flags *pflag.FlagSet) (Config, error) {
	var cfg Config

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FUNNEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := ""
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return cfg, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		log.Debug().Msg("no config file found, using defaults and environment")
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 5)

	// Source defaults
	v.SetDefault("source.kind", SourceCSV)
	v.SetDefault("source.csv_path", "")
	v.SetDefault("source.event_names", []string{})

	// Minio defaults
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "")
	v.SetDefault("minio.object", "")
	v.SetDefault("minio.use_ssl", false)

	// Postgres defaults
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_open_conns", 20)
	v.SetDefault("postgres.max_idle_conns", 10)
	v.SetDefault("postgres.persist_reports", false)

	// Query defaults
	v.SetDefault("query.workers", 0)          // runtime.NumCPU()
	v.SetDefault("query.max_gap_sec", 604800) // one week of histogram buckets

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size_mb", 64)
	v.SetDefault("cache.ttl_seconds", 0)
	v.SetDefault("cache.counter_size", 100000)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Source.Kind {
	case SourceCSV:
		if c.Source.CSVPath == "" {
			errs = append(errs, errors.New("source.csv_path is required for the csv source"))
		}
	case SourceMinio:
		if c.Minio.Endpoint == "" || c.Minio.Bucket == "" || c.Minio.Object == "" {
			errs = append(errs, errors.New("minio.endpoint, minio.bucket and minio.object are required for the minio source"))
		}
	case SourcePostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for the postgres source"))
		}
	default:
		errs = append(errs, fmt.Errorf("source.kind %q is not one of csv, minio, postgres", c.Source.Kind))
	}

	if c.Postgres.PersistReports && c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required when postgres.persist_reports is set"))
	}
	if c.Query.Workers < 0 {
		errs = append(errs, errors.New("query.workers must not be negative"))
	}
	if c.Query.MaxGapSec <= 0 {
		errs = append(errs, errors.New("query.max_gap_sec must be positive"))
	}
	if c.Cache.Enabled && (c.Cache.MaxSizeMB <= 0 || c.Cache.CounterSize <= 0) {
		errs = append(errs, errors.New("cache.max_size_mb and cache.counter_size must be positive when the cache is enabled"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must not be negative"))
	}

	return errors.Join(errs...)
}
