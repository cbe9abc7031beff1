// Package config loads and validates film-info-crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Updater UpdaterConfig `mapstructure:"updater"`
	Tags    TagsConfig    `mapstructure:"tags"`
	Lookup  LookupConfig  `mapstructure:"lookup"`
	Archive ArchiveConfig `mapstructure:"archive"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// MongoConfig locates the document store.
type MongoConfig struct {
	URI            string `mapstructure:"uri"`
	Database       string `mapstructure:"database"`
	Collection     string `mapstructure:"collection"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// FetchConfig selects and tunes the page fetcher.
type FetchConfig struct {
	Mode              string `mapstructure:"mode"`
	UserAgent         string `mapstructure:"user_agent"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	RespectRobots     bool   `mapstructure:"respect_robots"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	ReadySelector     string `mapstructure:"ready_selector"`
}

// UpdaterConfig governs the batch updater.
type UpdaterConfig struct {
	Source        string `mapstructure:"source"`
	FreshnessDays int    `mapstructure:"freshness_days"`
	OnMalformed   string `mapstructure:"on_malformed"`
	// Timezone decides where calendar days start for the freshness window.
	Timezone string `mapstructure:"timezone"`
}

// TagsConfig points at the tag dictionary.
type TagsConfig struct {
	DictionaryPath string `mapstructure:"dictionary_path"`
}

// LookupConfig enables the Postgres code lookup when DSN is set.
type LookupConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// ArchiveConfig controls raw page archiving.
type ArchiveConfig struct {
	Backend   string `mapstructure:"backend"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for change notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig exposes /metrics and /healthz while a batch runs.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Fetch modes.
const (
	FetchModeHTTP     = "http"
	FetchModeHeadless = "headless"
	// FetchModeAuto renders in a headless browser only when the HTTP
	// response is a client-side shell.
	FetchModeAuto = "auto"
)

// Archive backends.
const (
	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveGCS   = "gcs"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FILMINFO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "films")
	v.SetDefault("mongo.collection", "films")
	v.SetDefault("mongo.timeout_seconds", 10)
	v.SetDefault("fetch.mode", FetchModeHTTP)
	v.SetDefault("fetch.user_agent", "film-info-crawler/0.1")
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("fetch.nav_timeout_seconds", 45)
	v.SetDefault("fetch.ready_selector", "body")
	v.SetDefault("updater.source", "xonline")
	v.SetDefault("updater.freshness_days", 3)
	v.SetDefault("updater.on_malformed", "skip")
	v.SetDefault("updater.timezone", "UTC")
	v.SetDefault("tags.dictionary_path", "tags.json")
	v.SetDefault("lookup.table", "code_info")
	v.SetDefault("archive.backend", ArchiveNone)
	v.SetDefault("archive.base_dir", "archive")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri must be set")
	}
	if c.Mongo.Database == "" {
		return fmt.Errorf("mongo.database must be set")
	}
	if c.Mongo.Collection == "" {
		return fmt.Errorf("mongo.collection must be set")
	}
	if c.Mongo.TimeoutSeconds <= 0 {
		return fmt.Errorf("mongo.timeout_seconds must be > 0")
	}
	switch c.Fetch.Mode {
	case FetchModeHTTP, FetchModeHeadless, FetchModeAuto:
	default:
		return fmt.Errorf("fetch.mode must be http, headless or auto, got %q", c.Fetch.Mode)
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Updater.FreshnessDays < 0 {
		return fmt.Errorf("updater.freshness_days must be >= 0")
	}
	switch strings.ToLower(c.Updater.OnMalformed) {
	case "", "skip", "delete", "abort":
	default:
		return fmt.Errorf("updater.on_malformed must be skip, delete or abort, got %q", c.Updater.OnMalformed)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Tags.DictionaryPath == "" {
		return fmt.Errorf("tags.dictionary_path must be set")
	}
	if c.Lookup.DSN != "" && c.Lookup.Table == "" {
		return fmt.Errorf("lookup.table must be set when lookup.dsn is set")
	}
	switch c.Archive.Backend {
	case "", ArchiveNone:
	case ArchiveLocal:
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir must be set for the local backend")
		}
	case ArchiveGCS:
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("archive.backend must be none, local or gcs, got %q", c.Archive.Backend)
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// Location resolves updater.timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Updater.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Updater.Timezone)
	if err != nil {
		return nil, fmt.Errorf("updater.timezone: %w", err)
	}
	return loc, nil
}

// MongoTimeout returns the per-operation store timeout.
func (c Config) MongoTimeout() time.Duration {
	return time.Duration(c.Mongo.TimeoutSeconds) * time.Second
}

// FetchTimeout returns the HTTP fetch timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// NavTimeout returns the headless navigation timeout.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Fetch.NavTimeoutSeconds) * time.Second
}
