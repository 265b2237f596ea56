// Package config builds each binary's narrow configuration record via
// spf13/viper + spf13/pflag, modeled on CrlsMrls-dummybox/config/config.go:
// flags define defaults, viper binds environment variables (prefixed
// WARDEN_) and an optional config file, with flag > env > file > default
// precedence. Each binary gets its own Config struct passed explicitly into
// constructors — spec.md §9's "Global configuration" design note replaces
// the source's process-wide registry with exactly this.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Bus holds the message-bus connection/knobs shared by every binary that
// touches the bus (spec.md §6 "Bus contract").
type Bus struct {
	RedisAddr     string `mapstructure:"redis-addr"`
	RedisPassword string `mapstructure:"redis-password"`
	RedisDB       int    `mapstructure:"redis-db"`
	WaitTime      int    `mapstructure:"wait-time"`
	AckTime       int    `mapstructure:"ack-time"`
	MaxRetry      int    `mapstructure:"max-retry"`
	AutoCommit    bool   `mapstructure:"auto-commit"`
	Compact       bool   `mapstructure:"compact"`
}

// Store holds the document-store connection shared by every binary that
// touches the store (spec.md §6 "Store contract").
type Store struct {
	URI              string `mapstructure:"store-uri"`
	IndexPrefix      string `mapstructure:"index-prefix"`
	IndexStrategy    string `mapstructure:"index-strategy"` // "fixed" or "timed"
	IndexGranularity string `mapstructure:"index-granularity"`
	FixedIndexName   string `mapstructure:"fixed-index-name"`
}

// API is cmd/api's configuration.
type API struct {
	Bus        `mapstructure:",squash"`
	Store      `mapstructure:",squash"`
	ListenAddr string `mapstructure:"listen-addr"`
	LogLevel   string `mapstructure:"log-level"`
	ImportDefs string `mapstructure:"import-defs"`
}

// Persister is cmd/persister's configuration. Topic selects which of the
// two persister instances this process runs (spec.md §4.5).
type Persister struct {
	Bus         `mapstructure:",squash"`
	Store       `mapstructure:",squash"`
	Topic       string `mapstructure:"topic"` // "metrics" or "alarms"
	LogLevel    string `mapstructure:"log-level"`
	MetricsAddr string `mapstructure:"metrics-addr"`
}

// ThresholdEngine is cmd/thresholdengine's configuration.
type ThresholdEngine struct {
	Bus                   `mapstructure:",squash"`
	Store                 `mapstructure:",squash"`
	CheckAlarmInterval    int    `mapstructure:"check-alarm-interval"`
	CheckAlarmDefInterval int    `mapstructure:"check-alarm-def-interval"`
	AlarmDefName          string `mapstructure:"alarmdef-name"`
	AlarmDefDimensions    string `mapstructure:"alarmdef-dimensions"`
	LogLevel              string `mapstructure:"log-level"`
	MetricsAddr           string `mapstructure:"metrics-addr"`
}

// Notifier is cmd/notifier's configuration.
type Notifier struct {
	Bus         `mapstructure:",squash"`
	Store       `mapstructure:",squash"`
	SMTPHost    string `mapstructure:"smtp-host"`
	SMTPPort    int    `mapstructure:"smtp-port"`
	SMTPFrom    string `mapstructure:"smtp-from"`
	LogLevel    string `mapstructure:"log-level"`
	MetricsAddr string `mapstructure:"metrics-addr"`
}

// busFlags registers the shared bus flags on fs with their defaults.
func busFlags(fs *pflag.FlagSet) {
	fs.String("redis-addr", "localhost:6379", "Redis address for the message bus")
	fs.String("redis-password", "", "Redis password")
	fs.Int("redis-db", 0, "Redis database index")
	fs.Int("wait-time", 5, "Bus reconnect back-off, seconds")
	fs.Int("ack-time", 10, "Bus send ack timeout, seconds")
	fs.Int("max-retry", 3, "Bus send/connect max retry count")
	fs.Bool("auto-commit", true, "Commit bus offsets automatically")
	fs.Bool("compact", true, "Send bus records verbatim instead of fanning out JSON lists")
}

// storeFlags registers the shared store flags on fs with their defaults.
func storeFlags(fs *pflag.FlagSet) {
	fs.String("store-uri", "http://localhost:9200", "Document-store base URI")
	fs.String("index-prefix", "warden_", "Document-store index name prefix")
	fs.String("index-strategy", "timed", "Index naming strategy: fixed or timed")
	fs.String("index-granularity", "d", "Timed strategy granularity: y, m, w, d, h")
	fs.String("fixed-index-name", "warden", "Index name used when index-strategy is fixed")
}

// Loader builds a viper instance bound to fs, an env prefix, and an
// optional config file flag ("config-file"), following the flag > env >
// file > default precedence dummybox establishes.
type Loader struct {
	v  *viper.Viper
	fs *pflag.FlagSet
}

// NewLoader registers the shared bus/store flags plus log-level and
// config-file on a fresh FlagSet, and returns a Loader ready to parse.
func NewLoader(envPrefix string) *Loader {
	fs := pflag.NewFlagSet(envPrefix, pflag.ContinueOnError)
	busFlags(fs)
	storeFlags(fs)
	fs.String("log-level", "info", "Logging level (debug, info, warn, error)")
	fs.String("config-file", "", fmt.Sprintf("Path to a YAML config file. Can also be set with %s_CONFIG_FILE.", envPrefix))

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, fs: fs}
}

// ParseDimensionFilter parses a "k1:v1,k2:v2" dimension filter string, the
// same shape `internal/httpapi`'s query surface accepts for its `dimensions`
// query parameter. Returns nil for an empty string.
func ParseDimensionFilter(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		kv := strings.SplitN(pair, ":", 2)
		if len(kv) != 2 {
			continue
		}
		out[kv[0]] = kv[1]
	}
	return out
}

// ParseLevel maps a log-level flag value to a slog.Level, defaulting to Info
// for anything unrecognized.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FlagSet exposes the underlying FlagSet so a binary's main() can register
// extra flags (e.g. cmd/api's --import-defs, cmd/persister's --topic)
// before calling Parse.
func (l *Loader) FlagSet() *pflag.FlagSet { return l.fs }

// Parse parses args, binds flags into viper, loads an optional config file,
// and unmarshals the result into out.
func (l *Loader) Parse(args []string, out any) error {
	if err := l.fs.Parse(args); err != nil {
		return fmt.Errorf("config: parse flags: %w", err)
	}
	if err := l.v.BindPFlags(l.fs); err != nil {
		return fmt.Errorf("config: bind flags: %w", err)
	}

	if configFile := l.v.GetString("config-file"); configFile != "" {
		l.v.SetConfigFile(configFile)
		if err := l.v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("config: read config file: %w", err)
			}
		}
	}

	if err := l.v.Unmarshal(out); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}
	return nil
}
