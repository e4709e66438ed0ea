package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of the environment variables overriding file
// settings, e.g. TYPEDDAL_DSN or TYPEDDAL_LOG_LEVEL.
const EnvPrefix = "TYPEDDAL"

var keys = []string{
	"dialect",
	"dsn",
	"tables",
	"revision_history_tables",
	"legacy_table_prefixes",
	"command_timeout",
	"concurrency",
	"slow_command_threshold",
	"log.level",
	"log.format",
}

// Loader reads a Config from an optional YAML file and the environment.
type Loader struct {
	v    *viper.Viper
	file string
	log  *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFile sets the configuration file. A missing file is not an error.
func WithFile(path string) LoaderOption {
	return func(l *Loader) {
		l.file = path
	}
}

// WithLogger sets the logger used to report configuration reloads.
func WithLogger(log *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.log = log
	}
}

// NewLoader creates a loader with the typeddal defaults registered.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{v: viper.New(), log: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	v := l.v
	v.SetConfigType("yaml")
	if l.file != "" {
		v.SetConfigFile(l.file)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	v.SetDefault("legacy_table_prefixes", DefaultLegacyTablePrefixes)
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("slow_command_threshold", DefaultSlowCommandThreshold)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	return l
}

// Load reads the file, applies environment overrides and validates the result.
func (l *Loader) Load() (*Config, error) {
	if l.file != "" {
		if err := l.v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("config: read %s: %w", l.file, err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch calls onChange with the reloaded configuration every time the file
// changes. A reload that fails validation is passed as a non-nil error and
// the previous configuration stays in effect for the caller.
func (l *Loader) Watch(onChange func(*Config, error)) error {
	if l.file == "" {
		return fmt.Errorf("config: watch requires a configuration file")
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		l.log.Info("configuration changed", "file", e.Name, "op", e.Op.String())
		cfg, err := l.decode()
		if err != nil {
			l.log.Warn("configuration reload failed", "file", e.Name, "error", err)
		}
		onChange(cfg, err)
	})
	l.v.WatchConfig()
	return nil
}

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}
