// Package config loads typeddal settings from a YAML file and TYPEDDAL_*
// environment variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/syssam/typeddal/dialect"
)

// Defaults applied when a key is absent from both the file and the environment.
const (
	DefaultConcurrency          = 4
	DefaultSlowCommandThreshold = 100 * time.Millisecond
)

// DefaultLegacyTablePrefixes are the table-name prefixes exempt from the
// nullable character column rule.
var DefaultLegacyTablePrefixes = []string{"aspnet_"}

// families lists the dialect names a configuration may select.
var families = []string{
	dialect.MySQL,
	dialect.Oracle,
	dialect.Postgres,
	dialect.SQLite,
	dialect.SQLServer,
}

// Config is the resolved configuration.
type Config struct {
	Dialect               string        `mapstructure:"dialect" yaml:"dialect"`
	DSN                   string        `mapstructure:"dsn" yaml:"dsn"`
	Tables                []string      `mapstructure:"tables" yaml:"tables"`
	RevisionHistoryTables []string      `mapstructure:"revision_history_tables" yaml:"revision_history_tables,omitempty"`
	LegacyTablePrefixes   []string      `mapstructure:"legacy_table_prefixes" yaml:"legacy_table_prefixes,omitempty"`
	CommandTimeout        time.Duration `mapstructure:"command_timeout" yaml:"command_timeout,omitempty"`
	Concurrency           int           `mapstructure:"concurrency" yaml:"concurrency,omitempty"`
	SlowCommandThreshold  time.Duration `mapstructure:"slow_command_threshold" yaml:"slow_command_threshold,omitempty"`
	Log                   Log           `mapstructure:"log" yaml:"log"`
}

// Log configures the logger built by Config.Logger.
type Log struct {
	// Level is one of debug, info, warn or error. Empty means info.
	Level string `mapstructure:"level" yaml:"level"`
	// Format is text or json. Empty means text.
	Format string `mapstructure:"format" yaml:"format"`
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Dialect == "" {
		return fmt.Errorf("config: dialect is required")
	}
	if !slices.Contains(families, c.Dialect) {
		return fmt.Errorf("config: unknown dialect %q, expected one of %s", c.Dialect, strings.Join(families, ", "))
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("config: concurrency must be positive, got %d", c.Concurrency)
	}
	if c.CommandTimeout < 0 {
		return fmt.Errorf("config: command_timeout must not be negative")
	}
	if c.SlowCommandThreshold < 0 {
		return fmt.Errorf("config: slow_command_threshold must not be negative")
	}
	for _, t := range c.RevisionHistoryTables {
		if !slices.Contains(c.Tables, t) {
			return fmt.Errorf("config: revision history table %q is not listed in tables", t)
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// IsRevisionHistory reports whether the table is configured as a revision
// history table.
func (c *Config) IsRevisionHistory(table string) bool {
	return slices.Contains(c.RevisionHistoryTables, table)
}

// Logger builds a logger writing to stderr.
func (c *Config) Logger() *slog.Logger {
	return c.LoggerTo(os.Stderr)
}

// LoggerTo builds a logger writing to w with the configured level and format.
func (c *Config) LoggerTo(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: unknown log level %q", s)
	}
	return level, nil
}
