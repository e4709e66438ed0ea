package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	cfg, err := NewLoader(WithFile("testdata/typeddal.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", cfg.Dialect)
	assert.Equal(t, []string{"dbo.users", "dbo.orders", "dbo.order_revisions"}, cfg.Tables)
	assert.True(t, cfg.IsRevisionHistory("dbo.order_revisions"))
	assert.False(t, cfg.IsRevisionHistory("dbo.users"))
	assert.Equal(t, 30*time.Second, cfg.CommandTimeout)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, DefaultSlowCommandThreshold, cfg.SlowCommandThreshold)
	assert.Equal(t, DefaultLegacyTablePrefixes, cfg.LegacyTablePrefixes)
	assert.Equal(t, Log{Level: "debug", Format: "json"}, cfg.Log)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("TYPEDDAL_DIALECT", "postgres")
	t.Setenv("TYPEDDAL_TABLES", "users,orders")
	t.Setenv("TYPEDDAL_CONCURRENCY", "2")
	t.Setenv("TYPEDDAL_SLOW_COMMAND_THRESHOLD", "250ms")
	t.Setenv("TYPEDDAL_LOG_LEVEL", "warn")

	cfg, err := NewLoader(WithFile(filepath.Join(t.TempDir(), "missing.yaml"))).Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Dialect)
	assert.Equal(t, []string{"users", "orders"}, cfg.Tables)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowCommandThreshold)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("TYPEDDAL_DIALECT", "postgres")
	t.Setenv("TYPEDDAL_DSN", "postgres://override")
	cfg, err := NewLoader(WithFile("testdata/typeddal.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Dialect, "environment wins over the file")
	assert.Equal(t, "postgres://override", cfg.DSN)
	assert.Equal(t, 8, cfg.Concurrency)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Dialect: "mysql", Concurrency: 1, Tables: []string{"a"}}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		err    string
	}{
		{"Valid", func(*Config) {}, ""},
		{"MissingDialect", func(c *Config) { c.Dialect = "" }, "config: dialect is required"},
		{"UnknownDialect", func(c *Config) { c.Dialect = "db2" }, `config: unknown dialect "db2", expected one of mysql, oracle, postgres, sqlite, sqlserver`},
		{"Concurrency", func(c *Config) { c.Concurrency = 0 }, "config: concurrency must be positive, got 0"},
		{"Timeout", func(c *Config) { c.CommandTimeout = -time.Second }, "config: command_timeout must not be negative"},
		{"Threshold", func(c *Config) { c.SlowCommandThreshold = -time.Second }, "config: slow_command_threshold must not be negative"},
		{"RevisionTable", func(c *Config) { c.RevisionHistoryTables = []string{"b"} }, `config: revision history table "b" is not listed in tables`},
		{"Level", func(c *Config) { c.Log.Level = "loud" }, `config: unknown log level "loud"`},
		{"Format", func(c *Config) { c.Log.Format = "xml" }, `config: unknown log format "xml"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.err == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.err)
		})
	}

	_, err := NewLoader().Load()
	assert.EqualError(t, err, "config: dialect is required")
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	c := &Config{Log: Log{Level: "warn", Format: "json"}}
	log := c.LoggerTo(&buf)
	log.Info("hidden")
	log.Warn("shown", "table", "users")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"table":"users"`)

	buf.Reset()
	c = &Config{Log: Log{Level: "debug"}}
	c.LoggerTo(&buf).Debug("loaded", "n", 2)
	assert.Contains(t, buf.String(), "level=DEBUG msg=loaded n=2")
}

func TestWatch(t *testing.T) {
	assert.Error(t, NewLoader().Watch(func(*Config, error) {}))

	path := filepath.Join(t.TempDir(), "typeddal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dialect: sqlite\nconcurrency: 1\n"), 0o600))
	l := NewLoader(WithFile(path))
	cfg, err := l.Load()
	require.NoError(t, err)
	require.Equal(t, 1, cfg.Concurrency)

	changes := make(chan *Config, 16)
	require.NoError(t, l.Watch(func(c *Config, err error) {
		if err == nil {
			changes <- c
		}
	}))
	require.NoError(t, os.WriteFile(path, []byte("dialect: sqlite\nconcurrency: 3\n"), 0o600))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Concurrency == 3 {
				return
			}
		case <-timeout:
			t.Fatal("configuration change was not observed")
		}
	}
}
