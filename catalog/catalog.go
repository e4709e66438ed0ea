// Package catalog loads and caches the table metadata of a database.
//
// A Catalog never mutates a loaded table. Refresh builds new tables and
// swaps them in, reporting the drift between the two generations:
//
//	cfg, _ := config.NewLoader(config.WithFile("typeddal.yaml")).Load()
//	cat, err := catalog.Open(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer cat.Close()
//	users, err := cat.Table(ctx, "dbo.users")
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/typeddal"
	"github.com/syssam/typeddal/config"
	"github.com/syssam/typeddal/dialect"
	"github.com/syssam/typeddal/dialect/sql/schema"
)

// Option configures a Catalog.
type Option func(*options)

type options struct {
	concurrency     int
	revisionHistory []string
	legacyPrefixes  []string
	log             *slog.Logger
	cache           typeddal.Cache
	cacheTTL        time.Duration
}

// WithConcurrency bounds the number of tables inspected at once. Default is
// config.DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithRevisionHistoryTables names the tables built in revision-history mode.
func WithRevisionHistoryTables(names ...string) Option {
	return func(o *options) {
		o.revisionHistory = append(o.revisionHistory, names...)
	}
}

// WithLegacyPrefixes replaces the table-name prefixes exempt from the
// nullable character column rule.
func WithLegacyPrefixes(prefixes ...string) Option {
	return func(o *options) {
		o.legacyPrefixes = prefixes
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithCache stores the raw rows of every inspected table in c, so that a
// later catalog can skip inspection. A zero ttl never expires.
func WithCache(c typeddal.Cache, ttl time.Duration) Option {
	return func(o *options) {
		o.cache = c
		o.cacheTTL = ttl
	}
}

// Catalog holds the validated tables of one database.
type Catalog struct {
	info      dialect.Info
	inspector dialect.Inspector
	opts      options
	db        *sql.DB

	mu     sync.RWMutex
	tables map[string]*schema.Table
	rows   map[string][]dialect.RawColumn
}

// New creates an empty catalog reading tables through inspector.
func New(info dialect.Info, inspector dialect.Inspector, opts ...Option) *Catalog {
	o := options{
		concurrency: config.DefaultConcurrency,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Catalog{
		info:      info,
		inspector: inspector,
		opts:      o,
		tables:    make(map[string]*schema.Table),
		rows:      make(map[string][]dialect.RawColumn),
	}
}

// Open connects to the configured database and loads the configured tables.
// The dialect package of cfg.Dialect must be imported by the program.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Catalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	info, err := dialect.Open(cfg.Dialect, cfg.DSN)
	if err != nil {
		return nil, err
	}
	db, err := info.OpenDB()
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", cfg.Dialect, err)
	}
	c := New(info, info.Inspector(db), append(Options(cfg), opts...)...)
	c.db = db
	if err := c.Load(ctx, cfg.Tables...); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Options translates a configuration into catalog options.
func Options(cfg *config.Config) []Option {
	opts := []Option{
		WithConcurrency(cfg.Concurrency),
		WithRevisionHistoryTables(cfg.RevisionHistoryTables...),
		WithLogger(cfg.Logger()),
	}
	if cfg.LegacyTablePrefixes != nil {
		opts = append(opts, WithLegacyPrefixes(cfg.LegacyTablePrefixes...))
	}
	return opts
}

// Info returns the dialect of the catalog.
func (c *Catalog) Info() dialect.Info { return c.info }

// DB returns the connection pool opened by Open, or nil.
func (c *Catalog) DB() *sql.DB { return c.db }

// Close closes the connection pool opened by Open.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Table returns the named table, loading it on first use.
func (c *Catalog) Table(ctx context.Context, name string) (*schema.Table, error) {
	c.mu.RLock()
	t, ok := c.tables[name]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}
	rows, t, err := c.build(ctx, name, true)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.tables[name]; ok {
		return cur, nil
	}
	c.tables[name] = t
	c.rows[name] = rows
	return t, nil
}

// Load loads the named tables concurrently. Tables already loaded are kept.
func (c *Catalog) Load(ctx context.Context, names ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.concurrency)
	for _, name := range names {
		g.Go(func() error {
			_, err := c.Table(ctx, name)
			return err
		})
	}
	return g.Wait()
}

// Tables returns the loaded tables sorted by name.
func (c *Catalog) Tables() []*schema.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedTables(c.tables)
}

// Names returns the sorted names of the loaded tables.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Invalidate forgets every loaded table and removes their cache entries.
func (c *Catalog) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	c.tables = make(map[string]*schema.Table)
	c.rows = make(map[string][]dialect.RawColumn)
	c.mu.Unlock()
	if c.opts.cache == nil {
		return nil
	}
	for _, name := range names {
		if err := c.opts.cache.Delete(ctx, c.cacheKey(name)); err != nil {
			return fmt.Errorf("catalog: delete cached table %s: %w", name, err)
		}
	}
	return nil
}

// Refresh reinspects the loaded tables, or the given names when non-empty,
// bypassing the cache. On success the new tables replace the old ones and
// the drift between the two generations of the refreshed tables is
// returned. A loaded table that no longer exists is removed from the catalog
// and reported as dropped. On failure the catalog is left unchanged.
func (c *Catalog) Refresh(ctx context.Context, names ...string) (*schema.ValidationResult, error) {
	if len(names) == 0 {
		names = c.Names()
	}
	var (
		mu      sync.Mutex
		rows    = make(map[string][]dialect.RawColumn, len(names))
		current = make(map[string]*schema.Table, len(names))
		dropped []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.concurrency)
	for _, name := range names {
		g.Go(func() error {
			r, t, err := c.build(gctx, name, false)
			if errors.Is(err, dialect.ErrTableNotFound) && c.loaded(name) {
				mu.Lock()
				dropped = append(dropped, name)
				mu.Unlock()
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			rows[name], current[name] = r, t
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	previous := make(map[string]*schema.Table, len(names))
	for name, t := range current {
		if old, ok := c.tables[name]; ok {
			previous[name] = old
		}
		c.tables[name] = t
		c.rows[name] = rows[name]
	}
	for _, name := range dropped {
		if old, ok := c.tables[name]; ok {
			previous[name] = old
		}
		delete(c.tables, name)
		delete(c.rows, name)
	}
	c.mu.Unlock()

	result := schema.ValidateDiff(sortedTables(previous), sortedTables(current))
	if result.HasBreakingChanges() {
		c.opts.log.Warn("schema drift detected", "dialect", c.info.Name(), "issues", len(result.Errors))
	}
	if c.opts.cache != nil {
		for name, r := range rows {
			c.store(ctx, name, r)
		}
		for _, name := range dropped {
			if err := c.opts.cache.Delete(ctx, c.cacheKey(name)); err != nil {
				c.opts.log.Warn("catalog cache delete failed", "table", name, "error", err)
			}
		}
	}
	return result, nil
}

func (c *Catalog) loaded(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tables[name]
	return ok
}

// build reads the raw rows of a table, from the cache when allowed, and
// validates them.
func (c *Catalog) build(ctx context.Context, name string, useCache bool) ([]dialect.RawColumn, *schema.Table, error) {
	if useCache && c.opts.cache != nil {
		if rows, ok := c.lookup(ctx, name); ok {
			t, err := schema.NewTable(c.info, name, rows, c.tableOptions(name)...)
			return rows, t, err
		}
	}
	if c.inspector == nil {
		return nil, nil, typeddal.NewContractError(fmt.Sprintf("table %s is not in the offline catalog", name), nil)
	}
	rec := &recorder{Inspector: c.inspector}
	t, err := schema.LoadTable(ctx, rec, c.info, name, c.tableOptions(name)...)
	if err != nil {
		return nil, nil, err
	}
	if useCache && c.opts.cache != nil {
		c.store(ctx, name, rec.rows)
	}
	return rec.rows, t, nil
}

func (c *Catalog) tableOptions(name string) []schema.TableOption {
	opts := []schema.TableOption{schema.WithLogger(c.opts.log)}
	if slices.Contains(c.opts.revisionHistory, name) {
		opts = append(opts, schema.ForRevisionHistory())
	}
	if c.opts.legacyPrefixes != nil {
		opts = append(opts, schema.WithLegacyPrefixes(c.opts.legacyPrefixes...))
	}
	return opts
}

func (c *Catalog) cacheKey(name string) string {
	return typeddal.CacheKey{Dialect: c.info.Name(), Table: name}.String()
}

// lookup returns the cached rows of a table. Cache failures are logged and
// treated as misses.
func (c *Catalog) lookup(ctx context.Context, name string) ([]dialect.RawColumn, bool) {
	b, err := c.opts.cache.Get(ctx, c.cacheKey(name))
	if err != nil {
		c.opts.log.Warn("catalog cache read failed", "table", name, "error", err)
		return nil, false
	}
	if b == nil {
		return nil, false
	}
	var snap TableSnapshot
	if err := decodeMsgpack(b, &snap); err != nil {
		c.opts.log.Warn("catalog cache entry is corrupt", "table", name, "error", err)
		return nil, false
	}
	rows, err := snap.RawColumns()
	if err != nil {
		c.opts.log.Warn("catalog cache entry is corrupt", "table", name, "error", err)
		return nil, false
	}
	c.opts.log.Debug("catalog cache hit", "table", name)
	return rows, true
}

func (c *Catalog) store(ctx context.Context, name string, rows []dialect.RawColumn) {
	b, err := encodeMsgpack(NewTableSnapshot(name, rows))
	if err == nil {
		err = c.opts.cache.Set(ctx, c.cacheKey(name), b, c.opts.cacheTTL)
	}
	if err != nil {
		c.opts.log.Warn("catalog cache write failed", "table", name, "error", err)
	}
}

func sortedTables(m map[string]*schema.Table) []*schema.Table {
	tables := make([]*schema.Table, 0, len(m))
	for _, t := range m {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name() < tables[j].Name() })
	return tables
}

// recorder keeps the rows returned by the wrapped inspector.
type recorder struct {
	dialect.Inspector
	rows []dialect.RawColumn
}

func (r *recorder) Columns(ctx context.Context, table string, keyInfo bool) ([]dialect.RawColumn, error) {
	rows, err := r.Inspector.Columns(ctx, table, keyInfo)
	r.rows = rows
	return rows, err
}
