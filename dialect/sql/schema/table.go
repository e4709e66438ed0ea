package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/syssam/typeddal"
	"github.com/syssam/typeddal/dialect"
)

// DefaultLegacyPrefixes are the table name prefixes exempt from the
// nullable string check.
var DefaultLegacyPrefixes = []string{"aspnet_"}

// TableOption configures table construction.
type TableOption func(*tableConfig)

type tableConfig struct {
	revisionHistory bool
	legacy          bool
	legacyPrefixes  []string
	logger          *slog.Logger
}

// ForRevisionHistory builds the table in revision-history mode: its single
// key column doubles as the revision ID and is excluded from the data
// columns.
func ForRevisionHistory() TableOption {
	return func(c *tableConfig) {
		c.revisionHistory = true
	}
}

// WithLegacySchema exempts the table from the nullable string check.
func WithLegacySchema() TableOption {
	return func(c *tableConfig) {
		c.legacy = true
	}
}

// WithLegacyPrefixes replaces the table name prefixes exempt from the
// nullable string check.
func WithLegacyPrefixes(prefixes ...string) TableOption {
	return func(c *tableConfig) {
		c.legacyPrefixes = prefixes
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) TableOption {
	return func(c *tableConfig) {
		c.logger = l
	}
}

// Table is the validated column metadata of one table. It is immutable
// after construction and safe for concurrent use.
type Table struct {
	name       string
	columns    []*Column
	keys       []*Column
	identity   *Column
	rowVersion *Column
	revisionID *Column
}

// LoadTable reads the raw schema rows of the table with key information
// and builds the table from them.
func LoadTable(ctx context.Context, inspector dialect.Inspector, info dialect.Info, name string, opts ...TableOption) (*Table, error) {
	rows, err := inspector.Columns(ctx, name, true)
	if err != nil {
		return nil, wrapTableError(name, err)
	}
	return NewTable(info, name, rows, opts...)
}

// NewTable builds and validates a table from raw schema rows read with key
// information. Failures are reported as a *typeddal.UserCorrectableError
// when the schema itself must be fixed and as a *typeddal.ContractError
// otherwise. No partial table is returned.
func NewTable(info dialect.Info, name string, rows []dialect.RawColumn, opts ...TableOption) (*Table, error) {
	cfg := tableConfig{legacyPrefixes: DefaultLegacyPrefixes, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	t, err := newTable(info, name, rows, &cfg)
	if err != nil {
		return nil, wrapTableError(name, err)
	}
	cfg.logger.Debug("table loaded",
		"dialect", info.Name(),
		"table", name,
		"columns", len(t.columns),
		"keys", len(t.keys),
		"identity", t.identity != nil,
		"row_version", t.rowVersion != nil,
	)
	return t, nil
}

func newTable(info dialect.Info, name string, rows []dialect.RawColumn, cfg *tableConfig) (*Table, error) {
	t := &Table{name: name}
	for _, row := range rows {
		c, err := NewColumn(row, info, true)
		if err != nil {
			return nil, err
		}
		t.columns = append(t.columns, c)
	}

	if !cfg.exempt(info, name) {
		for _, c := range t.columns {
			if c.typ.IsString() && c.AllowsNull() {
				return nil, typeddal.NewUserCorrectableError(fmt.Sprintf("string column %s allows null, which is not allowed", c.name), nil)
			}
		}
	}

	for _, c := range t.columns {
		if c.IsKey() {
			t.keys = append(t.keys, c)
		}
		if c.identity {
			if t.identity != nil {
				return nil, typeddal.NewContractError("only one identity column per table is supported", nil)
			}
			t.identity = c
		}
	}
	if len(t.keys) == 0 {
		return nil, typeddal.NewContractError("the table must contain a primary key or other means of uniquely identifying a row", nil)
	}
	// An identity column is assumed sufficient to identify a row on its own.
	if t.identity != nil && len(t.keys) > 1 {
		t.keys = []*Column{t.identity}
	}

	for _, c := range t.columns {
		if c.rowVersion {
			if t.rowVersion != nil {
				return nil, typeddal.NewContractError(fmt.Sprintf("more than one row-version column: %s and %s", t.rowVersion.name, c.name), nil)
			}
			t.rowVersion = c
		}
	}

	if cfg.revisionHistory {
		if len(t.keys) != 1 {
			return nil, typeddal.NewContractError("a revision history modification class can only be created for tables with exactly one primary key column, which is assumed to also be a foreign key to the revisions table", nil)
		}
		if t.keys[0].identity {
			return nil, typeddal.NewContractError("the revision ID column of a revision history table must not be an identity", nil)
		}
		t.revisionID = t.keys[0]
	}
	return t, nil
}

// exempt reports whether the table skips the nullable string check.
func (c *tableConfig) exempt(info dialect.Info, name string) bool {
	if c.legacy || info.EmptyStringIsNull() {
		return true
	}
	_, table := dialect.SplitTable(name)
	for _, prefix := range c.legacyPrefixes {
		if prefix != "" && strings.HasPrefix(strings.ToLower(table), strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

// wrapTableError classifies a failure while building the table. Errors
// already carrying a kind keep it.
func wrapTableError(name string, err error) error {
	if typeddal.IsUserCorrectable(err) || errors.Is(err, dialect.ErrTableNotFound) {
		return typeddal.NewUserCorrectableError(fmt.Sprintf("there was a problem getting columns for table %s", name), err)
	}
	return typeddal.NewContractError(fmt.Sprintf("an error occurred while getting columns for table %s", name), err)
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Columns returns the columns in schema order.
func (t *Table) Columns() []*Column { return slices.Clone(t.columns) }

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.columns {
		if c.name == name {
			return c
		}
	}
	return nil
}

// KeyColumns returns the columns that identify a row. It is never empty.
func (t *Table) KeyColumns() []*Column { return slices.Clone(t.keys) }

// IdentityColumn returns the identity column, or nil.
func (t *Table) IdentityColumn() *Column { return t.identity }

// RowVersionColumn returns the row-version column, or nil.
func (t *Table) RowVersionColumn() *Column { return t.rowVersion }

// AllColumnsExceptRowVersion returns every column but the row version.
func (t *Table) AllColumnsExceptRowVersion() []*Column {
	return t.filter(func(c *Column) bool { return !c.rowVersion })
}

// AllNonIdentityColumnsExceptRowVersion returns every column but the
// identity and the row version.
func (t *Table) AllNonIdentityColumnsExceptRowVersion() []*Column {
	return t.filter(func(c *Column) bool { return !c.identity && !c.rowVersion })
}

// PrimaryKeyAndRevisionIDColumn returns the key column of a
// revision-history table, or nil for other tables.
func (t *Table) PrimaryKeyAndRevisionIDColumn() *Column { return t.revisionID }

// DataColumns returns the columns carrying data: all but the identity, the
// row version and the revision ID.
func (t *Table) DataColumns() []*Column {
	return t.filter(func(c *Column) bool {
		return !c.identity && !c.rowVersion && c != t.revisionID
	})
}

func (t *Table) filter(keep func(*Column) bool) []*Column {
	var cs []*Column
	for _, c := range t.columns {
		if keep(c) {
			cs = append(cs, c)
		}
	}
	return cs
}
