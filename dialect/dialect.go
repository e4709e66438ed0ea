package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// Database family names.
const (
	SQLServer = "sqlserver"
	MySQL     = "mysql"
	Postgres  = "postgres"
	SQLite    = "sqlite"
	Oracle    = "oracle"
)

// Names of the dialect-specific flags carried by RawColumn.Flags.
const (
	FlagIsIdentity      = "IsIdentity"
	FlagIsAutoIncrement = "IsAutoIncrement"
	FlagIsRowVersion    = "IsRowVersion"
)

// Info is the capability set of one database family. It is selected once
// and threaded through every table and command operation; no other code
// branches on the family name.
type Info interface {
	// Name returns the family name, e.g. "postgres".
	Name() string
	// ConnectionString returns the data source name.
	ConnectionString() string
	// ParameterPrefix returns the prefix used when rendering placeholders.
	ParameterPrefix() string
	// Placeholder renders the placeholder for the parameter with the given
	// name and 0-based position within its command.
	Placeholder(name string, position int) string
	// LastAutoIncrementValueExpression returns the expression selecting the
	// last generated identity. An empty string means the feature is absent.
	LastAutoIncrementValueExpression() string
	// QueryCacheHint returns the query cache hint, empty when unsupported.
	QueryCacheHint() string
	// OrdinalBase is the base (0 or 1) of the column ordinals reported by
	// the family's schema queries.
	OrdinalBase() int
	// IdentityFlag names the RawColumn flag marking identity columns.
	IdentityFlag() string
	// RowVersionFlag names the RawColumn flag marking row-version columns.
	// An empty string means the family has no row-version columns.
	RowVersionFlag() string
	// EmptyStringIsNull reports whether the family stores '' as NULL.
	EmptyStringIsNull() bool
	// OpenDB opens a connection pool for the configured data source.
	OpenDB() (*sql.DB, error)
	// NewCommand creates an empty native command.
	NewCommand(timeout time.Duration) *Command
	// NewParameter creates a native parameter.
	NewParameter(name string, value any) *Parameter
	// DbTypeString maps a provider type token to the family type string.
	DbTypeString(providerType any) string
	// GoType returns the scan type for the given family type string.
	GoType(dbType string) reflect.Type
	// SetParameterType records the family type of a parameter.
	SetParameterType(p *Parameter, dbType string) error
	// Arg returns the driver argument binding the parameter.
	Arg(p *Parameter) any
	// Inspector returns the schema executor for this family.
	Inspector(q Querier) Inspector
}

// EmptyInserter is implemented by families that need a special form of
// INSERT for commands without column values.
type EmptyInserter interface {
	EmptyInsert(table string) string
}

// Querier is the subset of *sql.DB and *sql.Conn used by inspectors.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Inspector reads the raw column rows of a table.
type Inspector interface {
	// Columns returns the raw rows of the table in schema order. Ordinals are
	// reported in the family's ordinal base. Key flags are only populated
	// when keyInfo is true.
	Columns(ctx context.Context, table string, keyInfo bool) ([]RawColumn, error)
}

// RawColumn is one row of schema-introspection output.
type RawColumn struct {
	ColumnOrdinal int
	ColumnName    string
	// DataType is the runtime scan type reported by the driver. It may be nil,
	// in which case the family's GoType is used.
	DataType     reflect.Type
	ProviderType any
	ColumnSize   int
	AllowDBNull  bool
	// IsKey is meaningful only for rows read with key information.
	IsKey bool
	// Flags holds dialect-specific attributes such as IsIdentity or
	// IsAutoIncrement, keyed by flag name.
	Flags map[string]any
}

// Flag returns the named flag value and whether it is present.
func (r RawColumn) Flag(name string) (any, bool) {
	if name == "" || r.Flags == nil {
		return nil, false
	}
	v, ok := r.Flags[name]
	return v, ok
}

// Factory creates the capability value of a family for a data source.
type Factory func(dsn string) Info

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a family available by name. It panics if called twice
// with the same name or with a nil factory.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if f == nil {
		panic("dialect: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("dialect: Register called twice for " + name)
	}
	factories[name] = f
}

// Open returns the capability value of a registered family.
func Open(name, dsn string) (Info, error) {
	factoriesMu.RLock()
	f, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dialect: unknown dialect %q (forgotten import?)", name)
	}
	return f(dsn), nil
}

// Dialects returns the sorted names of the registered families.
func Dialects() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
