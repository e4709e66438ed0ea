package dialect

import (
	"database/sql"
	"fmt"
	"time"
)

// Base holds the capability fields shared by all families. Families embed it
// and add their type mapping and schema executor.
type Base struct {
	// Family is the family name.
	Family string
	// Driver is the database/sql driver name used by OpenDB.
	Driver string
	// DSN is the data source name.
	DSN string
	// Prefix is the parameter prefix.
	Prefix string
	// LastID is the last auto-increment value expression.
	LastID string
	// CacheHint is the query cache hint.
	CacheHint string
	// Ordinal is the ordinal base of schema queries.
	Ordinal int
	// Identity and RowVersion name the RawColumn flags.
	Identity   string
	RowVersion string
	// EmptyIsNull reports that '' is stored as NULL.
	EmptyIsNull bool
}

// Name implements Info.
func (b *Base) Name() string { return b.Family }

// ConnectionString implements Info.
func (b *Base) ConnectionString() string { return b.DSN }

// ParameterPrefix implements Info.
func (b *Base) ParameterPrefix() string { return b.Prefix }

// Placeholder implements Info by prefixing the parameter name.
func (b *Base) Placeholder(name string, _ int) string { return b.Prefix + name }

// LastAutoIncrementValueExpression implements Info.
func (b *Base) LastAutoIncrementValueExpression() string { return b.LastID }

// QueryCacheHint implements Info.
func (b *Base) QueryCacheHint() string { return b.CacheHint }

// OrdinalBase implements Info.
func (b *Base) OrdinalBase() int { return b.Ordinal }

// IdentityFlag implements Info.
func (b *Base) IdentityFlag() string { return b.Identity }

// RowVersionFlag implements Info.
func (b *Base) RowVersionFlag() string { return b.RowVersion }

// EmptyStringIsNull implements Info.
func (b *Base) EmptyStringIsNull() bool { return b.EmptyIsNull }

// OpenDB implements Info.
func (b *Base) OpenDB() (*sql.DB, error) {
	if b.Driver == "" {
		return nil, fmt.Errorf("dialect: %s: no driver name configured", b.Family)
	}
	db, err := sql.Open(b.Driver, b.DSN)
	if err != nil {
		return nil, fmt.Errorf("dialect: %s: open: %w", b.Family, err)
	}
	return db, nil
}

// NewCommand implements Info.
func (b *Base) NewCommand(timeout time.Duration) *Command {
	return &Command{Timeout: timeout}
}

// NewParameter implements Info.
func (b *Base) NewParameter(name string, value any) *Parameter {
	return &Parameter{Name: name, Value: value}
}

// SetParameterType implements Info.
func (b *Base) SetParameterType(p *Parameter, dbType string) error {
	if p == nil {
		return fmt.Errorf("dialect: %s: set type %q on nil parameter", b.Family, dbType)
	}
	p.DBType = dbType
	return nil
}

// Arg implements Info by binding the parameter by name.
func (b *Base) Arg(p *Parameter) any {
	return sql.Named(p.Name, p.Value)
}
