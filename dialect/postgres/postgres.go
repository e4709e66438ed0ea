// Package postgres implements the PostgreSQL family on top of the pgx
// database/sql driver. Array parameters are encoded with lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	atlaspg "ariga.io/atlas/sql/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/syssam/typeddal/dialect"
)

func init() {
	dialect.Register(dialect.Postgres, func(dsn string) dialect.Info { return New(dsn) })
}

// Dialect is the PostgreSQL capability value.
type Dialect struct {
	dialect.Base
}

// New returns the PostgreSQL capability value for a data source.
func New(dsn string) *Dialect {
	return &Dialect{
		Base: dialect.Base{
			Family:   dialect.Postgres,
			Driver:   "pgx",
			DSN:      dsn,
			Prefix:   "$",
			LastID:   "lastval()",
			Ordinal:  1,
			Identity: dialect.FlagIsIdentity,
		},
	}
}

// Placeholder implements dialect.Info. PostgreSQL binds parameters by
// their 1-based position.
func (d *Dialect) Placeholder(_ string, position int) string {
	return d.Prefix + strconv.Itoa(position+1)
}

// Arg implements dialect.Info. Slices other than []byte are bound as
// PostgreSQL arrays.
func (d *Dialect) Arg(p *dialect.Parameter) any {
	if p.Value == nil {
		return nil
	}
	if rv := reflect.ValueOf(p.Value); rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		return pq.Array(p.Value)
	}
	return p.Value
}

// OpenDB implements dialect.Info.
func (d *Dialect) OpenDB() (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(d.DSN)
	if err != nil {
		return nil, fmt.Errorf("dialect/postgres: parse dsn: %w", err)
	}
	return stdlib.OpenDB(*cfg), nil
}

// aliases maps udt names to the names used in type declarations.
var aliases = map[string]string{
	"int2":        "smallint",
	"int4":        "integer",
	"int8":        "bigint",
	"float4":      "real",
	"float8":      "double precision",
	"bool":        "boolean",
	"varchar":     "character varying",
	"bpchar":      "character",
	"timestamptz": "timestamp with time zone",
	"timetz":      "time with time zone",
	"decimal":     "numeric",
}

// DbTypeString implements dialect.Info. Internal udt names are reported
// under their declaration names, and "_name" array udts as "name[]".
func (d *Dialect) DbTypeString(providerType any) string {
	t := strings.ToLower(strings.TrimSpace(fmt.Sprint(providerType)))
	var array bool
	if strings.HasPrefix(t, "_") {
		t, array = t[1:], true
	}
	if a, ok := aliases[t]; ok {
		t = a
	}
	if array {
		t += "[]"
	}
	return t
}

// GoType implements dialect.Info.
func (d *Dialect) GoType(dbType string) reflect.Type {
	t, err := atlaspg.ParseType(dbType)
	if err != nil {
		return dialect.TypeAny
	}
	return dialect.GoTypeOf(t)
}

// Inspector implements dialect.Info.
func (d *Dialect) Inspector(q dialect.Querier) dialect.Inspector {
	return &Inspector{q: q}
}

// Inspector reads information_schema.columns.
type Inspector struct {
	q dialect.Querier
}

const columnsQuery = `SELECT
	c.ordinal_position,
	c.column_name,
	c.udt_name,
	COALESCE(c.character_maximum_length, c.numeric_precision, 0),
	c.is_nullable = 'YES',
	c.is_identity = 'YES' OR COALESCE(c.column_default, '') LIKE 'nextval(%',
	EXISTS (
		SELECT 1 FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_schema = tc.constraint_schema AND kcu.constraint_name = tc.constraint_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = c.table_schema AND tc.table_name = c.table_name
			AND kcu.column_name = c.column_name
	)
FROM information_schema.columns c
WHERE c.table_schema = COALESCE(NULLIF($1, ''), current_schema()) AND c.table_name = $2
ORDER BY c.ordinal_position`

// Columns implements dialect.Inspector.
func (i *Inspector) Columns(ctx context.Context, table string, keyInfo bool) ([]dialect.RawColumn, error) {
	schema, name := dialect.SplitTable(table)
	cols, err := dialect.ScanColumns(ctx, i.q, keyInfo, columnsQuery, []any{schema, name}, func(rows *sql.Rows) (dialect.RawColumn, error) {
		var (
			c               dialect.RawColumn
			typ             string
			identity, isKey bool
		)
		if err := rows.Scan(&c.ColumnOrdinal, &c.ColumnName, &typ, &c.ColumnSize, &c.AllowDBNull, &identity, &isKey); err != nil {
			return c, err
		}
		c.ProviderType = typ
		c.IsKey = isKey
		c.Flags = map[string]any{dialect.FlagIsIdentity: identity}
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("dialect/postgres: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("dialect/postgres: %q: %w", table, dialect.ErrTableNotFound)
	}
	return cols, nil
}
