// Package sqlite implements the SQLite family on top of modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"ariga.io/atlas/sql/schema"
	_ "modernc.org/sqlite"

	"github.com/syssam/typeddal/dialect"
)

func init() {
	dialect.Register(dialect.SQLite, func(dsn string) dialect.Info { return New(dsn) })
}

// Dialect is the SQLite capability value.
type Dialect struct {
	dialect.Base
}

// New returns the SQLite capability value for a data source.
func New(dsn string) *Dialect {
	return &Dialect{
		Base: dialect.Base{
			Family:   dialect.SQLite,
			Driver:   "sqlite",
			DSN:      dsn,
			Prefix:   "@",
			LastID:   "last_insert_rowid()",
			Ordinal:  0,
			Identity: dialect.FlagIsAutoIncrement,
		},
	}
}

// DbTypeString implements dialect.Info.
func (d *Dialect) DbTypeString(providerType any) string {
	return strings.ToLower(strings.TrimSpace(fmt.Sprint(providerType)))
}

// GoType implements dialect.Info.
func (d *Dialect) GoType(dbType string) reflect.Type {
	return dialect.GoTypeOf(parseType(dbType))
}

// parseType resolves a declared type the way SQLite determines column
// affinity, with the common exact names recognized first.
func parseType(dbType string) schema.Type {
	t := dialect.BaseType(dbType)
	switch t {
	case "bool", "boolean":
		return &schema.BoolType{T: t}
	case "date", "datetime", "timestamp", "time":
		return &schema.TimeType{T: t}
	case "decimal", "numeric":
		return &schema.DecimalType{T: t}
	case "uuid":
		return &schema.UUIDType{T: t}
	case "json", "jsonb":
		return &schema.JSONType{T: t}
	case "":
		return &schema.BinaryType{T: "blob"}
	}
	switch {
	case strings.Contains(t, "int"):
		return &schema.IntegerType{T: "integer"}
	case strings.Contains(t, "char"), strings.Contains(t, "clob"), strings.Contains(t, "text"):
		return &schema.StringType{T: t}
	case strings.Contains(t, "blob"):
		return &schema.BinaryType{T: t}
	case strings.Contains(t, "real"), strings.Contains(t, "floa"), strings.Contains(t, "doub"):
		return &schema.FloatType{T: "double"}
	}
	return &schema.DecimalType{T: t}
}

// Inspector implements dialect.Info.
func (d *Dialect) Inspector(q dialect.Querier) dialect.Inspector {
	return &Inspector{q: q}
}

// Inspector reads the table_info pragma.
type Inspector struct {
	q dialect.Querier
}

const columnsQuery = `SELECT cid, name, type, "notnull", pk FROM pragma_table_info(@table) ORDER BY cid`

// Columns implements dialect.Inspector. A table whose only primary key
// column is declared INTEGER stores it as the rowid, which SQLite assigns
// on insert.
func (i *Inspector) Columns(ctx context.Context, table string, keyInfo bool) ([]dialect.RawColumn, error) {
	cols, err := dialect.ScanColumns(ctx, i.q, keyInfo, columnsQuery, []any{sql.Named("table", table)}, func(rows *sql.Rows) (dialect.RawColumn, error) {
		var (
			c           dialect.RawColumn
			typ         string
			notNull, pk int
		)
		if err := rows.Scan(&c.ColumnOrdinal, &c.ColumnName, &typ, &notNull, &pk); err != nil {
			return c, err
		}
		c.ProviderType = typ
		c.ColumnSize = dialect.TypeSize(typ)
		// Only INTEGER PRIMARY KEY columns are implicitly NOT NULL.
		c.AllowDBNull = notNull == 0 && !(pk > 0 && dialect.BaseType(typ) == "integer")
		c.IsKey = pk > 0
		c.Flags = map[string]any{dialect.FlagIsAutoIncrement: false}
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("dialect/sqlite: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("dialect/sqlite: %q: %w", table, dialect.ErrTableNotFound)
	}
	if keyInfo {
		var keys []int
		for idx, c := range cols {
			if c.IsKey {
				keys = append(keys, idx)
			}
		}
		if len(keys) == 1 && dialect.BaseType(fmt.Sprint(cols[keys[0]].ProviderType)) == "integer" {
			cols[keys[0]].Flags[dialect.FlagIsAutoIncrement] = true
		}
	}
	return cols, nil
}
