// Package mysql implements the MySQL and MariaDB family on top of
// github.com/go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"strings"

	atlasmysql "ariga.io/atlas/sql/mysql"
	"github.com/go-sql-driver/mysql"

	"github.com/syssam/typeddal/dialect"
)

func init() {
	dialect.Register(dialect.MySQL, func(dsn string) dialect.Info { return New(dsn) })
}

// Dialect is the MySQL capability value.
type Dialect struct {
	dialect.Base
	// schema is the database named by the DSN, if any.
	schema string
}

// New returns the MySQL capability value for a data source.
func New(dsn string) *Dialect {
	d := &Dialect{
		Base: dialect.Base{
			Family:    dialect.MySQL,
			Driver:    "mysql",
			DSN:       dsn,
			Prefix:    "?",
			LastID:    "LAST_INSERT_ID()",
			CacheHint: "SQL_CACHE",
			Ordinal:   1,
			Identity:  dialect.FlagIsAutoIncrement,
		},
	}
	if cfg, err := mysql.ParseDSN(dsn); err == nil {
		d.schema = cfg.DBName
	}
	return d
}

// Placeholder implements dialect.Info. MySQL binds parameters by position.
func (d *Dialect) Placeholder(string, int) string { return "?" }

// Arg implements dialect.Info. The driver does not support named arguments.
func (d *Dialect) Arg(p *dialect.Parameter) any { return p.Value }

// EmptyInsert implements dialect.EmptyInserter.
func (d *Dialect) EmptyInsert(table string) string {
	return "INSERT INTO " + table + " () VALUES ()"
}

// OpenDB implements dialect.Info. Temporal columns are scanned as time.Time.
func (d *Dialect) OpenDB() (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(d.DSN)
	if err != nil {
		return nil, fmt.Errorf("dialect/mysql: parse dsn: %w", err)
	}
	cfg.ParseTime = true
	conn, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("dialect/mysql: connector: %w", err)
	}
	return sql.OpenDB(conn), nil
}

// DbTypeString implements dialect.Info. The full column type is kept, as
// it carries the unsigned attribute and the tinyint(1) boolean marker.
func (d *Dialect) DbTypeString(providerType any) string {
	return strings.ToLower(strings.TrimSpace(fmt.Sprint(providerType)))
}

// GoType implements dialect.Info.
func (d *Dialect) GoType(dbType string) reflect.Type {
	t, err := atlasmysql.ParseType(dbType)
	if err != nil {
		return dialect.TypeAny
	}
	return dialect.GoTypeOf(t)
}

// Inspector implements dialect.Info.
func (d *Dialect) Inspector(q dialect.Querier) dialect.Inspector {
	return &Inspector{q: q, schema: d.schema}
}

// Inspector reads INFORMATION_SCHEMA.COLUMNS.
type Inspector struct {
	q      dialect.Querier
	schema string
}

const columnsQuery = `SELECT
	ORDINAL_POSITION,
	COLUMN_NAME,
	COLUMN_TYPE,
	COALESCE(CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, 0),
	IS_NULLABLE,
	COLUMN_KEY,
	EXTRA
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE()) AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`

// Columns implements dialect.Inspector.
func (i *Inspector) Columns(ctx context.Context, table string, keyInfo bool) ([]dialect.RawColumn, error) {
	schema, name := dialect.SplitTable(table)
	if schema == "" {
		schema = i.schema
	}
	cols, err := dialect.ScanColumns(ctx, i.q, keyInfo, columnsQuery, []any{schema, name}, func(rows *sql.Rows) (dialect.RawColumn, error) {
		var (
			c                dialect.RawColumn
			size             int64
			typ, nullable    string
			columnKey, extra string
		)
		if err := rows.Scan(&c.ColumnOrdinal, &c.ColumnName, &typ, &size, &nullable, &columnKey, &extra); err != nil {
			return c, err
		}
		c.ProviderType = typ
		c.ColumnSize = int(min(size, math.MaxInt32))
		c.AllowDBNull = strings.EqualFold(nullable, "YES")
		c.IsKey = columnKey == "PRI"
		c.Flags = map[string]any{
			dialect.FlagIsAutoIncrement: strings.Contains(strings.ToLower(extra), "auto_increment"),
		}
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("dialect/mysql: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("dialect/mysql: %q: %w", table, dialect.ErrTableNotFound)
	}
	return cols, nil
}
