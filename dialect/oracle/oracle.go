// Package oracle implements the Oracle Database family.
//
// Oracle stores the empty string as NULL, so character columns of Oracle
// tables are allowed to be nullable. The package does not import a
// database/sql driver; OpenDB uses the driver registered under the name
// "oracle" by the caller.
package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"ariga.io/atlas/sql/schema"

	"github.com/syssam/typeddal/dialect"
)

// DriverName is the database/sql driver used by OpenDB.
const DriverName = "oracle"

func init() {
	dialect.Register(dialect.Oracle, func(dsn string) dialect.Info { return New(dsn) })
}

// Dialect is the Oracle capability value.
type Dialect struct {
	dialect.Base
}

// New returns the Oracle capability value for a data source.
func New(dsn string) *Dialect {
	return &Dialect{
		Base: dialect.Base{
			Family:      dialect.Oracle,
			Driver:      DriverName,
			DSN:         dsn,
			Prefix:      ":",
			Ordinal:     1,
			Identity:    dialect.FlagIsIdentity,
			EmptyIsNull: true,
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

func parseType(dbType string) schema.Type {
	t := dialect.BaseType(dbType)
	switch {
	case t == "number":
		return numberType(dbType)
	case t == "integer", t == "int", t == "smallint":
		return &schema.DecimalType{T: t}
	case t == "binary_float":
		return &schema.FloatType{T: t}
	case t == "binary_double", t == "float":
		return &schema.FloatType{T: t, Precision: 53}
	case t == "date", strings.HasPrefix(t, "timestamp"):
		return &schema.TimeType{T: t}
	case t == "raw", t == "long raw", t == "blob", t == "bfile":
		return &schema.BinaryType{T: t}
	case t == "json":
		return &schema.JSONType{T: t}
	case strings.Contains(t, "char"), strings.HasSuffix(t, "clob"), t == "long", t == "rowid", t == "urowid":
		return &schema.StringType{T: t}
	}
	return &schema.UnsupportedType{T: t}
}

// numberType sizes NUMBER(p, 0) columns to the smallest integer able to
// hold p digits. Other NUMBER columns are decimals.
func numberType(dbType string) schema.Type {
	var p, s int
	if i := strings.IndexByte(dbType, '('); i >= 0 {
		args := strings.Split(strings.TrimSuffix(dbType[i+1:], ")"), ",")
		p, _ = strconv.Atoi(strings.TrimSpace(args[0]))
		if len(args) > 1 {
			s, _ = strconv.Atoi(strings.TrimSpace(args[1]))
		}
	}
	switch {
	case p == 0 || s != 0:
		return &schema.DecimalType{T: "number", Precision: p, Scale: s}
	case p < 5:
		return &schema.IntegerType{T: "smallint"}
	case p < 10:
		return &schema.IntegerType{T: "integer"}
	case p < 19:
		return &schema.IntegerType{T: "bigint"}
	default:
		return &schema.DecimalType{T: "number", Precision: p}
	}
}

// Inspector implements dialect.Info.
func (d *Dialect) Inspector(q dialect.Querier) dialect.Inspector {
	return &Inspector{q: q}
}

// Inspector reads ALL_TAB_COLUMNS.
type Inspector struct {
	q dialect.Querier
}

const columnsQuery = `SELECT
	c.COLUMN_ID,
	c.COLUMN_NAME,
	c.DATA_TYPE || CASE WHEN c.DATA_PRECISION IS NOT NULL THEN '(' || c.DATA_PRECISION || ',' || NVL(c.DATA_SCALE, 0) || ')' END,
	COALESCE(NULLIF(c.CHAR_LENGTH, 0), c.DATA_PRECISION, c.DATA_LENGTH, 0),
	c.NULLABLE,
	c.IDENTITY_COLUMN,
	CASE WHEN EXISTS (
		SELECT 1 FROM ALL_CONSTRAINTS k
		JOIN ALL_CONS_COLUMNS kc ON kc.OWNER = k.OWNER AND kc.CONSTRAINT_NAME = k.CONSTRAINT_NAME
		WHERE k.CONSTRAINT_TYPE = 'P' AND k.OWNER = c.OWNER AND k.TABLE_NAME = c.TABLE_NAME AND kc.COLUMN_NAME = c.COLUMN_NAME
	) THEN 1 ELSE 0 END
FROM ALL_TAB_COLUMNS c
WHERE c.OWNER = COALESCE(:owner, SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA')) AND c.TABLE_NAME = :name
ORDER BY c.COLUMN_ID`

// Columns implements dialect.Inspector. IDENTITY_COLUMN is reported as is
// ("YES" or "NO").
func (i *Inspector) Columns(ctx context.Context, table string, keyInfo bool) ([]dialect.RawColumn, error) {
	owner, name := dialect.SplitTable(strings.ToUpper(table))
	var ownerArg any
	if owner != "" {
		ownerArg = owner
	}
	args := []any{sql.Named("owner", ownerArg), sql.Named("name", name)}
	cols, err := dialect.ScanColumns(ctx, i.q, keyInfo, columnsQuery, args, func(rows *sql.Rows) (dialect.RawColumn, error) {
		var (
			c                  dialect.RawColumn
			typ, nullable, ide string
			isKey              int
		)
		if err := rows.Scan(&c.ColumnOrdinal, &c.ColumnName, &typ, &c.ColumnSize, &nullable, &ide, &isKey); err != nil {
			return c, err
		}
		c.ProviderType = typ
		c.AllowDBNull = nullable == "Y"
		c.IsKey = isKey == 1
		c.Flags = map[string]any{dialect.FlagIsIdentity: ide}
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("dialect/oracle: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("dialect/oracle: %q: %w", table, dialect.ErrTableNotFound)
	}
	return cols, nil
}
