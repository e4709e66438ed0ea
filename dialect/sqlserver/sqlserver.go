// Package sqlserver implements the Microsoft SQL Server family.
//
// The package does not import a database/sql driver; OpenDB uses the
// driver registered under the name "sqlserver" by the caller.
package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"

	"ariga.io/atlas/sql/schema"

	"github.com/syssam/typeddal/dialect"
)

// DriverName is the database/sql driver used by OpenDB.
const DriverName = "sqlserver"

func init() {
	dialect.Register(dialect.SQLServer, func(dsn string) dialect.Info { return New(dsn) })
}

// Dialect is the SQL Server capability value.
type Dialect struct {
	dialect.Base
}

// New returns the SQL Server capability value for a data source.
func New(dsn string) *Dialect {
	return &Dialect{
		Base: dialect.Base{
			Family:     dialect.SQLServer,
			Driver:     DriverName,
			DSN:        dsn,
			Prefix:     "@",
			LastID:     "SCOPE_IDENTITY()",
			Ordinal:    0,
			Identity:   dialect.FlagIsIdentity,
			RowVersion: dialect.FlagIsRowVersion,
		},
	}
}

// types maps SQL Server type names to their atlas representation.
var types = map[string]schema.Type{
	"bigint":           &schema.IntegerType{T: "bigint"},
	"int":              &schema.IntegerType{T: "int"},
	"smallint":         &schema.IntegerType{T: "smallint"},
	"tinyint":          &schema.IntegerType{T: "tinyint", Unsigned: true},
	"bit":              &schema.BoolType{T: "bit"},
	"decimal":          &schema.DecimalType{T: "decimal"},
	"numeric":          &schema.DecimalType{T: "numeric"},
	"money":            &schema.DecimalType{T: "money"},
	"smallmoney":       &schema.DecimalType{T: "smallmoney"},
	"float":            &schema.FloatType{T: "float", Precision: 53},
	"real":             &schema.FloatType{T: "real"},
	"date":             &schema.TimeType{T: "date"},
	"time":             &schema.TimeType{T: "time"},
	"datetime":         &schema.TimeType{T: "datetime"},
	"datetime2":        &schema.TimeType{T: "datetime2"},
	"smalldatetime":    &schema.TimeType{T: "smalldatetime"},
	"datetimeoffset":   &schema.TimeType{T: "datetimeoffset"},
	"char":             &schema.StringType{T: "char"},
	"varchar":          &schema.StringType{T: "varchar"},
	"text":             &schema.StringType{T: "text"},
	"nchar":            &schema.StringType{T: "nchar"},
	"nvarchar":         &schema.StringType{T: "nvarchar"},
	"ntext":            &schema.StringType{T: "ntext"},
	"sysname":          &schema.StringType{T: "sysname"},
	"xml":              &schema.StringType{T: "xml"},
	"binary":           &schema.BinaryType{T: "binary"},
	"varbinary":        &schema.BinaryType{T: "varbinary"},
	"image":            &schema.BinaryType{T: "image"},
	"timestamp":        &schema.BinaryType{T: "timestamp"},
	"rowversion":       &schema.BinaryType{T: "rowversion"},
	"uniqueidentifier": &schema.UUIDType{T: "uniqueidentifier"},
	"geography":        &schema.SpatialType{T: "geography"},
	"geometry":         &schema.SpatialType{T: "geometry"},
}

// DbTypeString implements dialect.Info.
func (d *Dialect) DbTypeString(providerType any) string {
	return dialect.BaseType(fmt.Sprint(providerType))
}

// GoType implements dialect.Info.
func (d *Dialect) GoType(dbType string) reflect.Type {
	t, ok := types[dialect.BaseType(dbType)]
	if !ok {
		return dialect.TypeAny
	}
	return dialect.GoTypeOf(t)
}

// Inspector implements dialect.Info.
func (d *Dialect) Inspector(q dialect.Querier) dialect.Inspector {
	return &Inspector{q: q}
}

// Inspector reads SQL Server catalog views.
type Inspector struct {
	q dialect.Querier
}

const columnsQuery = `SELECT
	CAST(ROW_NUMBER() OVER (ORDER BY c.column_id) - 1 AS int) AS ordinal,
	c.name,
	t.name,
	CAST(CASE WHEN t.name IN ('nchar', 'nvarchar') AND c.max_length > 0 THEN c.max_length / 2 ELSE c.max_length END AS int),
	c.is_nullable,
	c.is_identity,
	CAST(CASE WHEN t.name IN ('timestamp', 'rowversion') THEN 1 ELSE 0 END AS bit),
	CAST(CASE WHEN EXISTS (
		SELECT 1 FROM sys.index_columns ic
		JOIN sys.indexes i ON i.object_id = ic.object_id AND i.index_id = ic.index_id
		WHERE i.is_primary_key = 1 AND ic.object_id = c.object_id AND ic.column_id = c.column_id
	) THEN 1 ELSE 0 END AS bit)
FROM sys.columns c
JOIN sys.types t ON t.user_type_id = c.user_type_id
WHERE c.object_id = OBJECT_ID(@table)
ORDER BY c.column_id`

// Columns implements dialect.Inspector.
func (i *Inspector) Columns(ctx context.Context, table string, keyInfo bool) ([]dialect.RawColumn, error) {
	cols, err := dialect.ScanColumns(ctx, i.q, keyInfo, columnsQuery, []any{sql.Named("table", table)}, func(rows *sql.Rows) (dialect.RawColumn, error) {
		var (
			c                           dialect.RawColumn
			typ                         string
			identity, rowVersion, isKey bool
		)
		if err := rows.Scan(&c.ColumnOrdinal, &c.ColumnName, &typ, &c.ColumnSize, &c.AllowDBNull, &identity, &rowVersion, &isKey); err != nil {
			return c, err
		}
		c.ProviderType = typ
		c.IsKey = isKey
		c.Flags = map[string]any{
			dialect.FlagIsIdentity:   identity,
			dialect.FlagIsRowVersion: rowVersion,
		}
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("dialect/sqlserver: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("dialect/sqlserver: %q: %w", table, dialect.ErrTableNotFound)
	}
	return cols, nil
}
