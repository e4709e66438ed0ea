package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"
	"github.com/spf13/cast"

	"github.com/syssam/typeddal"
	"github.com/syssam/typeddal/dialect"
	"github.com/syssam/typeddal/dialect/sql"
	"github.com/syssam/typeddal/schema/field"
)

// Import paths referenced by generated expressions.
const (
	fieldPkg = "github.com/syssam/typeddal/schema/field"
	sqlPkg   = "github.com/syssam/typeddal/dialect/sql"
)

// Column is the validated metadata of one table column. It is immutable
// after construction.
type Column struct {
	name       string
	ordinal    int
	typ        *field.TypeInfo
	identity   bool
	rowVersion bool
	key        *bool
}

// NewColumn builds a column from a raw schema row. The ordinal is
// normalized to 0-based and the identity and row-version flags are read
// from the flags named by the dialect. The key flag is only read when
// keyInfo is true.
func NewColumn(row dialect.RawColumn, info dialect.Info, keyInfo bool) (*Column, error) {
	typ, err := field.Map(row.DataType, row.ProviderType, row.ColumnSize, row.AllowDBNull, info)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", row.ColumnName, err)
	}
	c := &Column{
		name:    row.ColumnName,
		ordinal: row.ColumnOrdinal - info.OrdinalBase(),
		typ:     typ,
	}
	if c.identity, err = readFlag(row, info.IdentityFlag()); err != nil {
		return nil, err
	}
	if c.rowVersion, err = readFlag(row, info.RowVersionFlag()); err != nil {
		return nil, err
	}
	if keyInfo {
		key := row.IsKey
		c.key = &key
	}
	return c, nil
}

func readFlag(row dialect.RawColumn, name string) (bool, error) {
	v, ok := row.Flag(name)
	if !ok {
		return false, nil
	}
	b, err := parseFlag(v)
	if err != nil {
		return false, typeddal.NewContractError(
			fmt.Sprintf("unrecognized dialect-specific flag value %v (%T) for %s of column %s", v, v, name, row.ColumnName), err)
	}
	return b, nil
}

// parseFlag interprets the flag encodings used by the families: booleans,
// integers and strings such as "YES" or "true".
func parseFlag(v any) (bool, error) {
	switch v := v.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case []byte:
		return parseFlag(string(v))
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "y":
			return true, nil
		case "no", "n", "":
			return false, nil
		}
		return cast.ToBoolE(strings.TrimSpace(v))
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0, nil
	}
	return false, fmt.Errorf("unsupported flag type %T", v)
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// PascalName returns the column name in PascalCase, e.g. UserId.
func (c *Column) PascalName() string { return inflect.Camelize(c.name) }

// CamelName returns the column name in camelCase, e.g. userId.
func (c *Column) CamelName() string {
	if c.name == "" {
		return ""
	}
	return inflect.CamelizeDownFirst(c.name)
}

// Ordinal returns the 0-based position of the column in its table.
func (c *Column) Ordinal() int { return c.ordinal }

// Type returns the canonical type information of the column.
func (c *Column) Type() field.TypeInfo { return *c.typ }

// DataTypeName returns the canonical type name, e.g. int32.
func (c *Column) DataTypeName() string { return c.typ.String() }

// NullableDataTypeName returns the canonical type name able to hold
// absence, e.g. *int32.
func (c *Column) NullableDataTypeName() string { return c.typ.NullableName() }

// DBType returns the dialect type string.
func (c *Column) DBType() string { return c.typ.DBType }

// Size returns the column size reported by the schema.
func (c *Column) Size() int { return c.typ.Size }

// AllowsNull reports whether the column accepts null.
func (c *Column) AllowsNull() bool { return c.typ.Nullable }

// IsIdentity reports whether the column value is generated by the database.
func (c *Column) IsIdentity() bool { return c.identity }

// IsRowVersion reports whether the column is a row-version column.
func (c *Column) IsRowVersion() bool { return c.rowVersion }

// HasKeyInfo reports whether the column was read with key information.
func (c *Column) HasKeyInfo() bool { return c.key != nil }

// IsKey reports whether the column is part of the table key. It panics
// with a *typeddal.ContractError when the column was read without key
// information.
func (c *Column) IsKey() bool {
	if c.key == nil {
		panic(typeddal.NewContractError(fmt.Sprintf("key information was not requested for column %s", c.name), nil))
	}
	return *c.key
}

// UseToUniquelyIdentifyRow reports whether the column's values can be
// compared to identify a row: the column is not an array or blob and not
// a row version.
func (c *Column) UseToUniquelyIdentifyRow() bool {
	return !c.typ.IsArray() && !c.rowVersion
}

// ConvertIncomingValue converts a value read from the database to the
// column's canonical type.
func (c *Column) ConvertIncomingValue(raw any) (any, error) {
	return c.typ.Convert(raw)
}

// Set returns a modification assigning v to the column.
func (c *Column) Set(v any) sql.ColumnValue {
	return sql.NewTypedColumnValue(c.name, v, c.typ.DBType)
}

// EQ returns the condition matching rows whose column equals v.
func (c *Column) EQ(v any) sql.Condition {
	return sql.EQ(c.name, v).WithType(c.typ.DBType)
}

// IncomingValueExpr returns the expression converting raw, a database
// value, to the column's canonical type (or its nullable variant).
func (c *Column) IncomingValueExpr(raw jen.Code) jen.Code {
	fn := "Value"
	switch {
	case c.typ.Nullable && c.typ.Nillable():
		fn = "ValueOrNil"
	case c.typ.Nullable:
		fn = "Nullable"
	}
	return jen.Qual(fieldPkg, fn).Types(c.typ.Code()).Call(raw)
}

// ReaderValueExpr returns the expression reading the column from the
// values slice of a scanned row, indexed by the column ordinal.
func (c *Column) ReaderValueExpr(values string) jen.Code {
	return c.ReaderValueExprAt(values, c.ordinal)
}

// ReaderValueExprAt is like ReaderValueExpr with an explicit index, for
// result sets whose columns are not in table order.
func (c *Column) ReaderValueExprAt(values string, ordinal int) jen.Code {
	return c.IncomingValueExpr(jen.Id(values).Index(jen.Lit(ordinal)))
}

// ColumnValueExpr returns the expression building the sql.ColumnValue
// that writes value to the column.
func (c *Column) ColumnValueExpr(value jen.Code) jen.Code {
	return jen.Qual(sqlPkg, "NewTypedColumnValue").Call(jen.Lit(c.name), value, jen.Lit(c.typ.DBType))
}

// String returns the column name and type.
func (c *Column) String() string {
	return c.name + " " + c.typ.String()
}
