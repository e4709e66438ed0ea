package field

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/typeddal/dialect"
)

// A Type represents a canonical column type.
type Type uint8

// List of canonical column types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeTime
	TypeJSON
	TypeUUID
	TypeBytes
	TypeDecimal
	TypeString
	TypeArray
	TypeOther
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint
	TypeUint64
	TypeFloat32
	TypeFloat64
	endTypes
)

var (
	typeNames = [...]string{
		TypeInvalid: "invalid",
		TypeBool:    "bool",
		TypeTime:    "time.Time",
		TypeJSON:    "json.RawMessage",
		TypeUUID:    "uuid.UUID",
		TypeBytes:   "[]byte",
		TypeDecimal: "decimal.Decimal",
		TypeString:  "string",
		TypeArray:   "array",
		TypeOther:   "other",
		TypeInt:     "int",
		TypeInt8:    "int8",
		TypeInt16:   "int16",
		TypeInt32:   "int32",
		TypeInt64:   "int64",
		TypeUint:    "uint",
		TypeUint8:   "uint8",
		TypeUint16:  "uint16",
		TypeUint32:  "uint32",
		TypeUint64:  "uint64",
		TypeFloat32: "float32",
		TypeFloat64: "float64",
	}
)

// String returns the string representation of a type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// TypeInfo holds the canonical type information of one column, as derived
// by Map from the driver's scan type and the provider type token.
type TypeInfo struct {
	Type Type
	// Ident is the Go type name, e.g. "int32" or "decimal.Decimal".
	Ident string
	// PkgPath is the import path of named types from other packages.
	PkgPath string
	// RType is the canonical Go type.
	RType reflect.Type
	// DBType is the dialect type string.
	DBType   string
	Size     int
	Nullable bool
}

// Map derives the canonical type information of a column. The scan type
// reported by the driver wins over the dialect mapping, except when it
// carries no information (nil, any or sql.RawBytes).
func Map(dataType reflect.Type, providerType any, size int, nullable bool, info dialect.Info) (*TypeInfo, error) {
	dbType := info.DbTypeString(providerType)
	rt := underlying(dataType)
	if dataType == nil || dataType == rawBytesType || rt == dialect.TypeAny {
		if mapped := info.GoType(dbType); mapped != nil && (rt == nil || mapped != dialect.TypeAny) {
			rt = mapped
		}
	}
	if rt == nil {
		return nil, fmt.Errorf("field: no Go type for %s column type %q", info.Name(), dbType)
	}
	return newTypeInfo(rt, dbType, size, nullable), nil
}

func newTypeInfo(rt reflect.Type, dbType string, size int, nullable bool) *TypeInfo {
	return &TypeInfo{
		Type:     typeOf(rt),
		Ident:    ident(rt),
		PkgPath:  rt.PkgPath(),
		RType:    rt,
		DBType:   dbType,
		Size:     size,
		Nullable: nullable,
	}
}

// String returns the canonical type name.
func (t TypeInfo) String() string {
	if t.Ident != "" {
		return t.Ident
	}
	return t.Type.String()
}

// NullableName returns the name of the type able to represent absence. It
// equals String for types that are already nillable.
func (t TypeInfo) NullableName() string {
	if t.Nillable() {
		return t.String()
	}
	return "*" + t.String()
}

// Nillable reports if the canonical type can hold nil.
func (t TypeInfo) Nillable() bool {
	if t.RType == nil {
		return false
	}
	switch t.RType.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Interface:
		return true
	}
	return false
}

// NullValue returns the typed absent value of the nullable variant: a nil
// T for nillable types and a nil *T otherwise.
func (t TypeInfo) NullValue() any {
	if t.RType == nil {
		return nil
	}
	if t.Nillable() {
		return reflect.Zero(t.RType).Interface()
	}
	return reflect.Zero(reflect.PointerTo(t.RType)).Interface()
}

// IsString reports if the column holds character data.
func (t TypeInfo) IsString() bool {
	return t.Type == TypeString
}

// IsArray reports if the column holds an array or blob value. Such columns
// cannot be used to identify a row.
func (t TypeInfo) IsArray() bool {
	switch t.Type {
	case TypeBytes, TypeJSON, TypeArray:
		return true
	}
	return false
}

// Code returns the jennifer descriptor of the canonical type.
func (t TypeInfo) Code() jen.Code {
	if t.RType == nil {
		return jen.Id("any")
	}
	return typeCode(t.RType)
}

// NullableCode returns the jennifer descriptor of the nullable variant.
func (t TypeInfo) NullableCode() jen.Code {
	if t.Nillable() {
		return t.Code()
	}
	return jen.Op("*").Add(t.Code())
}

func typeCode(rt reflect.Type) *jen.Statement {
	switch {
	case rt == dialect.TypeBytes:
		return jen.Index().Byte()
	case rt.PkgPath() != "":
		return jen.Qual(rt.PkgPath(), rt.Name())
	case rt.Name() != "":
		return jen.Id(rt.Name())
	case rt.Kind() == reflect.Slice:
		return jen.Index().Add(typeCode(rt.Elem()))
	case rt.Kind() == reflect.Pointer:
		return jen.Op("*").Add(typeCode(rt.Elem()))
	default:
		return jen.Id("any")
	}
}

var rawBytesType = reflect.TypeOf(sql.RawBytes(nil))

// underlying strips the nullable wrappers used as scan destinations.
func underlying(rt reflect.Type) reflect.Type {
	if rt == nil {
		return nil
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.PkgPath() == "database/sql" {
		switch {
		case rt == rawBytesType:
			return dialect.TypeBytes
		case rt.Name() == "NullByte":
			return dialect.TypeUint8
		case strings.HasPrefix(rt.Name(), "Null") && rt.Kind() == reflect.Struct && rt.NumField() > 0:
			// sql.NullString, sql.NullInt64, ..., and sql.Null[T] keep
			// the value in their first field.
			return rt.Field(0).Type
		}
	}
	return rt
}

func typeOf(rt reflect.Type) Type {
	switch rt {
	case dialect.TypeTime:
		return TypeTime
	case dialect.TypeDecimal:
		return TypeDecimal
	case dialect.TypeUUID:
		return TypeUUID
	case dialect.TypeJSON:
		return TypeJSON
	case dialect.TypeBytes:
		return TypeBytes
	}
	switch rt.Kind() {
	case reflect.Bool:
		return TypeBool
	case reflect.String:
		return TypeString
	case reflect.Int:
		return TypeInt
	case reflect.Int8:
		return TypeInt8
	case reflect.Int16:
		return TypeInt16
	case reflect.Int32:
		return TypeInt32
	case reflect.Int64:
		return TypeInt64
	case reflect.Uint:
		return TypeUint
	case reflect.Uint8:
		return TypeUint8
	case reflect.Uint16:
		return TypeUint16
	case reflect.Uint32:
		return TypeUint32
	case reflect.Uint64:
		return TypeUint64
	case reflect.Float32:
		return TypeFloat32
	case reflect.Float64:
		return TypeFloat64
	case reflect.Slice:
		return TypeArray
	default:
		return TypeOther
	}
}

func ident(rt reflect.Type) string {
	switch {
	case rt == dialect.TypeBytes:
		return "[]byte"
	case rt.Name() != "":
		return rt.String()
	case rt.Kind() == reflect.Slice:
		return "[]" + ident(rt.Elem())
	case rt.Kind() == reflect.Interface && rt.NumMethod() == 0:
		return "any"
	default:
		return rt.String()
	}
}

// knownTypes indexes the scan types that may appear in schema rows.
var knownTypes = func() map[string]reflect.Type {
	m := make(map[string]reflect.Type)
	for _, rt := range []reflect.Type{
		dialect.TypeBool, dialect.TypeInt8, dialect.TypeInt16, dialect.TypeInt32, dialect.TypeInt64,
		dialect.TypeUint8, dialect.TypeUint16, dialect.TypeUint32, dialect.TypeUint64,
		dialect.TypeFloat32, dialect.TypeFloat64, dialect.TypeString, dialect.TypeBytes,
		dialect.TypeTime, dialect.TypeDecimal, dialect.TypeUUID, dialect.TypeJSON,
		dialect.TypeInt64s, dialect.TypeFloat64s, dialect.TypeBools, dialect.TypeStrings,
		dialect.TypeByteSlices, dialect.TypeAny,
		reflect.TypeOf(0), reflect.TypeOf(uint(0)),
		reflect.TypeOf(sql.NullBool{}), reflect.TypeOf(sql.NullByte{}),
		reflect.TypeOf(sql.NullInt16{}), reflect.TypeOf(sql.NullInt32{}),
		reflect.TypeOf(sql.NullInt64{}), reflect.TypeOf(sql.NullFloat64{}),
		reflect.TypeOf(sql.NullString{}), reflect.TypeOf(sql.NullTime{}),
		rawBytesType,
	} {
		for _, name := range []string{rt.String(), ident(rt)} {
			if _, ok := m[name]; !ok {
				m[name] = rt
			}
		}
	}
	return m
}()

// TypeByName returns the scan type registered under the given name. Names
// are those produced by reflect.Type.String, e.g. "sql.NullString".
func TypeByName(name string) (reflect.Type, bool) {
	rt, ok := knownTypes[name]
	return rt, ok
}
