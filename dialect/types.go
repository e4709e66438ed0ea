package dialect

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Scan types shared by the families.
var (
	TypeBool       = reflect.TypeOf(false)
	TypeInt8       = reflect.TypeOf(int8(0))
	TypeInt16      = reflect.TypeOf(int16(0))
	TypeInt32      = reflect.TypeOf(int32(0))
	TypeInt64      = reflect.TypeOf(int64(0))
	TypeUint8      = reflect.TypeOf(uint8(0))
	TypeUint16     = reflect.TypeOf(uint16(0))
	TypeUint32     = reflect.TypeOf(uint32(0))
	TypeUint64     = reflect.TypeOf(uint64(0))
	TypeFloat32    = reflect.TypeOf(float32(0))
	TypeFloat64    = reflect.TypeOf(float64(0))
	TypeString     = reflect.TypeOf("")
	TypeBytes      = reflect.TypeOf([]byte(nil))
	TypeTime       = reflect.TypeOf(time.Time{})
	TypeDecimal    = reflect.TypeOf(decimal.Decimal{})
	TypeUUID       = reflect.TypeOf(uuid.UUID{})
	TypeJSON       = reflect.TypeOf(json.RawMessage(nil))
	TypeInt64s     = reflect.TypeOf([]int64(nil))
	TypeFloat64s   = reflect.TypeOf([]float64(nil))
	TypeBools      = reflect.TypeOf([]bool(nil))
	TypeStrings    = reflect.TypeOf([]string(nil))
	TypeByteSlices = reflect.TypeOf([][]byte(nil))
	TypeAny        = reflect.TypeOf((*any)(nil)).Elem()
)

// GoTypeOf returns the scan type of an atlas column type.
func GoTypeOf(t schema.Type) reflect.Type {
	switch t := t.(type) {
	case *schema.BoolType:
		return TypeBool
	case *schema.IntegerType:
		return intType(t.T, t.Unsigned)
	case *postgres.SerialType:
		return intType(t.T, false)
	case *schema.FloatType:
		switch strings.ToLower(t.T) {
		case "real", "float4", "binary_float":
			return TypeFloat32
		case "float":
			if t.Precision > 0 && t.Precision <= 24 {
				return TypeFloat32
			}
		}
		return TypeFloat64
	case *schema.DecimalType:
		return TypeDecimal
	case *schema.TimeType:
		return TypeTime
	case *schema.StringType, *schema.EnumType:
		return TypeString
	case *schema.BinaryType, *schema.SpatialType:
		return TypeBytes
	case *schema.UUIDType:
		return TypeUUID
	case *schema.JSONType:
		return TypeJSON
	case *postgres.ArrayType:
		return arrayType(GoTypeOf(t.Type))
	default:
		return TypeAny
	}
}

func intType(t string, unsigned bool) reflect.Type {
	var bits int
	switch strings.ToLower(t) {
	case "tinyint", "int1":
		bits = 8
	case "smallint", "int2", "smallserial", "serial2", "year":
		bits = 16
	case "mediumint", "int", "integer", "int4", "serial", "serial4":
		bits = 32
	default:
		bits = 64
	}
	switch {
	case bits == 8 && unsigned:
		return TypeUint8
	case bits == 8:
		return TypeInt8
	case bits == 16 && unsigned:
		return TypeUint16
	case bits == 16:
		return TypeInt16
	case bits == 32 && unsigned:
		return TypeUint32
	case bits == 32:
		return TypeInt32
	case unsigned:
		return TypeUint64
	default:
		return TypeInt64
	}
}

// arrayType returns the array type able to decode elements of type elem.
// Only the element kinds with a native array codec are distinguished.
func arrayType(elem reflect.Type) reflect.Type {
	switch {
	case elem == nil:
		return TypeStrings
	case elem == TypeBool:
		return TypeBools
	case elem == TypeBytes:
		return TypeByteSlices
	}
	switch elem.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInt64s
	case reflect.Float32, reflect.Float64:
		return TypeFloat64s
	default:
		return TypeStrings
	}
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return fmt.Sprintf("%q", v)
	case []byte:
		return fmt.Sprintf("0x%x", v)
	case fmt.Stringer:
		return v.String()
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprintf("%v", v)
}
