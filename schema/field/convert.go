package field

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/syssam/typeddal"
)

// Convert converts a value read from the database to the canonical type.
//
// A database null yields NullValue for nullable columns and a
// *typeddal.ContractError for non-nullable ones. Non-null values of
// nullable, non-nillable columns are returned as *T.
func (t TypeInfo) Convert(raw any) (any, error) {
	raw, null, err := unwrap(raw)
	if err != nil {
		return nil, typeddal.NewContractError(fmt.Sprintf("reading %s value", t), err)
	}
	if null {
		if !t.Nullable {
			return nil, typeddal.NewContractError(fmt.Sprintf("unexpected null value for non-nullable %s column", t), nil)
		}
		return t.NullValue(), nil
	}
	v, err := t.convert(raw)
	if err != nil {
		return nil, typeddal.NewContractError(fmt.Sprintf("converting %T to %s", raw, t), err)
	}
	if t.Nullable && !t.Nillable() {
		ptr := reflect.New(t.RType)
		ptr.Elem().Set(reflect.ValueOf(v))
		return ptr.Interface(), nil
	}
	return v, nil
}

// unwrap reports whether raw is a database null and dereferences pointers
// and driver.Valuer wrappers such as sql.NullString.
func unwrap(raw any) (any, bool, error) {
	for {
		switch v := raw.(type) {
		case nil:
			return nil, true, nil
		case decimal.Decimal, uuid.UUID:
			return v, false, nil
		case driver.Valuer:
			if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
				return nil, true, nil
			}
			dv, err := v.Value()
			if err != nil {
				return nil, false, err
			}
			if dv == nil {
				return nil, true, nil
			}
			if reflect.TypeOf(dv) == reflect.TypeOf(raw) {
				return dv, false, nil
			}
			raw = dv
		default:
			rv := reflect.ValueOf(v)
			if rv.Kind() != reflect.Pointer {
				return v, false, nil
			}
			if rv.IsNil() {
				return nil, true, nil
			}
			raw = rv.Elem().Interface()
		}
	}
}

func (t TypeInfo) convert(raw any) (any, error) {
	if t.RType == nil || reflect.TypeOf(raw) == t.RType {
		return raw, nil
	}
	if b, ok := raw.([]byte); ok && !t.IsArray() && t.Type != TypeUUID {
		raw = string(b)
	}
	var (
		v   any
		err error
	)
	switch t.Type {
	case TypeBool:
		v, err = cast.ToBoolE(raw)
	case TypeString:
		v, err = cast.ToStringE(raw)
	case TypeInt:
		v, err = cast.ToIntE(raw)
	case TypeInt8:
		v, err = cast.ToInt8E(raw)
	case TypeInt16:
		v, err = cast.ToInt16E(raw)
	case TypeInt32:
		v, err = cast.ToInt32E(raw)
	case TypeInt64:
		v, err = cast.ToInt64E(raw)
	case TypeUint:
		v, err = cast.ToUintE(raw)
	case TypeUint8:
		v, err = cast.ToUint8E(raw)
	case TypeUint16:
		v, err = cast.ToUint16E(raw)
	case TypeUint32:
		v, err = cast.ToUint32E(raw)
	case TypeUint64:
		v, err = cast.ToUint64E(raw)
	case TypeFloat32:
		v, err = cast.ToFloat32E(raw)
	case TypeFloat64:
		v, err = cast.ToFloat64E(raw)
	case TypeTime:
		v, err = cast.ToTimeE(raw)
	case TypeDecimal:
		v, err = toDecimal(raw)
	case TypeUUID:
		v, err = toUUID(raw)
	case TypeBytes:
		v, err = toBytes(raw)
	case TypeJSON:
		v, err = toJSON(raw)
	case TypeArray:
		v, err = toArray(raw, t.RType)
	default:
		return raw, nil
	}
	if err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != t.RType {
		if !rv.CanConvert(t.RType) {
			return nil, fmt.Errorf("field: cannot convert %s to %s", rv.Type(), t.RType)
		}
		rv = rv.Convert(t.RType)
	}
	return rv.Interface(), nil
}

func toDecimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(s)
}

func toUUID(raw any) (uuid.UUID, error) {
	switch v := raw.(type) {
	case string:
		return uuid.Parse(v)
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case [16]byte:
		return uuid.UUID(v), nil
	}
	return uuid.Nil, fmt.Errorf("field: unsupported uuid source %T", raw)
}

func toBytes(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case []byte:
		return append([]byte(nil), v...), nil
	case string:
		return []byte(v), nil
	}
	return nil, fmt.Errorf("field: unsupported bytes source %T", raw)
}

func toJSON(raw any) (json.RawMessage, error) {
	switch v := raw.(type) {
	case []byte:
		return append(json.RawMessage(nil), v...), nil
	case string:
		return json.RawMessage(v), nil
	}
	return json.Marshal(raw)
}

// toArray decodes the text form of a database array into a new slice of
// type rt. Driver values already holding a slice are converted as is.
func toArray(raw any, rt reflect.Type) (any, error) {
	if rv := reflect.ValueOf(raw); rv.Kind() == reflect.Slice && rv.Type().ConvertibleTo(rt) {
		return rv.Convert(rt).Interface(), nil
	}
	if s, ok := raw.(string); ok {
		raw = []byte(s)
	}
	dest := reflect.New(rt)
	if err := pq.Array(dest.Interface()).Scan(raw); err != nil {
		return nil, err
	}
	return dest.Elem().Interface(), nil
}

// Value converts a non-null database value to T. It panics with a
// *typeddal.ContractError on null or when the value cannot be converted.
func Value[T any](raw any) T {
	ti := newTypeInfo(reflect.TypeFor[T](), "", 0, false)
	v, err := ti.Convert(raw)
	if err != nil {
		panic(err)
	}
	return v.(T)
}

// Nullable converts a database value to *T, returning nil on null.
func Nullable[T any](raw any) *T {
	if _, null, _ := unwrap(raw); null {
		return nil
	}
	v := Value[T](raw)
	return &v
}

// ValueOrNil converts a database value to a nillable T, returning the nil
// T on null.
func ValueOrNil[T any](raw any) T {
	if _, null, _ := unwrap(raw); null {
		var zero T
		return zero
	}
	return Value[T](raw)
}
