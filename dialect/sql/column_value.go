package sql

import (
	"bytes"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/syssam/typeddal/dialect"
)

// ParameterValue is a value bound to a command parameter, with an optional
// dialect type string.
type ParameterValue struct {
	Value  any
	DBType string
}

// Parameter creates the native parameter carrying the value. The dialect
// type is applied when set.
func (v ParameterValue) Parameter(info dialect.Info, name string) (*dialect.Parameter, error) {
	p := info.NewParameter(name, v.Value)
	if v.DBType != "" {
		if err := info.SetParameterType(p, v.DBType); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ColumnValue pairs a column name with the value written to it.
type ColumnValue struct {
	Column string
	Value  ParameterValue
}

// NewColumnValue returns a column value without a dialect type.
func NewColumnValue(column string, value any) ColumnValue {
	return ColumnValue{Column: column, Value: ParameterValue{Value: value}}
}

// NewTypedColumnValue returns a column value bound with the given dialect type.
func NewTypedColumnValue(column string, value any, dbType string) ColumnValue {
	return ColumnValue{Column: column, Value: ParameterValue{Value: value, DBType: dbType}}
}

// Parameter creates the native parameter of the column value. An empty name
// defaults to the column name.
func (c ColumnValue) Parameter(info dialect.Info, name string) (*dialect.Parameter, error) {
	if name == "" {
		name = c.Column
	}
	return c.Value.Parameter(info, name)
}

// Equal reports whether both the column names and the bound values are equal.
func (c ColumnValue) Equal(o ColumnValue) bool {
	return c.Column == o.Column &&
		c.Value.DBType == o.Value.DBType &&
		reflect.DeepEqual(c.Value.Value, o.Value.Value)
}

// Compare orders column values by column name, using the root-locale
// collation, then by bound value and then by parameter type. It returns
// -1, 0 or +1. Values that are not Equal compare as 0 only when they also
// format identically, e.g. NaN.
func (c ColumnValue) Compare(o ColumnValue) int {
	if r := compareStrings(c.Column, o.Column); r != 0 {
		return r
	}
	if r := CompareValues(c.Value.Value, o.Value.Value); r != 0 {
		return r
	}
	if r := cmpOrdered(c.Value.DBType, o.Value.DBType); r != 0 {
		return r
	}
	if reflect.DeepEqual(c.Value.Value, o.Value.Value) {
		return 0
	}
	// Values such as int(1) and int64(1) compare equal but are not Equal.
	if r := cmpOrdered(fmt.Sprintf("%T", c.Value.Value), fmt.Sprintf("%T", o.Value.Value)); r != 0 {
		return r
	}
	return cmpOrdered(fmt.Sprintf("%#v", c.Value.Value), fmt.Sprintf("%#v", o.Value.Value))
}

var (
	collatorMu sync.Mutex
	collator   = collate.New(language.Und)
)

func compareStrings(a, b string) int {
	if a == b {
		return 0
	}
	collatorMu.Lock()
	r := collator.CompareString(a, b)
	collatorMu.Unlock()
	if r == 0 {
		// Collation-equal but distinct strings keep a total order.
		return cmpOrdered(a, b)
	}
	return r
}

// CompareValues orders two bound values. Nil sorts first. Values of the
// same class (numbers, strings, bools, times, bytes, decimals) compare
// natively and anything else compares by its formatted text.
func CompareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch a := a.(type) {
	case string:
		if b, ok := b.(string); ok {
			return compareStrings(a, b)
		}
	case bool:
		if b, ok := b.(bool); ok {
			switch {
			case a == b:
				return 0
			case !a:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if b, ok := b.(time.Time); ok {
			return a.Compare(b)
		}
	case []byte:
		if b, ok := b.([]byte); ok {
			return bytes.Compare(a, b)
		}
	case decimal.Decimal:
		if b, ok := b.(decimal.Decimal); ok {
			return a.Cmp(b)
		}
	}
	if r, ok := compareNumbers(a, b); ok {
		return r
	}
	return compareStrings(fmt.Sprint(a), fmt.Sprint(b))
}

func compareNumbers(a, b any) (int, bool) {
	ka, kb := numberKind(a), numberKind(b)
	switch {
	case ka == 0 || kb == 0:
		return 0, false
	case ka == reflect.Int && kb == reflect.Int:
		return cmpOrdered(reflect.ValueOf(a).Int(), reflect.ValueOf(b).Int()), true
	case ka == reflect.Uint && kb == reflect.Uint:
		return cmpOrdered(reflect.ValueOf(a).Uint(), reflect.ValueOf(b).Uint()), true
	}
	fa, erra := cast.ToFloat64E(a)
	fb, errb := cast.ToFloat64E(b)
	if erra != nil || errb != nil {
		return 0, false
	}
	return cmpOrdered(fa, fb), true
}

// numberKind returns reflect.Int, reflect.Uint or reflect.Float64 for
// numeric values and 0 otherwise.
func numberKind(v any) reflect.Kind {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return reflect.Int
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return reflect.Uint
	case reflect.Float32, reflect.Float64:
		return reflect.Float64
	}
	return 0
}

func cmpOrdered[T int64 | uint64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
