// Package field maps database column types to canonical Go types.
//
// Map combines the scan type reported by the driver, the provider type token
// and the dialect mapping into a TypeInfo:
//
//	ti, err := field.Map(nil, "int4", 4, true, info)
//	ti.String()       // int32
//	ti.NullableName() // *int32
//	ti.NullValue()    // (*int32)(nil)
//
// # Canonical Types
//
// Columns map to one of the following Go types:
//
//	bool, int8 ... int64, uint8 ... uint64, float32, float64
//	string
//	time.Time
//	decimal.Decimal  (github.com/shopspring/decimal)
//	uuid.UUID        (github.com/google/uuid)
//	[]byte, json.RawMessage
//	[]int64, []float64, []bool, []string, [][]byte (database arrays)
//	any              (everything else)
//
// sql.Null* wrappers and pointers reported as scan types are unwrapped.
//
// # Absence
//
// The nullable variant of a non-nillable type T is *T; slices are already
// nillable and keep their type. NullValue returns the typed absent value of
// the nullable variant.
//
// # Conversion
//
// TypeInfo.Convert turns driver values into canonical values. A database
// null read for a non-nullable column is a contract violation:
//
//	v, err := ti.Convert(int64(7)) // (*int32)(7) for a nullable int4
//
// Generated code uses the generic helpers instead:
//
//	id := field.Value[int32](values[0])
//	name := field.Nullable[string](values[1])
//	data := field.ValueOrNil[[]byte](values[2])
package field
