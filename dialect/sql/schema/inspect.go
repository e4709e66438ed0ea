package schema

import (
	"context"
	"fmt"

	"github.com/syssam/typeddal/dialect"
)

// QueryColumns runs a query and describes its result set from the driver's
// column types. No rows are read. The columns carry no key information.
//
// Drivers that cannot tell nullability report every column as nullable.
func QueryColumns(ctx context.Context, q dialect.Querier, info dialect.Info, query string, args ...any) ([]*Column, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("schema: query columns: %w", err)
	}
	defer rows.Close()
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("schema: column types: %w", err)
	}
	columns := make([]*Column, 0, len(types))
	for i, ct := range types {
		row := dialect.RawColumn{
			ColumnOrdinal: i + info.OrdinalBase(),
			ColumnName:    ct.Name(),
			DataType:      ct.ScanType(),
			ProviderType:  ct.DatabaseTypeName(),
			AllowDBNull:   true,
		}
		if size, ok := ct.Length(); ok && size > 0 && size < 1<<31 {
			row.ColumnSize = int(size)
		}
		if nullable, ok := ct.Nullable(); ok {
			row.AllowDBNull = nullable
		}
		c, err := NewColumn(row, info, false)
		if err != nil {
			return nil, fmt.Errorf("schema: %w", err)
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}
