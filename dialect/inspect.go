package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrTableNotFound is returned by inspectors when a table has no columns.
var ErrTableNotFound = errors.New("dialect: table not found")

// ScanColumns runs a schema query and scans one RawColumn per result row.
// Rows read without key information have their key flags cleared.
func ScanColumns(ctx context.Context, q Querier, keyInfo bool, query string, args []any, scan func(*sql.Rows) (RawColumn, error)) ([]RawColumn, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()
	var cols []RawColumn
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		if !keyInfo {
			c.IsKey = false
			c.Flags = nil
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	return cols, nil
}

// SplitTable splits a possibly schema-qualified table name.
func SplitTable(name string) (schema, table string) {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

var reSize = regexp.MustCompile(`\(\s*(\d+)`)

// TypeSize extracts the declared size of a type, e.g. 50 for varchar(50).
func TypeSize(typ string) int {
	m := reSize.FindStringSubmatch(typ)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// BaseType returns the lower-cased type name without its size or
// precision modifiers, e.g. "nvarchar" for "NVARCHAR(50)".
func BaseType(typ string) string {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if i := strings.IndexByte(typ, '('); i >= 0 {
		rest := ""
		if j := strings.IndexByte(typ[i:], ')'); j >= 0 {
			rest = typ[i+j+1:]
		}
		typ = strings.TrimSpace(typ[:i] + rest)
	}
	return typ
}
