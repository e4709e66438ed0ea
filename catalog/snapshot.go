package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/syssam/typeddal"
	"github.com/syssam/typeddal/dialect"
	"github.com/syssam/typeddal/dialect/sql/schema"
	"github.com/syssam/typeddal/schema/field"
)

// Format is a snapshot encoding.
type Format int

// Snapshot encodings.
const (
	// Msgpack is the compact binary encoding used for cache entries.
	Msgpack Format = iota
	// YAML is the readable encoding used for fixtures.
	YAML
)

// FormatOf returns the encoding implied by a file extension.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return Msgpack
	}
}

// Snapshot is the serializable form of a catalog: the raw rows of every
// loaded table. Rebuilding tables from a snapshot runs the same validation
// as loading them from a database.
type Snapshot struct {
	Dialect string          `msgpack:"dialect" yaml:"dialect"`
	Tables  []TableSnapshot `msgpack:"tables" yaml:"tables"`
}

// TableSnapshot holds the raw rows of one table.
type TableSnapshot struct {
	Name    string           `msgpack:"name" yaml:"name"`
	Columns []ColumnSnapshot `msgpack:"columns" yaml:"columns"`
}

// ColumnSnapshot is a dialect.RawColumn with its scan type stored by name.
type ColumnSnapshot struct {
	Ordinal      int            `msgpack:"ordinal" yaml:"ordinal"`
	Name         string         `msgpack:"name" yaml:"name"`
	DataType     string         `msgpack:"data_type,omitempty" yaml:"data_type,omitempty"`
	ProviderType any            `msgpack:"provider_type" yaml:"provider_type"`
	Size         int            `msgpack:"size,omitempty" yaml:"size,omitempty"`
	AllowNull    bool           `msgpack:"allow_null,omitempty" yaml:"allow_null,omitempty"`
	IsKey        bool           `msgpack:"is_key,omitempty" yaml:"is_key,omitempty"`
	Flags        map[string]any `msgpack:"flags,omitempty" yaml:"flags,omitempty"`
}

// NewTableSnapshot captures the raw rows of a table.
func NewTableSnapshot(name string, rows []dialect.RawColumn) TableSnapshot {
	s := TableSnapshot{Name: name, Columns: make([]ColumnSnapshot, len(rows))}
	for i, r := range rows {
		c := ColumnSnapshot{
			Ordinal:      r.ColumnOrdinal,
			Name:         r.ColumnName,
			ProviderType: r.ProviderType,
			Size:         r.ColumnSize,
			AllowNull:    r.AllowDBNull,
			IsKey:        r.IsKey,
			Flags:        r.Flags,
		}
		if r.DataType != nil {
			c.DataType = r.DataType.String()
		}
		s.Columns[i] = c
	}
	return s
}

// RawColumns restores the raw rows of the table.
func (s TableSnapshot) RawColumns() ([]dialect.RawColumn, error) {
	rows := make([]dialect.RawColumn, len(s.Columns))
	for i, c := range s.Columns {
		r := dialect.RawColumn{
			ColumnOrdinal: c.Ordinal,
			ColumnName:    c.Name,
			ProviderType:  c.ProviderType,
			ColumnSize:    c.Size,
			AllowDBNull:   c.AllowNull,
			IsKey:         c.IsKey,
			Flags:         c.Flags,
		}
		if c.DataType != "" {
			rt, ok := field.TypeByName(c.DataType)
			if !ok {
				return nil, fmt.Errorf("catalog: column %s.%s has unknown data type %q", s.Name, c.Name, c.DataType)
			}
			r.DataType = rt
		}
		rows[i] = r
	}
	return rows, nil
}

// Snapshot captures the raw rows of the loaded tables, sorted by name.
func (c *Catalog) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := &Snapshot{Dialect: c.info.Name()}
	for _, name := range sortedNames(c.rows) {
		s.Tables = append(s.Tables, NewTableSnapshot(name, c.rows[name]))
	}
	return s
}

// FromSnapshot builds an offline catalog from a snapshot. Tables missing
// from the snapshot cannot be loaded later.
func FromSnapshot(info dialect.Info, snap *Snapshot, opts ...Option) (*Catalog, error) {
	if snap.Dialect != info.Name() {
		return nil, typeddal.NewContractError(fmt.Sprintf("snapshot of dialect %s cannot be read as %s", snap.Dialect, info.Name()), nil)
	}
	c := New(info, nil, opts...)
	for _, ts := range snap.Tables {
		rows, err := ts.RawColumns()
		if err != nil {
			return nil, err
		}
		t, err := schema.NewTable(info, ts.Name, rows, c.tableOptions(ts.Name)...)
		if err != nil {
			return nil, err
		}
		c.tables[ts.Name] = t
		c.rows[ts.Name] = rows
	}
	return c, nil
}

// Encode serializes the snapshot.
func (s *Snapshot) Encode(f Format) ([]byte, error) {
	if f == YAML {
		b, err := yaml.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("catalog: encode snapshot: %w", err)
		}
		return b, nil
	}
	return encodeMsgpack(s)
}

// DecodeSnapshot parses a snapshot produced by Encode.
func DecodeSnapshot(b []byte, f Format) (*Snapshot, error) {
	s := &Snapshot{}
	if f == YAML {
		if err := yaml.Unmarshal(b, s); err != nil {
			return nil, fmt.Errorf("catalog: decode snapshot: %w", err)
		}
		return s, nil
	}
	if err := decodeMsgpack(b, s); err != nil {
		return nil, err
	}
	return s, nil
}

// WriteFile writes the snapshot in the format implied by the extension.
func (s *Snapshot) WriteFile(path string) error {
	b, err := s.Encode(FormatOf(path))
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// ReadSnapshot reads a snapshot written by WriteFile.
func ReadSnapshot(path string) (*Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read snapshot: %w", err)
	}
	return DecodeSnapshot(b, FormatOf(path))
}

func encodeMsgpack(v any) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("catalog: encode snapshot: %w", err)
	}
	return b, nil
}

func decodeMsgpack(b []byte, v any) error {
	if err := msgpack.Unmarshal(b, v); err != nil {
		return fmt.Errorf("catalog: decode snapshot: %w", err)
	}
	return nil
}

func sortedNames(m map[string][]dialect.RawColumn) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
