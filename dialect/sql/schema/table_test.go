package schema

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/syssam/typeddal"
	"github.com/syssam/typeddal/dialect"
	"github.com/syssam/typeddal/dialect/oracle"
	"github.com/syssam/typeddal/dialect/sqlserver"
)

type tableCase struct {
	Name            string `yaml:"name"`
	Dialect         string `yaml:"dialect"`
	Table           string `yaml:"table"`
	Legacy          bool   `yaml:"legacy"`
	RevisionHistory bool   `yaml:"revision_history"`
	Columns         []struct {
		Ordinal  int            `yaml:"ordinal"`
		Name     string         `yaml:"name"`
		Type     string         `yaml:"type"`
		Size     int            `yaml:"size"`
		Nullable bool           `yaml:"nullable"`
		Key      bool           `yaml:"key"`
		Flags    map[string]any `yaml:"flags"`
	} `yaml:"columns"`
	Want struct {
		Keys                        []string `yaml:"keys"`
		Identity                    string   `yaml:"identity"`
		RowVersion                  string   `yaml:"row_version"`
		RevisionID                  string   `yaml:"revision_id"`
		ExceptRowVersion            []string `yaml:"except_row_version"`
		NonIdentityExceptRowVersion []string `yaml:"non_identity_except_row_version"`
		Data                        []string `yaml:"data"`
		Error                       string   `yaml:"error"`
		Message                     string   `yaml:"message"`
	} `yaml:"want"`
}

func (tc tableCase) info() dialect.Info {
	if tc.Dialect == dialect.Oracle {
		return oracle.New("")
	}
	return sqlserver.New("")
}

func (tc tableCase) rows() []dialect.RawColumn {
	rows := make([]dialect.RawColumn, len(tc.Columns))
	for i, c := range tc.Columns {
		rows[i] = dialect.RawColumn{
			ColumnOrdinal: c.Ordinal,
			ColumnName:    c.Name,
			ProviderType:  c.Type,
			ColumnSize:    c.Size,
			AllowDBNull:   c.Nullable,
			IsKey:         c.Key,
			Flags:         c.Flags,
		}
	}
	return rows
}

func (tc tableCase) options() []TableOption {
	var opts []TableOption
	if tc.Legacy {
		opts = append(opts, WithLegacySchema())
	}
	if tc.RevisionHistory {
		opts = append(opts, ForRevisionHistory())
	}
	return opts
}

func names(cs []*Column) []string {
	if len(cs) == 0 {
		return nil
	}
	return columnNames(cs)
}

func name(c *Column) string {
	if c == nil {
		return ""
	}
	return c.Name()
}

func TestNewTable(t *testing.T) {
	data, err := os.ReadFile("testdata/tables.yaml")
	require.NoError(t, err)
	var cases []tableCase
	require.NoError(t, yaml.Unmarshal(data, &cases))
	require.NotEmpty(t, cases)

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			tbl, err := NewTable(tc.info(), tc.Table, tc.rows(), tc.options()...)
			switch tc.Want.Error {
			case "user":
				require.Error(t, err)
				assert.Nil(t, tbl)
				assert.True(t, typeddal.IsUserCorrectable(err), "want user-correctable error, got %v", err)
				assert.Contains(t, err.Error(), "there was a problem getting columns for table "+tc.Table)
				assert.Contains(t, err.Error(), tc.Want.Message)
				return
			case "contract":
				require.Error(t, err)
				assert.Nil(t, tbl)
				assert.True(t, typeddal.IsContractViolation(err), "want contract error, got %v", err)
				assert.False(t, typeddal.IsUserCorrectable(err))
				assert.Contains(t, err.Error(), "an error occurred while getting columns for table "+tc.Table)
				assert.Contains(t, err.Error(), tc.Want.Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.Table, tbl.Name())
			assert.Len(t, tbl.Columns(), len(tc.Columns))
			assert.Equal(t, tc.Want.Keys, names(tbl.KeyColumns()))
			assert.Equal(t, tc.Want.Identity, name(tbl.IdentityColumn()))
			assert.Equal(t, tc.Want.RowVersion, name(tbl.RowVersionColumn()))
			assert.Equal(t, tc.Want.RevisionID, name(tbl.PrimaryKeyAndRevisionIDColumn()))
			assert.Equal(t, tc.Want.ExceptRowVersion, names(tbl.AllColumnsExceptRowVersion()))
			assert.Equal(t, tc.Want.NonIdentityExceptRowVersion, names(tbl.AllNonIdentityColumnsExceptRowVersion()))
			assert.Equal(t, tc.Want.Data, names(tbl.DataColumns()))
			for i, c := range tbl.Columns() {
				assert.Equal(t, i, c.Ordinal(), "ordinals are 0-based in schema order")
			}
		})
	}
}

func TestTableAccessorsReturnCopies(t *testing.T) {
	tbl, err := NewTable(sqlserver.New(""), "t", []dialect.RawColumn{
		{ColumnOrdinal: 0, ColumnName: "a", ProviderType: "int", IsKey: true},
		{ColumnOrdinal: 1, ColumnName: "b", ProviderType: "int", IsKey: true},
	})
	require.NoError(t, err)
	cols := tbl.Columns()
	cols[0] = nil
	keys := tbl.KeyColumns()
	keys[1] = nil
	assert.Equal(t, "a", tbl.Columns()[0].Name())
	assert.Equal(t, "b", tbl.KeyColumns()[1].Name())
	assert.Equal(t, "b", tbl.Column("b").Name())
	assert.Nil(t, tbl.Column("missing"))
}

func TestWithLegacyPrefixes(t *testing.T) {
	rows := []dialect.RawColumn{
		{ColumnOrdinal: 0, ColumnName: "id", ProviderType: "int", IsKey: true},
		{ColumnOrdinal: 1, ColumnName: "note", ProviderType: "nvarchar", AllowDBNull: true},
	}
	_, err := NewTable(sqlserver.New(""), "old_notes", rows)
	require.Error(t, err)
	_, err = NewTable(sqlserver.New(""), "old_notes", rows, WithLegacyPrefixes("old_"))
	require.NoError(t, err)
	_, err = NewTable(sqlserver.New(""), "aspnet_notes", rows, WithLegacyPrefixes("old_"))
	require.Error(t, err, "custom prefixes replace the defaults")
}

type fakeInspector struct {
	rows []dialect.RawColumn
	err  error
	keys []bool
}

func (f *fakeInspector) Columns(_ context.Context, _ string, keyInfo bool) ([]dialect.RawColumn, error) {
	f.keys = append(f.keys, keyInfo)
	return f.rows, f.err
}

func TestLoadTable(t *testing.T) {
	ctx := context.Background()
	t.Run("KeyInfoRequested", func(t *testing.T) {
		insp := &fakeInspector{rows: []dialect.RawColumn{
			{ColumnOrdinal: 0, ColumnName: "id", ProviderType: "int", IsKey: true},
		}}
		tbl, err := LoadTable(ctx, insp, sqlserver.New(""), "t")
		require.NoError(t, err)
		assert.Equal(t, []bool{true}, insp.keys)
		assert.True(t, tbl.Columns()[0].IsKey())
	})
	t.Run("NotFound", func(t *testing.T) {
		_, err := LoadTable(ctx, &fakeInspector{err: dialect.ErrTableNotFound}, sqlserver.New(""), "t")
		assert.True(t, typeddal.IsUserCorrectable(err))
		assert.ErrorIs(t, err, dialect.ErrTableNotFound)
	})
	t.Run("DriverFailure", func(t *testing.T) {
		cause := errors.New("connection reset")
		_, err := LoadTable(ctx, &fakeInspector{err: cause}, sqlserver.New(""), "t")
		assert.True(t, typeddal.IsContractViolation(err))
		assert.ErrorIs(t, err, cause)
		assert.EqualError(t, err, "typeddal: an error occurred while getting columns for table t: connection reset")
	})
}

func TestNewTableFatalShapes(t *testing.T) {
	info := sqlserver.New("")
	tests := []struct {
		name string
		rows []dialect.RawColumn
		opts []TableOption
		want string
	}{
		{
			name: "NoKey",
			rows: []dialect.RawColumn{{ColumnName: "n", ProviderType: "int"}},
			want: "typeddal: an error occurred while getting columns for table logs: the table must contain a primary key or other means of uniquely identifying a row",
		},
		{
			name: "RevisionHistoryCompositeKey",
			rows: []dialect.RawColumn{
				{ColumnName: "revision_id", ProviderType: "int", IsKey: true},
				{ColumnOrdinal: 1, ColumnName: "lang", ProviderType: "nchar", IsKey: true},
			},
			opts: []TableOption{ForRevisionHistory()},
			want: "typeddal: an error occurred while getting columns for table logs: a revision history modification class can only be created for tables with exactly one primary key column, which is assumed to also be a foreign key to the revisions table",
		},
		{
			name: "RevisionHistoryIdentityKey",
			rows: []dialect.RawColumn{
				{ColumnName: "revision_id", ProviderType: "int", IsKey: true, Flags: map[string]any{dialect.FlagIsIdentity: true}},
			},
			opts: []TableOption{ForRevisionHistory()},
			want: "typeddal: an error occurred while getting columns for table logs: the revision ID column of a revision history table must not be an identity",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := NewTable(info, "logs", tt.rows, tt.opts...)
			require.Error(t, err)
			assert.Nil(t, tbl)
			assert.True(t, typeddal.IsContractViolation(err))
			assert.False(t, typeddal.IsUserCorrectable(err))
			assert.EqualError(t, err, tt.want)
		})
	}
}
