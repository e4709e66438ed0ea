package sqlserver

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/typeddal/dialect"
)

func TestDialect(t *testing.T) {
	d := New("sqlserver://sa@localhost?database=shop")
	assert.Equal(t, dialect.SQLServer, d.Name())
	assert.Equal(t, "@", d.ParameterPrefix())
	assert.Equal(t, "@p2", d.Placeholder("p2", 2))
	assert.Equal(t, "SCOPE_IDENTITY()", d.LastAutoIncrementValueExpression())
	assert.Empty(t, d.QueryCacheHint())
	assert.Equal(t, 0, d.OrdinalBase())
	assert.Equal(t, dialect.FlagIsIdentity, d.IdentityFlag())
	assert.Equal(t, dialect.FlagIsRowVersion, d.RowVersionFlag())
	assert.False(t, d.EmptyStringIsNull())
	assert.Equal(t, sql.Named("p0", 1), d.Arg(d.NewParameter("p0", 1)))

	info, err := dialect.Open(dialect.SQLServer, "dsn")
	require.NoError(t, err)
	assert.IsType(t, &Dialect{}, info)
}

func TestTypes(t *testing.T) {
	d := New("")
	tests := []struct {
		provider string
		dbType   string
		goType   any
	}{
		{"int", "int", dialect.TypeInt32},
		{"BIGINT", "bigint", dialect.TypeInt64},
		{"tinyint", "tinyint", dialect.TypeUint8},
		{"bit", "bit", dialect.TypeBool},
		{"nvarchar(50)", "nvarchar", dialect.TypeString},
		{"money", "money", dialect.TypeDecimal},
		{"datetime2", "datetime2", dialect.TypeTime},
		{"rowversion", "rowversion", dialect.TypeBytes},
		{"uniqueidentifier", "uniqueidentifier", dialect.TypeUUID},
		{"real", "real", dialect.TypeFloat32},
		{"float", "float", dialect.TypeFloat64},
		{"sql_variant", "sql_variant", dialect.TypeAny},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			dbType := d.DbTypeString(tt.provider)
			assert.Equal(t, tt.dbType, dbType)
			assert.Equal(t, tt.goType, d.GoType(dbType))
		})
	}
}

func TestInspectorColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"ordinal", "name", "type", "size", "is_nullable", "is_identity", "is_row_version", "is_key"}
	mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).
		WithArgs(sql.Named("table", "dbo.orders")).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(0, "id", "int", 4, false, true, false, true).
			AddRow(1, "name", "nvarchar", 100, false, false, false, false).
			AddRow(2, "version", "timestamp", 8, false, false, true, false))

	rows, err := New("").Inspector(db).Columns(context.Background(), "dbo.orders", true)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 0, rows[0].ColumnOrdinal)
	assert.Equal(t, "id", rows[0].ColumnName)
	assert.True(t, rows[0].IsKey)
	assert.Equal(t, true, rows[0].Flags[dialect.FlagIsIdentity])
	assert.Equal(t, "nvarchar", rows[1].ProviderType)
	assert.Equal(t, 100, rows[1].ColumnSize)
	assert.Equal(t, true, rows[2].Flags[dialect.FlagIsRowVersion])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInspectorNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"ordinal"}))
	_, err = New("").Inspector(db).Columns(context.Background(), "missing", true)
	assert.ErrorIs(t, err, dialect.ErrTableNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
