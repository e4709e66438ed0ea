package mysql

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/typeddal/dialect"
)

func TestDialect(t *testing.T) {
	d := New("root:pass@tcp(localhost:3306)/shop")
	assert.Equal(t, dialect.MySQL, d.Name())
	assert.Equal(t, "shop", d.schema)
	assert.Equal(t, "?", d.ParameterPrefix())
	assert.Equal(t, "?", d.Placeholder("p4", 4))
	assert.Equal(t, "LAST_INSERT_ID()", d.LastAutoIncrementValueExpression())
	assert.Equal(t, "SQL_CACHE", d.QueryCacheHint())
	assert.Equal(t, 1, d.OrdinalBase())
	assert.Equal(t, dialect.FlagIsAutoIncrement, d.IdentityFlag())
	assert.Empty(t, d.RowVersionFlag())
	assert.Equal(t, 7, d.Arg(d.NewParameter("p0", 7)))
	assert.Equal(t, "INSERT INTO t () VALUES ()", d.EmptyInsert("t"))

	db, err := d.OpenDB()
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = New("::not a dsn").OpenDB()
	assert.Error(t, err)
}

func TestTypes(t *testing.T) {
	d := New("")
	tests := []struct {
		provider string
		goType   any
	}{
		{"int(11)", dialect.TypeInt32},
		{"int(10) unsigned", dialect.TypeUint32},
		{"bigint(20)", dialect.TypeInt64},
		{"tinyint(1)", dialect.TypeBool},
		{"tinyint(4)", dialect.TypeInt8},
		{"varchar(255)", dialect.TypeString},
		{"decimal(10,2)", dialect.TypeDecimal},
		{"datetime", dialect.TypeTime},
		{"json", dialect.TypeJSON},
		{"blob", dialect.TypeBytes},
		{"enum('a','b')", dialect.TypeString},
		{"double", dialect.TypeFloat64},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			assert.Equal(t, tt.goType, d.GoType(d.DbTypeString(tt.provider)))
		})
	}
	assert.Equal(t, "int(10) unsigned", d.DbTypeString(" INT(10) UNSIGNED "))
}

func TestInspectorColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"ORDINAL_POSITION", "COLUMN_NAME", "COLUMN_TYPE", "SIZE", "IS_NULLABLE", "COLUMN_KEY", "EXTRA"}
	mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).
		WithArgs("shop", "users").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "id", "int(11)", 10, "NO", "PRI", "auto_increment").
			AddRow(2, "email", "varchar(255)", 255, "NO", "UNI", "").
			AddRow(3, "bio", "longtext", int64(4294967295), "YES", "", ""))

	rows, err := New("root@/shop").Inspector(db).Columns(context.Background(), "users", true)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[0].ColumnOrdinal)
	assert.True(t, rows[0].IsKey)
	assert.Equal(t, true, rows[0].Flags[dialect.FlagIsAutoIncrement])
	assert.False(t, rows[1].IsKey)
	assert.Equal(t, false, rows[1].Flags[dialect.FlagIsAutoIncrement])
	assert.True(t, rows[2].AllowDBNull)
	assert.Equal(t, 2147483647, rows[2].ColumnSize)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInspectorWithoutKeyInfo(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).
		WithArgs("other", "users").
		WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c", "d", "e", "f", "g"}).
			AddRow(1, "id", "int(11)", 10, "NO", "PRI", "auto_increment"))

	rows, err := New("root@/shop").Inspector(db).Columns(context.Background(), "other.users", false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsKey)
	assert.Nil(t, rows[0].Flags)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInspectorQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).WillReturnError(errors.New("connection refused"))
	_, err = New("").Inspector(db).Columns(context.Background(), "users", true)
	assert.ErrorContains(t, err, "dialect/mysql: querying columns: connection refused")
}
