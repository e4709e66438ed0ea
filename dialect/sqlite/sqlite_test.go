package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/typeddal/dialect"
)

func TestDialect(t *testing.T) {
	d := New("file::memory:")
	assert.Equal(t, dialect.SQLite, d.Name())
	assert.Equal(t, "@p0", d.Placeholder("p0", 0))
	assert.Equal(t, "last_insert_rowid()", d.LastAutoIncrementValueExpression())
	assert.Equal(t, 0, d.OrdinalBase())
	assert.Equal(t, dialect.FlagIsAutoIncrement, d.IdentityFlag())
}

func TestTypes(t *testing.T) {
	d := New("")
	tests := []struct {
		declared string
		goType   any
	}{
		{"INTEGER", dialect.TypeInt64},
		{"BIGINT", dialect.TypeInt64},
		{"VARCHAR(50)", dialect.TypeString},
		{"TEXT", dialect.TypeString},
		{"BLOB", dialect.TypeBytes},
		{"", dialect.TypeBytes},
		{"REAL", dialect.TypeFloat64},
		{"DOUBLE PRECISION", dialect.TypeFloat64},
		{"BOOLEAN", dialect.TypeBool},
		{"DATETIME", dialect.TypeTime},
		{"DECIMAL(10,2)", dialect.TypeDecimal},
		{"UUID", dialect.TypeUUID},
		{"JSON", dialect.TypeJSON},
	}
	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			assert.Equal(t, tt.goType, d.GoType(d.DbTypeString(tt.declared)))
		})
	}
}

func TestInspectorColumns(t *testing.T) {
	d := New(":memory:")
	db, err := d.OpenDB()
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	ctx := context.Background()

	_, err = db.ExecContext(ctx, `CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		name VARCHAR(80) NOT NULL,
		bio TEXT,
		avatar BLOB
	)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `CREATE TABLE memberships (
		user_id INTEGER NOT NULL,
		group_id INTEGER NOT NULL,
		PRIMARY KEY (user_id, group_id)
	)`)
	require.NoError(t, err)

	t.Run("RowidKey", func(t *testing.T) {
		rows, err := d.Inspector(db).Columns(ctx, "users", true)
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, 0, rows[0].ColumnOrdinal)
		assert.Equal(t, "id", rows[0].ColumnName)
		assert.True(t, rows[0].IsKey)
		assert.False(t, rows[0].AllowDBNull)
		assert.Equal(t, true, rows[0].Flags[dialect.FlagIsAutoIncrement])
		assert.Equal(t, 80, rows[1].ColumnSize)
		assert.False(t, rows[1].AllowDBNull)
		assert.True(t, rows[2].AllowDBNull)
		assert.Equal(t, false, rows[2].Flags[dialect.FlagIsAutoIncrement])
	})

	t.Run("CompositeKey", func(t *testing.T) {
		rows, err := d.Inspector(db).Columns(ctx, "memberships", true)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		for _, r := range rows {
			assert.True(t, r.IsKey)
			assert.Equal(t, false, r.Flags[dialect.FlagIsAutoIncrement])
		}
	})

	t.Run("WithoutKeyInfo", func(t *testing.T) {
		rows, err := d.Inspector(db).Columns(ctx, "users", false)
		require.NoError(t, err)
		assert.False(t, rows[0].IsKey)
		assert.Nil(t, rows[0].Flags)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := d.Inspector(db).Columns(ctx, "missing", true)
		assert.ErrorIs(t, err, dialect.ErrTableNotFound)
	})
}
