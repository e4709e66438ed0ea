package schema

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/typeddal"
	"github.com/syssam/typeddal/dialect/sqlite"
)

func TestSQLiteTables(t *testing.T) {
	info := sqlite.New(":memory:")
	db, err := info.OpenDB()
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	ctx := context.Background()

	_, err = db.ExecContext(ctx, `CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		name VARCHAR(80) NOT NULL,
		balance DECIMAL(10,2),
		avatar BLOB
	)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)`)
	require.NoError(t, err)

	t.Run("LoadTable", func(t *testing.T) {
		tbl, err := LoadTable(ctx, info.Inspector(db), info, "users")
		require.NoError(t, err)
		require.Len(t, tbl.Columns(), 4)
		id := tbl.IdentityColumn()
		require.NotNil(t, id)
		assert.Equal(t, "id", id.Name())
		assert.Equal(t, "int64", id.DataTypeName())
		assert.Equal(t, []string{"id"}, columnNames(tbl.KeyColumns()))
		assert.Equal(t, []string{"name", "balance", "avatar"}, columnNames(tbl.DataColumns()))
		assert.Equal(t, "*decimal.Decimal", tbl.Column("balance").NullableDataTypeName())
		assert.Equal(t, "[]byte", tbl.Column("avatar").NullableDataTypeName())
		assert.Equal(t, 80, tbl.Column("name").Size())
	})

	t.Run("NullableText", func(t *testing.T) {
		_, err := LoadTable(ctx, info.Inspector(db), info, "notes")
		require.Error(t, err)
		assert.True(t, typeddal.IsUserCorrectable(err))
		assert.Contains(t, err.Error(), "string column body allows null")

		tbl, err := LoadTable(ctx, info.Inspector(db), info, "notes", WithLegacySchema())
		require.NoError(t, err)
		assert.True(t, tbl.Column("body").AllowsNull())
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := LoadTable(ctx, info.Inspector(db), info, "missing")
		require.Error(t, err)
		assert.True(t, typeddal.IsUserCorrectable(err))
	})

	t.Run("QueryColumns", func(t *testing.T) {
		cols, err := QueryColumns(ctx, db, info, "SELECT id, name AS title FROM users WHERE 1 = 0")
		require.NoError(t, err)
		require.Len(t, cols, 2)
		assert.Equal(t, 0, cols[0].Ordinal())
		assert.Equal(t, "title", cols[1].Name())
		assert.Equal(t, 1, cols[1].Ordinal())
		assert.False(t, cols[1].HasKeyInfo())
	})
}
