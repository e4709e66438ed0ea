package sql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/typeddal/dialect"
	"github.com/syssam/typeddal/dialect/sqlite"
)

func TestSQLite(t *testing.T) {
	conn, err := Open(sqlite.New(":memory:"))
	require.NoError(t, err)
	defer conn.Close()
	conn.DB().SetMaxOpenConns(1)
	ctx := context.Background()

	_, err = conn.ExecCommand(ctx, &dialect.Command{Text: `CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		age INTEGER
	)`})
	require.NoError(t, err)

	id, err := NewInsert("users").
		AddColumnModification(NewColumnValue("name", "a8m")).
		AddColumnModification(NewColumnValue("age", 30)).
		Execute(ctx, conn)
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)

	id, err = NewInsert("users").Execute(ctx, conn)
	require.NoError(t, err)
	assert.EqualValues(t, 2, id)

	n, err := NewUpdate("users").
		AddColumnModification(NewColumnValue("name", "nati")).
		AddColumnModification(NewColumnValue("age", nil)).
		AddCondition(EQ("id", 1)).
		Execute(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	name, err := conn.QueryScalar(ctx, &dialect.Command{Text: "SELECT name FROM users WHERE id = 1 AND age IS NULL"})
	require.NoError(t, err)
	assert.Equal(t, "nati", name)

	n, err = NewUpdate("users").
		AddColumnModification(NewColumnValue("age", 1)).
		AddCondition(In("id", 1, 2)).
		AddCondition(GT("id", 0)).
		Execute(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = NewDelete("users").AddCondition(In("id")).Execute(ctx, conn)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = NewDelete("users").AddCondition(Like("name", "n%")).Execute(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
