package sql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/typeddal"
	"github.com/syssam/typeddal/dialect"
	"github.com/syssam/typeddal/dialect/mysql"
	"github.com/syssam/typeddal/dialect/postgres"
)

func TestWithVars(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	conn := NewConn(postgres.New(""), db)
	cmd := &dialect.Command{Text: "UPDATE t SET a = 1 WHERE id = 2"}

	mock.ExpectExec("SET foo = 'bar'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE t SET a = 1 WHERE id = 2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("RESET foo").WillReturnResult(sqlmock.NewResult(0, 0))
	n, err := conn.ExecCommand(WithVar(context.Background(), "foo", "bar"), cmd)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectExec("SET foo = 'bar'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET foo = 'baz'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("RESET foo").WillReturnResult(sqlmock.NewResult(0, 0))
	v, err := conn.QueryScalar(
		WithVar(WithVar(context.Background(), "foo", "bar"), "foo", "baz"),
		&dialect.Command{Text: "SELECT 1"},
	)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithVarsMySQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	conn := NewConn(mysql.New(""), db)

	mock.ExpectExec("SET tenant = 'o''brien'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM t").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("SET tenant = NULL").WillReturnResult(sqlmock.NewResult(0, 0))
	n, err := conn.ExecCommand(WithVar(context.Background(), "tenant", "o'brien"), &dialect.Command{Text: "DELETE FROM t"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = conn.ExecCommand(WithVar(context.Background(), "a; DROP TABLE t", "x"), &dialect.Command{Text: "DELETE FROM t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session variable name")
}

func TestVarFromContext(t *testing.T) {
	ctx := WithIntVar(WithVar(context.Background(), "a", "1"), "a", 2)
	v, ok := VarFromContext(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "2", v)
	_, ok = VarFromContext(ctx, "b")
	assert.False(t, ok)
}

func TestEscapeStringValue(t *testing.T) {
	assert.Equal(t, "plain", escapeStringValue("plain"))
	assert.Equal(t, "o''brien", escapeStringValue("o'brien"))
	assert.Equal(t, `a\\b`, escapeStringValue(`a\b`))
	assert.True(t, isValidIdentifier("search_path"))
	assert.True(t, isValidIdentifier("app.tenant"))
	assert.False(t, isValidIdentifier("a; DROP TABLE t"))
	assert.False(t, isValidIdentifier(""))
}

func TestQueryScalarNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	conn := NewConn(postgres.New(""), db)

	mock.ExpectQuery("SELECT lastval()").WillReturnRows(sqlmock.NewRows([]string{"lastval"}))
	v, err := conn.QueryScalar(context.Background(), &dialect.Command{Text: "SELECT lastval()"})
	require.NoError(t, err)
	assert.Nil(t, v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommandTimeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	conn := NewConn(postgres.New(""), db)

	mock.ExpectExec("UPDATE t").WillDelayFor(time.Second).WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = conn.ExecCommand(context.Background(), &dialect.Command{Text: "UPDATE t", Timeout: 10 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, typeddal.IsContractViolation(err))
}

func TestSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	conn := NewConn(postgres.New(""), db)

	session, release, err := conn.Session(context.Background())
	require.NoError(t, err)
	mock.ExpectExec("DELETE FROM t").WillReturnResult(sqlmock.NewResult(0, 2))
	n, err := session.ExecCommand(context.Background(), &dialect.Command{Text: "DELETE FROM t"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, release())
	require.NoError(t, mock.ExpectationsWereMet())
}
