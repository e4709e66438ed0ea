package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/typeddal"
	"github.com/syssam/typeddal/dialect"
)

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores, dots for schema.name)
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// isValidIdentifier checks if the string is a valid SQL identifier.
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// escapeStringValue escapes a string value for safe use in SQL.
// It escapes both single quotes (by doubling) and backslashes (for MySQL compatibility).
func escapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Execer executes native commands for one dialect.
type Execer interface {
	// Info returns the dialect the commands are built for.
	Info() dialect.Info
	// ExecCommand executes a non-query command and returns the number of
	// affected rows.
	ExecCommand(ctx context.Context, cmd *dialect.Command) (int64, error)
	// QueryScalar executes a command and returns the first column of the
	// first row, or nil when there are no rows.
	QueryScalar(ctx context.Context, cmd *dialect.Command) (any, error)
}

// Sessioner is implemented by executors able to pin a single database
// session, for statement sequences that depend on session state.
type Sessioner interface {
	Session(ctx context.Context) (Execer, func() error, error)
}

// Conn implements Execer given an ExecQuerier.
type Conn struct {
	ExecQuerier
	info dialect.Info
}

// NewConn returns an executor running commands of the given dialect on eq.
func NewConn(info dialect.Info, eq ExecQuerier) *Conn {
	return &Conn{ExecQuerier: eq, info: info}
}

// Open opens the dialect's database and wraps it with a Conn.
func Open(info dialect.Info) (*Conn, error) {
	db, err := info.OpenDB()
	if err != nil {
		return nil, err
	}
	return NewConn(info, db), nil
}

// Info implements Execer.
func (c *Conn) Info() dialect.Info { return c.info }

// DB returns the underlying *sql.DB instance, or nil when c does not wrap
// a connection pool.
func (c *Conn) DB() *sql.DB {
	db, _ := c.ExecQuerier.(*sql.DB)
	return db
}

// Close closes the underlying connection pool, if any.
func (c *Conn) Close() error {
	if db := c.DB(); db != nil {
		return db.Close()
	}
	return nil
}

// Session implements Sessioner. Conns not backed by a pool are returned
// as is.
func (c *Conn) Session(ctx context.Context) (Execer, func() error, error) {
	db := c.DB()
	if db == nil {
		return c, func() error { return nil }, nil
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, nil, typeddal.NewContractError("acquiring a database session", err)
	}
	return NewConn(c.info, conn), conn.Close, nil
}

// ExecCommand implements Execer.
func (c *Conn) ExecCommand(ctx context.Context, cmd *dialect.Command) (n int64, rerr error) {
	ctx, cancel := withCommandTimeout(ctx, cmd)
	defer cancel()
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return 0, commandError(cmd, fmt.Errorf("set session vars: %w", err))
	}
	if cf != nil {
		defer func() { rerr = errors.Join(rerr, cf()) }()
	}
	res, err := ex.ExecContext(ctx, cmd.Text, cmd.Args(c.info)...)
	if err != nil {
		return 0, commandError(cmd, err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return 0, commandError(cmd, fmt.Errorf("rows affected: %w", err))
	}
	return n, nil
}

// QueryScalar implements Execer.
func (c *Conn) QueryScalar(ctx context.Context, cmd *dialect.Command) (v any, rerr error) {
	ctx, cancel := withCommandTimeout(ctx, cmd)
	defer cancel()
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return nil, commandError(cmd, fmt.Errorf("set session vars: %w", err))
	}
	if cf != nil {
		defer func() { rerr = errors.Join(rerr, cf()) }()
	}
	rows, err := ex.QueryContext(ctx, cmd.Text, cmd.Args(c.info)...)
	if err != nil {
		return nil, commandError(cmd, err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&v); err != nil {
			return nil, commandError(cmd, fmt.Errorf("scan: %w", err))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, commandError(cmd, err)
	}
	return v, nil
}

func withCommandTimeout(ctx context.Context, cmd *dialect.Command) (context.Context, context.CancelFunc) {
	if cmd.Timeout > 0 {
		return context.WithTimeout(ctx, cmd.Timeout)
	}
	return ctx, func() {}
}

func commandError(cmd *dialect.Command, err error) error {
	return typeddal.NewContractError(fmt.Sprintf("executing command %q", cmd.Text), err)
}

// ctxVarsKey is the key used for attaching and reading the context variables.
type ctxVarsKey struct{}

// sessionVars holds session variables to set before every command.
type sessionVars struct {
	vars []struct{ k, v string }
}

// WithVar returns a new context that holds the session variable to be set
// before every command.
func WithVar(ctx context.Context, name, value string) context.Context {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	vars := make([]struct{ k, v string }, len(sv.vars), len(sv.vars)+1)
	copy(vars, sv.vars)
	vars = append(vars, struct{ k, v string }{k: name, v: value})
	return context.WithValue(ctx, ctxVarsKey{}, sessionVars{vars: vars})
}

// VarFromContext returns the session variable value from the context.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	for i := len(sv.vars) - 1; i >= 0; i-- {
		if sv.vars[i].k == name {
			return sv.vars[i].v, true
		}
	}
	return "", false
}

// WithIntVar calls WithVar with the string representation of the value.
func WithIntVar(ctx context.Context, name string, value int) context.Context {
	return WithVar(ctx, name, strconv.Itoa(value))
}

// maySetVars sets the session variables before executing a command. The
// returned function releases the pinned connection and resets the
// variables.
func (c *Conn) maySetVars(ctx context.Context) (ExecQuerier, func() error, error) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	if len(sv.vars) == 0 {
		return c.ExecQuerier, nil, nil
	}
	var (
		ex    ExecQuerier  // Underlying ExecQuerier.
		cf    func() error // Close function.
		reset []string     // Reset variables.
		seen  = make(map[string]struct{}, len(sv.vars))
	)
	switch e := c.ExecQuerier.(type) {
	case *sql.Tx, *sql.Conn:
		ex = e
	case *sql.DB:
		conn, err := e.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		ex, cf = conn, conn.Close
	default:
		return nil, nil, fmt.Errorf("unsupported ExecQuerier type: %T", c.ExecQuerier)
	}
	for _, s := range sv.vars {
		if !isValidIdentifier(s.k) {
			if cf != nil {
				_ = cf()
			}
			return nil, nil, fmt.Errorf("invalid session variable name: %q", s.k)
		}
		if _, ok := seen[s.k]; !ok {
			switch c.info.Name() {
			case dialect.Postgres:
				reset = append(reset, fmt.Sprintf("RESET %s", s.k))
			case dialect.MySQL:
				reset = append(reset, fmt.Sprintf("SET %s = NULL", s.k))
			}
			seen[s.k] = struct{}{}
		}
		if _, err := ex.ExecContext(ctx, fmt.Sprintf("SET %s = '%s'", s.k, escapeStringValue(s.v))); err != nil {
			if cf != nil {
				err = errors.Join(err, cf())
			}
			return nil, nil, err
		}
	}
	// Pooled connections are cleaned up before they return to the pool,
	// even when the command context was canceled.
	if cls := cf; cf != nil && len(reset) > 0 {
		cf = func() error {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for _, q := range reset {
				if _, err := ex.ExecContext(cleanupCtx, q); err != nil {
					return errors.Join(err, cls())
				}
			}
			return cls()
		}
	}
	return ex, cf, nil
}

var (
	_ Execer    = (*Conn)(nil)
	_ Sessioner = (*Conn)(nil)
)
