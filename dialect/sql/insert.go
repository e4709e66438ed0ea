package sql

import (
	"context"
	"errors"
	"strings"

	"github.com/syssam/typeddal/dialect"
)

// InlineInsert accumulates column values and executes a single INSERT
// statement. It is not safe for concurrent use.
type InlineInsert struct {
	table  string
	cfg    commandConfig
	values []ColumnValue
}

// NewInsert returns an insert into the given table.
func NewInsert(table string, opts ...CommandOption) *InlineInsert {
	return &InlineInsert{table: table, cfg: newCommandConfig(opts)}
}

// AddColumnModification adds a column value.
func (in *InlineInsert) AddColumnModification(cv ColumnValue) *InlineInsert {
	in.values = append(in.values, cv)
	return in
}

// Command builds the native command. An insert without values uses the
// dialect's empty insert form, or DEFAULT VALUES.
func (in *InlineInsert) Command(info dialect.Info) (*dialect.Command, error) {
	cmd := info.NewCommand(in.cfg.timeout)
	if len(in.values) == 0 {
		if ei, ok := info.(dialect.EmptyInserter); ok {
			cmd.Text = ei.EmptyInsert(in.table)
		} else {
			cmd.Text = "INSERT INTO " + in.table + " DEFAULT VALUES"
		}
		return cmd, nil
	}
	var cols, vals strings.Builder
	for i, v := range in.values {
		if i > 0 {
			cols.WriteString(", ")
			vals.WriteString(", ")
		}
		p, err := v.Parameter(info, paramName(i))
		if err != nil {
			return nil, err
		}
		cols.WriteString(v.Column)
		vals.WriteString(cmd.AddParameter(info, p))
	}
	cmd.Text = "INSERT INTO " + in.table + "( " + cols.String() + " ) VALUES( " + vals.String() + " )"
	return cmd, nil
}

// Execute runs the insert. When the dialect can select the last generated
// identity, Execute returns it; otherwise it returns nil. Both statements
// run on the same session.
func (in *InlineInsert) Execute(ctx context.Context, ex Execer) (_ any, rerr error) {
	info := ex.Info()
	cmd, err := in.Command(info)
	if err != nil {
		return nil, err
	}
	expr := info.LastAutoIncrementValueExpression()
	if expr == "" {
		_, err := ex.ExecCommand(ctx, cmd)
		return nil, err
	}
	if s, ok := ex.(Sessioner); ok {
		session, release, err := s.Session(ctx)
		if err != nil {
			return nil, err
		}
		defer func() { rerr = errors.Join(rerr, release()) }()
		ex = session
	}
	if _, err := ex.ExecCommand(ctx, cmd); err != nil {
		return nil, err
	}
	id := info.NewCommand(in.cfg.timeout)
	id.Text = "SELECT " + expr
	return ex.QueryScalar(ctx, id)
}
