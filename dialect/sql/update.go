package sql

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/typeddal"
	"github.com/syssam/typeddal/dialect"
)

// CommandOption configures an inline command.
type CommandOption func(*commandConfig)

type commandConfig struct {
	timeout time.Duration
}

// WithTimeout sets the command timeout. Zero means no timeout.
func WithTimeout(d time.Duration) CommandOption {
	return func(c *commandConfig) {
		c.timeout = d
	}
}

func newCommandConfig(opts []CommandOption) commandConfig {
	var cfg commandConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// paramName returns the parameter name for a number unique to its command.
func paramName(n int) string { return "p" + strconv.Itoa(n) }

// InlineUpdate accumulates column modifications and conditions and executes
// a single UPDATE statement. It is not safe for concurrent use.
type InlineUpdate struct {
	table         string
	cfg           commandConfig
	modifications []ColumnValue
	conditions    []Condition
}

// NewUpdate returns an update of the given table.
func NewUpdate(table string, opts ...CommandOption) *InlineUpdate {
	return &InlineUpdate{table: table, cfg: newCommandConfig(opts)}
}

// AddColumnModification adds a SET term.
func (u *InlineUpdate) AddColumnModification(cv ColumnValue) *InlineUpdate {
	u.modifications = append(u.modifications, cv)
	return u
}

// AddCondition adds a WHERE term.
func (u *InlineUpdate) AddCondition(c Condition) *InlineUpdate {
	u.conditions = append(u.conditions, c)
	return u
}

// Command builds the native command. It returns nil when there are no
// modifications and fails when there are modifications but no conditions.
func (u *InlineUpdate) Command(info dialect.Info) (*dialect.Command, error) {
	if len(u.modifications) == 0 {
		return nil, nil
	}
	if len(u.conditions) == 0 {
		return nil, typeddal.NewContractError("executing an inline update command with no parameters in the where clause is not allowed", nil)
	}
	cmd := info.NewCommand(u.cfg.timeout)
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(u.table)
	sb.WriteString(" SET ")
	n := 0
	for i, m := range u.modifications {
		if i > 0 {
			sb.WriteString(", ")
		}
		p, err := m.Parameter(info, paramName(n))
		if err != nil {
			return nil, err
		}
		n++
		sb.WriteString(m.Column)
		sb.WriteString(" = ")
		sb.WriteString(cmd.AddParameter(info, p))
	}
	if err := writeWhere(cmd, &sb, info, u.conditions, n); err != nil {
		return nil, err
	}
	cmd.Text = sb.String()
	return cmd, nil
}

// Execute runs the update and returns the number of affected rows. An
// update without modifications returns 0 without touching the database.
func (u *InlineUpdate) Execute(ctx context.Context, ex Execer) (int64, error) {
	cmd, err := u.Command(ex.Info())
	if err != nil || cmd == nil {
		return 0, err
	}
	return ex.ExecCommand(ctx, cmd)
}

// writeWhere appends the WHERE clause, numbering the condition parameters
// from next onwards.
func writeWhere(cmd *dialect.Command, sb *strings.Builder, info dialect.Info, conditions []Condition, next int) error {
	sb.WriteString(" WHERE ")
	for i, c := range conditions {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		if err := c.AddToCommand(cmd, sb, info, paramName(next+i)); err != nil {
			return err
		}
	}
	return nil
}
