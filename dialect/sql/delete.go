package sql

import (
	"context"
	"strings"

	"github.com/syssam/typeddal"
	"github.com/syssam/typeddal/dialect"
)

// InlineDelete accumulates conditions and executes a single DELETE
// statement. It is not safe for concurrent use.
type InlineDelete struct {
	table      string
	cfg        commandConfig
	conditions []Condition
}

// NewDelete returns a delete from the given table.
func NewDelete(table string, opts ...CommandOption) *InlineDelete {
	return &InlineDelete{table: table, cfg: newCommandConfig(opts)}
}

// AddCondition adds a WHERE term.
func (d *InlineDelete) AddCondition(c Condition) *InlineDelete {
	d.conditions = append(d.conditions, c)
	return d
}

// Command builds the native command. A delete without conditions is
// rejected.
func (d *InlineDelete) Command(info dialect.Info) (*dialect.Command, error) {
	if len(d.conditions) == 0 {
		return nil, typeddal.NewContractError("executing an inline delete command with no parameters in the where clause is not allowed", nil)
	}
	cmd := info.NewCommand(d.cfg.timeout)
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(d.table)
	if err := writeWhere(cmd, &sb, info, d.conditions, 0); err != nil {
		return nil, err
	}
	cmd.Text = sb.String()
	return cmd, nil
}

// Execute runs the delete and returns the number of affected rows.
func (d *InlineDelete) Execute(ctx context.Context, ex Execer) (int64, error) {
	cmd, err := d.Command(ex.Info())
	if err != nil {
		return 0, err
	}
	return ex.ExecCommand(ctx, cmd)
}
