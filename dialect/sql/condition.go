package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/typeddal"
	"github.com/syssam/typeddal/dialect"
)

// Condition is one term of a WHERE clause. AddToCommand appends the term's
// SQL text to sb and binds its parameters to cmd, naming them after
// paramName.
type Condition interface {
	AddToCommand(cmd *dialect.Command, sb *strings.Builder, info dialect.Info, paramName string) error
}

// Comparison operators.
const (
	OpEQ   = "="
	OpNEQ  = "<>"
	OpLT   = "<"
	OpLTE  = "<="
	OpGT   = ">"
	OpGTE  = ">="
	OpLike = "LIKE"
)

// Predicate compares a column with a single value.
type Predicate struct {
	Column string
	Op     string
	Value  ParameterValue
}

// EQ returns the condition `column = value`. A nil value renders IS NULL.
func EQ(column string, value any) *Predicate { return newPredicate(column, OpEQ, value) }

// NEQ returns the condition `column <> value`. A nil value renders IS NOT NULL.
func NEQ(column string, value any) *Predicate { return newPredicate(column, OpNEQ, value) }

// LT returns the condition `column < value`.
func LT(column string, value any) *Predicate { return newPredicate(column, OpLT, value) }

// LTE returns the condition `column <= value`.
func LTE(column string, value any) *Predicate { return newPredicate(column, OpLTE, value) }

// GT returns the condition `column > value`.
func GT(column string, value any) *Predicate { return newPredicate(column, OpGT, value) }

// GTE returns the condition `column >= value`.
func GTE(column string, value any) *Predicate { return newPredicate(column, OpGTE, value) }

// Like returns the condition `column LIKE pattern`.
func Like(column, pattern string) *Predicate { return newPredicate(column, OpLike, pattern) }

func newPredicate(column, op string, value any) *Predicate {
	return &Predicate{Column: column, Op: op, Value: ParameterValue{Value: value}}
}

// WithType sets the dialect type of the bound value.
func (p *Predicate) WithType(dbType string) *Predicate {
	p.Value.DBType = dbType
	return p
}

// AddToCommand implements Condition.
func (p *Predicate) AddToCommand(cmd *dialect.Command, sb *strings.Builder, info dialect.Info, paramName string) error {
	if p.Value.Value == nil {
		switch p.Op {
		case OpEQ:
			sb.WriteString(p.Column + " IS NULL")
		case OpNEQ:
			sb.WriteString(p.Column + " IS NOT NULL")
		default:
			return typeddal.NewContractError("comparing column "+p.Column+" with NULL using "+p.Op, nil)
		}
		return nil
	}
	param, err := p.Value.Parameter(info, paramName)
	if err != nil {
		return err
	}
	sb.WriteString(p.Column)
	sb.WriteString(" ")
	sb.WriteString(p.Op)
	sb.WriteString(" ")
	sb.WriteString(cmd.AddParameter(info, param))
	return nil
}

// InPredicate matches a column against a list of values.
type InPredicate struct {
	Column string
	Values []any
	DBType string
}

// In returns the condition `column IN (values...)`. An empty list matches
// no rows.
func In(column string, values ...any) *InPredicate {
	return &InPredicate{Column: column, Values: values}
}

// WithType sets the dialect type of the bound values.
func (p *InPredicate) WithType(dbType string) *InPredicate {
	p.DBType = dbType
	return p
}

// AddToCommand implements Condition. The list parameters are named
// paramName_0, paramName_1 and so on.
func (p *InPredicate) AddToCommand(cmd *dialect.Command, sb *strings.Builder, info dialect.Info, paramName string) error {
	if len(p.Values) == 0 {
		sb.WriteString("1 = 0")
		return nil
	}
	sb.WriteString(p.Column)
	sb.WriteString(" IN (")
	for i, v := range p.Values {
		if i > 0 {
			sb.WriteString(", ")
		}
		param, err := ParameterValue{Value: v, DBType: p.DBType}.Parameter(info, paramName+"_"+strconv.Itoa(i))
		if err != nil {
			return err
		}
		sb.WriteString(cmd.AddParameter(info, param))
	}
	sb.WriteString(")")
	return nil
}

var (
	_ Condition = (*Predicate)(nil)
	_ Condition = (*InPredicate)(nil)
)
