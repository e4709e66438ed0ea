package dialect

import (
	"strings"
	"time"
)

// Command is the native command object: SQL text plus its bound parameters.
type Command struct {
	Text    string
	Params  []*Parameter
	Timeout time.Duration
}

// Parameter is a native command parameter.
type Parameter struct {
	Name  string
	Value any
	// DBType is the family type string, if known.
	DBType string
}

// AddParameter appends p to the command and returns its placeholder.
func (c *Command) AddParameter(info Info, p *Parameter) string {
	c.Params = append(c.Params, p)
	return info.Placeholder(p.Name, len(c.Params)-1)
}

// Args returns the driver arguments of the command in parameter order.
func (c *Command) Args(info Info) []any {
	args := make([]any, len(c.Params))
	for i, p := range c.Params {
		args[i] = info.Arg(p)
	}
	return args
}

// String returns the command text followed by its parameters.
func (c *Command) String() string {
	var b strings.Builder
	b.WriteString(c.Text)
	for i, p := range c.Params {
		if i == 0 {
			b.WriteString(" -- ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		b.WriteString("=")
		b.WriteString(formatValue(p.Value))
	}
	return b.String()
}
