package schema

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a table metadata validation error.
type ValidationError struct {
	Table   string
	Column  string
	Message string
	// Breaking indicates that code built against the previous metadata
	// no longer matches the database.
	Breaking bool
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// HasBreakingChanges returns true if there are any breaking changes.
func (r *ValidationResult) HasBreakingChanges() bool {
	for _, e := range r.Errors {
		if e.Breaking {
			return true
		}
	}
	for _, w := range r.Warnings {
		if w.Breaking {
			return true
		}
	}
	return false
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			if e.Breaking {
				sb.WriteString(" [BREAKING]")
			}
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			if w.Breaking {
				sb.WriteString(" [BREAKING]")
			}
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

func (r *ValidationResult) merge(o *ValidationResult) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// ValidateOption configures drift validation.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	allowDropColumn bool
	allowDropTable  bool
	allowNullable   bool
}

// AllowDropColumn reports dropped columns as warnings instead of errors.
func AllowDropColumn() ValidateOption {
	return func(c *validateConfig) {
		c.allowDropColumn = true
	}
}

// AllowDropTable reports dropped tables as warnings instead of errors.
func AllowDropTable() ValidateOption {
	return func(c *validateConfig) {
		c.allowDropTable = true
	}
}

// AllowNullable reports NOT NULL columns becoming nullable as warnings
// instead of errors.
func AllowNullable() ValidateOption {
	return func(c *validateConfig) {
		c.allowNullable = true
	}
}

// ValidateDiff compares the metadata code was built against (previous)
// with freshly loaded metadata (current). It returns errors for changes
// that break the previous metadata's readers and writers and warnings for
// potentially dangerous ones.
//
// Example:
//
//	result := schema.ValidateDiff(snapshot, live)
//	if result.HasBreakingChanges() {
//	    log.Fatal("schema drift detected:", result)
//	}
func ValidateDiff(previous, current []*Table, opts ...ValidateOption) *ValidationResult {
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	result := &ValidationResult{}
	currentMap := make(map[string]*Table, len(current))
	for _, t := range current {
		currentMap[t.name] = t
	}

	for _, prev := range previous {
		cur, ok := currentMap[prev.name]
		if !ok {
			err := &ValidationError{
				Table:    prev.name,
				Message:  "table was dropped",
				Breaking: true,
			}
			if cfg.allowDropTable {
				result.Warnings = append(result.Warnings, err)
			} else {
				result.Errors = append(result.Errors, err)
			}
			continue
		}
		validateTableDiff(prev, cur, cfg, result)
	}
	return result
}

func validateTableDiff(previous, current *Table, cfg *validateConfig, result *ValidationResult) {
	for _, prevCol := range previous.columns {
		curCol := current.Column(prevCol.name)
		if curCol == nil {
			err := &ValidationError{
				Table:    previous.name,
				Column:   prevCol.name,
				Message:  "column was dropped",
				Breaking: true,
			}
			if cfg.allowDropColumn {
				result.Warnings = append(result.Warnings, err)
			} else {
				result.Errors = append(result.Errors, err)
			}
			continue
		}

		if prevCol.DataTypeName() != curCol.DataTypeName() {
			result.Errors = append(result.Errors, &ValidationError{
				Table:    previous.name,
				Column:   prevCol.name,
				Message:  fmt.Sprintf("column type changed from %s to %s", prevCol.DataTypeName(), curCol.DataTypeName()),
				Breaking: true,
			})
		}

		if !prevCol.AllowsNull() && curCol.AllowsNull() {
			err := &ValidationError{
				Table:    previous.name,
				Column:   prevCol.name,
				Message:  "column changed from NOT NULL to NULL; readers may see unexpected null values",
				Breaking: true,
			}
			if cfg.allowNullable {
				result.Warnings = append(result.Warnings, err)
			} else {
				result.Errors = append(result.Errors, err)
			}
		}

		if prevCol.Size() > 0 && curCol.Size() > 0 && curCol.Size() < prevCol.Size() {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   previous.name,
				Column:  prevCol.name,
				Message: fmt.Sprintf("column size reduced from %d to %d; writes may be truncated", prevCol.Size(), curCol.Size()),
			})
		}

		if prevCol.identity != curCol.identity {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:    previous.name,
				Column:   prevCol.name,
				Message:  fmt.Sprintf("identity changed from %t to %t", prevCol.identity, curCol.identity),
				Breaking: true,
			})
		}
	}

	for _, curCol := range current.columns {
		if previous.Column(curCol.name) != nil {
			continue
		}
		if !curCol.AllowsNull() && !curCol.identity && !curCol.rowVersion {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   current.name,
				Column:  curCol.name,
				Message: "new NOT NULL column may fail inserts that do not set it",
			})
		}
	}

	if prev, cur := columnNames(previous.keys), columnNames(current.keys); !slices.Equal(prev, cur) {
		result.Warnings = append(result.Warnings, &ValidationError{
			Table:    current.name,
			Message:  fmt.Sprintf("key columns changed from %v to %v", prev, cur),
			Breaking: true,
		})
	}
}

func columnNames(cs []*Column) []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.name
	}
	return names
}

// Validate reports advisory issues of a single table: columns that cannot
// identify a row, nullable row versions and duplicate column names.
func Validate(t *Table) *ValidationResult {
	result := &ValidationResult{}

	if !slices.ContainsFunc(t.columns, (*Column).UseToUniquelyIdentifyRow) {
		result.Warnings = append(result.Warnings, &ValidationError{
			Table:   t.name,
			Message: "table has no column usable to uniquely identify a row",
		})
	}

	if rv := t.rowVersion; rv != nil && rv.AllowsNull() {
		result.Warnings = append(result.Warnings, &ValidationError{
			Table:   t.name,
			Column:  rv.name,
			Message: "row-version column allows null",
		})
	}

	colNames := make(map[string]bool)
	for _, c := range t.columns {
		if colNames[c.name] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.name,
				Column:  c.name,
				Message: "duplicate column name",
			})
		}
		colNames[c.name] = true
	}
	return result
}

// ValidateSchema validates all tables of a catalog.
func ValidateSchema(tables []*Table) *ValidationResult {
	result := &ValidationResult{}
	tableNames := make(map[string]bool)
	for _, t := range tables {
		if tableNames[t.name] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.name,
				Message: "duplicate table name",
			})
		}
		tableNames[t.name] = true
		result.merge(Validate(t))
	}
	return result
}
