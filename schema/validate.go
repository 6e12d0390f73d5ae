package schema

import (
	"fmt"
	"strings"

	"github.com/syssam/recordstore/audit"
)

// ValidationError is one finding of a table check.
type ValidationError struct {
	Table   string
	Column  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the findings of a table check.
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

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

func (r *ValidationResult) errorf(t *Table, column, format string, args ...any) {
	r.Errors = append(r.Errors, &ValidationError{Table: t.Label(), Column: column, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warnf(t *Table, column, format string, args ...any) {
	r.Warnings = append(r.Warnings, &ValidationError{Table: t.Label(), Column: column, Message: fmt.Sprintf(format, args...)})
}

// ValidateOption configures ValidateColumns.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	workflow bool
	expect   []string
}

// RequireWorkflow makes missing approval columns an error.
func RequireWorkflow() ValidateOption {
	return func(c *validateConfig) {
		c.workflow = true
	}
}

// ExpectColumns adds business columns that must be present.
func ExpectColumns(columns ...string) ValidateOption {
	return func(c *validateConfig) {
		c.expect = append(c.expect, columns...)
	}
}

// AuditColumns lists the columns stamped on every write.
var AuditColumns = []string{
	audit.ColumnCreatedUser,
	audit.ColumnCreatedDateTime,
	audit.ColumnModifiedUser,
	audit.ColumnModifiedDateTime,
	audit.ColumnIsDeleted,
}

// WorkflowColumns lists the approval columns of workflow tables.
var WorkflowColumns = []string{
	audit.ColumnStatusID,
	audit.ColumnApprovedUser,
	audit.ColumnApprovedDateTime,
}

// ValidateColumns checks the column list of a live table against what the
// search and graph writer layers expect: the key, the audit block and,
// optionally, the approval columns. Names compare case-insensitively.
//
//	cols, err := sqlgraph.Columns(ctx, drv, table)
//	if err != nil {
//	    return err
//	}
//	if result := schema.ValidateColumns(table, cols); result.HasErrors() {
//	    return errors.New(result.String())
//	}
func ValidateColumns(t *Table, columns []string, opts ...ValidateOption) *ValidationResult {
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	result := &ValidationResult{}
	have := make(map[string]string, len(columns))
	for _, c := range columns {
		lc := strings.ToLower(c)
		if prev, ok := have[lc]; ok {
			result.warnf(t, c, "column also present as %q", prev)
			continue
		}
		have[lc] = c
	}
	present := func(c string) bool {
		_, ok := have[strings.ToLower(c)]
		return ok
	}

	if !present(t.Key()) {
		result.errorf(t, t.Key(), "key column is missing")
	}
	for _, c := range AuditColumns {
		if !present(c) {
			result.errorf(t, c, "audit column is missing")
		}
	}
	var missing []string
	for _, c := range WorkflowColumns {
		if !present(c) {
			missing = append(missing, c)
		}
	}
	switch {
	case cfg.workflow:
		for _, c := range missing {
			result.errorf(t, c, "workflow column is missing")
		}
	case len(missing) > 0 && len(missing) < len(WorkflowColumns):
		result.warnf(t, "", "partial workflow columns, missing %s", strings.Join(missing, ", "))
	}
	for _, c := range cfg.expect {
		if !present(c) {
			result.errorf(t, c, "column is missing")
		}
	}
	return result
}
