package sql

import (
	"database/sql/driver"
	"reflect"
	"regexp"
	"strings"

	"github.com/syssam/recordstore"
)

// validIdentifierRe validates column names, aliases and parameter names.
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// isValidIdentifier checks if the string is a valid SQL identifier.
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// IsIdentifier reports whether s may be used unquoted as a column or alias.
func IsIdentifier(s string) bool { return isValidIdentifier(s) }

// Op is a comparison operator of a Filter. Only the constants below are
// accepted.
type Op string

// Supported operators.
const (
	OpEQ      Op = "="
	OpNEQ     Op = "<>"
	OpLike    Op = "LIKE"
	OpIn      Op = "IN"
	OpGTE     Op = ">="
	OpLTE     Op = "<="
	OpBetween Op = "BETWEEN"
)

var opNames = map[string]Op{
	"=": OpEQ, "==": OpEQ, "eq": OpEQ,
	"<>": OpNEQ, "!=": OpNEQ, "ne": OpNEQ, "neq": OpNEQ,
	"like": OpLike,
	"in":   OpIn,
	">=":   OpGTE, "gte": OpGTE, "ge": OpGTE,
	"<=": OpLTE, "lte": OpLTE, "le": OpLTE,
	"between": OpBetween,
}

// ParseOp maps external operator text onto the operator whitelist.
func ParseOp(s string) (Op, error) {
	if op, ok := opNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return op, nil
	}
	return "", recordstore.NewContractError("operator", "%q is not supported", s)
}

// Valid reports whether op is one of the supported operators.
func (op Op) Valid() bool {
	switch op {
	case OpEQ, OpNEQ, OpLike, OpIn, OpGTE, OpLTE, OpBetween:
		return true
	}
	return false
}

// Condition is a search predicate. It is either a declarative *Filter or a
// trusted *Raw fragment; no other implementations exist.
type Condition interface {
	// Render appends the condition's parameters to c and returns its SQL
	// text, qualifying columns with alias unless the condition pins its own.
	Render(alias string, c *Composer) (string, error)
	condition()
}

// Filter is a declarative predicate: field, operator and value. A null
// value with OpEQ or OpNEQ renders IS NULL and IS NOT NULL. Nil, a nil
// pointer and a driver.Valuer yielding nil are null.
type Filter struct {
	Field string
	Op    Op
	Value any
	// Alias pins the table alias, e.g. a joined table. Empty means the
	// alias supplied at render time.
	Alias string
	// escaped marks LIKE patterns whose wildcards were escaped with '!'.
	escaped bool
}

func (*Filter) condition() {}

// On returns a copy of the filter pinned to alias.
func (f *Filter) On(alias string) *Filter {
	n := *f
	n.Alias = alias
	return &n
}

// Render implements Condition.
func (f *Filter) Render(alias string, c *Composer) (string, error) {
	col, err := qualify(f.Alias, alias, f.Field)
	if err != nil {
		return "", err
	}
	if !f.Op.Valid() {
		return "", recordstore.NewContractError("operator", "%q is not supported", string(f.Op))
	}
	if isNull(f.Value) {
		switch f.Op {
		case OpEQ:
			return col + " IS NULL", nil
		case OpNEQ:
			return col + " IS NOT NULL", nil
		default:
			return "", recordstore.NewContractError("value", "%s %s requires a value", f.Field, f.Op)
		}
	}
	switch f.Op {
	case OpIn:
		vs, ok := values(f.Value)
		if !ok {
			return "", recordstore.NewContractError("value", "%s IN requires a list, got %T", f.Field, f.Value)
		}
		if len(vs) == 0 {
			return "1 = 0", nil
		}
		markers := make([]string, len(vs))
		for i, v := range vs {
			markers[i] = c.Arg(v)
		}
		return col + " IN (" + strings.Join(markers, ", ") + ")", nil
	case OpBetween:
		vs, ok := values(f.Value)
		if !ok || len(vs) != 2 {
			return "", recordstore.NewContractError("value", "%s BETWEEN requires exactly two values", f.Field)
		}
		return col + " BETWEEN " + c.Arg(vs[0]) + " AND " + c.Arg(vs[1]), nil
	case OpLike:
		s := col + " LIKE " + c.Arg(f.Value)
		if f.escaped {
			s += " ESCAPE '!'"
		}
		return s, nil
	default:
		return col + " " + string(f.Op) + " " + c.Arg(f.Value), nil
	}
}

// Raw is a trusted SQL fragment supplied by repository code. It is
// rendered in parentheses and may reference its own named parameters.
// It is the only condition that carries SQL text.
type Raw struct {
	SQL  string
	Args []NamedArg
}

func (*Raw) condition() {}

// Expr returns a Raw condition.
func Expr(sql string, args ...NamedArg) *Raw {
	return &Raw{SQL: sql, Args: args}
}

// Render implements Condition.
func (r *Raw) Render(_ string, c *Composer) (string, error) {
	if strings.TrimSpace(r.SQL) == "" {
		return "", recordstore.NewContractError("condition", "raw condition is empty")
	}
	c.Params(r.Args...)
	if err := c.Err(); err != nil {
		return "", err
	}
	return "(" + r.SQL + ")", nil
}

// Sort is one ordering term.
type Sort struct {
	Field string
	Desc  bool
	Alias string
}

// Render returns "<alias>.<field> ASC|DESC".
func (s Sort) Render(alias string) (string, error) {
	col, err := s.Column(alias)
	if err != nil {
		return "", err
	}
	return col + s.Direction(), nil
}

// Column returns the qualified column of the sort.
func (s Sort) Column(alias string) (string, error) {
	return qualify(s.Alias, alias, s.Field)
}

// Direction returns " ASC" or " DESC".
func (s Sort) Direction() string {
	if s.Desc {
		return " DESC"
	}
	return " ASC"
}

// Asc returns an ascending sort on field.
func Asc(field string) Sort { return Sort{Field: field} }

// Desc returns a descending sort on field.
func Desc(field string) Sort { return Sort{Field: field, Desc: true} }

// Where renders conditions against alias and appends them to the
// composer's where group.
func Where(c *Composer, alias string, conds ...Condition) error {
	for _, cond := range conds {
		if cond == nil {
			continue
		}
		s, err := cond.Render(alias, c)
		if err != nil {
			return err
		}
		c.Where(s)
	}
	return nil
}

// OrderBy renders sorts against alias and appends them to the composer's
// orderby group.
func OrderBy(c *Composer, alias string, sorts ...Sort) error {
	for _, s := range sorts {
		term, err := s.Render(alias)
		if err != nil {
			return err
		}
		c.OrderBy(term)
	}
	return nil
}

func qualify(pinned, alias, field string) (string, error) {
	if !isValidIdentifier(field) {
		return "", recordstore.NewContractError("field", "%q is not a valid column name", field)
	}
	if pinned != "" {
		alias = pinned
	}
	if alias == "" {
		return field, nil
	}
	if !isValidIdentifier(alias) {
		return "", recordstore.NewContractError("alias", "%q is not a valid table alias", alias)
	}
	return alias + "." + field, nil
}

// isNull reports whether v binds as SQL NULL.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return true
	}
	if vr, ok := v.(driver.Valuer); ok {
		dv, err := vr.Value()
		return err == nil && dv == nil
	}
	return false
}

// values flattens a slice or array into []any.
func values(v any) ([]any, bool) {
	if vs, ok := v.([]any); ok {
		return vs, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
		vs := make([]any, rv.Len())
		for i := range vs {
			vs[i] = rv.Index(i).Interface()
		}
		return vs, true
	default:
		return nil, false
	}
}

// escapeLike escapes LIKE wildcards with '!' as the escape character.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_", "[", "![")
