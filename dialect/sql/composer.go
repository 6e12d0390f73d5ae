package sql

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/recordstore/dialect"
)

// Template placeholder tokens.
const (
	TokenSelect   = "select"
	TokenLeftJoin = "leftjoin"
	TokenWhere    = "where"
	TokenOrderBy  = "orderby"
	TokenSet      = "set"
)

var tokenRe = regexp.MustCompile(`/\*\*([A-Za-z]*)\*\*/`)

// Template is a parsed SQL template containing /**token**/ placeholders.
// A token may appear any number of times; every occurrence receives the
// same fragment.
type Template struct {
	text   string
	tokens []string
}

// ParseTemplate validates the placeholder tokens of text.
func ParseTemplate(text string) (*Template, error) {
	t := &Template{text: text}
	seen := make(map[string]bool)
	for _, m := range tokenRe.FindAllStringSubmatch(text, -1) {
		tok := m[1]
		switch tok {
		case TokenSelect, TokenLeftJoin, TokenWhere, TokenOrderBy, TokenSet:
		default:
			return nil, fmt.Errorf("dialect/sql: unknown template token %q", m[0])
		}
		if !seen[tok] {
			seen[tok] = true
			t.tokens = append(t.tokens, tok)
		}
	}
	return t, nil
}

// MustParseTemplate is like ParseTemplate but panics if the template
// contains an unknown token. It is intended for package-level variables.
func MustParseTemplate(text string) *Template {
	t, err := ParseTemplate(text)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the template text.
func (t *Template) String() string { return t.text }

// Has reports whether the template contains the given token.
func (t *Template) Has(token string) bool {
	for _, tok := range t.tokens {
		if tok == token {
			return true
		}
	}
	return false
}

// NamedArg is an alias to sql.NamedArg.
type NamedArg = sql.NamedArg

// Named is an alias to sql.Named.
func Named(name string, value any) NamedArg { return sql.Named(name, value) }

// Composer accumulates clause fragments and named parameters and renders
// them into a Template. Fragments are concatenated in call order.
//
//	c := sql.NewComposer()
//	c.Select("t.Id", "t.Code")
//	c.Where("t.Code = @code", sql.Named("code", "BCA"))
//	c.OrderBy("t.Code ASC")
//	query, args, err := c.Query(d, sql.MustParseTemplate(
//	    "SELECT /**select**/ FROM [fin].[Bank] t /**where**/ /**orderby**/"))
type Composer struct {
	groups map[string][]string
	params map[string]any
	seq    int
	errs   []error
}

// NewComposer returns an empty Composer.
func NewComposer() *Composer {
	return &Composer{
		groups: make(map[string][]string),
		params: make(map[string]any),
	}
}

// Select appends select-list columns.
func (c *Composer) Select(columns ...string) *Composer {
	return c.add(TokenSelect, columns...)
}

// LeftJoin appends a join target with its ON condition, e.g.
// "[fin].[Branch] b ON b.Id = t.BranchId".
func (c *Composer) LeftJoin(join string, args ...NamedArg) *Composer {
	c.Params(args...)
	return c.add(TokenLeftJoin, join)
}

// Where appends a predicate. Predicates are combined with AND.
func (c *Composer) Where(clause string, args ...NamedArg) *Composer {
	c.Params(args...)
	return c.add(TokenWhere, clause)
}

// OrderBy appends ordering terms.
func (c *Composer) OrderBy(terms ...string) *Composer {
	return c.add(TokenOrderBy, terms...)
}

// Set appends assignments of an UPDATE statement.
func (c *Composer) Set(assignment string, args ...NamedArg) *Composer {
	c.Params(args...)
	return c.add(TokenSet, assignment)
}

func (c *Composer) add(token string, fragments ...string) *Composer {
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			c.groups[token] = append(c.groups[token], f)
		}
	}
	return c
}

// Len returns the number of fragments in the token group.
func (c *Composer) Len(token string) int {
	return len(c.groups[token])
}

// Param declares a named parameter. Declaring the same name twice with a
// different value is recorded as an error and reported by Query.
func (c *Composer) Param(name string, value any) *Composer {
	if !isValidIdentifier(name) {
		c.AddError(fmt.Errorf("dialect/sql: invalid parameter name %q", name))
		return c
	}
	if prev, ok := c.params[name]; ok && !sameValue(prev, value) {
		c.AddError(fmt.Errorf("dialect/sql: parameter @%s declared twice with different values", name))
		return c
	}
	c.params[name] = value
	return c
}

// Params declares several named parameters.
func (c *Composer) Params(args ...NamedArg) *Composer {
	for _, a := range args {
		c.Param(a.Name, a.Value)
	}
	return c
}

// Arg allocates a fresh parameter for v and returns its marker.
func (c *Composer) Arg(v any) string {
	for {
		c.seq++
		name := "p" + strconv.Itoa(c.seq)
		if _, taken := c.params[name]; !taken {
			c.params[name] = v
			return "@" + name
		}
	}
}

// Value returns the declared value of a parameter.
func (c *Composer) Value(name string) (any, bool) {
	v, ok := c.params[name]
	return v, ok
}

// AddError appends an error to the composer. Query fails with all of them.
func (c *Composer) AddError(err error) *Composer {
	if err != nil {
		c.errs = append(c.errs, err)
	}
	return c
}

// Err returns the errors recorded so far, joined.
func (c *Composer) Err() error {
	return errors.Join(c.errs...)
}

// Clone returns a deep copy of the composer.
func (c *Composer) Clone() *Composer {
	n := NewComposer()
	for k, v := range c.groups {
		n.groups[k] = append([]string(nil), v...)
	}
	for k, v := range c.params {
		n.params[k] = v
	}
	n.seq = c.seq
	n.errs = append(n.errs, c.errs...)
	return n
}

// Fragment returns the rendered text of one token group, or "" when the
// group is empty.
func (c *Composer) Fragment(token string) string {
	parts := c.groups[token]
	if len(parts) == 0 {
		return ""
	}
	switch token {
	case TokenWhere:
		return "WHERE " + strings.Join(parts, " AND ")
	case TokenOrderBy:
		return "ORDER BY " + strings.Join(parts, ", ")
	case TokenSet:
		return "SET " + strings.Join(parts, ", ")
	case TokenLeftJoin:
		return "LEFT JOIN " + strings.Join(parts, " LEFT JOIN ")
	default:
		return strings.Join(parts, ", ")
	}
}

// Render substitutes every occurrence of every token of t. Rendering does
// not modify the composer and returns the same text on every call.
func (c *Composer) Render(t *Template) string {
	out := t.text
	for _, tok := range t.tokens {
		out = strings.ReplaceAll(out, "/**"+tok+"**/", c.Fragment(tok))
	}
	return out
}

// Query renders t and binds the declared parameters for the dialect.
func (c *Composer) Query(d *dialect.Dialect, t *Template) (string, []any, error) {
	if err := c.Err(); err != nil {
		return "", nil, err
	}
	return Bind(d, c.Render(t), c.params)
}

// sameValue compares parameter values without panicking on
// non-comparable kinds.
func sameValue(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta != nil && !ta.Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}
