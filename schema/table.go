package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/syssam/recordstore"
	"github.com/syssam/recordstore/dialect"
)

// DefaultKey is the surrogate key column of every table unless overridden.
const DefaultKey = "Id"

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Table describes the storage location of one entity kind.
type Table struct {
	schema    string
	name      string
	quoteName string
	key       string
	idents    map[string]string
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithQuoteName sets the table name used by dialects that quote with
// double quotes. It defaults to the table name.
func WithQuoteName(name string) TableOption {
	return func(t *Table) {
		t.quoteName = name
	}
}

// WithKey sets the key column. It defaults to DefaultKey.
func WithKey(column string) TableOption {
	return func(t *Table) {
		t.key = column
	}
}

// NewTable returns the descriptor of schema.name.
func NewTable(schema, name string, opts ...TableOption) (*Table, error) {
	t := &Table{schema: schema, name: name, key: DefaultKey}
	for _, opt := range opts {
		opt(t)
	}
	if t.quoteName == "" {
		t.quoteName = t.name
	}
	switch {
	case t.name == "":
		return nil, recordstore.NewConfigurationError("table", schema, "name is required")
	case strings.Contains(t.schema+t.name+t.quoteName, "/*"):
		return nil, recordstore.NewConfigurationError("table", t.name, "comment markers are not allowed")
	case !identRe.MatchString(t.key):
		return nil, recordstore.NewConfigurationError("key column", t.key, "not a valid identifier")
	}
	t.idents = make(map[string]string, len(dialect.Names()))
	for _, n := range dialect.Names() {
		d, err := dialect.Get(n)
		if err != nil {
			return nil, err
		}
		t.idents[d.Name] = t.quote(d)
	}
	return t, nil
}

// MustNewTable is like NewTable but panics on error.
func MustNewTable(schema, name string, opts ...TableOption) *Table {
	t, err := NewTable(schema, name, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Schema returns the schema name.
func (t *Table) Schema() string { return t.schema }

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// QuoteName returns the table name used by double-quoting dialects.
func (t *Table) QuoteName() string { return t.quoteName }

// Key returns the key column.
func (t *Table) Key() string { return t.key }

// Ident returns the quoted, schema-qualified identifier for d.
func (t *Table) Ident(d *dialect.Dialect) string {
	if s, ok := t.idents[d.Name]; ok {
		return s
	}
	return t.quote(d)
}

// Label returns "schema.name" for logs and errors.
func (t *Table) Label() string {
	if t.schema == "" {
		return t.name
	}
	return t.schema + "." + t.name
}

// String implements fmt.Stringer.
func (t *Table) String() string {
	return fmt.Sprintf("Table(%s, key=%s)", t.Label(), t.key)
}

func (t *Table) quote(d *dialect.Dialect) string {
	if d.Quoting == dialect.QuoteDouble {
		return d.Quote(t.schema, t.quoteName)
	}
	return d.Quote(t.schema, t.name)
}
