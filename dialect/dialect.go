package dialect

import (
	"context"
	"strings"

	"github.com/syssam/recordstore"
)

// Dialect names.
const (
	SQLServer = "sqlserver"
	Postgres  = "postgres"
	MySQL     = "mysql"
	SQLite    = "sqlite"
)

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for the
// search and graph writer layers.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// QuoteStyle selects how table identifiers are quoted.
type QuoteStyle uint8

const (
	// QuoteBracket renders [schema].[table].
	QuoteBracket QuoteStyle = iota
	// QuoteDouble renders schema."table" with the table name lower-cased.
	QuoteDouble
	// QuoteBacktick renders `schema`.`table`.
	QuoteBacktick
)

// BindStyle selects how named parameters are presented to the driver.
type BindStyle uint8

const (
	// BindNamed keeps @name markers and passes sql.NamedArg values.
	BindNamed BindStyle = iota
	// BindDollar rewrites markers to $1, $2, ... numbered per distinct name.
	BindDollar
	// BindQuestion rewrites markers to ? repeating values per occurrence.
	BindQuestion
)

// WindowStyle selects the row window clause of a paged query.
type WindowStyle uint8

const (
	// WindowOffsetFetch renders OFFSET n ROWS FETCH NEXT m ROWS ONLY.
	WindowOffsetFetch WindowStyle = iota
	// WindowLimitOffset renders LIMIT m OFFSET n.
	WindowLimitOffset
)

// ReturnStyle selects how a generated key is read back after an insert.
type ReturnStyle uint8

const (
	// ReturnOutput renders OUTPUT INSERTED.<key> before VALUES.
	ReturnOutput ReturnStyle = iota
	// ReturnClause renders RETURNING <key> after VALUES.
	ReturnClause
	// ReturnLastInsertID reads sql.Result.LastInsertId.
	ReturnLastInsertID
)

// Dialect describes the SQL variations of one database engine.
type Dialect struct {
	Name        string
	DriverName  string // database/sql driver registration name
	Quoting     QuoteStyle
	Binding     BindStyle
	Window      WindowStyle
	Returning   ReturnStyle
	DefaultPort int
	// NoSchema drops the schema part when quoting; SQLite has no schemas
	// beyond attached databases.
	NoSchema bool
}

var dialects = map[string]*Dialect{
	SQLServer: {
		Name:        SQLServer,
		DriverName:  "sqlserver",
		Quoting:     QuoteBracket,
		Binding:     BindNamed,
		Window:      WindowOffsetFetch,
		Returning:   ReturnOutput,
		DefaultPort: 1433,
	},
	Postgres: {
		Name:        Postgres,
		DriverName:  "postgres",
		Quoting:     QuoteDouble,
		Binding:     BindDollar,
		Window:      WindowOffsetFetch,
		Returning:   ReturnClause,
		DefaultPort: 5432,
	},
	MySQL: {
		Name:        MySQL,
		DriverName:  "mysql",
		Quoting:     QuoteBacktick,
		Binding:     BindQuestion,
		Window:      WindowLimitOffset,
		Returning:   ReturnLastInsertID,
		DefaultPort: 3306,
	},
	SQLite: {
		Name:       SQLite,
		DriverName: "sqlite",
		Quoting:    QuoteDouble,
		Binding:    BindQuestion,
		Window:     WindowLimitOffset,
		Returning:  ReturnClause,
		NoSchema:   true,
	},
}

var aliases = map[string]string{
	"mssql":      SQLServer,
	"postgresql": Postgres,
	"pgsql":      Postgres,
	"sqlite3":    SQLite,
}

// Names returns the canonical dialect names.
func Names() []string {
	return []string{SQLServer, Postgres, MySQL, SQLite}
}

// Get returns the dialect registered under name. Names are matched
// case-insensitively and a few common aliases ("mssql", "postgresql")
// are accepted.
func Get(name string) (*Dialect, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	d, ok := dialects[key]
	if !ok {
		return nil, recordstore.NewConfigurationError("dialect", name, "unsupported dialect")
	}
	return d, nil
}

// MustGet is like Get but panics if name is not a supported dialect.
func MustGet(name string) *Dialect {
	d, err := Get(name)
	if err != nil {
		panic(err)
	}
	return d
}

// Quote renders the fully qualified table identifier for this dialect.
// An empty schema yields the table alone.
func (d *Dialect) Quote(schema, table string) string {
	if d.NoSchema {
		schema = ""
	}
	var b strings.Builder
	switch d.Quoting {
	case QuoteBracket:
		if schema != "" {
			b.WriteString(bracket(schema))
			b.WriteByte('.')
		}
		b.WriteString(bracket(table))
	case QuoteBacktick:
		if schema != "" {
			b.WriteString(backtick(schema))
			b.WriteByte('.')
		}
		b.WriteString(backtick(table))
	default:
		// The schema stays bare and keeps its case; PostgreSQL folds it.
		if schema != "" {
			b.WriteString(schema)
			b.WriteByte('.')
		}
		b.WriteString(doubleQuote(strings.ToLower(table)))
	}
	return b.String()
}

// Quote resolves the dialect by name and quotes the table identifier.
func Quote(schema, table, name string) (string, error) {
	d, err := Get(name)
	if err != nil {
		return "", err
	}
	return d.Quote(schema, table), nil
}

func bracket(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

func backtick(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

func doubleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
