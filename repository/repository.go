// Package repository exposes a typed repository per entity kind on top of
// sqlgraph. It resolves the audit user from the context, stamps records
// and keeps soft-deleted rows out of reads.
//
//	banks := repository.New(drv, tables.Bank, scanBank)
//	ctx = audit.WithUser(ctx, "alice")
//	id, err := banks.Save(ctx, &Bank{Entity: schema.Entity{Code: "BCA", Name: "Central"}})
package repository

import (
	"context"
	"log/slog"

	"github.com/syssam/recordstore"
	"github.com/syssam/recordstore/audit"
	"github.com/syssam/recordstore/dialect"
	"github.com/syssam/recordstore/dialect/sql"
	"github.com/syssam/recordstore/dialect/sql/sqlgraph"
	"github.com/syssam/recordstore/schema"
)

// DefaultCodeColumn is the business code column checked by CodeExists.
const DefaultCodeColumn = "Code"

type config struct {
	alias      string
	columns    []string
	joins      []sqlgraph.Join
	stamper    *audit.Stamper
	logger     *slog.Logger
	codeColumn string
}

// Option configures a Repository.
type Option func(*config)

// WithAlias sets the alias of the table in generated reads.
func WithAlias(alias string) Option {
	return func(c *config) {
		c.alias = alias
	}
}

// WithColumns sets the select list of reads.
func WithColumns(columns ...string) Option {
	return func(c *config) {
		c.columns = columns
	}
}

// WithJoins adds LEFT JOIN targets to every read. Joins not marked
// Lookup only filter; see sqlgraph.Join.
func WithJoins(joins ...sqlgraph.Join) Option {
	return func(c *config) {
		c.joins = append(c.joins, joins...)
	}
}

// WithStamper sets the stamper. Default stamps with audit.Now.
func WithStamper(s *audit.Stamper) Option {
	return func(c *config) {
		c.stamper = s
	}
}

// WithLogger sets the logger of the repository and its graph writer.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithCodeColumn sets the column checked by CodeExists.
func WithCodeColumn(column string) Option {
	return func(c *config) {
		c.codeColumn = column
	}
}

// Repository reads and writes the records of one table.
type Repository[T sqlgraph.Node] struct {
	drv    dialect.Driver
	table  *schema.Table
	scan   sqlgraph.ScanFunc[T]
	writer *sqlgraph.GraphWriter
	cfg    config
}

// New returns a repository of table on drv.
func New[T sqlgraph.Node](drv dialect.Driver, table *schema.Table, scan sqlgraph.ScanFunc[T], opts ...Option) *Repository[T] {
	cfg := config{
		stamper:    &audit.Stamper{},
		logger:     slog.New(slog.DiscardHandler),
		codeColumn: DefaultCodeColumn,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Repository[T]{
		drv:    drv,
		table:  table,
		scan:   scan,
		writer: sqlgraph.NewGraphWriter(drv, sqlgraph.WithWriterLogger(cfg.logger)),
		cfg:    cfg,
	}
}

// ForKind returns a repository of the table registered for kind.
func ForKind[T sqlgraph.Node](drv dialect.Driver, reg *schema.Registry, kind schema.Kind, scan sqlgraph.ScanFunc[T], opts ...Option) (*Repository[T], error) {
	t, err := reg.Table(kind)
	if err != nil {
		return nil, err
	}
	return New(drv, t, scan, opts...), nil
}

// Table returns the table of the repository.
func (r *Repository[T]) Table() *schema.Table { return r.table }

// Spec returns a search spec over the repository's table with filters
// and sorts. Callers may adjust it before passing it to sqlgraph.
func (r *Repository[T]) Spec(filters []sql.Condition, sorts ...sql.Sort) *sqlgraph.SearchSpec[T] {
	return &sqlgraph.SearchSpec[T]{
		Table:   r.table,
		Alias:   r.cfg.alias,
		Columns: r.cfg.columns,
		Joins:   r.cfg.joins,
		Filters: filters,
		Sorts:   sorts,
		Scan:    r.scan,
	}
}

// Search returns one page of live records matching filters.
func (r *Repository[T]) Search(ctx context.Context, filters []sql.Condition, sorts []sql.Sort, pageSize, pageNo int) (*sqlgraph.Page[T], error) {
	return sqlgraph.Search(ctx, r.drv, r.Spec(filters, sorts...), pageSize, pageNo)
}

// Count returns the pagination metadata of filters.
func (r *Repository[T]) Count(ctx context.Context, filters []sql.Condition, pageSize int) (sqlgraph.PaginationResult, error) {
	return sqlgraph.Count(ctx, r.drv, r.Spec(filters), pageSize)
}

// Get returns the live record with key id.
func (r *Repository[T]) Get(ctx context.Context, id int64) (T, error) {
	return sqlgraph.Get(ctx, r.drv, r.Spec(nil), id)
}

// CodeExists reports whether a live record other than exceptID uses code.
func (r *Repository[T]) CodeExists(ctx context.Context, code string, exceptID int64) (bool, error) {
	conds := []sql.Condition{sql.FieldEQ(r.cfg.codeColumn, code)}
	if exceptID != 0 {
		conds = append(conds, sql.FieldNEQ(r.table.Key(), exceptID))
	}
	return sqlgraph.Exists(ctx, r.drv, r.table, conds...)
}

// Save stamps rec for the context user and writes it with its children in
// one transaction. New records get both stamp pairs, existing ones the
// modified pair.
func (r *Repository[T]) Save(ctx context.Context, rec T, children ...sqlgraph.Children) (int64, error) {
	user, err := userOf(ctx)
	if err != nil {
		return 0, err
	}
	if rec.Key() == 0 {
		r.cfg.stamper.Insert(rec, user)
	} else {
		r.cfg.stamper.Update(rec, user)
	}
	id, err := r.writer.SaveGraph(ctx, r.table, rec, children...)
	if err != nil {
		return 0, err
	}
	r.cfg.logger.DebugContext(ctx, "record saved",
		slog.String("table", r.table.Label()),
		slog.Int64("key", id),
		slog.String("user", user))
	return id, nil
}

// Delete flags the record with key id as deleted.
func (r *Repository[T]) Delete(ctx context.Context, id int64) error {
	user, err := userOf(ctx)
	if err != nil {
		return err
	}
	return sqlgraph.SoftDelete(ctx, r.drv, r.table, id, user, r.cfg.stamper.Now())
}

// Restore clears the deleted flag of the record with key id.
func (r *Repository[T]) Restore(ctx context.Context, id int64) error {
	user, err := userOf(ctx)
	if err != nil {
		return err
	}
	return sqlgraph.Restore(ctx, r.drv, r.table, id, user, r.cfg.stamper.Now())
}

func userOf(ctx context.Context) (string, error) {
	user, ok := audit.UserFromContext(ctx)
	if !ok {
		return "", recordstore.NewContractError("user", "no audit user in context")
	}
	return user, nil
}
