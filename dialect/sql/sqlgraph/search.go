package sqlgraph

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/recordstore"
	"github.com/syssam/recordstore/audit"
	"github.com/syssam/recordstore/dialect"
	"github.com/syssam/recordstore/dialect/sql"
	"github.com/syssam/recordstore/schema"
)

// DefaultAlias is the alias of the searched table unless SearchSpec.Alias is set.
const DefaultAlias = "t"

// keysCTE names the key set of a paged search.
const keysCTE = "page_keys"

// Join is a LEFT JOIN target of a search.
//
// A join may match several rows per record unless Lookup is set. Such a join
// only narrows the search: it is rendered where keys are selected and
// counted, which then group by key, and not where rows are read, so its
// columns cannot be selected. Sorting on one of its columns orders by the
// lowest matching value, or the highest for a descending sort.
//
// A Lookup join matches at most one row per record. It is rendered in every
// statement, before the other joins, and its columns may be selected.
type Join struct {
	Table *schema.Table
	Alias string
	// On is the join condition, e.g. "b.Id = t.BranchId".
	On     string
	Args   []sql.NamedArg
	Lookup bool
}

// ScanFunc scans the current row of rows into a T.
type ScanFunc[T any] func(rows sql.ColumnScanner) (T, error)

// SearchSpec describes a search over one table.
type SearchSpec[T any] struct {
	Table *schema.Table
	// Alias of Table in the generated statements. Defaults to DefaultAlias.
	Alias string
	// Columns is the select list. Defaults to "<alias>.*".
	Columns []string
	Joins   []Join
	Filters []sql.Condition
	Sorts   []sql.Sort
	// IncludeDeleted disables the implicit IsDeleted = false predicate.
	IncludeDeleted bool
	Scan           ScanFunc[T]
}

func (s *SearchSpec[T]) alias() string {
	if s.Alias != "" {
		return s.Alias
	}
	return DefaultAlias
}

func (s *SearchSpec[T]) validate() error {
	if err := s.validateShape(); err != nil {
		return err
	}
	if s.Scan == nil {
		return recordstore.NewContractError("search", "scan function is required for %s", s.Table.Label())
	}
	return nil
}

func (s *SearchSpec[T]) validateShape() error {
	switch {
	case s == nil || s.Table == nil:
		return recordstore.NewContractError("search", "table is required")
	case !sql.IsIdentifier(s.alias()):
		return recordstore.NewContractError("alias", "%q is not a valid table alias", s.Alias)
	case s.alias() == keysCTE:
		return recordstore.NewContractError("alias", "%q is reserved", keysCTE)
	}
	return nil
}

// composed holds the parts of a search shared by its statements.
type composed struct {
	ident, alias, key string
	sorts             []sql.Sort
	// base holds the lookup joins and the predicates shared by every
	// statement.
	base *sql.Composer
	// data adds the select and orderby groups to base.
	data *sql.Composer
	// fanout holds the joins that may repeat a record. Keys are grouped
	// when it is set.
	fanout string
}

// compose returns the parts of a search: the filter shared by
// the count statement and the data composer built on top of it.
func (s *SearchSpec[T]) compose(d *dialect.Dialect) (*composed, error) {
	q, err := s.filter(d)
	if err != nil {
		return nil, err
	}
	q.data = q.base.Clone()
	q.data.Select(s.columns()...)
	if err := sql.OrderBy(q.data, q.alias, q.sorts...); err != nil {
		return nil, err
	}
	return q, nil
}

// filter renders the joins and predicates of the search.
func (s *SearchSpec[T]) filter(d *dialect.Dialect) (*composed, error) {
	q := &composed{
		ident: s.Table.Ident(d),
		alias: s.alias(),
		key:   s.Table.Key(),
		sorts: s.sorts(),
		base:  sql.NewComposer(),
	}
	var fanout []string
	seen := map[string]bool{q.alias: true, keysCTE: true}
	for _, j := range s.Joins {
		switch {
		case j.Table == nil || j.Alias == "" || j.On == "":
			return nil, recordstore.NewContractError("join", "table, alias and condition are required")
		case !sql.IsIdentifier(j.Alias):
			return nil, recordstore.NewContractError("join", "%q is not a valid table alias", j.Alias)
		case seen[j.Alias]:
			return nil, recordstore.NewContractError("join", "alias %q is already in use", j.Alias)
		}
		seen[j.Alias] = true
		clause := j.Table.Ident(d) + " " + j.Alias + " ON " + j.On
		if j.Lookup {
			q.base.LeftJoin(clause, j.Args...)
			continue
		}
		q.base.Params(j.Args...)
		fanout = append(fanout, "LEFT JOIN "+clause)
	}
	q.fanout = strings.Join(fanout, " ")
	conds := s.Filters
	if !s.IncludeDeleted {
		conds = audit.InjectSoftDeleteFilter(conds)
	}
	if err := sql.Where(q.base, q.alias, conds...); err != nil {
		return nil, err
	}
	if err := q.base.Err(); err != nil {
		return nil, err
	}
	return q, nil
}

// sorts returns the caller's sorts and the key column as final tiebreaker.
func (s *SearchSpec[T]) sorts() []sql.Sort {
	for _, o := range s.Sorts {
		if s.isKey(o) {
			return s.Sorts
		}
	}
	return append(slices.Clip(s.Sorts), sql.Asc(s.Table.Key()))
}

func (s *SearchSpec[T]) isKey(o sql.Sort) bool {
	return o.Field == s.Table.Key() && (o.Alias == "" || o.Alias == s.alias())
}

func (s *SearchSpec[T]) columns() []string {
	if len(s.Columns) > 0 {
		return s.Columns
	}
	return []string{s.alias() + ".*"}
}

// PaginationResult describes one page of a search.
type PaginationResult struct {
	PageSize   int   `json:"pageSize"`
	PageNo     int   `json:"pageNo"`
	PageCount  int   `json:"pageCount"`
	TotalCount int64 `json:"totalCount"`
}

// NewPaginationResult computes the page count of total rows. A zero page
// size counts as one row per page.
func NewPaginationResult(pageSize, pageNo int, total int64) PaginationResult {
	div := int64(max(pageSize, 1))
	return PaginationResult{
		PageSize:   pageSize,
		PageNo:     pageNo,
		PageCount:  int((total + div - 1) / div),
		TotalCount: total,
	}
}

// Offset returns the number of rows before the page.
func (p PaginationResult) Offset() int {
	if p.PageSize == 0 || p.PageNo < 1 {
		return 0
	}
	return (p.PageNo - 1) * p.PageSize
}

// Page is one page of search results.
type Page[T any] struct {
	Items []T `json:"items"`
	PaginationResult
}

// ValidatePage checks the paging arguments of a search. A zero page size
// disables paging and accepts any non-negative page number.
func ValidatePage(pageSize, pageNo int) error {
	switch {
	case pageSize < 0:
		return recordstore.NewContractError("page size", "must not be negative, got %d", pageSize)
	case pageNo < 0:
		return recordstore.NewContractError("page number", "must not be negative, got %d", pageNo)
	case pageSize > 0 && pageNo < 1:
		return recordstore.NewContractError("page number", "must be at least 1 when paging, got %d", pageNo)
	}
	return nil
}

// Search returns one page of the rows matching spec, ordered by its sorts
// and then by key. With pageSize 0 every matching row is returned in a
// single unwindowed statement.
//
// A paged search selects the keys of the page in a windowed subquery, joins
// the full rows back to them and counts the matching rows in a separate
// statement with the same joins and predicates. When a join may repeat a
// record, the keys are grouped and counted distinct, so each record is
// counted once and appears on exactly one page.
func Search[T any](ctx context.Context, drv dialect.Driver, spec *SearchSpec[T], pageSize, pageNo int) (*Page[T], error) {
	if err := ValidatePage(pageSize, pageNo); err != nil {
		return nil, err
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	d, err := dialect.Get(drv.Dialect())
	if err != nil {
		return nil, err
	}
	q, err := spec.compose(d)
	if err != nil {
		return nil, err
	}
	if pageSize == 0 {
		query, args, err := q.render(d, q.data, q.listTemplate)
		if err != nil {
			return nil, err
		}
		items, err := scanAll(ctx, drv, query, args, spec.Scan)
		if err != nil {
			return nil, recordstore.NewQueryError(spec.Table.Label(), "search", err)
		}
		return &Page[T]{Items: items, PaginationResult: NewPaginationResult(0, pageNo, int64(len(items)))}, nil
	}

	total, err := count(ctx, drv, d, spec.Table.Label(), q)
	if err != nil {
		return nil, err
	}
	page := &Page[T]{Items: []T{}, PaginationResult: NewPaginationResult(pageSize, pageNo, total)}
	if int64(page.Offset()) >= total {
		return page, nil
	}
	q.data.Param("offset", page.Offset()).Param("limit", pageSize)
	query, args, err := q.render(d, q.data, q.pageTemplate(d))
	if err != nil {
		return nil, err
	}
	if page.Items, err = scanAll(ctx, drv, query, args, spec.Scan); err != nil {
		return nil, recordstore.NewQueryError(spec.Table.Label(), "search", err)
	}
	return page, nil
}

// Count returns the pagination metadata of spec without reading rows.
func Count[T any](ctx context.Context, drv dialect.Driver, spec *SearchSpec[T], pageSize int) (PaginationResult, error) {
	if err := ValidatePage(pageSize, 0); err != nil {
		return PaginationResult{}, err
	}
	if err := spec.validateShape(); err != nil {
		return PaginationResult{}, err
	}
	d, err := dialect.Get(drv.Dialect())
	if err != nil {
		return PaginationResult{}, err
	}
	q, err := spec.filter(d)
	if err != nil {
		return PaginationResult{}, err
	}
	total, err := count(ctx, drv, d, spec.Table.Label(), q)
	if err != nil {
		return PaginationResult{}, err
	}
	return NewPaginationResult(pageSize, 0, total), nil
}

func count(ctx context.Context, drv dialect.ExecQuerier, d *dialect.Dialect, label string, q *composed) (int64, error) {
	query, args, err := q.render(d, q.base, q.countTemplate)
	if err != nil {
		return 0, err
	}
	var rows sql.Rows
	if err := drv.Query(ctx, query, args, &rows); err != nil {
		return 0, recordstore.NewQueryError(label, "count", err)
	}
	n, err := sql.ScanInt64(rows)
	if err != nil {
		return 0, recordstore.NewQueryError(label, "count", err)
	}
	return n, nil
}

func scanAll[T any](ctx context.Context, drv dialect.ExecQuerier, query string, args []any, scan ScanFunc[T]) ([]T, error) {
	var rows sql.Rows
	if err := drv.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

// render parses the template built by tpl and renders it with c.
func (q *composed) render(d *dialect.Dialect, c *sql.Composer, tpl func() string) (string, []any, error) {
	t, err := sql.ParseTemplate(tpl())
	if err != nil {
		return "", nil, err
	}
	return c.Query(d, t)
}

func (q *composed) countTemplate() string {
	if q.fanout == "" {
		return fmt.Sprintf("SELECT COUNT(*) FROM %s %s /**leftjoin**/ /**where**/", q.ident, q.alias)
	}
	return fmt.Sprintf("SELECT COUNT(DISTINCT %[2]s.%[3]s) FROM %[1]s %[2]s /**leftjoin**/ %[4]s /**where**/",
		q.ident, q.alias, q.key, q.fanout)
}

func (q *composed) listTemplate() string {
	if q.fanout == "" {
		return fmt.Sprintf("SELECT /**select**/ FROM %s %s /**leftjoin**/ /**where**/ /**orderby**/", q.ident, q.alias)
	}
	return q.keysTemplate("")
}

// pageTemplate renders the keys of the page in a CTE and joins the full
// rows back to it. The orderby group appears in both halves.
func (q *composed) pageTemplate(d *dialect.Dialect) func() string {
	return func() string {
		if q.fanout != "" {
			return q.keysTemplate(window(d))
		}
		return fmt.Sprintf(
			"WITH %[4]s AS (SELECT %[2]s.%[3]s FROM %[1]s %[2]s /**leftjoin**/ /**where**/ /**orderby**/ %[5]s) "+
				"SELECT /**select**/ FROM %[4]s INNER JOIN %[1]s %[2]s ON %[2]s.%[3]s = %[4]s.%[3]s /**leftjoin**/ /**orderby**/",
			q.ident, q.alias, q.key, keysCTE, window(d))
	}
}

// keysTemplate selects the distinct matching keys in a CTE grouped by key
// and joins the full rows back to it. Sort columns other than the key are
// aggregated in the CTE and the outer statement orders by them. A non-empty
// window pages the keys.
func (q *composed) keysTemplate(window string) string {
	var cols, inner, outer []string
	for i, o := range q.sorts {
		col, _ := o.Column(q.alias) // validated by compose
		if o.Field == q.key && (o.Alias == "" || o.Alias == q.alias) {
			inner = append(inner, col+o.Direction())
			outer = append(outer, keysCTE+"."+q.key+o.Direction())
			continue
		}
		agg, name := "MIN", fmt.Sprintf("sort_%d", i+1)
		if o.Desc {
			agg = "MAX"
		}
		expr := agg + "(" + col + ")"
		cols = append(cols, ", "+expr+" AS "+name)
		inner = append(inner, expr+o.Direction())
		outer = append(outer, keysCTE+"."+name+o.Direction())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "WITH %[4]s AS (SELECT %[2]s.%[3]s%[5]s FROM %[1]s %[2]s /**leftjoin**/ %[6]s /**where**/ GROUP BY %[2]s.%[3]s",
		q.ident, q.alias, q.key, keysCTE, strings.Join(cols, ""), q.fanout)
	if window != "" {
		fmt.Fprintf(&b, " ORDER BY %s %s", strings.Join(inner, ", "), window)
	}
	fmt.Fprintf(&b, ") SELECT /**select**/ FROM %[4]s INNER JOIN %[1]s %[2]s ON %[2]s.%[3]s = %[4]s.%[3]s /**leftjoin**/ ORDER BY %[5]s",
		q.ident, q.alias, q.key, keysCTE, strings.Join(outer, ", "))
	return b.String()
}

func window(d *dialect.Dialect) string {
	if d.Window == dialect.WindowLimitOffset {
		return "LIMIT @limit OFFSET @offset"
	}
	return "OFFSET @offset ROWS FETCH NEXT @limit ROWS ONLY"
}
