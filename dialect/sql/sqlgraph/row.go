package sqlgraph

import (
	"context"
	"fmt"
	"time"

	"github.com/syssam/recordstore"
	"github.com/syssam/recordstore/audit"
	"github.com/syssam/recordstore/dialect"
	"github.com/syssam/recordstore/dialect/sql"
	"github.com/syssam/recordstore/schema"
)

// Get returns the row of spec with key id. Soft-deleted rows are not
// found unless spec includes them.
func Get[T any](ctx context.Context, drv dialect.Driver, spec *SearchSpec[T], id int64) (T, error) {
	var zero T
	if err := spec.validate(); err != nil {
		return zero, err
	}
	scoped := *spec
	scoped.Filters = append([]sql.Condition{sql.FieldEQ(spec.Table.Key(), id)}, spec.Filters...)
	page, err := Search(ctx, drv, &scoped, 0, 0)
	if err != nil {
		return zero, err
	}
	switch len(page.Items) {
	case 0:
		return zero, recordstore.NewNotFoundErrorWithID(spec.Table.Label(), id)
	case 1:
		return page.Items[0], nil
	default:
		return zero, recordstore.NewQueryError(spec.Table.Label(), "get",
			fmt.Errorf("%d rows share key %d", len(page.Items), id))
	}
}

// Exists reports whether a live row of table matches every condition.
//
//	taken, err := sqlgraph.Exists(ctx, drv, banks,
//	    sql.FieldEQ("Code", code), sql.FieldNEQ("Id", id))
func Exists(ctx context.Context, drv dialect.Driver, table *schema.Table, conds ...sql.Condition) (bool, error) {
	res, err := Count(ctx, drv, &SearchSpec[struct{}]{Table: table, Filters: conds}, 0)
	if err != nil {
		return false, err
	}
	return res.TotalCount > 0, nil
}

// SoftDelete flags the row of table with key id as deleted and stamps the
// modified pair. The row stays in the table.
func SoftDelete(ctx context.Context, drv dialect.Driver, table *schema.Table, id int64, user string, now time.Time) error {
	return setDeleted(ctx, drv, table, id, true, user, now)
}

// Restore clears the deleted flag of the row of table with key id and
// stamps the modified pair.
func Restore(ctx context.Context, drv dialect.Driver, table *schema.Table, id int64, user string, now time.Time) error {
	return setDeleted(ctx, drv, table, id, false, user, now)
}

func setDeleted(ctx context.Context, drv dialect.Driver, table *schema.Table, id int64, deleted bool, user string, now time.Time) error {
	op := "restore"
	if deleted {
		op = "soft delete"
	}
	if table == nil {
		return recordstore.NewContractError(op, "table is required")
	}
	d, err := dialect.Get(drv.Dialect())
	if err != nil {
		return err
	}
	c := sql.NewComposer()
	c.Set(audit.ColumnIsDeleted + " = " + c.Arg(deleted))
	c.Set(audit.ColumnModifiedUser + " = " + c.Arg(user))
	c.Set(audit.ColumnModifiedDateTime + " = " + c.Arg(now))
	if err := execUpdate(ctx, drv, d, table, c, id); err != nil {
		return recordstore.NewMutationError(table.Label(), op, err)
	}
	return nil
}

// Columns returns the column names of table as reported by the store,
// without reading any row.
func Columns(ctx context.Context, drv dialect.Driver, table *schema.Table) ([]string, error) {
	if table == nil {
		return nil, recordstore.NewContractError("table", "is required")
	}
	d, err := dialect.Get(drv.Dialect())
	if err != nil {
		return nil, err
	}
	var rows sql.Rows
	if err := drv.Query(ctx, "SELECT * FROM "+table.Ident(d)+" WHERE 1 = 0", []any{}, &rows); err != nil {
		return nil, recordstore.NewQueryError(table.Label(), "describe", err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, recordstore.NewQueryError(table.Label(), "describe", err)
	}
	return cols, nil
}
