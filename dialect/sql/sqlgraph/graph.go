package sqlgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/recordstore"
	"github.com/syssam/recordstore/audit"
	"github.com/syssam/recordstore/dialect"
	"github.com/syssam/recordstore/dialect/sql"
	"github.com/syssam/recordstore/schema"
)

// Value is a column and the value written to it.
type Value struct {
	Column string
	Value  any
}

// Node is a record the graph writer can persist.
type Node interface {
	audit.Auditable
	// Key returns the surrogate key; zero means the record is new.
	Key() int64
	SetKey(int64)
	// Values returns the business columns to write. The key, audit and
	// workflow columns are added by the writer.
	Values() []Value
}

// ChildNode is a record owned by the root of a graph.
type ChildNode interface {
	Node
	// SetParentKey sets the foreign key referencing the root.
	SetParentKey(int64)
}

// Children is an ordered collection of child records stored in one table.
type Children struct {
	Table *schema.Table
	Nodes []ChildNode
}

// NewChildren returns the collection of nodes stored in table.
func NewChildren[C ChildNode](table *schema.Table, nodes ...C) Children {
	c := Children{Table: table, Nodes: make([]ChildNode, len(nodes))}
	for i, n := range nodes {
		c.Nodes[i] = n
	}
	return c
}

// GraphWriter persists a root record and its child collections in one
// transaction.
type GraphWriter struct {
	drv    dialect.Driver
	logger *slog.Logger
}

// WriterOption configures the GraphWriter.
type WriterOption func(*GraphWriter)

// WithWriterLogger sets the logger. Default discards.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *GraphWriter) {
		w.logger = logger
	}
}

// NewGraphWriter returns a writer over drv.
func NewGraphWriter(drv dialect.Driver, opts ...WriterOption) *GraphWriter {
	w := &GraphWriter{drv: drv, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SaveGraph writes root and then every child of every collection in order,
// inside one transaction, and returns the root key.
//
// A root with key 0 is inserted and receives the generated key; otherwise
// it is updated by key. New children take the root's created and modified
// stamps and its key as foreign key; existing children take its modified
// stamps. New children already flagged deleted are skipped.
//
// Any failure rolls the transaction back, restores the keys of new records
// to 0 and returns a *recordstore.MutationError wrapping the cause.
func (w *GraphWriter) SaveGraph(ctx context.Context, table *schema.Table, root Node, children ...Children) (int64, error) {
	if table == nil || root == nil {
		return 0, recordstore.NewContractError("graph", "table and root are required")
	}
	for _, c := range children {
		if c.Table == nil {
			return 0, recordstore.NewContractError("graph", "child collection without table")
		}
	}
	d, err := dialect.Get(w.drv.Dialect())
	if err != nil {
		return 0, err
	}
	logger := w.logger.With(
		slog.String("op", uuid.NewString()),
		slog.String("table", table.Label()))
	start := time.Now()

	restore := newKeys(root, children)
	tx, err := w.drv.Tx(ctx)
	if err != nil {
		return 0, recordstore.NewMutationError(table.Label(), "save graph", err)
	}
	defer func() {
		if v := recover(); v != nil {
			restore()
			_ = tx.Rollback()
			panic(v)
		}
	}()
	written, err := writeGraph(ctx, tx, d, table, root, children)
	if err != nil {
		restore()
		if rerr := tx.Rollback(); rerr != nil {
			err = errors.Join(err, &recordstore.RollbackError{Err: rerr})
		}
		logger.WarnContext(ctx, "graph save rolled back",
			slog.Int("written", written),
			slog.Any("error", err))
		return 0, recordstore.NewMutationError(table.Label(), "save graph", err)
	}
	if err := tx.Commit(); err != nil {
		restore()
		return 0, recordstore.NewMutationError(table.Label(), "save graph", fmt.Errorf("commit: %w", err))
	}
	logger.DebugContext(ctx, "graph saved",
		slog.Int64("key", root.Key()),
		slog.Int("rows", written),
		slog.Duration("took", time.Since(start)))
	return root.Key(), nil
}

// writeGraph performs the writes of SaveGraph and reports how many rows it
// wrote before returning.
func writeGraph(ctx context.Context, tx dialect.ExecQuerier, d *dialect.Dialect, table *schema.Table, root Node, children []Children) (int, error) {
	written := 0
	if root.Key() == 0 {
		id, err := insertNode(ctx, tx, d, table, root)
		if err != nil {
			return written, err
		}
		root.SetKey(id)
	} else if err := updateNode(ctx, tx, d, table, root); err != nil {
		return written, err
	}
	written++
	for _, coll := range children {
		for i, child := range coll.Nodes {
			if child == nil {
				return written, recordstore.NewContractError("graph", "%s child %d is nil", coll.Table.Label(), i)
			}
			if child.Key() == 0 {
				if child.AuditFields().IsDeleted {
					continue
				}
				audit.CopyStamps(child, root)
				child.SetParentKey(root.Key())
				id, err := insertNode(ctx, tx, d, coll.Table, child)
				if err != nil {
					return written, err
				}
				child.SetKey(id)
			} else {
				audit.CopyModifiedStamps(child, root)
				if err := updateNode(ctx, tx, d, coll.Table, child); err != nil {
					return written, err
				}
			}
			written++
		}
	}
	return written, nil
}

// newKeys returns a func resetting the keys of the records that are new at
// call time.
func newKeys(root Node, children []Children) func() {
	var fresh []Node
	if root.Key() == 0 {
		fresh = append(fresh, root)
	}
	for _, c := range children {
		for _, n := range c.Nodes {
			if n != nil && n.Key() == 0 {
				fresh = append(fresh, n)
			}
		}
	}
	return func() {
		for _, n := range fresh {
			n.SetKey(0)
		}
	}
}

func insertNode(ctx context.Context, tx dialect.ExecQuerier, d *dialect.Dialect, table *schema.Table, n Node) (int64, error) {
	values, err := rowValues(n, table.Key(), true)
	if err != nil {
		return 0, err
	}
	c := sql.NewComposer()
	cols := make([]string, len(values))
	markers := make([]string, len(values))
	for i, v := range values {
		cols[i], markers[i] = v.Column, c.Arg(v.Value)
	}
	key := table.Key()
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s)", table.Ident(d), strings.Join(cols, ", "))
	if d.Returning == dialect.ReturnOutput {
		b.WriteString(" OUTPUT INSERTED." + key)
	}
	fmt.Fprintf(&b, " VALUES (%s)", strings.Join(markers, ", "))
	if d.Returning == dialect.ReturnClause {
		b.WriteString(" RETURNING " + key)
	}
	tpl, err := sql.ParseTemplate(b.String())
	if err != nil {
		return 0, err
	}
	query, args, err := c.Query(d, tpl)
	if err != nil {
		return 0, err
	}
	if d.Returning == dialect.ReturnLastInsertID {
		var res sql.Result
		if err := tx.Exec(ctx, query, args, &res); err != nil {
			return 0, classify(err)
		}
		return res.LastInsertId()
	}
	var rows sql.Rows
	if err := tx.Query(ctx, query, args, &rows); err != nil {
		return 0, classify(err)
	}
	id, err := sql.ScanInt64(rows)
	if err != nil {
		return 0, classify(err)
	}
	return id, nil
}

func updateNode(ctx context.Context, tx dialect.ExecQuerier, d *dialect.Dialect, table *schema.Table, n Node) error {
	values, err := rowValues(n, table.Key(), false)
	if err != nil {
		return err
	}
	c := sql.NewComposer()
	for _, v := range values {
		c.Set(v.Column + " = " + c.Arg(v.Value))
	}
	return execUpdate(ctx, tx, d, table, c, n.Key())
}

// execUpdate runs the set group of c against the row of table with key id.
func execUpdate(ctx context.Context, tx dialect.ExecQuerier, d *dialect.Dialect, table *schema.Table, c *sql.Composer, id int64) error {
	if err := sql.Where(c, "", sql.FieldEQ(table.Key(), id)); err != nil {
		return err
	}
	tpl, err := sql.ParseTemplate("UPDATE " + table.Ident(d) + " /**set**/ /**where**/")
	if err != nil {
		return err
	}
	query, args, err := c.Query(d, tpl)
	if err != nil {
		return err
	}
	var res sql.Result
	if err := tx.Exec(ctx, query, args, &res); err != nil {
		return classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return recordstore.NewNotFoundErrorWithID(table.Label(), id)
	}
	return nil
}

// rowValues returns the columns written for n: its business values, the
// workflow block if any, and the audit columns. Inserts write both stamp
// pairs; updates leave the created pair untouched.
func rowValues(n Node, key string, insert bool) ([]Value, error) {
	f := n.AuditFields()
	values := append([]Value(nil), n.Values()...)
	if wf, ok := n.(audit.Workflowable); ok {
		w := wf.Workflow()
		var approved any
		if w.ApprovedDateTime != nil {
			approved = *w.ApprovedDateTime
		}
		values = append(values,
			Value{audit.ColumnStatusID, w.StatusID},
			Value{audit.ColumnApprovedUser, w.ApprovedUser},
			Value{audit.ColumnApprovedDateTime, approved})
	}
	if insert {
		values = append(values,
			Value{audit.ColumnCreatedUser, f.CreatedUser},
			Value{audit.ColumnCreatedDateTime, f.CreatedDateTime})
	}
	values = append(values,
		Value{audit.ColumnModifiedUser, f.ModifiedUser},
		Value{audit.ColumnModifiedDateTime, f.ModifiedDateTime},
		Value{audit.ColumnIsDeleted, f.IsDeleted})
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		switch col := strings.ToLower(v.Column); {
		case !sql.IsIdentifier(v.Column):
			return nil, recordstore.NewContractError("column", "%q is not a valid column name", v.Column)
		case strings.EqualFold(v.Column, key):
			return nil, recordstore.NewContractError("column", "key column %q is assigned by the store", v.Column)
		case seen[col]:
			return nil, recordstore.NewContractError("column", "%q is written twice", v.Column)
		default:
			seen[col] = true
		}
	}
	return values, nil
}
