package sqlgraph

import (
	"fmt"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/syssam/recordstore/audit"
	"github.com/syssam/recordstore/dialect/sql"
	"github.com/syssam/recordstore/schema"
)

var (
	bankTable    = schema.MustNewTable("fin", "Bank")
	branchTable  = schema.MustNewTable("fin", "Branch")
	invoiceTable = schema.MustNewTable("sales", "Invoice")
	lineTable    = schema.MustNewTable("sales", "InvoiceLine")
)

// squash compares statements ignoring runs of whitespace left by empty
// template groups.
var squash = sqlmock.QueryMatcherFunc(func(expected, actual string) error {
	if e, a := strings.Join(strings.Fields(expected), " "), strings.Join(strings.Fields(actual), " "); e != a {
		return fmt.Errorf("query mismatch:\n  want: %s\n  got:  %s", e, a)
	}
	return nil
})

func mockDriver(t *testing.T, name string) (*sql.Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(squash))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sql.OpenDB(name, db), mock
}

type bank struct {
	schema.Entity
}

func scanBank(rows sql.ColumnScanner) (*bank, error) {
	b := &bank{}
	if err := rows.Scan(&b.ID, &b.Code, &b.Name); err != nil {
		return nil, err
	}
	return b, nil
}

func bankSpec(filters ...sql.Condition) *SearchSpec[*bank] {
	return &SearchSpec[*bank]{
		Table:   bankTable,
		Columns: []string{"t.Id", "t.Code", "t.Name"},
		Filters: filters,
		Sorts:   []sql.Sort{sql.Asc("Code")},
		Scan:    scanBank,
	}
}

func bankRows(from, to int) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"Id", "Code", "Name"})
	for i := from; i <= to; i++ {
		rows.AddRow(int64(i), fmt.Sprintf("B%02d", i), fmt.Sprintf("Acme %d", i))
	}
	return rows
}

type invoice struct {
	schema.Entity
	Total float64
	audit.WorkflowFields
}

func (i *invoice) Values() []Value {
	return []Value{{"Code", i.Code}, {"Name", i.Name}, {"Total", i.Total}}
}

type invoiceLine struct {
	ID        int64
	InvoiceID int64
	Item      string
	Qty       int
	audit.Fields
}

func (l *invoiceLine) Key() int64 { return l.ID }
func (l *invoiceLine) SetKey(id int64) { l.ID = id }
func (l *invoiceLine) SetParentKey(id int64) { l.InvoiceID = id }
func (l *invoiceLine) Values() []Value {
	return []Value{{"InvoiceId", l.InvoiceID}, {"Item", l.Item}, {"Qty", l.Qty}}
}

func schemaEntity(id int64) schema.Entity {
	return schema.Entity{ID: id}
}
