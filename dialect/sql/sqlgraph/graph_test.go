package sqlgraph

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/recordstore"
	"github.com/syssam/recordstore/audit"
	"github.com/syssam/recordstore/dialect"
	"github.com/syssam/recordstore/schema"
)

const (
	invoiceCols = "(Code, Name, Total, StatusId, ApprovedUser, ApprovedDateTime, CreatedUser, CreatedDateTime, ModifiedUser, ModifiedDateTime, IsDeleted)"
	lineCols    = "(InvoiceId, Item, Qty, CreatedUser, CreatedDateTime, ModifiedUser, ModifiedDateTime, IsDeleted)"

	pgInsertInvoice = `INSERT INTO sales."invoice" ` + invoiceCols +
		` VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING Id`
	pgInsertLine = `INSERT INTO sales."invoiceline" ` + lineCols +
		` VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING Id`
	pgUpdateLine = `UPDATE sales."invoiceline" SET InvoiceId = $1, Item = $2, Qty = $3, ` +
		`ModifiedUser = $4, ModifiedDateTime = $5, IsDeleted = $6 WHERE Id = $7`
)

var saveTime = time.Date(2024, 5, 1, 10, 0, 0, 0, audit.BusinessZone)

func newInvoice() *invoice {
	inv := &invoice{Entity: schema.Entity{Code: "INV-1", Name: "March"}, Total: 12.5}
	audit.StampForInsert(inv, "alice", saveTime)
	return inv
}

func TestSaveGraphInsert(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)
	inv := newInvoice()
	lines := []*invoiceLine{
		{Item: "pen", Qty: 2},
		{Item: "void", Qty: 1, Fields: audit.Fields{IsDeleted: true}},
		{ID: 40, InvoiceID: 7, Item: "ink", Qty: 1, Fields: audit.Fields{CreatedUser: "carol"}},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(pgInsertInvoice).
		WithArgs("INV-1", "March", 12.5, int64(0), "", nil, "alice", saveTime, "alice", saveTime, false).
		WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(7))
	mock.ExpectQuery(pgInsertLine).
		WithArgs(int64(7), "pen", 2, "alice", saveTime, "alice", saveTime, false).
		WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(41))
	mock.ExpectExec(pgUpdateLine).
		WithArgs(int64(7), "ink", 1, "alice", saveTime, false, int64(40)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var logs bytes.Buffer
	w := NewGraphWriter(drv, WithWriterLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	id, err := w.SaveGraph(context.Background(), invoiceTable, inv, NewChildren(lineTable, lines...))
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, int64(7), inv.ID)

	assert.Equal(t, int64(41), lines[0].ID)
	assert.Equal(t, int64(7), lines[0].InvoiceID)
	assert.Equal(t, inv.Fields, lines[0].Fields)
	assert.Zero(t, lines[1].ID, "new deleted children are skipped")
	assert.Equal(t, "carol", lines[2].CreatedUser)
	assert.Equal(t, "alice", lines[2].ModifiedUser)
	assert.Equal(t, saveTime, lines[2].ModifiedDateTime)

	require.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, logs.String(), "graph saved")
	assert.Contains(t, logs.String(), "rows=3")
}

func TestSaveGraphRollback(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)
	inv := newInvoice()
	lines := []*invoiceLine{{Item: "a"}, {Item: "b"}, {Item: "c"}, {Item: "d"}}
	boom := errors.New("disk full")

	mock.ExpectBegin()
	mock.ExpectQuery(pgInsertInvoice).WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(7))
	mock.ExpectQuery(pgInsertLine).WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(41))
	mock.ExpectQuery(pgInsertLine).WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(42))
	mock.ExpectQuery(pgInsertLine).WillReturnError(boom)
	mock.ExpectRollback()

	id, err := NewGraphWriter(drv).SaveGraph(context.Background(), invoiceTable, inv, NewChildren(lineTable, lines...))
	require.Error(t, err)
	assert.Zero(t, id)
	assert.True(t, recordstore.IsMutationError(err))
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, inv.ID)
	for _, l := range lines {
		assert.Zero(t, l.ID)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveGraphRollbackFailure(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)
	boom, rbErr := errors.New("insert failed"), errors.New("connection lost")

	mock.ExpectBegin()
	mock.ExpectQuery(pgInsertInvoice).WillReturnError(boom)
	mock.ExpectRollback().WillReturnError(rbErr)

	_, err := NewGraphWriter(drv).SaveGraph(context.Background(), invoiceTable, newInvoice())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var rb *recordstore.RollbackError
	require.ErrorAs(t, err, &rb)
	assert.ErrorIs(t, rb, rbErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveGraphUpdateNotFound(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)
	inv := newInvoice()
	inv.ID = 5
	audit.StampForUpdate(inv, "bob", saveTime.Add(time.Hour))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE sales."invoice" SET Code = $1, Name = $2, Total = $3, StatusId = $4, ApprovedUser = $5, ` +
		`ApprovedDateTime = $6, ModifiedUser = $7, ModifiedDateTime = $8, IsDeleted = $9 WHERE Id = $10`).
		WithArgs("INV-1", "March", 12.5, int64(0), "", nil, "bob", saveTime.Add(time.Hour), false, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := NewGraphWriter(drv).SaveGraph(context.Background(), invoiceTable, inv)
	require.Error(t, err)
	assert.True(t, recordstore.IsNotFound(err))
	assert.Equal(t, int64(5), inv.ID, "existing keys are kept")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveGraphDialects(t *testing.T) {
	t.Run("sqlserver", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLServer)
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO [sales].[Invoice] " + invoiceCols +
			" OUTPUT INSERTED.Id VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9, @p10, @p11)").
			WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(3))
		mock.ExpectCommit()

		id, err := NewGraphWriter(drv).SaveGraph(context.Background(), invoiceTable, newInvoice())
		require.NoError(t, err)
		assert.Equal(t, int64(3), id)
		require.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("mysql", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.MySQL)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO `sales`.`Invoice` " + invoiceCols +
			" VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)").
			WillReturnResult(sqlmock.NewResult(99, 1))
		mock.ExpectCommit()

		id, err := NewGraphWriter(drv).SaveGraph(context.Background(), invoiceTable, newInvoice())
		require.NoError(t, err)
		assert.Equal(t, int64(99), id)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSaveGraphConstraint(t *testing.T) {
	drv, mock := mockDriver(t, dialect.MySQL)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `sales`.`Invoice` " + invoiceCols + " VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'INV-1' for key 'UX_Invoice_Code'"})
	mock.ExpectRollback()

	_, err := NewGraphWriter(drv).SaveGraph(context.Background(), invoiceTable, newInvoice())
	require.Error(t, err)
	assert.True(t, recordstore.IsConstraintError(err))
	assert.True(t, IsUniqueConstraintError(err))
}

func TestSaveGraphContract(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)
	ctx := context.Background()
	w := NewGraphWriter(drv)

	_, err := w.SaveGraph(ctx, nil, newInvoice())
	assert.True(t, recordstore.IsContractError(err))
	_, err = w.SaveGraph(ctx, invoiceTable, newInvoice(), Children{})
	assert.True(t, recordstore.IsContractError(err))

	bad := &badNode{invoice: *newInvoice()}
	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = w.SaveGraph(ctx, invoiceTable, bad)
	assert.True(t, recordstore.IsContractError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

type badNode struct{ invoice }

func (b *badNode) Values() []Value { return []Value{{"Id", 1}} }
