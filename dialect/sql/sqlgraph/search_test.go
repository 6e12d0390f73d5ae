package sqlgraph

import (
	"context"
	dsql "database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/recordstore"
	"github.com/syssam/recordstore/dialect"
	"github.com/syssam/recordstore/dialect/sql"
)

func TestSearchPaged(t *testing.T) {
	tests := []struct {
		dialect   string
		count     string
		page      string
		countArgs []driver.Value
		pageArgs  []driver.Value
	}{
		{
			dialect: dialect.Postgres,
			count:   `SELECT COUNT(*) FROM fin."bank" t WHERE t.IsDeleted = $1 AND t.Name LIKE $2 ESCAPE '!'`,
			page: `WITH page_keys AS (SELECT t.Id FROM fin."bank" t WHERE t.IsDeleted = $1 AND t.Name LIKE $2 ESCAPE '!' ` +
				`ORDER BY t.Code ASC, t.Id ASC OFFSET $3 ROWS FETCH NEXT $4 ROWS ONLY) ` +
				`SELECT t.Id, t.Code, t.Name FROM page_keys INNER JOIN fin."bank" t ON t.Id = page_keys.Id ORDER BY t.Code ASC, t.Id ASC`,
			countArgs: []driver.Value{false, "%Acme%"},
			pageArgs:  []driver.Value{false, "%Acme%", 10, 10},
		},
		{
			dialect: dialect.MySQL,
			count:   "SELECT COUNT(*) FROM `fin`.`Bank` t WHERE t.IsDeleted = ? AND t.Name LIKE ? ESCAPE '!'",
			page: "WITH page_keys AS (SELECT t.Id FROM `fin`.`Bank` t WHERE t.IsDeleted = ? AND t.Name LIKE ? ESCAPE '!' " +
				"ORDER BY t.Code ASC, t.Id ASC LIMIT ? OFFSET ?) " +
				"SELECT t.Id, t.Code, t.Name FROM page_keys INNER JOIN `fin`.`Bank` t ON t.Id = page_keys.Id ORDER BY t.Code ASC, t.Id ASC",
			countArgs: []driver.Value{false, "%Acme%"},
			pageArgs:  []driver.Value{false, "%Acme%", 10, 10},
		},
		{
			dialect: dialect.SQLServer,
			count:   "SELECT COUNT(*) FROM [fin].[Bank] t WHERE t.IsDeleted = @p1 AND t.Name LIKE @p2 ESCAPE '!'",
			page: "WITH page_keys AS (SELECT t.Id FROM [fin].[Bank] t WHERE t.IsDeleted = @p1 AND t.Name LIKE @p2 ESCAPE '!' " +
				"ORDER BY t.Code ASC, t.Id ASC OFFSET @offset ROWS FETCH NEXT @limit ROWS ONLY) " +
				"SELECT t.Id, t.Code, t.Name FROM page_keys INNER JOIN [fin].[Bank] t ON t.Id = page_keys.Id ORDER BY t.Code ASC, t.Id ASC",
			countArgs: []driver.Value{dsql.Named("p1", false), dsql.Named("p2", "%Acme%")},
			pageArgs:  []driver.Value{dsql.Named("p1", false), dsql.Named("p2", "%Acme%"), dsql.Named("offset", 10), dsql.Named("limit", 10)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			drv, mock := mockDriver(t, tt.dialect)
			mock.ExpectQuery(tt.count).
				WithArgs(tt.countArgs...).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
			mock.ExpectQuery(tt.page).
				WithArgs(tt.pageArgs...).
				WillReturnRows(bankRows(11, 20))

			page, err := Search(context.Background(), drv, bankSpec(sql.StringField("Name").Contains("Acme")), 10, 2)
			require.NoError(t, err)
			assert.Len(t, page.Items, 10)
			assert.Equal(t, "B11", page.Items[0].Code)
			assert.Equal(t, PaginationResult{PageSize: 10, PageNo: 2, PageCount: 3, TotalCount: 25}, page.PaginationResult)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSearchUnpaged(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)
	mock.ExpectQuery(`SELECT t.Id, t.Code, t.Name FROM fin."bank" t WHERE t.IsDeleted = $1 ORDER BY t.Code ASC, t.Id ASC`).
		WithArgs(false).
		WillReturnRows(bankRows(1, 3))

	page, err := Search(context.Background(), drv, bankSpec(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, PaginationResult{PageCount: 3, TotalCount: 3}, page.PaginationResult)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchBeyondLastPage(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)
	mock.ExpectQuery(`SELECT COUNT(*) FROM fin."bank" t WHERE t.IsDeleted = $1`).
		WithArgs(false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	page, err := Search(context.Background(), drv, bankSpec(), 10, 4)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 3, page.PageCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchJoinsAndIncludeDeleted(t *testing.T) {
	drv, mock := mockDriver(t, dialect.SQLServer)
	spec := &SearchSpec[*bank]{
		Table:   bankTable,
		Alias:   "bk",
		Columns: []string{"bk.Id", "bk.Code", "br.Name"},
		Joins: []Join{{
			Table: branchTable,
			Alias: "br",
			On:    "br.BankId = bk.Id AND br.IsHead = @head",
			Args:   []sql.NamedArg{sql.Named("head", true)},
			Lookup: true,
		}},
		Filters:        []sql.Condition{sql.FieldEQ("City", "Jakarta").On("br")},
		Sorts:          []sql.Sort{sql.Desc("Id")},
		IncludeDeleted: true,
		Scan:           scanBank,
	}
	mock.ExpectQuery("SELECT bk.Id, bk.Code, br.Name FROM [fin].[Bank] bk " +
		"LEFT JOIN [fin].[Branch] br ON br.BankId = bk.Id AND br.IsHead = @head " +
		"WHERE br.City = @p1 ORDER BY bk.Id DESC").
		WithArgs(dsql.Named("head", true), dsql.Named("p1", "Jakarta")).
		WillReturnRows(bankRows(1, 1))

	page, err := Search(context.Background(), drv, spec, 0, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchGroupsKeysOfRepeatingJoins(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)
	spec := bankSpec(sql.FieldEQ("City", "Jakarta").On("br"))
	spec.Joins = []Join{{Table: branchTable, Alias: "br", On: "br.BankId = t.Id"}}
	mock.ExpectQuery(`SELECT COUNT(DISTINCT t.Id) FROM fin."bank" t ` +
		`LEFT JOIN fin."branch" br ON br.BankId = t.Id WHERE t.IsDeleted = $1 AND br.City = $2`).
		WithArgs(false, "Jakarta").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(15))
	mock.ExpectQuery(`WITH page_keys AS (SELECT t.Id, MIN(t.Code) AS sort_1 FROM fin."bank" t ` +
		`LEFT JOIN fin."branch" br ON br.BankId = t.Id WHERE t.IsDeleted = $1 AND br.City = $2 ` +
		`GROUP BY t.Id ORDER BY MIN(t.Code) ASC, t.Id ASC OFFSET $3 ROWS FETCH NEXT $4 ROWS ONLY) ` +
		`SELECT t.Id, t.Code, t.Name FROM page_keys INNER JOIN fin."bank" t ON t.Id = page_keys.Id ` +
		`ORDER BY page_keys.sort_1 ASC, page_keys.Id ASC`).
		WithArgs(false, "Jakarta", 10, 10).
		WillReturnRows(bankRows(11, 15))

	page, err := Search(context.Background(), drv, spec, 10, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, int64(15), page.TotalCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchContractErrors(t *testing.T) {
	tests := []struct {
		name     string
		spec     *SearchSpec[*bank]
		size, no int
	}{
		{"negative size", bankSpec(), -1, 1},
		{"negative page", bankSpec(), 0, -1},
		{"paged without page", bankSpec(), 10, 0},
		{"nil spec", nil, 10, 1},
		{"no scan", &SearchSpec[*bank]{Table: bankTable}, 10, 1},
		{"bad operator", bankSpec(&sql.Filter{Field: "Code", Op: "~", Value: "x"}), 10, 1},
		{"bad field", bankSpec(sql.FieldEQ("Code; --", 1)), 10, 1},
		{"bad sort", &SearchSpec[*bank]{Table: bankTable, Scan: scanBank, Sorts: []sql.Sort{sql.Asc("1")}}, 0, 0},
		{"reserved alias", &SearchSpec[*bank]{Table: bankTable, Scan: scanBank, Alias: "page_keys"}, 10, 1},
		{"join without condition", &SearchSpec[*bank]{Table: bankTable, Scan: scanBank, Joins: []Join{{Table: branchTable, Alias: "br"}}}, 10, 1},
		{"bad alias", &SearchSpec[*bank]{Table: bankTable, Scan: scanBank, Alias: "t; DROP TABLE x"}, 10, 1},
		{"bad join alias", &SearchSpec[*bank]{Table: bankTable, Scan: scanBank, Joins: []Join{{Table: branchTable, Alias: "br x", On: "1 = 1"}}}, 10, 1},
		{"join alias reused", &SearchSpec[*bank]{Table: bankTable, Scan: scanBank, Joins: []Join{
			{Table: branchTable, Alias: "br", On: "br.BankId = t.Id"},
			{Table: branchTable, Alias: "br", On: "br.BankId = t.Id", Lookup: true},
		}}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv, mock := mockDriver(t, dialect.Postgres)
			_, err := Search(context.Background(), drv, tt.spec, tt.size, tt.no)
			require.Error(t, err)
			assert.True(t, recordstore.IsContractError(err), err.Error())
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSearchQueryError(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)
	boom := errors.New("connection reset")
	mock.ExpectQuery(`SELECT COUNT(*) FROM fin."bank" t WHERE t.IsDeleted = $1`).WillReturnError(boom)

	_, err := Search(context.Background(), drv, bankSpec(), 10, 1)
	require.Error(t, err)
	assert.True(t, recordstore.IsQueryError(err))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fin.Bank (count)")
}

func TestCount(t *testing.T) {
	drv, mock := mockDriver(t, dialect.MySQL)
	mock.ExpectQuery("SELECT COUNT(*) FROM `fin`.`Bank` t WHERE t.IsDeleted = ? AND t.Id IN (?, ?, ?)").
		WithArgs(false, int64(1), int64(2), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	res, err := Count(context.Background(), drv, bankSpec(sql.FieldIn[int64]("Id", 1, 2, 3)), 2)
	require.NoError(t, err)
	assert.Equal(t, PaginationResult{PageSize: 2, PageCount: 2, TotalCount: 3}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPaginationResult(t *testing.T) {
	tests := []struct {
		size, no  int
		total     int64
		wantPages int
		offset    int
	}{
		{10, 1, 0, 0, 0},
		{10, 2, 25, 3, 10},
		{10, 3, 30, 3, 20},
		{1, 5, 7, 7, 4},
		{0, 0, 7, 7, 0},
	}
	for _, tt := range tests {
		p := NewPaginationResult(tt.size, tt.no, tt.total)
		assert.Equal(t, tt.wantPages, p.PageCount, "size=%d total=%d", tt.size, tt.total)
		assert.Equal(t, tt.offset, p.Offset())
	}
}

func TestLoadChildren(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)
	mock.ExpectQuery(`SELECT t.Id, t.InvoiceId, t.Item FROM sales."invoiceline" t ` +
		`WHERE t.IsDeleted = $1 AND t.InvoiceId IN ($2, $3, $4) ORDER BY t.Id ASC`).
		WithArgs(false, int64(7), int64(8), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"Id", "InvoiceId", "Item"}).
			AddRow(1, 9, "pen").
			AddRow(2, 7, "ink").
			AddRow(3, 9, "pad"))

	spec := &SearchSpec[*invoiceLine]{
		Table:   lineTable,
		Columns: []string{"t.Id", "t.InvoiceId", "t.Item"},
		Scan: func(rows sql.ColumnScanner) (*invoiceLine, error) {
			l := &invoiceLine{}
			return l, rows.Scan(&l.ID, &l.InvoiceID, &l.Item)
		},
	}
	groups, err := LoadChildren(context.Background(), drv, spec, "InvoiceId", []int64{7, 8, 9},
		func(l *invoiceLine) int64 { return l.InvoiceID })
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Len(t, groups[0], 1)
	assert.Empty(t, groups[1])
	assert.Equal(t, []string{"pen", "pad"}, []string{groups[2][0].Item, groups[2][1].Item})
	require.NoError(t, mock.ExpectationsWereMet())

	groups, err = LoadChildren(context.Background(), drv, spec, "InvoiceId", nil,
		func(l *invoiceLine) int64 { return l.InvoiceID })
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestAttach(t *testing.T) {
	drv, mock := mockDriver(t, dialect.MySQL)
	mock.ExpectQuery("SELECT t.Id, t.InvoiceId FROM `sales`.`InvoiceLine` t WHERE t.IsDeleted = ? AND t.InvoiceId IN (?, ?) ORDER BY t.Id ASC").
		WithArgs(false, int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"Id", "InvoiceId"}).AddRow(10, 2).AddRow(11, 2))

	invoices := []*invoice{{Entity: schemaEntity(1)}, {Entity: schemaEntity(2)}}
	lines := map[int64][]*invoiceLine{}
	err := Attach(context.Background(), drv, invoices,
		func(i *invoice) int64 { return i.ID },
		&SearchSpec[*invoiceLine]{
			Table:   lineTable,
			Columns: []string{"t.Id", "t.InvoiceId"},
			Scan: func(rows sql.ColumnScanner) (*invoiceLine, error) {
				l := &invoiceLine{}
				return l, rows.Scan(&l.ID, &l.InvoiceID)
			},
		},
		"InvoiceId",
		func(l *invoiceLine) int64 { return l.InvoiceID },
		func(i *invoice, ls []*invoiceLine) { lines[i.ID] = ls })
	require.NoError(t, err)
	assert.Empty(t, lines[1])
	assert.Len(t, lines[2], 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
