// Package sql implements the dialect.Driver on top of database/sql and the
// runtime query composition used by the search and graph writer layers.
//
// # Query Composition
//
// A Composer collects clause fragments into groups and substitutes them
// into a Template at /**select**/, /**leftjoin**/, /**where**/,
// /**orderby**/ and /**set**/ placeholders:
//
//	var searchTmpl = sql.MustParseTemplate(
//	    "SELECT /**select**/ FROM [fin].[Bank] t /**leftjoin**/ /**where**/ /**orderby**/")
//
//	c := sql.NewComposer()
//	c.Select("t.Id", "t.Code", "t.Name")
//	if err := sql.Where(c, "t", sql.StringField("Name").Contains("central")); err != nil {
//	    return err
//	}
//	query, args, err := c.Query(d, searchTmpl)
//
// Fragments reference parameters by @name. Query rebinds them for the
// dialect: @name with sql.NamedArg for SQL Server, $n for PostgreSQL and ?
// for MySQL and SQLite.
//
// # Conditions
//
// Condition has two implementations. A *Filter is declarative (field,
// operator from a closed whitelist, value) and renders with bound
// parameters only. A *Raw is a trusted fragment written by repository code.
//
//	sql.FieldEQ("StatusId", 2)                 // t.StatusId = @p1
//	sql.FieldEQ("ApprovedBy", nil)             // t.ApprovedBy IS NULL
//	sql.FieldIn("BranchId", 1, 2)              // t.BranchId IN (@p1, @p2)
//	sql.FieldBetween("DocDate", from, to)      // t.DocDate BETWEEN @p1 AND @p2
//	sql.StringField("Code").HasPrefix("INV")   // t.Code LIKE @p1 ESCAPE '!'
//	sql.Expr("t.Amount > t.PaidAmount")        // (t.Amount > t.PaidAmount)
//
// # Connections
//
// Provider resolves a configured role to an open driver:
//
//	p := sql.NewProvider(cfg.ConnectionList(), sql.WithLogger(logger))
//	drv, err := p.Open(ctx, "primary")
//
// Transactions started by Driver.Tx run on a dedicated pooled connection
// that is released on commit or rollback.
package sql
