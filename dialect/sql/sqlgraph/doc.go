// Package sqlgraph reads and writes records and their child collections
// on top of the dialect/sql composer.
//
// Search runs a paginated search. For a paged call it issues a COUNT
// statement and a statement that windows the matching keys in a CTE and
// joins the full rows back to them:
//
//	page, err := sqlgraph.Search(ctx, drv, &sqlgraph.SearchSpec[*Bank]{
//	    Table:   tables.Bank,
//	    Filters: []sql.Condition{sql.StringField("Name").Contains("central")},
//	    Sorts:   []sql.Sort{sql.Asc("Code")},
//	    Scan:    scanBank,
//	}, 10, 2)
//
// Every read adds IsDeleted = false unless SearchSpec.IncludeDeleted is set.
//
// GraphWriter.SaveGraph persists a root record and its ordered child
// collections in one transaction on a dedicated connection:
//
//	id, err := w.SaveGraph(ctx, tables.Invoice, inv,
//	    sqlgraph.NewChildren(tables.InvoiceLine, inv.Lines...))
package sqlgraph
