// Package schema describes where entity kinds are stored.
//
// A Table names the schema, the table and the key column of one entity
// kind. The quoted identifier for every dialect is computed when the
// Table is built:
//
//	var Bank = schema.MustNewTable("fin", "Bank")
//
//	Bank.Ident(dialect.MustGet(dialect.SQLServer)) // [fin].[Bank]
//
// A Registry maps entity kinds to their tables. It is built once at
// startup and is read-only afterwards:
//
//	reg, err := schema.NewRegistry(
//	    schema.Register("bank", Bank),
//	    schema.Register("branch", Branch),
//	)
package schema
