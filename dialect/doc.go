// Package dialect describes the SQL variations of the supported database
// engines and the connection entries used to reach them.
//
// # Supported Dialects
//
//   - SQLServer: Microsoft SQL Server, bracket quoting, @name parameters
//   - Postgres: PostgreSQL, double-quote quoting with lower-cased tables, $n parameters
//   - MySQL: MySQL/MariaDB, backtick quoting, ? parameters
//   - SQLite: SQLite, double-quote quoting without schema, ? parameters
//
// # Identifier Quoting
//
//	dialect.Quote("fin", "Bank", dialect.SQLServer) // [fin].[Bank]
//	dialect.Quote("fin", "Bank", dialect.Postgres)  // fin."bank"
//
// # Driver Interface
//
// The package defines the Driver interface implemented by dialect/sql:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Connection Entries
//
// Config is one entry of the process-wide connection list. It is rendered
// either as an ADO.NET-style connection string (BuildConnectionString) or
// as the DSN of the registered database/sql driver (DriverDSN):
//
//	cs, err := dialect.BuildConnectionString(dialect.Config{
//	    Dialect:  dialect.SQLServer,
//	    Server:   "db01",
//	    Database: "Finance",
//	    Username: "app",
//	    Password: "secret",
//	    Encrypt:  true,
//	})
//	// Server=db01;Database=Finance;User ID=app;Password=secret;Encrypt=True;
package dialect
