// Package recordstore is a persistence engine for business-entity
// repositories. It composes parameterized search, filter, sort and
// pagination queries across SQL Server, PostgreSQL, MySQL and SQLite,
// stamps audit and soft-delete columns uniformly, and commits
// header-plus-detail record graphs in a single transaction.
//
// The root package holds the error taxonomy shared by every layer:
//
//   - ConfigurationError: unknown dialect, role or entity kind, or a
//     connection entry missing a required field.
//   - ContractError: bad paging arguments or a filter outside the
//     operator whitelist, detected before any SQL is built.
//   - QueryError and MutationError: store failures, never retried.
//   - NotFoundError: an update or lookup addressed a missing key.
//
// # Sub-packages
//
//   - dialect: dialect descriptors, identifier quoting, connection strings
//   - dialect/sql: driver, query composer, conditions, connection provider
//   - dialect/sql/sqlgraph: paginated search and the graph writer
//   - schema: table descriptors and the entity registry
//   - audit: audit stamping and soft-delete filtering
//   - repository: a typed façade over the above for one entity kind
//   - config: configuration loading
//   - cmd/recordctl: operator command line
package recordstore
