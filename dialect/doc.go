// Package dialect isolates every difference between database families.
//
// A family is described by an Info value: parameter prefix and placeholder
// rendering, ordinal base of schema queries, the flags naming identity and
// row-version columns, type mapping, and the native command, parameter and
// connection factories. Code outside this package never branches on the
// family name; it asks the Info value instead.
//
// # Supported Families
//
//   - SQLServer: Microsoft SQL Server (driver registered by the caller)
//   - MySQL: MySQL/MariaDB
//   - Postgres: PostgreSQL
//   - SQLite: SQLite
//   - Oracle: Oracle Database (driver registered by the caller)
//
// Each family lives in its own sub-package and registers itself on import:
//
//	import (
//	    "github.com/syssam/typeddal/dialect"
//	    _ "github.com/syssam/typeddal/dialect/postgres"
//	)
//
//	info, err := dialect.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Schema Executors
//
// Info.Inspector returns the Inspector of the family. An Inspector reads the
// raw column rows of a table (RawColumn) with ordinals in the family's
// ordinal base and dialect-specific flags in RawColumn.Flags.
//
// # Type Mapping
//
// Provider type tokens are parsed into atlas schema types, and GoTypeOf maps
// those to the scan types understood by the schema/field package.
package dialect
