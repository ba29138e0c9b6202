// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories with the storage package. Importing it makes the following
// kinds available to storage.New:
//
//   - "sqlite"   (batchetl/internal/storage/sqlite)
//   - "postgres" (batchetl/internal/storage/postgres)
//   - "mysql"    (batchetl/internal/storage/mysql)
//   - "mssql"    (batchetl/internal/storage/mssql)
//
// Typical usage, in cmd/etl:
//
//	import _ "batchetl/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Store.Kind, Path: cfg.Store.Path, Table: table})
//
// A binary that needs only a subset of backends imports those packages
// directly instead.
package all

import (
	_ "batchetl/internal/storage/mssql"
	_ "batchetl/internal/storage/mysql"
	_ "batchetl/internal/storage/postgres"
	_ "batchetl/internal/storage/sqlite"
)
