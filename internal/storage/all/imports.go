// Package all wires every built-in storage backend into the storage factory.
//
// Importing it for side effects registers these kinds:
//
//   - "postgres" (clinicianmart/internal/storage/postgres)
//   - "mssql"    (clinicianmart/internal/storage/mssql)
//   - "mysql"    (clinicianmart/internal/storage/mysql)
//   - "sqlite"   (clinicianmart/internal/storage/sqlite)
//
// A binary that needs only some backends can import those packages directly
// instead.
package all

import (
	_ "clinicianmart/internal/storage/mssql"
	_ "clinicianmart/internal/storage/mysql"
	_ "clinicianmart/internal/storage/postgres"
	_ "clinicianmart/internal/storage/sqlite"
)
