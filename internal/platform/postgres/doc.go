// Package postgres provides PostgreSQL implementations of the persistence
// interfaces defined in internal/store and internal/task, using the pgx
// driver through database/sql.
package postgres
