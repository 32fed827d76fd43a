// Package store provides the SQLite-backed local store of one user.
//
// A Store is a named, versioned container of typed collections. The layout
// comes from internal/schema: every collection becomes a table with an
// autoincrement primary key and the secondary indexes the schema declares.
// Opening is idempotent; reopening a file attaches to the same contents.
//
// Collection[T] exposes one table as typed records. It satisfies
// paginate.Source, so any collection can be paged, sorted, filtered and
// counted without collection-specific query code.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// # Errors
//
// Composite unique index violations surface as ErrUniqueViolation. Every
// other driver error is wrapped with the failing operation and otherwise
// left untouched; the store never retries.
package store
