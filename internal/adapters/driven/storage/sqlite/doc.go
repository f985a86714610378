// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - PostingStore: Job posting persistence and lifecycle
//   - CatalogStore: Canonical entity and synonym persistence
//   - ScopeStore: Per-scope ingestion run state
//   - UnresolvedStore: Queue of catalog lookups that missed
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Posting identity is enforced here: identity_hash and
// url are both unique, and a write that collides on either refreshes the
// existing row instead of failing.
//
// # Data Location
//
// By default, the database is stored at ~/.jobdex/data/jobdex.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
