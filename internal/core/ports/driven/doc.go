// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - PostingStore: Posting persistence, identity dedup and liveness
//   - CatalogStore: Canonical entity and synonym persistence
//   - ScopeStore: Per-scope ingestion run state
//   - UnresolvedStore: Accumulated unresolved reference signal
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
