// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// IngestService is the sole writer of posting rows; MatchService is
// strictly read-only over them.
package services
