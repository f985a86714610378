// Package domain defines the core business entities for Jobdex.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Catalog: Immutable canonical vocabulary with synonym resolution
//   - CanonicalEntity: An authoritative company, department or location
//   - Posting: A deduplicated job listing with liveness tracking
//   - RawPosting: One scraped record as delivered by an external scraper
//   - ScrapeBatch: Everything one scrape of an employer page produced
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
