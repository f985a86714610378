package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Ingestion Errors.

	// ErrInvalidPostingRecord indicates a scraped record is missing a
	// required field. Per-record: the containing batch continues.
	ErrInvalidPostingRecord = errors.New("invalid posting record")

	// Catalog Errors.

	// ErrUnknownEntityKind indicates a reference kind outside the
	// company/department/location vocabulary.
	ErrUnknownEntityKind = errors.New("unknown entity kind")

	// ErrModalityAsLocation indicates an attempt to register a workplace
	// modality term ("remote", "hybrid", ...) as a location synonym.
	// Modality is the workplace_type attribute, never a location.
	ErrModalityAsLocation = errors.New("workplace modality is not a location")

	// Matching Errors.

	// ErrDimensionMismatch indicates a query vector whose length differs
	// from the stored embedding dimensionality. The match call fails
	// outright; no partial ranking is produced.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
