package domain

import "time"

// ScrapeBatch carries everything one scrape of a single employer page
// produced. The scraper must state explicitly whether it enumerated the
// full page: completeness is never inferred downstream.
type ScrapeBatch struct {
	// Scope identifies the employer page the batch was scraped from.
	Scope string `json:"scope"`

	// Complete is true when the scraper saw every posting on the page.
	// Incomplete batches never trigger deactivation of missing postings.
	Complete bool `json:"complete"`

	// Postings are the scraped records, in scrape order.
	Postings []RawPosting `json:"postings"`
}

// SkippedRecord describes one raw posting the pipeline could not ingest.
type SkippedRecord struct {
	// URL is the record's url field, possibly empty.
	URL string

	// Title is the record's title field, possibly empty.
	Title string

	// Reason is the human-readable skip cause.
	Reason string
}

// IngestReport summarises one ingestion run for a source scope.
// Per-item outcomes are explicit: a skipped record is visible here, not
// swallowed by the pipeline.
type IngestReport struct {
	// RunID uniquely identifies this ingestion run.
	RunID string

	// Scope is the source scope the batch belonged to.
	Scope string

	// Complete mirrors the batch's completeness flag.
	Complete bool

	// Received is the number of raw records in the batch.
	Received int

	// Created counts postings inserted for the first time.
	Created int

	// Refreshed counts postings already known and re-observed.
	Refreshed int

	// Deactivated counts postings marked inactive because a complete
	// batch no longer listed them. Zero for incomplete batches.
	Deactivated int64

	// Skipped lists records rejected or failed per-item.
	Skipped []SkippedRecord

	// Unresolved lists catalog lookups that missed, deduplicated per
	// normalised text with occurrence counts.
	Unresolved []UnresolvedReference

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when the run completed.
	FinishedAt time.Time
}

// ScopeState records the outcome of the most recent ingestion run for a
// source scope.
type ScopeState struct {
	// Scope identifies the employer page.
	Scope string

	// LastRunID is the ingestion run that produced this state.
	LastRunID string

	// LastIngestedAt is when that run finished.
	LastIngestedAt time.Time

	// LastComplete is whether that run's batch was complete.
	LastComplete bool

	// LastCreated is the created count of that run.
	LastCreated int

	// LastRefreshed is the refreshed count of that run.
	LastRefreshed int

	// LastDeactivated is the deactivated count of that run.
	LastDeactivated int64

	// LastSkipped is the skipped count of that run.
	LastSkipped int
}
