package domain

// EmbeddingTask is one backlog entry handed to an external embedding
// provider: the posting identity plus the text to embed.
type EmbeddingTask struct {
	IdentityHash string `json:"identity_hash"`
	Text         string `json:"text"`
}

// EmbeddingUpdate pairs a posting identity with its computed vector,
// as returned by an external embedding provider.
type EmbeddingUpdate struct {
	IdentityHash string    `json:"identity_hash"`
	Vector       []float32 `json:"vector"`
}

// EmbeddingReport summarises one embedding application run.
type EmbeddingReport struct {
	// Applied counts postings whose vector was stored.
	Applied int

	// Skipped lists updates that could not be applied.
	Skipped []SkippedRecord
}
