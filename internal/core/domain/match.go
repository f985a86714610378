package domain

// MatchFilter constrains a match query. Each set field is a conjunctive
// constraint; absent fields impose none.
type MatchFilter struct {
	// CompanyID restricts to one canonical company.
	CompanyID *int64

	// DepartmentID restricts to one canonical department.
	DepartmentID *int64

	// LocationID restricts to one canonical location.
	LocationID *int64

	// WorkplaceType restricts to one modality string.
	WorkplaceType string

	// ExperienceLevel restricts to one seniority string.
	ExperienceLevel string

	// EmploymentType restricts to one engagement string.
	EmploymentType string

	// MinSimilarity overrides the engine's configured score threshold
	// when set.
	MinSimilarity *float64
}

// MatchResult is one ranked posting.
type MatchResult struct {
	// Posting is the matched posting.
	Posting Posting

	// Score is the cosine similarity against the query vector.
	Score float64
}
