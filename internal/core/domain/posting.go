package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Posting is the unit of a job listing. One row per logical job: repeated
// scrapes of the same job refresh the existing posting instead of
// inserting a new one.
type Posting struct {
	// ID is the storage-assigned row identifier.
	ID int64

	// IdentityHash is the deterministic fingerprint used for dedup.
	// Unique across all postings.
	IdentityHash string

	// URL is the primary external identifier. Unique.
	URL string

	// SourceScope identifies the employer page the posting was observed
	// under. Deactivation operates per scope.
	SourceScope string

	// Title is the raw scraped job title.
	Title string

	// CompanyRaw is the company name exactly as scraped.
	CompanyRaw string

	// DepartmentRaw is the department exactly as scraped.
	DepartmentRaw string

	// LocationRaw is the location exactly as scraped.
	LocationRaw string

	// Description is the raw listing text.
	Description string

	// WorkplaceType is the scraped modality (remote, hybrid, onsite).
	WorkplaceType string

	// ExperienceLevel is the scraped seniority indication.
	ExperienceLevel string

	// EmploymentType is the scraped engagement form (full-time, ...).
	EmploymentType string

	// CompanyID is the resolved canonical company. Nil means no matching
	// canonical entity, not "unknown yet".
	CompanyID *int64

	// DepartmentID is the resolved canonical department. Nullable.
	DepartmentID *int64

	// LocationID is the resolved canonical location. Nullable.
	LocationID *int64

	// Embedding is the vector representation, present only after an
	// external embedding step has run for this posting.
	Embedding []float32

	// FirstSeenAt is when the posting was first ingested. Immutable.
	FirstSeenAt time.Time

	// LastSeenAt is when the posting was most recently observed.
	LastSeenAt time.Time

	// DeactivatedAt is when the posting stopped appearing in complete
	// scrapes of its scope. Nil while active.
	DeactivatedAt *time.Time

	// IsActive is true while the posting keeps reappearing in scrapes.
	IsActive bool
}

// EmbeddingText returns the text an external embedding provider should
// embed for this posting.
func (p *Posting) EmbeddingText() string {
	if p.Description == "" {
		return p.Title
	}
	return p.Title + "\n\n" + p.Description
}

// RawPosting is one scraped record as delivered by an external scraper.
// URL and Title are required; everything else is optional free text
// preserved verbatim through ingestion.
type RawPosting struct {
	URL             string `json:"url"`
	Title           string `json:"title"`
	CompanyRaw      string `json:"company_raw"`
	DepartmentRaw   string `json:"department_raw"`
	LocationRaw     string `json:"location_raw"`
	Description     string `json:"description"`
	WorkplaceType   string `json:"workplace_type"`
	ExperienceLevel string `json:"experience_level"`
	EmploymentType  string `json:"employment_type"`
}

// Validate checks the record carries the fields ingestion requires.
func (r *RawPosting) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidPostingRecord)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidPostingRecord)
	}
	return nil
}

// NormaliseURL canonicalises a posting URL for identity hashing: scheme
// and host lower-cased, fragment dropped, trailing slash trimmed.
// Strings that do not parse as absolute URLs are returned trimmed.
func NormaliseURL(raw string) string {
	s := strings.TrimSpace(raw)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return s
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// ComputeIdentity derives the deterministic identity hash for a posting.
// The normalised URL is the primary key material; when the URL is empty
// the digest falls back to normalised title plus company. Description
// text never participates, so scrape-time drift in wording does not
// change identity.
func ComputeIdentity(rawURL, title, companyRaw string) string {
	h := sha256.New()
	if strings.TrimSpace(rawURL) != "" {
		h.Write([]byte("url\x00"))
		h.Write([]byte(NormaliseURL(rawURL)))
	} else {
		h.Write([]byte("title-company\x00"))
		h.Write([]byte(NormaliseReference(title)))
		h.Write([]byte{0})
		h.Write([]byte(NormaliseReference(companyRaw)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// UpsertResult reports which branch a posting upsert took.
type UpsertResult int

const (
	// UpsertCreated indicates a new posting row was inserted.
	UpsertCreated UpsertResult = iota

	// UpsertRefreshed indicates an existing row was updated in place.
	UpsertRefreshed
)

// String returns the lower-case branch name.
func (r UpsertResult) String() string {
	if r == UpsertCreated {
		return "created"
	}
	return "refreshed"
}

// PostingFilter narrows posting queries. Set fields constrain
// conjunctively; zero values impose no constraint.
type PostingFilter struct {
	// Scope restricts to one source scope.
	Scope string

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

	// RequireEmbedding restricts to postings with a stored vector.
	RequireEmbedding bool
}
