package domain

import (
	"fmt"
	"strings"
	"time"
)

// EntityKind identifies which canonical vocabulary a reference belongs to.
type EntityKind string

const (
	// KindCompany is the employer vocabulary.
	KindCompany EntityKind = "company"

	// KindDepartment is the team/discipline vocabulary.
	KindDepartment EntityKind = "department"

	// KindLocation is the geographic vocabulary.
	KindLocation EntityKind = "location"
)

// Kinds returns all entity kinds in a stable order.
func Kinds() []EntityKind {
	return []EntityKind{KindCompany, KindDepartment, KindLocation}
}

// Valid reports whether the kind names a known vocabulary.
func (k EntityKind) Valid() bool {
	switch k {
	case KindCompany, KindDepartment, KindLocation:
		return true
	default:
		return false
	}
}

// ParseEntityKind converts user input into an EntityKind.
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntityKind, s)
	}
	return k, nil
}

// CanonicalEntity is the single authoritative record for a company,
// department or location. Entities are created administratively, never
// by ingestion traffic.
type CanonicalEntity struct {
	// ID is the stable storage-assigned identifier.
	ID int64

	// Kind identifies the vocabulary this entity belongs to.
	Kind EntityKind

	// CanonicalName is the display name all synonyms resolve to.
	CanonicalName string

	// Country is an optional hierarchy attribute (locations only).
	Country string

	// Region is an optional hierarchy attribute (locations only).
	Region string

	// Category groups related departments (departments only).
	Category string
}

// Synonym maps one raw text variant onto a canonical entity.
// The lookup key is the normalised form of RawText.
type Synonym struct {
	// Kind identifies the vocabulary the synonym belongs to.
	Kind EntityKind

	// RawText is the variant as registered by a curator.
	RawText string

	// EntityID is the canonical entity the variant resolves to.
	EntityID int64
}

// UnresolvedReference records a raw scraped string that resolved to no
// canonical entity. References accumulate as curation signal; they never
// grow the vocabulary on their own.
type UnresolvedReference struct {
	// Kind is the vocabulary the lookup missed in.
	Kind EntityKind

	// RawText is a sample of the original scraped string.
	RawText string

	// Normalised is the lookup key that found no synonym.
	Normalised string

	// Occurrences counts how often the reference has been seen.
	Occurrences int64

	// FirstSeenAt is when the reference was first recorded.
	FirstSeenAt time.Time

	// LastSeenAt is when the reference was most recently recorded.
	LastSeenAt time.Time
}

// CatalogImportEntry is one curated reference record for bulk import:
// a canonical entity plus its known synonyms.
type CatalogImportEntry struct {
	Kind          EntityKind `json:"kind"`
	CanonicalName string     `json:"canonical_name"`
	Country       string     `json:"country,omitempty"`
	Region        string     `json:"region,omitempty"`
	Category      string     `json:"category,omitempty"`
	Synonyms      []string   `json:"synonyms,omitempty"`
}

// referenceCutset lists the punctuation stripped from the edges of a
// reference during normalisation. Interior punctuation is preserved
// ("r&d", "on-site").
const referenceCutset = ".,;:!?'\"`()[]{}<>/\\|*_+=~#@$%^&-"

// NormaliseReference produces the lookup key for synonym resolution:
// lower-cased, internal whitespace collapsed to single spaces, leading
// and trailing punctuation stripped.
func NormaliseReference(raw string) string {
	s := strings.ToLower(raw)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, referenceCutset)
	return strings.TrimSpace(s)
}

// workplaceModalities are normalised terms that describe how a job is
// worked, not where. They must never enter the location vocabulary.
var workplaceModalities = map[string]struct{}{
	"remote":         {},
	"hybrid":         {},
	"onsite":         {},
	"on-site":        {},
	"on site":        {},
	"work from home": {},
	"wfh":            {},
}

// IsWorkplaceModality reports whether the raw text names a workplace
// modality rather than a place.
func IsWorkplaceModality(raw string) bool {
	_, ok := workplaceModalities[NormaliseReference(raw)]
	return ok
}

// Catalog is the canonical vocabulary for one run: entities plus the
// normalised synonym index used by resolution. A Catalog is built once,
// treated as immutable for the duration of a run, and passed explicitly
// to the components that need it.
type Catalog struct {
	entities map[EntityKind]map[int64]CanonicalEntity
	synonyms map[EntityKind]map[string]int64
}

// NewCatalog builds a catalog from canonical entities and registered
// synonyms. Every canonical name is indexed as a synonym of its own
// entity. Workplace modality terms offered as location synonyms are
// skipped so resolution can never mistake a modality for a place.
// A normalised text mapping to two different entities of the same kind
// is rejected: resolution must be deterministic.
func NewCatalog(entities []CanonicalEntity, synonyms []Synonym) (*Catalog, error) {
	c := &Catalog{
		entities: make(map[EntityKind]map[int64]CanonicalEntity),
		synonyms: make(map[EntityKind]map[string]int64),
	}
	for _, kind := range Kinds() {
		c.entities[kind] = make(map[int64]CanonicalEntity)
		c.synonyms[kind] = make(map[string]int64)
	}

	for _, e := range entities {
		if !e.Kind.Valid() {
			return nil, fmt.Errorf("%w: entity %q", ErrUnknownEntityKind, e.Kind)
		}
		c.entities[e.Kind][e.ID] = e
		if err := c.index(e.Kind, e.CanonicalName, e.ID); err != nil {
			return nil, err
		}
	}

	for _, syn := range synonyms {
		if !syn.Kind.Valid() {
			return nil, fmt.Errorf("%w: synonym %q", ErrUnknownEntityKind, syn.Kind)
		}
		if _, ok := c.entities[syn.Kind][syn.EntityID]; !ok {
			return nil, fmt.Errorf("%w: synonym %q references unknown %s %d",
				ErrInvalidInput, syn.RawText, syn.Kind, syn.EntityID)
		}
		if err := c.index(syn.Kind, syn.RawText, syn.EntityID); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// index registers one normalised lookup key, skipping empty keys and
// modality terms in the location vocabulary.
func (c *Catalog) index(kind EntityKind, rawText string, entityID int64) error {
	norm := NormaliseReference(rawText)
	if norm == "" {
		return nil
	}
	if kind == KindLocation && IsWorkplaceModality(norm) {
		return nil
	}
	if existing, ok := c.synonyms[kind][norm]; ok {
		if existing != entityID {
			return fmt.Errorf("%w: %s synonym %q maps to both %d and %d",
				ErrInvalidInput, kind, norm, existing, entityID)
		}
		return nil
	}
	c.synonyms[kind][norm] = entityID
	return nil
}

// Resolve maps raw scraped text to a canonical entity id. The second
// return value is false when no synonym matches; resolution never
// creates entities or synonyms.
func (c *Catalog) Resolve(kind EntityKind, rawText string) (int64, bool) {
	norm := NormaliseReference(rawText)
	if norm == "" {
		return 0, false
	}
	id, ok := c.synonyms[kind][norm]
	return id, ok
}

// Entity returns the canonical entity for an id.
func (c *Catalog) Entity(kind EntityKind, id int64) (CanonicalEntity, bool) {
	e, ok := c.entities[kind][id]
	return e, ok
}

// EntityCount returns the number of canonical entities of a kind.
func (c *Catalog) EntityCount(kind EntityKind) int {
	return len(c.entities[kind])
}

// SynonymCount returns the number of indexed lookup keys of a kind,
// including the canonical names themselves.
func (c *Catalog) SynonymCount(kind EntityKind) int {
	return len(c.synonyms[kind])
}
