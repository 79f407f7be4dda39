package model

// Person is a named individual mentioned in content.
type Person struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	NormalizedName string            `json:"normalized_name"`
	EntityType     string            `json:"entity_type,omitempty"` // host, guest, referenced
	Confidence     float64           `json:"confidence,omitempty"`
	ExternalIDs    map[string]string `json:"external_ids,omitempty"`
	Mentions       []PersonMention   `json:"mentions"`
}

// PersonMention is one occurrence of a person in a segment.
type PersonMention struct {
	PersonID  string  `json:"person_id"`
	SegmentID string  `json:"segment_id"`
	Surface   string  `json:"surface"`
	Quote     string  `json:"quote,omitempty"`
	T0        float64 `json:"t0"`
	T1        float64 `json:"t1"`
}

// Concept is a mental model or idea mentioned in content.
type Concept struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	NormalizedName string            `json:"normalized_name"`
	Definition     string            `json:"definition,omitempty"`
	Aliases        []string          `json:"aliases,omitempty"`
	Evidence       []ConceptEvidence `json:"evidence"`
}

// ConceptEvidence is one occurrence of a concept in a segment.
type ConceptEvidence struct {
	ConceptID string  `json:"concept_id"`
	SegmentID string  `json:"segment_id"`
	Quote     string  `json:"quote"`
	T0        float64 `json:"t0"`
	T1        float64 `json:"t1"`
}

// JargonTerm is a domain-specific term with its established definition.
type JargonTerm struct {
	ID             string           `json:"id"`
	Term           string           `json:"term"`
	NormalizedTerm string           `json:"normalized_term"`
	Definition     string           `json:"definition"`
	Domain         string           `json:"domain,omitempty"`
	Evidence       []JargonEvidence `json:"evidence"`
}

// JargonEvidence is one occurrence of a jargon term in a segment.
type JargonEvidence struct {
	TermID    string  `json:"term_id"`
	SegmentID string  `json:"segment_id"`
	Quote     string  `json:"quote"`
	T0        float64 `json:"t0"`
	T1        float64 `json:"t1"`
}

// Category is a topical classification for an episode.
type Category struct {
	Name       string  `json:"name"`
	TaxonomyID string  `json:"taxonomy_id,omitempty"`
	Confidence float64 `json:"confidence"`
	Frequency  int     `json:"frequency,omitempty"`
}
