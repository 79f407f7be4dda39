package model

// SegmentExtraction is the validated per-segment output of the miner:
// raw claims with evidence plus entity mentions, before consistency
// classification and evaluation.
type SegmentExtraction struct {
	SegmentID string       `json:"segment_id"`
	Claims    []Claim      `json:"claims"`
	Jargon    []JargonTerm `json:"jargon"`
	People    []Person     `json:"people"`
	Concepts  []Concept    `json:"concepts"`
	Usage     TokenUsage   `json:"usage"`
}

// EpisodeOutputs is the complete entity graph for one episode handed to the
// store in a single upsert. Parent entities are written before any child row
// referencing them.
type EpisodeOutputs struct {
	Episode    Episode
	Synopsis   string
	Segments   []Segment
	Claims     []Claim
	Relations  []Relation
	People     []Person
	Concepts   []Concept
	Jargon     []JargonTerm
	Categories []Category

	// DuplicateLinks records claims suppressed as duplicates of prior
	// channel claims. They are not persisted as claim rows.
	DuplicateLinks []DuplicateLink
}

// DuplicateLink ties a suppressed duplicate claim to the existing claim it
// restates.
type DuplicateLink struct {
	EpisodeID    string  `json:"episode_id"`
	Text         string  `json:"text"`
	PriorClaimID string  `json:"prior_claim_id"`
	Similarity   float64 `json:"similarity"`
}
