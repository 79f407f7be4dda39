package model

// ClaimType classifies the kind of assertion a claim makes.
type ClaimType string

const (
	ClaimFactual    ClaimType = "factual"
	ClaimCausal     ClaimType = "causal"
	ClaimNormative  ClaimType = "normative"
	ClaimForecast   ClaimType = "forecast"
	ClaimDefinition ClaimType = "definition"
)

// Decision is the evaluator's verdict on a claim.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
	DecisionMerge  Decision = "merge"
	DecisionSplit  Decision = "split"
)

// Tier buckets accepted claims by rank. Only meaningful when Decision is
// accept; rejected and merged claims carry TierRejected.
type Tier string

const (
	TierA        Tier = "A"
	TierB        Tier = "B"
	TierC        Tier = "C"
	TierRejected Tier = "rejected"
)

// EvolutionStatus classifies a claim relative to the channel's prior claims.
// Set exactly once at consistency-check time, immutable afterward.
type EvolutionStatus string

const (
	EvolutionNovel         EvolutionStatus = "novel"
	EvolutionDuplicate     EvolutionStatus = "duplicate"
	EvolutionEvolution     EvolutionStatus = "evolution"
	EvolutionContradiction EvolutionStatus = "contradiction"
)

// SentinelRank marks an accepted claim whose rank was missing from the
// evaluator output and injected by the schema repairer.
const SentinelRank = -1

// Claim is a discrete, evaluable assertion extracted from one or more
// segments. Created raw by the miner, mutated by the consistency engine
// (evolution fields), then by the evaluator (decision/tier/scores).
type Claim struct {
	ID        string    `json:"id"`
	EpisodeID string    `json:"episode_id"`
	Text      string    `json:"text"`
	Type      ClaimType `json:"claim_type"`
	Stance    string    `json:"stance,omitempty"`

	Decision        Decision `json:"decision,omitempty"`
	Tier            Tier     `json:"tier,omitempty"`
	Rank            int      `json:"rank,omitempty"`
	Importance      float64  `json:"importance,omitempty"`
	Novelty         float64  `json:"novelty,omitempty"`
	Confidence      float64  `json:"confidence,omitempty"`
	RejectionReason string   `json:"rejection_reason,omitempty"`
	MergedInto      string   `json:"merged_into,omitempty"`

	Evolution            EvolutionStatus `json:"evolution_status,omitempty"`
	PreviousClaimID      string          `json:"previous_claim_id,omitempty"`
	SimilarityToPrevious float64         `json:"similarity_to_previous,omitempty"`
	IsContradiction      bool            `json:"is_contradiction,omitempty"`

	Evidence []EvidenceSpan `json:"evidence"`
}

// Accepted reports whether the claim survived evaluation. Split claims are
// kept and ranked like accepted ones; the decision records that the
// evaluator considered them compound.
func (c *Claim) Accepted() bool {
	return c.Decision == DecisionAccept || c.Decision == DecisionSplit
}

// EvidenceSpan is a verbatim quote plus time range supporting a claim. A
// claim row must exist before any span referencing it is written, and the
// span's segment must belong to the same episode.
type EvidenceSpan struct {
	ClaimID     string  `json:"claim_id"`
	SegmentID   string  `json:"segment_id"`
	Sequence    int     `json:"sequence"`
	Quote       string  `json:"quote"`
	T0          float64 `json:"t0"`
	T1          float64 `json:"t1"`
	Context     string  `json:"context,omitempty"`
	ContextType string  `json:"context_type,omitempty"`
}

// RelationType names the directed link kinds between two claims.
type RelationType string

const (
	RelationSupports    RelationType = "supports"
	RelationContradicts RelationType = "contradicts"
	RelationDependsOn   RelationType = "depends_on"
	RelationRefines     RelationType = "refines"
)

// Relation is a directed link between two claims.
type Relation struct {
	SourceClaimID string       `json:"source_claim_id"`
	TargetClaimID string       `json:"target_claim_id"`
	Type          RelationType `json:"type"`
	Strength      float64      `json:"strength,omitempty"`
	Rationale     string       `json:"rationale,omitempty"`
}
