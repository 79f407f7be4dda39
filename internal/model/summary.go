package model

import "time"

// EpisodeSummary is the per-episode output contract for callers (CLI, HTTP
// API): counts by tier, accepted claims with evidence, entity lists, and
// evolution/contradiction flags for any claim not classified novel.
type EpisodeSummary struct {
	Episode     Episode         `json:"episode"`
	Synopsis    string          `json:"synopsis,omitempty"`
	TierCounts  map[Tier]int    `json:"tier_counts"`
	Claims      []Claim         `json:"claims"`
	People      []Person        `json:"people"`
	Concepts    []Concept       `json:"concepts"`
	Jargon      []JargonTerm    `json:"jargon"`
	Categories  []Category      `json:"categories"`
	Flags       []EvolutionFlag `json:"flags,omitempty"`
	Duplicates  []DuplicateLink `json:"duplicates,omitempty"`
	SegmentsIn  int             `json:"segments_in"`
	ClaimsMined int             `json:"claims_mined"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// EvolutionFlag surfaces a non-novel consistency classification to callers.
type EvolutionFlag struct {
	ClaimID         string          `json:"claim_id"`
	Status          EvolutionStatus `json:"status"`
	PreviousClaimID string          `json:"previous_claim_id,omitempty"`
	Similarity      float64         `json:"similarity,omitempty"`
}

// NewEpisodeSummary assembles the caller-facing summary from persisted
// outputs. Claims are filtered to accepted ones; every non-novel
// classification becomes a flag.
func NewEpisodeSummary(outputs *EpisodeOutputs, processedAt time.Time) EpisodeSummary {
	summary := EpisodeSummary{
		Episode:     outputs.Episode,
		Synopsis:    outputs.Synopsis,
		TierCounts:  map[Tier]int{},
		People:      outputs.People,
		Concepts:    outputs.Concepts,
		Jargon:      outputs.Jargon,
		Categories:  outputs.Categories,
		Duplicates:  outputs.DuplicateLinks,
		SegmentsIn:  len(outputs.Segments),
		ClaimsMined: len(outputs.Claims) + len(outputs.DuplicateLinks),
		ProcessedAt: processedAt,
	}
	for _, c := range outputs.Claims {
		if c.Tier != "" {
			summary.TierCounts[c.Tier]++
		}
		if c.Accepted() {
			summary.Claims = append(summary.Claims, c)
		}
		if c.Evolution != "" && c.Evolution != EvolutionNovel {
			summary.Flags = append(summary.Flags, EvolutionFlag{
				ClaimID:         c.ID,
				Status:          c.Evolution,
				PreviousClaimID: c.PreviousClaimID,
				Similarity:      c.SimilarityToPrevious,
			})
		}
	}
	return summary
}
