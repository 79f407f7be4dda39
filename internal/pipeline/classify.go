package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/bytefield-ai/chronicle/internal/model"
)

// classifyStage runs every mined claim through the consistency engine.
// Duplicates of prior channel claims are diverted to duplicate links and
// never reach evaluation; evolutions and contradictions keep their claim but
// carry the prior-claim linkage. A contradiction also records a directed
// relation to the prior claim so the graph is queryable across episodes.
func (p *Pipeline) classifyStage(ctx context.Context, episodeID string, claims []model.Claim, history *model.ChannelHistory) ([]model.Claim, []model.DuplicateLink, []model.Relation) {
	kept := make([]model.Claim, 0, len(claims))
	var links []model.DuplicateLink
	var relations []model.Relation

	for _, claim := range claims {
		cls := p.engine.Classify(ctx, claim.Text, history)

		switch cls.Status {
		case model.EvolutionDuplicate:
			links = append(links, model.DuplicateLink{
				EpisodeID:    episodeID,
				Text:         claim.Text,
				PriorClaimID: cls.PriorClaimID,
				Similarity:   cls.Similarity,
			})
			zap.L().Debug("pipeline: suppressed duplicate claim",
				zap.String("prior_claim_id", cls.PriorClaimID),
				zap.Float64("similarity", cls.Similarity),
			)
			continue

		case model.EvolutionEvolution, model.EvolutionContradiction:
			claim.Evolution = cls.Status
			claim.PreviousClaimID = cls.PriorClaimID
			claim.SimilarityToPrevious = cls.Similarity
			if cls.Status == model.EvolutionContradiction {
				claim.IsContradiction = true
				relations = append(relations, model.Relation{
					SourceClaimID: claim.ID,
					TargetClaimID: cls.PriorClaimID,
					Type:          model.RelationContradicts,
					Strength:      cls.Similarity,
					Rationale:     "contradicts a prior claim from this channel",
				})
			}

		default:
			claim.Evolution = model.EvolutionNovel
		}

		kept = append(kept, claim)
	}

	return kept, links, relations
}
