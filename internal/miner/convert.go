package miner

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bytefield-ai/chronicle/internal/model"
)

// convertExtraction turns a schema-repaired document into model types. The
// repairer has already dropped structurally unusable entries, so conversion
// only enforces the one rule the validator cannot know: every evidence row
// must reference the segment being mined.
func convertExtraction(doc map[string]any, segment model.Segment) *model.SegmentExtraction {
	out := &model.SegmentExtraction{SegmentID: segment.ID}
	dropped := 0

	for _, item := range items(doc["claims"]) {
		claim := model.Claim{
			ID:         uuid.NewString(),
			EpisodeID:  segment.EpisodeID,
			Text:       str(item["text"]),
			Type:       model.ClaimType(str(item["claim_type"])),
			Stance:     str(item["stance"]),
			Confidence: num(item["confidence"]),
		}
		for _, s := range items(item["evidence_spans"]) {
			if str(s["segment_id"]) != segment.ID {
				dropped++
				continue
			}
			claim.Evidence = append(claim.Evidence, model.EvidenceSpan{
				ClaimID:     claim.ID,
				SegmentID:   segment.ID,
				Sequence:    len(claim.Evidence),
				Quote:       str(s["quote"]),
				T0:          num(s["t0"]),
				T1:          num(s["t1"]),
				Context:     str(s["context"]),
				ContextType: str(s["context_type"]),
			})
		}
		if len(claim.Evidence) == 0 {
			continue
		}
		out.Claims = append(out.Claims, claim)
	}

	for _, item := range items(doc["jargon"]) {
		term := model.JargonTerm{
			ID:             uuid.NewString(),
			Term:           str(item["term"]),
			NormalizedTerm: model.NormalizeName(str(item["term"])),
			Definition:     str(item["definition"]),
			Domain:         str(item["domain"]),
		}
		for _, e := range items(item["evidence"]) {
			if sid := str(e["segment_id"]); sid != "" && sid != segment.ID {
				dropped++
				continue
			}
			term.Evidence = append(term.Evidence, model.JargonEvidence{
				TermID:    term.ID,
				SegmentID: segment.ID,
				Quote:     str(e["quote"]),
				T0:        num(e["t0"]),
				T1:        num(e["t1"]),
			})
		}
		out.Jargon = append(out.Jargon, term)
	}

	for _, item := range items(doc["people"]) {
		person := model.Person{
			ID:             uuid.NewString(),
			Name:           str(item["name"]),
			NormalizedName: model.NormalizeName(str(item["name"])),
			EntityType:     str(item["entity_type"]),
			Confidence:     num(item["confidence"]),
			ExternalIDs:    strMap(item["external_ids"]),
		}
		for _, m := range items(item["mentions"]) {
			if sid := str(m["segment_id"]); sid != "" && sid != segment.ID {
				dropped++
				continue
			}
			surface := str(m["surface"])
			if surface == "" {
				surface = person.Name
			}
			person.Mentions = append(person.Mentions, model.PersonMention{
				PersonID:  person.ID,
				SegmentID: segment.ID,
				Surface:   surface,
				Quote:     str(m["quote"]),
				T0:        num(m["t0"]),
				T1:        num(m["t1"]),
			})
		}
		if len(person.Mentions) == 0 {
			continue
		}
		out.People = append(out.People, person)
	}

	for _, item := range items(doc["concepts"]) {
		concept := model.Concept{
			ID:             uuid.NewString(),
			Name:           str(item["name"]),
			NormalizedName: model.NormalizeName(str(item["name"])),
			Definition:     str(item["definition"]),
			Aliases:        strSlice(item["aliases"]),
		}
		for _, e := range items(item["evidence"]) {
			if sid := str(e["segment_id"]); sid != "" && sid != segment.ID {
				dropped++
				continue
			}
			concept.Evidence = append(concept.Evidence, model.ConceptEvidence{
				ConceptID: concept.ID,
				SegmentID: segment.ID,
				Quote:     str(e["quote"]),
				T0:        num(e["t0"]),
				T1:        num(e["t1"]),
			})
		}
		out.Concepts = append(out.Concepts, concept)
	}

	if dropped > 0 {
		zap.L().Warn("miner: dropped evidence referencing other segments",
			zap.String("segment_id", segment.ID),
			zap.Int("dropped", dropped),
		)
	}
	return out
}

func items(v any) []map[string]any {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, mok := item.(map[string]any); mok {
			out = append(out, m)
		}
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) float64 {
	f, _ := v.(float64)
	return f
}

func strSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, sok := item.(string); sok {
			out = append(out, s)
		}
	}
	return out
}

func strMap(v any) map[string]string {
	raw, ok := v.(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, item := range raw {
		if s, sok := item.(string); sok {
			out[k] = s
		}
	}
	return out
}
