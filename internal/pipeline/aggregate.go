package pipeline

import (
	"github.com/bytefield-ai/chronicle/internal/model"
)

// aggregate folds per-segment extractions into episode-level slices. Entities
// are created on first mention: later segments that mention the same
// normalized name contribute their mentions and fill in fields the first
// mention left empty, but never spawn a second entity row.
func aggregate(extractions []*model.SegmentExtraction) ([]model.Claim, []model.Person, []model.Concept, []model.JargonTerm) {
	var claims []model.Claim
	var people []model.Person
	var concepts []model.Concept
	var jargon []model.JargonTerm

	personIdx := map[string]int{}
	conceptIdx := map[string]int{}
	jargonIdx := map[string]int{}

	for _, ex := range extractions {
		if ex == nil {
			continue
		}
		claims = append(claims, ex.Claims...)

		for _, p := range ex.People {
			i, seen := personIdx[p.NormalizedName]
			if !seen {
				personIdx[p.NormalizedName] = len(people)
				people = append(people, p)
				continue
			}
			first := &people[i]
			for _, m := range p.Mentions {
				m.PersonID = first.ID
				first.Mentions = append(first.Mentions, m)
			}
			if first.EntityType == "" {
				first.EntityType = p.EntityType
			}
			if p.Confidence > first.Confidence {
				first.Confidence = p.Confidence
			}
			for k, v := range p.ExternalIDs {
				if _, ok := first.ExternalIDs[k]; !ok {
					if first.ExternalIDs == nil {
						first.ExternalIDs = make(map[string]string)
					}
					first.ExternalIDs[k] = v
				}
			}
		}

		for _, c := range ex.Concepts {
			i, seen := conceptIdx[c.NormalizedName]
			if !seen {
				conceptIdx[c.NormalizedName] = len(concepts)
				concepts = append(concepts, c)
				continue
			}
			first := &concepts[i]
			for _, ev := range c.Evidence {
				ev.ConceptID = first.ID
				first.Evidence = append(first.Evidence, ev)
			}
			if first.Definition == "" {
				first.Definition = c.Definition
			}
			first.Aliases = appendNewAliases(first.Aliases, c.Aliases)
		}

		for _, j := range ex.Jargon {
			i, seen := jargonIdx[j.NormalizedTerm]
			if !seen {
				jargonIdx[j.NormalizedTerm] = len(jargon)
				jargon = append(jargon, j)
				continue
			}
			first := &jargon[i]
			for _, ev := range j.Evidence {
				ev.TermID = first.ID
				first.Evidence = append(first.Evidence, ev)
			}
			if first.Definition == "" {
				first.Definition = j.Definition
			}
			if first.Domain == "" {
				first.Domain = j.Domain
			}
		}
	}

	return claims, people, concepts, jargon
}

func appendNewAliases(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		seen[a] = struct{}{}
	}
	for _, a := range incoming {
		if _, ok := seen[a]; !ok {
			existing = append(existing, a)
			seen[a] = struct{}{}
		}
	}
	return existing
}
