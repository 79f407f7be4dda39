package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/bytefield-ai/chronicle/internal/model"
)

// GetEpisodeOutputs reads back an episode's full entity graph.
func (s *SQLiteStore) GetEpisodeOutputs(ctx context.Context, episodeID string) (*model.EpisodeOutputs, error) {
	out := &model.EpisodeOutputs{}

	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, channel_id, synopsis, created_at, updated_at FROM episodes WHERE id = ?`, episodeID,
	).Scan(&out.Episode.ID, &out.Episode.Title, &out.Episode.ChannelID, &out.Synopsis,
		&out.Episode.CreatedAt, &out.Episode.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("episode not found: %s", episodeID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get episode %s", episodeID)
	}

	if out.Segments, err = s.readSegments(ctx, episodeID); err != nil {
		return nil, err
	}
	if out.Claims, err = s.readClaims(ctx, episodeID); err != nil {
		return nil, err
	}
	if out.Relations, err = s.readRelations(ctx, episodeID); err != nil {
		return nil, err
	}
	if out.People, err = s.readPeople(ctx, episodeID); err != nil {
		return nil, err
	}
	if out.Concepts, err = s.readConcepts(ctx, episodeID); err != nil {
		return nil, err
	}
	if out.Jargon, err = s.readJargon(ctx, episodeID); err != nil {
		return nil, err
	}
	if out.Categories, err = s.readCategories(ctx, episodeID); err != nil {
		return nil, err
	}
	if out.DuplicateLinks, err = s.readDuplicateLinks(ctx, episodeID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) readSegments(ctx context.Context, episodeID string) ([]model.Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, episode_id, speaker, t0, t1, text, sequence FROM segments WHERE episode_id = ? ORDER BY sequence`,
		episodeID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read segments")
	}
	defer rows.Close()
	var out []model.Segment
	for rows.Next() {
		var seg model.Segment
		if err := rows.Scan(&seg.ID, &seg.EpisodeID, &seg.Speaker, &seg.T0, &seg.T1, &seg.Text, &seg.Sequence); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan segment")
		}
		out = append(out, seg)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: read segments")
}

func (s *SQLiteStore) readClaims(ctx context.Context, episodeID string) ([]model.Claim, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, episode_id, text, claim_type, stance, decision, tier, rank,
			importance, novelty, confidence, rejection_reason, merged_into,
			evolution_status, previous_claim_id, similarity_to_previous, is_contradiction
		FROM claims WHERE episode_id = ? ORDER BY rank, id`,
		episodeID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read claims")
	}
	defer rows.Close()

	var out []model.Claim
	index := map[string]int{}
	for rows.Next() {
		var c model.Claim
		var contradiction int
		if err := rows.Scan(&c.ID, &c.EpisodeID, &c.Text, &c.Type, &c.Stance, &c.Decision, &c.Tier, &c.Rank,
			&c.Importance, &c.Novelty, &c.Confidence, &c.RejectionReason, &c.MergedInto,
			&c.Evolution, &c.PreviousClaimID, &c.SimilarityToPrevious, &contradiction); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan claim")
		}
		c.IsContradiction = contradiction != 0
		index[c.ID] = len(out)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: read claims")
	}

	srows, err := s.db.QueryContext(ctx, `
		SELECT es.claim_id, es.segment_id, es.sequence, es.quote, es.t0, es.t1, es.context, es.context_type
		FROM evidence_spans es
		JOIN claims c ON c.id = es.claim_id
		WHERE c.episode_id = ? ORDER BY es.claim_id, es.sequence`,
		episodeID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read evidence spans")
	}
	defer srows.Close()
	for srows.Next() {
		var span model.EvidenceSpan
		if err := srows.Scan(&span.ClaimID, &span.SegmentID, &span.Sequence, &span.Quote,
			&span.T0, &span.T1, &span.Context, &span.ContextType); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evidence span")
		}
		if i, ok := index[span.ClaimID]; ok {
			out[i].Evidence = append(out[i].Evidence, span)
		}
	}
	return out, eris.Wrap(srows.Err(), "sqlite: read evidence spans")
}

func (s *SQLiteStore) readRelations(ctx context.Context, episodeID string) ([]model.Relation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.source_claim_id, r.target_claim_id, r.type, r.strength, r.rationale
		FROM relations r
		JOIN claims c ON c.id = r.source_claim_id
		WHERE c.episode_id = ?`,
		episodeID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read relations")
	}
	defer rows.Close()
	var out []model.Relation
	for rows.Next() {
		var r model.Relation
		if err := rows.Scan(&r.SourceClaimID, &r.TargetClaimID, &r.Type, &r.Strength, &r.Rationale); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan relation")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: read relations")
}

func (s *SQLiteStore) readPeople(ctx context.Context, episodeID string) ([]model.Person, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, normalized_name, entity_type, confidence, external_ids FROM people WHERE episode_id = ? ORDER BY normalized_name`,
		episodeID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read people")
	}
	defer rows.Close()

	var out []model.Person
	index := map[string]int{}
	for rows.Next() {
		var p model.Person
		var extIDs string
		if err := rows.Scan(&p.ID, &p.Name, &p.NormalizedName, &p.EntityType, &p.Confidence, &extIDs); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan person")
		}
		if extIDs != "" && extIDs != "{}" {
			if err := json.Unmarshal([]byte(extIDs), &p.ExternalIDs); err != nil {
				return nil, eris.Wrapf(err, "sqlite: unmarshal external ids for %s", p.ID)
			}
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: read people")
	}

	mrows, err := s.db.QueryContext(ctx, `
		SELECT pm.person_id, pm.segment_id, pm.surface, pm.quote, pm.t0, pm.t1
		FROM person_mentions pm
		JOIN people p ON p.id = pm.person_id
		WHERE p.episode_id = ?`,
		episodeID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read person mentions")
	}
	defer mrows.Close()
	for mrows.Next() {
		var m model.PersonMention
		if err := mrows.Scan(&m.PersonID, &m.SegmentID, &m.Surface, &m.Quote, &m.T0, &m.T1); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan person mention")
		}
		if i, ok := index[m.PersonID]; ok {
			out[i].Mentions = append(out[i].Mentions, m)
		}
	}
	return out, eris.Wrap(mrows.Err(), "sqlite: read person mentions")
}

func (s *SQLiteStore) readConcepts(ctx context.Context, episodeID string) ([]model.Concept, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, normalized_name, definition, aliases FROM concepts WHERE episode_id = ? ORDER BY normalized_name`,
		episodeID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read concepts")
	}
	defer rows.Close()

	var out []model.Concept
	index := map[string]int{}
	for rows.Next() {
		var c model.Concept
		var aliases string
		if err := rows.Scan(&c.ID, &c.Name, &c.NormalizedName, &c.Definition, &aliases); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan concept")
		}
		if aliases != "" && aliases != "[]" {
			if err := json.Unmarshal([]byte(aliases), &c.Aliases); err != nil {
				return nil, eris.Wrapf(err, "sqlite: unmarshal aliases for %s", c.ID)
			}
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: read concepts")
	}

	erows, err := s.db.QueryContext(ctx, `
		SELECT ce.concept_id, ce.segment_id, ce.quote, ce.t0, ce.t1
		FROM concept_evidence ce
		JOIN concepts c ON c.id = ce.concept_id
		WHERE c.episode_id = ?`,
		episodeID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read concept evidence")
	}
	defer erows.Close()
	for erows.Next() {
		var e model.ConceptEvidence
		if err := erows.Scan(&e.ConceptID, &e.SegmentID, &e.Quote, &e.T0, &e.T1); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan concept evidence")
		}
		if i, ok := index[e.ConceptID]; ok {
			out[i].Evidence = append(out[i].Evidence, e)
		}
	}
	return out, eris.Wrap(erows.Err(), "sqlite: read concept evidence")
}

func (s *SQLiteStore) readJargon(ctx context.Context, episodeID string) ([]model.JargonTerm, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, term, normalized_term, definition, domain FROM jargon_terms WHERE episode_id = ? ORDER BY normalized_term`,
		episodeID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read jargon")
	}
	defer rows.Close()

	var out []model.JargonTerm
	index := map[string]int{}
	for rows.Next() {
		var j model.JargonTerm
		if err := rows.Scan(&j.ID, &j.Term, &j.NormalizedTerm, &j.Definition, &j.Domain); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan jargon")
		}
		index[j.ID] = len(out)
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: read jargon")
	}

	erows, err := s.db.QueryContext(ctx, `
		SELECT je.term_id, je.segment_id, je.quote, je.t0, je.t1
		FROM jargon_evidence je
		JOIN jargon_terms j ON j.id = je.term_id
		WHERE j.episode_id = ?`,
		episodeID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read jargon evidence")
	}
	defer erows.Close()
	for erows.Next() {
		var e model.JargonEvidence
		if err := erows.Scan(&e.TermID, &e.SegmentID, &e.Quote, &e.T0, &e.T1); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan jargon evidence")
		}
		if i, ok := index[e.TermID]; ok {
			out[i].Evidence = append(out[i].Evidence, e)
		}
	}
	return out, eris.Wrap(erows.Err(), "sqlite: read jargon evidence")
}

func (s *SQLiteStore) readCategories(ctx context.Context, episodeID string) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, taxonomy_id, confidence, frequency FROM categories WHERE episode_id = ? ORDER BY confidence DESC`,
		episodeID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read categories")
	}
	defer rows.Close()
	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.Name, &c.TaxonomyID, &c.Confidence, &c.Frequency); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan category")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: read categories")
}

func (s *SQLiteStore) readDuplicateLinks(ctx context.Context, episodeID string) ([]model.DuplicateLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT episode_id, text, prior_claim_id, similarity FROM duplicate_links WHERE episode_id = ?`,
		episodeID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read duplicate links")
	}
	defer rows.Close()
	var out []model.DuplicateLink
	for rows.Next() {
		var d model.DuplicateLink
		if err := rows.Scan(&d.EpisodeID, &d.Text, &d.PriorClaimID, &d.Similarity); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan duplicate link")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: read duplicate links")
}
