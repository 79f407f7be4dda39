package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/bytefield-ai/chronicle/internal/db"
	"github.com/bytefield-ai/chronicle/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS episodes (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	channel_id TEXT NOT NULL DEFAULT '',
	synopsis   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS segments (
	id         TEXT PRIMARY KEY,
	episode_id TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	speaker    TEXT NOT NULL DEFAULT '',
	t0         DOUBLE PRECISION NOT NULL,
	t1         DOUBLE PRECISION NOT NULL,
	text       TEXT NOT NULL,
	sequence   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS claims (
	id                     TEXT PRIMARY KEY,
	episode_id             TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	text                   TEXT NOT NULL,
	claim_type             TEXT NOT NULL,
	stance                 TEXT NOT NULL DEFAULT '',
	decision               TEXT NOT NULL DEFAULT '',
	tier                   TEXT NOT NULL DEFAULT '',
	rank                   INTEGER NOT NULL DEFAULT 0,
	importance             DOUBLE PRECISION NOT NULL DEFAULT 0,
	novelty                DOUBLE PRECISION NOT NULL DEFAULT 0,
	confidence             DOUBLE PRECISION NOT NULL DEFAULT 0,
	rejection_reason       TEXT NOT NULL DEFAULT '',
	merged_into            TEXT NOT NULL DEFAULT '',
	evolution_status       TEXT NOT NULL DEFAULT '',
	previous_claim_id      TEXT NOT NULL DEFAULT '',
	similarity_to_previous DOUBLE PRECISION NOT NULL DEFAULT 0,
	is_contradiction       BOOLEAN NOT NULL DEFAULT false,
	text_tsv               TSVECTOR GENERATED ALWAYS AS (to_tsvector('english', text)) STORED
);

CREATE TABLE IF NOT EXISTS evidence_spans (
	claim_id     TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
	segment_id   TEXT NOT NULL REFERENCES segments(id) ON DELETE CASCADE,
	sequence     INTEGER NOT NULL,
	quote        TEXT NOT NULL,
	t0           DOUBLE PRECISION NOT NULL,
	t1           DOUBLE PRECISION NOT NULL,
	context      TEXT NOT NULL DEFAULT '',
	context_type TEXT NOT NULL DEFAULT '',
	quote_tsv    TSVECTOR GENERATED ALWAYS AS (to_tsvector('english', quote)) STORED,
	PRIMARY KEY (claim_id, sequence)
);

CREATE TABLE IF NOT EXISTS relations (
	source_claim_id TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
	target_claim_id TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
	type            TEXT NOT NULL,
	strength        DOUBLE PRECISION NOT NULL DEFAULT 0,
	rationale       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (source_claim_id, target_claim_id, type)
);

CREATE TABLE IF NOT EXISTS people (
	id              TEXT PRIMARY KEY,
	episode_id      TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	entity_type     TEXT NOT NULL DEFAULT '',
	confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
	external_ids    JSONB NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS person_mentions (
	person_id  TEXT NOT NULL REFERENCES people(id) ON DELETE CASCADE,
	segment_id TEXT NOT NULL REFERENCES segments(id) ON DELETE CASCADE,
	surface    TEXT NOT NULL,
	quote      TEXT NOT NULL DEFAULT '',
	t0         DOUBLE PRECISION NOT NULL,
	t1         DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS concepts (
	id              TEXT PRIMARY KEY,
	episode_id      TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	definition      TEXT NOT NULL DEFAULT '',
	aliases         JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS concept_evidence (
	concept_id TEXT NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
	segment_id TEXT NOT NULL REFERENCES segments(id) ON DELETE CASCADE,
	quote      TEXT NOT NULL,
	t0         DOUBLE PRECISION NOT NULL,
	t1         DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS jargon_terms (
	id              TEXT PRIMARY KEY,
	episode_id      TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	term            TEXT NOT NULL,
	normalized_term TEXT NOT NULL,
	definition      TEXT NOT NULL,
	domain          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS jargon_evidence (
	term_id    TEXT NOT NULL REFERENCES jargon_terms(id) ON DELETE CASCADE,
	segment_id TEXT NOT NULL REFERENCES segments(id) ON DELETE CASCADE,
	quote      TEXT NOT NULL,
	t0         DOUBLE PRECISION NOT NULL,
	t1         DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
	episode_id  TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	taxonomy_id TEXT NOT NULL DEFAULT '',
	confidence  DOUBLE PRECISION NOT NULL DEFAULT 0,
	frequency   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (episode_id, name)
);

CREATE TABLE IF NOT EXISTS duplicate_links (
	episode_id     TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	text           TEXT NOT NULL,
	prior_claim_id TEXT NOT NULL,
	similarity     DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	episode_id TEXT NOT NULL,
	channel_id TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'queued',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_stages (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     JSONB,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_segments_episode ON segments(episode_id);
CREATE INDEX IF NOT EXISTS idx_claims_episode ON claims(episode_id);
CREATE INDEX IF NOT EXISTS idx_claims_decision ON claims(decision);
CREATE INDEX IF NOT EXISTS idx_claims_text_tsv ON claims USING GIN (text_tsv);
CREATE INDEX IF NOT EXISTS idx_spans_quote_tsv ON evidence_spans USING GIN (quote_tsv);
CREATE INDEX IF NOT EXISTS idx_spans_segment ON evidence_spans(segment_id);
CREATE INDEX IF NOT EXISTS idx_people_episode ON people(episode_id);
CREATE INDEX IF NOT EXISTS idx_concepts_episode ON concepts(episode_id);
CREATE INDEX IF NOT EXISTS idx_jargon_episode ON jargon_terms(episode_id);
CREATE INDEX IF NOT EXISTS idx_jargon_norm ON jargon_terms(normalized_term);
CREATE INDEX IF NOT EXISTS idx_episodes_channel ON episodes(channel_id);
CREATE INDEX IF NOT EXISTS idx_runs_episode ON runs(episode_id);
CREATE INDEX IF NOT EXISTS idx_run_stages_run ON run_stages(run_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// EnsureEpisode writes the minimal episode stub so segments can be stored
// before full metadata is known.
func (s *PostgresStore) EnsureEpisode(ctx context.Context, episode model.Episode) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO episodes (id, title, channel_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			title      = CASE WHEN EXCLUDED.title != '' THEN EXCLUDED.title ELSE episodes.title END,
			channel_id = CASE WHEN EXCLUDED.channel_id != '' THEN EXCLUDED.channel_id ELSE episodes.channel_id END,
			updated_at = EXCLUDED.updated_at`,
		episode.ID, episode.Title, episode.ChannelID, now, now,
	)
	return eris.Wrapf(err, "postgres: ensure episode %s", episode.ID)
}

// UpsertEpisodeOutputs replaces an episode's entity graph in one
// transaction. Segments and evidence spans go through COPY; the rest are
// small enough for row inserts.
func (s *PostgresStore) UpsertEpisodeOutputs(ctx context.Context, outputs *model.EpisodeOutputs) error {
	episodeID := outputs.Episode.ID
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin upsert")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		INSERT INTO episodes (id, title, channel_id, synopsis, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title      = CASE WHEN EXCLUDED.title != '' THEN EXCLUDED.title ELSE episodes.title END,
			channel_id = CASE WHEN EXCLUDED.channel_id != '' THEN EXCLUDED.channel_id ELSE episodes.channel_id END,
			synopsis   = EXCLUDED.synopsis,
			updated_at = EXCLUDED.updated_at`,
		episodeID, outputs.Episode.Title, outputs.Episode.ChannelID, outputs.Synopsis, now, now,
	); err != nil {
		return eris.Wrapf(err, "postgres: upsert episode %s", episodeID)
	}

	for _, del := range []string{
		`DELETE FROM claims WHERE episode_id = $1`,
		`DELETE FROM people WHERE episode_id = $1`,
		`DELETE FROM concepts WHERE episode_id = $1`,
		`DELETE FROM jargon_terms WHERE episode_id = $1`,
		`DELETE FROM categories WHERE episode_id = $1`,
		`DELETE FROM duplicate_links WHERE episode_id = $1`,
		`DELETE FROM segments WHERE episode_id = $1`,
	} {
		if _, err := tx.Exec(ctx, del, episodeID); err != nil {
			return eris.Wrapf(err, "postgres: clear episode %s", episodeID)
		}
	}

	segRows := make([][]any, len(outputs.Segments))
	for i, seg := range outputs.Segments {
		segRows[i] = []any{seg.ID, episodeID, seg.Speaker, seg.T0, seg.T1, seg.Text, seg.Sequence}
	}
	if _, err := db.CopyFrom(ctx, tx, "segments",
		[]string{"id", "episode_id", "speaker", "t0", "t1", "text", "sequence"}, segRows); err != nil {
		return err
	}

	var spanRows [][]any
	for _, c := range outputs.Claims {
		if _, err := tx.Exec(ctx, `
			INSERT INTO claims (id, episode_id, text, claim_type, stance, decision, tier, rank,
				importance, novelty, confidence, rejection_reason, merged_into,
				evolution_status, previous_claim_id, similarity_to_previous, is_contradiction)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			c.ID, episodeID, c.Text, string(c.Type), c.Stance, string(c.Decision), string(c.Tier), c.Rank,
			c.Importance, c.Novelty, c.Confidence, c.RejectionReason, c.MergedInto,
			string(c.Evolution), c.PreviousClaimID, c.SimilarityToPrevious, c.IsContradiction,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert claim %s", c.ID)
		}
		for _, span := range c.Evidence {
			spanRows = append(spanRows, []any{
				c.ID, span.SegmentID, span.Sequence, span.Quote, span.T0, span.T1, span.Context, span.ContextType,
			})
		}
	}
	if _, err := db.CopyFrom(ctx, tx, "evidence_spans",
		[]string{"claim_id", "segment_id", "sequence", "quote", "t0", "t1", "context", "context_type"}, spanRows); err != nil {
		return err
	}

	for _, r := range outputs.Relations {
		var exists int
		err := tx.QueryRow(ctx, `SELECT 1 FROM claims WHERE id = $1`, r.TargetClaimID).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return eris.Wrap(err, "postgres: check relation target")
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO relations (source_claim_id, target_claim_id, type, strength, rationale)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (source_claim_id, target_claim_id, type) DO UPDATE SET
				strength = EXCLUDED.strength, rationale = EXCLUDED.rationale`,
			r.SourceClaimID, r.TargetClaimID, string(r.Type), r.Strength, r.Rationale,
		); err != nil {
			return eris.Wrap(err, "postgres: insert relation")
		}
	}

	for _, p := range outputs.People {
		extIDs, err := json.Marshal(p.ExternalIDs)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal external ids for %s", p.Name)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO people (id, episode_id, name, normalized_name, entity_type, confidence, external_ids)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, episodeID, p.Name, p.NormalizedName, p.EntityType, p.Confidence, extIDs,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert person %s", p.ID)
		}
		for _, m := range p.Mentions {
			if _, err := tx.Exec(ctx, `
				INSERT INTO person_mentions (person_id, segment_id, surface, quote, t0, t1)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				p.ID, m.SegmentID, m.Surface, m.Quote, m.T0, m.T1,
			); err != nil {
				return eris.Wrapf(err, "postgres: insert mention for person %s", p.ID)
			}
		}
	}

	for _, c := range outputs.Concepts {
		aliases, err := json.Marshal(c.Aliases)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal aliases for %s", c.Name)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO concepts (id, episode_id, name, normalized_name, definition, aliases)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, episodeID, c.Name, c.NormalizedName, c.Definition, aliases,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert concept %s", c.ID)
		}
		for _, e := range c.Evidence {
			if _, err := tx.Exec(ctx, `
				INSERT INTO concept_evidence (concept_id, segment_id, quote, t0, t1)
				VALUES ($1, $2, $3, $4, $5)`,
				c.ID, e.SegmentID, e.Quote, e.T0, e.T1,
			); err != nil {
				return eris.Wrapf(err, "postgres: insert evidence for concept %s", c.ID)
			}
		}
	}

	for _, j := range outputs.Jargon {
		if _, err := tx.Exec(ctx, `
			INSERT INTO jargon_terms (id, episode_id, term, normalized_term, definition, domain)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			j.ID, episodeID, j.Term, j.NormalizedTerm, j.Definition, j.Domain,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert jargon %s", j.ID)
		}
		for _, e := range j.Evidence {
			if _, err := tx.Exec(ctx, `
				INSERT INTO jargon_evidence (term_id, segment_id, quote, t0, t1)
				VALUES ($1, $2, $3, $4, $5)`,
				j.ID, e.SegmentID, e.Quote, e.T0, e.T1,
			); err != nil {
				return eris.Wrapf(err, "postgres: insert evidence for jargon %s", j.ID)
			}
		}
	}

	for _, cat := range outputs.Categories {
		if _, err := tx.Exec(ctx, `
			INSERT INTO categories (episode_id, name, taxonomy_id, confidence, frequency)
			VALUES ($1, $2, $3, $4, $5)`,
			episodeID, cat.Name, cat.TaxonomyID, cat.Confidence, cat.Frequency,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert category %s", cat.Name)
		}
	}

	for _, d := range outputs.DuplicateLinks {
		if _, err := tx.Exec(ctx, `
			INSERT INTO duplicate_links (episode_id, text, prior_claim_id, similarity)
			VALUES ($1, $2, $3, $4)`,
			episodeID, d.Text, d.PriorClaimID, d.Similarity,
		); err != nil {
			return eris.Wrap(err, "postgres: insert duplicate link")
		}
	}

	return eris.Wrapf(tx.Commit(ctx), "postgres: commit upsert %s", episodeID)
}

func (s *PostgresStore) GetEpisode(ctx context.Context, episodeID string) (*model.Episode, error) {
	var ep model.Episode
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, channel_id, created_at, updated_at FROM episodes WHERE id = $1`, episodeID,
	).Scan(&ep.ID, &ep.Title, &ep.ChannelID, &ep.CreatedAt, &ep.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("episode not found: %s", episodeID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get episode %s", episodeID)
	}
	return &ep, nil
}

func (s *PostgresStore) ListEpisodes(ctx context.Context, filter EpisodeFilter) ([]model.Episode, error) {
	query := `SELECT id, title, channel_id, created_at, updated_at FROM episodes`
	var args []any
	if filter.ChannelID != "" {
		query += ` WHERE channel_id = $1`
		args = append(args, filter.ChannelID)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit) + ` OFFSET ` + strconv.Itoa(offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list episodes")
	}
	defer rows.Close()

	var out []model.Episode
	for rows.Next() {
		var ep model.Episode
		if err := rows.Scan(&ep.ID, &ep.Title, &ep.ChannelID, &ep.CreatedAt, &ep.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan episode")
		}
		out = append(out, ep)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list episodes")
}

func (s *PostgresStore) FetchChannelHistory(ctx context.Context, channelID string, claimLimit, jargonLimit int) (*model.ChannelHistory, error) {
	history := &model.ChannelHistory{ChannelID: channelID}

	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.episode_id, c.text, c.claim_type, c.tier
		FROM claims c
		JOIN episodes e ON e.id = c.episode_id
		WHERE e.channel_id = $1 AND c.decision IN ('accept', 'split')
		ORDER BY CASE c.tier WHEN 'A' THEN 0 WHEN 'B' THEN 1 ELSE 2 END, c.rank
		LIMIT $2`,
		channelID, claimLimit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: channel claims %s", channelID)
	}
	defer rows.Close()
	for rows.Next() {
		var hc model.HistoricalClaim
		if err := rows.Scan(&hc.ID, &hc.EpisodeID, &hc.Text, &hc.Topic, &hc.Tier); err != nil {
			return nil, eris.Wrap(err, "postgres: scan channel claim")
		}
		history.Claims = append(history.Claims, hc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: channel claims")
	}

	jrows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (j.normalized_term) j.id, j.term, j.definition, j.domain
		FROM jargon_terms j
		JOIN episodes e ON e.id = j.episode_id
		WHERE e.channel_id = $1
		ORDER BY j.normalized_term, e.created_at DESC
		LIMIT $2`,
		channelID, jargonLimit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: channel jargon %s", channelID)
	}
	defer jrows.Close()
	for jrows.Next() {
		var entry model.JargonEntry
		if err := jrows.Scan(&entry.ID, &entry.Term, &entry.Definition, &entry.Domain); err != nil {
			return nil, eris.Wrap(err, "postgres: scan channel jargon")
		}
		history.Jargon = append(history.Jargon, entry)
	}
	return history, eris.Wrap(jrows.Err(), "postgres: channel jargon")
}

func (s *PostgresStore) SearchClaims(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT claim_id, episode_id, source, snippet FROM (
			SELECT id AS claim_id, episode_id, 'claim' AS source, text AS snippet,
				ts_rank(text_tsv, plainto_tsquery('english', $1)) AS score
			FROM claims
			WHERE text_tsv @@ plainto_tsquery('english', $1)
			UNION ALL
			SELECT es.claim_id, c.episode_id, 'evidence' AS source, es.quote AS snippet,
				ts_rank(es.quote_tsv, plainto_tsquery('english', $1)) AS score
			FROM evidence_spans es
			JOIN claims c ON c.id = es.claim_id
			WHERE es.quote_tsv @@ plainto_tsquery('english', $1)
		) hits
		ORDER BY score DESC
		LIMIT $2`,
		query, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: search %q", query)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.ClaimID, &h.EpisodeID, &h.Source, &h.Snippet); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search hit")
		}
		hits = append(hits, h)
	}
	return hits, eris.Wrap(rows.Err(), "postgres: search")
}

func (s *PostgresStore) CreateRun(ctx context.Context, episodeID, channelID string) (*model.PipelineRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, episode_id, channel_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, episodeID, channelID, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &model.PipelineRun{
		ID:        id,
		EpisodeID: episodeID,
		ChannelID: channelID,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) CreateStage(ctx context.Context, runID, name string) (*model.RunStage, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_stages (id, run_id, name, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, runID, name, string(model.StageStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert stage %s", name)
	}
	return &model.RunStage{ID: id, RunID: runID, Name: name, Status: model.StageStatusRunning, StartedAt: now}, nil
}

func (s *PostgresStore) CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stage result")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE run_stages SET status = $1, result = $2 WHERE id = $3`,
		string(result.Status), resultJSON, stageID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete stage %s", stageID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("stage not found: %s", stageID)
	}
	return nil
}
