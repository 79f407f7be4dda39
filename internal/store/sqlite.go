package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/bytefield-ai/chronicle/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode. Foreign keys are enforced so a write-ordering bug fails loudly
// instead of leaving orphans.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS episodes (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	channel_id TEXT NOT NULL DEFAULT '',
	synopsis   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS segments (
	id         TEXT PRIMARY KEY,
	episode_id TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	speaker    TEXT NOT NULL DEFAULT '',
	t0         REAL NOT NULL,
	t1         REAL NOT NULL,
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
	importance             REAL NOT NULL DEFAULT 0,
	novelty                REAL NOT NULL DEFAULT 0,
	confidence             REAL NOT NULL DEFAULT 0,
	rejection_reason       TEXT NOT NULL DEFAULT '',
	merged_into            TEXT NOT NULL DEFAULT '',
	evolution_status       TEXT NOT NULL DEFAULT '',
	previous_claim_id      TEXT NOT NULL DEFAULT '',
	similarity_to_previous REAL NOT NULL DEFAULT 0,
	is_contradiction       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS evidence_spans (
	claim_id     TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
	segment_id   TEXT NOT NULL REFERENCES segments(id) ON DELETE CASCADE,
	sequence     INTEGER NOT NULL,
	quote        TEXT NOT NULL,
	t0           REAL NOT NULL,
	t1           REAL NOT NULL,
	context      TEXT NOT NULL DEFAULT '',
	context_type TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (claim_id, sequence)
);

CREATE TABLE IF NOT EXISTS relations (
	source_claim_id TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
	target_claim_id TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
	type            TEXT NOT NULL,
	strength        REAL NOT NULL DEFAULT 0,
	rationale       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (source_claim_id, target_claim_id, type)
);

CREATE TABLE IF NOT EXISTS people (
	id              TEXT PRIMARY KEY,
	episode_id      TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	entity_type     TEXT NOT NULL DEFAULT '',
	confidence      REAL NOT NULL DEFAULT 0,
	external_ids    TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS person_mentions (
	person_id  TEXT NOT NULL REFERENCES people(id) ON DELETE CASCADE,
	segment_id TEXT NOT NULL REFERENCES segments(id) ON DELETE CASCADE,
	surface    TEXT NOT NULL,
	quote      TEXT NOT NULL DEFAULT '',
	t0         REAL NOT NULL,
	t1         REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS concepts (
	id              TEXT PRIMARY KEY,
	episode_id      TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	definition      TEXT NOT NULL DEFAULT '',
	aliases         TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS concept_evidence (
	concept_id TEXT NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
	segment_id TEXT NOT NULL REFERENCES segments(id) ON DELETE CASCADE,
	quote      TEXT NOT NULL,
	t0         REAL NOT NULL,
	t1         REAL NOT NULL
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
	t0         REAL NOT NULL,
	t1         REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
	episode_id  TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	taxonomy_id TEXT NOT NULL DEFAULT '',
	confidence  REAL NOT NULL DEFAULT 0,
	frequency   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (episode_id, name)
);

CREATE TABLE IF NOT EXISTS duplicate_links (
	episode_id     TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	text           TEXT NOT NULL,
	prior_claim_id TEXT NOT NULL,
	similarity     REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	episode_id TEXT NOT NULL,
	channel_id TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'queued',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_stages (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	started_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE VIRTUAL TABLE IF NOT EXISTS claims_fts USING fts5(
	claim_id UNINDEXED,
	episode_id UNINDEXED,
	source UNINDEXED,
	content
);

CREATE INDEX IF NOT EXISTS idx_segments_episode ON segments(episode_id);
CREATE INDEX IF NOT EXISTS idx_claims_episode ON claims(episode_id);
CREATE INDEX IF NOT EXISTS idx_claims_decision ON claims(decision);
CREATE INDEX IF NOT EXISTS idx_spans_segment ON evidence_spans(segment_id);
CREATE INDEX IF NOT EXISTS idx_people_episode ON people(episode_id);
CREATE INDEX IF NOT EXISTS idx_concepts_episode ON concepts(episode_id);
CREATE INDEX IF NOT EXISTS idx_jargon_episode ON jargon_terms(episode_id);
CREATE INDEX IF NOT EXISTS idx_jargon_norm ON jargon_terms(normalized_term);
CREATE INDEX IF NOT EXISTS idx_episodes_channel ON episodes(channel_id);
CREATE INDEX IF NOT EXISTS idx_runs_episode ON runs(episode_id);
CREATE INDEX IF NOT EXISTS idx_run_stages_run ON run_stages(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// EnsureEpisode writes the minimal episode stub so segments can be stored
// before full metadata is known. Re-ensuring never erases known metadata.
func (s *SQLiteStore) EnsureEpisode(ctx context.Context, episode model.Episode) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episodes (id, title, channel_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = CASE WHEN excluded.title != '' THEN excluded.title ELSE episodes.title END,
			channel_id = CASE WHEN excluded.channel_id != '' THEN excluded.channel_id ELSE episodes.channel_id END,
			updated_at = excluded.updated_at`,
		episode.ID, episode.Title, episode.ChannelID, now, now,
	)
	return eris.Wrapf(err, "sqlite: ensure episode %s", episode.ID)
}

// UpsertEpisodeOutputs replaces an episode's entity graph in one
// transaction. Parents are written before children: episode, segments,
// claims, evidence/relations, entities, mentions.
func (s *SQLiteStore) UpsertEpisodeOutputs(ctx context.Context, outputs *model.EpisodeOutputs) error {
	episodeID := outputs.Episode.ID
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO episodes (id, title, channel_id, synopsis, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = CASE WHEN excluded.title != '' THEN excluded.title ELSE episodes.title END,
			channel_id = CASE WHEN excluded.channel_id != '' THEN excluded.channel_id ELSE episodes.channel_id END,
			synopsis   = excluded.synopsis,
			updated_at = excluded.updated_at`,
		episodeID, outputs.Episode.Title, outputs.Episode.ChannelID, outputs.Synopsis, now, now,
	); err != nil {
		return eris.Wrapf(err, "sqlite: upsert episode %s", episodeID)
	}

	// Reprocessing replaces, never appends. Cascades clear child rows.
	for _, del := range []string{
		`DELETE FROM claims WHERE episode_id = ?`,
		`DELETE FROM people WHERE episode_id = ?`,
		`DELETE FROM concepts WHERE episode_id = ?`,
		`DELETE FROM jargon_terms WHERE episode_id = ?`,
		`DELETE FROM categories WHERE episode_id = ?`,
		`DELETE FROM duplicate_links WHERE episode_id = ?`,
		`DELETE FROM segments WHERE episode_id = ?`,
		`DELETE FROM claims_fts WHERE episode_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, del, episodeID); err != nil {
			return eris.Wrapf(err, "sqlite: clear episode %s", episodeID)
		}
	}

	for _, seg := range outputs.Segments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO segments (id, episode_id, speaker, t0, t1, text, sequence)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			seg.ID, episodeID, seg.Speaker, seg.T0, seg.T1, seg.Text, seg.Sequence,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert segment %s", seg.ID)
		}
	}

	for _, c := range outputs.Claims {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO claims (id, episode_id, text, claim_type, stance, decision, tier, rank,
				importance, novelty, confidence, rejection_reason, merged_into,
				evolution_status, previous_claim_id, similarity_to_previous, is_contradiction)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, episodeID, c.Text, string(c.Type), c.Stance, string(c.Decision), string(c.Tier), c.Rank,
			c.Importance, c.Novelty, c.Confidence, c.RejectionReason, c.MergedInto,
			string(c.Evolution), c.PreviousClaimID, c.SimilarityToPrevious, boolToInt(c.IsContradiction),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert claim %s", c.ID)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO claims_fts (claim_id, episode_id, source, content) VALUES (?, ?, 'claim', ?)`,
			c.ID, episodeID, c.Text,
		); err != nil {
			return eris.Wrapf(err, "sqlite: index claim %s", c.ID)
		}
		for _, span := range c.Evidence {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO evidence_spans (claim_id, segment_id, sequence, quote, t0, t1, context, context_type)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				c.ID, span.SegmentID, span.Sequence, span.Quote, span.T0, span.T1, span.Context, span.ContextType,
			); err != nil {
				return eris.Wrapf(err, "sqlite: insert evidence span for claim %s", c.ID)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO claims_fts (claim_id, episode_id, source, content) VALUES (?, ?, 'evidence', ?)`,
				c.ID, episodeID, span.Quote,
			); err != nil {
				return eris.Wrapf(err, "sqlite: index evidence for claim %s", c.ID)
			}
		}
	}

	for _, r := range outputs.Relations {
		// Relations may target claims from earlier episodes; skip targets
		// that were never persisted rather than violate the key.
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM claims WHERE id = ?`, r.TargetClaimID).Scan(&exists)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return eris.Wrap(err, "sqlite: check relation target")
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO relations (source_claim_id, target_claim_id, type, strength, rationale)
			VALUES (?, ?, ?, ?, ?)`,
			r.SourceClaimID, r.TargetClaimID, string(r.Type), r.Strength, r.Rationale,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert relation")
		}
	}

	for _, p := range outputs.People {
		extIDs, err := json.Marshal(p.ExternalIDs)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal external ids for %s", p.Name)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO people (id, episode_id, name, normalized_name, entity_type, confidence, external_ids)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, episodeID, p.Name, p.NormalizedName, p.EntityType, p.Confidence, string(extIDs),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert person %s", p.ID)
		}
		for _, m := range p.Mentions {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO person_mentions (person_id, segment_id, surface, quote, t0, t1)
				VALUES (?, ?, ?, ?, ?, ?)`,
				p.ID, m.SegmentID, m.Surface, m.Quote, m.T0, m.T1,
			); err != nil {
				return eris.Wrapf(err, "sqlite: insert mention for person %s", p.ID)
			}
		}
	}

	for _, c := range outputs.Concepts {
		aliases, err := json.Marshal(c.Aliases)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal aliases for %s", c.Name)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO concepts (id, episode_id, name, normalized_name, definition, aliases)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, episodeID, c.Name, c.NormalizedName, c.Definition, string(aliases),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert concept %s", c.ID)
		}
		for _, e := range c.Evidence {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO concept_evidence (concept_id, segment_id, quote, t0, t1)
				VALUES (?, ?, ?, ?, ?)`,
				c.ID, e.SegmentID, e.Quote, e.T0, e.T1,
			); err != nil {
				return eris.Wrapf(err, "sqlite: insert evidence for concept %s", c.ID)
			}
		}
	}

	for _, j := range outputs.Jargon {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO jargon_terms (id, episode_id, term, normalized_term, definition, domain)
			VALUES (?, ?, ?, ?, ?, ?)`,
			j.ID, episodeID, j.Term, j.NormalizedTerm, j.Definition, j.Domain,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert jargon %s", j.ID)
		}
		for _, e := range j.Evidence {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO jargon_evidence (term_id, segment_id, quote, t0, t1)
				VALUES (?, ?, ?, ?, ?)`,
				j.ID, e.SegmentID, e.Quote, e.T0, e.T1,
			); err != nil {
				return eris.Wrapf(err, "sqlite: insert evidence for jargon %s", j.ID)
			}
		}
	}

	for _, cat := range outputs.Categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO categories (episode_id, name, taxonomy_id, confidence, frequency)
			VALUES (?, ?, ?, ?, ?)`,
			episodeID, cat.Name, cat.TaxonomyID, cat.Confidence, cat.Frequency,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert category %s", cat.Name)
		}
	}

	for _, d := range outputs.DuplicateLinks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO duplicate_links (episode_id, text, prior_claim_id, similarity)
			VALUES (?, ?, ?, ?)`,
			episodeID, d.Text, d.PriorClaimID, d.Similarity,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert duplicate link")
		}
	}

	return eris.Wrapf(tx.Commit(), "sqlite: commit upsert %s", episodeID)
}

func (s *SQLiteStore) GetEpisode(ctx context.Context, episodeID string) (*model.Episode, error) {
	var ep model.Episode
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, channel_id, created_at, updated_at FROM episodes WHERE id = ?`, episodeID,
	).Scan(&ep.ID, &ep.Title, &ep.ChannelID, &ep.CreatedAt, &ep.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("episode not found: %s", episodeID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get episode %s", episodeID)
	}
	return &ep, nil
}

func (s *SQLiteStore) ListEpisodes(ctx context.Context, filter EpisodeFilter) ([]model.Episode, error) {
	query := `SELECT id, title, channel_id, created_at, updated_at FROM episodes`
	var args []any
	if filter.ChannelID != "" {
		query += ` WHERE channel_id = ?`
		args = append(args, filter.ChannelID)
	}
	query += ` ORDER BY created_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list episodes")
	}
	defer rows.Close()

	var out []model.Episode
	for rows.Next() {
		var ep model.Episode
		if err := rows.Scan(&ep.ID, &ep.Title, &ep.ChannelID, &ep.CreatedAt, &ep.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan episode")
		}
		out = append(out, ep)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list episodes")
}

func (s *SQLiteStore) FetchChannelHistory(ctx context.Context, channelID string, claimLimit, jargonLimit int) (*model.ChannelHistory, error) {
	history := &model.ChannelHistory{ChannelID: channelID}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.episode_id, c.text, c.claim_type, c.tier
		FROM claims c
		JOIN episodes e ON e.id = c.episode_id
		WHERE e.channel_id = ? AND c.decision IN ('accept', 'split')
		ORDER BY CASE c.tier WHEN 'A' THEN 0 WHEN 'B' THEN 1 ELSE 2 END, c.rank
		LIMIT ?`,
		channelID, claimLimit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: channel claims %s", channelID)
	}
	defer rows.Close()
	for rows.Next() {
		var hc model.HistoricalClaim
		if err := rows.Scan(&hc.ID, &hc.EpisodeID, &hc.Text, &hc.Topic, &hc.Tier); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan channel claim")
		}
		history.Claims = append(history.Claims, hc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: channel claims")
	}

	jrows, err := s.db.QueryContext(ctx, `
		SELECT j.id, j.term, j.normalized_term, j.definition, j.domain
		FROM jargon_terms j
		JOIN episodes e ON e.id = j.episode_id
		WHERE e.channel_id = ?
		ORDER BY e.created_at DESC
		LIMIT ?`,
		channelID, jargonLimit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: channel jargon %s", channelID)
	}
	defer jrows.Close()
	seen := map[string]bool{}
	for jrows.Next() {
		var entry model.JargonEntry
		var norm string
		if err := jrows.Scan(&entry.ID, &entry.Term, &norm, &entry.Definition, &entry.Domain); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan channel jargon")
		}
		if seen[norm] {
			continue
		}
		seen[norm] = true
		history.Jargon = append(history.Jargon, entry)
	}
	return history, eris.Wrap(jrows.Err(), "sqlite: channel jargon")
}

func (s *SQLiteStore) SearchClaims(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT claim_id, episode_id, source, snippet(claims_fts, 3, '[', ']', '…', 12)
		FROM claims_fts
		WHERE claims_fts MATCH ?
		ORDER BY rank
		LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: search %q", query)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.ClaimID, &h.EpisodeID, &h.Source, &h.Snippet); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan search hit")
		}
		hits = append(hits, h)
	}
	return hits, eris.Wrap(rows.Err(), "sqlite: search")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, episodeID, channelID string) (*model.PipelineRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, episode_id, channel_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, episodeID, channelID, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) CreateStage(ctx context.Context, runID, name string) (*model.RunStage, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_stages (id, run_id, name, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, runID, name, string(model.StageStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert stage %s", name)
	}
	return &model.RunStage{ID: id, RunID: runID, Name: name, Status: model.StageStatusRunning, StartedAt: now}, nil
}

func (s *SQLiteStore) CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stage result")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_stages SET status = ?, result = ? WHERE id = ?`,
		string(result.Status), string(resultJSON), stageID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete stage %s", stageID)
	}
	return checkRowsAffected(res, "stage", stageID)
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
