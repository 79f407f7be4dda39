// Package store persists episodes, claims, and their entity graph. Write
// ordering is the core correctness rule: parent rows exist before any child
// row referencing them, and reprocessing an episode replaces its rows rather
// than appending.
package store

import (
	"context"

	"github.com/bytefield-ai/chronicle/internal/model"
)

// EpisodeFilter specifies criteria for listing episodes.
type EpisodeFilter struct {
	ChannelID string `json:"channel_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// SearchHit is one full-text match over claim text or evidence quotes.
type SearchHit struct {
	ClaimID   string `json:"claim_id"`
	EpisodeID string `json:"episode_id"`
	Source    string `json:"source"` // claim or evidence
	Snippet   string `json:"snippet"`
}

// Store defines the persistence interface for the extraction pipeline.
type Store interface {
	// Episodes
	EnsureEpisode(ctx context.Context, episode model.Episode) error
	UpsertEpisodeOutputs(ctx context.Context, outputs *model.EpisodeOutputs) error
	GetEpisode(ctx context.Context, episodeID string) (*model.Episode, error)
	GetEpisodeOutputs(ctx context.Context, episodeID string) (*model.EpisodeOutputs, error)
	ListEpisodes(ctx context.Context, filter EpisodeFilter) ([]model.Episode, error)

	// Channel history for the consistency engine
	FetchChannelHistory(ctx context.Context, channelID string, claimLimit, jargonLimit int) (*model.ChannelHistory, error)

	// Full-text search over claim text and evidence quotes
	SearchClaims(ctx context.Context, query string, limit int) ([]SearchHit, error)

	// Runs
	CreateRun(ctx context.Context, episodeID, channelID string) (*model.PipelineRun, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CreateStage(ctx context.Context, runID, name string) (*model.RunStage, error)
	CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
