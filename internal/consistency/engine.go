// Package consistency implements the retrieval-augmented consistency engine:
// it fetches a channel's prior claims and jargon, injects them into the
// miner's context, and classifies each new claim as novel, duplicate,
// evolution, or contradiction relative to the channel's canon.
package consistency

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/bytefield-ai/chronicle/internal/embed"
	"github.com/bytefield-ai/chronicle/internal/model"
)

// Classification thresholds. Duplicate suppression is conservative so claims
// that merely share a topic are kept; the lower evolution band deliberately
// catches restatements with a changed qualifier, which must be kept rather
// than merged away.
const (
	DefaultDuplicateThreshold = 0.95
	DefaultEvolutionThreshold = 0.85

	DefaultClaimLimit  = 50
	DefaultJargonLimit = 100

	// DefaultFetchTimeout bounds a single history-source query. History is
	// an enhancement, so a slow store degrades to empty history instead of
	// stalling the run.
	DefaultFetchTimeout = 10 * time.Second
)

// HistorySource supplies a channel's prior claims and jargon. Backed by the
// claim store in production; must tolerate unavailability.
type HistorySource interface {
	FetchChannelHistory(ctx context.Context, channelID string, claimLimit, jargonLimit int) (*model.ChannelHistory, error)
}

// Classification is the outcome of comparing one new claim against channel
// history.
type Classification struct {
	Status       model.EvolutionStatus
	PriorClaimID string
	Similarity   float64

	priorText string
}

// Config tunes the engine. Zero values fall back to defaults.
type Config struct {
	DuplicateThreshold float64
	EvolutionThreshold float64
	ClaimLimit         int
	JargonLimit        int
	FetchTimeout       time.Duration
}

func (c Config) withDefaults() Config {
	if c.DuplicateThreshold <= 0 {
		c.DuplicateThreshold = DefaultDuplicateThreshold
	}
	if c.EvolutionThreshold <= 0 {
		c.EvolutionThreshold = DefaultEvolutionThreshold
	}
	if c.ClaimLimit <= 0 {
		c.ClaimLimit = DefaultClaimLimit
	}
	if c.JargonLimit <= 0 {
		c.JargonLimit = DefaultJargonLimit
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	return c
}

// Engine fetches channel history and classifies new claims against it.
// Consistency checking is an enhancement: every failure path degrades to
// novel classification rather than blocking the pipeline.
type Engine struct {
	source   HistorySource
	embedder embed.Embedder
	cfg      Config
	cache    *gocache.Cache
}

// NewEngine creates a consistency engine.
func NewEngine(source HistorySource, embedder embed.Embedder, cfg Config) *Engine {
	return &Engine{
		source:   source,
		embedder: embedder,
		cfg:      cfg.withDefaults(),
		cache:    gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// FetchChannelHistory retrieves the channel's top prior claims and jargon
// registry. A missing channel id, an unavailable source, or a source error
// all yield an empty history, never an error.
func (e *Engine) FetchChannelHistory(ctx context.Context, channelID string) *model.ChannelHistory {
	empty := &model.ChannelHistory{ChannelID: channelID}
	if channelID == "" || e.source == nil {
		return empty
	}

	// Consecutive episodes from one channel are common in batch runs; a
	// short-lived cache keeps them from re-querying the store.
	if v, found := e.cache.Get(channelID); found {
		return v.(*model.ChannelHistory)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()
	history, err := e.source.FetchChannelHistory(fetchCtx, channelID, e.cfg.ClaimLimit, e.cfg.JargonLimit)
	if err != nil {
		zap.L().Warn("consistency: history source unavailable, proceeding without history",
			zap.String("channel_id", channelID),
			zap.Error(err),
		)
		return empty
	}
	if history == nil {
		return empty
	}
	e.cache.SetDefault(channelID, history)
	return history
}

// Invalidate drops the cached history for a channel. Called after an episode
// persists so the next episode sees the new claims.
func (e *Engine) Invalidate(channelID string) {
	e.cache.Delete(channelID)
}

// Classify compares a new claim's canonical text against every historical
// claim using embedding cosine similarity. Any embedding failure degrades to
// novel.
func (e *Engine) Classify(ctx context.Context, claimText string, history *model.ChannelHistory) Classification {
	novel := Classification{Status: model.EvolutionNovel}
	if history.Empty() || len(history.Claims) == 0 || e.embedder == nil {
		return novel
	}

	newVec, err := e.embedder.Embed(ctx, claimText)
	if err != nil {
		zap.L().Warn("consistency: embedding failed, classifying as novel", zap.Error(err))
		return novel
	}

	best := Classification{Status: model.EvolutionNovel}
	for _, prior := range history.Claims {
		priorVec, err := e.embedder.Embed(ctx, prior.Text)
		if err != nil {
			zap.L().Warn("consistency: prior claim embedding failed, skipping",
				zap.String("prior_claim_id", prior.ID),
				zap.Error(err),
			)
			continue
		}
		sim := embed.Cosine(newVec, priorVec)
		if sim > best.Similarity {
			best.Similarity = sim
			best.PriorClaimID = prior.ID
			best.priorText = prior.Text
		}
	}

	switch {
	case best.Similarity >= e.cfg.DuplicateThreshold:
		best.Status = model.EvolutionDuplicate
	case best.Similarity >= e.cfg.EvolutionThreshold:
		if IsContradiction(claimText, best.priorText) {
			best.Status = model.EvolutionContradiction
		} else {
			best.Status = model.EvolutionEvolution
		}
	default:
		return novel
	}
	return best
}
