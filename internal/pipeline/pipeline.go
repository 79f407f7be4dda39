// Package pipeline orchestrates episode processing: mining segments in
// parallel, classifying claims against channel history, evaluating the full
// claim set, and persisting the result as one upsert. Stages are strictly
// ordered by data dependency; only mining fans out.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bytefield-ai/chronicle/internal/consistency"
	"github.com/bytefield-ai/chronicle/internal/evaluator"
	"github.com/bytefield-ai/chronicle/internal/miner"
	"github.com/bytefield-ai/chronicle/internal/model"
	"github.com/bytefield-ai/chronicle/internal/store"
	"github.com/bytefield-ai/chronicle/pkg/anthropic"
)

// Config tunes the orchestrator. Synopsis and categorization are optional
// enhancement stages; disabling them or losing them to an error never blocks
// the required stages.
type Config struct {
	Workers        int
	MemoryBudgetMB int

	EnableSynopsis       bool
	EnableCategorization bool
	Taxonomy             []TaxonomyCategory

	Model     string
	MaxTokens int64
}

// Pipeline runs the extraction state machine for one episode at a time.
type Pipeline struct {
	cfg       Config
	store     store.Store
	miner     miner.Miner
	evaluator evaluator.Evaluator
	engine    *consistency.Engine
	anthropic anthropic.Client
}

// New creates a Pipeline with all dependencies.
func New(
	cfg Config,
	st store.Store,
	m miner.Miner,
	ev evaluator.Evaluator,
	engine *consistency.Engine,
	aiClient anthropic.Client,
) *Pipeline {
	if cfg.Model == "" {
		cfg.Model = "claude-haiku-4-5-20251001"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		miner:     m,
		evaluator: ev,
		engine:    engine,
		anthropic: aiClient,
	}
}

// Process runs every stage for one episode and returns the caller-facing
// summary. Partial failures degrade richness; only a persist failure or
// cancellation fails the run.
func (p *Pipeline) Process(ctx context.Context, episode model.Episode, segments []model.Segment) (*model.EpisodeSummary, error) {
	log := zap.L().With(zap.String("episode_id", episode.ID), zap.String("channel_id", episode.ChannelID))
	log.Info("pipeline: starting episode")

	segments = orderSegments(episode.ID, segments)
	if len(segments) == 0 {
		return nil, eris.Errorf("pipeline: episode %s has no segments", episode.ID)
	}

	// Episode stub first so segments always have a parent row.
	if err := p.store.EnsureEpisode(ctx, episode); err != nil {
		return nil, eris.Wrap(err, "pipeline: ensure episode")
	}

	run, err := p.store.CreateRun(ctx, episode.ID, episode.ChannelID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	setStatus := func(status model.RunStatus) {
		if statusErr := p.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("pipeline: failed to update run status", zap.Error(statusErr))
		}
	}

	var totalUsage model.TokenUsage
	trackStage := func(name string, fn func() (*model.StageResult, error)) *model.StageResult {
		stage, stageErr := p.store.CreateStage(ctx, run.ID, name)
		if stageErr != nil {
			log.Warn("pipeline: failed to create stage", zap.String("stage", name), zap.Error(stageErr))
		}

		start := time.Now()
		result, fnErr := fn()
		duration := time.Since(start).Milliseconds()

		if result == nil {
			result = &model.StageResult{}
		}
		result.Name = name
		result.Duration = duration
		totalUsage.Add(result.TokenUsage)

		if fnErr != nil {
			result.Status = model.StageStatusFailed
			result.Error = fnErr.Error()
			log.Error("pipeline: stage failed",
				zap.String("stage", name),
				zap.Int64("duration_ms", duration),
				zap.Error(fnErr),
			)
		} else if result.Status == "" {
			result.Status = model.StageStatusComplete
		}
		if result.Status == model.StageStatusComplete {
			log.Info("pipeline: stage complete",
				zap.String("stage", name),
				zap.Int64("duration_ms", duration),
			)
		}

		if stage != nil {
			_ = p.store.CompleteStage(ctx, stage.ID, result)
		}
		return result
	}

	// History is fetched once per episode; the engine degrades to empty on
	// any failure, so this stage cannot fail.
	var history *model.ChannelHistory
	var hints string
	trackStage("history", func() (*model.StageResult, error) {
		history = p.engine.FetchChannelHistory(ctx, episode.ChannelID)
		hints = consistency.BuildContextInjection(history)
		return &model.StageResult{Metadata: map[string]any{
			"prior_claims": len(history.Claims),
			"prior_jargon": len(history.Jargon),
		}}, nil
	})

	var synopsis string
	if p.cfg.EnableSynopsis {
		trackStage("synopsis", func() (*model.StageResult, error) {
			text, usage, synErr := p.synopsisStage(ctx, segments)
			if synErr != nil {
				return &model.StageResult{TokenUsage: usage}, synErr
			}
			synopsis = text
			return &model.StageResult{TokenUsage: usage}, nil
		})
	}

	setStatus(model.RunStatusMining)
	var extractions []*model.SegmentExtraction
	mineResult := trackStage("mining", func() (*model.StageResult, error) {
		var mineErr error
		extractions, mineErr = p.mineStage(ctx, segments, miner.Context{Synopsis: synopsis, ConsistencyHints: hints})
		usage := model.TokenUsage{}
		mined := 0
		for _, ex := range extractions {
			if ex == nil {
				continue
			}
			usage.Add(ex.Usage)
			mined += len(ex.Claims)
		}
		return &model.StageResult{
			TokenUsage: usage,
			Metadata:   map[string]any{"segments": len(segments), "claims_mined": mined},
		}, mineErr
	})
	if mineResult.Status == model.StageStatusFailed && ctx.Err() != nil {
		setStatus(model.RunStatusFailed)
		return nil, eris.Wrap(ctx.Err(), "pipeline: mining cancelled")
	}

	claims, people, concepts, jargon := aggregate(extractions)

	setStatus(model.RunStatusClassifying)
	var duplicates []model.DuplicateLink
	var contradictionRelations []model.Relation
	trackStage("consistency", func() (*model.StageResult, error) {
		claims, duplicates, contradictionRelations = p.classifyStage(ctx, episode.ID, claims, history)
		return &model.StageResult{Metadata: map[string]any{
			"duplicates": len(duplicates),
			"kept":       len(claims),
		}}, nil
	})

	setStatus(model.RunStatusEvaluating)
	var evaluated *evaluator.Result
	trackStage("evaluation", func() (*model.StageResult, error) {
		var evalErr error
		evaluated, evalErr = p.evaluator.Evaluate(ctx, claims, synopsis)
		if evalErr != nil {
			return nil, evalErr
		}
		result := &model.StageResult{TokenUsage: evaluated.Usage}
		if evaluated.Degraded {
			result.Status = model.StageStatusSkipped
			result.Metadata = map[string]any{"degraded": true}
		}
		return result, nil
	})
	if evaluated == nil {
		// Evaluator degrades internally; a nil result means a programming
		// error upstream, not an API failure.
		evaluated = &evaluator.Result{Claims: claims}
	}

	var categories []model.Category
	if p.cfg.EnableCategorization {
		trackStage("categorization", func() (*model.StageResult, error) {
			var usage model.TokenUsage
			var catErr error
			categories, usage, catErr = p.categorizeStage(ctx, evaluated.Claims)
			return &model.StageResult{TokenUsage: usage}, catErr
		})
	}

	outputs := &model.EpisodeOutputs{
		Episode:        episode,
		Synopsis:       synopsis,
		Segments:       segments,
		Claims:         evaluated.Claims,
		Relations:      append(evaluated.Relations, contradictionRelations...),
		People:         people,
		Concepts:       concepts,
		Jargon:         jargon,
		Categories:     categories,
		DuplicateLinks: duplicates,
	}

	setStatus(model.RunStatusPersisting)
	persistResult := trackStage("persist", func() (*model.StageResult, error) {
		return nil, p.store.UpsertEpisodeOutputs(ctx, outputs)
	})
	if persistResult.Status == model.StageStatusFailed {
		setStatus(model.RunStatusFailed)
		return nil, eris.Errorf("pipeline: persist failed for episode %s: %s", episode.ID, persistResult.Error)
	}

	p.engine.Invalidate(episode.ChannelID)
	setStatus(model.RunStatusComplete)
	log.Info("pipeline: episode complete",
		zap.Int("claims", len(outputs.Claims)),
		zap.Int("duplicates", len(duplicates)),
		zap.Int("input_tokens", totalUsage.InputTokens),
		zap.Int("output_tokens", totalUsage.OutputTokens),
	)

	summary := model.NewEpisodeSummary(outputs, time.Now().UTC())
	return &summary, nil
}

// orderSegments filters out segments from other episodes and restores
// sequence order.
func orderSegments(episodeID string, segments []model.Segment) []model.Segment {
	out := make([]model.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.EpisodeID == "" {
			seg.EpisodeID = episodeID
		}
		if seg.EpisodeID != episodeID {
			zap.L().Warn("pipeline: dropping segment from other episode",
				zap.String("segment_id", seg.ID),
				zap.String("episode_id", seg.EpisodeID),
			)
			continue
		}
		out = append(out, seg)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}
