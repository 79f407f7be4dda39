package pipeline

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bytefield-ai/chronicle/internal/miner"
	"github.com/bytefield-ai/chronicle/internal/model"
)

// mineStage extracts every segment concurrently. A segment whose extraction
// fails after retries is dropped with a logged reason; only cancellation
// aborts the whole stage. Results keep segment order regardless of completion
// order.
func (p *Pipeline) mineStage(ctx context.Context, segments []model.Segment, mctx miner.Context) ([]*model.SegmentExtraction, error) {
	results := make([]*model.SegmentExtraction, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workerLimit())

	for i, seg := range segments {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			extraction, err := p.miner.Mine(gctx, seg, mctx)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				zap.L().Warn("pipeline: segment extraction failed, dropping segment",
					zap.String("segment_id", seg.ID),
					zap.Error(err),
				)
				return nil
			}
			results[i] = extraction
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// workerLimit derives the mining fan-out from configuration and available
// memory. When the heap is already past the configured budget the limit is
// halved so in-flight segments finish before new ones start.
func (p *Pipeline) workerLimit() int {
	limit := p.cfg.Workers
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	if p.cfg.MemoryBudgetMB > 0 {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		if stats.HeapInuse > uint64(p.cfg.MemoryBudgetMB)*1024*1024 {
			limit = (limit + 1) / 2
			zap.L().Warn("pipeline: heap over budget, halving mining workers",
				zap.Uint64("heap_inuse_bytes", stats.HeapInuse),
				zap.Int("memory_budget_mb", p.cfg.MemoryBudgetMB),
				zap.Int("workers", limit),
			)
		}
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}
