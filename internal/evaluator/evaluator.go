// Package evaluator ranks an episode's complete claim set. It runs once per
// episode because ranking requires cross-claim comparison: per-segment
// evaluation cannot order claims it has not seen.
package evaluator

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/bytefield-ai/chronicle/internal/model"
	"github.com/bytefield-ai/chronicle/internal/resilience"
	"github.com/bytefield-ai/chronicle/internal/schema"
	"github.com/bytefield-ai/chronicle/pkg/anthropic"
)

// Evaluator decides accept/reject/merge/split for every claim in an episode
// and ranks the accepted ones.
type Evaluator interface {
	Evaluate(ctx context.Context, claims []model.Claim, synopsis string) (*Result, error)
}

// Result is the evaluated claim set. Claims classified duplicate pass
// through untouched; they are linked to prior claims, never re-ranked.
type Result struct {
	Claims    []model.Claim
	Relations []model.Relation
	Usage     model.TokenUsage

	// Degraded is set when the evaluation call failed and every claim was
	// accepted as-is instead.
	Degraded bool
}

// Config tunes the flagship evaluator.
type Config struct {
	Model          string
	MaxTokens      int64
	RequestTimeout time.Duration
	Retry          resilience.RetryConfig

	// MergeThreshold is the lexical Jaccard similarity above which two
	// claims from the same episode are merged before evaluation.
	MergeThreshold float64
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "claude-sonnet-4-5-20250929"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 8192
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 180 * time.Second
	}
	if c.MergeThreshold <= 0 {
		c.MergeThreshold = 0.8
	}
	return c
}

// Flagship is the production evaluator backed by the completion capability.
type Flagship struct {
	client anthropic.Client
	cfg    Config
}

// New creates a flagship evaluator.
func New(client anthropic.Client, cfg Config) *Flagship {
	return &Flagship{client: client, cfg: cfg.withDefaults()}
}

// Evaluate runs the per-episode evaluation pass. Failure of the completion
// call degrades to pass-through: every candidate claim is accepted in input
// order so the episode still persists partial results.
func (f *Flagship) Evaluate(ctx context.Context, claims []model.Claim, synopsis string) (*Result, error) {
	duplicates, candidates := partitionDuplicates(claims)
	candidates = mergeNearDuplicates(candidates, f.cfg.MergeThreshold)

	active := activeClaims(candidates)
	if len(active) == 0 {
		return &Result{Claims: append(candidates, duplicates...)}, nil
	}

	req := anthropic.MessageRequest{
		Model:     f.cfg.Model,
		MaxTokens: f.cfg.MaxTokens,
		System:    evaluationSystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildEvaluationPrompt(active, synopsis)},
		},
	}

	resp, err := resilience.DoVal(ctx, f.cfg.Retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, f.cfg.RequestTimeout)
		defer cancel()
		return f.client.CreateMessage(callCtx, req)
	})
	if err != nil {
		zap.L().Warn("evaluator: completion failed, accepting claims as-is", zap.Error(err))
		acceptAll(active)
		assignTiers(active)
		return &Result{Claims: append(candidates, duplicates...), Degraded: true}, nil
	}

	resp.Usage.LogCost(f.cfg.Model, "evaluation")
	relations := f.applyResponse(resp, active)
	assignTiers(active)

	return &Result{
		Claims:    append(candidates, duplicates...),
		Relations: relations,
		Usage:     model.TokenUsage{InputTokens: int(resp.Usage.InputTokens), OutputTokens: int(resp.Usage.OutputTokens)},
	}, nil
}

// applyResponse parses the evaluation document and applies each entry to the
// claim it indexes. Claims the document never mentions are accepted with
// sentinel rank rather than silently lost.
func (f *Flagship) applyResponse(resp *anthropic.MessageResponse, active []*model.Claim) []model.Relation {
	cleaned := cleanJSON(resp.Text())

	var doc map[string]any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		zap.L().Warn("evaluator: unparseable response, accepting claims as-is", zap.Error(err))
		acceptAll(active)
		return nil
	}

	version := schema.CurrentVersion
	if v, ok := doc["schema_version"].(float64); ok && int(v) >= schema.Version1 {
		version = int(v)
	}
	repaired, valid, fieldErrs := schema.ValidateAndRepair(doc, schema.KindEvaluation, version)
	if len(fieldErrs) > 0 {
		zap.L().Debug("evaluator: document repaired",
			zap.Bool("valid", valid),
			zap.Int("field_errors", len(fieldErrs)),
		)
	}

	seen := make(map[int]bool, len(active))
	evals, _ := repaired["evaluations"].([]any)
	for _, item := range evals {
		ev, ok := item.(map[string]any)
		if !ok {
			continue
		}
		idx := int(num(ev["claim_index"]))
		if idx < 0 || idx >= len(active) || seen[idx] {
			continue
		}
		seen[idx] = true
		applyEvaluation(active, idx, ev)
	}

	for i, c := range active {
		if !seen[i] && c.Decision == "" {
			c.Decision = model.DecisionAccept
			c.Rank = model.SentinelRank
			zap.L().Debug("evaluator: claim missing from evaluation, accepted with sentinel rank",
				zap.String("claim_id", c.ID),
			)
		}
	}

	return parseRelations(repaired, active)
}

func applyEvaluation(active []*model.Claim, idx int, ev map[string]any) {
	c := active[idx]
	decision := str(ev["decision"])
	switch decision {
	case "accept", "split":
		// Split claims stay in the ranked set; the decision marks them
		// compound so downstream consumers can surface them differently.
		c.Decision = model.DecisionAccept
		if decision == "split" {
			c.Decision = model.DecisionSplit
		}
		if r, ok := ev["rank"].(float64); ok {
			c.Rank = int(r)
		} else {
			c.Rank = model.SentinelRank
		}
		c.Importance = num(ev["importance"])
		c.Novelty = num(ev["novelty"])
		c.Confidence = num(ev["confidence"])
	case "reject":
		c.Decision = model.DecisionReject
		c.Tier = model.TierRejected
		c.RejectionReason = str(ev["rejection_reason"])
	case "merge":
		target := int(num(ev["merge_with"]))
		if target < 0 || target >= len(active) || target == idx {
			c.Decision = model.DecisionReject
			c.Tier = model.TierRejected
			c.RejectionReason = "merge target out of range"
			return
		}
		c.Decision = model.DecisionMerge
		c.Tier = model.TierRejected
		c.MergedInto = active[target].ID
		foldEvidence(active[target], c)
	}
}

// parseRelations reads the optional relations array. Entries indexing past
// the claim list or naming unknown types are dropped.
func parseRelations(doc map[string]any, active []*model.Claim) []model.Relation {
	raw, ok := doc["relations"].([]any)
	if !ok {
		return nil
	}
	types := map[string]model.RelationType{
		"supports":    model.RelationSupports,
		"contradicts": model.RelationContradicts,
		"depends_on":  model.RelationDependsOn,
		"refines":     model.RelationRefines,
	}
	var out []model.Relation
	for _, item := range raw {
		r, rok := item.(map[string]any)
		if !rok {
			continue
		}
		src := int(num(r["source_index"]))
		dst := int(num(r["target_index"]))
		rt, tok := types[str(r["type"])]
		if !tok || src < 0 || src >= len(active) || dst < 0 || dst >= len(active) || src == dst {
			continue
		}
		out = append(out, model.Relation{
			SourceClaimID: active[src].ID,
			TargetClaimID: active[dst].ID,
			Type:          rt,
			Strength:      num(r["strength"]),
			Rationale:     str(r["rationale"]),
		})
	}
	return out
}

// partitionDuplicates splits out claims already classified as duplicates of
// prior channel claims. They are excluded from ranking entirely.
func partitionDuplicates(claims []model.Claim) (duplicates, candidates []model.Claim) {
	for _, c := range claims {
		if c.Evolution == model.EvolutionDuplicate {
			duplicates = append(duplicates, c)
		} else {
			candidates = append(candidates, c)
		}
	}
	return duplicates, candidates
}

// activeClaims returns pointers to the candidates still awaiting a decision,
// in input order. Mutations through the pointers update the caller's slice.
func activeClaims(candidates []model.Claim) []*model.Claim {
	out := make([]*model.Claim, 0, len(candidates))
	for i := range candidates {
		if candidates[i].Decision == "" {
			out = append(out, &candidates[i])
		}
	}
	return out
}

func acceptAll(active []*model.Claim) {
	for i, c := range active {
		c.Decision = model.DecisionAccept
		c.Rank = i + 1
	}
}

func foldEvidence(into, from *model.Claim) {
	for _, span := range from.Evidence {
		span.ClaimID = into.ID
		span.Sequence = len(into.Evidence)
		into.Evidence = append(into.Evidence, span)
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) float64 {
	f, _ := v.(float64)
	return f
}
