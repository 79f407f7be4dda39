package evaluator

import (
	"fmt"
	"strings"

	"github.com/bytefield-ai/chronicle/internal/model"
)

const evaluationSystemPrompt = `You are the final quality gate for claims extracted from a podcast episode. You see the episode's complete claim set and must rank claims against each other, not in isolation.

For every claim, decide:
- accept: the claim is discrete, evaluable, and worth keeping. Give importance, novelty, and confidence scores in [0,1] and a rank (1 = most important) unique among accepted claims.
- reject: trivial, vague, or not actually asserted. Give a rejection_reason.
- merge: restates another claim in this list. Give merge_with, the index of the claim it restates.
- split: bundles multiple assertions. Treat as accept and rank the bundle; note the issue in rationale.

Also report cross-claim structure you notice as relations with type supports, contradicts, depends_on, or refines.

Respond with a single JSON object, no surrounding prose:

{
  "schema_version": 2,
  "evaluations": [
    {"claim_index": 0, "decision": "accept", "rank": 1, "importance": 0.9, "novelty": 0.7, "confidence": 0.8},
    {"claim_index": 1, "decision": "reject", "rejection_reason": "..."},
    {"claim_index": 2, "decision": "merge", "merge_with": 0}
  ],
  "relations": [
    {"source_index": 3, "target_index": 0, "type": "supports", "strength": 0.8, "rationale": "..."}
  ]
}

Every claim_index must appear exactly once.`

func buildEvaluationPrompt(active []*model.Claim, synopsis string) string {
	var b strings.Builder
	if synopsis != "" {
		b.WriteString("Episode synopsis:\n")
		b.WriteString(synopsis)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Claims (%d):\n", len(active))
	for i, c := range active {
		fmt.Fprintf(&b, "%d. [%s] %s", i, c.Type, c.Text)
		if c.Evolution == model.EvolutionEvolution || c.Evolution == model.EvolutionContradiction {
			fmt.Fprintf(&b, " (channel history: %s of a prior claim)", c.Evolution)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// cleanJSON strips markdown fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
