package evaluator

import (
	"strings"

	"go.uber.org/zap"

	"github.com/bytefield-ai/chronicle/internal/model"
)

// mergeNearDuplicates collapses claims from the same episode whose texts are
// lexically near-identical before the evaluation call. This is distinct from
// cross-episode consistency checking: within one episode the miner often
// emits the same claim from adjacent segments, and those restatements share
// vocabulary closely enough that word overlap suffices. The earliest claim
// survives and absorbs the others' evidence.
func mergeNearDuplicates(claims []model.Claim, threshold float64) []model.Claim {
	merged := 0
	for i := range claims {
		if claims[i].Decision != "" {
			continue
		}
		for j := i + 1; j < len(claims); j++ {
			if claims[j].Decision != "" {
				continue
			}
			if jaccard(claims[i].Text, claims[j].Text) < threshold {
				continue
			}
			claims[j].Decision = model.DecisionMerge
			claims[j].Tier = model.TierRejected
			claims[j].MergedInto = claims[i].ID
			foldEvidence(&claims[i], &claims[j])
			merged++
		}
	}
	if merged > 0 {
		zap.L().Debug("evaluator: merged within-episode near-duplicates", zap.Int("merged", merged))
	}
	return claims
}

// jaccard is the word-set Jaccard similarity of two texts.
func jaccard(a, b string) float64 {
	aSet := wordSet(a)
	bSet := wordSet(b)
	if len(aSet) == 0 || len(bSet) == 0 {
		return 0
	}
	shared := 0
	for w := range aSet {
		if bSet[w] {
			shared++
		}
	}
	union := len(aSet) + len(bSet) - shared
	return float64(shared) / float64(union)
}

func wordSet(s string) map[string]bool {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', ';', ':', '!', '?', '"', '(', ')':
			return ' '
		}
		return r
	}, strings.ToLower(s))
	set := make(map[string]bool)
	for _, w := range strings.Fields(cleaned) {
		set[w] = true
	}
	return set
}
