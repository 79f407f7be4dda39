package evaluator

import (
	"sort"

	"github.com/bytefield-ai/chronicle/internal/model"
)

// assignTiers orders accepted claims and buckets them: top 20% tier A, next
// 40% tier B, remainder tier C. Sentinel-ranked claims sort after explicitly
// ranked ones, keeping input order among themselves. Ranks are rewritten
// dense from 1 so callers never see the sentinel.
func assignTiers(active []*model.Claim) {
	accepted := make([]*model.Claim, 0, len(active))
	for _, c := range active {
		if c.Accepted() {
			accepted = append(accepted, c)
		}
	}
	if len(accepted) == 0 {
		return
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		ri, rj := accepted[i].Rank, accepted[j].Rank
		if ri == model.SentinelRank {
			return false
		}
		if rj == model.SentinelRank {
			return true
		}
		return ri < rj
	})

	n := len(accepted)
	aCut := (n + 4) / 5
	bCut := aCut + (n*2+4)/5
	for i, c := range accepted {
		c.Rank = i + 1
		switch {
		case i < aCut:
			c.Tier = model.TierA
		case i < bCut:
			c.Tier = model.TierB
		default:
			c.Tier = model.TierC
		}
	}
}
