package consistency

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bytefield-ai/chronicle/internal/model"
)

func TestIsContradiction(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{
			name: "negation flip on shared subject",
			a:    "Ethereum staking yields will not exceed 5%",
			b:    "Ethereum staking yields will exceed 5%",
			want: true,
		},
		{
			name: "both positive",
			a:    "Ethereum staking yields will exceed 5%",
			b:    "Ethereum staking yields will exceed 6%",
			want: false,
		},
		{
			name: "both negated",
			a:    "rates will not rise",
			b:    "rates won't rise this year",
			want: false,
		},
		{
			name: "negation but different subject",
			a:    "the fed will not cut rates",
			b:    "solar capacity will double by 2030",
			want: false,
		},
		{
			name: "negated refinement of a terse prior claim",
			a:    "Dopamine regulates motivation and anticipation, not reward itself",
			b:    "Dopamine is primarily a reward molecule",
			want: true,
		},
		{
			name: "contraction negation",
			a:    "the rollup doesn't settle on mainnet",
			b:    "the rollup settles on mainnet",
			want: true,
		},
		{
			name: "empty input",
			a:    "",
			b:    "the merge will reduce fees",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsContradiction(tt.a, tt.b))
		})
	}
}

func TestBuildContextInjectionEmpty(t *testing.T) {
	assert.Empty(t, BuildContextInjection(nil))
	assert.Empty(t, BuildContextInjection(&model.ChannelHistory{ChannelID: "chan-1"}))
}

func TestBuildContextInjectionGroupsByDomainAndTopic(t *testing.T) {
	history := &model.ChannelHistory{
		ChannelID: "chan-1",
		Claims: []model.HistoricalClaim{
			{ID: "c1", Text: "restaking concentrates validator risk", Topic: "ethereum"},
			{ID: "c2", Text: "rollups settle disputes on the base layer", Topic: "ethereum"},
			{ID: "c3", Text: "rate cuts lift risk assets", Topic: "macro"},
			{ID: "c4", Text: "most predictions age badly"},
		},
		Jargon: []model.JargonEntry{
			{Term: "restaking", Definition: "reusing staked ETH to secure other protocols", Domain: "ethereum"},
			{Term: "carry trade", Definition: "borrowing cheap currency to buy yield", Domain: "macro"},
			{Term: "slashing", Definition: "penalty for validator misbehavior", Domain: "ethereum"},
		},
	}

	got := BuildContextInjection(history)

	assert.Contains(t, got, "Do not suppress a claim")

	// One heading per domain, terms listed under it without inline tags.
	assert.Contains(t, got, "\nethereum:\n- restaking: reusing staked ETH to secure other protocols\n- slashing: penalty for validator misbehavior\n")
	assert.Contains(t, got, "\nmacro:\n- carry trade: borrowing cheap currency to buy yield\n")

	// Claims grouped the same way, topicless ones under a fallback heading.
	assert.Contains(t, got, "\nethereum:\n- restaking concentrates validator risk\n- rollups settle disputes on the base layer\n")
	assert.Contains(t, got, "\nmacro:\n- rate cuts lift risk assets\n")
	assert.Contains(t, got, "\nuncategorized:\n- most predictions age badly\n")
	assert.NotContains(t, got, "[ethereum]")
}
