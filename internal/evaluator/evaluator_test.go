package evaluator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytefield-ai/chronicle/internal/model"
	"github.com/bytefield-ai/chronicle/pkg/anthropic"
)

type fakeClient struct {
	response string
	err      error
	lastReq  anthropic.MessageRequest
	calls    int
}

func (f *fakeClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.lastReq = req
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.response}},
		Usage:   anthropic.TokenUsage{InputTokens: 200, OutputTokens: 80},
	}, nil
}

func claim(id, text string) model.Claim {
	return model.Claim{
		ID:        id,
		EpisodeID: "ep-1",
		Text:      text,
		Type:      model.ClaimFactual,
		Evidence: []model.EvidenceSpan{
			{ClaimID: id, SegmentID: "seg-1", Quote: text, T0: 0, T1: 1},
		},
	}
}

func byID(t *testing.T, claims []model.Claim, id string) model.Claim {
	t.Helper()
	for _, c := range claims {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("claim %s not in result", id)
	return model.Claim{}
}

func TestEvaluateAppliesDecisions(t *testing.T) {
	client := &fakeClient{response: `{
		"schema_version": 2,
		"evaluations": [
			{"claim_index": 0, "decision": "accept", "rank": 2, "importance": 0.6, "novelty": 0.5, "confidence": 0.7},
			{"claim_index": 1, "decision": "reject", "rejection_reason": "too vague"},
			{"claim_index": 2, "decision": "accept", "rank": 1, "importance": 0.9, "novelty": 0.8, "confidence": 0.9}
		],
		"relations": [
			{"source_index": 0, "target_index": 2, "type": "supports", "strength": 0.7, "rationale": "shared mechanism"}
		]
	}`}
	f := New(client, Config{})
	claims := []model.Claim{
		claim("c1", "interest rates drive startup valuations"),
		claim("c2", "things are changing fast"),
		claim("c3", "zero interest rate policy inflated 2021 valuations"),
	}

	got, err := f.Evaluate(context.Background(), claims, "")

	require.NoError(t, err)
	require.Len(t, got.Claims, 3)

	c3 := byID(t, got.Claims, "c3")
	assert.Equal(t, model.DecisionAccept, c3.Decision)
	assert.Equal(t, 1, c3.Rank)
	assert.Equal(t, model.TierA, c3.Tier)
	assert.InDelta(t, 0.9, c3.Importance, 1e-9)

	c1 := byID(t, got.Claims, "c1")
	assert.Equal(t, 2, c1.Rank)
	assert.Equal(t, model.TierB, c1.Tier)

	c2 := byID(t, got.Claims, "c2")
	assert.Equal(t, model.DecisionReject, c2.Decision)
	assert.Equal(t, model.TierRejected, c2.Tier)
	assert.Equal(t, "too vague", c2.RejectionReason)

	require.Len(t, got.Relations, 1)
	assert.Equal(t, "c1", got.Relations[0].SourceClaimID)
	assert.Equal(t, "c3", got.Relations[0].TargetClaimID)
	assert.Equal(t, model.RelationSupports, got.Relations[0].Type)

	assert.Equal(t, 200, got.Usage.InputTokens)
}

func TestEvaluateKeepsSplitDecision(t *testing.T) {
	client := &fakeClient{response: `{
		"schema_version": 2,
		"evaluations": [
			{"claim_index": 0, "decision": "split", "rank": 1, "importance": 0.8, "novelty": 0.7, "confidence": 0.8},
			{"claim_index": 1, "decision": "accept", "rank": 2, "importance": 0.5, "novelty": 0.4, "confidence": 0.6}
		]
	}`}
	f := New(client, Config{})
	claims := []model.Claim{
		claim("c1", "sleep deprivation impairs memory and raises cortisol"),
		claim("c2", "cortisol peaks in the morning"),
	}

	got, err := f.Evaluate(context.Background(), claims, "")

	require.NoError(t, err)
	c1 := byID(t, got.Claims, "c1")
	assert.Equal(t, model.DecisionSplit, c1.Decision)
	assert.True(t, c1.Accepted())
	assert.Equal(t, 1, c1.Rank)
	assert.Equal(t, model.TierA, c1.Tier)

	c2 := byID(t, got.Claims, "c2")
	assert.Equal(t, model.DecisionAccept, c2.Decision)
}

func TestEvaluateExcludesDuplicates(t *testing.T) {
	client := &fakeClient{response: `{
		"schema_version": 2,
		"evaluations": [
			{"claim_index": 0, "decision": "accept", "rank": 1, "importance": 0.8, "novelty": 0.6, "confidence": 0.8}
		]
	}`}
	f := New(client, Config{})
	dup := claim("dup", "a restated prior channel claim")
	dup.Evolution = model.EvolutionDuplicate
	claims := []model.Claim{dup, claim("c1", "a genuinely new claim")}

	got, err := f.Evaluate(context.Background(), claims, "")

	require.NoError(t, err)
	assert.NotContains(t, client.lastReq.Messages[0].Content, "restated prior channel claim")

	kept := byID(t, got.Claims, "dup")
	assert.Empty(t, kept.Decision)
	assert.Equal(t, model.EvolutionDuplicate, kept.Evolution)
	assert.Equal(t, model.DecisionAccept, byID(t, got.Claims, "c1").Decision)
}

func TestEvaluateMergesWithinEpisodeNearDuplicates(t *testing.T) {
	client := &fakeClient{response: `{
		"schema_version": 2,
		"evaluations": [
			{"claim_index": 0, "decision": "accept", "rank": 1, "importance": 0.8, "novelty": 0.6, "confidence": 0.8}
		]
	}`}
	f := New(client, Config{})
	claims := []model.Claim{
		claim("c1", "the fed will cut rates twice in 2026"),
		claim("c2", "the fed will cut rates twice in 2026."),
	}

	got, err := f.Evaluate(context.Background(), claims, "")

	require.NoError(t, err)
	merged := byID(t, got.Claims, "c2")
	assert.Equal(t, model.DecisionMerge, merged.Decision)
	assert.Equal(t, "c1", merged.MergedInto)

	survivor := byID(t, got.Claims, "c1")
	assert.Len(t, survivor.Evidence, 2)
	assert.Equal(t, "c1", survivor.Evidence[1].ClaimID)
	assert.Equal(t, 1, client.calls)
}

func TestEvaluateDegradesToPassThrough(t *testing.T) {
	client := &fakeClient{err: errors.New("api unavailable")}
	f := New(client, Config{})
	claims := []model.Claim{
		claim("c1", "first claim about topic alpha"),
		claim("c2", "second claim about topic beta"),
	}

	got, err := f.Evaluate(context.Background(), claims, "")

	require.NoError(t, err)
	assert.True(t, got.Degraded)
	for _, id := range []string{"c1", "c2"} {
		c := byID(t, got.Claims, id)
		assert.Equal(t, model.DecisionAccept, c.Decision)
		assert.NotEqual(t, model.SentinelRank, c.Rank)
		assert.NotEmpty(t, c.Tier)
	}
}

func TestEvaluateAcceptsUnmentionedClaimsWithSentinel(t *testing.T) {
	client := &fakeClient{response: `{
		"schema_version": 2,
		"evaluations": [
			{"claim_index": 0, "decision": "accept", "rank": 1, "importance": 0.8, "novelty": 0.6, "confidence": 0.8}
		]
	}`}
	f := New(client, Config{})
	claims := []model.Claim{
		claim("c1", "claim the evaluator scored"),
		claim("c2", "claim the evaluator forgot entirely"),
	}

	got, err := f.Evaluate(context.Background(), claims, "")

	require.NoError(t, err)
	forgotten := byID(t, got.Claims, "c2")
	assert.Equal(t, model.DecisionAccept, forgotten.Decision)
	assert.Equal(t, 2, forgotten.Rank)
	assert.Equal(t, byID(t, got.Claims, "c1").Rank, 1)
}

func TestEvaluateEmptyClaimSetSkipsCompletion(t *testing.T) {
	client := &fakeClient{}
	f := New(client, Config{})

	got, err := f.Evaluate(context.Background(), nil, "")

	require.NoError(t, err)
	assert.Empty(t, got.Claims)
	assert.Zero(t, client.calls)
}

func TestAssignTiersQuantiles(t *testing.T) {
	active := make([]*model.Claim, 10)
	for i := range active {
		c := claim(fmt.Sprintf("c%d", i), fmt.Sprintf("claim %d", i))
		c.Decision = model.DecisionAccept
		c.Rank = 10 - i
		active[i] = &c
	}

	assignTiers(active)

	counts := map[model.Tier]int{}
	for _, c := range active {
		counts[c.Tier]++
	}
	assert.Equal(t, 2, counts[model.TierA])
	assert.Equal(t, 4, counts[model.TierB])
	assert.Equal(t, 4, counts[model.TierC])

	best := byID(t, derefAll(active), "c9")
	assert.Equal(t, 1, best.Rank)
	assert.Equal(t, model.TierA, best.Tier)
}

func TestAssignTiersSingleClaim(t *testing.T) {
	c := claim("only", "the only accepted claim")
	c.Decision = model.DecisionAccept
	c.Rank = model.SentinelRank

	assignTiers([]*model.Claim{&c})

	assert.Equal(t, 1, c.Rank)
	assert.Equal(t, model.TierA, c.Tier)
}

func derefAll(in []*model.Claim) []model.Claim {
	out := make([]model.Claim, len(in))
	for i, c := range in {
		out[i] = *c
	}
	return out
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, jaccard("the fed will cut rates", "the fed will cut rates."), 1e-9)
	assert.Less(t, jaccard("the fed will cut rates", "solar capacity doubles by 2030"), 0.2)
	assert.Zero(t, jaccard("", "anything"))
}
