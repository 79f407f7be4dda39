package miner

import (
	"context"
	"errors"
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
}

func (f *fakeClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.response}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

func testSegment() model.Segment {
	return model.Segment{
		ID:        "seg-1",
		EpisodeID: "ep-1",
		Speaker:   "host",
		T0:        0,
		T1:        60,
		Text:      "Bitcoin mining difficulty adjusts every 2016 blocks.",
		Sequence:  0,
	}
}

func miningConfig() Config {
	return Config{RequestsPerSecond: 1000}
}

func TestMineConvertsValidDocument(t *testing.T) {
	client := &fakeClient{response: `{
		"schema_version": 2,
		"claims": [{
			"text": "Bitcoin mining difficulty adjusts every 2016 blocks",
			"claim_type": "factual",
			"confidence": 0.9,
			"evidence_spans": [{"segment_id": "seg-1", "quote": "difficulty adjusts every 2016 blocks", "t0": 1.5, "t1": 4.0}]
		}],
		"jargon": [{
			"term": "difficulty adjustment",
			"definition": "periodic retargeting of mining difficulty",
			"domain": "bitcoin",
			"evidence": [{"segment_id": "seg-1", "quote": "difficulty adjusts", "t0": 1.5, "t1": 2.0}]
		}],
		"people": [],
		"concepts": []
	}`}
	m := New(client, miningConfig())

	got, err := m.Mine(context.Background(), testSegment(), Context{})

	require.NoError(t, err)
	require.Len(t, got.Claims, 1)
	claim := got.Claims[0]
	assert.Equal(t, "ep-1", claim.EpisodeID)
	assert.Equal(t, model.ClaimFactual, claim.Type)
	assert.NotEmpty(t, claim.ID)
	require.Len(t, claim.Evidence, 1)
	assert.Equal(t, claim.ID, claim.Evidence[0].ClaimID)
	assert.Equal(t, "seg-1", claim.Evidence[0].SegmentID)
	require.Len(t, got.Jargon, 1)
	assert.Equal(t, "difficulty adjustment", got.Jargon[0].NormalizedTerm)
	assert.Equal(t, 100, got.Usage.InputTokens)
	assert.Equal(t, 50, got.Usage.OutputTokens)
}

func TestMineStripsMarkdownFences(t *testing.T) {
	client := &fakeClient{response: "```json\n{\"schema_version\": 2, \"claims\": [], \"jargon\": [], \"people\": [], \"concepts\": []}\n```"}
	m := New(client, miningConfig())

	got, err := m.Mine(context.Background(), testSegment(), Context{})

	require.NoError(t, err)
	assert.Empty(t, got.Claims)
}

func TestMineDropsFabricatedSegmentIDs(t *testing.T) {
	client := &fakeClient{response: `{
		"schema_version": 2,
		"claims": [{
			"text": "a claim with one real and one fabricated span",
			"claim_type": "factual",
			"confidence": 0.8,
			"evidence_spans": [
				{"segment_id": "seg-999", "quote": "fabricated", "t0": 0, "t1": 1},
				{"segment_id": "seg-1", "quote": "real quote", "t0": 0, "t1": 1}
			]
		}, {
			"text": "a claim with only a fabricated span",
			"claim_type": "factual",
			"confidence": 0.8,
			"evidence_spans": [{"segment_id": "seg-7", "quote": "fabricated", "t0": 0, "t1": 1}]
		}]
	}`}
	m := New(client, miningConfig())

	got, err := m.Mine(context.Background(), testSegment(), Context{})

	require.NoError(t, err)
	require.Len(t, got.Claims, 1)
	require.Len(t, got.Claims[0].Evidence, 1)
	assert.Equal(t, "seg-1", got.Claims[0].Evidence[0].SegmentID)
}

func TestMineMigratesVersion1Document(t *testing.T) {
	client := &fakeClient{response: `{
		"schema_version": 1,
		"claims": [{
			"text": "old flat shape",
			"claim_type": "causal",
			"confidence": 0.7,
			"segment_id": "seg-1",
			"quote": "because of the halving",
			"t0": 10,
			"t1": 12
		}]
	}`}
	m := New(client, miningConfig())

	got, err := m.Mine(context.Background(), testSegment(), Context{})

	require.NoError(t, err)
	require.Len(t, got.Claims, 1)
	require.Len(t, got.Claims[0].Evidence, 1)
	assert.Equal(t, "because of the halving", got.Claims[0].Evidence[0].Quote)
}

func TestMineEmptyResponseFails(t *testing.T) {
	client := &fakeClient{response: "no json here"}
	m := New(client, miningConfig())

	_, err := m.Mine(context.Background(), testSegment(), Context{})

	assert.Error(t, err)
}

func TestMineClientError(t *testing.T) {
	client := &fakeClient{err: errors.New("api unavailable")}
	m := New(client, miningConfig())

	_, err := m.Mine(context.Background(), testSegment(), Context{})

	assert.Error(t, err)
}

func TestMineInjectsContextIntoPrompt(t *testing.T) {
	client := &fakeClient{response: `{"schema_version": 2, "claims": []}`}
	cfg := miningConfig()
	cfg.Sensitivity = SensitivityLiberal
	m := New(client, cfg)
	mctx := Context{
		Synopsis:         "An episode about bitcoin mining economics.",
		ConsistencyHints: "## Channel context\n- prior claim text",
	}

	_, err := m.Mine(context.Background(), testSegment(), mctx)

	require.NoError(t, err)
	assert.Contains(t, client.lastReq.System, "Be liberal")
	assert.Contains(t, client.lastReq.System, "bitcoin mining economics")
	assert.Contains(t, client.lastReq.System, "## Channel context")
	assert.Contains(t, client.lastReq.Messages[0].Content, "Segment id: seg-1")
	assert.Contains(t, client.lastReq.Messages[0].Content, testSegment().Text)
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{`{"a": 1}`, `{"a": 1}`},
		{"Here is the result:\n{\"a\": 1}\nDone.", `{"a": 1}`},
		{"no braces at all", "no braces at all"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, cleanJSON(tt.input))
	}
}
