package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, raw string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestValidateAndRepair_ValidExtraction(t *testing.T) {
	doc := mustDoc(t, `{
		"claims": [{
			"text": "Dopamine is primarily a reward molecule",
			"claim_type": "factual",
			"confidence": 0.9,
			"evidence_spans": [{"segment_id": "seg-1", "quote": "dopamine is the reward molecule", "t0": 12.5, "t1": 19.0}]
		}],
		"jargon": [], "people": [], "concepts": []
	}`)

	repaired, valid, errs := ValidateAndRepair(doc, KindExtraction, Version2)
	assert.True(t, valid)
	assert.Empty(t, errs)
	claims := repaired["claims"].([]any)
	require.Len(t, claims, 1)
}

func TestValidateAndRepair_DropsClaimWithoutEvidence(t *testing.T) {
	doc := mustDoc(t, `{
		"claims": [
			{"text": "has evidence", "claim_type": "factual", "confidence": 0.8,
			 "evidence_spans": [{"segment_id": "seg-1", "quote": "q", "t0": 0, "t1": 1}]},
			{"text": "no evidence", "claim_type": "factual", "confidence": 0.8, "evidence_spans": []}
		]
	}`)

	repaired, valid, errs := ValidateAndRepair(doc, KindExtraction, Version2)
	assert.False(t, valid)
	claims := repaired["claims"].([]any)
	assert.Len(t, claims, 1)
	assert.NotEmpty(t, errs)
}

func TestValidateAndRepair_CoercesNearMissTypes(t *testing.T) {
	doc := mustDoc(t, `{
		"claims": [{
			"text": "numeric strings",
			"claim_type": "causal",
			"confidence": "0.7",
			"evidence_spans": [{"segment_id": "seg-2", "quote": "q", "t0": "3.5", "t1": "4.5"}]
		}]
	}`)

	repaired, valid, _ := ValidateAndRepair(doc, KindExtraction, Version2)
	assert.True(t, valid)
	claim := repaired["claims"].([]any)[0].(map[string]any)
	assert.Equal(t, 0.7, claim["confidence"])
	span := claim["evidence_spans"].([]any)[0].(map[string]any)
	assert.Equal(t, 3.5, span["t0"])
}

func TestValidateAndRepair_UnknownClaimTypeDefaulted(t *testing.T) {
	doc := mustDoc(t, `{
		"claims": [{
			"text": "odd type", "claim_type": "opinionated", "confidence": 0.5,
			"evidence_spans": [{"segment_id": "s", "quote": "q", "t0": 0, "t1": 1}]
		}]
	}`)

	repaired, valid, errs := ValidateAndRepair(doc, KindExtraction, Version2)
	assert.True(t, valid) // repaired, so still valid
	claim := repaired["claims"].([]any)[0].(map[string]any)
	assert.Equal(t, "factual", claim["claim_type"])
	require.Len(t, errs, 1)
	assert.True(t, errs[0].Repaired)
}

func TestValidateAndRepair_MigratesV1FlatEvidence(t *testing.T) {
	doc := mustDoc(t, `{
		"schema_version": 1,
		"claims": [{
			"text": "old shape", "claim_type": "factual", "confidence": 0.6,
			"segment_id": "seg-9", "quote": "verbatim", "t0": 100.0, "t1": 104.5
		}]
	}`)

	repaired, valid, errs := ValidateAndRepair(doc, KindExtraction, Version1)
	assert.True(t, valid)
	assert.Equal(t, CurrentVersion, repaired["schema_version"])

	claim := repaired["claims"].([]any)[0].(map[string]any)
	_, hasFlat := claim["segment_id"]
	assert.False(t, hasFlat, "flat evidence fields should be lifted into spans")
	spans := claim["evidence_spans"].([]any)
	require.Len(t, spans, 1)
	span := spans[0].(map[string]any)
	assert.Equal(t, "seg-9", span["segment_id"])
	assert.Equal(t, "verbatim", span["quote"])

	var migrated bool
	for _, e := range errs {
		if e.Rule == "migration" {
			migrated = true
		}
	}
	assert.True(t, migrated)
}

func TestValidateAndRepair_RejectWithoutRankIsValid(t *testing.T) {
	doc := mustDoc(t, `{
		"evaluations": [{"claim_index": 0, "decision": "reject", "rejection_reason": "vague"}]
	}`)

	_, valid, errs := ValidateAndRepair(doc, KindEvaluation, Version2)
	assert.True(t, valid)
	assert.Empty(t, errs)
}

func TestValidateAndRepair_AcceptWithoutRankGetsSentinel(t *testing.T) {
	doc := mustDoc(t, `{
		"evaluations": [{"claim_index": 2, "decision": "accept", "importance": 0.8, "novelty": 0.4, "confidence": 0.9}]
	}`)

	repaired, valid, errs := ValidateAndRepair(doc, KindEvaluation, Version2)
	assert.True(t, valid, "sentinel injection is a repair, not a failure")
	ev := repaired["evaluations"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(SentinelRank), ev["rank"])

	var repairedRank bool
	for _, e := range errs {
		if e.Rule == "conditional_required" && e.Repaired {
			repairedRank = true
		}
	}
	assert.True(t, repairedRank)
}

func TestValidateAndRepair_MergeWithoutTargetDemoted(t *testing.T) {
	doc := mustDoc(t, `{
		"evaluations": [{"claim_index": 1, "decision": "merge"}]
	}`)

	repaired, valid, _ := ValidateAndRepair(doc, KindEvaluation, Version2)
	assert.True(t, valid)
	ev := repaired["evaluations"].([]any)[0].(map[string]any)
	assert.Equal(t, "reject", ev["decision"])
}

func TestValidateAndRepair_Deterministic(t *testing.T) {
	raw := `{
		"schema_version": 1,
		"claims": [
			{"text": "a", "segment_id": "s1", "quote": "q1", "t0": 1, "t1": 2},
			{"claim_type": "factual"},
			{"text": "b", "claim_type": "weird", "confidence": "0.3",
			 "evidence_spans": [{"segment_id": "s2", "quote": "q2"}]}
		],
		"jargon": [{"term": "RAE"}]
	}`

	doc1, valid1, errs1 := ValidateAndRepair(mustDoc(t, raw), KindExtraction, Version1)
	doc2, valid2, errs2 := ValidateAndRepair(mustDoc(t, raw), KindExtraction, Version1)

	assert.Equal(t, valid1, valid2)
	assert.Equal(t, errs1, errs2)

	j1, err := json.Marshal(doc1)
	require.NoError(t, err)
	j2, err := json.Marshal(doc2)
	require.NoError(t, err)
	assert.JSONEq(t, string(j1), string(j2))
}

func TestValidateAndRepair_DoesNotMutateInput(t *testing.T) {
	doc := mustDoc(t, `{"claims": [{"text": "x", "claim_type": "bogus",
		"evidence_spans": [{"segment_id": "s", "quote": "q", "t0": 0, "t1": 1}]}]}`)

	_, _, _ = ValidateAndRepair(doc, KindExtraction, Version2)
	claim := doc["claims"].([]any)[0].(map[string]any)
	assert.Equal(t, "bogus", claim["claim_type"], "caller's document must stay untouched")
}

func TestValidateAndRepair_NilDocument(t *testing.T) {
	repaired, valid, errs := ValidateAndRepair(nil, KindExtraction, Version2)
	assert.False(t, valid)
	assert.NotNil(t, repaired)
	assert.NotEmpty(t, errs)
}
