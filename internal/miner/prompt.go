package miner

import (
	"fmt"
	"strings"

	"github.com/bytefield-ai/chronicle/internal/model"
)

const systemPromptBase = `You are a knowledge-extraction engine for podcast transcripts. Given one transcript segment, extract:

1. claims: discrete, evaluable assertions made in the segment. Each claim needs at least one evidence span quoting the segment verbatim.
2. jargon: domain-specific terms the speaker defines or uses with a specialized meaning.
3. people: named individuals mentioned, with how they appear (host, guest, referenced).
4. concepts: mental models or ideas the speaker explains or relies on.

Respond with a single JSON object, no surrounding prose:

{
  "schema_version": 2,
  "claims": [
    {
      "text": "<canonical one-sentence restatement>",
      "claim_type": "factual|causal|normative|forecast|definition",
      "stance": "<speaker's stance, optional>",
      "confidence": 0.0-1.0,
      "evidence_spans": [
        {"segment_id": "<id>", "quote": "<verbatim>", "t0": 0.0, "t1": 0.0, "context": "<optional>", "context_type": "<optional>"}
      ]
    }
  ],
  "jargon": [
    {"term": "...", "definition": "...", "domain": "...", "evidence": [{"segment_id": "<id>", "quote": "...", "t0": 0.0, "t1": 0.0}]}
  ],
  "people": [
    {"name": "...", "entity_type": "host|guest|referenced", "confidence": 0.0-1.0, "external_ids": {}, "mentions": [{"segment_id": "<id>", "surface": "...", "quote": "...", "t0": 0.0, "t1": 0.0}]}
  ],
  "concepts": [
    {"name": "...", "definition": "...", "aliases": [], "evidence": [{"segment_id": "<id>", "quote": "...", "t0": 0.0, "t1": 0.0}]}
  ]
}

Rules:
- Quotes must be verbatim substrings of the segment text.
- segment_id must be exactly the id of the segment you were given. Never invent a different one.
- Timestamps t0/t1 must fall within the segment's time range.
- Omit small talk, filler, and statements with no evaluable content.`

var sensitivityInstructions = map[Sensitivity]string{
	SensitivityConservative: "Be conservative: extract only claims the speaker asserts directly and unambiguously. When in doubt, leave it out.",
	SensitivityBalanced:     "Extract claims the speaker commits to, including hedged forecasts, but skip throwaway remarks.",
	SensitivityLiberal:      "Be liberal: extract every evaluable assertion, including implied positions and hedged statements. When in doubt, include it with lower confidence.",
}

func buildSystemPrompt(sensitivity Sensitivity, mctx Context) string {
	var b strings.Builder
	b.WriteString(systemPromptBase)

	instr, ok := sensitivityInstructions[sensitivity]
	if !ok {
		instr = sensitivityInstructions[SensitivityBalanced]
	}
	b.WriteString("\n\n## Extraction sensitivity\n")
	b.WriteString(instr)

	if mctx.Synopsis != "" {
		b.WriteString("\n\n## Episode synopsis\n")
		b.WriteString(mctx.Synopsis)
	}
	if mctx.ConsistencyHints != "" {
		b.WriteString("\n\n")
		b.WriteString(mctx.ConsistencyHints)
	}
	return b.String()
}

func buildUserPrompt(segment model.Segment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Segment id: %s\n", segment.ID)
	if segment.Speaker != "" {
		fmt.Fprintf(&b, "Speaker: %s\n", segment.Speaker)
	}
	fmt.Fprintf(&b, "Time range: %.1f - %.1f seconds\n\n", segment.T0, segment.T1)
	b.WriteString(segment.Text)
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
