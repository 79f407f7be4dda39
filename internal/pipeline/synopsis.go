package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/bytefield-ai/chronicle/internal/model"
	"github.com/bytefield-ai/chronicle/internal/resilience"
	"github.com/bytefield-ai/chronicle/pkg/anthropic"
)

const synopsisSystemPrompt = `You summarize podcast transcripts. Write a synopsis of the episode in 3-5 sentences: the participants, the main topics in the order discussed, and any notable positions taken. Plain prose only, no preamble, no markdown.`

// synopsisBudget caps how much transcript goes into the synopsis prompt.
// Enough for orientation; the miner sees the full segments anyway.
const synopsisBudget = 24000

// synopsisStage produces a short episode synopsis used as shared context for
// mining and evaluation. Optional: the caller treats any error as a skipped
// enhancement.
func (p *Pipeline) synopsisStage(ctx context.Context, segments []model.Segment) (string, model.TokenUsage, error) {
	var b strings.Builder
	for _, seg := range segments {
		line := seg.Text
		if seg.Speaker != "" {
			line = fmt.Sprintf("%s: %s", seg.Speaker, seg.Text)
		}
		if b.Len()+len(line) > synopsisBudget {
			b.WriteString("[transcript truncated]\n")
			break
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("anthropic", "synopsis")

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return p.anthropic.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     p.cfg.Model,
			MaxTokens: p.cfg.MaxTokens,
			System:    synopsisSystemPrompt,
			Messages:  []anthropic.Message{{Role: "user", Content: b.String()}},
		})
	})
	if err != nil {
		return "", model.TokenUsage{}, eris.Wrap(err, "pipeline: synopsis completion")
	}

	resp.Usage.LogCost(p.cfg.Model, "synopsis")
	usage := model.TokenUsage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", usage, eris.New("pipeline: empty synopsis response")
	}
	return text, usage, nil
}
