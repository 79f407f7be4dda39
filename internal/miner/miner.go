// Package miner extracts claims, jargon, people, and concepts from
// individual transcript segments via the completion capability. Output is
// always routed through the schema validator before conversion to model
// types, so callers never see malformed documents.
package miner

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bytefield-ai/chronicle/internal/model"
	"github.com/bytefield-ai/chronicle/internal/resilience"
	"github.com/bytefield-ai/chronicle/internal/schema"
	"github.com/bytefield-ai/chronicle/pkg/anthropic"
)

// Sensitivity controls how liberal the miner is about what counts as a
// claim. It only changes the prompt text, never the contract shape.
type Sensitivity string

const (
	SensitivityConservative Sensitivity = "conservative"
	SensitivityBalanced     Sensitivity = "balanced"
	SensitivityLiberal      Sensitivity = "liberal"
)

// Context carries the optional per-episode hints injected into the mining
// prompt. Passed by value; the miner never mutates it.
type Context struct {
	Synopsis         string
	ConsistencyHints string
}

// Miner extracts structured knowledge from one segment.
type Miner interface {
	Mine(ctx context.Context, segment model.Segment, mctx Context) (*model.SegmentExtraction, error)
}

// Config tunes the claim miner.
type Config struct {
	Model             string
	MaxTokens         int64
	Sensitivity       Sensitivity
	RequestsPerSecond float64
	RequestTimeout    time.Duration
	Retry             resilience.RetryConfig
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "claude-sonnet-4-5-20250929"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	if c.Sensitivity == "" {
		c.Sensitivity = SensitivityBalanced
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 2
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 120 * time.Second
	}
	return c
}

// ClaimMiner is the production Miner backed by the completion capability.
type ClaimMiner struct {
	client  anthropic.Client
	limiter *rate.Limiter
	cfg     Config
}

// New creates a claim miner.
func New(client anthropic.Client, cfg Config) *ClaimMiner {
	cfg = cfg.withDefaults()
	return &ClaimMiner{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cfg:     cfg,
	}
}

// Mine extracts claims and entities from one segment. Malformed output from
// the completion call is repaired where possible; entries the repairer drops
// are logged, not fatal. Evidence referencing any segment other than the one
// being mined is discarded.
func (m *ClaimMiner) Mine(ctx context.Context, segment model.Segment, mctx Context) (*model.SegmentExtraction, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "miner: rate limit wait")
	}

	req := anthropic.MessageRequest{
		Model:     m.cfg.Model,
		MaxTokens: m.cfg.MaxTokens,
		System:    buildSystemPrompt(m.cfg.Sensitivity, mctx),
		Messages: []anthropic.Message{
			{Role: "user", Content: buildUserPrompt(segment)},
		},
	}

	resp, err := resilience.DoVal(ctx, m.cfg.Retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
		defer cancel()
		return m.client.CreateMessage(callCtx, req)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "miner: segment %s", segment.ID)
	}

	extraction, err := parseExtraction(resp, segment)
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(m.cfg.Model, "mining")
	extraction.Usage = model.TokenUsage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	return extraction, nil
}

// parseExtraction cleans, validates, and converts the raw completion text
// into a SegmentExtraction.
func parseExtraction(resp *anthropic.MessageResponse, segment model.Segment) (*model.SegmentExtraction, error) {
	cleaned := cleanJSON(resp.Text())
	if cleaned == "" {
		return nil, eris.Errorf("miner: empty response for segment %s", segment.ID)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, eris.Wrapf(err, "miner: unmarshal response for segment %s", segment.ID)
	}

	version := schema.CurrentVersion
	if v, ok := doc["schema_version"].(float64); ok && int(v) >= schema.Version1 {
		version = int(v)
	}

	repaired, valid, fieldErrs := schema.ValidateAndRepair(doc, schema.KindExtraction, version)
	if len(fieldErrs) > 0 {
		zap.L().Debug("miner: document repaired",
			zap.String("segment_id", segment.ID),
			zap.Bool("valid", valid),
			zap.Int("field_errors", len(fieldErrs)),
		)
	}

	return convertExtraction(repaired, segment), nil
}
