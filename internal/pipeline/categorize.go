package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bytefield-ai/chronicle/internal/model"
	"github.com/bytefield-ai/chronicle/internal/resilience"
	"github.com/bytefield-ai/chronicle/pkg/anthropic"
)

// TaxonomyCategory is one allowed category label, loaded from a yaml file.
type TaxonomyCategory struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

type taxonomyFile struct {
	Categories []TaxonomyCategory `yaml:"categories"`
}

// LoadTaxonomy reads the category taxonomy from a yaml file.
func LoadTaxonomy(path string) ([]TaxonomyCategory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read taxonomy %s", path)
	}
	var file taxonomyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse taxonomy %s", path)
	}
	if len(file.Categories) == 0 {
		return nil, eris.Errorf("pipeline: taxonomy %s has no categories", path)
	}
	return file.Categories, nil
}

const categorizeSystemPrompt = `You assign topical categories to a podcast episode based on its accepted claims. Choose only from the provided taxonomy. Respond with JSON only:
{"categories": [{"taxonomy_id": "<id>", "confidence": <0.0-1.0>}]}
Assign between 1 and 3 categories. Do not invent taxonomy ids.`

// categorizeStage assigns taxonomy categories from the accepted claim set.
// Optional enhancement: errors are reported to the stage tracker and the
// episode persists without categories.
func (p *Pipeline) categorizeStage(ctx context.Context, claims []model.Claim) ([]model.Category, model.TokenUsage, error) {
	var usage model.TokenUsage
	if len(p.cfg.Taxonomy) == 0 {
		return nil, usage, eris.New("pipeline: categorization enabled without a taxonomy")
	}

	var accepted []model.Claim
	for _, c := range claims {
		if c.Accepted() {
			accepted = append(accepted, c)
		}
	}
	if len(accepted) == 0 {
		return nil, usage, nil
	}

	var b strings.Builder
	b.WriteString("Taxonomy:\n")
	for _, cat := range p.cfg.Taxonomy {
		fmt.Fprintf(&b, "- %s: %s", cat.ID, cat.Name)
		if cat.Description != "" {
			fmt.Fprintf(&b, " (%s)", cat.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nAccepted claims:\n")
	for _, c := range accepted {
		fmt.Fprintf(&b, "- %s\n", c.Text)
	}

	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("anthropic", "categorize")

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return p.anthropic.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     p.cfg.Model,
			MaxTokens: p.cfg.MaxTokens,
			System:    categorizeSystemPrompt,
			Messages:  []anthropic.Message{{Role: "user", Content: b.String()}},
		})
	})
	if err != nil {
		return nil, usage, eris.Wrap(err, "pipeline: categorization completion")
	}
	resp.Usage.LogCost(p.cfg.Model, "categorization")
	usage.InputTokens = int(resp.Usage.InputTokens)
	usage.OutputTokens = int(resp.Usage.OutputTokens)

	var parsed struct {
		Categories []struct {
			TaxonomyID string  `json:"taxonomy_id"`
			Confidence float64 `json:"confidence"`
		} `json:"categories"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &parsed); err != nil {
		return nil, usage, eris.Wrap(err, "pipeline: parse categorization response")
	}

	byID := make(map[string]TaxonomyCategory, len(p.cfg.Taxonomy))
	for _, cat := range p.cfg.Taxonomy {
		byID[cat.ID] = cat
	}

	var categories []model.Category
	for _, c := range parsed.Categories {
		cat, ok := byID[c.TaxonomyID]
		if !ok {
			zap.L().Warn("pipeline: dropping category outside taxonomy", zap.String("taxonomy_id", c.TaxonomyID))
			continue
		}
		confidence := c.Confidence
		if confidence < 0 || confidence > 1 {
			confidence = 0
		}
		categories = append(categories, model.Category{
			Name:       cat.Name,
			TaxonomyID: cat.ID,
			Confidence: confidence,
		})
	}
	return categories, usage, nil
}

// cleanJSON strips markdown fences and surrounding prose from a completion
// response, keeping the outermost JSON object.
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
