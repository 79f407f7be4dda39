package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the configuration is usable for the given mode.
// Modes: "process" (full pipeline), "serve" (read-only API), "query"
// (episode listing and search), "migrate".
func (c *Config) Validate(mode string) error {
	var problems []string

	checkStore := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required for the postgres driver")
			}
		case "sqlite":
			if c.Store.Path == "" {
				problems = append(problems, "store.path is required for the sqlite driver")
			}
		default:
			problems = append(problems, "store.driver must be postgres or sqlite")
		}
	}

	switch mode {
	case "process":
		checkStore()
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		if c.Pipeline.Workers < 1 || c.Pipeline.Workers > 64 {
			problems = append(problems, "pipeline.workers must be between 1 and 64")
		}
		if c.Consistency.DuplicateThreshold < c.Consistency.EvolutionThreshold {
			problems = append(problems, "consistency.duplicate_threshold must be >= consistency.evolution_threshold")
		}
		if c.Evaluator.MergeThreshold < 0 || c.Evaluator.MergeThreshold > 1 {
			problems = append(problems, "evaluator.merge_threshold must be between 0 and 1")
		}
		switch c.Miner.Sensitivity {
		case "conservative", "balanced", "liberal":
		default:
			problems = append(problems, "miner.sensitivity must be conservative, balanced, or liberal")
		}
		if c.Pipeline.EnableCategorization && c.Pipeline.TaxonomyPath == "" {
			problems = append(problems, "pipeline.taxonomy_path is required when categorization is enabled")
		}
	case "serve":
		checkStore()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "query", "migrate":
		checkStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}
