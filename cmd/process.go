package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bytefield-ai/chronicle/internal/consistency"
	"github.com/bytefield-ai/chronicle/internal/embed"
	"github.com/bytefield-ai/chronicle/internal/evaluator"
	"github.com/bytefield-ai/chronicle/internal/miner"
	"github.com/bytefield-ai/chronicle/internal/pipeline"
	"github.com/bytefield-ai/chronicle/internal/transcript"
	anthropicpkg "github.com/bytefield-ai/chronicle/pkg/anthropic"
)

var (
	processInput   string
	processChannel string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process a segmented transcript file through the full pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("process"); err != nil {
			return err
		}

		episode, segments, err := transcript.Load(processInput)
		if err != nil {
			return err
		}
		if processChannel != "" {
			episode.ChannelID = processChannel
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

		var embedder embed.Embedder
		if cfg.OpenAI.Key != "" {
			embedder = embed.NewOpenAIEmbedder(cfg.OpenAI.Key, cfg.OpenAI.BaseURL, cfg.OpenAI.EmbeddingModel)
		} else {
			zap.L().Warn("openai key not set, consistency classification disabled")
		}

		engine := consistency.NewEngine(st, embedder, consistency.Config{
			DuplicateThreshold: cfg.Consistency.DuplicateThreshold,
			EvolutionThreshold: cfg.Consistency.EvolutionThreshold,
			ClaimLimit:         cfg.Consistency.ClaimLimit,
			JargonLimit:        cfg.Consistency.JargonLimit,
			FetchTimeout:       time.Duration(cfg.Consistency.FetchTimeoutSecs) * time.Second,
		})

		m := miner.New(anthropicClient, miner.Config{
			Model:             cfg.Anthropic.SonnetModel,
			MaxTokens:         cfg.Miner.MaxTokens,
			Sensitivity:       miner.Sensitivity(cfg.Miner.Sensitivity),
			RequestsPerSecond: cfg.Miner.RequestsPerSecond,
			RequestTimeout:    time.Duration(cfg.Miner.RequestTimeoutSecs) * time.Second,
		})

		ev := evaluator.New(anthropicClient, evaluator.Config{
			Model:          cfg.Anthropic.SonnetModel,
			MaxTokens:      cfg.Evaluator.MaxTokens,
			RequestTimeout: time.Duration(cfg.Evaluator.RequestTimeoutSecs) * time.Second,
			MergeThreshold: cfg.Evaluator.MergeThreshold,
		})

		pcfg := pipeline.Config{
			Workers:        cfg.Pipeline.Workers,
			MemoryBudgetMB: cfg.Pipeline.MemoryBudgetMB,
			EnableSynopsis: cfg.Pipeline.EnableSynopsis,
			Model:          cfg.Anthropic.HaikuModel,
		}
		if cfg.Pipeline.EnableCategorization {
			taxonomy, err := pipeline.LoadTaxonomy(cfg.Pipeline.TaxonomyPath)
			if err != nil {
				return err
			}
			pcfg.EnableCategorization = true
			pcfg.Taxonomy = taxonomy
		}

		p := pipeline.New(pcfg, st, m, ev, engine, anthropicClient)

		summary, err := p.Process(ctx, episode, segments)
		if err != nil {
			return eris.Wrap(err, "process episode")
		}

		zap.L().Info("episode processed",
			zap.String("episode_id", episode.ID),
			zap.Int("claims_mined", summary.ClaimsMined),
			zap.Int("claims_accepted", len(summary.Claims)),
			zap.Int("duplicates", len(summary.Duplicates)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	processCmd.Flags().StringVar(&processInput, "input", "", "segmented transcript JSON file (required)")
	processCmd.Flags().StringVar(&processChannel, "channel", "", "override the channel id from the input file")
	_ = processCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(processCmd)
}
