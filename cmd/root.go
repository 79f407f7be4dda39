package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bytefield-ai/chronicle/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Podcast knowledge extraction pipeline",
	Long:  "Mines claims, jargon, people, and concepts from segmented podcast transcripts, checks them against channel history, ranks them with a flagship evaluator, and persists the knowledge graph.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
