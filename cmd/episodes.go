package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/bytefield-ai/chronicle/internal/model"
	"github.com/bytefield-ai/chronicle/internal/store"
)

var (
	episodesChannel string
	episodesLimit   int
	episodesOffset  int
)

var episodesCmd = &cobra.Command{
	Use:   "episodes",
	Short: "Inspect processed episodes",
}

var episodesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List processed episodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("query"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		episodes, err := st.ListEpisodes(ctx, store.EpisodeFilter{
			ChannelID: episodesChannel,
			Limit:     episodesLimit,
			Offset:    episodesOffset,
		})
		if err != nil {
			return eris.Wrap(err, "list episodes")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(episodes)
	},
}

var episodesShowCmd = &cobra.Command{
	Use:   "show <episode-id>",
	Short: "Show the full knowledge summary for one episode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("query"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		outputs, err := st.GetEpisodeOutputs(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "get episode %s", args[0])
		}

		summary := model.NewEpisodeSummary(outputs, time.Now().UTC())
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	episodesListCmd.Flags().StringVar(&episodesChannel, "channel", "", "filter by channel id")
	episodesListCmd.Flags().IntVar(&episodesLimit, "limit", 50, "max episodes to list")
	episodesListCmd.Flags().IntVar(&episodesOffset, "offset", 0, "listing offset")
	episodesCmd.AddCommand(episodesListCmd)
	episodesCmd.AddCommand(episodesShowCmd)
	rootCmd.AddCommand(episodesCmd)
}
