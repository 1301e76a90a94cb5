package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rangerlabs/geocat/internal/output"
)

func newStatsCmd() *cobra.Command {
	var keywords int
	var source string
	var duplicates bool
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show catalog statistics",
		Long: `Shows document counts, data sources, the most frequent keywords, and
optionally titles shared by multiple documents.

Examples:
  geocat stats
  geocat stats --keywords 30 --source FSGeodata
  geocat stats --duplicates --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, keywords, source, duplicates, format)
		},
	}

	cmd.Flags().IntVar(&keywords, "keywords", 20, "Number of top keywords to show (0 to hide)")
	cmd.Flags().StringVar(&source, "source", "", "Restrict keyword counts to one data source")
	cmd.Flags().BoolVar(&duplicates, "duplicates", false, "List titles shared by multiple documents")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, keywords int, source string, duplicates bool, format string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	docs, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = docs.Close() }()

	stats := output.Stats{}

	if stats.Documents, err = docs.Count(ctx); err != nil {
		return err
	}
	if stats.Sources, err = docs.Sources(ctx); err != nil {
		return err
	}
	if keywords > 0 {
		if stats.Keywords, err = docs.KeywordFrequencies(ctx, keywords, source); err != nil {
			return err
		}
	}
	if duplicates {
		if stats.Duplicates, err = docs.DuplicateTitles(ctx, 2); err != nil {
			return err
		}
	}

	renderer := output.NewRenderer(cmd.OutOrStdout(), output.Format(format))
	return renderer.StatsReport(stats)
}
