package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rangerlabs/geocat/internal/output"
	"github.com/rangerlabs/geocat/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit       int
	alpha       float64
	lexicalOnly bool
	format      string
	explain     bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog",
		Long: `Search the indexed catalog with hybrid retrieval.

BM25 keyword scores and vector similarity are fused with Reciprocal
Rank Fusion. --alpha shifts the blend: 0 is keyword-only ranking,
1 is vector-only.

Examples:
  geocat search "forest fire damage"
  geocat search "watershed boundaries" -n 5 --alpha 0.8
  geocat search "timber harvest" --lexical-only --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().Float64Var(&opts.alpha, "alpha", -1, "Vector blend weight in [0,1] (default from config)")
	cmd.Flags().BoolVar(&opts.lexicalOnly, "lexical-only", false, "Skip vector search, rank by BM25 only")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show per-result fusion details")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	engine, _, cleanup, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := engine.Search(ctx, query, search.Options{
		Limit:       opts.limit,
		Alpha:       opts.alpha,
		LexicalOnly: opts.lexicalOnly,
	})
	if err != nil {
		return err
	}

	renderer := output.NewRenderer(cmd.OutOrStdout(), output.Format(opts.format))
	return renderer.Results(query, results, opts.explain)
}
