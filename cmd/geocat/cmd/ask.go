package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rangerlabs/geocat/internal/catalog"
	"github.com/rangerlabs/geocat/internal/config"
	"github.com/rangerlabs/geocat/internal/llm"
	"github.com/rangerlabs/geocat/internal/output"
	"github.com/rangerlabs/geocat/internal/search"
)

func newAskCmd() *cobra.Command {
	var limit int
	var interactive bool
	var format string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question answered from the catalog",
		Long: `Retrieves the most relevant catalog documents for a question and asks
the configured LLM to synthesize an answer from them.

With --interactive, geocat starts a prompt loop; type 'exit' or 'quit'
(or press Ctrl+D) to leave.

Examples:
  geocat ask "What datasets cover wildfire burn areas?"
  geocat ask --interactive`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if !interactive && strings.TrimSpace(question) == "" {
				return fmt.Errorf("provide a question or use --interactive")
			}
			return runAsk(cmd.Context(), cmd, question, limit, interactive, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of documents to retrieve as context")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Start an interactive question loop")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runAsk(ctx context.Context, cmd *cobra.Command, question string, limit int, interactive bool, format string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	engine, _, cleanup, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	synthesizer := llm.NewClient(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	renderer := output.NewRenderer(cmd.OutOrStdout(), output.Format(format))

	if !interactive {
		return askOnce(ctx, engine, synthesizer, renderer, cfg, question, limit)
	}

	ask := func(question string) error {
		return askOnce(ctx, engine, synthesizer, renderer, cfg, question, limit)
	}
	return runInteractive(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), ask)
}

// runInteractive drives the prompt loop. A failed question is reported on
// errOut and the loop continues; 'exit', 'quit', or EOF end it.
func runInteractive(ctx context.Context, in io.Reader, out, errOut io.Writer, ask func(string) error) error {
	fmt.Fprintln(out, "geocat interactive mode. Type a question, or 'exit' to quit.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := ask(line); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func askOnce(ctx context.Context, engine *search.Engine, synthesizer llm.Synthesizer,
	renderer *output.Renderer, cfg *config.Config, question string, limit int) error {

	results, err := engine.Search(ctx, question, search.Options{
		Limit: limit,
		Alpha: cfg.Search.Alpha,
	})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no matching documents found")
	}

	docs := make([]catalog.Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, r.Document)
	}

	answer, err := synthesizer.Synthesize(ctx, question, docs)
	if err != nil {
		return err
	}
	return renderer.Answer(question, answer, results)
}
