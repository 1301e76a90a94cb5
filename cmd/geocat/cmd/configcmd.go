package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rangerlabs/geocat/configs"
	"github.com/rangerlabs/geocat/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage geocat configuration",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the annotated config template to the default location",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.DefaultConfigPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := os.WriteFile(path, []byte(configs.ExampleConfig), 0o644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog file:  %s\n", cfg.Paths.CatalogFile)
			fmt.Fprintf(cmd.OutOrStdout(), "data dir:      %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(cmd.OutOrStdout(), "alpha:         %.2f\n", cfg.Search.Alpha)
			fmt.Fprintf(cmd.OutOrStdout(), "rrf constant:  %d\n", cfg.Search.RRFConstant)
			fmt.Fprintf(cmd.OutOrStdout(), "provider:      %s (%s)\n", cfg.Embeddings.Provider, cfg.Embeddings.Model)
			fmt.Fprintf(cmd.OutOrStdout(), "llm model:     %s\n", cfg.LLM.Model)
			return nil
		},
	}
}
