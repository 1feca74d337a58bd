package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FunkyDruid/contextrie/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "contextrie",
	Short:        "Relevance-driven context composition for AI agents",
	Long:         "Ingests files into sources, rates them against a task with a model, and composes the relevant ones into a compressed markdown context.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
			c.OutputDir = dir
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("output-dir", "o", "", "directory for sources, assessments and context (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
