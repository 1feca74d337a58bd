package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the metadata cache",
	Long:  "Commands for maintaining the generated-metadata cache that ingest reuses for unchanged files.",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cached metadata older than a cutoff",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan < 0 {
			return eris.New("--older-than must not be negative")
		}

		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.DeleteMetadataBefore(ctx, time.Now().Add(-olderThan))
		if err != nil {
			return eris.Wrap(err, "cache prune")
		}
		zap.L().Info("cmd: metadata cache pruned", zap.Int("deleted", n), zap.Duration("older_than", olderThan))
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d cached metadata entries\n", n)
		return nil
	},
}

func init() {
	cachePruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "delete entries created before this long ago, 0 for all")

	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
