package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FunkyDruid/contextrie/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <paths...>",
	Short: "Load files into sources with generated metadata",
	Long:  "Walks the given files and directories, turns each file into a document, list or collection source, generates its title, description and keypoints, and writes sources.json to the output directory.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if placeholder, _ := cmd.Flags().GetBool("placeholder"); placeholder {
			cfg.Ingest.Placeholder = true
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore(st)

		meter := newMeter()
		in, err := newIngester(meter, st)
		if err != nil {
			return err
		}

		sources, err := in.Ingest(ctx, args...)
		if err != nil {
			return err
		}

		path := outputPath(ingest.SourcesFile)
		if err := ingest.WriteSources(path, sources); err != nil {
			return err
		}
		meter.Log()

		fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d sources into %s\n", len(sources), path)
		return nil
	},
}

func init() {
	ingestCmd.Flags().Bool("placeholder", false, "write placeholder metadata without calling a model")
	rootCmd.AddCommand(ingestCmd)
}
