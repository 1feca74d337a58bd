package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FunkyDruid/contextrie/internal/config"
	"github.com/FunkyDruid/contextrie/internal/cost"
	"github.com/FunkyDruid/contextrie/internal/ingest"
	"github.com/FunkyDruid/contextrie/internal/llm"
	"github.com/FunkyDruid/contextrie/internal/source"
	"github.com/FunkyDruid/contextrie/internal/store"
)

// initStore opens and migrates the SQLite store. It returns nil, nil when
// persistence is turned off.
func initStore(ctx context.Context) (store.Store, error) {
	path := cfg.StorePath()
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "create store directory %s", filepath.Dir(path))
	}

	st, err := store.NewSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// requireStore is initStore for commands that cannot work without one.
func requireStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("store is disabled (store.path=off)")
	}
	return st, nil
}

func closeStore(st store.Store) {
	if st != nil {
		st.Close() //nolint:errcheck
	}
}

func newMeter() *llm.Meter {
	return llm.NewMeter(cost.NewCalculator(llm.Rates(cfg.Pricing)))
}

// stageGenerator builds the metered generator for one pipeline stage.
func stageGenerator(meter *llm.Meter, stage string, m config.ModelConfig) (llm.Generator, error) {
	gen, err := llm.FromConfig(cfg, m)
	if err != nil {
		return nil, eris.Wrapf(err, "%s generator", stage)
	}
	return meter.Wrap(stage, gen), nil
}

func newIngester(meter *llm.Meter, st store.Store) (*ingest.Ingester, error) {
	var meta ingest.MetadataGenerator = ingest.PlaceholderMetadata{}
	if !cfg.Ingest.Placeholder {
		gen, err := stageGenerator(meter, llm.StageIngest, cfg.Ingest.ModelConfig)
		if err != nil {
			return nil, err
		}
		meta = ingest.NewLLMMetadata(gen)
	}

	opts := []ingest.Option{ingest.WithConcurrency(cfg.Ingest.Concurrency)}
	if st != nil {
		opts = append(opts, ingest.WithCache(st))
	}
	return ingest.New(meta, opts...), nil
}

// loadSources ingests args when given, otherwise reads the --sources file
// or the last ingest output.
func loadSources(cmd *cobra.Command, args []string, meter *llm.Meter, st store.Store) ([]source.Source, error) {
	if len(args) > 0 {
		in, err := newIngester(meter, st)
		if err != nil {
			return nil, err
		}
		return in.Ingest(cmd.Context(), args...)
	}

	path, _ := cmd.Flags().GetString("sources")
	if path == "" {
		path = outputPath(ingest.SourcesFile)
	}
	sources, err := ingest.ReadSources(path)
	if err != nil {
		return nil, eris.Wrap(err, "no paths given and no sources file readable, run ingest first")
	}
	zap.L().Info("cmd: loaded sources file", zap.String("path", path), zap.Int("sources", len(sources)))
	return sources, nil
}

func outputPath(name string) string {
	return filepath.Join(cfg.OutputDir, name)
}

// writeOutput writes data under the output directory and returns the path.
func writeOutput(name string, data []byte) (string, error) {
	path := outputPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", eris.Wrapf(err, "create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "write %s", path)
	}
	return path, nil
}
