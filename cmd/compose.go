package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FunkyDruid/contextrie/internal/assess"
	"github.com/FunkyDruid/contextrie/internal/compose"
	"github.com/FunkyDruid/contextrie/internal/llm"
	"github.com/FunkyDruid/contextrie/internal/store"
)

// ContextFile is the file compose writes the context document to.
const ContextFile = "context.md"

// composeOptions are the resolved compose flags.
type composeOptions struct {
	task        string
	threshold   float64
	density     compose.DensityValue
	deep        bool
	raw         bool
	assessment  string
	stdout      bool
	concurrency int
}

var composeCmd = &cobra.Command{
	Use:   "compose [paths...]",
	Short: "Compose a task-specific context document",
	Long:  "Ingests the given paths (or reads the last ingest output), rates the sources against the task, compresses the relevant ones by density and writes context.md to the output directory. Each invocation is recorded as a run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := composeFlags(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore(st)

		meter := newMeter()
		out, err := runCompose(cmd, opts, args, meter, st)
		meter.Log()
		if err != nil {
			return err
		}

		if opts.stdout {
			_, err = fmt.Fprint(cmd.OutOrStdout(), out.doc.Markdown())
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Composed %d of %d sources into %s (threshold %.2f)\n",
			len(out.doc.Blocks), out.candidates, out.path, out.doc.EffectiveThreshold)
		return nil
	},
}

func composeFlags(cmd *cobra.Command) (composeOptions, error) {
	f := cmd.Flags()
	opts := composeOptions{
		threshold:   cfg.Compose.Threshold,
		deep:        cfg.Assess.Deep,
		concurrency: cfg.Compose.Concurrency,
	}
	opts.task, _ = f.GetString("task")
	opts.raw, _ = f.GetBool("raw")
	opts.assessment, _ = f.GetString("assessment")
	opts.stdout, _ = f.GetBool("stdout")
	if opts.task == "" && opts.assessment == "" {
		return opts, eris.New("--task is required unless --assessment is given")
	}

	if f.Changed("threshold") {
		opts.threshold, _ = f.GetFloat64("threshold")
	}
	if f.Changed("deep") {
		opts.deep, _ = f.GetBool("deep")
	}
	if f.Changed("concurrency") {
		opts.concurrency, _ = f.GetInt("concurrency")
	}

	density := cfg.Compose.Density
	if f.Changed("density") {
		density, _ = f.GetString("density")
	}
	d, err := compose.ParseDensity(density)
	if err != nil {
		return opts, err
	}
	opts.density = d
	return opts, nil
}

// composeOutcome is a finished composition.
type composeOutcome struct {
	doc        *compose.Document
	path       string
	candidates int
}

// runCompose runs assessment and composition, writes the context file and
// records the run when a store is available.
func runCompose(cmd *cobra.Command, opts composeOptions, args []string, meter *llm.Meter, st store.Store) (*composeOutcome, error) {
	ctx := cmd.Context()
	resolved, err := compose.ResolveDensity(opts.density)
	if err != nil {
		return nil, err
	}

	// The task may come from the assessment; resolve it before the run is recorded.
	var prior *assess.Result
	if opts.assessment != "" {
		prior, err = readAssessment(opts.assessment)
		if err != nil {
			return nil, err
		}
		if opts.task == "" {
			opts.task = prior.Prompt
		}
	}

	var run *store.Run
	if st != nil {
		run, err = st.CreateRun(ctx, opts.task, store.RunParams{
			Threshold: opts.threshold,
			Density:   resolved,
			Deep:      opts.deep,
			Raw:       opts.raw,
		})
		if err != nil {
			return nil, err
		}
	}

	out, err := composeContext(cmd, opts, prior, args, meter, st)
	if run == nil {
		return out, err
	}

	// Record the outcome even when the command context is done.
	recordCtx := context.WithoutCancel(ctx)
	if err != nil {
		if ferr := st.FailRun(recordCtx, run.ID, err); ferr != nil {
			zap.L().Warn("cmd: failed to record run failure", zap.String("run_id", run.ID), zap.Error(ferr))
		}
		return nil, err
	}

	total := meter.Total()
	if cerr := st.CompleteRun(recordCtx, run.ID, &store.RunResult{
		Candidates:         out.candidates,
		Admitted:           len(out.doc.Blocks),
		EffectiveThreshold: out.doc.EffectiveThreshold,
		OutputPath:         out.path,
		TotalTokens:        total.Tokens.Total(),
		TotalCost:          total.CostUSD,
	}); cerr != nil {
		zap.L().Warn("cmd: failed to record run", zap.String("run_id", run.ID), zap.Error(cerr))
	}
	zap.L().Info("cmd: compose run recorded", zap.String("run_id", run.ID))
	return out, nil
}

// composeContext composes from prior when given, otherwise it loads and
// assesses sources first.
func composeContext(cmd *cobra.Command, opts composeOptions, prior *assess.Result, args []string, meter *llm.Meter, st store.Store) (*composeOutcome, error) {
	ctx := cmd.Context()

	var rated []assess.Rated
	if prior != nil {
		rated = prior.Sources()
	} else {
		sources, err := loadSources(cmd, args, meter, st)
		if err != nil {
			return nil, err
		}
		result, err := runAssessment(cmd, meter, opts.task, sources, opts.deep)
		if err != nil {
			return nil, err
		}
		rated = result.Sources()
	}

	var compressor compose.Compressor = compose.PassthroughCompressor{}
	if !opts.raw {
		gen, err := stageGenerator(meter, llm.StageCompose, cfg.Compose.ModelConfig)
		if err != nil {
			return nil, err
		}
		compressor = compose.NewLLMCompressor(gen)
	}

	doc, err := compose.New(compressor, compose.WithConcurrency(opts.concurrency)).
		Task(opts.task).
		From(rated...).
		Threshold(opts.threshold).
		Density(opts.density).
		RunDocument(ctx)
	if err != nil {
		return nil, err
	}

	path, err := writeOutput(ContextFile, []byte(doc.Markdown()))
	if err != nil {
		return nil, err
	}
	return &composeOutcome{doc: doc, path: path, candidates: len(rated)}, nil
}

func readAssessment(path string) (*assess.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read assessment %s", path)
	}
	var result assess.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, eris.Wrapf(err, "decode assessment %s", path)
	}
	return &result, nil
}

func init() {
	f := composeCmd.Flags()
	f.String("task", "", "task the context is composed for")
	f.Float64("threshold", 0.65, "relevance threshold before density adjustment (default from config)")
	f.String("density", "thorough", "density preset (minimal, sparse, balanced, detailed, thorough) or a number in [0, 1] (default from config)")
	f.Bool("deep", false, "include source content in the scoring prompt")
	f.Bool("raw", false, "include admitted sources verbatim instead of compressing them with a model")
	f.String("sources", "", "sources file to read instead of the last ingest output")
	f.String("assessment", "", "assessment file to compose from instead of scoring again")
	f.Int("concurrency", 0, "max parallel compressions, 0 for unlimited (default from config)")
	f.Bool("stdout", false, "print the context document instead of a summary")
	rootCmd.AddCommand(composeCmd)
}
