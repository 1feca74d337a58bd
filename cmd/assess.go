package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/FunkyDruid/contextrie/internal/assess"
	"github.com/FunkyDruid/contextrie/internal/llm"
	"github.com/FunkyDruid/contextrie/internal/source"
)

// AssessmentFile is the file assess writes its ranking to.
const AssessmentFile = "assessment.json"

var assessCmd = &cobra.Command{
	Use:   "assess [paths...]",
	Short: "Rate sources by relevance to a task",
	Long:  "Scores every source against the task with one model call, writes assessment.json to the output directory and prints the ranking. Without paths the last ingest output is used.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		task, _ := cmd.Flags().GetString("task")
		deep := cfg.Assess.Deep
		if cmd.Flags().Changed("deep") {
			deep, _ = cmd.Flags().GetBool("deep")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore(st)

		meter := newMeter()
		sources, err := loadSources(cmd, args, meter, st)
		if err != nil {
			return err
		}

		result, err := runAssessment(cmd, meter, task, sources, deep)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal assessment")
		}
		path, err := writeOutput(AssessmentFile, append(data, '\n'))
		if err != nil {
			return err
		}
		meter.Log()

		formatAssessment(cmd.OutOrStdout(), result)
		fmt.Fprintf(cmd.OutOrStdout(), "\nWrote %s\n", path)
		return nil
	},
}

func runAssessment(cmd *cobra.Command, meter *llm.Meter, task string, sources []source.Source, deep bool) (*assess.Result, error) {
	gen, err := stageGenerator(meter, llm.StageAssess, cfg.Assess.ModelConfig)
	if err != nil {
		return nil, err
	}

	a := assess.New(assess.NewLLMScorer(gen)).Task(task).From(sources...)
	if deep {
		a.Deep()
	}
	return a.Run(cmd.Context())
}

// formatAssessment writes the ranking as a table.
func formatAssessment(out io.Writer, result *assess.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RELEVANCE\tID\tTITLE\tREASONING")
	_, _ = fmt.Fprintln(w, "---------\t--\t-----\t---------")
	for _, rs := range result.Sources() {
		_, _ = fmt.Fprintf(w, "%.2f\t%s\t%s\t%s\n",
			rs.Relevance,
			truncateID(rs.Source.ID),
			source.Truncate(rs.Source.Title, 40),
			source.Truncate(rs.Reasoning, 60),
		)
	}
	_ = w.Flush()
}

func init() {
	assessCmd.Flags().String("task", "", "task the sources are rated for")
	assessCmd.Flags().Bool("deep", false, "include source content in the scoring prompt")
	assessCmd.Flags().String("sources", "", "sources file to read instead of the last ingest output")
	_ = assessCmd.MarkFlagRequired("task")
	rootCmd.AddCommand(assessCmd)
}
