package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hochfrequenz/twodo/internal/domain"
	"github.com/hochfrequenz/twodo/internal/interrupt"
	"github.com/hochfrequenz/twodo/internal/multitask"
	"github.com/spf13/cobra"
)

var (
	runHierarchical bool
	runType         string
	runPriority     string
	runLimit        int
	runFilter       string
	runWorkers      int
)

func init() {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Process pending todos in parallel",
		Long: `Process pending todos with the best available models.

Press ESC or Ctrl+C to stop. Todos that have not been answered yet are
reset to pending and picked up by the next run.`,
		RunE: runRun,
	}
	runCmd.Flags().BoolVar(&runHierarchical, "hierarchical", false, "finish parent todos before their sub-tasks")
	runCmd.Flags().StringVar(&runType, "type", "", "only process todos of this type")
	runCmd.Flags().StringVar(&runPriority, "priority", "", "only process todos of this priority")
	runCmd.Flags().StringVar(&runFilter, "filter", "", "filter expression: priority:VALUE or type:VALUE")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "maximum number of todos to process in flat mode (default: all)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "concurrency bound (default: max_parallel_tasks)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := interrupt.Context(cmd.Context(), a.logger)
	defer stop()
	out := interrupt.Writer(os.Stdout)

	todos, err := a.store.ListPending(ctx)
	if err != nil {
		return err
	}
	if runType != "" {
		t, err := domain.ParseType(runType)
		if err != nil {
			return err
		}
		todos = multitask.FilterByType(todos, t)
	}
	if runPriority != "" {
		p, err := domain.ParsePriority(runPriority)
		if err != nil {
			return err
		}
		todos = multitask.FilterByPriority(todos, p)
	}
	if todos, err = multitask.ApplyFilter(todos, runFilter); err != nil {
		return err
	}

	workers := a.cfg.Preferences.MaxParallelTasks
	if runWorkers > 0 {
		workers = runWorkers
	}
	// workers bounds concurrency only; every ready todo is processed
	limit := runLimit
	if runHierarchical {
		limit = 0
	}
	todos = multitask.Ready(todos, limit)
	if len(todos) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No pending todos"))
		return nil
	}

	r, err := a.router(ctx)
	if err != nil {
		return err
	}

	mode := multitask.ModeFlat
	if runHierarchical {
		mode = multitask.ModeHierarchical
	}

	fmt.Fprintf(out, "Processing %d todos with up to %d workers (ESC to stop)\n", len(todos), workers)
	mt := multitask.New(r, a.store, a.logger,
		multitask.WithMaxWorkers(workers),
		multitask.WithPrompts(a.promptLoader()))
	rep := mt.Start(ctx, todos, mode)
	stop()

	printReport(out, rep)
	return nil
}

func printReport(out io.Writer, rep multitask.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tMODEL\tTIME\tTITLE")
	for _, r := range rep.Results {
		model := r.Model
		if model == "" {
			model = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.TodoID, styleStatus(r.Status), model, r.Duration.Round(time.Millisecond), domain.Truncate(r.Title, 50))
	}
	_ = w.Flush()

	fmt.Fprintln(out)
	switch {
	case rep.Interrupted:
		fmt.Fprintln(out, warningStyle.Render(rep.Message))
	case rep.Failed > 0:
		fmt.Fprintln(out, errorStyle.Render(rep.Message))
	default:
		fmt.Fprintln(out, successStyle.Render(rep.Message))
	}
	if rep.Metrics.AvgDuration > 0 {
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("average %s per todo", rep.Metrics.AvgDuration.Round(time.Millisecond))))
	}
}
