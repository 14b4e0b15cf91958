package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/hochfrequenz/twodo/internal/interrupt"
	"github.com/hochfrequenz/twodo/internal/schedule"
	"github.com/hochfrequenz/twodo/internal/scheduler"
	"github.com/spf13/cobra"
)

var (
	schedFile        string
	schedDescription string
	schedDisabled    bool
	schedPrompts     []string
	schedCommands    []string
	schedMultitask   bool
	schedGitHubSync  bool
	schedFilter      string
	schedRunsLimit   int
	daemonDebounce   time.Duration
)

func init() {
	scheduleCmd := &cobra.Command{
		Use:     "schedule",
		Aliases: []string{"sched"},
		Short:   "Manage scheduled task lists",
	}

	addCmd := &cobra.Command{
		Use:   "add [NAME CRON]",
		Short: "Add or replace a schedule",
		Long: `Add or replace a schedule, either from a YAML file (--file) or from flags.

Tasks run in the order given: --github-sync, --prompt, --multitask, --command.

Example:
  twodo schedule add nightly "0 2 * * *" --github-sync --multitask`,
		RunE: runScheduleAdd,
	}
	addCmd.Flags().StringVarP(&schedFile, "file", "f", "", "read the schedule from a YAML file")
	addCmd.Flags().StringVarP(&schedDescription, "description", "d", "", "description")
	addCmd.Flags().BoolVar(&schedDisabled, "disabled", false, "create the schedule disabled")
	addCmd.Flags().BoolVar(&schedGitHubSync, "github-sync", false, "add a github_sync task")
	addCmd.Flags().StringArrayVar(&schedPrompts, "prompt", nil, "add an ai_prompt task (repeatable)")
	addCmd.Flags().BoolVar(&schedMultitask, "multitask", false, "add a multitask task")
	addCmd.Flags().StringVar(&schedFilter, "filter", "", "filter for the multitask task, e.g. priority:high")
	addCmd.Flags().StringArrayVar(&schedCommands, "command", nil, "add a custom_command task (repeatable)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		RunE:  runScheduleList,
	}

	rmCmd := &cobra.Command{
		Use:   "rm NAME",
		Short: "Remove a schedule",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleRm,
	}

	triggerCmd := &cobra.Command{
		Use:   "trigger NAME",
		Short: "Run a schedule now",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleTrigger,
	}

	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run schedules on their cron expressions until interrupted",
		RunE:  runScheduleDaemon,
	}
	daemonCmd.Flags().DurationVar(&daemonDebounce, "debounce", 0, "delay before reloading changed schedule files")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show upcoming runs and recent history",
		RunE:  runScheduleStatus,
	}
	statusCmd.Flags().IntVar(&schedRunsLimit, "runs", 10, "number of recent runs to show")

	scheduleCmd.AddCommand(addCmd, listCmd, rmCmd, triggerCmd, daemonCmd, statusCmd)
	rootCmd.AddCommand(scheduleCmd)
}

// scheduleFromFlags builds a schedule from the add command's flags
func scheduleFromFlags(args []string) (schedule.Schedule, error) {
	if schedFile != "" {
		if len(args) > 0 {
			return schedule.Schedule{}, errors.New("NAME and CRON cannot be combined with --file")
		}
		return schedule.ReadFile(schedFile)
	}
	if len(args) != 2 {
		return schedule.Schedule{}, errors.New("expected NAME and CRON, or --file")
	}

	sc := schedule.Schedule{
		Name:        args[0],
		Cron:        args[1],
		Description: schedDescription,
		Enabled:     !schedDisabled,
	}
	if schedGitHubSync {
		sc.Tasks = append(sc.Tasks, schedule.TaskSpec{Type: schedule.TaskGitHubSync})
	}
	for _, p := range schedPrompts {
		sc.Tasks = append(sc.Tasks, schedule.TaskSpec{
			Type:   schedule.TaskAIPrompt,
			Config: map[string]any{"prompt": p},
		})
	}
	if schedMultitask {
		t := schedule.TaskSpec{Type: schedule.TaskMultitask}
		if schedFilter != "" {
			t.Config = map[string]any{"filter": schedFilter}
		}
		sc.Tasks = append(sc.Tasks, t)
	}
	for _, c := range schedCommands {
		sc.Tasks = append(sc.Tasks, schedule.TaskSpec{
			Type:   schedule.TaskCustomCommand,
			Config: map[string]any{"command": c},
		})
	}
	return sc, nil
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	sc, err := scheduleFromFlags(args)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.scheduler(cmd.Context())
	if err != nil {
		return err
	}
	if err := s.Add(sc); err != nil {
		return err
	}

	added, _ := s.Get(sc.Name)
	fmt.Printf("%s %s (%s)\n", successStyle.Render("Scheduled"), added.Name, added.Cron)
	if added.Enabled {
		fmt.Println(mutedStyle.Render("next run " + relTime(added.NextRun, "never")))
	}
	return nil
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.scheduler(cmd.Context())
	if err != nil {
		return err
	}
	list := s.List()
	if len(list) == 0 {
		fmt.Println(mutedStyle.Render("No schedules"))
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCRON\tENABLED\tTASKS\tNEXT\tLAST\tRUNS")
	for _, sc := range list {
		next := "-"
		if sc.Enabled {
			next = relTime(sc.Next(now), "never")
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%s\t%d\n",
			sc.Name, sc.Cron, sc.Enabled, taskTypes(sc.Tasks), next, relTime(sc.LastRun, "never"), sc.RunCount)
	}
	return w.Flush()
}

func taskTypes(tasks []schedule.TaskSpec) string {
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = string(t.Type)
	}
	return strings.Join(names, ",")
}

func runScheduleRm(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.scheduler(cmd.Context())
	if err != nil {
		return err
	}
	if err := s.Remove(args[0]); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", successStyle.Render("Removed"), args[0])
	return nil
}

func runScheduleTrigger(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := interrupt.Context(cmd.Context(), a.logger)
	defer stop()

	s, err := a.scheduler(ctx)
	if err != nil {
		return err
	}
	rep, err := s.Trigger(ctx, args[0])
	stop()
	if err != nil {
		return err
	}
	printRunReport(rep)
	return nil
}

func printRunReport(rep *scheduler.RunReport) {
	fmt.Println(titleStyle.Render(rep.Schedule))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, r := range rep.Results {
		status := successStyle.Render(string(r.Status))
		if !r.OK() {
			status = errorStyle.Render(string(r.Status))
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, r.Type, status, r.Message)
	}
	_ = w.Flush()
	fmt.Println(mutedStyle.Render(fmt.Sprintf("%d succeeded, %d failed in %s",
		rep.Succeeded, rep.Failed, rep.Finished.Sub(rep.Started).Round(time.Millisecond))))
}

func runScheduleDaemon(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := a.scheduler(ctx, scheduler.WithWatch(daemonDebounce))
	if err != nil {
		return err
	}
	if err := s.Start(ctx); err != nil {
		return err
	}

	st := s.Status()
	a.logger.Info().
		Int("schedules", st.ScheduleCount).
		Int("enabled", st.Enabled).
		Str("dir", a.cfg.General.SchedulesDir).
		Msg("scheduler daemon running")

	<-ctx.Done()
	a.logger.Info().Msg("shutting down")
	s.Stop()
	return nil
}

func runScheduleStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	s, err := a.scheduler(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	var upcoming []scheduler.NextRun
	for _, sc := range s.List() {
		if sc.Enabled {
			upcoming = append(upcoming, scheduler.NextRun{Name: sc.Name, At: sc.Next(now)})
		}
	}

	fmt.Println(titleStyle.Render("Upcoming"))
	if len(upcoming) == 0 {
		fmt.Println(mutedStyle.Render("  no enabled schedules"))
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].At.Before(upcoming[j].At) })
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, n := range upcoming {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", n.Name, n.At.Format(time.DateTime), relTime(n.At, "never"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	runs, err := a.store.ListRuns(ctx, "", schedRunsLimit)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(titleStyle.Render("Recent runs"))
	if len(runs) == 0 {
		fmt.Println(mutedStyle.Render("  none yet"))
		return nil
	}
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, r := range runs {
		result := successStyle.Render(fmt.Sprintf("%d ok", r.Succeeded))
		if r.Failed > 0 {
			result += " " + errorStyle.Render(fmt.Sprintf("%d failed", r.Failed))
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			r.Schedule, r.Trigger, relTime(r.StartedAt, "-"), r.Duration().Round(time.Millisecond), result)
	}
	return w.Flush()
}
