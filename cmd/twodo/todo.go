package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/hochfrequenz/twodo/internal/domain"
	"github.com/hochfrequenz/twodo/internal/markdown"
	"github.com/hochfrequenz/twodo/internal/todostore"
	"github.com/spf13/cobra"
)

var (
	todoType        string
	todoPriority    string
	todoDescription string
	todoContent     string
	todoStatus      string
	listType        string
	listPriority    string
	importType      string
	importPriority  string
	todoAll         bool
	todoLimit       int
	importDryRun    bool
)

func init() {
	todoCmd := &cobra.Command{
		Use:   "todo",
		Short: "Manage todos",
	}

	addCmd := &cobra.Command{
		Use:   "add TITLE...",
		Short: "Add a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runTodoAdd,
	}
	addCmd.Flags().StringVarP(&todoType, "type", "t", "general", "todo type (code, text, image, general)")
	addCmd.Flags().StringVarP(&todoPriority, "priority", "p", "medium", "priority (low, medium, high, critical)")
	addCmd.Flags().StringVarP(&todoDescription, "description", "d", "", "description")
	addCmd.Flags().StringVarP(&todoContent, "content", "c", "", "content handed to the model")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List todos",
		RunE:  runTodoList,
	}
	listCmd.Flags().StringVar(&todoStatus, "status", "", "filter by status")
	listCmd.Flags().StringVar(&listType, "type", "", "filter by type")
	listCmd.Flags().StringVar(&listPriority, "priority", "", "filter by priority")
	listCmd.Flags().BoolVar(&todoAll, "all", false, "include sub-tasks")
	listCmd.Flags().IntVar(&todoLimit, "limit", 0, "maximum number of todos")

	showCmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a todo with its result",
		Args:  cobra.ExactArgs(1),
		RunE:  runTodoShow,
	}

	rmCmd := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a todo and its sub-tasks",
		Args:  cobra.ExactArgs(1),
		RunE:  runTodoRm,
	}

	splitCmd := &cobra.Command{
		Use:   "split ID",
		Short: "Break a large todo into sub-tasks",
		Args:  cobra.ExactArgs(1),
		RunE:  runTodoSplit,
	}

	importCmd := &cobra.Command{
		Use:   "import PATH",
		Short: "Import open checklist items from a markdown file or directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runTodoImport,
	}
	importCmd.Flags().StringVarP(&importType, "type", "t", string(domain.TypeText), "type for items without frontmatter")
	importCmd.Flags().StringVarP(&importPriority, "priority", "p", string(domain.PriorityMedium), "priority for items without frontmatter")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "show what would be imported")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show completion statistics",
		RunE:  runTodoStats,
	}

	todoCmd.AddCommand(addCmd, listCmd, showCmd, rmCmd, splitCmd, importCmd, statsCmd)
	rootCmd.AddCommand(todoCmd)
}

func runTodoAdd(cmd *cobra.Command, args []string) error {
	typ, err := domain.ParseType(todoType)
	if err != nil {
		return err
	}
	prio, err := domain.ParsePriority(todoPriority)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	td := domain.NewTodo(strings.Join(args, " "), todoDescription, typ, prio, todoContent)
	if err := a.store.Add(cmd.Context(), td); err != nil {
		return err
	}

	fmt.Printf("%s %s\n", successStyle.Render("Added"), td.ID)
	if td.IsTooLarge() {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("This looks large; run 'twodo todo split %s' to break it up.", td.ID)))
	}
	return nil
}

func runTodoList(cmd *cobra.Command, args []string) error {
	opts := todostore.ListOptions{TopLevel: !todoAll, Limit: todoLimit}
	if todoStatus != "" {
		st, err := domain.ParseStatus(todoStatus)
		if err != nil {
			return err
		}
		opts.Status = st
	}
	if listType != "" {
		t, err := domain.ParseType(listType)
		if err != nil {
			return err
		}
		opts.Type = t
	}
	if listPriority != "" {
		p, err := domain.ParsePriority(listPriority)
		if err != nil {
			return err
		}
		opts.Priority = p
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	todos, err := a.store.List(cmd.Context(), opts)
	if err != nil {
		return err
	}
	if len(todos) == 0 {
		fmt.Println(mutedStyle.Render("No todos"))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tTYPE\tTITLE\tUPDATED")
	for _, td := range todos {
		title := domain.Truncate(td.Title, 50)
		if td.IsParent() {
			title += fmt.Sprintf(" (%d sub-tasks)", len(td.SubTaskIDs))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			td.ID, styleStatus(td.Status), stylePriority(td.Priority), td.Type, title, relTime(td.UpdatedAt, "-"))
	}
	return w.Flush()
}

func runTodoShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	td, err := a.store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(td.Title))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", td.ID)
	fmt.Fprintf(w, "Status:\t%s\n", styleStatus(td.Status))
	fmt.Fprintf(w, "Priority:\t%s\n", stylePriority(td.Priority))
	fmt.Fprintf(w, "Type:\t%s\n", td.Type)
	fmt.Fprintf(w, "Created:\t%s\n", relTime(td.CreatedAt, "-"))
	fmt.Fprintf(w, "Updated:\t%s\n", relTime(td.UpdatedAt, "-"))
	if td.ParentID != "" {
		fmt.Fprintf(w, "Parent:\t%s\n", td.ParentID)
	}
	if td.IsParent() {
		fmt.Fprintf(w, "Sub-tasks:\t%s\n", strings.Join(td.SubTaskIDs, ", "))
	}
	if td.AssignedModel != "" {
		fmt.Fprintf(w, "Model:\t%s\n", td.AssignedModel)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if td.Description != "" {
		fmt.Println()
		fmt.Println(td.Description)
	}
	if td.Content != "" {
		fmt.Println()
		fmt.Println(mutedStyle.Render(td.Content))
	}
	if td.Result != "" {
		fmt.Println()
		fmt.Println(responseStyle.Render(td.Result))
	}
	return nil
}

func runTodoRm(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.store.Delete(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", todostore.ErrNotFound, args[0])
	}
	fmt.Printf("%s %s\n", successStyle.Render("Deleted"), args[0])
	return nil
}

func runTodoSplit(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	td, err := a.store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	if td.IsSubTask() {
		return errors.New("sub-tasks cannot be split further")
	}
	if td.IsParent() {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("%s already has %d sub-tasks", td.ID, len(td.SubTaskIDs))))
		return nil
	}

	specs := td.SubTasks()
	if specs == nil {
		fmt.Println(mutedStyle.Render("Todo is small enough to process as a whole"))
		return nil
	}
	ids, err := a.store.CreateChildren(ctx, td.ID, specs)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s into %d sub-tasks\n", successStyle.Render("Split"), td.ID, len(ids))
	for i, id := range ids {
		fmt.Printf("  %s  %s\n", id, specs[i].Title)
	}
	return nil
}

func runTodoImport(cmd *cobra.Command, args []string) error {
	typ, err := domain.ParseType(importType)
	if err != nil {
		return err
	}
	prio, err := domain.ParsePriority(importPriority)
	if err != nil {
		return err
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	var docs []markdown.Document
	if info.IsDir() {
		docs, err = markdown.ParseDir(args[0])
	} else {
		var doc markdown.Document
		doc, err = markdown.ParseFile(args[0])
		docs = []markdown.Document{doc}
	}
	if err != nil {
		return err
	}

	sum := markdown.Summarize(docs)
	fmt.Printf("Found %d tasks in %d files (%d open, %d done)\n", sum.Total, sum.Files, sum.Pending, sum.Completed)

	var todos []*domain.Todo
	for _, d := range docs {
		ts, err := d.Todos(typ, prio)
		if err != nil {
			return err
		}
		todos = append(todos, ts...)
	}

	if importDryRun {
		for _, td := range todos {
			fmt.Printf("  %s  %s\n", stylePriority(td.Priority), td.Title)
		}
		return nil
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	for _, td := range todos {
		if err := a.store.Add(cmd.Context(), td); err != nil {
			return fmt.Errorf("importing %q: %w", td.Title, err)
		}
	}
	fmt.Printf("%s %d todos\n", successStyle.Render("Imported"), len(todos))
	return nil
}

func runTodoStats(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.store.Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Todo statistics"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total:\t%d\n", st.Total)
	fmt.Fprintf(w, "Pending:\t%d\n", st.Pending)
	fmt.Fprintf(w, "In progress:\t%d\n", st.InProgress)
	fmt.Fprintf(w, "Completed:\t%s\n", successStyle.Render(fmt.Sprint(st.Completed)))
	fmt.Fprintf(w, "Failed:\t%s\n", errorStyle.Render(fmt.Sprint(st.Failed)))
	fmt.Fprintf(w, "Completion:\t%.1f%%\n", st.CompletionRate())
	return w.Flush()
}
