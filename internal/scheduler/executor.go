package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hochfrequenz/twodo/internal/domain"
	"github.com/hochfrequenz/twodo/internal/markdown"
	"github.com/hochfrequenz/twodo/internal/multitask"
	"github.com/hochfrequenz/twodo/internal/prompts"
	"github.com/hochfrequenz/twodo/internal/schedule"
	"github.com/hochfrequenz/twodo/internal/shell"
	"github.com/hochfrequenz/twodo/internal/todostore"
	"github.com/rs/zerolog"
)

const (
	// DefaultCommandTimeout bounds custom_command tasks
	DefaultCommandTimeout = 300 * time.Second

	defaultMultitaskParallel = 3
	titleLen                 = 50
	notConfiguredMessage     = "GitHub integration not configured. Set github.repo or run inside a repository with gh installed."
)

// TaskStatus is the outcome of one task
type TaskStatus string

const (
	StatusSuccess TaskStatus = "success"
	StatusError   TaskStatus = "error"
)

// TaskResult is what a task reports back to its schedule run
type TaskResult struct {
	Type    schedule.TaskType
	Status  TaskStatus
	Message string
	Data    map[string]any
}

// OK reports whether the task succeeded
func (r TaskResult) OK() bool { return r.Status == StatusSuccess }

// TodoStore is the part of the todo store tasks need
type TodoStore interface {
	multitask.TodoStore
	Add(ctx context.Context, todo *domain.Todo) error
	List(ctx context.Context, opts todostore.ListOptions) ([]*domain.Todo, error)
}

// GitHub is the gh/git wrapper; *github.Client implements it
type GitHub interface {
	ListIssues(ctx context.Context, limit int) ([]domain.GitHubIssue, error)
	CreateBranch(ctx context.Context, branch string) error
	CreatePR(ctx context.Context, title, body, branch string) (string, error)
}

// Executor runs individual schedule tasks
type Executor struct {
	ai       multitask.AI
	todos    TodoStore
	gh       GitHub
	runner   shell.Runner
	observer *multitask.Observer
	prompts  *prompts.Loader
	logger   zerolog.Logger

	commandTimeout time.Duration
	workDir        string
}

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

// WithCommandTimeout overrides DefaultCommandTimeout
func WithCommandTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.commandTimeout = d
		}
	}
}

// WithGitHub enables the GitHub task types
func WithGitHub(gh GitHub) ExecutorOption {
	return func(e *Executor) { e.gh = gh }
}

// WithRunner replaces the process runner used by custom_command
func WithRunner(r shell.Runner) ExecutorOption {
	return func(e *Executor) { e.runner = r }
}

// WithWorkDir sets the default directory for custom_command
func WithWorkDir(dir string) ExecutorOption {
	return func(e *Executor) { e.workDir = dir }
}

// WithPrompts sets the template loader used by multitask tasks
func WithPrompts(l *prompts.Loader) ExecutorOption {
	return func(e *Executor) { e.prompts = l }
}

// NewExecutor creates an Executor
func NewExecutor(ai multitask.AI, todos TodoStore, logger zerolog.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		ai:             ai,
		todos:          todos,
		runner:         shell.ExecRunner{},
		observer:       multitask.NewObserver(),
		logger:         logger.With().Str("component", "executor").Logger(),
		commandTimeout: DefaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Metrics returns counters for todos processed by multitask tasks
func (e *Executor) Metrics() multitask.Metrics {
	return e.observer.Metrics()
}

// Execute runs one task. It never panics; every failure is reported as an
// error result.
func (e *Executor) Execute(ctx context.Context, spec schedule.TaskSpec, scheduleName string) (res TaskResult) {
	defer func() {
		if p := recover(); p != nil {
			res = errorResult(spec.Type, fmt.Sprintf("task panicked: %v", p))
		}
		res.Type = spec.Type
	}()

	switch spec.Type {
	case schedule.TaskAIPrompt:
		return e.aiPrompt(ctx, spec, scheduleName)
	case schedule.TaskAddTodo:
		return e.addTodo(ctx, spec)
	case schedule.TaskMultitask:
		return e.multitask(ctx, spec)
	case schedule.TaskGitHubSync:
		return e.githubSync(ctx, spec)
	case schedule.TaskCreateBranch:
		return e.createBranch(ctx, spec)
	case schedule.TaskGitHubPR:
		return e.githubPR(ctx, spec)
	case schedule.TaskCustomCommand:
		return e.customCommand(ctx, spec)
	}
	return errorResult(spec.Type, fmt.Sprintf("unknown task type: %s", spec.Type))
}

func errorResult(t schedule.TaskType, msg string) TaskResult {
	return TaskResult{Type: t, Status: StatusError, Message: msg}
}

func (e *Executor) aiPrompt(ctx context.Context, spec schedule.TaskSpec, scheduleName string) TaskResult {
	prompt := spec.String("prompt", "")
	if prompt == "" {
		return errorResult(spec.Type, "Prompt is required")
	}

	out := e.ai.RouteAndProcess(ctx, prompt, "Scheduled: "+scheduleName)
	res := TaskResult{
		Status:  StatusSuccess,
		Message: "AI prompt executed successfully",
		Data:    map[string]any{"response": out.Text, "model_used": out.Model},
	}
	if !out.OK() {
		res.Status = StatusError
		res.Message = out.Text
	}
	return res
}

func (e *Executor) addTodo(ctx context.Context, spec schedule.TaskSpec) TaskResult {
	typ, err := domain.ParseType(spec.String("type", ""))
	if err != nil {
		return errorResult(spec.Type, err.Error())
	}
	prio, err := domain.ParsePriority(spec.String("priority", ""))
	if err != nil {
		return errorResult(spec.Type, err.Error())
	}

	if path := spec.String("from_file", ""); path != "" {
		return e.importFile(ctx, spec, path, typ, prio)
	}

	content := spec.String("content", "")
	if content == "" {
		return errorResult(spec.Type, "Todo content is required")
	}
	title := spec.String("title", domain.Truncate(content, titleLen))
	desc := spec.String("description", content)

	todo := domain.NewTodo(title, desc, typ, prio, content)
	if err := e.todos.Add(ctx, todo); err != nil {
		return errorResult(spec.Type, fmt.Sprintf("Failed to add todo: %v", err))
	}
	return TaskResult{
		Status:  StatusSuccess,
		Message: "Added todo: " + todo.ID,
		Data:    map[string]any{"todo_id": todo.ID},
	}
}

func (e *Executor) importFile(ctx context.Context, spec schedule.TaskSpec, path string, typ domain.TodoType, prio domain.Priority) TaskResult {
	doc, err := markdown.ParseFile(path)
	if err != nil {
		return errorResult(spec.Type, fmt.Sprintf("Failed to parse %s: %v", path, err))
	}
	if _, ok := spec.Config["type"]; !ok {
		typ = domain.TypeText
	}
	todos, err := doc.Todos(typ, prio)
	if err != nil {
		return errorResult(spec.Type, err.Error())
	}

	ids := make([]string, 0, len(todos))
	for _, td := range todos {
		if err := e.todos.Add(ctx, td); err != nil {
			return TaskResult{
				Status:  StatusError,
				Message: fmt.Sprintf("Failed to add todo %q: %v", td.Title, err),
				Data:    map[string]any{"todo_ids": ids},
			}
		}
		ids = append(ids, td.ID)
	}
	return TaskResult{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Imported %d todos from %s", len(ids), path),
		Data:    map[string]any{"todo_ids": ids},
	}
}

func (e *Executor) multitask(ctx context.Context, spec schedule.TaskSpec) TaskResult {
	maxParallel := spec.Int("max_parallel", defaultMultitaskParallel)
	if maxParallel <= 0 {
		maxParallel = defaultMultitaskParallel
	}

	pending, err := e.todos.List(ctx, todostore.ListOptions{Status: domain.StatusPending})
	if err != nil {
		return errorResult(spec.Type, fmt.Sprintf("Failed to load todos: %v", err))
	}
	filtered, err := multitask.ApplyFilter(pending, spec.String("filter", ""))
	if err != nil {
		return errorResult(spec.Type, err.Error())
	}
	todos := multitask.Ready(filtered, maxParallel)
	if len(todos) == 0 {
		return TaskResult{
			Status:  StatusSuccess,
			Message: "No pending todos to process",
			Data:    map[string]any{"processed_count": 0},
		}
	}

	mode := multitask.ModeFlat
	if spec.Bool("hierarchical", false) {
		mode = multitask.ModeHierarchical
	}
	m := multitask.New(e.ai, e.todos, e.logger,
		multitask.WithMaxWorkers(maxParallel),
		multitask.WithObserver(e.observer),
		multitask.WithPrompts(e.prompts))
	rep := m.Start(ctx, todos, mode)

	res := TaskResult{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Processed %d todos", len(rep.Results)),
		Data: map[string]any{
			"processed_count": len(rep.Results),
			"completed":       rep.Completed,
			"failed":          rep.Failed,
		},
	}
	if rep.Interrupted {
		res.Status = StatusError
		res.Message = rep.Message
	}
	return res
}

func (e *Executor) githubSync(ctx context.Context, spec schedule.TaskSpec) TaskResult {
	if e.gh == nil {
		return errorResult(spec.Type, notConfiguredMessage)
	}
	if action := spec.String("action", "sync_issues"); action != "sync_issues" {
		return errorResult(spec.Type, "Unknown sync action: "+action)
	}

	issues, err := e.gh.ListIssues(ctx, spec.Int("limit", 0))
	if err != nil {
		return errorResult(spec.Type, fmt.Sprintf("GitHub sync failed: %v", err))
	}

	created := 0
	if spec.Bool("create_todos", true) && len(issues) > 0 {
		existing, err := e.existingTitles(ctx)
		if err != nil {
			return errorResult(spec.Type, fmt.Sprintf("GitHub sync failed: %v", err))
		}
		for _, issue := range issues {
			title := issue.TodoTitle()
			if existing[title] {
				continue
			}
			content := title + "\n\n" + issue.Body
			todo := domain.NewTodo(title, issue.Body, domain.TypeCode, domain.PriorityMedium, content)
			if err := e.todos.Add(ctx, todo); err != nil {
				return errorResult(spec.Type, fmt.Sprintf("GitHub sync failed after %d todos: %v", created, err))
			}
			existing[title] = true
			created++
		}
	}

	return TaskResult{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Synced %d issues, created %d todos", len(issues), created),
		Data:    map[string]any{"issues_count": len(issues), "todos_created": created},
	}
}

func (e *Executor) existingTitles(ctx context.Context) (map[string]bool, error) {
	all, err := e.todos.List(ctx, todostore.ListOptions{})
	if err != nil {
		return nil, err
	}
	titles := make(map[string]bool, len(all))
	for _, td := range all {
		titles[td.Title] = true
	}
	return titles, nil
}

func (e *Executor) createBranch(ctx context.Context, spec schedule.TaskSpec) TaskResult {
	if e.gh == nil {
		return errorResult(spec.Type, notConfiguredMessage)
	}
	issue := spec.Int("issue_number", 0)
	if issue <= 0 {
		return errorResult(spec.Type, "Issue number is required")
	}

	branch := domain.BranchName(spec.String("branch_prefix", "issue"), issue)
	if err := e.gh.CreateBranch(ctx, branch); err != nil {
		return errorResult(spec.Type, fmt.Sprintf("Branch creation failed: %v", err))
	}
	return TaskResult{
		Status:  StatusSuccess,
		Message: "Created branch: " + branch,
		Data:    map[string]any{"branch_name": branch},
	}
}

func (e *Executor) githubPR(ctx context.Context, spec schedule.TaskSpec) TaskResult {
	if e.gh == nil {
		return errorResult(spec.Type, notConfiguredMessage)
	}
	title, branch := spec.String("title", ""), spec.String("branch", "")
	if title == "" || branch == "" {
		return errorResult(spec.Type, "Title and branch are required for PR creation")
	}

	url, err := e.gh.CreatePR(ctx, title, spec.String("body", ""), branch)
	if err != nil {
		return errorResult(spec.Type, fmt.Sprintf("PR creation failed: %v", err))
	}
	return TaskResult{
		Status:  StatusSuccess,
		Message: "Created pull request: " + url,
		Data:    map[string]any{"pr_url": url},
	}
}

func (e *Executor) customCommand(ctx context.Context, spec schedule.TaskSpec) TaskResult {
	command := spec.String("command", "")
	if command == "" {
		return errorResult(spec.Type, "Command is required")
	}
	dir := spec.String("working_dir", e.workDir)
	if dir == "" {
		dir, _ = os.Getwd()
	}

	out, err := shell.RunScript(ctx, e.runner, dir, command, e.commandTimeout)
	data := map[string]any{
		"stdout":     out.Stdout,
		"stderr":     out.Stderr,
		"returncode": out.ExitCode,
	}

	var cmdErr *shell.CommandError
	switch {
	case err == nil:
		return TaskResult{Status: StatusSuccess, Message: "Command exit code: 0", Data: data}
	case errors.Is(err, shell.ErrTimeout):
		return TaskResult{Status: StatusError, Message: fmt.Sprintf("Command timed out after %s", e.commandTimeout), Data: data}
	case errors.As(err, &cmdErr):
		return TaskResult{Status: StatusError, Message: fmt.Sprintf("Command exit code: %d", out.ExitCode), Data: data}
	}
	return TaskResult{Status: StatusError, Message: fmt.Sprintf("Command execution failed: %v", err), Data: data}
}
