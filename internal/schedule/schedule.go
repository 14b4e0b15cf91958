// Package schedule defines cron schedules of ordered tasks and their
// on-disk representation.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// TaskType names a unit of work a schedule can run
type TaskType string

const (
	TaskGitHubSync    TaskType = "github_sync"
	TaskMultitask     TaskType = "multitask"
	TaskAddTodo       TaskType = "add_todo"
	TaskCreateBranch  TaskType = "create_branch"
	TaskGitHubPR      TaskType = "github_pr"
	TaskCustomCommand TaskType = "custom_command"
	TaskAIPrompt      TaskType = "ai_prompt"
)

// AllTaskTypes lists every supported task type
var AllTaskTypes = []TaskType{
	TaskGitHubSync, TaskMultitask, TaskAddTodo, TaskCreateBranch,
	TaskGitHubPR, TaskCustomCommand, TaskAIPrompt,
}

// Valid reports whether t is a supported task type
func (t TaskType) Valid() bool {
	for _, v := range AllTaskTypes {
		if t == v {
			return true
		}
	}
	return false
}

var (
	ErrNameRequired = errors.New("schedule name is required")
	ErrInvalidCron  = errors.New("invalid cron expression")
	ErrNoTasks      = errors.New("at least one task is required")
	ErrTaskType     = errors.New("invalid task type")
)

// Parser accepts standard 5-field cron expressions
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCron parses a cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	return Parser.Parse(expr)
}

// TaskSpec is one task inside a schedule
type TaskSpec struct {
	Type   TaskType       `yaml:"type"`
	Config map[string]any `yaml:"config,omitempty"`
}

// String returns a config value as a string, or def when absent
func (t TaskSpec) String(key, def string) string {
	v, ok := t.Config[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int returns a config value as an int, or def when absent or not numeric
func (t TaskSpec) Int(key string, def int) int {
	switch v := t.Config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Bool returns a config value as a bool, or def when absent
func (t TaskSpec) Bool(key string, def bool) bool {
	switch v := t.Config[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Schedule is a named cron expression with an ordered task list
type Schedule struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Cron        string     `yaml:"cron"`
	Enabled     bool       `yaml:"enabled"`
	Tasks       []TaskSpec `yaml:"tasks"`

	NextRun  time.Time `yaml:"next_run,omitempty"`
	LastRun  time.Time `yaml:"last_run,omitempty"`
	RunCount int       `yaml:"run_count"`
}

// Validate returns every problem with the schedule; an empty result means
// it is valid
func (s *Schedule) Validate() []error {
	var errs []error
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, ErrNameRequired)
	}
	if _, err := ParseCron(s.Cron); err != nil {
		errs = append(errs, fmt.Errorf("%w %q: %w", ErrInvalidCron, s.Cron, err))
	}
	if len(s.Tasks) == 0 {
		errs = append(errs, ErrNoTasks)
	}
	for i, t := range s.Tasks {
		if !t.Type.Valid() {
			errs = append(errs, fmt.Errorf("task %d: %w %q", i+1, ErrTaskType, t.Type))
		}
	}
	return errs
}

// Next returns the first firing after t, or the zero time when the cron
// expression does not parse
func (s *Schedule) Next(t time.Time) time.Time {
	sched, err := ParseCron(s.Cron)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(t)
}

// Slug turns a schedule name into a file name stem
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
