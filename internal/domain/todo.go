package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LargeContentThreshold is the content length above which a todo is split
const LargeContentThreshold = 500

var complexityKeywords = []string{
	"comprehensive", "complete", "system", "architecture", "framework",
	"entire", "platform", "infrastructure", "multiple", "full-stack",
	"end-to-end",
}

// Todo is a unit of work that can be handed to an AI model
type Todo struct {
	ID            string
	Title         string
	Description   string
	Type          TodoType
	Priority      Priority
	Status        TodoStatus
	Content       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	AssignedModel string
	Result        string
	ParentID      string
	SubTaskIDs    []string
}

// NewTodo creates a pending todo with a fresh short ID
func NewTodo(title, description string, typ TodoType, priority Priority, content string) *Todo {
	now := time.Now()
	return &Todo{
		ID:          NewID(),
		Title:       title,
		Description: description,
		Type:        typ,
		Priority:    priority,
		Status:      StatusPending,
		Content:     content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewID returns an 8 character identifier
func NewID() string {
	return uuid.NewString()[:8]
}

// IsSubTask reports whether the todo belongs to a parent
func (t *Todo) IsSubTask() bool {
	return t.ParentID != ""
}

// IsParent reports whether the todo has been split into children
func (t *Todo) IsParent() bool {
	return len(t.SubTaskIDs) > 0
}

// IsTooLarge reports whether the todo should be broken into sub-tasks
func (t *Todo) IsTooLarge() bool {
	if len(t.Content) > LargeContentThreshold {
		return true
	}
	text := strings.ToLower(t.Title + " " + t.Description + " " + t.Content)
	for _, kw := range complexityKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// SubTaskSpec describes a child todo before it is stored
type SubTaskSpec struct {
	Title       string
	Description string
}

var subTaskTemplates = map[TodoType][]SubTaskSpec{
	TypeCode: {
		{"Analyze requirements", "Break down the requirements and design the overall structure"},
		{"Set up project structure", "Create the skeleton, dependencies and configuration"},
		{"Implement core functionality", "Build the main components"},
		{"Write tests", "Cover the core functionality with automated tests"},
		{"Review and document", "Review the implementation and write documentation"},
	},
	TypeText: {
		{"Research and outline", "Collect sources and outline the structure"},
		{"Write first draft", "Write the main content following the outline"},
		{"Review and refine", "Edit the draft for clarity and completeness"},
	},
	TypeImage: {
		{"Gather references", "Collect the input images and requirements"},
		{"Process images", "Perform the requested processing or analysis"},
		{"Review output", "Check the results against the requirements"},
	},
	TypeGeneral: {
		{"Plan approach", "Identify the steps needed to finish the task"},
		{"Execute main work", "Carry out the planned steps"},
		{"Verify results", "Check that the outcome meets the goal"},
	},
}

// SubTasks returns the child specs for a large todo, or nil when the todo is
// small enough to be processed as a whole
func (t *Todo) SubTasks() []SubTaskSpec {
	if !t.IsTooLarge() {
		return nil
	}
	tmpl, ok := subTaskTemplates[t.Type]
	if !ok {
		tmpl = subTaskTemplates[TypeGeneral]
	}
	specs := make([]SubTaskSpec, len(tmpl))
	for i, s := range tmpl {
		specs[i] = SubTaskSpec{
			Title:       s.Title + ": " + Truncate(t.Title, 40),
			Description: s.Description,
		}
	}
	return specs
}

// Truncate shortens s to n runes, appending "..." when it was cut
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// SortByPriority orders todos by priority, oldest first within a priority
func SortByPriority(todos []*Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		pi, pj := todos[i].Priority.Rank(), todos[j].Priority.Rank()
		if pi != pj {
			return pi < pj
		}
		return todos[i].CreatedAt.Before(todos[j].CreatedAt)
	})
}

// CompletionStats summarizes todos by status
type CompletionStats struct {
	Total      int
	Pending    int
	InProgress int
	Completed  int
	Failed     int
}

// CompletionRate returns the completed share in percent
func (s CompletionStats) CompletionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total) * 100
}
