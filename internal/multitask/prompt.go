package multitask

import (
	"fmt"

	"github.com/hochfrequenz/twodo/internal/domain"
	"github.com/hochfrequenz/twodo/internal/prompts"
)

const (
	subTaskNote = `NOTE: This is a sub-task that is part of a larger project.
Focus on this specific component while keeping the broader context in mind.
`
	parentNoteFmt = `NOTE: This is a parent task with %d sub-tasks.
Provide a high-level approach that can guide the individual sub-tasks.
`
	subTaskClosing = "Please provide a focused solution for this specific sub-task."
	defaultClosing = "Please provide a detailed and actionable response."
)

var typeInstructions = map[domain.TodoType]string{
	domain.TypeCode:  "This is a coding task. Please provide a complete solution with code examples and explanations.\n",
	domain.TypeText:  "This is a text-based task. Please provide a comprehensive written response.\n",
	domain.TypeImage: "This relates to image processing or analysis.\n",
}

// PromptData fills the todo template's variables for a todo
func PromptData(todo *domain.Todo) prompts.TodoData {
	d := prompts.TodoData{
		Title:        todo.Title,
		Description:  todo.Description,
		Instructions: typeInstructions[todo.Type],
		Content:      todo.Content,
		Priority:     string(todo.Priority),
		Closing:      defaultClosing,
	}
	switch {
	case todo.IsSubTask():
		d.Note = subTaskNote
		d.Closing = subTaskClosing
	case todo.IsParent():
		d.Note = fmt.Sprintf(parentNoteFmt, len(todo.SubTaskIDs))
	}
	return d
}

// BuildPrompt renders the built-in todo template
func BuildPrompt(todo *domain.Todo) (string, error) {
	return prompts.Embedded().BuildTodoPrompt(PromptData(todo))
}
