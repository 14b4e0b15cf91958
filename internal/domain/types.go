package domain

import "fmt"

// TodoStatus represents the lifecycle state of a todo
type TodoStatus string

const (
	StatusPending    TodoStatus = "pending"
	StatusInProgress TodoStatus = "in_progress"
	StatusCompleted  TodoStatus = "completed"
	StatusFailed     TodoStatus = "failed"
)

// TodoType classifies the kind of work a todo describes
type TodoType string

const (
	TypeCode    TodoType = "code"
	TypeText    TodoType = "text"
	TypeImage   TodoType = "image"
	TypeGeneral TodoType = "general"
)

// Priority represents todo priority
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParseStatus validates a status string
func ParseStatus(s string) (TodoStatus, error) {
	switch st := TodoStatus(s); st {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("invalid status %q", s)
}

// ParseType validates a todo type string, defaulting empty input to general
func ParseType(s string) (TodoType, error) {
	switch t := TodoType(s); t {
	case "":
		return TypeGeneral, nil
	case TypeCode, TypeText, TypeImage, TypeGeneral:
		return t, nil
	}
	return "", fmt.Errorf("invalid todo type %q (want code, text, image or general)", s)
}

// ParsePriority validates a priority string, defaulting empty input to medium
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p, nil
	}
	return "", fmt.Errorf("invalid priority %q (want low, medium, high or critical)", s)
}

// Rank orders priorities so that lower values run first
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	default:
		return 2
	}
}
