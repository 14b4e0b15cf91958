package multitask

import (
	"fmt"
	"strings"

	"github.com/hochfrequenz/twodo/internal/domain"
)

// FilterByType keeps todos of the given type
func FilterByType(todos []*domain.Todo, t domain.TodoType) []*domain.Todo {
	var out []*domain.Todo
	for _, td := range todos {
		if td.Type == t {
			out = append(out, td)
		}
	}
	return out
}

// FilterByPriority keeps todos of the given priority
func FilterByPriority(todos []*domain.Todo, p domain.Priority) []*domain.Todo {
	var out []*domain.Todo
	for _, td := range todos {
		if td.Priority == p {
			out = append(out, td)
		}
	}
	return out
}

// Ready returns up to limit pending todos, most urgent first.
// A limit of zero or less means no limit.
func Ready(todos []*domain.Todo, limit int) []*domain.Todo {
	var ready []*domain.Todo
	for _, td := range todos {
		if td.Status == domain.StatusPending {
			ready = append(ready, td)
		}
	}
	domain.SortByPriority(ready)
	if limit > 0 && len(ready) > limit {
		ready = ready[:limit]
	}
	return ready
}

// ApplyFilter narrows todos by an expression such as "priority:high",
// "type:code" or "all"
func ApplyFilter(todos []*domain.Todo, expr string) ([]*domain.Todo, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || expr == "all" || expr == "pending" {
		return todos, nil
	}

	key, value, ok := strings.Cut(expr, ":")
	if !ok {
		return nil, fmt.Errorf("invalid filter %q (want key:value)", expr)
	}
	switch key {
	case "priority":
		p, err := domain.ParsePriority(value)
		if err != nil {
			return nil, err
		}
		return FilterByPriority(todos, p), nil
	case "type":
		t, err := domain.ParseType(value)
		if err != nil {
			return nil, err
		}
		return FilterByType(todos, t), nil
	}
	return nil, fmt.Errorf("unknown filter key %q", key)
}
