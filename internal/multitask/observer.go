package multitask

import (
	"sync"
	"time"

	"github.com/hochfrequenz/twodo/internal/domain"
)

// Observer collects per-todo outcomes across batches
type Observer struct {
	outcomes []outcome
	mu       sync.RWMutex
}

type outcome struct {
	TodoID     string
	Model      string
	Status     domain.TodoStatus
	Duration   time.Duration
	FinishedAt time.Time
}

// Metrics holds aggregated metrics
type Metrics struct {
	TotalCompleted   int
	TotalFailed      int
	TotalInterrupted int
	AvgDuration      time.Duration
	ByModel          map[string]int
}

// NewObserver creates an empty Observer
func NewObserver() *Observer {
	return &Observer{}
}

// Record stores the outcome of one todo
func (o *Observer) Record(todoID, model string, status domain.TodoStatus, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.outcomes = append(o.outcomes, outcome{
		TodoID:     todoID,
		Model:      model,
		Status:     status,
		Duration:   d,
		FinishedAt: time.Now(),
	})
}

// Metrics returns aggregated metrics over everything recorded so far
func (o *Observer) Metrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	m := Metrics{ByModel: make(map[string]int)}
	var total time.Duration
	var timed int

	for _, oc := range o.outcomes {
		switch oc.Status {
		case domain.StatusCompleted:
			m.TotalCompleted++
			m.ByModel[oc.Model]++
			total += oc.Duration
			timed++
		case domain.StatusFailed:
			m.TotalFailed++
		case domain.StatusPending:
			m.TotalInterrupted++
		}
	}

	if timed > 0 {
		m.AvgDuration = total / time.Duration(timed)
	}
	return m
}

// Recent returns the IDs of todos finished within the last duration
func (o *Observer) Recent(since time.Duration) []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	cutoff := time.Now().Add(-since)
	var ids []string
	for _, oc := range o.outcomes {
		if oc.FinishedAt.After(cutoff) {
			ids = append(ids, oc.TodoID)
		}
	}
	return ids
}

// Stale returns todos stuck in progress for longer than threshold,
// typically left behind by a crashed run
func Stale(todos []*domain.Todo, threshold time.Duration, now time.Time) []*domain.Todo {
	var stale []*domain.Todo
	for _, td := range todos {
		if td.Status == domain.StatusInProgress && now.Sub(td.UpdatedAt) > threshold {
			stale = append(stale, td)
		}
	}
	return stale
}
