package main

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/hochfrequenz/twodo/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	criticalPrioStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("196"))

	highPrioStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))

	normalPrioStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	lowPrioStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	responseStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

func styleStatus(s domain.TodoStatus) string {
	switch s {
	case domain.StatusCompleted:
		return successStyle.Render(string(s))
	case domain.StatusInProgress:
		return warningStyle.Render(string(s))
	case domain.StatusFailed:
		return errorStyle.Render(string(s))
	}
	return mutedStyle.Render(string(s))
}

func stylePriority(p domain.Priority) string {
	switch p {
	case domain.PriorityCritical:
		return criticalPrioStyle.Render(string(p))
	case domain.PriorityHigh:
		return highPrioStyle.Render(string(p))
	case domain.PriorityLow:
		return lowPrioStyle.Render(string(p))
	}
	return normalPrioStyle.Render(string(p))
}

// relTime renders t relative to now, or fallback for the zero time
func relTime(t time.Time, fallback string) string {
	if t.IsZero() {
		return fallback
	}
	return humanize.Time(t)
}
