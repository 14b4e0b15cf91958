// Package notify delivers schedule run summaries to the desktop and Slack.
package notify

import (
	"context"
	"errors"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title    string
	Message  string
	Type     NotificationType
	Schedule string // Optional schedule reference
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send delivers to every notifier and joins their errors
func (m *MultiNotifier) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NoopNotifier does nothing
type NoopNotifier struct{}

func (NoopNotifier) Send(context.Context, Notification) error { return nil }

// New builds a notifier from the configured channels. With none enabled it
// returns a NoopNotifier.
func New(desktop bool, slackWebhook string) Notifier {
	var ns []Notifier
	if desktop {
		ns = append(ns, NewDesktopNotifier(true))
	}
	if slackWebhook != "" {
		ns = append(ns, NewSlackNotifier(slackWebhook))
	}
	switch len(ns) {
	case 0:
		return NoopNotifier{}
	case 1:
		return ns[0]
	}
	return NewMultiNotifier(ns...)
}

// TypeForCounts picks a notification type from a run's task outcomes
func TypeForCounts(succeeded, failed int) NotificationType {
	switch {
	case failed == 0:
		return NotifySuccess
	case succeeded == 0:
		return NotifyError
	default:
		return NotifyWarning
	}
}
