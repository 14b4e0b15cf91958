package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackNotifier_Send(t *testing.T) {
	var got SlackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := NewSlackNotifier(server.URL).Send(context.Background(), Notification{
		Title:    "Schedule nightly finished",
		Message:  "3 succeeded, 0 failed",
		Type:     NotifySuccess,
		Schedule: "nightly",
	})
	require.NoError(t, err)

	assert.Equal(t, "Schedule nightly finished", got.Text)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "good", got.Attachments[0].Color)
	assert.Equal(t, "nightly", got.Attachments[0].Title)
}

func TestSlackNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	err := NewSlackNotifier(server.URL).Send(context.Background(), Notification{Title: "x"})
	assert.ErrorContains(t, err, "403")
}

func TestSlackNotifier_Disabled(t *testing.T) {
	assert.NoError(t, NewSlackNotifier("").Send(context.Background(), Notification{Title: "x"}))
}

func TestSlackColor(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotifySuccess, "good"},
		{NotifyWarning, "warning"},
		{NotifyError, "danger"},
		{NotifyInfo, "#439FE0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SlackColor(tt.typ))
	}
}

type recordingNotifier struct {
	sent []Notification
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, n Notification) error {
	r.sent = append(r.sent, n)
	return r.err
}

func TestMultiNotifier(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{err: errors.New("boom")}
	c := &recordingNotifier{}

	err := NewMultiNotifier(a, b, c).Send(context.Background(), Notification{Title: "hi"})
	assert.ErrorContains(t, err, "boom")
	assert.Len(t, a.sent, 1)
	assert.Len(t, c.sent, 1, "a failing notifier must not stop the others")
}

func TestNew(t *testing.T) {
	assert.IsType(t, NoopNotifier{}, New(false, ""))
	assert.IsType(t, &SlackNotifier{}, New(false, "http://hook"))
	assert.IsType(t, &DesktopNotifier{}, New(true, ""))
	assert.IsType(t, &MultiNotifier{}, New(true, "http://hook"))
}

func TestDesktopNotifier(t *testing.T) {
	var calls [][]string
	d := NewDesktopNotifier(true)
	d.command = func(_ context.Context, name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		return nil
	}
	require.NoError(t, d.Send(context.Background(), Notification{Title: "t", Message: "m"}))

	off := NewDesktopNotifier(false)
	off.command = d.command
	require.NoError(t, off.Send(context.Background(), Notification{Title: "t"}))
	assert.LessOrEqual(t, len(calls), 1)
}

func TestDesktopCommand(t *testing.T) {
	name, args := desktopCommand("darwin", Notification{Title: `say "hi"`, Message: "ok"})
	assert.Equal(t, "osascript", name)
	assert.Equal(t, `display notification "ok" with title "say \"hi\""`, args[1])

	name, args = desktopCommand("linux", Notification{Title: "t", Message: "m", Type: NotifyError})
	assert.Equal(t, "notify-send", name)
	assert.Equal(t, []string{"--icon", "dialog-error", "t", "m"}, args)

	name, _ = desktopCommand("plan9", Notification{})
	assert.Empty(t, name)
}

func TestTypeForCounts(t *testing.T) {
	assert.Equal(t, NotifySuccess, TypeForCounts(3, 0))
	assert.Equal(t, NotifyError, TypeForCounts(0, 2))
	assert.Equal(t, NotifyWarning, TypeForCounts(1, 1))
}
