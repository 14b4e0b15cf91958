package schedule

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCron(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 22 * * *", false},
		{"0 12 * * 1-5", false},
		{"*/5 * * * *", false},
		{"not-a-cron", true},
		{"* * * * * *", true},
		{"", true},
	}

	for _, tt := range tests {
		_, err := ParseCron(tt.expr)
		assert.Equal(t, tt.wantErr, err != nil, "ParseCron(%q) error = %v", tt.expr, err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Schedule {
		return Schedule{
			Name:    "demo",
			Cron:    "*/5 * * * *",
			Enabled: true,
			Tasks:   []TaskSpec{{Type: TaskAddTodo, Config: map[string]any{"content": "x"}}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Schedule)
		want   []error
	}{
		{"valid", func(*Schedule) {}, nil},
		{"empty name", func(s *Schedule) { s.Name = " " }, []error{ErrNameRequired}},
		{"bad cron", func(s *Schedule) { s.Cron = "not-a-cron" }, []error{ErrInvalidCron}},
		{"no tasks", func(s *Schedule) { s.Tasks = nil }, []error{ErrNoTasks}},
		{"bad task type", func(s *Schedule) { s.Tasks[0].Type = "not_a_real_type" }, []error{ErrTaskType}},
		{"everything wrong", func(s *Schedule) {
			s.Name = ""
			s.Cron = "nope"
			s.Tasks = nil
		}, []error{ErrNameRequired, ErrInvalidCron, ErrNoTasks}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			errs := s.Validate()
			require.Len(t, errs, len(tt.want))
			for i, want := range tt.want {
				assert.ErrorIs(t, errs[i], want)
			}
		})
	}
}

func TestNext(t *testing.T) {
	s := Schedule{Cron: "0 22 * * *"}
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 1, 22, 0, 0, 0, time.UTC), s.Next(base))

	s.Cron = "bogus"
	assert.True(t, s.Next(base).IsZero())
}

func TestTaskSpecAccessors(t *testing.T) {
	spec := TaskSpec{Type: TaskMultitask, Config: map[string]any{
		"filter":       "priority:high",
		"max_parallel": 2,
		"limit":        "7",
		"ratio":        3.0,
		"hierarchical": true,
		"create_todos": "false",
	}}

	assert.Equal(t, "priority:high", spec.String("filter", "all"))
	assert.Equal(t, "all", spec.String("missing", "all"))
	assert.Equal(t, "2", spec.String("max_parallel", ""))
	assert.Equal(t, 2, spec.Int("max_parallel", 3))
	assert.Equal(t, 7, spec.Int("limit", 0))
	assert.Equal(t, 3, spec.Int("ratio", 0))
	assert.Equal(t, 3, spec.Int("missing", 3))
	assert.True(t, spec.Bool("hierarchical", false))
	assert.False(t, spec.Bool("create_todos", true))
	assert.True(t, spec.Bool("missing", true))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "nightly-sync", Slug("Nightly Sync"))
	assert.Equal(t, "a-b", Slug("  a // b  "))
	assert.Equal(t, "daily_report", Slug("daily_report"))
	assert.Equal(t, "", Slug("!!!"))
}

func TestFileStore_RoundTrip(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "schedules"))
	require.NoError(t, err)

	last := time.Date(2024, 5, 1, 22, 0, 0, 0, time.UTC)
	s := Schedule{
		Name:     "Nightly Sync",
		Cron:     "0 22 * * *",
		Enabled:  true,
		LastRun:  last,
		RunCount: 3,
		Tasks: []TaskSpec{
			{Type: TaskGitHubSync, Config: map[string]any{"create_todos": true}},
			{Type: TaskMultitask, Config: map[string]any{"max_parallel": 2}},
		},
	}
	require.NoError(t, fs.Save(s))
	assert.FileExists(t, filepath.Join(fs.Dir(), "nightly-sync.yaml"))

	got, err := fs.Load("Nightly Sync")
	require.NoError(t, err)
	assert.Equal(t, s.Name, got.Name)
	assert.Equal(t, 3, got.RunCount)
	assert.True(t, last.Equal(got.LastRun))
	assert.True(t, got.NextRun.IsZero())
	require.Len(t, got.Tasks, 2)
	assert.Equal(t, 2, got.Tasks[1].Int("max_parallel", 0))

	entries, err := os.ReadDir(fs.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStore_LoadAllSkipsBadFiles(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.Save(Schedule{Name: "b", Cron: "* * * * *", Tasks: []TaskSpec{{Type: TaskAIPrompt}}}))
	require.NoError(t, fs.Save(Schedule{Name: "a", Cron: "* * * * *", Tasks: []TaskSpec{{Type: TaskAIPrompt}}}))
	require.NoError(t, os.WriteFile(filepath.Join(fs.Dir(), "broken.yaml"), []byte("name: [unterminated"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(fs.Dir(), "notes.txt"), []byte("ignored"), 0o644))

	all, err := fs.LoadAll()
	assert.Error(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, "b", all[1].Name)
}

func TestFileStore_Delete(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fs.Save(Schedule{Name: "gone", Cron: "* * * * *"}))

	require.NoError(t, fs.Delete("gone"))
	assert.True(t, errors.Is(fs.Delete("gone"), ErrNotFound))

	_, err = fs.Load("gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_SlugCollision(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fs.Save(Schedule{Name: "Nightly Sync", Cron: "0 22 * * *"}))

	err = fs.Save(Schedule{Name: "nightly-sync", Cron: "0 3 * * *"})
	assert.ErrorIs(t, err, ErrNameTaken)

	_, err = fs.Load("nightly-sync")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, fs.Delete("nightly-sync"), ErrNotFound)

	kept, err := fs.Load("Nightly Sync")
	require.NoError(t, err)
	assert.Equal(t, "0 22 * * *", kept.Cron)

	// saving the owner again is an update, not a collision
	kept.Cron = "0 23 * * *"
	require.NoError(t, fs.Save(kept))
}

func TestWatcher_ReportsScheduleEdits(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	var mu sync.Mutex
	var seen []string
	w, err := NewWatcher(fs.Dir(), func(changed []string) {
		mu.Lock()
		seen = append(seen, changed...)
		mu.Unlock()
	}, zerolog.Nop())
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)
	w.Start(t.Context())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(fs.Dir(), "ignored.txt"), []byte("x"), 0o644))
	require.NoError(t, fs.Save(Schedule{Name: "watched", Cron: "* * * * *"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, f := range seen {
			if filepath.Base(f) == "watched.yaml" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, f := range seen {
		assert.True(t, IsScheduleFile(f), f)
	}
}
