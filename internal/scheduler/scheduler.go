// Package scheduler fires schedules on their cron expressions and runs
// their task lists.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hochfrequenz/twodo/internal/domain"
	"github.com/hochfrequenz/twodo/internal/logging"
	"github.com/hochfrequenz/twodo/internal/notify"
	"github.com/hochfrequenz/twodo/internal/schedule"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrAlreadyRunning is returned when a schedule is triggered while a
// previous firing is still executing
var ErrAlreadyRunning = errors.New("schedule is already running")

const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

// TaskRunner executes one task of a schedule; *Executor implements it
type TaskRunner interface {
	Execute(ctx context.Context, spec schedule.TaskSpec, scheduleName string) TaskResult
}

// RunRecorder keeps a history of schedule runs; *todostore.Store
// implements it
type RunRecorder interface {
	RecordRun(ctx context.Context, run *domain.ScheduleRun) error
}

// RunReport summarizes one firing of a schedule
type RunReport struct {
	Schedule  string
	Trigger   string
	Started   time.Time
	Finished  time.Time
	Results   []TaskResult
	Succeeded int
	Failed    int
}

// NextRun pairs a schedule with its next firing
type NextRun struct {
	Name string
	At   time.Time
}

// Status describes the scheduler at a point in time
type Status struct {
	Running       bool
	ScheduleCount int
	Enabled       int
	Next          []NextRun
}

// Scheduler owns the registry of schedules and the cron driver
type Scheduler struct {
	store    *schedule.FileStore
	tasks    TaskRunner
	runs     RunRecorder
	notifier notify.Notifier
	logger   zerolog.Logger
	now      func() time.Time

	watch         bool
	watchDebounce time.Duration

	mu        sync.Mutex
	schedules map[string]*schedule.Schedule
	entries   map[string]cron.EntryID
	running   map[string]bool
	cron      *cron.Cron
	watcher   *schedule.Watcher
	started   bool
	inflight  sync.WaitGroup
	baseCtx   context.Context
	cancel    context.CancelFunc
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithRunRecorder stores a row per run
func WithRunRecorder(r RunRecorder) Option {
	return func(s *Scheduler) { s.runs = r }
}

// WithNotifier sends a summary after every run
func WithNotifier(n notify.Notifier) Option {
	return func(s *Scheduler) { s.notifier = n }
}

// WithWatch reloads schedules when their files change while running
func WithWatch(debounce time.Duration) Option {
	return func(s *Scheduler) {
		s.watch = true
		s.watchDebounce = debounce
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New loads every schedule from store. Files that fail to parse or
// validate are logged and skipped.
func New(store *schedule.FileStore, tasks TaskRunner, logger zerolog.Logger, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		store:     store,
		tasks:     tasks,
		notifier:  notify.NoopNotifier{},
		logger:    logger.With().Str("component", "scheduler").Logger(),
		now:       time.Now,
		schedules: make(map[string]*schedule.Schedule),
		entries:   make(map[string]cron.EntryID),
		running:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	loaded, err := store.LoadAll()
	if err != nil {
		s.logger.Warn().Err(err).Msg("some schedule files could not be read")
	}
	for i := range loaded {
		sc := loaded[i]
		if errs := sc.Validate(); len(errs) > 0 {
			s.logger.Warn().Err(errors.Join(errs...)).Str("schedule", sc.Name).Msg("skipping invalid schedule")
			continue
		}
		s.schedules[sc.Name] = &sc
	}
	s.logger.Debug().Int("count", len(s.schedules)).Msg("schedules loaded")
	return s, nil
}

// Add validates, persists and registers a schedule, replacing any schedule
// with the same name. All validation problems are returned joined.
func (s *Scheduler) Add(sc schedule.Schedule) error {
	if errs := sc.Validate(); len(errs) > 0 {
		return errors.Join(errs...)
	}
	if sc.Enabled && sc.NextRun.IsZero() {
		sc.NextRun = sc.Next(s.now())
	}
	if err := s.store.Save(sc); err != nil {
		return fmt.Errorf("saving schedule %q: %w", sc.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[sc.Name] = &sc
	if s.started {
		s.registerLocked(&sc)
	}
	s.logger.Info().Str("schedule", sc.Name).Str("cron", sc.Cron).Msg("schedule added")
	return nil
}

// Remove unregisters a schedule and deletes its file
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	if _, ok := s.schedules[name]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", schedule.ErrNotFound, name)
	}
	s.unregisterLocked(name)
	delete(s.schedules, name)
	s.mu.Unlock()

	if err := s.store.Delete(name); err != nil && !errors.Is(err, schedule.ErrNotFound) {
		return fmt.Errorf("removing schedule file: %w", err)
	}
	s.logger.Info().Str("schedule", name).Msg("schedule removed")
	return nil
}

// Get returns a copy of one schedule
func (s *Scheduler) Get(name string) (schedule.Schedule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schedules[name]
	if !ok {
		return schedule.Schedule{}, false
	}
	return *sc, true
}

// List returns copies of all schedules sorted by name
func (s *Scheduler) List() []schedule.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]schedule.Schedule, 0, len(s.schedules))
	for _, sc := range s.schedules {
		out = append(out, *sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Trigger runs a schedule now, outside its cron expression. Disabled
// schedules can be triggered. While the scheduler is started, Stop cancels
// the run and waits for it.
func (s *Scheduler) Trigger(ctx context.Context, name string) (*RunReport, error) {
	s.mu.Lock()
	if s.started {
		s.inflight.Add(1)
		defer s.inflight.Done()
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		defer context.AfterFunc(s.baseCtx, cancel)()
	}
	s.mu.Unlock()

	s.logger.Info().Str("schedule", name).Msg("manual trigger")
	return s.run(ctx, name, TriggerManual)
}

// Start registers every enabled schedule with the cron driver. Calling it
// while running logs a warning and does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.logger.Warn().Msg("scheduler is already running")
		return nil
	}

	cl := logging.CronLogger{L: s.logger}
	s.cron = cron.New(
		cron.WithParser(schedule.Parser),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		cron.WithLogger(cl),
	)
	s.baseCtx, s.cancel = context.WithCancel(ctx)

	for _, sc := range s.schedules {
		s.registerLocked(sc)
	}

	if s.watch {
		w, err := schedule.NewWatcher(s.store.Dir(), s.reload, s.logger)
		if err != nil {
			s.cancel()
			return fmt.Errorf("watching schedules: %w", err)
		}
		if s.watchDebounce > 0 {
			w.SetDebounce(s.watchDebounce)
		}
		w.Start(s.baseCtx)
		s.watcher = w
	}

	s.cron.Start()
	s.started = true

	ev := s.logger.Info().Int("schedules", len(s.schedules))
	for _, sc := range s.schedules {
		if sc.Enabled {
			ev = ev.Time(sc.Name, sc.NextRun)
		}
	}
	ev.Msg("scheduler started")
	return nil
}

// Stop halts the cron driver, cancels in-flight runs and waits for them to
// wind down. Calling it while stopped logs a warning and does nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		s.logger.Warn().Msg("scheduler is not running")
		return
	}
	s.started = false
	c, cancel, w := s.cron, s.cancel, s.watcher
	s.cron, s.watcher = nil, nil
	s.entries = make(map[string]cron.EntryID)
	s.mu.Unlock()

	if w != nil {
		w.Stop()
	}
	cancel()
	<-c.Stop().Done()
	s.inflight.Wait()
	s.logger.Info().Msg("scheduler stopped")
}

// Running reports whether the cron driver is active
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Status reports registry counts and upcoming firings, soonest first
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Running: s.started, ScheduleCount: len(s.schedules)}
	for _, sc := range s.schedules {
		if !sc.Enabled {
			continue
		}
		st.Enabled++
		if !sc.NextRun.IsZero() {
			st.Next = append(st.Next, NextRun{Name: sc.Name, At: sc.NextRun})
		}
	}
	sort.Slice(st.Next, func(i, j int) bool { return st.Next[i].At.Before(st.Next[j].At) })
	return st
}

func (s *Scheduler) registerLocked(sc *schedule.Schedule) {
	s.unregisterLocked(sc.Name)
	if !sc.Enabled {
		sc.NextRun = time.Time{}
		return
	}

	name := sc.Name
	id, err := s.cron.AddFunc(sc.Cron, func() { s.fire(name) })
	if err != nil {
		s.logger.Error().Err(err).Str("schedule", name).Msg("cannot register schedule")
		return
	}
	s.entries[name] = id
	sc.NextRun = sc.Next(s.now())
}

func (s *Scheduler) unregisterLocked(name string) {
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
}

func (s *Scheduler) fire(name string) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	ctx := s.baseCtx
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	if _, err := s.run(ctx, name, TriggerCron); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			s.logger.Info().Str("schedule", name).Msg("previous run still in progress, skipping")
			return
		}
		s.logger.Error().Err(err).Str("schedule", name).Msg("scheduled run failed")
	}
}

// run executes a schedule's tasks strictly in order. A failing task does
// not stop the ones after it.
func (s *Scheduler) run(ctx context.Context, name, trigger string) (*RunReport, error) {
	s.mu.Lock()
	sc, ok := s.schedules[name]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", schedule.ErrNotFound, name)
	}
	if s.running[name] {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, name)
	}
	s.running[name] = true
	start := s.now()
	sc.LastRun = start
	sc.RunCount++
	tasks := append([]schedule.TaskSpec(nil), sc.Tasks...)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, name)
		s.mu.Unlock()
	}()

	log := s.logger.With().Str("schedule", name).Str("trigger", trigger).Logger()
	log.Info().Int("tasks", len(tasks)).Msg("executing schedule")

	rep := &RunReport{Schedule: name, Trigger: trigger, Started: start}
	for i, t := range tasks {
		log.Debug().Int("task", i+1).Str("type", string(t.Type)).Msg("executing task")
		res := s.tasks.Execute(ctx, t, name)
		rep.Results = append(rep.Results, res)
		if res.OK() {
			rep.Succeeded++
			log.Info().Int("task", i+1).Str("type", string(t.Type)).Msg(res.Message)
		} else {
			rep.Failed++
			log.Warn().Int("task", i+1).Str("type", string(t.Type)).Msg(res.Message)
		}
	}
	rep.Finished = s.now()

	s.persistAfterRun(sc, log)
	s.recordRun(rep, log)
	s.sendSummary(rep, log)

	log.Info().
		Int("succeeded", rep.Succeeded).
		Int("failed", rep.Failed).
		Dur("took", rep.Finished.Sub(rep.Started)).
		Msg("schedule finished")
	return rep, nil
}

// persistAfterRun saves the runtime fields unless the schedule was removed
// or replaced while it ran
func (s *Scheduler) persistAfterRun(sc *schedule.Schedule, log zerolog.Logger) {
	s.mu.Lock()
	if s.schedules[sc.Name] != sc {
		s.mu.Unlock()
		return
	}
	if sc.Enabled {
		sc.NextRun = sc.Next(s.now())
	}
	snapshot := *sc
	s.mu.Unlock()

	if err := s.store.Save(snapshot); err != nil {
		log.Error().Err(err).Msg("failed to persist run state")
	}
}

func (s *Scheduler) recordRun(rep *RunReport, log zerolog.Logger) {
	if s.runs == nil {
		return
	}
	run := &domain.ScheduleRun{
		ID:         uuid.NewString(),
		Schedule:   rep.Schedule,
		Trigger:    rep.Trigger,
		StartedAt:  rep.Started,
		FinishedAt: rep.Finished,
		Succeeded:  rep.Succeeded,
		Failed:     rep.Failed,
	}
	if err := s.runs.RecordRun(context.Background(), run); err != nil {
		log.Warn().Err(err).Msg("failed to record run")
	}
}

func (s *Scheduler) sendSummary(rep *RunReport, log zerolog.Logger) {
	msg := fmt.Sprintf("All %d tasks completed successfully", len(rep.Results))
	if rep.Failed > 0 {
		msg = fmt.Sprintf("%d succeeded, %d failed", rep.Succeeded, rep.Failed)
	}
	n := notify.Notification{
		Title:    "Schedule " + rep.Schedule + " finished",
		Message:  msg,
		Type:     notify.TypeForCounts(rep.Succeeded, rep.Failed),
		Schedule: rep.Schedule,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.notifier.Send(ctx, n); err != nil {
		log.Warn().Err(err).Msg("failed to send run notification")
	}
}

// reload re-reads the schedules directory after an edit. Valid schedules
// replace their in-memory definition; files that disappeared remove their
// schedule.
func (s *Scheduler) reload(changed []string) {
	loaded, err := s.store.LoadAll()
	if err != nil {
		s.logger.Warn().Err(err).Msg("some schedule files could not be read")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}

	seen := make(map[string]bool, len(loaded))
	for i := range loaded {
		next := loaded[i]
		seen[next.Name] = true
		if errs := next.Validate(); len(errs) > 0 {
			s.logger.Warn().Err(errors.Join(errs...)).Str("schedule", next.Name).Msg("ignoring invalid schedule edit")
			continue
		}

		cur, ok := s.schedules[next.Name]
		if !ok {
			sc := next
			s.schedules[sc.Name] = &sc
			s.registerLocked(&sc)
			s.logger.Info().Str("schedule", sc.Name).Msg("schedule loaded from disk")
			continue
		}

		reschedule := cur.Cron != next.Cron || cur.Enabled != next.Enabled
		cur.Description = next.Description
		cur.Cron = next.Cron
		cur.Enabled = next.Enabled
		cur.Tasks = next.Tasks
		if reschedule {
			s.registerLocked(cur)
			s.logger.Info().Str("schedule", cur.Name).Msg("schedule rescheduled")
		}
	}

	// A parse failure is not a deletion.
	if err != nil {
		return
	}
	for name := range s.schedules {
		if !seen[name] {
			s.unregisterLocked(name)
			delete(s.schedules, name)
			s.logger.Info().Str("schedule", name).Msg("schedule file removed")
		}
	}
	s.logger.Debug().Int("files", len(changed)).Msg("schedules reloaded")
}
