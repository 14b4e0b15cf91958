package domain

import "time"

// ScheduleRun records one execution of a schedule's task list
type ScheduleRun struct {
	ID         string
	Schedule   string
	Trigger    string // "cron" or "manual"
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
}

// Duration returns how long the run took
func (r *ScheduleRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
