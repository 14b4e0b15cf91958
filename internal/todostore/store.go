package todostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hochfrequenz/twodo/internal/domain"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a todo does not exist
var ErrNotFound = errors.New("todo not found")

// Store provides SQLite-backed todo persistence.
// All writes are per-record statements on a single connection, so concurrent
// workers never overwrite each other's todos.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) the database at dbPath. ":memory:" is supported.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

const todoColumns = `id, title, description, todo_type, priority, status, content, assigned_model, result, parent_id, created_at, updated_at`

// Add inserts a new todo
func (s *Store) Add(ctx context.Context, todo *domain.Todo) error {
	if todo.ID == "" {
		todo.ID = domain.NewID()
	}
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = time.Now()
	}
	if todo.UpdatedAt.IsZero() {
		todo.UpdatedAt = todo.CreatedAt
	}
	if todo.Status == "" {
		todo.Status = domain.StatusPending
	}
	return insertTodo(ctx, s.db, todo)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTodo(ctx context.Context, db execer, todo *domain.Todo) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO todos (`+todoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		todo.ID,
		todo.Title,
		todo.Description,
		string(todo.Type),
		string(todo.Priority),
		string(todo.Status),
		todo.Content,
		todo.AssignedModel,
		todo.Result,
		nullString(todo.ParentID),
		todo.CreatedAt,
		todo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting todo %s: %w", todo.ID, err)
	}
	return nil
}

// Get retrieves a todo by ID, including its sub-task IDs
func (s *Store) Get(ctx context.Context, id string) (*domain.Todo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = ?`, id)
	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	children, err := s.childIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	todo.SubTaskIDs = children[id]
	return todo, nil
}

// ListOptions specifies filters for listing todos
type ListOptions struct {
	Status   domain.TodoStatus
	Type     domain.TodoType
	Priority domain.Priority
	ParentID string
	TopLevel bool
	Limit    int
}

// List returns todos matching the given options in creation order
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*domain.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE 1=1`
	var args []any

	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, string(opts.Status))
	}
	if opts.Type != "" {
		query += " AND todo_type = ?"
		args = append(args, string(opts.Type))
	}
	if opts.Priority != "" {
		query += " AND priority = ?"
		args = append(args, string(opts.Priority))
	}
	if opts.ParentID != "" {
		query += " AND parent_id = ?"
		args = append(args, opts.ParentID)
	}
	if opts.TopLevel {
		query += " AND parent_id IS NULL"
	}

	query += " ORDER BY created_at, rowid"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var todos []*domain.Todo
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		todos = append(todos, todo)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The single connection is free again once rows are closed.
	children, err := s.childIDs(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, todo := range todos {
		todo.SubTaskIDs = children[todo.ID]
	}
	return todos, nil
}

// ListPending returns all pending todos
func (s *Store) ListPending(ctx context.Context) ([]*domain.Todo, error) {
	return s.List(ctx, ListOptions{Status: domain.StatusPending})
}

// StatusUpdate carries the optional fields written alongside a status change.
// Empty values leave the stored value unchanged.
type StatusUpdate struct {
	Result        string
	AssignedModel string
}

// UpdateStatus sets a todo's status. Unknown IDs are ignored.
func (s *Store) UpdateStatus(ctx context.Context, id string, status domain.TodoStatus, upd StatusUpdate) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE todos SET
			status = ?,
			result = COALESCE(NULLIF(?, ''), result),
			assigned_model = COALESCE(NULLIF(?, ''), assigned_model),
			updated_at = ?
		WHERE id = ?
	`, string(status), upd.Result, upd.AssignedModel, time.Now(), id)
	if err != nil {
		return fmt.Errorf("updating todo %s: %w", id, err)
	}
	return nil
}

// Delete removes a todo and its sub-tasks. It reports whether anything was deleted.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateChildren inserts sub-tasks for parentID in one transaction and
// returns their IDs. Children inherit the parent's type and priority.
func (s *Store) CreateChildren(ctx context.Context, parentID string, specs []domain.SubTaskSpec) ([]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	parent, err := s.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	base := time.Now()
	ids := make([]string, 0, len(specs))
	for i, spec := range specs {
		child := domain.NewTodo(spec.Title, spec.Description, parent.Type, parent.Priority,
			"Part of: "+parent.Title)
		child.ParentID = parent.ID
		child.CreatedAt = base.Add(time.Duration(i) * time.Microsecond)
		child.UpdatedAt = child.CreatedAt
		if err := insertTodo(ctx, tx, child); err != nil {
			return nil, err
		}
		ids = append(ids, child.ID)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE todos SET updated_at = ? WHERE id = ?`, time.Now(), parentID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Stats returns todo counts by status
func (s *Store) Stats(ctx context.Context) (domain.CompletionStats, error) {
	var stats domain.CompletionStats

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM todos GROUP BY status`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return stats, err
		}
		stats.Total += n
		switch domain.TodoStatus(status) {
		case domain.StatusPending:
			stats.Pending = n
		case domain.StatusInProgress:
			stats.InProgress = n
		case domain.StatusCompleted:
			stats.Completed = n
		case domain.StatusFailed:
			stats.Failed = n
		}
	}
	return stats, rows.Err()
}

// RecordRun stores the outcome of a schedule run
func (s *Store) RecordRun(ctx context.Context, run *domain.ScheduleRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedule_runs (id, schedule, trigger_kind, started_at, finished_at, succeeded, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Schedule, run.Trigger, run.StartedAt, run.FinishedAt, run.Succeeded, run.Failed)
	return err
}

// ListRuns returns the most recent runs of a schedule, newest first.
// An empty schedule lists runs of every schedule.
func (s *Store) ListRuns(ctx context.Context, schedule string, limit int) ([]*domain.ScheduleRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, schedule, trigger_kind, started_at, finished_at, succeeded, failed FROM schedule_runs`
	var args []any
	if schedule != "" {
		query += " WHERE schedule = ?"
		args = append(args, schedule)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.ScheduleRun
	for rows.Next() {
		var r domain.ScheduleRun
		if err := rows.Scan(&r.ID, &r.Schedule, &r.Trigger, &r.StartedAt, &r.FinishedAt, &r.Succeeded, &r.Failed); err != nil {
			return nil, err
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// childIDs maps parent IDs to their children in creation order.
// An empty parentID loads children of every parent.
func (s *Store) childIDs(ctx context.Context, parentID string) (map[string][]string, error) {
	query := `SELECT id, parent_id FROM todos WHERE parent_id IS NOT NULL`
	var args []any
	if parentID != "" {
		query += " AND parent_id = ?"
		args = append(args, parentID)
	}
	query += " ORDER BY created_at, rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	children := make(map[string][]string)
	for rows.Next() {
		var id, parent string
		if err := rows.Scan(&id, &parent); err != nil {
			return nil, err
		}
		children[parent] = append(children[parent], id)
	}
	return children, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(row scanner) (*domain.Todo, error) {
	var todo domain.Todo
	var typ, priority, status string
	var parentID sql.NullString

	err := row.Scan(&todo.ID, &todo.Title, &todo.Description, &typ, &priority, &status,
		&todo.Content, &todo.AssignedModel, &todo.Result, &parentID, &todo.CreatedAt, &todo.UpdatedAt)
	if err != nil {
		return nil, err
	}

	todo.Type = domain.TodoType(typ)
	todo.Priority = domain.Priority(priority)
	todo.Status = domain.TodoStatus(status)
	if parentID.Valid {
		todo.ParentID = parentID.String
	}
	return &todo, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
