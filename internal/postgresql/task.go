package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskcalendar/calendar-api/internal"
)

// uniqueViolation is the PostgreSQL error code raised when an insert hits the
// UNIQUE (date, position) constraint.
const uniqueViolation = "23505"

// Task represents the repository used for interacting with Task records.
type Task struct {
	pool *pgxpool.Pool
}

// NewTask instantiates the Task repository.
func NewTask(pool *pgxpool.Pool) *Task {
	return &Task{
		pool: pool,
	}
}

// Create inserts a new task record, assigning the next free position for its
// date. Under READ COMMITTED two concurrent creates can compute the same
// maximum, so the insert leans on the UNIQUE (date, position) constraint: the
// losing session gets a unique violation, recomputes and retries. Every
// conflict means another create committed, so the loop makes progress.
func (t *Task) Create(ctx context.Context, params internal.CreateParams) (internal.Task, error) {
	defer newOTELSpan(ctx, "Task.Create").End()

	const sql = `
		INSERT INTO tasks (text, date, position)
		SELECT $1, $2, COALESCE(MAX(position), 0) + 1
		FROM tasks
		WHERE date = $2
		RETURNING id, position`

	var (
		id       int64
		position int
	)

	for {
		err := t.pool.QueryRow(ctx, sql, params.Text, params.Date).Scan(&id, &position)
		if err == nil {
			break
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			continue
		}

		return internal.Task{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "pool.QueryRow")
	}

	return internal.Task{
		ID:       id,
		Date:     params.Date,
		Position: position,
		Text:     params.Text,
	}, nil
}

// ByDate returns every task recorded for the date, in insertion order.
// An unknown date yields an empty result, not an error.
func (t *Task) ByDate(ctx context.Context, date string) ([]internal.Task, error) {
	defer newOTELSpan(ctx, "Task.ByDate").End()

	const sql = `
		SELECT id, text, date, position
		FROM tasks
		WHERE date = $1
		ORDER BY id`

	rows, err := t.pool.Query(ctx, sql, date)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "pool.Query")
	}
	defer rows.Close()

	res := make([]internal.Task, 0)

	for rows.Next() {
		var task internal.Task

		if err := rows.Scan(&task.ID, &task.Text, &task.Date, &task.Position); err != nil {
			return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "rows.Scan")
		}

		res = append(res, task)
	}

	if err := rows.Err(); err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "rows.Err")
	}

	return res, nil
}

// DeleteByPositionAndDate removes the task matching both values and returns
// its identifier. Positions are unique within a date, so at most one row is
// removed; a no-match is a no-op reported as id zero, not an error.
func (t *Task) DeleteByPositionAndDate(ctx context.Context, position int, date string) (int64, error) {
	defer newOTELSpan(ctx, "Task.DeleteByPositionAndDate").End()

	const sql = `
		DELETE FROM tasks
		WHERE position = $1 AND date = $2
		RETURNING id`

	var id int64

	err := t.pool.QueryRow(ctx, sql, position, date).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}

	if err != nil {
		return 0, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "pool.QueryRow")
	}

	return id, nil
}

// DeleteAllByDate removes every task recorded for the date.
func (t *Task) DeleteAllByDate(ctx context.Context, date string) error {
	defer newOTELSpan(ctx, "Task.DeleteAllByDate").End()

	const sql = `DELETE FROM tasks WHERE date = $1`

	if _, err := t.pool.Exec(ctx, sql, date); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "pool.Exec")
	}

	return nil
}

// FreePosition returns the position the next task created for the date would
// receive: the maximum recorded position plus one, or one when the date has
// no tasks.
func (t *Task) FreePosition(ctx context.Context, date string) (int, error) {
	defer newOTELSpan(ctx, "Task.FreePosition").End()

	const sql = `
		SELECT COALESCE(MAX(position), 0) + 1
		FROM tasks
		WHERE date = $1`

	var position int

	if err := t.pool.QueryRow(ctx, sql, date).Scan(&position); err != nil {
		return 0, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "pool.QueryRow")
	}

	return position, nil
}
