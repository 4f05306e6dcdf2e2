package memcached

import (
	"context"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"go.uber.org/zap"

	"github.com/taskcalendar/calendar-api/internal"
)

// TaskStore defines the datastore being decorated.
type TaskStore interface {
	Create(ctx context.Context, params internal.CreateParams) (internal.Task, error)
	ByDate(ctx context.Context, date string) ([]internal.Task, error)
	DeleteByPositionAndDate(ctx context.Context, position int, date string) (int64, error)
	DeleteAllByDate(ctx context.Context, date string) error
	FreePosition(ctx context.Context, date string) (int, error)
}

// Task is a cache-aside decorator over a TaskStore. Listings are cached per
// date; every mutation invalidates the cached listing of the date it touches,
// so readers never observe deleted or missing tasks past the expiration.
type Task struct {
	client     *memcache.Client
	orig       TaskStore
	expiration time.Duration
	logger     *zap.Logger
}

// NewTask instantiates the Task decorator.
func NewTask(client *memcache.Client, orig TaskStore, logger *zap.Logger) *Task {
	return &Task{
		client:     client,
		orig:       orig,
		expiration: 15 * time.Minute,
		logger:     logger,
	}
}

// Create inserts the task and invalidates the listing for its date.
func (t *Task) Create(ctx context.Context, params internal.CreateParams) (internal.Task, error) {
	defer newOTELSpan(ctx, "Task.Create").End()

	task, err := t.orig.Create(ctx, params)
	if err != nil {
		return internal.Task{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "orig.Create")
	}

	deleteTasks(ctx, t.client, params.Date)

	return task, nil
}

// ByDate returns the cached listing for the date, falling back to the
// decorated store and caching the result.
func (t *Task) ByDate(ctx context.Context, date string) ([]internal.Task, error) {
	defer newOTELSpan(ctx, "Task.ByDate").End()

	var res []internal.Task

	if err := getTasks(ctx, t.client, date, &res); err == nil {
		return res, nil
	}

	t.logger.Info("ByDate: not cached, caching it", zap.String("date", date))

	res, err := t.orig.ByDate(ctx, date)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "orig.ByDate")
	}

	setTasks(ctx, t.client, date, &res, t.expiration)

	return res, nil
}

// DeleteByPositionAndDate removes the matching task and invalidates the
// listing for the date.
func (t *Task) DeleteByPositionAndDate(ctx context.Context, position int, date string) (int64, error) {
	defer newOTELSpan(ctx, "Task.DeleteByPositionAndDate").End()

	id, err := t.orig.DeleteByPositionAndDate(ctx, position, date)
	if err != nil {
		return 0, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "orig.DeleteByPositionAndDate")
	}

	deleteTasks(ctx, t.client, date)

	return id, nil
}

// DeleteAllByDate removes every task of the date and invalidates its listing.
func (t *Task) DeleteAllByDate(ctx context.Context, date string) error {
	defer newOTELSpan(ctx, "Task.DeleteAllByDate").End()

	if err := t.orig.DeleteAllByDate(ctx, date); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "orig.DeleteAllByDate")
	}

	deleteTasks(ctx, t.client, date)

	return nil
}

// FreePosition is a passthrough; positions are never cached.
func (t *Task) FreePosition(ctx context.Context, date string) (int, error) {
	defer newOTELSpan(ctx, "Task.FreePosition").End()

	return t.orig.FreePosition(ctx, date)
}
