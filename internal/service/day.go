package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/taskcalendar/calendar-api/internal"
)

// TaskRepository defines the datastore handling persisted Task records.
type TaskRepository interface {
	Create(ctx context.Context, params internal.CreateParams) (internal.Task, error)
	ByDate(ctx context.Context, date string) ([]internal.Task, error)
	DeleteByPositionAndDate(ctx context.Context, position int, date string) (int64, error)
	DeleteAllByDate(ctx context.Context, date string) error
	FreePosition(ctx context.Context, date string) (int, error)
}

// TaskSearchRepository defines the datastore handling indexed Task records.
type TaskSearchRepository interface {
	Search(ctx context.Context, text string) ([]internal.Task, error)
}

// TaskMessageBrokerRepository defines the broker publishing Task events.
type TaskMessageBrokerRepository interface {
	Created(ctx context.Context, task internal.Task) error
	Deleted(ctx context.Context, id int64) error
	Cleaned(ctx context.Context, date string) error
}

// DayTypeClassifier defines the external service classifying a date as a
// working or non-working day. Implementations always return a presentable
// label, the fallback one when they also return an error.
type DayTypeClassifier interface {
	DayType(ctx context.Context, date string) (string, error)
}

// Day defines the application service in charge of interacting with the
// tasks of calendar dates.
type Day struct {
	logger     *zap.Logger
	repo       TaskRepository
	search     TaskSearchRepository
	msgBroker  TaskMessageBrokerRepository
	classifier DayTypeClassifier
}

// NewDay instantiates the Day service.
func NewDay(logger *zap.Logger, repo TaskRepository, search TaskSearchRepository, msgBroker TaskMessageBrokerRepository, classifier DayTypeClassifier) *Day {
	return &Day{
		logger:     logger,
		repo:       repo,
		search:     search,
		msgBroker:  msgBroker,
		classifier: classifier,
	}
}

// List returns the Day aggregate for a date: its classification label plus
// every task recorded for it. A failed classification degrades to the
// fallback label instead of failing the listing; a failed store read is a
// real error.
func (d *Day) List(ctx context.Context, date string) (internal.Day, error) {
	ctx, span := trace.SpanFromContext(ctx).Tracer().Start(ctx, "Day.List")
	defer span.End()

	dayType, err := d.classifier.DayType(ctx, date)
	if err != nil {
		d.logger.Info("classification degraded", zap.String("date", date), zap.Error(err))
	}

	tasks, err := d.repo.ByDate(ctx, date)
	if err != nil {
		return internal.Day{}, fmt.Errorf("repo byDate: %w", err)
	}

	return internal.Day{
		Type:  dayType,
		Tasks: tasks,
	}, nil
}

// Create stores a new task on a date, at the next free position.
func (d *Day) Create(ctx context.Context, params internal.CreateParams) (internal.Task, error) {
	ctx, span := trace.SpanFromContext(ctx).Tracer().Start(ctx, "Day.Create")
	defer span.End()

	if err := params.Validate(); err != nil {
		return internal.Task{}, fmt.Errorf("params.Validate: %w", err)
	}

	task, err := d.repo.Create(ctx, params)
	if err != nil {
		return internal.Task{}, fmt.Errorf("repo create: %w", err)
	}

	_ = d.msgBroker.Created(ctx, task) // XXX: the datastore is the source of truth

	return task, nil
}

// Delete removes the task at a position on a date. Deleting a task that does
// not exist is a no-op.
func (d *Day) Delete(ctx context.Context, position int, date string) error {
	ctx, span := trace.SpanFromContext(ctx).Tracer().Start(ctx, "Day.Delete")
	defer span.End()

	id, err := d.repo.DeleteByPositionAndDate(ctx, position, date)
	if err != nil {
		return fmt.Errorf("repo delete: %w", err)
	}

	if id != 0 {
		_ = d.msgBroker.Deleted(ctx, id)
	}

	return nil
}

// Clean removes every task recorded on a date.
func (d *Day) Clean(ctx context.Context, date string) error {
	ctx, span := trace.SpanFromContext(ctx).Tracer().Start(ctx, "Day.Clean")
	defer span.End()

	if err := d.repo.DeleteAllByDate(ctx, date); err != nil {
		return fmt.Errorf("repo deleteAll: %w", err)
	}

	_ = d.msgBroker.Cleaned(ctx, date)

	return nil
}

// By searches tasks matching the received text.
func (d *Day) By(ctx context.Context, text string) ([]internal.Task, error) {
	ctx, span := trace.SpanFromContext(ctx).Tracer().Start(ctx, "Day.By")
	defer span.End()

	res, err := d.search.Search(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	return res, nil
}

// FreePosition reports the position the next task created on the date would
// receive.
func (d *Day) FreePosition(ctx context.Context, date string) (int, error) {
	ctx, span := trace.SpanFromContext(ctx).Tracer().Start(ctx, "Day.FreePosition")
	defer span.End()

	position, err := d.repo.FreePosition(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("repo freePosition: %w", err)
	}

	return position, nil
}
