package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskcalendar/calendar-api/internal"
	"github.com/taskcalendar/calendar-api/internal/isdayoff"
	"github.com/taskcalendar/calendar-api/internal/service"
)

// fakeTaskRepository mirrors the datastore semantics in memory: identifiers
// are never reused and a date's next position is max+1, so deleted positions
// leave permanent gaps.
type fakeTaskRepository struct {
	nextID int64
	tasks  []internal.Task

	createErr error
	byDateErr error
}

func (f *fakeTaskRepository) Create(_ context.Context, params internal.CreateParams) (internal.Task, error) {
	if f.createErr != nil {
		return internal.Task{}, f.createErr
	}

	position, _ := f.FreePosition(context.Background(), params.Date)

	f.nextID++

	task := internal.Task{
		ID:       f.nextID,
		Date:     params.Date,
		Position: position,
		Text:     params.Text,
	}

	f.tasks = append(f.tasks, task)

	return task, nil
}

func (f *fakeTaskRepository) ByDate(_ context.Context, date string) ([]internal.Task, error) {
	if f.byDateErr != nil {
		return nil, f.byDateErr
	}

	res := []internal.Task{}

	for _, task := range f.tasks {
		if task.Date == date {
			res = append(res, task)
		}
	}

	return res, nil
}

func (f *fakeTaskRepository) DeleteByPositionAndDate(_ context.Context, position int, date string) (int64, error) {
	for i, task := range f.tasks {
		if task.Date == date && task.Position == position {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return task.ID, nil
		}
	}

	return 0, nil
}

func (f *fakeTaskRepository) DeleteAllByDate(_ context.Context, date string) error {
	kept := f.tasks[:0]

	for _, task := range f.tasks {
		if task.Date != date {
			kept = append(kept, task)
		}
	}

	f.tasks = kept

	return nil
}

func (f *fakeTaskRepository) FreePosition(_ context.Context, date string) (int, error) {
	max := 0

	for _, task := range f.tasks {
		if task.Date == date && task.Position > max {
			max = task.Position
		}
	}

	return max + 1, nil
}

type fakeSearchRepository struct {
	tasks []internal.Task
	err   error
}

func (f *fakeSearchRepository) Search(_ context.Context, text string) ([]internal.Task, error) {
	if f.err != nil {
		return nil, f.err
	}

	res := []internal.Task{}

	for _, task := range f.tasks {
		if strings.Contains(task.Text, text) {
			res = append(res, task)
		}
	}

	return res, nil
}

type fakeMessageBroker struct {
	created []internal.Task
	deleted []int64
	cleaned []string
}

func (f *fakeMessageBroker) Created(_ context.Context, task internal.Task) error {
	f.created = append(f.created, task)
	return nil
}

func (f *fakeMessageBroker) Deleted(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeMessageBroker) Cleaned(_ context.Context, date string) error {
	f.cleaned = append(f.cleaned, date)
	return nil
}

type fakeClassifier struct {
	label string
	err   error
}

func (f *fakeClassifier) DayType(_ context.Context, _ string) (string, error) {
	return f.label, f.err
}

func newDay(repo *fakeTaskRepository, search *fakeSearchRepository, broker *fakeMessageBroker, classifier *fakeClassifier) *service.Day {
	return service.NewDay(zap.NewNop(), repo, search, broker, classifier)
}

func TestCreate_FirstTaskGetsPositionOne(t *testing.T) {
	repo := &fakeTaskRepository{}
	svc := newDay(repo, &fakeSearchRepository{}, &fakeMessageBroker{}, &fakeClassifier{label: isdayoff.TypeWorkday})

	task, err := svc.Create(context.Background(), internal.CreateParams{Date: "2022-08-13", Text: "one"})
	require.NoError(t, err)

	assert.Equal(t, 1, task.Position)
}

func TestCreate_PositionsAreSequential(t *testing.T) {
	repo := &fakeTaskRepository{}
	svc := newDay(repo, &fakeSearchRepository{}, &fakeMessageBroker{}, &fakeClassifier{label: isdayoff.TypeWorkday})

	for i := 1; i <= 4; i++ {
		task, err := svc.Create(context.Background(), internal.CreateParams{Date: "2022-08-13", Text: "note"})
		require.NoError(t, err)
		assert.Equal(t, i, task.Position)
	}
}

func TestCreate_PublishesEvent(t *testing.T) {
	repo := &fakeTaskRepository{}
	broker := &fakeMessageBroker{}
	svc := newDay(repo, &fakeSearchRepository{}, broker, &fakeClassifier{label: isdayoff.TypeWorkday})

	task, err := svc.Create(context.Background(), internal.CreateParams{Date: "2022-08-13", Text: "one"})
	require.NoError(t, err)

	require.Len(t, broker.created, 1)
	assert.Equal(t, task, broker.created[0])
}

func TestCreate_InvalidParams(t *testing.T) {
	repo := &fakeTaskRepository{}
	broker := &fakeMessageBroker{}
	svc := newDay(repo, &fakeSearchRepository{}, broker, &fakeClassifier{label: isdayoff.TypeWorkday})

	_, err := svc.Create(context.Background(), internal.CreateParams{Date: "2022-08-13"})
	require.Error(t, err)

	assert.Empty(t, repo.tasks)
	assert.Empty(t, broker.created)
}

func TestDelete_LeavesGapInPositions(t *testing.T) {
	repo := &fakeTaskRepository{}
	svc := newDay(repo, &fakeSearchRepository{}, &fakeMessageBroker{}, &fakeClassifier{label: isdayoff.TypeWorkday})

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), internal.CreateParams{Date: "2022-08-13", Text: "note"})
		require.NoError(t, err)
	}

	require.NoError(t, svc.Delete(context.Background(), 2, "2022-08-13"))

	day, err := svc.List(context.Background(), "2022-08-13")
	require.NoError(t, err)

	positions := make([]int, 0, len(day.Tasks))
	for _, task := range day.Tasks {
		positions = append(positions, task.Position)
	}

	assert.Equal(t, []int{1, 3}, positions)

	// The next task lands above the gap, not inside it.
	task, err := svc.Create(context.Background(), internal.CreateParams{Date: "2022-08-13", Text: "note"})
	require.NoError(t, err)
	assert.Equal(t, 4, task.Position)
}

func TestDelete_RemovesAtMostOneRow(t *testing.T) {
	repo := &fakeTaskRepository{}
	broker := &fakeMessageBroker{}
	svc := newDay(repo, &fakeSearchRepository{}, broker, &fakeClassifier{label: isdayoff.TypeWorkday})

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), internal.CreateParams{Date: "2022-08-13", Text: "note"})
		require.NoError(t, err)
	}

	require.NoError(t, svc.Delete(context.Background(), 2, "2022-08-13"))

	day, err := svc.List(context.Background(), "2022-08-13")
	require.NoError(t, err)
	assert.Len(t, day.Tasks, 2)

	// Positions are unique per date, so repeating the delete finds nothing.
	require.NoError(t, svc.Delete(context.Background(), 2, "2022-08-13"))

	day, err = svc.List(context.Background(), "2022-08-13")
	require.NoError(t, err)
	assert.Len(t, day.Tasks, 2)

	assert.Len(t, broker.deleted, 1)
}

func TestDelete_MissingPositionIsNoOp(t *testing.T) {
	repo := &fakeTaskRepository{}
	broker := &fakeMessageBroker{}
	svc := newDay(repo, &fakeSearchRepository{}, broker, &fakeClassifier{label: isdayoff.TypeWorkday})

	_, err := svc.Create(context.Background(), internal.CreateParams{Date: "2022-08-13", Text: "note"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), 9, "2022-08-13"))

	day, err := svc.List(context.Background(), "2022-08-13")
	require.NoError(t, err)
	assert.Len(t, day.Tasks, 1)

	// No event for a delete that removed nothing.
	assert.Empty(t, broker.deleted)
}

func TestClean_OnlyAffectsTheDate(t *testing.T) {
	repo := &fakeTaskRepository{}
	broker := &fakeMessageBroker{}
	svc := newDay(repo, &fakeSearchRepository{}, broker, &fakeClassifier{label: isdayoff.TypeWorkday})

	_, err := svc.Create(context.Background(), internal.CreateParams{Date: "2022-08-13", Text: "a"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), internal.CreateParams{Date: "2022-08-14", Text: "b"})
	require.NoError(t, err)

	require.NoError(t, svc.Clean(context.Background(), "2022-08-13"))

	cleaned, err := svc.List(context.Background(), "2022-08-13")
	require.NoError(t, err)
	assert.Empty(t, cleaned.Tasks)

	other, err := svc.List(context.Background(), "2022-08-14")
	require.NoError(t, err)
	assert.Len(t, other.Tasks, 1)

	assert.Equal(t, []string{"2022-08-13"}, broker.cleaned)
}

func TestList_DegradesWhenClassifierFails(t *testing.T) {
	repo := &fakeTaskRepository{}
	classifier := &fakeClassifier{
		label: isdayoff.TypeUnknown,
		err:   internal.NewErrorf(internal.ErrorCodeUnknown, "upstream down"),
	}
	svc := newDay(repo, &fakeSearchRepository{}, &fakeMessageBroker{}, classifier)

	_, err := svc.Create(context.Background(), internal.CreateParams{Date: "2022-08-13", Text: "note"})
	require.NoError(t, err)

	day, err := svc.List(context.Background(), "2022-08-13")
	require.NoError(t, err)

	assert.Equal(t, isdayoff.TypeUnknown, day.Type)
	assert.Len(t, day.Tasks, 1)
}

func TestList_StoreFailureIsFatal(t *testing.T) {
	repo := &fakeTaskRepository{
		byDateErr: internal.NewErrorf(internal.ErrorCodeUnknown, "connection refused"),
	}
	svc := newDay(repo, &fakeSearchRepository{}, &fakeMessageBroker{}, &fakeClassifier{label: isdayoff.TypeWorkday})

	_, err := svc.List(context.Background(), "2022-08-13")
	require.Error(t, err)
}

func TestBy_MatchesText(t *testing.T) {
	search := &fakeSearchRepository{
		tasks: []internal.Task{
			{ID: 1, Date: "2022-08-13", Position: 1, Text: "buy groceries"},
			{ID: 2, Date: "2022-08-14", Position: 1, Text: "sleep early"},
		},
	}
	svc := newDay(&fakeTaskRepository{}, search, &fakeMessageBroker{}, &fakeClassifier{label: isdayoff.TypeWorkday})

	tasks, err := svc.By(context.Background(), "groceries")
	require.NoError(t, err)

	require.Len(t, tasks, 1)
	assert.Equal(t, int64(1), tasks[0].ID)
}

func TestFreePosition(t *testing.T) {
	repo := &fakeTaskRepository{}
	svc := newDay(repo, &fakeSearchRepository{}, &fakeMessageBroker{}, &fakeClassifier{label: isdayoff.TypeWorkday})

	position, err := svc.FreePosition(context.Background(), "2022-08-13")
	require.NoError(t, err)
	assert.Equal(t, 1, position)

	_, err = svc.Create(context.Background(), internal.CreateParams{Date: "2022-08-13", Text: "note"})
	require.NoError(t, err)

	position, err = svc.FreePosition(context.Background(), "2022-08-13")
	require.NoError(t, err)
	assert.Equal(t, 2, position)
}
