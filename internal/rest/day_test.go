package rest_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskcalendar/calendar-api/internal"
	"github.com/taskcalendar/calendar-api/internal/isdayoff"
	"github.com/taskcalendar/calendar-api/internal/rest"
)

type fakeDayService struct {
	day   internal.Day
	task  internal.Task
	found []internal.Task
	err   error

	listDate       string
	createParams   internal.CreateParams
	deletePosition int
	deleteDate     string
	cleanDate      string
	searchText     string
}

func (f *fakeDayService) List(_ context.Context, date string) (internal.Day, error) {
	f.listDate = date
	return f.day, f.err
}

func (f *fakeDayService) Create(_ context.Context, params internal.CreateParams) (internal.Task, error) {
	f.createParams = params
	return f.task, f.err
}

func (f *fakeDayService) Delete(_ context.Context, position int, date string) error {
	f.deletePosition = position
	f.deleteDate = date
	return f.err
}

func (f *fakeDayService) Clean(_ context.Context, date string) error {
	f.cleanDate = date
	return f.err
}

func (f *fakeDayService) By(_ context.Context, text string) ([]internal.Task, error) {
	f.searchText = text
	return f.found, f.err
}

func newRouter(svc *fakeDayService) chi.Router {
	r := chi.NewRouter()
	rest.NewDayHandler(svc, zap.NewNop()).Register(r)

	return r
}

func TestList(t *testing.T) {
	svc := &fakeDayService{
		day: internal.Day{
			Type: isdayoff.TypeNonWorkday,
			Tasks: []internal.Task{
				{ID: 5, Date: "2022-08-13", Position: 1, Text: "rest"},
			},
		},
	}

	resp := doRequest(t, newRouter(svc), http.MethodGet, "/getList?date=2022-08-13", "")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "2022-08-13", svc.listDate)

	var body struct {
		Type  string `json:"type"`
		Tasks []struct {
			ID       int64  `json:"id"`
			Date     string `json:"date"`
			Position int    `json:"position"`
			Text     string `json:"text"`
		} `json:"tasks"`
	}

	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))

	assert.Equal(t, isdayoff.TypeNonWorkday, body.Type)
	require.Len(t, body.Tasks, 1)
	assert.Equal(t, int64(5), body.Tasks[0].ID)
	assert.Equal(t, 1, body.Tasks[0].Position)
	assert.Equal(t, "rest", body.Tasks[0].Text)
}

func TestList_MissingDateDegrades(t *testing.T) {
	svc := &fakeDayService{}

	resp := doRequest(t, newRouter(svc), http.MethodGet, "/getList", "")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, svc.listDate)

	var body struct {
		Type  string            `json:"type"`
		Tasks []json.RawMessage `json:"tasks"`
	}

	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))

	assert.Equal(t, isdayoff.TypeUnknown, body.Type)
	assert.NotNil(t, body.Tasks)
	assert.Empty(t, body.Tasks)
}

func TestList_WrongMethod(t *testing.T) {
	resp := doRequest(t, newRouter(&fakeDayService{}), http.MethodPost, "/getList", "")

	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
	assert.Empty(t, resp.Body.String())
}

func TestCreate(t *testing.T) {
	svc := &fakeDayService{}

	resp := doRequest(t, newRouter(svc), http.MethodPost, "/create",
		`{"date":"2022-08-13","text":"buy groceries"}`)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, internal.CreateParams{Date: "2022-08-13", Text: "buy groceries"}, svc.createParams)

	assert.Contains(t, resp.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "Добавлена новая заметка на день - 2022-08-13", resp.Body.String())
}

func TestCreate_InvalidBody(t *testing.T) {
	resp := doRequest(t, newRouter(&fakeDayService{}), http.MethodPost, "/create", `{"date":`)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreate_ServiceError(t *testing.T) {
	svc := &fakeDayService{
		err: internal.NewErrorf(internal.ErrorCodeInvalidArgument, "text is required"),
	}

	resp := doRequest(t, newRouter(svc), http.MethodPost, "/create", `{"date":"2022-08-13"}`)

	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var body struct {
		Error string `json:"error"`
	}

	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "create failed", body.Error)
}

func TestDelete_QuotedPosition(t *testing.T) {
	svc := &fakeDayService{}

	resp := doRequest(t, newRouter(svc), http.MethodPost, "/delete",
		`{"date":"2022-08-13","position":"2"}`)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 2, svc.deletePosition)
	assert.Equal(t, "2022-08-13", svc.deleteDate)
	assert.Equal(t, "Удалена запись на дату - 2022-08-13 с позицией - 2", resp.Body.String())
}

func TestDelete_BarePosition(t *testing.T) {
	svc := &fakeDayService{}

	resp := doRequest(t, newRouter(svc), http.MethodPost, "/delete",
		`{"date":"2022-08-13","position":2}`)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 2, svc.deletePosition)
}

func TestDelete_NonNumericPosition(t *testing.T) {
	resp := doRequest(t, newRouter(&fakeDayService{}), http.MethodPost, "/delete",
		`{"date":"2022-08-13","position":"second"}`)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestClean(t *testing.T) {
	svc := &fakeDayService{}

	resp := doRequest(t, newRouter(svc), http.MethodPost, "/clean", `{"date":"2022-08-13"}`)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "2022-08-13", svc.cleanDate)
	assert.Equal(t, "Все заметки на дату - 2022-08-13 удалены.", resp.Body.String())
}

func TestSearch(t *testing.T) {
	svc := &fakeDayService{
		found: []internal.Task{
			{ID: 7, Date: "2022-08-13", Position: 2, Text: "buy groceries"},
		},
	}

	resp := doRequest(t, newRouter(svc), http.MethodGet, "/search?text=groceries", "")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "groceries", svc.searchText)

	var body struct {
		Tasks []struct {
			ID int64 `json:"id"`
		} `json:"tasks"`
	}

	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Tasks, 1)
	assert.Equal(t, int64(7), body.Tasks[0].ID)
}

func doRequest(t *testing.T, router chi.Router, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	return resp
}
