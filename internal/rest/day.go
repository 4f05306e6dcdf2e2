package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/taskcalendar/calendar-api/internal"
	"github.com/taskcalendar/calendar-api/internal/isdayoff"
)

// DayService defines the application service consumed by the endpoints.
type DayService interface {
	List(ctx context.Context, date string) (internal.Day, error)
	Create(ctx context.Context, params internal.CreateParams) (internal.Task, error)
	Delete(ctx context.Context, position int, date string) error
	Clean(ctx context.Context, date string) error
	By(ctx context.Context, text string) ([]internal.Task, error)
}

// DayHandler serves the calendar endpoints.
type DayHandler struct {
	svc    DayService
	logger *zap.Logger
}

// NewDayHandler instantiates the handler.
func NewDayHandler(svc DayService, logger *zap.Logger) *DayHandler {
	return &DayHandler{
		svc:    svc,
		logger: logger,
	}
}

// Register connects the handlers to the router. A known path hit with the
// wrong method answers 405 with an empty body.
func (h *DayHandler) Register(r chi.Router) {
	r.Get("/getList", h.list)
	r.Post("/create", h.create)
	r.Post("/delete", h.delete)
	r.Post("/clean", h.clean)
	r.Get("/search", h.search)

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

// Task is a single dated note.
type Task struct {
	ID       int64  `json:"id"`
	Date     string `json:"date"`
	Position int    `json:"position"`
	Text     string `json:"text"`
}

// ListTasksResponse defines the response returned for a date listing.
type ListTasksResponse struct {
	Type  string `json:"type"`
	Tasks []Task `json:"tasks"`
}

func newTasks(tasks []internal.Task) []Task {
	res := make([]Task, len(tasks))

	for i, task := range tasks {
		res[i] = Task{
			ID:       task.ID,
			Date:     task.Date,
			Position: task.Position,
			Text:     task.Text,
		}
	}

	return res
}

func (h *DayHandler) list(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		// Degrade instead of rejecting: the contract promises 200 with the
		// fallback label and no tasks for a malformed query.
		h.logger.Error("missing date parameter", zap.String("query", r.URL.RawQuery))

		renderResponse(w, &ListTasksResponse{
			Type:  isdayoff.TypeUnknown,
			Tasks: []Task{},
		}, http.StatusOK)

		return
	}

	day, err := h.svc.List(r.Context(), date)
	if err != nil {
		renderErrorResponse(r.Context(), w, "list failed", err)
		return
	}

	renderResponse(w, &ListTasksResponse{
		Type:  day.Type,
		Tasks: newTasks(day.Tasks),
	}, http.StatusOK)
}

// CreateTaskRequest defines the request used for creating tasks.
type CreateTaskRequest struct {
	Date string `json:"date"`
	Text string `json:"text"`
}

func (h *DayHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request",
			internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	if _, err := h.svc.Create(r.Context(), internal.CreateParams{
		Date: req.Date,
		Text: req.Text,
	}); err != nil {
		renderErrorResponse(r.Context(), w, "create failed", err)
		return
	}

	renderTextResponse(w, fmt.Sprintf("Добавлена новая заметка на день - %s", req.Date), http.StatusOK)
}

// DeleteTaskRequest defines the request used for deleting one task.
type DeleteTaskRequest struct {
	Date     string        `json:"date"`
	Position positionValue `json:"position"`
}

// positionValue accepts both the legacy quoted form ("2") and a bare number
// (2); older clients serialize the position as a string.
type positionValue int

func (p *positionValue) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)

	v, err := strconv.Atoi(string(data))
	if err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "strconv.Atoi")
	}

	*p = positionValue(v)

	return nil
}

func (h *DayHandler) delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request",
			internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	if err := h.svc.Delete(r.Context(), int(req.Position), req.Date); err != nil {
		renderErrorResponse(r.Context(), w, "delete failed", err)
		return
	}

	renderTextResponse(w,
		fmt.Sprintf("Удалена запись на дату - %s с позицией - %d", req.Date, int(req.Position)),
		http.StatusOK)
}

// CleanTasksRequest defines the request used for deleting every task of a date.
type CleanTasksRequest struct {
	Date string `json:"date"`
}

func (h *DayHandler) clean(w http.ResponseWriter, r *http.Request) {
	var req CleanTasksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(r.Context(), w, "invalid request",
			internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "json decoder"))
		return
	}
	defer r.Body.Close()

	if err := h.svc.Clean(r.Context(), req.Date); err != nil {
		renderErrorResponse(r.Context(), w, "clean failed", err)
		return
	}

	renderTextResponse(w, fmt.Sprintf("Все заметки на дату - %s удалены.", req.Date), http.StatusOK)
}

// SearchTasksResponse defines the response returned for a text search.
type SearchTasksResponse struct {
	Tasks []Task `json:"tasks"`
}

func (h *DayHandler) search(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.svc.By(r.Context(), r.URL.Query().Get("text"))
	if err != nil {
		renderErrorResponse(r.Context(), w, "search failed", err)
		return
	}

	renderResponse(w, &SearchTasksResponse{Tasks: newTasks(tasks)}, http.StatusOK)
}
