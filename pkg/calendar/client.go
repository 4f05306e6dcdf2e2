// Package calendar provides the client facade over the task-calendar HTTP
// API. Presentation layers call it instead of issuing requests themselves.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/taskcalendar/calendar-api/internal"
)

// Task is a single dated note returned by the API.
type Task struct {
	ID       int64  `json:"id"`
	Date     string `json:"date"`
	Position int    `json:"position"`
	Text     string `json:"text"`
}

// Day aggregates the classification label of a date and its tasks.
type Day struct {
	Type  string `json:"type"`
	Tasks []Task `json:"tasks"`
}

// Client calls the calendar API. All calls are synchronous; a non-200
// response is an error, never retried.
type Client struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
}

// NewClient instantiates the facade against a base URL such as
// "http://localhost:8000".
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// List returns the Day recorded for a date.
func (c *Client) List(ctx context.Context, date string) (Day, error) {
	endpoint := fmt.Sprintf("%s/getList?date=%s", c.baseURL, url.QueryEscape(date))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Day{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "http.NewRequestWithContext")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Day{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "client.Do")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Day{}, internal.NewErrorf(internal.ErrorCodeUnknown, "unexpected status %d", resp.StatusCode)
	}

	var day Day
	if err := json.NewDecoder(resp.Body).Decode(&day); err != nil {
		return Day{}, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.NewDecoder.Decode")
	}

	return day, nil
}

// Create records a new note on a date.
func (c *Client) Create(ctx context.Context, date, text string) error {
	return c.post(ctx, "/create", struct {
		Date string `json:"date"`
		Text string `json:"text"`
	}{
		Date: date,
		Text: text,
	})
}

// Delete removes the note at a position on a date. The position is sent as a
// bare integer; the server also accepts the quoted form produced by older
// clients.
func (c *Client) Delete(ctx context.Context, date string, position int) error {
	return c.post(ctx, "/delete", struct {
		Date     string `json:"date"`
		Position int    `json:"position"`
	}{
		Date:     date,
		Position: position,
	})
}

// Clean removes every note recorded on a date.
func (c *Client) Clean(ctx context.Context, date string) error {
	return c.post(ctx, "/clean", struct {
		Date string `json:"date"`
	}{
		Date: date,
	})
}

// Search returns tasks whose text matches the query.
func (c *Client) Search(ctx context.Context, text string) ([]Task, error) {
	endpoint := fmt.Sprintf("%s/search?text=%s", c.baseURL, url.QueryEscape(text))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "http.NewRequestWithContext")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "client.Do")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, internal.NewErrorf(internal.ErrorCodeUnknown, "unexpected status %d", resp.StatusCode)
	}

	var res struct {
		Tasks []Task `json:"tasks"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.NewDecoder.Decode")
	}

	return res.Tasks, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}) error {
	var buf bytes.Buffer

	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "json.NewEncoder.Encode")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "http.NewRequestWithContext")
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "client.Do")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return internal.NewErrorf(internal.ErrorCodeUnknown, "unexpected status %d", resp.StatusCode)
	}

	confirmation, err := io.ReadAll(resp.Body)
	if err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "io.ReadAll")
	}

	c.logger.Info("mutation confirmed",
		zap.String("path", path),
		zap.String("confirmation", string(confirmation)),
	)

	return nil
}
