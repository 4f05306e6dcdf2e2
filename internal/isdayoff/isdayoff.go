// Package isdayoff classifies calendar dates as working or non-working days
// using the isdayoff.ru HTTP service.
package isdayoff

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mercari/go-circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/taskcalendar/calendar-api/internal"
)

// Labels describing the classification of a date. The exact strings are a
// wire contract inherited from the consumers of the original service and must
// not be localized or reworded.
const (
	TypeWorkday    = "Рабочий день"
	TypeNonWorkday = "Нерабочий день"
	TypeBadDate    = "Ошибка в дате"
	TypeNotFound   = "Данные не найдены"
	TypeServiceErr = "Ошибка сервиса"
	TypeUnknown    = "Неизвестный статус"
)

// Client calls the day-type service. Outbound requests are bounded by a
// timeout and guarded by a circuit breaker so a hung upstream cannot stall
// request handling indefinitely.
type Client struct {
	client  *http.Client
	baseURL string
	cb      *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewClient instantiates the day-type client.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   5 * time.Second,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		cb: circuitbreaker.New(
			circuitbreaker.WithOpenTimeout(30*time.Second),
			circuitbreaker.WithTripFunc(circuitbreaker.NewTripFuncConsecutiveFailures(3)),
		),
		logger: logger,
	}
}

// DayType returns the classification label for a yyyy-MM-dd date. It always
// returns a presentable label: on any failure the result is TypeUnknown
// alongside the error, so callers may degrade instead of failing a listing.
func (c *Client) DayType(ctx context.Context, date string) (string, error) {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return TypeUnknown, internal.NewErrorf(internal.ErrorCodeInvalidArgument, "invalid date %q", date)
	}

	res, err := c.cb.Do(ctx, func() (interface{}, error) {
		return c.fetch(ctx, parts[0], parts[1], parts[2])
	})
	if err != nil {
		c.logger.Error("day type lookup failed", zap.String("date", date), zap.Error(err))

		return TypeUnknown, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "cb.Do")
	}

	code, _ := res.(string)

	return mapStatus(code), nil
}

func (c *Client) fetch(ctx context.Context, year, month, day string) (string, error) {
	url := fmt.Sprintf("%s/api/getdata?year=%s&month=%s&day=%s", c.baseURL, year, month, day)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", internal.WrapErrorf(err, internal.ErrorCodeUnknown, "http.NewRequestWithContext")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", internal.WrapErrorf(err, internal.ErrorCodeUnknown, "client.Do")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", internal.NewErrorf(internal.ErrorCodeUnknown, "unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", internal.WrapErrorf(err, internal.ErrorCodeUnknown, "io.ReadAll")
	}

	return strings.TrimSpace(string(body)), nil
}

// mapStatus translates the service status code into its label. The table is
// an exact external contract; unrecognized codes map to the unknown label.
func mapStatus(code string) string {
	switch code {
	case "0":
		return TypeWorkday
	case "1":
		return TypeNonWorkday
	case "100":
		return TypeBadDate
	case "101":
		return TypeNotFound
	case "199":
		return TypeServiceErr
	}

	return TypeUnknown
}
