package isdayoff_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskcalendar/calendar-api/internal/isdayoff"
)

func TestDayType(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"workday", "0", isdayoff.TypeWorkday},
		{"non workday", "1", isdayoff.TypeNonWorkday},
		{"bad date", "100", isdayoff.TypeBadDate},
		{"not found", "101", isdayoff.TypeNotFound},
		{"service error", "199", isdayoff.TypeServiceErr},
		{"unrecognized code", "42", isdayoff.TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/getdata", r.URL.Path)
				assert.Equal(t, "2022", r.URL.Query().Get("year"))
				assert.Equal(t, "08", r.URL.Query().Get("month"))
				assert.Equal(t, "13", r.URL.Query().Get("day"))

				w.Write([]byte(tt.code))
			}))
			defer srv.Close()

			// A fresh client per case keeps the circuit breaker state isolated.
			client := isdayoff.NewClient(srv.URL, zap.NewNop())

			got, err := client.DayType(context.Background(), "2022-08-13")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDayType_TrimsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("1\n"))
	}))
	defer srv.Close()

	client := isdayoff.NewClient(srv.URL, zap.NewNop())

	got, err := client.DayType(context.Background(), "2022-08-13")
	require.NoError(t, err)
	assert.Equal(t, isdayoff.TypeNonWorkday, got)
}

func TestDayType_InvalidDate(t *testing.T) {
	client := isdayoff.NewClient("http://localhost:0", zap.NewNop())

	got, err := client.DayType(context.Background(), "13.08.2022")
	require.Error(t, err)
	assert.Equal(t, isdayoff.TypeUnknown, got)
}

func TestDayType_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := isdayoff.NewClient(srv.URL, zap.NewNop())

	got, err := client.DayType(context.Background(), "2022-08-13")
	require.Error(t, err)
	assert.Equal(t, isdayoff.TypeUnknown, got)
}

func TestDayType_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := isdayoff.NewClient(srv.URL, zap.NewNop())

	for i := 0; i < 5; i++ {
		got, err := client.DayType(context.Background(), "2022-08-13")
		require.Error(t, err)
		assert.Equal(t, isdayoff.TypeUnknown, got)
	}

	assert.Equal(t, 3, hits)
}
