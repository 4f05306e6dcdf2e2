package internal

import (
	"go.uber.org/zap"

	internaldomain "github.com/taskcalendar/calendar-api/internal"
	"github.com/taskcalendar/calendar-api/internal/envar"
	"github.com/taskcalendar/calendar-api/internal/isdayoff"
)

const defaultIsDayOffURL = "https://isdayoff.ru"

// NewDayTypeClient instantiates the day-type classification client using
// configuration defined in environment variables.
func NewDayTypeClient(conf *envar.Configuration, logger *zap.Logger) (*isdayoff.Client, error) {
	baseURL, err := conf.Get("ISDAYOFF_URL")
	if err != nil {
		return nil, internaldomain.WrapErrorf(err, internaldomain.ErrorCodeUnknown, "conf.Get ISDAYOFF_URL")
	}

	if baseURL == "" {
		baseURL = defaultIsDayOffURL
	}

	return isdayoff.NewClient(baseURL, logger), nil
}
