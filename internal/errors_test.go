package internal_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskcalendar/calendar-api/internal"
)

func TestWrapErrorf(t *testing.T) {
	err := internal.WrapErrorf(io.ErrUnexpectedEOF, internal.ErrorCodeNotFound, "reading %s", "payload")

	var ierr *internal.Error
	require.True(t, errors.As(err, &ierr))

	assert.Equal(t, internal.ErrorCodeNotFound, ierr.Code())
	assert.Equal(t, "reading payload: unexpected EOF", err.Error())
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestNewErrorf(t *testing.T) {
	err := internal.NewErrorf(internal.ErrorCodeInvalidArgument, "position %d", 4)

	var ierr *internal.Error
	require.True(t, errors.As(err, &ierr))

	assert.Equal(t, internal.ErrorCodeInvalidArgument, ierr.Code())
	assert.Equal(t, "position 4", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}
