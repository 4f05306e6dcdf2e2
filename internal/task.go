package internal

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Task is a single note attached to a calendar date. The identifier is
// assigned by the datastore on insertion and never reused; the position is
// unique within a date and never compacted after deletions.
type Task struct {
	ID       int64
	Date     string
	Position int
	Text     string
}

// CreateParams defines the values required to create a Task.
type CreateParams struct {
	Date string
	Text string
}

// Validate indicates whether the fields are valid or not.
func (c CreateParams) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.Date, validation.Required),
		validation.Field(&c.Text, validation.Required),
	); err != nil {
		return WrapErrorf(err, ErrorCodeInvalidArgument, "validation.ValidateStruct")
	}

	return nil
}

// Day aggregates the classification label of a date with the tasks recorded
// for it. It is computed per request and never persisted.
type Day struct {
	Type  string
	Tasks []Task
}
