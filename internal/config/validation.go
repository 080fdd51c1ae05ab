package config

import (
	"fmt"
	"strings"
)

// ValidationError is one rejected setting. Value is the offending value
// when there is one worth showing.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (ve ValidationError) Error() string {
	switch {
	case ve.Field == "":
		return ve.Message
	case ve.Value == nil:
		return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
	default:
		return fmt.Sprintf("%s: %s (got %v)", ve.Field, ve.Message, ve.Value)
	}
}

// ValidationErrors collects every problem found by Settings.Validate so
// that a broken config file is reported in one go.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	switch len(ve) {
	case 0:
		return "no validation errors"
	case 1:
		return ve[0].Error()
	}
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add records a problem with field. An optional value is shown in the
// message.
func (ve *ValidationErrors) Add(field, message string, value ...any) {
	e := ValidationError{Field: field, Message: message}
	if len(value) > 0 {
		e.Value = value[0]
	}
	*ve = append(*ve, e)
}
