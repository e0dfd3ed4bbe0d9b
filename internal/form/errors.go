package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrBusy is returned while a submission is in flight
	ErrBusy = errors.New("a submission is already in progress")

	// ErrNotOpen is returned when no edit session is open
	ErrNotOpen = errors.New("no edit session is open")

	// ErrSuperseded is returned by OpenModify when a newer session was
	// opened while the fetch was in flight
	ErrSuperseded = errors.New("edit session was superseded")

	// ErrCreateUnsupported is returned by OpenCreate on the settings form
	ErrCreateUnsupported = errors.New("settings cannot be created, only modified")
)

// ValidationError is a client-side rejection raised before any request is
// sent. Err holds the per-field errors.
type ValidationError struct {
	Message string
	Fields  []string
	Err     *multierror.Error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
	}
	if e.Err != nil && len(e.Err.Errors) > 0 {
		details := make([]string, len(e.Err.Errors))
		for i, err := range e.Err.Errors {
			details[i] = err.Error()
		}
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(details, "; "))
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}

// IsValidationError checks if err is a client-side validation failure
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
