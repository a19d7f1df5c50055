package errors

import (
	"errors"
	"fmt"
)

var ErrNotFound = fmt.Errorf("not found")
var ErrValidation = fmt.Errorf("validation failed")
var ErrProvider = fmt.Errorf("provider error")

// ErrAlreadyExists and ErrUnauthorized refine ErrValidation and ErrProvider
// respectively, an error of either kind also matches its parent.
var ErrAlreadyExists = fmt.Errorf("already exists")
var ErrUnauthorized = fmt.Errorf("unauthorized")

type myError struct {
	msg     string
	targets []error
	cause   error
}

func (m myError) Error() string { return m.msg }
func (m myError) Unwrap() error { return m.cause }

func (m myError) Is(target error) bool {
	for _, t := range m.targets {
		if t == target {
			return true
		}
	}
	return false
}

func NewNotFoundError(msg string) error {
	return &myError{
		msg:     msg,
		targets: []error{ErrNotFound},
	}
}

func NewValidationError(msg string) error {
	return &myError{
		msg:     msg,
		targets: []error{ErrValidation},
	}
}

func NewAlreadyExistsError(msg string) error {
	return &myError{
		msg:     msg,
		targets: []error{ErrAlreadyExists, ErrValidation},
	}
}

func NewUnauthorizedError(msg string) error {
	return &myError{
		msg:     msg,
		targets: []error{ErrUnauthorized, ErrProvider},
	}
}

func NewProviderError(msg string) error {
	return &myError{
		msg:     msg,
		targets: []error{ErrProvider},
	}
}

// Wrap classifies cause as kind while keeping cause reachable with errors.Is and errors.As.
func Wrap(cause error, kind error) error {
	targets := []error{kind}

	switch kind {
	case ErrAlreadyExists:
		targets = append(targets, ErrValidation)
	case ErrUnauthorized:
		targets = append(targets, ErrProvider)
	}

	return &myError{
		msg:     cause.Error(),
		targets: targets,
		cause:   cause,
	}
}

// Classified reports whether err already carries one of the gateway error kinds.
func Classified(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrProvider)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsProvider(err error) bool {
	return errors.Is(err, ErrProvider)
}

// OperationError annotates an error with the gateway operation and the
// collection or bucket it was issued against.
type OperationError struct {
	Op       string
	Resource string
	Err      error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Resource, e.Err.Error())
}

func (e *OperationError) Unwrap() error { return e.Err }
