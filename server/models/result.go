package models

import "fmt"

type ErrorKind string

const (
	ValidationError    ErrorKind = "validation"
	RemoteUnavailable  ErrorKind = "remote_unavailable"
	ChannelSendFailure ErrorKind = "channel_send_failure"
	PreconditionError  ErrorKind = "precondition"
	NotFoundError      ErrorKind = "not_found"
	InternalError      ErrorKind = "internal"
)

// Result is the outcome of a manager or store operation. A failed Result may
// still carry Data, e.g. an incident that was kept locally after the remote
// store rejected it.
type Result[T any] struct {
	Data     T
	Kind     ErrorKind
	Err      string
	Errors   []string
	Warnings []string
}

func Ok[T any](data T) Result[T] {
	return Result[T]{Data: data}
}

func Err[T any](kind ErrorKind, format string, args ...interface{}) Result[T] {
	return Result[T]{Kind: kind, Err: fmt.Sprintf(format, args...)}
}

func ErrWithData[T any](data T, kind ErrorKind, format string, args ...interface{}) Result[T] {
	return Result[T]{Data: data, Kind: kind, Err: fmt.Sprintf(format, args...)}
}

// Validation returns a validation failure carrying every field error
func Validation[T any](errs []string) Result[T] {
	msg := "validation failed"
	if len(errs) > 0 {
		msg = errs[0]
	}
	return Result[T]{Kind: ValidationError, Err: msg, Errors: errs}
}

// ErrFrom converts a failed result of one type into another, keeping kind and messages
func ErrFrom[T, U any](res Result[U]) Result[T] {
	return Result[T]{Kind: res.Kind, Err: res.Err, Errors: res.Errors, Warnings: res.Warnings}
}

func (r Result[T]) Success() bool {
	return r.Kind == ""
}

func (r Result[T]) WithWarnings(warnings ...string) Result[T] {
	r.Warnings = append(r.Warnings, warnings...)
	return r
}

// Messages returns the field errors if any, otherwise the top level error
func (r Result[T]) Messages() []string {
	if len(r.Errors) > 0 {
		return r.Errors
	}
	if r.Err != "" {
		return []string{r.Err}
	}
	return nil
}

func (r Result[T]) Error() string {
	if r.Success() {
		return ""
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Err)
}
