package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error has stack trace of origin and values to describe context of the error.
type Error struct {
	cause  error
	Values map[string]interface{}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new Error with message and stack trace.
func New(msg string) *Error {
	return &Error{
		cause:  errors.New(msg),
		Values: make(map[string]interface{}),
	}
}

// Wrap creates a new Error that wraps err with msg. If err is already *Error,
// values of err are inherited.
func Wrap(err error, msg string) *Error {
	values := make(map[string]interface{})
	if e, ok := err.(*Error); ok {
		for k, v := range e.Values {
			values[k] = v
		}
		return &Error{
			cause:  errors.WithMessage(e, msg),
			Values: values,
		}
	}

	return &Error{
		cause:  errors.Wrap(err, msg),
		Values: values,
	}
}

// With adds a pair of key and value to the error.
func (x *Error) With(key string, value interface{}) *Error {
	x.Values[key] = value
	return x
}

func (x *Error) Error() string {
	return x.cause.Error()
}

// Unwrap returns wrapped error to support errors.Is and errors.As.
func (x *Error) Unwrap() error {
	return x.cause
}

// StackTrace returns stack trace of the point where the error was created first.
func (x *Error) StackTrace() string {
	var st stackTracer
	var err error = x.cause
	for err != nil {
		if s, ok := err.(stackTracer); ok {
			st = s
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}

	if st == nil {
		return ""
	}
	return fmt.Sprintf("%+v", st.StackTrace())
}

// Is is a wrapper of errors.Is of standard package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a wrapper of errors.As of standard package.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
