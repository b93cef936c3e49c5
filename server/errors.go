package server

import (
	"errors"

	"github.com/crmarques/rossync/faults"
)

// ListPayloadShapeError marks a list response that is not a paginated
// {"results": [...]} envelope of objects.
type ListPayloadShapeError struct {
	err error
}

func (e *ListPayloadShapeError) Error() string {
	if e == nil || e.err == nil {
		return "<nil>"
	}
	return e.err.Error()
}

func (e *ListPayloadShapeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

func NewListPayloadShapeError(message string, cause error) error {
	return &ListPayloadShapeError{
		err: faults.NewTypedError(faults.ParseError, message, cause),
	}
}

func IsListPayloadShapeError(err error) bool {
	var target *ListPayloadShapeError
	return errors.As(err, &target)
}
