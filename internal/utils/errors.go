package utils

import "fmt"

// AppError tags a failure with the pipeline stage that produced it.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// WrapOp tags err with op and msg, passing nil through untouched.
func WrapOp(op, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Op: op, Msg: msg, Err: err}
}
