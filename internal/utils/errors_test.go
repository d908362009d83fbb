package utils

import (
	"errors"
	"testing"
)

func TestAppErrorWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := NewAppError("sink.write", "write report", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
	if got := err.Error(); got != "sink.write: write report: disk full" {
		t.Fatalf("unexpected message: %s", got)
	}

	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Op != "sink.write" {
		t.Fatalf("expected AppError with op, got %+v", err)
	}
}

func TestAppErrorWithoutCause(t *testing.T) {
	err := NewAppError("detect", "no samples", nil)
	if got := err.Error(); got != "detect: no samples" {
		t.Fatalf("unexpected message: %s", got)
	}
}

func TestWrapOpNil(t *testing.T) {
	if err := WrapOp("source", "fetch", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := WrapOp("source", "fetch", errors.New("boom")); err == nil {
		t.Fatalf("expected wrapped error")
	}
}
