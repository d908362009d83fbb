package sink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/miradorstack/mirador-anomaly/internal/utils"
)

func TestFileSinkWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	s := NewFileSink(dir)
	s.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	path, err := s.Write(context.Background(), "report body")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(dir, "anomaly_report_1700000000.txt"); path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if string(data) != "report body" {
		t.Fatalf("unexpected contents: %q", data)
	}
}

func TestFileSinkFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	_, err := NewFileSink(filepath.Join(blocker, "reports")).Write(context.Background(), "x")
	var appErr *utils.AppError
	if !errors.As(err, &appErr) || appErr.Op != "sink.write" {
		t.Fatalf("expected sink AppError, got %v", err)
	}
}

func TestDiscard(t *testing.T) {
	path, err := Discard{}.Write(context.Background(), "x")
	if err != nil || path != "" {
		t.Fatalf("unexpected discard result: %q %v", path, err)
	}
}
