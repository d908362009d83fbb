package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/miradorstack/mirador-anomaly/internal/utils"
)

// Sink persists a rendered report and returns where it went.
type Sink interface {
	Write(ctx context.Context, report string) (string, error)
}

// FileSink writes each report to <dir>/anomaly_report_<unix seconds>.txt.
type FileSink struct {
	dir string
	now func() time.Time
}

// NewFileSink constructs a FileSink rooted at dir ("." when empty).
func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = "."
	}
	return &FileSink{dir: dir, now: time.Now}
}

// Write creates the report file, creating dir if needed.
func (s *FileSink) Write(ctx context.Context, report string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", utils.NewAppError("sink.write", "create report dir", err)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("anomaly_report_%d.txt", s.now().Unix()))
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return "", utils.NewAppError("sink.write", "write report", err)
	}
	return path, nil
}

// Discard drops reports; used when file output is disabled.
type Discard struct{}

// Write does nothing.
func (Discard) Write(context.Context, string) (string, error) { return "", nil }
