package diag

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
)

// Logger stamps every line with a short build id shared by every
// component of a single compile, so a pass's output can be grepped out
// of a pipeline that fans one source function into dozens of CPS
// chunks.
type Logger struct {
	buildID string
	start   time.Time
	out     *log.Logger
}

// NewLogger creates a Logger writing to w, or os.Stderr if w is nil.
func NewLogger(w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{
		buildID: uuid.New().String()[:8],
		start:   time.Now(),
		out:     log.New(w, "", 0),
	}
}

// BuildID returns the id stamped on every line this Logger emits.
func (l *Logger) BuildID() string { return l.buildID }

// Logf emits a structured, greppable line: build id, elapsed time,
// component, then the formatted message as trailing context.
func (l *Logger) Logf(component, format string, args ...any) {
	elapsed := time.Since(l.start)
	msg := fmt.Sprintf(format, args...)
	l.out.Printf("build=%s elapsed=%s component=%s msg=%q", l.buildID, elapsed.Round(time.Millisecond), component, msg)
}
