package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger writing to w at the given level, with
// timestamps formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs the completion of one long-running operation, such as
// relocating a wheel, with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress starts timing an operation.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time rounded to the millisecond and any
// extra key/value pairs.
// Example output: "14:32:01.45 INFO Relocated demo.whl elapsed=1.234s copied=3"
func (p *progress) done(msg string, keyvals ...any) {
	kv := append([]any{"elapsed", time.Since(p.start).Round(time.Millisecond)}, keyvals...)
	p.logger.Info(msg, kv...)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context carrying l.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default() when there is none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
