package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// fixedLevel implements slog.Leveler for a level that does not track the
// process-wide LevelVar (the stderr handler is pinned to ERROR regardless
// of the operational log level).
type fixedLevel slog.Level

func (f fixedLevel) Level() slog.Level { return slog.Level(f) }

func newHandler(format string, w io.Writer, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// fanoutHandler dispatches each record to every handler whose own level
// accepts it, modeling multiple attached handlers on one logger.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: hs}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: hs}
}

// Snapshot captures the operational logger's handler and level at a point
// in time, so it can be restored later without accumulating state across
// many redirects. Take exactly one Snapshot at executor start; taking a
// fresh one per task would leak the previous task's job-file handlers
// into the "restored" state.
type Snapshot struct {
	logger *slog.Logger
	level  slog.Level
}

// TakeSnapshot captures the current operational logger and level.
func TakeSnapshot() Snapshot {
	return Snapshot{logger: Op(), level: logLevel.Level()}
}

// Restore reinstalls the snapshotted logger and level.
func (s Snapshot) Restore() {
	logLevel.Set(s.level)
	opLogger.Store(s.logger)
}

// Equal reports whether two snapshots hold the same logger and level. Tests
// compare a snapshot with a fresh TakeSnapshot() to assert the logger
// returns to its starting state after a job redirect.
func (s Snapshot) Equal(other Snapshot) bool {
	return s.logger == other.logger && s.level == other.level
}

// JobRedirect holds the open job-output files for one task's logger
// redirect, closed by Close once the task finishes.
type JobRedirect struct {
	stdout *os.File
	stderr *os.File
}

// RedirectToJob swaps the operational logger to two file handlers for the
// duration of one task: job-stdout at the given (snapshotted) level,
// job-stderr pinned at ERROR, both using the same formatter the
// operational logger was configured with. Callers must call Close when
// the task finishes and then Snapshot.Restore to undo the swap.
func RedirectToJob(stdoutPath, stderrPath string, level slog.Level) (*JobRedirect, error) {
	format := "text"
	if p := currentFormat.Load(); p != nil {
		format = *p
	}

	outF, err := os.OpenFile(stdoutPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open job stdout %s: %w", stdoutPath, err)
	}
	errF, err := os.OpenFile(stderrPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		outF.Close()
		return nil, fmt.Errorf("logging: open job stderr %s: %w", stderrPath, err)
	}

	outHandler := newHandler(format, outF, fixedLevel(level))
	errHandler := newHandler(format, errF, fixedLevel(slog.LevelError))

	opLogger.Store(slog.New(&fanoutHandler{handlers: []slog.Handler{outHandler, errHandler}}))

	return &JobRedirect{stdout: outF, stderr: errF}, nil
}

// Close closes the job's file handles. It does not restore the logger;
// call Snapshot.Restore for that.
func (j *JobRedirect) Close() {
	if j == nil {
		return
	}
	j.stdout.Close()
	j.stderr.Close()
}
