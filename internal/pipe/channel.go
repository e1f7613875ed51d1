// Package pipe implements the blocking, line-framed bidirectional channel
// an executor uses to talk to the native runtime: one filesystem FIFO for
// commands in, one for replies out.
package pipe

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Channel is one executor's (input, output) pipe pair. The input handle is
// opened lazily on first read so that construction never blocks on the
// runtime's writer being ready.
type Channel struct {
	inPath  string
	outPath string

	mu     sync.Mutex
	in     *os.File
	reader *bufio.Reader
	closed bool
}

// New returns a Channel bound to the given FIFO paths. Neither is opened
// yet.
func New(inPath, outPath string) *Channel {
	return &Channel{inPath: inPath, outPath: outPath}
}

func (c *Channel) ensureOpenLocked() error {
	if c.in != nil {
		return nil
	}
	f, err := os.OpenFile(c.inPath, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("pipe: open input %s: %w", c.inPath, err)
	}
	c.in = f
	c.reader = bufio.NewReader(f)
	return nil
}

// ReadCommand returns the next newline-terminated record on the input
// pipe. On EOF (the writer has nothing buffered right now) it sleeps
// retry once and tries again; if still at EOF it returns an empty string
// meaning "no command yet" rather than an error. This is a single retry,
// not a loop: the runtime's writer may legitimately close transiently
// during startup, but a persistent EOF means the caller should poll again
// on its own schedule.
func (c *Channel) ReadCommand(retry time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", fmt.Errorf("pipe: read on closed channel")
	}
	if err := c.ensureOpenLocked(); err != nil {
		return "", err
	}

	line, err := c.reader.ReadString('\n')
	if err == nil {
		return strings.TrimRight(line, "\n"), nil
	}
	if err != io.EOF {
		return "", fmt.Errorf("pipe: read %s: %w", c.inPath, err)
	}
	if line != "" {
		return strings.TrimRight(line, "\n"), nil
	}

	time.Sleep(retry)

	line, err = c.reader.ReadString('\n')
	if err == nil {
		return strings.TrimRight(line, "\n"), nil
	}
	if err != io.EOF {
		return "", fmt.Errorf("pipe: read %s: %w", c.inPath, err)
	}
	return strings.TrimRight(line, "\n"), nil
}

// Write appends msg + "\n" to the output pipe, opening and closing it for
// this single call so each write is atomic at line granularity.
func (c *Channel) Write(msg string) error {
	f, err := os.OpenFile(c.outPath, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("pipe: open output %s: %w", c.outPath, err)
	}
	defer f.Close()

	if _, err := io.WriteString(f, msg+"\n"); err != nil {
		return fmt.Errorf("pipe: write %s: %w", c.outPath, err)
	}
	return nil
}

// Close closes the input handle if it was opened. Idempotent.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.in == nil {
		return nil
	}
	if err := c.in.Close(); err != nil {
		slog.Warn("pipe: error closing input handle", "path", c.inPath, "err", err)
		return err
	}
	return nil
}
