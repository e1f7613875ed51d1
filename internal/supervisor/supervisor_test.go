package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/compss-go/pipeworker/internal/exception"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sleepySpec launches a shell that sleeps, standing in for a real
// cmd/worker binary: the supervisor only cares about the child's pid and
// exit status, not what it actually does.
func sleepySpec(t *testing.T, sleep string) (WorkerSpec, string) {
	t.Helper()
	workDir := t.TempDir()
	excPath := filepath.Join(workDir, "exceptions")
	return WorkerSpec{
		Binary:  "/bin/sh",
		Args:    []string{"-c", "sleep " + sleep},
		WorkDir: workDir,
	}, excPath
}

func TestRunSpawnsPoolOfRequestedSize(t *testing.T) {
	spec, excPath := sleepySpec(t, "5")
	s := New(spec, 3, excPath, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, s.PoolSize())

	<-done
}

func TestRunRespawnsWorkerThatPostsException(t *testing.T) {
	spec, excPath := sleepySpec(t, "5")
	s := New(spec, 1, excPath, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, 1, s.PoolSize())

	s.mu.Lock()
	var failedID string
	for id := range s.workers {
		failedID = id
	}
	s.mu.Unlock()
	require.NotEmpty(t, failedID)

	w := exception.NewWriter(excPath, failedID)
	require.NoError(t, w.Post(exception.Token))

	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, stillThere := s.workers[failedID]
		return !stillThere && len(s.workers) == 1
	}, 150*time.Millisecond, 5*time.Millisecond)

	<-done
}

func TestRunKillsAllWorkersOnContextCancel(t *testing.T) {
	spec, excPath := sleepySpec(t, "30")
	s := New(spec, 2, excPath, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, 2, s.PoolSize())

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, s.PoolSize())
}

func TestNewDefaultsNonPositivePollInterval(t *testing.T) {
	s := New(WorkerSpec{Binary: "/bin/true", WorkDir: t.TempDir()}, 0, filepath.Join(os.TempDir(), "nope"), 0)
	assert.Equal(t, 200*time.Millisecond, s.pollEvery)
}
