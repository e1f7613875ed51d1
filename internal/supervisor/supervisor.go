// Package supervisor implements the worker supervisor (SPEC_FULL.md
// §4.14, component C14): it forks a fixed-size pool of cmd/worker
// processes, each bound to its own pipe-file pair, and drains a shared
// exception FIFO, respawning any worker that posts to it. It is grounded
// on the teacher's cmd/agent persistent-process management
// (startPersistentProcess/stopPersistentProcess) generalized from one
// child to a pool, with the pool's bookkeeping map protected the way
// pool.Pool protects its own VM maps.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/compss-go/pipeworker/internal/exception"
	"github.com/compss-go/pipeworker/internal/logging"
	"github.com/google/uuid"
)

// WorkerSpec describes how to launch one worker process: the binary to
// exec, the base args, and the directory under which this worker's pipe
// files and job output directory are created.
type WorkerSpec struct {
	Binary  string
	Args    []string
	WorkDir string
}

// worker is one tracked child process.
type worker struct {
	id      string
	cmd     *exec.Cmd
	inPath  string
	outPath string
}

// exitReport is sent by a worker's wait goroutine when its process
// returns control, whether that was a clean exit, a crash, or a kill the
// supervisor itself issued.
type exitReport struct {
	id string
}

// Supervisor owns a pool of worker processes and the exception FIFO they
// share. PoolSize workers are kept alive at all times: a worker that
// posts to the FIFO, or whose process exits for any other reason, is
// replaced with a freshly-spawned one under a new id, matching the
// teacher's restart-in-place discipline for a crashed persistent
// process.
type Supervisor struct {
	spec      WorkerSpec
	poolSize  int
	pollEvery time.Duration
	excPath   string
	excReader *exception.Reader
	exited    chan exitReport

	mu      sync.Mutex
	workers map[string]*worker
}

// New builds a Supervisor. excPath is the exception FIFO path shared by
// every worker this supervisor spawns; poolSize workers are launched by
// Run.
func New(spec WorkerSpec, poolSize int, excPath string, pollEvery time.Duration) *Supervisor {
	if pollEvery <= 0 {
		pollEvery = 200 * time.Millisecond
	}
	return &Supervisor{
		spec:      spec,
		poolSize:  poolSize,
		pollEvery: pollEvery,
		excPath:   excPath,
		excReader: exception.NewReader(excPath),
		exited:    make(chan exitReport, poolSize+1),
		workers:   make(map[string]*worker),
	}
}

// Run launches the initial pool and blocks, draining the exception FIFO
// and respawning crashed or exited workers, until ctx is canceled. On
// return every tracked worker has been killed.
func (s *Supervisor) Run(ctx context.Context) error {
	for i := 0; i < s.poolSize; i++ {
		if _, err := s.spawn(); err != nil {
			s.killAll()
			return fmt.Errorf("supervisor: initial spawn %d: %w", i, err)
		}
	}

	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.killAll()
			return nil
		case er := <-s.exited:
			s.onExit(er.id)
		case <-ticker.C:
			reports, err := s.excReader.Drain()
			if err != nil {
				logging.Op().Warn("supervisor: exception drain failed", "err", err)
				continue
			}
			for _, r := range reports {
				s.respawn(r.WorkerID)
			}
		}
	}
}

// spawn starts one new worker process with a fresh id and pipe-file
// pair, registers it in the pool, and returns its id.
func (s *Supervisor) spawn() (string, error) {
	id := uuid.NewString()
	jobDir := filepath.Join(s.spec.WorkDir, id)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return "", fmt.Errorf("supervisor: create job dir %s: %w", jobDir, err)
	}

	inPath := filepath.Join(jobDir, "in")
	outPath := filepath.Join(jobDir, "out")

	args := append([]string{}, s.spec.Args...)
	args = append(args,
		"--worker-id", id,
		"--pipe-in", inPath,
		"--pipe-out", outPath,
		"--exception-fifo", s.excPath,
		"--job-dir", jobDir,
	)

	cmd := exec.Command(s.spec.Binary, args...)
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("supervisor: start worker %s: %w", id, err)
	}

	w := &worker{id: id, cmd: cmd, inPath: inPath, outPath: outPath}
	s.mu.Lock()
	s.workers[id] = w
	s.mu.Unlock()

	go func() {
		cmd.Wait()
		s.exited <- exitReport{id: id}
	}()

	logging.Op().Info("supervisor: spawned worker", "worker_id", id)
	return id, nil
}

// onExit handles a worker's process having returned, for any reason. A
// worker the supervisor itself killed (via respawn or killAll) is
// already untracked by the time its exit notification arrives, so this
// only replaces workers that died on their own.
func (s *Supervisor) onExit(id string) {
	s.mu.Lock()
	_, stillTracked := s.workers[id]
	if stillTracked {
		delete(s.workers, id)
	}
	s.mu.Unlock()

	if !stillTracked {
		return
	}

	logging.Op().Warn("supervisor: worker exited unexpectedly, respawning", "failed_worker_id", id)
	if _, err := s.spawn(); err != nil {
		logging.Op().Error("supervisor: respawn after exit failed", "failed_worker_id", id, "err", err)
	}
}

// respawn kills the named worker (if still tracked) and starts a
// replacement, satisfying I8: a worker that reports EXCEPTION is
// replaced within one poll interval.
func (s *Supervisor) respawn(id string) {
	s.mu.Lock()
	w, ok := s.workers[id]
	if ok {
		delete(s.workers, id)
	}
	s.mu.Unlock()

	if ok {
		logging.Op().Warn("supervisor: worker reported exception, killing", "worker_id", id)
		_ = w.cmd.Process.Kill()
	}

	if _, err := s.spawn(); err != nil {
		logging.Op().Error("supervisor: respawn failed", "failed_worker_id", id, "err", err)
	}
}

// killAll terminates every tracked worker. Called on shutdown.
func (s *Supervisor) killAll() {
	s.mu.Lock()
	workers := make([]*worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.workers = make(map[string]*worker)
	s.mu.Unlock()

	for _, w := range workers {
		_ = w.cmd.Process.Kill()
	}
	// Drain exit notifications for the workers just killed so the
	// channel does not accumulate stale reports across a Supervisor
	// that gets reused (it currently isn't, but draining here is cheap
	// and avoids a goroutine leak warning in race-detector runs).
	for range workers {
		<-s.exited
	}
}

// PoolSize reports the number of currently tracked workers, for tests
// and status reporting.
func (s *Supervisor) PoolSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workers)
}
