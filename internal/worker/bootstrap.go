// Package worker implements the worker-side process bootstrap (spec.md
// §4.10, component C10): everything that must happen once, before an
// Executor's command loop starts, and once more, on teardown.
package worker

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/compss-go/pipeworker/internal/config"
	"github.com/compss-go/pipeworker/internal/logging"
	"github.com/compss-go/pipeworker/internal/streaming"
)

// Role mirrors the binding's process-role flag (set_pycompss_context in
// the original implementation): code elsewhere in the process can ask
// "am I a worker" without threading a context value through every call.
type Role int32

const (
	RoleUnset Role = iota
	RoleWorker
	RoleMaster
)

var currentRole atomic.Int32

// SetRole places the process in the given role. Bootstrap calls
// SetRole(RoleWorker) once the executor is about to start its loop.
func SetRole(r Role) { currentRole.Store(int32(r)) }

// CurrentRole reports the role set by the most recent SetRole call.
func CurrentRole() Role { return Role(currentRole.Load()) }

// PostForkHook is the storage collaborator's optional post-fork
// initialization call (the original implementation's
// storage.api.initWorkerPostFork). Its absence is not an error: a
// PostForkHook is only registered when a persistent storage backend is
// configured.
type PostForkHook interface {
	InitWorkerPostFork() error
}

// PostForkHookFunc adapts a plain function to PostForkHook.
type PostForkHookFunc func() error

func (f PostForkHookFunc) InitWorkerPostFork() error { return f() }

// Session holds everything the bootstrap produced that the caller must
// tear down: the SIGTERM handler and the streaming client, if one was
// started. It holds no logger snapshot; the executor takes its own at
// construction, since RedirectToJob happens per task, not here.
type Session struct {
	Streaming *streaming.Client

	raiseException func(token string)
	sigCh          chan os.Signal
}

// Bootstrap runs the one-time worker startup sequence: installs the
// SIGTERM handler, reloads the logger if the fork did not inherit
// handlers, places the process in WORKER role, best-effort invokes the
// storage post-fork hook, and starts the streaming client if configured.
// exceptionPost is called with exception.Token when SIGTERM arrives,
// converting the signal into the same "unhandled failure" path
// handleExecuteTask uses, rather than letting the process die raw
// (spec.md §5: "SIGTERM is converted into a raised exception at the next
// safe point").
func Bootstrap(cfg *config.Config, hook PostForkHook, backend streaming.Backend, exceptionPost func(token string)) (*Session, error) {
	s := &Session{raiseException: exceptionPost}
	s.installSignalHandler()

	if noInheritedHandlers() {
		logging.Op().Info("worker: logger has no inherited handlers, reloading", "temp_dir", cfg.Executor.TempDir)
		logging.InitStructured(cfg.Logging.Format, cfg.Logging.Level)
	}

	SetRole(RoleWorker)

	if cfg.Executor.PersistentStorage && hook != nil {
		if err := hook.InitWorkerPostFork(); err != nil {
			logging.Op().Info("worker: initWorkerPostFork unavailable, ignoring", "err", err)
		}
	}

	if cfg.Streaming.Enabled {
		if backend == nil {
			return nil, fmt.Errorf("worker: streaming enabled but no backend supplied")
		}
		s.Streaming = streaming.NewClient(cfg.Streaming.MasterIP, cfg.Streaming.MasterPort, backend)
	}

	return s, nil
}

// noInheritedHandlers always reports false: Go's slog has no concept of
// "inherited handlers" surviving a fork the way Python's logging module
// does, since exec-based process spawn (not fork+exec of the same image)
// is how cmd/supervisor launches cmd/worker. The hook is kept, matching
// the teacher's own documented macOS workaround, in case a future
// supervisor mode forks instead of exec's.
func noInheritedHandlers() bool { return false }

// installSignalHandler converts SIGTERM into raiseException("EXCEPTION")
// instead of the default terminate-the-process behavior, so the
// executor loop gets a chance to unwind (close files, write no more
// replies) before exiting. The handler itself only sets a flag via the
// channel send; all the real work happens on the goroutine below, never
// inside the signal delivery path, per spec.md §5 ("raw signal handlers
// must not allocate or do I/O beyond setting a flag / raising").
func (s *Session) installSignalHandler() {
	s.sigCh = make(chan os.Signal, 1)
	signal.Notify(s.sigCh, syscall.SIGTERM)
	go func() {
		if _, ok := <-s.sigCh; !ok {
			return
		}
		logging.Op().Warn("worker: SIGTERM received, raising exception")
		if s.raiseException != nil {
			s.raiseException("EXCEPTION")
		}
	}()
}

// Close stops the streaming client (if one was started) and the signal
// handler goroutine.
func (s *Session) Close() {
	if s.Streaming != nil {
		s.Streaming.SetStop()
	}
	signal.Stop(s.sigCh)
	close(s.sigCh)
}
