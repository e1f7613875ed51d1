// Package dispatcher is the executor's adapter to the task dispatcher
// (spec.md §4.8, component C8): the opaque routine that materializes the
// task call, converts parameters, invokes the user function, and returns
// the resulting type/value deltas. The native task-implementation
// registry itself is out of scope (spec.md §1); this package only fixes
// the contract the executor loop calls through.
package dispatcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/compss-go/pipeworker/internal/param"
)

// Exit-value contract (spec.md §4.8): 0 success, 2 domain exception
// (COMPSsException), anything else an unexpected exception.
const (
	ExitSuccess         = 0
	ExitDomainException = 2
)

// Request bundles everything the task dispatcher needs: process name,
// storage config, the EXECUTE_TASK tail (module/method/params onward),
// tracing flag, job logger, the job's (out, err) file pair, the cache
// queue/id-map pair, and the profiler flag.
type Request struct {
	ProcessName      string
	StorageConf      string
	ModuleName       string
	MethodName       string
	Params           []param.Record
	HasTarget        bool
	TracingEnabled   bool
	Logger           *slog.Logger
	JobOut           string
	JobErr           string
	CacheEnqueue     func(id, descriptor string)
	CacheLookup      func(id string) (string, bool)
	Profiler         bool
	Timeout          time.Duration
}

// Result is the (exit_value, new_types, new_values, timed_out,
// exception_message) tuple spec.md §4.8 names as the dispatcher's output.
type Result struct {
	ExitValue        int
	NewTypes         []param.ContentType
	NewValues        []string
	TimedOut         bool
	ExceptionMessage string
}

// Dispatcher is the contract the executor loop calls through for every
// EXECUTE_TASK. Implementations are external collaborators: this package
// defines only the shape, per spec.md's explicit scoping of the native
// task-implementation registry as out of scope.
type Dispatcher interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// Func adapts a plain function to the Dispatcher interface, mirroring the
// standard library's http.HandlerFunc pattern.
type Func func(ctx context.Context, req Request) (Result, error)

func (f Func) Execute(ctx context.Context, req Request) (Result, error) { return f(ctx, req) }
