package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Implementation is one registered (module, method) -> executable binding.
// Binary is invoked with Args, followed by each parameter's string value
// in order. This is the concrete stand-in for the native task registry
// spec.md treats as an opaque external collaborator — real deployments
// replace it with the runtime's own dispatch, but the executor loop's
// contract is identical either way.
type Implementation struct {
	Binary string
	Args   []string
}

// ProcessDispatcher runs registered implementations as child processes,
// the way the teacher's docker.Manager shells out to "docker" via
// exec.CommandContext and reports CombinedOutput on failure.
type ProcessDispatcher struct {
	registry map[string]Implementation
}

// NewProcessDispatcher builds a dispatcher with no registered
// implementations; callers call Register for every (module, method) pair
// the worker should be able to run.
func NewProcessDispatcher() *ProcessDispatcher {
	return &ProcessDispatcher{registry: make(map[string]Implementation)}
}

// Register binds a (module, method) pair to a binary invocation.
func (d *ProcessDispatcher) Register(module, method string, impl Implementation) {
	d.registry[key(module, method)] = impl
}

func key(module, method string) string { return module + "." + method }

// Execute runs the registered implementation for req.ModuleName /
// req.MethodName, mapping the child process's exit onto the dispatcher's
// exit-value contract: a zero exit is success; a non-zero exit whose
// combined stdout/stderr holds a line starting with "COMPSS_EXCEPTION:"
// is a domain exception (exit value 2, the rest of that line as the
// message); any other non-zero exit is reported with its own exit code,
// as unexpected. A context deadline (from req.Timeout) that
// expires before the process exits is reported as TimedOut with exit
// value 1.
func (d *ProcessDispatcher) Execute(ctx context.Context, req Request) (Result, error) {
	impl, ok := d.registry[key(req.ModuleName, req.MethodName)]
	if !ok {
		return Result{}, fmt.Errorf("dispatcher: no implementation registered for %s.%s", req.ModuleName, req.MethodName)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	args := append([]string{}, impl.Args...)
	for _, p := range req.Params {
		args = append(args, fmt.Sprint(p.Content))
	}

	cmd := exec.CommandContext(ctx, impl.Binary, args...)
	out, err := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return Result{ExitValue: 1, TimedOut: true, ExceptionMessage: "task exceeded its timeout"}, nil
	}

	if err == nil {
		return Result{ExitValue: ExitSuccess}, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return Result{}, fmt.Errorf("dispatcher: launching %s: %w", impl.Binary, err)
	}

	if msg, isDomain := domainException(out); isDomain {
		return Result{ExitValue: ExitDomainException, ExceptionMessage: msg}, nil
	}

	return Result{ExitValue: exitErr.ExitCode()}, nil
}

const domainExceptionPrefix = "COMPSS_EXCEPTION:"

func domainException(output []byte) (string, bool) {
	for _, line := range strings.Split(string(output), "\n") {
		if strings.HasPrefix(line, domainExceptionPrefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, domainExceptionPrefix)), true
		}
	}
	return "", false
}
