package executor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/compss-go/pipeworker/internal/cachetracker"
	"github.com/compss-go/pipeworker/internal/config"
	"github.com/compss-go/pipeworker/internal/dispatcher"
	"github.com/compss-go/pipeworker/internal/logging"
	"github.com/compss-go/pipeworker/internal/metrics"
	"github.com/compss-go/pipeworker/internal/observability"
	"github.com/compss-go/pipeworker/internal/pipe"
	"github.com/compss-go/pipeworker/internal/resource"
)

const (
	envNumNodes   = "COMPSS_NUM_NODES"
	envNumThreads = "COMPSS_NUM_THREADS"
	envOMPThreads = "OMP_NUM_THREADS"
)

// Executor is the persistent worker-side pipe executor of spec.md §4.9:
// a single-threaded command loop bound to one (input, output) pipe pair.
type Executor struct {
	Channel    *pipe.Channel
	Dispatcher dispatcher.Dispatcher
	Config     *config.Config
	Cache      cachetracker.Cacher
	Tracer     *observability.Sink
	Metrics    *metrics.Metrics

	// PostException is called with the literal "EXCEPTION" token when an
	// unhandled task failure or a fatal protocol error terminates the
	// loop (spec.md §4.11, the exception channel to the supervisor).
	PostException func(token string)

	startSnapshot logging.Snapshot
}

// New builds an Executor over ch, ready for Run. Callers are expected to
// have already bootstrapped the process (signal handler, logger
// rehydration, storage post-fork hook, streaming client) per spec.md
// §4.10 before calling Run.
func New(ch *pipe.Channel, d dispatcher.Dispatcher, cfg *config.Config, cache cachetracker.Cacher) *Executor {
	return &Executor{
		Channel:       ch,
		Dispatcher:    d,
		Config:        cfg,
		Cache:         cache,
		Tracer:        observability.NewSink(func() bool { return cfg.Tracing.Enabled }),
		Metrics:       metrics.Global(),
		PostException: func(string) {},
		startSnapshot: logging.TakeSnapshot(),
	}
}

// Run is the command loop: read → classify → dispatch → reply, until
// QUIT or a fatal error. It returns nil on a clean QUIT and a non-nil
// error on any fatal protocol violation (spec.md §7.1).
func (e *Executor) Run(ctx context.Context) error {
	retry := e.Config.Executor.PipeRetry
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}

	for {
		line, err := e.Channel.ReadCommand(retry)
		if err != nil {
			return fmt.Errorf("executor: reading command: %w", err)
		}
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}

		switch tokens[0] {
		case string(TagExecuteTask):
			if err := e.handleExecuteTask(ctx, tokens); err != nil {
				e.PostException("EXCEPTION")
				return err
			}
		case string(TagPing):
			if err := e.Channel.Write(string(TagPong)); err != nil {
				return err
			}
			e.Metrics.RecordPing()
		case string(TagQuit):
			if err := e.Channel.Write(string(TagQuit)); err != nil {
				return err
			}
			return nil
		default:
			e.PostException("EXCEPTION")
			return fmt.Errorf("executor: unexpected message %q", tokens[0])
		}
	}
}

// handleExecuteTask processes one EXECUTE_TASK command end to end. Any
// panic surfacing from parsing or dispatch is recovered here and turned
// into the same fatal-protocol-error path Run takes for a propagated
// error, satisfying "any unhandled failure here is posted to the
// supervisor queue... and the loop returns false" (spec.md §4.9).
func (e *Executor) handleExecuteTask(ctx context.Context, tokens []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor: panic handling EXECUTE_TASK: %v", r)
		}
	}()

	cmd, parseErr := ParseTaskCommand(tokens)
	if parseErr != nil {
		return parseErr
	}

	spanCtx, endSpan := e.Tracer.EnterSpan(ctx, "execute_task", observability.EventInsideWorker,
		observability.AttrJobID.String(cmd.JobID), observability.AttrTaskID.String(cmd.TaskID),
		observability.AttrModule.String(cmd.ModuleName), observability.AttrMethod.String(cmd.MethodName))
	defer endSpan()

	start := time.Now()

	cpuBound := resource.BindCPUs(cmd.CPUMask)
	if cmd.CPUMask != "" && cmd.CPUMask != resource.Unbound && !cpuBound {
		e.Metrics.RecordCPUBindFailure()
	}
	resource.BindGPUs(cmd.GPUMask)

	jobRedirect, logErr := logging.RedirectToJob(cmd.JobOut, cmd.JobErr, logging.CurrentLevel())
	if logErr != nil {
		resource.CleanEnvironment(cmd.CPUMask, cmd.GPUMask)
		return logErr
	}

	// cleanup restores the pre-task logger and unbinds CPU/GPU env vars.
	// It must run before the reply is written on the wire: a caller
	// observing endTask/compssExceptionTask for this job must already see
	// the job's env and logger torn down (spec.md §4.9). It is idempotent
	// so the deferred call below is a harmless no-op on the normal path,
	// where it already ran explicitly ahead of the reply write.
	cleaned := false
	cleanup := func() {
		if cleaned {
			return
		}
		cleaned = true
		jobRedirect.Close()
		e.startSnapshot.Restore()
		resource.CleanEnvironment(cmd.CPUMask, cmd.GPUMask)
	}
	defer cleanup()

	if ids, ok := resource.ObservedAffinity(); ok {
		e.Tracer.EmitCPUAffinity(spanCtx, true, ids)
	} else {
		e.Tracer.EmitCPUAffinity(spanCtx, false, nil)
	}
	if cmd.GPUMask != "" && cmd.GPUMask != resource.Unbound {
		gpuIDs, _ := resource.ParseCPUMask(cmd.GPUMask)
		e.Tracer.EmitGPUAffinity(spanCtx, gpuIDs)
	}

	os.Setenv(envNumNodes, strconv.Itoa(len(cmd.Hostnames)))
	os.Setenv(resource.EnvHostnames, strings.Join(cmd.Hostnames, ","))
	os.Setenv(envNumThreads, strconv.Itoa(cmd.ComputeUnits))
	os.Setenv(envOMPThreads, strconv.Itoa(cmd.ComputeUnits))

	records, recErr := cmd.ToRecords()
	if recErr != nil {
		return recErr
	}

	req := dispatcher.Request{
		ProcessName:    cmd.ModuleName,
		StorageConf:    cmd.StorageConf,
		ModuleName:     cmd.ModuleName,
		MethodName:     cmd.MethodName,
		Params:         records,
		HasTarget:      cmd.HasTarget,
		TracingEnabled: cmd.Tracing,
		Logger:         logging.Op(),
		JobOut:         cmd.JobOut,
		JobErr:         cmd.JobErr,
		CacheEnqueue:   e.Cache.Put,
		CacheLookup:    e.Cache.Lookup,
		Profiler:       e.Config.Executor.Profiler,
		Timeout:        time.Duration(cmd.Timeout) * time.Second,
	}

	res, dispatchErr := e.Dispatcher.Execute(spanCtx, req)
	if dispatchErr != nil {
		return dispatchErr
	}

	durationMs := time.Since(start).Milliseconds()
	cleanup()
	e.Tracer.SetOutcome(spanCtx, res.ExitValue, durationMs)

	switch {
	case res.ExitValue == dispatcher.ExitSuccess:
		e.Metrics.RecordTask(cmd.ModuleName, cmd.MethodName, durationMs, metrics.OutcomeSuccess)
		returns := make([]ReturnEncoding, len(res.NewTypes))
		for i, t := range res.NewTypes {
			v := ""
			if i < len(res.NewValues) {
				v = res.NewValues[i]
			}
			returns[i] = ReturnEncoding{NewType: t, NewValue: v}
		}
		return e.Channel.Write(SuccessReply(cmd.JobID, returns))
	case res.ExitValue == dispatcher.ExitDomainException:
		e.Metrics.RecordTask(cmd.ModuleName, cmd.MethodName, durationMs, metrics.OutcomeDomainException)
		return e.Channel.Write(DomainExceptionReply(cmd.JobID, res.ExceptionMessage))
	default:
		e.Metrics.RecordTask(cmd.ModuleName, cmd.MethodName, durationMs, metrics.OutcomeOtherException)
		return e.Channel.Write(OtherExceptionReply(cmd.JobID, res.ExitValue))
	}
}
