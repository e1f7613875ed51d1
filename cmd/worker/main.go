// Command worker is the persistent pipe executor process (spec.md §4.9):
// one OS process, one (input, output) pipe pair, dispatching EXECUTE_TASK
// commands until QUIT or a fatal protocol error.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/compss-go/pipeworker/internal/cache"
	"github.com/compss-go/pipeworker/internal/cachetracker"
	"github.com/compss-go/pipeworker/internal/config"
	"github.com/compss-go/pipeworker/internal/dispatcher"
	"github.com/compss-go/pipeworker/internal/exception"
	"github.com/compss-go/pipeworker/internal/executor"
	"github.com/compss-go/pipeworker/internal/logging"
	"github.com/compss-go/pipeworker/internal/observability"
	"github.com/compss-go/pipeworker/internal/pipe"
	"github.com/compss-go/pipeworker/internal/streaming"
	"github.com/compss-go/pipeworker/internal/worker"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		configFile    string
		workerID      string
		pipeIn        string
		pipeOut       string
		exceptionFifo string
		jobDir        string
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run one persistent pipe executor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configFile != "" {
				var err error
				cfg, err = config.LoadFromFile(configFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
			}
			config.LoadFromEnv(cfg)

			logging.InitStructured(cfg.Logging.Format, cfg.Logging.Level)
			if jobDir != "" {
				cfg.Executor.TempDir = jobDir
			}

			if workerID == "" {
				return fmt.Errorf("--worker-id is required")
			}
			if pipeIn == "" || pipeOut == "" {
				return fmt.Errorf("--pipe-in and --pipe-out are required")
			}

			ctx := context.Background()

			// Tracing init and dispatcher assembly do not depend on each
			// other, so they fan out concurrently during bootstrap
			// rather than blocking one on the other.
			var g errgroup.Group
			g.Go(func() error {
				return observability.Init(ctx, observability.Config{
					Enabled:     cfg.Tracing.Enabled,
					Exporter:    cfg.Tracing.Exporter,
					Endpoint:    cfg.Tracing.Endpoint,
					ServiceName: cfg.Tracing.ServiceName,
					SampleRate:  cfg.Tracing.SampleRate,
				})
			})
			pd := dispatcher.NewProcessDispatcher()
			g.Go(func() error {
				for _, impl := range cfg.Implementations {
					pd.Register(impl.Module, impl.Method, dispatcher.Implementation{Binary: impl.Binary, Args: impl.Args})
				}
				return nil
			})
			if err := g.Wait(); err != nil {
				return fmt.Errorf("worker bootstrap: %w", err)
			}
			defer observability.Shutdown(context.Background())

			tracker := cachetracker.New(cfg.Cache.OpQueueDepth)
			defer tracker.Close()

			// cacheCache is the Cacher the executor gets: a plain
			// in-process tracker, or one mirrored to a shared Redis L2
			// when cfg.Cache.RedisAddr names one (SPEC_FULL.md §4.13).
			var cacheCache cachetracker.Cacher = tracker
			if cfg.Cache.Enabled && cfg.Cache.RedisAddr != "" {
				l2 := cache.NewRedisCache(cache.RedisCacheConfig{
					Addr:     cfg.Cache.RedisAddr,
					Password: cfg.Cache.RedisPassword,
					DB:       cfg.Cache.RedisDB,
				})
				defer l2.Close()
				cacheCache = tracker.WithL2(ctx, l2)
			}

			var excWriter *exception.Writer
			if exceptionFifo != "" {
				excWriter = exception.NewWriter(exceptionFifo, workerID)
			}
			postException := func(token string) {
				if excWriter != nil {
					_ = excWriter.Post(token)
				}
			}

			var backend streaming.Backend
			if cfg.Streaming.Enabled {
				backend = streaming.NoopBackend{}
			}
			session, err := worker.Bootstrap(cfg, nil, backend, postException)
			if err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			defer session.Close()

			ch := pipe.New(pipeIn, pipeOut)
			exec := executor.New(ch, pd, cfg, cacheCache)
			exec.PostException = postException

			return exec.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "path to JSON config file")
	cmd.Flags().StringVar(&workerID, "worker-id", "", "unique id for this worker, reported on the exception FIFO")
	cmd.Flags().StringVar(&pipeIn, "pipe-in", "", "input FIFO path")
	cmd.Flags().StringVar(&pipeOut, "pipe-out", "", "output FIFO path")
	cmd.Flags().StringVar(&exceptionFifo, "exception-fifo", "", "exception FIFO path shared with the supervisor")
	cmd.Flags().StringVar(&jobDir, "job-dir", "", "directory for this worker's per-task job files")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
