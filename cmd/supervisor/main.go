// Command supervisor launches and supervises a fixed-size pool of
// cmd/worker processes (SPEC_FULL.md §4.14): it forks the pool, watches
// the shared exception FIFO, and respawns any worker that reports
// trouble or exits unexpectedly.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/compss-go/pipeworker/internal/logging"
	"github.com/compss-go/pipeworker/internal/supervisor"
	"github.com/spf13/cobra"
)

func main() {
	var (
		poolSize   int
		workDir    string
		workerBin  string
		configFile string
		pollEvery  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "supervisor",
		Short: "Fork and supervise a pool of persistent pipe executors",
		RunE: func(cmd *cobra.Command, args []string) error {
			if poolSize <= 0 {
				return fmt.Errorf("--pool-size must be positive")
			}
			if err := os.MkdirAll(workDir, 0o755); err != nil {
				return fmt.Errorf("create work dir %s: %w", workDir, err)
			}

			var workerArgs []string
			if configFile != "" {
				workerArgs = append(workerArgs, "--config", configFile)
			}

			excPath := filepath.Join(workDir, "exceptions")
			sup := supervisor.New(supervisor.WorkerSpec{
				Binary:  workerBin,
				Args:    workerArgs,
				WorkDir: workDir,
			}, poolSize, excPath, pollEvery)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				logging.Op().Info("supervisor: shutdown signal received")
				cancel()
			}()

			logging.Op().Info("supervisor: starting pool", "pool_size", poolSize, "work_dir", workDir)
			return sup.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&poolSize, "pool-size", 4, "number of persistent worker processes to keep alive")
	cmd.Flags().StringVar(&workDir, "work-dir", "", "base directory for per-worker pipe files and job dirs")
	cmd.Flags().StringVar(&workerBin, "worker-bin", "worker", "path to the cmd/worker binary")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path passed through to every spawned worker")
	cmd.Flags().DurationVar(&pollEvery, "poll-interval", 200*time.Millisecond, "how often to drain the exception FIFO")
	cmd.MarkFlagRequired("work-dir")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
