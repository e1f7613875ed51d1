//go:build linux

package resource

import (
	"log/slog"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// setAffinity pins every thread of the calling process to the given CPU
// ids via sched_setaffinity, one call per thread listed under
// /proc/self/task (a pid of 0 would pin only the calling thread). Returns
// false, logging the cause, on any failure rather than propagating an
// error: CPU binding is best-effort.
func setAffinity(cpuIDs []int) bool {
	if len(cpuIDs) == 0 {
		return true
	}
	var set unix.CPUSet
	set.Zero()
	for _, id := range cpuIDs {
		if id < 0 {
			slog.Warn("resource: negative cpu id, skipping affinity", "cpu", id)
			return false
		}
		set.Set(id)
	}
	tasks, err := os.ReadDir("/proc/self/task")
	if err != nil {
		slog.Warn("resource: listing process threads failed", "err", err)
		return false
	}
	for _, t := range tasks {
		tid, _ := strconv.Atoi(t.Name())
		if err := unix.SchedSetaffinity(tid, &set); err != nil && err != unix.ESRCH {
			slog.Warn("resource: sched_setaffinity failed", "tid", tid, "err", err)
			return false
		}
	}
	return true
}

// observedAffinity reads back the CPU affinity currently in effect,
// returning the cpu ids and count. Used by the executor loop to re-emit
// the observed binding as tracing point events rather than trusting the
// requested mask blindly.
func observedAffinity() ([]int, bool) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, false
	}
	var ids []int
	for i := 0; i < unix.CPU_SETSIZE; i++ {
		if set.IsSet(i) {
			ids = append(ids, i)
		}
	}
	return ids, true
}

// AffinityCapable reports whether this platform can answer CPU affinity
// queries at all, gating both binding calls and tracing emissions.
func AffinityCapable() bool { return true }
