// Package resource scopes CPU affinity and GPU visibility to a task's
// duration via process environment variables (and, on Linux, a real
// affinity syscall).
package resource

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Unbound is the sentinel meaning "this task requested no binding for this
// resource".
const Unbound = "-"

const (
	EnvBindedCPUs      = "COMPSS_BINDED_CPUS"
	EnvBindedGPUs      = "COMPSS_BINDED_GPUS"
	EnvCUDAVisible     = "CUDA_VISIBLE_DEVICES"
	EnvGPUDeviceOrdinal = "GPU_DEVICE_ORDINAL"
	EnvHostnames       = "COMPSS_HOSTNAMES"
)

// ParseCPUMask parses a comma-separated CPU-id list such as "0,1,4".
func ParseCPUMask(mask string) ([]int, error) {
	if mask == "" || mask == Unbound {
		return nil, nil
	}
	parts := strings.Split(mask, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("resource: invalid cpu id %q in mask %q: %w", p, mask, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// BindCPUs parses mask and attempts to set the process's CPU affinity to
// it, then records it in COMPSS_BINDED_CPUS. A failure to set affinity is
// never fatal: the task still runs (with whatever affinity it already
// had), but a warning is logged. The returned bool reports whether the
// affinity syscall actually succeeded, so callers (tracing) can avoid
// claiming a binding that did not take effect.
func BindCPUs(mask string) bool {
	if mask == "" || mask == Unbound {
		return false
	}
	ids, err := ParseCPUMask(mask)
	if err != nil {
		slog.Warn("resource: could not parse cpu mask, skipping affinity", "mask", mask, "err", err)
		os.Setenv(EnvBindedCPUs, mask)
		return false
	}

	ok := setAffinity(ids)
	if !ok {
		slog.Warn("resource: setting cpu affinity failed, continuing with default affinity", "mask", mask)
	}
	os.Setenv(EnvBindedCPUs, mask)
	return ok
}

// BindGPUs sets the three GPU-visibility env vars verbatim to mask. There
// is no kernel affinity call for GPUs: visibility is scoped purely through
// environment, the way the hosting container/CUDA runtime expects.
func BindGPUs(mask string) {
	if mask == "" || mask == Unbound {
		return
	}
	os.Setenv(EnvBindedGPUs, mask)
	os.Setenv(EnvCUDAVisible, mask)
	os.Setenv(EnvGPUDeviceOrdinal, mask)
}

// ObservedAffinity returns the CPU ids currently in the process's
// affinity set and whether the platform could answer the query at all.
// Callers must not emit a cpu-affinity tracing event when the second
// return is false: doing so would claim a binding state this platform
// cannot verify.
func ObservedAffinity() ([]int, bool) {
	if !AffinityCapable() {
		return nil, false
	}
	return observedAffinity()
}

// CleanEnvironment unsets every variable that BindCPUs/BindGPUs set, but
// only if the corresponding mask was not the Unbound sentinel (leaving
// variables the task never touched alone). COMPSS_HOSTNAMES is always
// unset regardless of binding, matching the node-list env the executor
// loop sets per task.
func CleanEnvironment(cpuMask, gpuMask string) {
	if cpuMask != "" && cpuMask != Unbound {
		os.Unsetenv(EnvBindedCPUs)
	}
	if gpuMask != "" && gpuMask != Unbound {
		os.Unsetenv(EnvBindedGPUs)
		os.Unsetenv(EnvCUDAVisible)
		os.Unsetenv(EnvGPUDeviceOrdinal)
	}
	os.Unsetenv(EnvHostnames)
}
