// Package config loads the executor's read-only configuration: the
// "Executor configuration" record from the parameter/core-element model
// plus the ambient logging/tracing/metrics/streaming/cache settings
// layered around it. Loading follows the teacher's own pattern — a
// Default() constructor, a JSON file overlay, then environment-variable
// overrides — so precedence is always flags-absent < file < env.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig controls the operational logger's format/level and the
// per-job file-redirect behavior described in spec.md §4.5.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
}

// TracingConfig controls the tracing sink (spec.md §4.6). When Enabled is
// false every span/point-event call on the sink is a no-op.
type TracingConfig struct {
	Enabled     bool    `json:"enabled"`
	Exporter    string  `json:"exporter"`     // otlp-http, stdout
	Endpoint    string  `json:"endpoint"`     // host:port of the collector
	ServiceName string  `json:"service_name"` // resource attribute
	SampleRate  float64 `json:"sample_rate"`
}

// MetricsConfig holds the executor-loop Prometheus/JSON metrics settings.
// It is loaded from file and environment, but no package other than
// config reads it: cmd/worker neither calls metrics.InitPrometheus nor
// serves the metrics HTTP handlers.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace"`
}

// StreamingConfig is the (master_ip, master_port) pair the streaming
// client (spec.md §4.7) is bootstrapped with, plus the backend name the
// config-loader advertises it for.
type StreamingConfig struct {
	Enabled     bool          `json:"enabled"`
	Backend     string        `json:"backend"` // e.g. "dataclay", "objects"
	MasterIP    string        `json:"master_ip"`
	MasterPort  int           `json:"master_port"`
	PollTimeout time.Duration `json:"poll_timeout"`
}

// ResourceConfig holds DefaultMPIProcs, a default MPI process count in the
// form coreelement.ResolveProcs takes as its defaultProcs argument. No
// package other than config reads it; the resource binder does not.
type ResourceConfig struct {
	DefaultMPIProcs int `json:"default_mpi_procs"`
}

// CacheConfig controls the cache-id tracker (SPEC_FULL §4.13): an L1
// in-process map, an optional Redis L2 shared across executors on the
// same node, and the bounded op queue depth.
type CacheConfig struct {
	Enabled       bool   `json:"enabled"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	OpQueueDepth  int    `json:"op_queue_depth"`
}

// ExecutorConfig is the "Executor configuration" record of spec.md §3:
// read-only after construction, handed to every EXECUTE_TASK.
type ExecutorConfig struct {
	Debug             bool          `json:"debug"`
	TempDir           string        `json:"temp_dir"`
	StorageConf       string        `json:"storage_conf"`
	PersistentStorage bool          `json:"persistent_storage"`
	StorageLoggers    []string      `json:"storage_loggers"`
	Profiler          bool          `json:"profiler"`
	PipeRetry         time.Duration `json:"pipe_retry"`
}

// ImplementationConfig binds one (module, method) pair to the external
// binary the process dispatcher (spec.md §4.8) should invoke for it —
// the config-file stand-in for the native task-implementation registry,
// which spec.md treats as an opaque collaborator outside this binding's
// scope.
type ImplementationConfig struct {
	Module string   `json:"module"`
	Method string   `json:"method"`
	Binary string   `json:"binary"`
	Args   []string `json:"args"`
}

// Config is the top-level executor configuration, assembled the way the
// teacher assembles its daemon Config: one root struct embedding one
// struct per concern.
type Config struct {
	Executor        ExecutorConfig         `json:"executor"`
	Logging         LoggingConfig          `json:"logging"`
	Tracing         TracingConfig          `json:"tracing"`
	Metrics         MetricsConfig          `json:"metrics"`
	Streaming       StreamingConfig        `json:"streaming"`
	Resource        ResourceConfig         `json:"resource"`
	Cache           CacheConfig            `json:"cache"`
	Implementations []ImplementationConfig `json:"implementations"`
}

// Default returns a Config with sensible defaults — no streaming, no
// tracing, an in-process cache tracker, INFO-level text logging.
func Default() *Config {
	return &Config{
		Executor: ExecutorConfig{
			Debug:             false,
			TempDir:           os.TempDir(),
			PersistentStorage: false,
			Profiler:          false,
			PipeRetry:         50 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    "otlp-http",
			Endpoint:    "localhost:4318",
			ServiceName: "compss-pipeworker",
			SampleRate:  1.0,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "compss_worker",
		},
		Streaming: StreamingConfig{
			Enabled:     false,
			Backend:     "objects",
			MasterPort:  49049,
			PollTimeout: 200 * time.Millisecond,
		},
		Resource: ResourceConfig{
			DefaultMPIProcs: 1,
		},
		Cache: CacheConfig{
			Enabled:      true,
			OpQueueDepth: 1024,
		},
	}
}

// LoadFromFile reads a JSON config file on top of Default().
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv applies COMPSS_WORKER_* environment overrides in place.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("COMPSS_WORKER_DEBUG"); v != "" {
		cfg.Executor.Debug = parseBool(v)
	}
	if v := os.Getenv("COMPSS_WORKER_TEMP_DIR"); v != "" {
		cfg.Executor.TempDir = v
	}
	if v := os.Getenv("COMPSS_WORKER_STORAGE_CONF"); v != "" {
		cfg.Executor.StorageConf = v
		cfg.Executor.PersistentStorage = true
	}
	if v := os.Getenv("COMPSS_WORKER_PROFILER"); v != "" {
		cfg.Executor.Profiler = parseBool(v)
	}

	if v := os.Getenv("COMPSS_WORKER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("COMPSS_WORKER_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("COMPSS_WORKER_TRACING_ENABLED"); v != "" {
		cfg.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("COMPSS_WORKER_TRACING_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}

	if v := os.Getenv("COMPSS_WORKER_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	if v := os.Getenv("COMPSS_WORKER_STREAMING_ENABLED"); v != "" {
		cfg.Streaming.Enabled = parseBool(v)
	}
	if v := os.Getenv("COMPSS_WORKER_STREAMING_BACKEND"); v != "" {
		cfg.Streaming.Backend = v
	}
	if v := os.Getenv("COMPSS_WORKER_STREAMING_MASTER_IP"); v != "" {
		cfg.Streaming.MasterIP = v
	}
	if v := os.Getenv("COMPSS_WORKER_STREAMING_MASTER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Streaming.MasterPort = n
		}
	}

	if v := os.Getenv("COMPSS_WORKER_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("COMPSS_WORKER_CACHE_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("COMPSS_WORKER_CACHE_REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := os.Getenv("COMPSS_WORKER_CACHE_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.RedisDB = n
		}
	}

	if v := os.Getenv("COMPSS_WORKER_DEFAULT_MPI_PROCS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Resource.DefaultMPIProcs = n
		}
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes"
}
