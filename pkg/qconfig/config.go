// Package qconfig holds the engine's runtime tunables and a flag-based
// parser for them.
package qconfig

import (
	"flag"
	"time"
)

// Configuration collects the tunables that shape how the operator layer
// runs: how many operators evaluate concurrently, how large the result
// cache may grow, and how aggressively cancellation is enforced.
type Configuration struct {
	// WorkerPoolSize bounds the number of operator evaluations running
	// concurrently through pkg/qexec.
	WorkerPoolSize int

	// ResultCacheBytes bounds the total EstimatedBytes retained by
	// pkg/resultcache. Zero means unbounded.
	ResultCacheBytes uint64

	// CancellationPollInterval is the interval the watchdog expects
	// operators to check their cancellation handle at.
	CancellationPollInterval time.Duration

	// WatchdogInterval is how often the watchdog scans for handles that
	// have gone quiet past CancellationPollInterval.
	WatchdogInterval time.Duration

	// DefaultTimeout is the deadline armed on a query's cancellation
	// handle when the caller does not supply one.
	DefaultTimeout time.Duration

	// MetricsAddr is the address the Prometheus /metrics endpoint listens
	// on. Empty disables it.
	MetricsAddr string
}

// Default returns the Configuration the engine runs with absent any
// command-line overrides.
func Default() Configuration {
	return Configuration{
		WorkerPoolSize:           4,
		ResultCacheBytes:         256 << 20,
		CancellationPollInterval: 50 * time.Millisecond,
		WatchdogInterval:         time.Second,
		DefaultTimeout:           30 * time.Second,
		MetricsAddr:              ":9090",
	}
}

// ParseFlags registers Configuration's fields against fs, seeded with
// Default's values, and returns the populated Configuration once fs.Parse
// has been called by the caller. Passing flag.CommandLine lets a binary's
// main parse os.Args directly.
func ParseFlags(fs *flag.FlagSet) *Configuration {
	cfg := Default()

	fs.IntVar(&cfg.WorkerPoolSize, "workers", cfg.WorkerPoolSize, "number of concurrent operator evaluations")
	fs.Uint64Var(&cfg.ResultCacheBytes, "cache-bytes", cfg.ResultCacheBytes, "result cache byte budget (0 = unbounded)")
	fs.DurationVar(&cfg.CancellationPollInterval, "poll-interval", cfg.CancellationPollInterval, "expected cancellation poll interval")
	fs.DurationVar(&cfg.WatchdogInterval, "watchdog-interval", cfg.WatchdogInterval, "watchdog scan interval")
	fs.DurationVar(&cfg.DefaultTimeout, "timeout", cfg.DefaultTimeout, "default query timeout")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address to serve Prometheus metrics on (empty disables)")

	return &cfg
}
