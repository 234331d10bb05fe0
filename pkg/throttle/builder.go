package throttle

import (
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/throttle/pkg/journal"
)

// Builder assembles and validates a Limiter configuration.
//
// Example:
//
//	limiter, err := throttle.NewBuilder().
//	    WithRate(100, throttle.Second).
//	    WithRate(2000, throttle.Minute).
//	    WithTimeout(5 * time.Second).
//	    Build()
//
// Validation happens at Build time; the first configuration error wins and
// wraps ErrInvalidConfig.
type Builder struct {
	rates   [numWindows]int
	timeout time.Duration
	name    string
	metrics *Metrics
	journal journal.Backend
	logger  *slog.Logger
	err     error
}

// NewBuilder creates a Builder with no rates, no deadline, and no
// observers.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithRate sets the maximum number of admissions per cycle of the window.
// The window must be Second, Minute, or Hour and the rate positive.
func (b *Builder) WithRate(rate int, w Window) *Builder {
	if !w.valid() {
		return b.fail("unsupported window %d", int(w))
	}
	if rate <= 0 {
		return b.fail("rate must be positive, got %d", rate)
	}
	b.rates[w] = rate
	return b
}

// WithTimeout sets the default acquire deadline. When never called,
// acquire calls without a caller-supplied timeout block until admitted.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	if timeout <= 0 {
		return b.fail("timeout must be positive, got %v", timeout)
	}
	b.timeout = timeout
	return b
}

// WithName sets the limiter name used as the metrics label.
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithMetrics attaches Prometheus collectors. A single Metrics instance
// may be shared across limiters with distinct names.
func (b *Builder) WithMetrics(m *Metrics) *Builder {
	b.metrics = m
	return b
}

// WithJournal attaches an admission event journal.
func (b *Builder) WithJournal(backend journal.Backend) *Builder {
	b.journal = backend
	return b
}

// WithLogger attaches a logger for debug-level counter traces. Without a
// logger no traces are emitted.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	if logger != nil {
		logger = logger.With("component", "throttle")
	}
	b.logger = logger
	return b
}

// Build validates the configuration and creates the Limiter.
func (b *Builder) Build() (*Limiter, error) {
	if b.err != nil {
		return nil, b.err
	}

	limiter, err := New(Config{
		PerSecond: b.rates[Second],
		PerMinute: b.rates[Minute],
		PerHour:   b.rates[Hour],
		Timeout:   b.timeout,
	})
	if err != nil {
		return nil, err
	}

	if b.name != "" {
		limiter.name = b.name
	}
	limiter.metrics = b.metrics
	limiter.journal = b.journal
	limiter.logger = b.logger
	return limiter, nil
}

// fail records the first configuration error.
func (b *Builder) fail(format string, args ...any) *Builder {
	if b.err == nil {
		b.err = errInvalid(format, args...)
	}
	return b
}

// validate checks a Config for New.
func validate(cfg Config) error {
	if cfg.PerSecond <= 0 {
		return errInvalid("a per-second rate is required")
	}
	if cfg.PerMinute < 0 {
		return errInvalid("per-minute rate cannot be negative, got %d", cfg.PerMinute)
	}
	if cfg.PerHour < 0 {
		return errInvalid("per-hour rate cannot be negative, got %d", cfg.PerHour)
	}
	if cfg.Timeout < 0 {
		return errInvalid("timeout cannot be negative, got %v", cfg.Timeout)
	}
	return nil
}

// errInvalid wraps ErrInvalidConfig with detail.
func errInvalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
