package throttle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/throttle/pkg/journal"
)

// Limiter admits callers into a protected section at a bounded rate.
//
// Callers block in Acquire until a slot is available in every constrained
// window, their deadline elapses, or their context is cancelled. Higher
// priorities are served first. Registrations of one priority are counted,
// not queued, so among waiters of the same priority whichever re-tests
// first after a wakeup is admitted; registration order is not preserved.
//
// # Algorithm
//
// Each acquire call registers its priority, then loops:
//
//  1. Roll the cycle counters forward to the current time.
//  2. Test eligibility: either only lowest-priority work is pending, or the
//     caller lies within the top-L registry slots, where L is the leftover
//     capacity of the current cycle.
//  3. If eligible and every constrained window has capacity, consume one
//     slot per window, deregister, and return.
//  4. If the deadline passed, deregister and return ErrTimeout.
//  5. Sleep until the next second boundary (at least 1ms), or until an
//     admission broadcast or context cancellation wakes the caller.
//
// # Thread Safety
//
// Limiter is safe for any number of concurrent callers. The registry and
// tracker serialise their own state; the limiter mutex only guards the
// wakeup channel and the adjustable configuration.
type Limiter struct {
	registry *PriorityRegistry
	tracker  *CycleTracker

	mu      sync.Mutex
	wake    chan struct{}
	timeout time.Duration

	name    string
	metrics *Metrics
	journal journal.Backend
	logger  *slog.Logger
}

// New creates a Limiter from the given configuration.
//
// At least Config.PerSecond must be positive; negative rates and a negative
// timeout are rejected with an error wrapping ErrInvalidConfig. A zero
// Config.Timeout means acquire calls without a caller-supplied timeout
// block until admitted.
func New(cfg Config) (*Limiter, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = NoTimeout
	}

	return &Limiter{
		registry: NewPriorityRegistry(),
		tracker:  NewCycleTracker(cfg.rates(), time.Now()),
		wake:     make(chan struct{}),
		timeout:  timeout,
		name:     "default",
	}, nil
}

// Acquire blocks until admitted with the lowest priority and the default
// timeout.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.AcquirePriorityFor(ctx, LowestPriority, l.defaultTimeout())
}

// AcquirePriority blocks until admitted with the given priority and the
// default timeout.
func (l *Limiter) AcquirePriority(ctx context.Context, priority int) error {
	return l.AcquirePriorityFor(ctx, priority, l.defaultTimeout())
}

// AcquireFor blocks until admitted with the lowest priority, failing with
// ErrTimeout after the given timeout. A zero timeout tries exactly once
// without blocking.
func (l *Limiter) AcquireFor(ctx context.Context, timeout time.Duration) error {
	return l.AcquirePriorityFor(ctx, LowestPriority, timeout)
}

// AcquirePriorityFor blocks until admitted with the given priority,
// failing with ErrTimeout after the given timeout.
//
// Priorities below LowestPriority are clamped to LowestPriority. A zero
// timeout tries exactly once without blocking. Context cancellation
// surfaces as ctx.Err(); the caller is deregistered and no slot is
// consumed.
func (l *Limiter) AcquirePriorityFor(ctx context.Context, priority int, timeout time.Duration) error {
	if priority < LowestPriority {
		priority = LowestPriority
	}
	if timeout < 0 {
		timeout = 0
	}

	start := time.Now()
	id := l.traceID()
	l.register(id, priority)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		// Fetch the wakeup channel before testing admission so a
		// broadcast between the test and the sleep is not lost.
		wake := l.wakeChan()

		now := time.Now()
		l.tracker.Roll(now)

		if l.admit(priority) {
			l.finish(id, priority, start, journal.OutcomeAdmitted)
			return nil
		}

		elapsed := time.Since(start)
		if elapsed >= timeout {
			l.deregister(priority)
			l.finish(id, priority, start, journal.OutcomeTimeout)
			return ErrTimeout
		}

		wait := l.waitInterval(timeout - elapsed)
		l.trace(id, priority, wait)

		if timer == nil {
			timer = time.NewTimer(wait)
		} else {
			timer.Reset(wait)
		}

		select {
		case <-timer.C:
		case <-wake:
			timer.Stop()
		case <-ctx.Done():
			l.deregister(priority)
			l.finish(id, priority, start, journal.OutcomeCanceled)
			return ctx.Err()
		}
	}
}

// AdjustRate replaces the cap of the given window at runtime. A zero rate
// removes the constraint for Minute and Hour; the Second window must stay
// constrained.
func (l *Limiter) AdjustRate(rate int, w Window) error {
	if !w.valid() {
		return errInvalid("unsupported window %d", int(w))
	}
	if rate < 0 {
		return errInvalid("rate cannot be negative, got %d", rate)
	}
	if w == Second && rate == 0 {
		return errInvalid("a per-second rate is required")
	}
	l.tracker.SetCap(w, rate)
	l.broadcast()
	return nil
}

// AdjustTimeout replaces the default acquire deadline. A zero value means
// no deadline. Calls already in flight keep the deadline they started with.
func (l *Limiter) AdjustTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return errInvalid("timeout cannot be negative, got %v", timeout)
	}
	if timeout == 0 {
		timeout = NoTimeout
	}
	l.mu.Lock()
	l.timeout = timeout
	l.mu.Unlock()
	return nil
}

// Rate returns the configured cap of the window.
func (l *Limiter) Rate(w Window) int {
	return l.tracker.Cap(w)
}

// QueueSize returns the number of callers currently waiting for admission.
func (l *Limiter) QueueSize() int {
	return l.registry.Size()
}

// admit performs one admission test: eligibility by priority order, then
// the capacity gate. On success the caller is deregistered and sleepers
// are woken so they re-evaluate the changed registry.
func (l *Limiter) admit(priority int) bool {
	eligible := l.registry.TopIsLowest() ||
		l.registry.IsAmongFirst(priority, l.tracker.Leftover())
	if !eligible || !l.tracker.Available() {
		return false
	}
	l.registry.RemoveOne(priority)
	l.updateQueueDepth()
	l.broadcast()
	return true
}

// waitInterval computes the sleep duration: until the next second boundary,
// capped by the remaining deadline, and at least one millisecond so a
// lagging clock cannot degrade the loop into a busy wait.
func (l *Limiter) waitInterval(remaining time.Duration) time.Duration {
	wait := time.Until(l.tracker.Lapsed().Add(Second.Duration()))
	if remaining < wait {
		wait = remaining
	}
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

func (l *Limiter) defaultTimeout() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timeout
}

// wakeChan returns the current broadcast channel. The channel is closed by
// the next broadcast.
func (l *Limiter) wakeChan() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wake
}

// broadcast wakes every sleeping caller by closing the current wakeup
// channel and installing a fresh one.
func (l *Limiter) broadcast() {
	l.mu.Lock()
	close(l.wake)
	l.wake = make(chan struct{})
	l.mu.Unlock()
}

func (l *Limiter) register(id string, priority int) {
	l.registry.Register(priority)
	l.updateQueueDepth()
	if l.logger != nil {
		l.logger.Debug("caller registered",
			"id", id,
			"priority", priority,
			"queue_depth", l.registry.Size(),
		)
	}
}

func (l *Limiter) deregister(priority int) {
	l.registry.RemoveOne(priority)
	l.updateQueueDepth()
}

func (l *Limiter) updateQueueDepth() {
	if l.metrics != nil {
		l.metrics.setQueueDepth(l.name, l.registry.Size())
	}
}

// finish records the terminal outcome of one acquire call.
func (l *Limiter) finish(id string, priority int, start time.Time, outcome journal.Outcome) {
	queued := time.Since(start)

	if l.metrics != nil {
		l.metrics.recordOutcome(l.name, string(outcome), queued.Seconds())
	}
	if l.journal != nil {
		_ = l.journal.Record(context.Background(), journal.Event{
			ID:       id,
			Time:     time.Now(),
			Priority: priority,
			Outcome:  outcome,
			Queued:   queued,
		})
	}
	if l.logger != nil {
		l.logger.Debug("acquire finished",
			"id", id,
			"priority", priority,
			"outcome", string(outcome),
			"queued", queued,
		)
	}
}

// traceID allocates a caller id when an observer wants one.
func (l *Limiter) traceID() string {
	if l.journal == nil && l.logger == nil {
		return ""
	}
	return uuid.New().String()
}

// trace emits a counter snapshot before the caller sleeps.
func (l *Limiter) trace(id string, priority int, wait time.Duration) {
	if l.logger == nil {
		return
	}
	l.logger.Debug("caller waiting",
		"id", id,
		"priority", priority,
		"wait", wait,
		"leftover", l.tracker.Leftover(),
		"used_second", l.tracker.Used(Second),
		"used_minute", l.tracker.Used(Minute),
		"used_hour", l.tracker.Used(Hour),
		"queue_depth", l.registry.Size(),
	)
}
