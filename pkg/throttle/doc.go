// Package throttle provides a priority-aware, multi-window blocking rate
// limiter for regulating admission into a protected section, typically
// outbound calls to an API or shared resource.
//
// # Overview
//
// Callers block in Acquire until a slot is available in every configured
// window (second, minute, hour), their timeout elapses, or their context
// is cancelled. Higher priorities are admitted first. Within a priority,
// waiting callers are not ordered: whichever re-tests first after a wakeup
// takes the slot, so registration order is not preserved. Bursts up to the
// per-window cap are permitted as soon as a window opens; there is no
// in-window smoothing.
//
// # Usage
//
//	limiter, err := throttle.NewBuilder().
//	    WithRate(100, throttle.Second).
//	    WithRate(2000, throttle.Minute).
//	    WithTimeout(5 * time.Second).
//	    Build()
//	if err != nil {
//	    return err
//	}
//
//	if err := limiter.AcquirePriority(ctx, 3); err != nil {
//	    return err // throttle.ErrTimeout or ctx.Err()
//	}
//	callProtectedResource()
//
// # Architecture
//
// The engine composes two thread-safe components:
//
//   - PriorityRegistry: ordered multiset of pending priorities
//   - CycleTracker: per-window admission counters with rollover
//
// plus a broadcast channel standing in for a condition variable: admission
// wakes sleepers, and a bounded timer covers window rollovers.
//
// # Scope
//
// The limiter is strictly intra-process: counters are neither persisted
// across restarts nor coordinated across processes. When higher-priority
// arrivals saturate every cycle, lowest-priority callers can wait
// indefinitely; bound that exposure with a timeout.
package throttle
