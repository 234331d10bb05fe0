// Package pool provides a bounded recycling cache for values that are
// expensive to allocate or hold internal state, such as per-key locks.
package pool
