// Package keyedmutex provides per-key mutual exclusion with a bounded
// number of simultaneously held locks.
//
// # Usage
//
//	locks := keyedmutex.NewWithConfig[string](keyedmutex.Config{
//	    MaxHeld:         128,
//	    WaitOnExhausted: true,
//	})
//
//	err := locks.Locked(ctx, accountID, func() error {
//	    return applyTransfer(accountID, amount)
//	})
//
// Unused locks are evicted from the map on release and recycled, so the
// map size tracks the number of contended keys, not the key space.
package keyedmutex
