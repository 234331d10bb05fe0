package keyedmutex

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"

	"mercator-hq/throttle/pkg/pool"
)

// ErrExhausted is returned in fail-fast mode when the maximum number of
// simultaneously held locks is reached.
var ErrExhausted = errors.New("keyedmutex: capacity exhausted")

// Mutex provides mutual exclusion per application-supplied key.
//
// Locked acquires the lock for a key (creating it on first use), runs the
// action, and releases. A weighted semaphore bounds the total number of
// simultaneously held locks across all keys; when exhausted the caller
// either blocks (default) or fails fast with ErrExhausted. A lock with no
// holders and no waiters is evicted from the map on release, so the map
// does not grow with the key space; evicted locks are recycled through a
// bounded pool.
//
// Both the semaphore wait queue and the per-key channel locks hand off in
// FIFO order under contention. Locks are not reentrant: a goroutine
// calling Locked for a key it already holds deadlocks.
//
// # Thread Safety
//
// Mutex is thread-safe. The map mutex is held only for entry bookkeeping,
// never while an action runs.
type Mutex[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*entry
	pool  *pool.Pool[*entry]
	sem   *semaphore.Weighted
	wait  bool
}

// entry is one per-key lock with its holder-and-waiter count.
type entry struct {
	ch   chan struct{}
	refs int
}

// Config configures a Mutex.
type Config struct {
	// MaxHeld bounds the number of simultaneously held locks across all
	// keys. Zero means unbounded.
	MaxHeld int

	// WaitOnExhausted selects blocking (true, the default via New) or
	// fail-fast (false) behavior when MaxHeld is reached.
	WaitOnExhausted bool

	// PoolLimit bounds how many evicted locks are retained for reuse.
	// Zero keeps the default of 64.
	PoolLimit int
}

// New creates a Mutex with an unbounded hold count.
func New[K comparable]() *Mutex[K] {
	return NewWithConfig[K](Config{WaitOnExhausted: true})
}

// NewWithConfig creates a Mutex with the given configuration.
func NewWithConfig[K comparable](cfg Config) *Mutex[K] {
	poolLimit := cfg.PoolLimit
	if poolLimit <= 0 {
		poolLimit = 64
	}

	m := &Mutex[K]{
		locks: make(map[K]*entry),
		pool: pool.New(func() *entry {
			return &entry{ch: make(chan struct{}, 1)}
		}, poolLimit),
		wait: cfg.WaitOnExhausted,
	}
	if cfg.MaxHeld > 0 {
		m.sem = semaphore.NewWeighted(int64(cfg.MaxHeld))
	}
	return m
}

// Locked runs action while holding the lock for key.
//
// The returned error is ErrExhausted in fail-fast mode when capacity is
// exhausted, ctx.Err() when the context is cancelled while waiting, or
// whatever action returns.
func (m *Mutex[K]) Locked(ctx context.Context, key K, action func() error) error {
	if m.sem != nil {
		if m.wait {
			if err := m.sem.Acquire(ctx, 1); err != nil {
				return err
			}
		} else if !m.sem.TryAcquire(1) {
			return ErrExhausted
		}
		defer m.sem.Release(1)
	}

	e := m.checkout(key)
	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		m.checkin(key, e)
		return ctx.Err()
	}

	defer func() {
		<-e.ch
		m.checkin(key, e)
	}()
	return action()
}

// Held returns the number of keys with a live lock entry.
func (m *Mutex[K]) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// checkout fetches or creates the entry for key and counts the caller as
// interested, keeping the entry alive until the matching checkin.
func (m *Mutex[K]) checkout(key K) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[key]
	if !ok {
		e = m.pool.Get()
		m.locks[key] = e
	}
	e.refs++
	return e
}

// checkin drops the caller's interest and evicts the entry once nobody
// holds or waits for it.
func (m *Mutex[K]) checkin(key K, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
		m.pool.Put(e)
	}
}
