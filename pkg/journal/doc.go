// Package journal records the terminal outcome of acquire calls for
// offline analysis.
//
// # Overview
//
// Each acquire call that reaches a terminal state (admitted, timed out, or
// cancelled) produces one Event. Events are written through a Backend:
//
//   - Memory: fixed-size ring buffer, newest events win
//   - SQLite: durable append-only table for post-hoc analysis
//
// The journal is strictly off the admission path: backends are written to
// after the admission decision and never consulted when deciding whether a
// caller may proceed. Live counters are not persisted; after a restart the
// limiter starts from empty windows.
//
// # Usage
//
//	backend, err := journal.NewSQLite("admissions.db")
//	if err != nil {
//	    return err
//	}
//	defer backend.Close()
//
//	limiter, err := throttle.NewBuilder().
//	    WithRate(100, throttle.Second).
//	    WithJournal(backend).
//	    Build()
package journal
