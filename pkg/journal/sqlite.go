package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLite is a Backend persisting admission events to a SQLite database.
// It is intended for offline analysis of admission behavior; the limiter
// itself never reads it back.
//
// SQLite uses a write-ahead log for better concurrent performance and
// prepared statements for the hot insert path.
type SQLite struct {
	db         *sql.DB
	insertStmt *sql.Stmt
	selectStmt *sql.Stmt
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLite creates a SQLite backend with default settings.
func NewSQLite(dbPath string) (*SQLite, error) {
	return NewSQLiteWithConfig(SQLiteConfig{DBPath: dbPath})
}

// NewSQLiteWithConfig creates a SQLite backend with custom configuration.
func NewSQLiteWithConfig(cfg SQLiteConfig) (*SQLite, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLite{db: db}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := backend.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return backend, nil
}

// initSchema creates the events table if it doesn't exist.
func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS admission_events (
		id TEXT PRIMARY KEY,
		recorded_at INTEGER NOT NULL,
		priority INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		queued_ns INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_recorded_at ON admission_events(recorded_at);
	CREATE INDEX IF NOT EXISTS idx_outcome ON admission_events(outcome);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLite) prepareStatements() error {
	var err error

	s.insertStmt, err = s.db.Prepare(`
		INSERT INTO admission_events (id, recorded_at, priority, outcome, queued_ns)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	s.selectStmt, err = s.db.Prepare(`
		SELECT id, recorded_at, priority, outcome, queued_ns
		FROM admission_events
		ORDER BY recorded_at DESC, id
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare select statement: %w", err)
	}

	return nil
}

// Record stores one event.
func (s *SQLite) Record(ctx context.Context, event Event) error {
	_, err := s.insertStmt.ExecContext(ctx,
		event.ID,
		event.Time.UnixNano(),
		event.Priority,
		string(event.Outcome),
		int64(event.Queued),
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// Events returns the most recent events, newest first.
func (s *SQLite) Events(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}

	rows, err := s.selectStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event    Event
			recorded int64
			queued   int64
			outcome  string
		)
		if err := rows.Scan(&event.ID, &recorded, &event.Priority, &outcome, &queued); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Time = time.Unix(0, recorded)
		event.Outcome = Outcome(outcome)
		event.Queued = time.Duration(queued)
		events = append(events, event)
	}
	return events, rows.Err()
}

// Close closes the prepared statements and the database.
func (s *SQLite) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	if s.selectStmt != nil {
		s.selectStmt.Close()
	}
	return s.db.Close()
}
