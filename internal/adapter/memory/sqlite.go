package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"ald-01/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	query       TEXT NOT NULL,
	agent       TEXT NOT NULL,
	strategy    TEXT NOT NULL,
	status      TEXT NOT NULL,
	answer      TEXT NOT NULL DEFAULT '',
	steps       TEXT NOT NULL DEFAULT '[]',
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_finished ON sessions(finished_at DESC);
`

// queueSize bounds pending writes; overflow drops the record with a warning
// rather than stalling a finishing session.
const queueSize = 64

// SQLiteStore persists session transcripts to a local SQLite database.
// Writes happen on a background goroutine so Store never blocks the
// reasoning loop's terminal path.
type SQLiteStore struct {
	db     *sql.DB
	queue  chan domain.SessionRecord
	wg     sync.WaitGroup
	closed atomic.Bool
	logger *slog.Logger
}

// Compile-time interface assertion.
var _ domain.MemoryStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path and starts
// the background writer.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc sqlite is single-writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		queue:  make(chan domain.SessionRecord, queueSize),
		logger: logger,
	}

	s.wg.Add(1)
	go s.writer()

	return s, nil
}

// Store enqueues a record for asynchronous persistence. It never blocks: a
// full queue drops the record with a warning.
func (s *SQLiteStore) Store(_ context.Context, rec domain.SessionRecord) error {
	if s.closed.Load() {
		return domain.NewDomainError("SQLiteStore.Store", domain.ErrMemoryStore, "store closed")
	}

	select {
	case s.queue <- rec:
		return nil
	default:
		s.logger.Warn("memory queue full, dropping session record", "session", rec.ID)
		return domain.NewDomainError("SQLiteStore.Store", domain.ErrMemoryStore, "queue full")
	}
}

// Recent returns the most recently finished sessions, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]domain.SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, agent, strategy, status, answer, steps, started_at, finished_at
		 FROM sessions ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, domain.NewDomainError("SQLiteStore.Recent", domain.ErrMemoryStore, err.Error())
	}
	defer rows.Close()

	var out []domain.SessionRecord
	for rows.Next() {
		var rec domain.SessionRecord
		var stepsJSON string
		var started, finished int64
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.Agent, &rec.Strategy, &rec.Status,
			&rec.Answer, &stepsJSON, &started, &finished); err != nil {
			return nil, domain.NewDomainError("SQLiteStore.Recent", domain.ErrMemoryStore, err.Error())
		}
		if err := json.Unmarshal([]byte(stepsJSON), &rec.Steps); err != nil {
			return nil, domain.NewDomainError("SQLiteStore.Recent", domain.ErrMemoryStore, err.Error())
		}
		rec.StartedAt = time.UnixMilli(started)
		rec.FinishedAt = time.UnixMilli(finished)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close stops accepting records, drains the queue, and closes the database.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.queue)
	s.wg.Wait()
	return s.db.Close()
}

func (s *SQLiteStore) writer() {
	defer s.wg.Done()
	for rec := range s.queue {
		if err := s.insert(rec); err != nil {
			s.logger.Error("persist session failed", "session", rec.ID, "error", err)
		}
	}
}

func (s *SQLiteStore) insert(rec domain.SessionRecord) error {
	steps, err := json.Marshal(rec.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO sessions
		 (id, query, agent, strategy, status, answer, steps, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Query, rec.Agent, string(rec.Strategy), string(rec.Status),
		rec.Answer, string(steps), rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli(),
	)
	return err
}
