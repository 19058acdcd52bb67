package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/swarmlog/internal/checkpoint/migrations"
	"github.com/louisbranch/swarmlog/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/swarmlog/internal/projection"
	_ "modernc.org/sqlite"
)

// SidecarFileName is the default checkpoint database name inside a session
// directory.
const SidecarFileName = "checkpoints.db"

// ErrNotFound indicates no checkpoint exists for the session.
var ErrNotFound = errors.New("checkpoint not found")

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Record is one stored checkpoint row.
type Record struct {
	SessionID string
	LastSeq   uint64
	Snapshot  []byte
	UpdatedAt time.Time
}

// Store implements checkpoint persistence over SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a checkpoint SQLite store and applies bundled migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get returns the checkpoint for a session.
// Returns ErrNotFound if no checkpoint exists.
func (s *Store) Get(ctx context.Context, sessionID string) (Record, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Record{}, fmt.Errorf("session id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT session_id, last_seq, snapshot, updated_at FROM checkpoints WHERE session_id = ?`,
		sessionID,
	)
	var rec Record
	var lastSeq int64
	var updatedAtMillis int64
	err := row.Scan(&rec.SessionID, &lastSeq, &rec.Snapshot, &updatedAtMillis)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get checkpoint: %w", err)
	}
	rec.LastSeq = uint64(lastSeq)
	rec.UpdatedAt = fromMillis(updatedAtMillis)
	return rec, nil
}

// Save upserts the checkpoint for a session.
func (s *Store) Save(ctx context.Context, rec Record) error {
	rec.SessionID = strings.TrimSpace(rec.SessionID)
	if rec.SessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if len(rec.Snapshot) == 0 {
		return fmt.Errorf("snapshot is required")
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO checkpoints (session_id, last_seq, snapshot, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET
		     last_seq = excluded.last_seq,
		     snapshot = excluded.snapshot,
		     updated_at = excluded.updated_at`,
		rec.SessionID,
		int64(rec.LastSeq),
		rec.Snapshot,
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Delete removes the checkpoint for a session, if any.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM checkpoints WHERE session_id = ?`, sessionID,
	); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// Session scopes the store to one session id, satisfying
// projection.CheckpointStore.
func (s *Store) Session(sessionID string) *SessionStore {
	return &SessionStore{store: s, sessionID: sessionID}
}

// SessionStore adapts Store to the single-session checkpoint interface the
// projector consumes.
type SessionStore struct {
	store     *Store
	sessionID string
}

// Get loads the session's checkpoint, translating a missing row into the
// projector's not-found sentinel.
func (ss *SessionStore) Get(ctx context.Context) (projection.Checkpoint, error) {
	if ss == nil || ss.store == nil {
		return projection.Checkpoint{}, fmt.Errorf("checkpoint store is required")
	}
	rec, err := ss.store.Get(ctx, ss.sessionID)
	if errors.Is(err, ErrNotFound) {
		return projection.Checkpoint{}, projection.ErrCheckpointNotFound
	}
	if err != nil {
		return projection.Checkpoint{}, err
	}
	return projection.Checkpoint{
		LastSeq:   rec.LastSeq,
		Snapshot:  rec.Snapshot,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// Save upserts the session's checkpoint.
func (ss *SessionStore) Save(ctx context.Context, cp projection.Checkpoint) error {
	if ss == nil || ss.store == nil {
		return fmt.Errorf("checkpoint store is required")
	}
	return ss.store.Save(ctx, Record{
		SessionID: ss.sessionID,
		LastSeq:   cp.LastSeq,
		Snapshot:  cp.Snapshot,
		UpdatedAt: cp.UpdatedAt,
	})
}
