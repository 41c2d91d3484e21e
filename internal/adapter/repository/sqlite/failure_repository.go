// Package sqlite provides a SQLite-backed failure store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/V4T54L/hookwatch/internal/domain"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS failures (
	signature   BLOB PRIMARY KEY,
	full_text   TEXT NOT NULL,
	message_id  TEXT NOT NULL,
	occurrences INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS failures_message_id_idx ON failures (message_id);
`

// FailureRepository persists failure records in SQLite.
type FailureRepository struct {
	sqlDB *sql.DB
}

// Open opens a SQLite failure store and creates its schema. Use ":memory:"
// for a throwaway store.
func Open(path string) (*FailureRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases shared.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &FailureRepository{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *FailureRepository) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping reports whether the database is usable.
func (s *FailureRepository) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

func (s *FailureRepository) IncrementIfExists(ctx context.Context, sig domain.Signature) (string, int, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, false, err
	}
	var messageID string
	var occurrences int
	err := s.sqlDB.QueryRowContext(ctx, `
		UPDATE failures SET occurrences = occurrences + 1
		WHERE signature = ?
		RETURNING message_id, occurrences`, sig[:]).Scan(&messageID, &occurrences)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, fmt.Errorf("increment failure: %w", err)
	}
	return messageID, occurrences, true, nil
}

// InsertOrIncrement inserts record. When the signature was stored
// concurrently, the existing record is incremented and its message id
// returned instead.
func (s *FailureRepository) InsertOrIncrement(ctx context.Context, record domain.FailureRecord) (string, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO failures (signature, full_text, message_id, occurrences)
		VALUES (?, ?, ?, 1)`,
		record.Signature[:], record.FullText, record.MessageID,
	)
	if err == nil {
		return record.MessageID, 1, nil
	}
	if !isUniqueViolation(err) {
		return "", 0, fmt.Errorf("insert failure: %w", err)
	}

	messageID, occurrences, found, err := s.IncrementIfExists(ctx, record.Signature)
	if err != nil {
		return "", 0, err
	}
	if !found {
		return "", 0, fmt.Errorf("failure %s vanished after conflict", record.Signature)
	}
	return messageID, occurrences, nil
}

func (s *FailureRepository) FullTextByMessageID(ctx context.Context, messageID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var fullText string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT full_text FROM failures WHERE message_id = ?`, messageID).Scan(&fullText)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrFailureNotFound
	}
	if err != nil {
		return "", fmt.Errorf("look up failure: %w", err)
	}
	return fullText, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ domain.FailureRepository = (*FailureRepository)(nil)
