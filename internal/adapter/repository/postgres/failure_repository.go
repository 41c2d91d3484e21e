package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/V4T54L/hookwatch/internal/domain"
	_ "github.com/lib/pq" // postgres driver
)

const schema = `
CREATE TABLE IF NOT EXISTS failures (
	signature   BYTEA PRIMARY KEY,
	full_text   TEXT NOT NULL,
	message_id  TEXT NOT NULL,
	occurrences INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS failures_message_id_idx ON failures (message_id);
`

// FailureRepository implements domain.FailureRepository for PostgreSQL.
// The primary key on signature is what settles concurrent first reports.
type FailureRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFailureRepository creates a new PostgreSQL failure repository.
func NewFailureRepository(db *sql.DB, logger *slog.Logger) *FailureRepository {
	return &FailureRepository{db: db, logger: logger.With("component", "postgres_failures")}
}

// Migrate creates the failures table if it does not exist.
func (r *FailureRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create failures table: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *FailureRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// IncrementIfExists bumps the counter of an existing record in one statement.
func (r *FailureRepository) IncrementIfExists(ctx context.Context, sig domain.Signature) (string, int, bool, error) {
	var messageID string
	var occurrences int
	err := r.db.QueryRowContext(ctx, `
		UPDATE failures SET occurrences = occurrences + 1
		WHERE signature = $1
		RETURNING message_id, occurrences`, sig[:]).Scan(&messageID, &occurrences)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, fmt.Errorf("failed to increment failure: %w", err)
	}
	return messageID, occurrences, true, nil
}

// InsertOrIncrement inserts a new record, or increments the one a concurrent
// caller inserted first, returning the stored message id.
func (r *FailureRepository) InsertOrIncrement(ctx context.Context, record domain.FailureRecord) (string, int, error) {
	var messageID string
	var occurrences int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO failures (signature, full_text, message_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (signature)
		DO UPDATE SET occurrences = failures.occurrences + 1
		RETURNING failures.message_id, failures.occurrences`,
		record.Signature[:], record.FullText, record.MessageID,
	).Scan(&messageID, &occurrences)
	if err != nil {
		return "", 0, fmt.Errorf("failed to upsert failure: %w", err)
	}
	if messageID != record.MessageID {
		r.logger.Debug("failure inserted concurrently", "signature", record.Signature.String(), "message_id", messageID)
	}
	return messageID, occurrences, nil
}

// FullTextByMessageID returns the full text bound to a report message.
func (r *FailureRepository) FullTextByMessageID(ctx context.Context, messageID string) (string, error) {
	var fullText string
	err := r.db.QueryRowContext(ctx, `SELECT full_text FROM failures WHERE message_id = $1`, messageID).Scan(&fullText)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrFailureNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up failure: %w", err)
	}
	return fullText, nil
}

var _ domain.FailureRepository = (*FailureRepository)(nil)
