package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/V4T54L/hookwatch/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	failureKeyPrefix = "hookwatch:failure:"
	messageKeyPrefix = "hookwatch:failure_msg:"
)

// incrementScript bumps the counter only when the record already exists.
var incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
local n = redis.call('HINCRBY', KEYS[1], 'occurrences', 1)
return {redis.call('HGET', KEYS[1], 'message_id'), n}
`)

// insertScript claims the signature for ARGV[1] or, when another caller
// already holds it, increments that record instead.
var insertScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], 'message_id', ARGV[1]) == 1 then
	redis.call('HSET', KEYS[1], 'full_text', ARGV[2], 'occurrences', 1)
	redis.call('SET', KEYS[2], ARGV[3])
	return {ARGV[1], 1}
end
local n = redis.call('HINCRBY', KEYS[1], 'occurrences', 1)
return {redis.call('HGET', KEYS[1], 'message_id'), n}
`)

// FailureRepository implements domain.FailureRepository on Redis hashes.
// Each record lives at hookwatch:failure:<signature>, with a reverse index
// from message id to signature.
type FailureRepository struct {
	client *redis.Client
	logger *slog.Logger
}

// NewFailureRepository creates a new Redis-backed FailureRepository.
func NewFailureRepository(client *redis.Client, logger *slog.Logger) *FailureRepository {
	return &FailureRepository{client: client, logger: logger.With("component", "redis_failures")}
}

func failureKey(sig domain.Signature) string { return failureKeyPrefix + sig.String() }

func messageKey(messageID string) string { return messageKeyPrefix + messageID }

// Ping reports whether Redis is reachable.
func (r *FailureRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *FailureRepository) IncrementIfExists(ctx context.Context, sig domain.Signature) (string, int, bool, error) {
	vals, err := incrementScript.Run(ctx, r.client, []string{failureKey(sig)}).Slice()
	if errors.Is(err, redis.Nil) {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, fmt.Errorf("failed to increment failure %s: %w", sig, err)
	}
	messageID, occurrences, err := parseCounter(vals)
	if err != nil {
		return "", 0, false, err
	}
	return messageID, occurrences, true, nil
}

func (r *FailureRepository) InsertOrIncrement(ctx context.Context, record domain.FailureRecord) (string, int, error) {
	keys := []string{failureKey(record.Signature), messageKey(record.MessageID)}
	vals, err := insertScript.Run(ctx, r.client, keys, record.MessageID, record.FullText, record.Signature.String()).Slice()
	if err != nil {
		return "", 0, fmt.Errorf("failed to insert failure %s: %w", record.Signature, err)
	}
	messageID, occurrences, err := parseCounter(vals)
	if err != nil {
		return "", 0, err
	}
	if messageID != record.MessageID {
		r.logger.Debug("failure inserted concurrently", "signature", record.Signature.String(), "message_id", messageID)
	}
	return messageID, occurrences, nil
}

func (r *FailureRepository) FullTextByMessageID(ctx context.Context, messageID string) (string, error) {
	sig, err := r.client.Get(ctx, messageKey(messageID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrFailureNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve message %s: %w", messageID, err)
	}

	fullText, err := r.client.HGet(ctx, failureKeyPrefix+sig, "full_text").Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrFailureNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read failure %s: %w", sig, err)
	}
	return fullText, nil
}

// parseCounter decodes the {message_id, occurrences} reply of both scripts.
func parseCounter(vals []interface{}) (string, int, error) {
	if len(vals) != 2 {
		return "", 0, fmt.Errorf("unexpected script reply length %d", len(vals))
	}
	messageID, ok := vals[0].(string)
	if !ok {
		return "", 0, fmt.Errorf("unexpected message id type %T", vals[0])
	}
	occurrences, ok := vals[1].(int64)
	if !ok {
		return "", 0, fmt.Errorf("unexpected occurrences type %T", vals[1])
	}
	return messageID, int(occurrences), nil
}

var _ domain.FailureRepository = (*FailureRepository)(nil)
