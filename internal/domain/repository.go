package domain

import "context"

// FailureRepository persists one FailureRecord per signature. All
// deduplication races are settled by the atomic operations below.
type FailureRepository interface {
	// IncrementIfExists bumps the occurrence counter of an existing record
	// and returns its message id and new count. found is false when no
	// record exists for the signature.
	IncrementIfExists(ctx context.Context, sig Signature) (messageID string, occurrences int, found bool, err error)

	// InsertOrIncrement inserts the record, or increments the existing one if
	// another caller created it first. It returns the message id and count of
	// whichever record is stored after the call.
	InsertOrIncrement(ctx context.Context, record FailureRecord) (messageID string, occurrences int, err error)

	// FullTextByMessageID returns the full failure text of the record bound
	// to a webhook message, or ErrFailureNotFound.
	FullTextByMessageID(ctx context.Context, messageID string) (string, error)
}

// Webhook is a remote delivery endpoint.
type Webhook interface {
	// Execute posts a message and returns it with its remote id.
	Execute(ctx context.Context, msg Message) (Message, error)

	// GetMessage fetches a previously posted message.
	GetMessage(ctx context.Context, id string) (Message, error)

	// EditMessage replaces the content of a posted message.
	EditMessage(ctx context.Context, id string, msg Message) error

	// DeleteMessage removes a posted message.
	DeleteMessage(ctx context.Context, id string) error
}

// Task is a unit of periodic work run by the scheduler.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}
