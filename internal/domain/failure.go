package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrFailureNotFound is returned when no failure record matches a lookup.
var ErrFailureNotFound = errors.New("failure record not found")

// Signature is the deduplication key of a failure: the SHA-256 digest of
// its canonical text.
type Signature [sha256.Size]byte

// NewSignature hashes the canonical failure text.
func NewSignature(fullText string) Signature {
	return sha256.Sum256([]byte(fullText))
}

func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

// FailureRecord is the persisted report state for one failure signature.
type FailureRecord struct {
	Signature   Signature
	FullText    string
	MessageID   string
	Occurrences int
}
