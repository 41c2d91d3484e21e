package mocks

import (
	"context"
	"strconv"
	"sync"

	"github.com/V4T54L/hookwatch/internal/domain"
)

// MockFailureRepository is an in-memory domain.FailureRepository for testing.
// The mutex gives it the same atomicity as the SQL backends.
type MockFailureRepository struct {
	mu            sync.Mutex
	Records       map[domain.Signature]*domain.FailureRecord
	IncrementErr  error
	InsertErr     error
	LookupErr     error
	InsertCalls   int
	IncrementHook func() // runs after a miss in IncrementIfExists, outside the lock
}

func (m *MockFailureRepository) IncrementIfExists(ctx context.Context, sig domain.Signature) (string, int, bool, error) {
	m.mu.Lock()
	if m.IncrementErr != nil {
		m.mu.Unlock()
		return "", 0, false, m.IncrementErr
	}
	rec, ok := m.Records[sig]
	if ok {
		rec.Occurrences++
		id, n := rec.MessageID, rec.Occurrences
		m.mu.Unlock()
		return id, n, true, nil
	}
	hook := m.IncrementHook
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return "", 0, false, nil
}

func (m *MockFailureRepository) InsertOrIncrement(ctx context.Context, record domain.FailureRecord) (string, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	if m.InsertErr != nil {
		return "", 0, m.InsertErr
	}
	if m.Records == nil {
		m.Records = make(map[domain.Signature]*domain.FailureRecord)
	}
	if rec, ok := m.Records[record.Signature]; ok {
		rec.Occurrences++
		return rec.MessageID, rec.Occurrences, nil
	}
	record.Occurrences = 1
	m.Records[record.Signature] = &record
	return record.MessageID, 1, nil
}

func (m *MockFailureRepository) FullTextByMessageID(ctx context.Context, messageID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LookupErr != nil {
		return "", m.LookupErr
	}
	for _, rec := range m.Records {
		if rec.MessageID == messageID {
			return rec.FullText, nil
		}
	}
	return "", domain.ErrFailureNotFound
}

// Len returns the number of stored records.
func (m *MockFailureRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Records)
}

// MockWebhook is an in-memory domain.Webhook that records every call.
type MockWebhook struct {
	mu         sync.Mutex
	nextID     int
	Messages   map[string]domain.Message
	Executed   []domain.Message
	Edits      []domain.Message
	Deleted    []string
	ExecuteErr error
	// FailOn makes the Nth Execute call (1-based) fail with ExecuteErr.
	FailOn  int
	GetErr  error
	EditErr error
}

func (m *MockWebhook) Execute(ctx context.Context, msg domain.Message) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if m.ExecuteErr != nil && (m.FailOn == 0 || m.FailOn == m.nextID) {
		return domain.Message{}, m.ExecuteErr
	}
	if m.Messages == nil {
		m.Messages = make(map[string]domain.Message)
	}
	msg.ID = strconv.Itoa(m.nextID)
	m.Messages[msg.ID] = msg
	m.Executed = append(m.Executed, msg)
	return msg, nil
}

func (m *MockWebhook) GetMessage(ctx context.Context, id string) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return domain.Message{}, m.GetErr
	}
	msg, ok := m.Messages[id]
	if !ok {
		return domain.Message{}, domain.ErrMessageNotFound
	}
	return msg, nil
}

func (m *MockWebhook) EditMessage(ctx context.Context, id string, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EditErr != nil {
		return m.EditErr
	}
	if _, ok := m.Messages[id]; !ok {
		return domain.ErrMessageNotFound
	}
	msg.ID = id
	m.Messages[id] = msg
	m.Edits = append(m.Edits, msg)
	return nil
}

func (m *MockWebhook) DeleteMessage(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Messages[id]; !ok {
		return domain.ErrMessageNotFound
	}
	delete(m.Messages, id)
	m.Deleted = append(m.Deleted, id)
	return nil
}

// Live returns the number of messages that have not been deleted.
func (m *MockWebhook) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages)
}

// Contents returns the content of every executed message in order.
func (m *MockWebhook) Contents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Executed))
	for i, msg := range m.Executed {
		out[i] = msg.Content
	}
	return out
}
