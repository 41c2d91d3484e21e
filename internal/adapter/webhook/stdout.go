package webhook

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/V4T54L/hookwatch/internal/domain"
	"github.com/google/uuid"
)

// StdoutWebhook is a Webhook that prints messages to a writer and keeps
// them in memory, so reports can be edited and looked up without a remote
// endpoint.
type StdoutWebhook struct {
	name string
	out  io.Writer

	mu       sync.Mutex
	messages map[string]domain.Message
}

// NewStdoutWebhook creates a StdoutWebhook labelled name.
func NewStdoutWebhook(name string, out io.Writer) *StdoutWebhook {
	return &StdoutWebhook{name: name, out: out, messages: make(map[string]domain.Message)}
}

func (w *StdoutWebhook) Execute(ctx context.Context, msg domain.Message) (domain.Message, error) {
	msg.ID = uuid.NewString()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages[msg.ID] = msg
	w.print("POST", msg)
	return msg, nil
}

func (w *StdoutWebhook) GetMessage(ctx context.Context, id string) (domain.Message, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg, ok := w.messages[id]
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: %s", domain.ErrMessageNotFound, id)
	}
	return msg, nil
}

func (w *StdoutWebhook) EditMessage(ctx context.Context, id string, msg domain.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	current, ok := w.messages[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrMessageNotFound, id)
	}
	if msg.Content != "" {
		current.Content = msg.Content
	}
	if msg.Embeds != nil {
		current.Embeds = msg.Embeds
	}
	if msg.Components != nil {
		current.Components = msg.Components
	}
	w.messages[id] = current
	w.print("PATCH", current)
	return nil
}

func (w *StdoutWebhook) DeleteMessage(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.messages[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrMessageNotFound, id)
	}
	delete(w.messages, id)
	fmt.Fprintf(w.out, "--- %s DELETE %s ---\n", w.name, id)
	return nil
}

// Len returns the number of live messages.
func (w *StdoutWebhook) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.messages)
}

func (w *StdoutWebhook) print(verb string, msg domain.Message) {
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s %s %s", w.name, verb, msg.ID)
	if msg.Username != "" {
		fmt.Fprintf(&b, " as %s", msg.Username)
	}
	b.WriteString(" ---\n")
	b.WriteString(msg.Content)
	for _, e := range msg.Embeds {
		fmt.Fprintf(&b, "%s\n", e.Title)
		for _, f := range e.Fields {
			fmt.Fprintf(&b, "  %s: %s\n", f.Name, f.Value)
		}
		if e.Footer != nil {
			fmt.Fprintf(&b, "  %s\n", e.Footer.Text)
		}
	}
	fmt.Fprint(w.out, b.String())
}

var _ domain.Webhook = (*StdoutWebhook)(nil)
