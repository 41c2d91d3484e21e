package webhook

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/V4T54L/hookwatch/internal/domain"
)

func TestStdoutWebhook(t *testing.T) {
	var out bytes.Buffer
	w := NewStdoutWebhook("errors", &out)
	ctx := context.Background()

	posted, err := w.Execute(ctx, domain.Message{
		Embeds: []domain.Embed{{Title: "boom", Footer: &domain.EmbedFooter{Text: "This error has occurred 1 time!"}}},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(posted.ID) != 36 {
		t.Errorf("expected a uuid message id, got %q", posted.ID)
	}

	edit := domain.Message{Embeds: []domain.Embed{{Title: "boom", Footer: &domain.EmbedFooter{Text: "This error has occurred 2 times!"}}}}
	if err := w.EditMessage(ctx, posted.ID, edit); err != nil {
		t.Fatalf("edit: %v", err)
	}
	got, err := w.GetMessage(ctx, posted.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Embeds[0].Footer.Text != "This error has occurred 2 times!" {
		t.Errorf("unexpected footer: %q", got.Embeds[0].Footer.Text)
	}
	if !strings.Contains(out.String(), "This error has occurred 2 times!") {
		t.Errorf("expected the edit to be printed, got %q", out.String())
	}

	if err := w.DeleteMessage(ctx, posted.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if w.Len() != 0 {
		t.Errorf("expected no live messages, got %d", w.Len())
	}
	if err := w.DeleteMessage(ctx, posted.ID); !errors.Is(err, domain.ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound, got %v", err)
	}
}
