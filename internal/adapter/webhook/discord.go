// Package webhook delivers messages to remote webhook endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/V4T54L/hookwatch/internal/domain"
	"golang.org/x/time/rate"
)

const maxErrorBody = 512

// StatusError is returned for any non-2xx webhook response.
type StatusError struct {
	Method     string
	StatusCode int
	RetryAfter string
	Body       string
}

func (e *StatusError) Error() string {
	if e.RetryAfter != "" {
		return fmt.Sprintf("webhook %s returned %d (retry after %ss): %s", e.Method, e.StatusCode, e.RetryAfter, e.Body)
	}
	return fmt.Sprintf("webhook %s returned %d: %s", e.Method, e.StatusCode, e.Body)
}

// DiscordWebhook talks to a Discord-compatible webhook URL. Requests are
// paced by a token bucket; a 429 is surfaced as an error, never retried.
type DiscordWebhook struct {
	base    *url.URL
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewDiscordWebhook creates a DiscordWebhook. An empty rawURL yields a
// webhook whose every call fails with domain.ErrWebhookNotConfigured.
func NewDiscordWebhook(rawURL string, client *http.Client, limiter *rate.Limiter, logger *slog.Logger) (*DiscordWebhook, error) {
	w := &DiscordWebhook{
		client:  client,
		limiter: limiter,
		logger:  logger.With("component", "discord_webhook"),
	}
	if rawURL == "" {
		return w, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid webhook url scheme %q", u.Scheme)
	}
	w.base = u
	return w, nil
}

func (w *DiscordWebhook) Execute(ctx context.Context, msg domain.Message) (domain.Message, error) {
	msg.ID = ""
	var posted domain.Message
	if err := w.do(ctx, http.MethodPost, "", url.Values{"wait": {"true"}}, msg, &posted); err != nil {
		return domain.Message{}, err
	}
	return posted, nil
}

func (w *DiscordWebhook) GetMessage(ctx context.Context, id string) (domain.Message, error) {
	var msg domain.Message
	if err := w.do(ctx, http.MethodGet, "/messages/"+url.PathEscape(id), nil, nil, &msg); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

func (w *DiscordWebhook) EditMessage(ctx context.Context, id string, msg domain.Message) error {
	msg.ID = ""
	return w.do(ctx, http.MethodPatch, "/messages/"+url.PathEscape(id), nil, msg, nil)
}

func (w *DiscordWebhook) DeleteMessage(ctx context.Context, id string) error {
	return w.do(ctx, http.MethodDelete, "/messages/"+url.PathEscape(id), nil, nil, nil)
}

func (w *DiscordWebhook) endpoint(suffix string, query url.Values) string {
	u := *w.base
	u.Path = strings.TrimSuffix(u.Path, "/") + suffix
	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (w *DiscordWebhook) do(ctx context.Context, method, suffix string, query url.Values, in, out any) error {
	if w.base == nil {
		return domain.ErrWebhookNotConfigured
	}
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("webhook rate limiter: %w", err)
		}
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal webhook payload: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, w.endpoint(suffix, query), body)
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && suffix != "" {
		return fmt.Errorf("%w: %s", domain.ErrMessageNotFound, suffix)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{
			Method:     method,
			StatusCode: resp.StatusCode,
			RetryAfter: resp.Header.Get("Retry-After"),
			Body:       strings.TrimSpace(string(snippet)),
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			w.logger.Warn("webhook rate limited", "method", method, "retry_after", statusErr.RetryAfter)
		}
		return statusErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode webhook response: %w", err)
	}
	return nil
}

var _ domain.Webhook = (*DiscordWebhook)(nil)
