package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/V4T54L/hookwatch/internal/adapter/metrics"
	"github.com/V4T54L/hookwatch/internal/adapter/pii"
	"github.com/V4T54L/hookwatch/internal/domain"
)

const (
	destinationNormal = "normal"
	destinationError  = "error"
)

// LogAggregator buffers log events from any number of producers and ships
// them to the normal and error webhooks in size-bounded chunks on each tick.
type LogAggregator struct {
	mu      sync.Mutex
	pending map[domain.Severity][]domain.LogEvent

	normalHook  domain.Webhook
	errorHook   domain.Webhook
	webhookName string
	redactor    *pii.Redactor
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewLogAggregator creates a new aggregator. The logger must not feed back
// into this aggregator.
func NewLogAggregator(normal, errs domain.Webhook, webhookName string, redactor *pii.Redactor, logger *slog.Logger, m *metrics.Metrics) *LogAggregator {
	return &LogAggregator{
		pending:     make(map[domain.Severity][]domain.LogEvent),
		normalHook:  normal,
		errorHook:   errs,
		webhookName: webhookName,
		redactor:    redactor,
		logger:      logger.With("component", "log_aggregator"),
		metrics:     m,
	}
}

// Name implements domain.Task.
func (a *LogAggregator) Name() string { return "logging" }

// Run implements domain.Task by flushing the buffer.
func (a *LogAggregator) Run(ctx context.Context) error { return a.Flush(ctx) }

// Record buffers one event. It never blocks on I/O and never fails.
func (a *LogAggregator) Record(source, text string, severity domain.Severity) {
	event := domain.LogEvent{Severity: severity, Source: source, Text: text}
	a.redactor.Redact(&event)

	a.mu.Lock()
	a.pending[severity] = append(a.pending[severity], event)
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.EventsRecorded.WithLabelValues(severity.String()).Inc()
	}
}

// Pending returns the number of buffered events.
func (a *LogAggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, events := range a.pending {
		n += len(events)
	}
	return n
}

// Flush swaps out the buffer and delivers every severity's lines. Every
// chunk is attempted; delivery errors are joined and returned. Chunks that
// failed are not retried.
func (a *LogAggregator) Flush(ctx context.Context) error {
	a.mu.Lock()
	pending := a.pending
	a.pending = make(map[domain.Severity][]domain.LogEvent)
	a.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.FlushDuration.Observe(time.Since(start).Seconds())
		}
	}()

	var errs []error
	delivered := 0
	for _, severity := range flushOrder(pending) {
		events := pending[severity]

		webhook, destination := a.normalHook, destinationNormal
		if severity.IsError() {
			webhook, destination = a.errorHook, destinationError
		}

		username := a.webhookName + " [" + severity.String() + "]"
		chunks := ChunkLines(formatLines(events), domain.MessageLimit)
		for i, chunk := range chunks {
			msg := domain.Message{
				Content:   chunk,
				Username:  username,
				AvatarURL: severity.AvatarURL(),
			}
			if _, err := webhook.Execute(ctx, msg); err != nil {
				errs = append(errs, fmt.Errorf("deliver %s chunk %d/%d to %s webhook: %w", severity, i+1, len(chunks), destination, err))
				if a.metrics != nil {
					a.metrics.ChunksFailed.WithLabelValues(destination).Inc()
				}
				continue
			}
			delivered++
			if a.metrics != nil {
				a.metrics.ChunksDelivered.WithLabelValues(destination).Inc()
			}
		}
	}

	a.logger.Debug("flushed log buffer", "delivered", delivered, "failed", len(errs))
	return errors.Join(errs...)
}

// flushOrder lists the buffered severities: known ones ascending, then any
// unmapped values in ascending order.
func flushOrder(pending map[domain.Severity][]domain.LogEvent) []domain.Severity {
	order := make([]domain.Severity, 0, len(pending))
	for _, severity := range domain.Severities {
		if len(pending[severity]) > 0 {
			order = append(order, severity)
		}
	}
	var unmapped []domain.Severity
	for severity, events := range pending {
		if len(events) > 0 && !slices.Contains(domain.Severities[:], severity) {
			unmapped = append(unmapped, severity)
		}
	}
	slices.Sort(unmapped)
	return append(order, unmapped...)
}

// formatLines renders each event as "[source]: text\n". Multi-line text
// becomes one prefixed line per line.
func formatLines(events []domain.LogEvent) []string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		text := strings.TrimSpace(e.Text)
		if !strings.Contains(text, "\n") {
			lines = append(lines, domain.LogEvent{Source: e.Source, Text: text}.Line())
			continue
		}
		for _, part := range strings.Split(text, "\n") {
			lines = append(lines, domain.LogEvent{Source: e.Source, Text: part}.Line())
		}
	}
	return lines
}

// ChunkLines greedily packs lines into chunks of at most limit bytes,
// splitting only between lines. A line longer than limit becomes its own
// chunk unchanged.
func ChunkLines(lines []string, limit int) []string {
	var chunks []string
	var current strings.Builder
	for _, line := range lines {
		if current.Len() > 0 && current.Len()+len(line) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
