// Package logsink bridges log/slog into the webhook log aggregator.
package logsink

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/V4T54L/hookwatch/internal/domain"
)

const (
	componentKey  = "component"
	defaultSource = "app"
)

// Recorder accepts log events. *usecase.LogAggregator satisfies it.
type Recorder interface {
	Record(source, text string, severity domain.Severity)
}

// Handler is a slog.Handler that buffers records into a Recorder.
//
// Records whose component starts with one of the configured prefixes are
// shipped up to maxVerbosity; everything else only at Warn and above. The
// component attribute becomes the event source.
type Handler struct {
	recorder     Recorder
	prefixes     []string
	maxVerbosity domain.Severity

	source string
	attrs  string // preformatted attributes from WithAttrs
	groups []string
}

// NewHandler creates a Handler.
func NewHandler(recorder Recorder, maxVerbosity domain.Severity, prefixes ...string) *Handler {
	return &Handler{recorder: recorder, prefixes: prefixes, maxVerbosity: maxVerbosity}
}

func (h *Handler) threshold(source string) domain.Severity {
	for _, p := range h.prefixes {
		if p != "" && strings.HasPrefix(source, p) {
			return h.maxVerbosity
		}
	}
	return domain.SeverityWarn
}

// Enabled is permissive until the component is known; Handle applies the
// exact threshold.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	limit := h.threshold(h.source)
	if h.source == "" && h.maxVerbosity < limit {
		limit = h.maxVerbosity
	}
	return domain.FromSlogLevel(level) >= limit
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	source := h.source
	var b strings.Builder
	b.WriteString(r.Message)
	b.WriteString(h.attrs)

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == componentKey && len(h.groups) == 0 {
			source = a.Value.String()
			return true
		}
		appendAttr(&b, h.groups, a)
		return true
	})

	severity := domain.FromSlogLevel(r.Level)
	if severity < h.threshold(source) {
		return nil
	}
	if source == "" {
		source = defaultSource
	}
	h.recorder.Record(source, b.String(), severity)
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *h
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		if a.Key == componentKey && len(h.groups) == 0 {
			out.source = a.Value.String()
			continue
		}
		appendAttr(&b, h.groups, a)
	}
	out.attrs = b.String()
	return &out
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	out.groups = append(append([]string(nil), h.groups...), name)
	return &out
}

func appendAttr(b *strings.Builder, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := groups
		if a.Key != "" {
			inner = append(append([]string(nil), groups...), a.Key)
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, inner, ga)
		}
		return
	}
	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	fmt.Fprintf(b, " %s=%v", key, a.Value.Any())
}
