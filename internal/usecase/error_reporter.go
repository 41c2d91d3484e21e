package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/V4T54L/hookwatch/internal/adapter/metrics"
	"github.com/V4T54L/hookwatch/internal/domain"
)

const (
	// ViewTracebackCustomID is the control id of the button on every report.
	ViewTracebackCustomID = "error::traceback::view"

	tracebackFilename = "traceback.txt"
	shortErrorLimit   = 256
	colorRed          = 0xff0000
	blankValue        = "\u200b"
)

// Telemetry supplies live host fields appended to new reports.
type Telemetry interface {
	Fields() []domain.EmbedField
}

// ErrorReporter collapses repeated failures into one webhook message per
// signature, with a live occurrence counter in the footer.
type ErrorReporter struct {
	repo        domain.FailureRepository
	webhook     domain.Webhook
	telemetry   Telemetry
	serviceName string
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewErrorReporter creates an ErrorReporter. The logger receives the
// reporter's own failures and must not write to any webhook.
func NewErrorReporter(repo domain.FailureRepository, webhook domain.Webhook, telemetry Telemetry, serviceName string, logger *slog.Logger, m *metrics.Metrics) *ErrorReporter {
	return &ErrorReporter{
		repo:        repo,
		webhook:     webhook,
		telemetry:   telemetry,
		serviceName: serviceName,
		logger:      logger.With("component", "error_reporter"),
		metrics:     m,
	}
}

// Report records one occurrence of err. The first occurrence of a
// signature posts a new report; later ones edit its occurrence counter.
// A nil error is ignored.
func (r *ErrorReporter) Report(ctx context.Context, err error, event string, extra []domain.EmbedField, actorName, actorIcon string) error {
	if err == nil {
		return nil
	}
	fullText := fmt.Sprintf("%+v", err)
	sig := domain.NewSignature(fullText)

	messageID, occurrences, found, repoErr := r.repo.IncrementIfExists(ctx, sig)
	if repoErr != nil {
		r.observe("error")
		return fmt.Errorf("increment failure %s: %w", sig, repoErr)
	}
	if found {
		if editErr := r.editOccurrences(ctx, messageID, occurrences); editErr != nil {
			r.observe("error")
			return editErr
		}
		r.observe("updated")
		return nil
	}

	if createErr := r.create(ctx, sig, fullText, err, event, extra, actorName, actorIcon); createErr != nil {
		r.observe("error")
		return createErr
	}
	return nil
}

// ReportDefault reports err under the given event name with no extra
// fields. A nil error is ignored.
func (r *ErrorReporter) ReportDefault(ctx context.Context, event string, err error) error {
	return r.Report(ctx, err, event, nil, "", "")
}

// Capture reports err and logs any failure of the reporter itself.
func (r *ErrorReporter) Capture(ctx context.Context, event string, err error) {
	if reportErr := r.ReportDefault(ctx, event, err); reportErr != nil {
		r.logger.Error("failed to report error", "event", event, "error", reportErr, "original_error", err)
	}
}

// Recover reports a panic in the calling goroutine. Use it as
// `defer reporter.Recover(ctx, "EventName")`.
func (r *ErrorReporter) Recover(ctx context.Context, event string) {
	if v := recover(); v != nil {
		r.Capture(ctx, event, NewPanicError(v, 3))
	}
}

func (r *ErrorReporter) create(ctx context.Context, sig domain.Signature, fullText string, err error, event string, extra []domain.EmbedField, actorName, actorIcon string) error {
	posted, postErr := r.webhook.Execute(ctx, r.buildReport(err, event, extra, actorName, actorIcon))
	if postErr != nil {
		return fmt.Errorf("post report for %s: %w", sig, postErr)
	}

	storedID, occurrences, storeErr := r.repo.InsertOrIncrement(ctx, domain.FailureRecord{
		Signature:   sig,
		FullText:    fullText,
		MessageID:   posted.ID,
		Occurrences: 1,
	})
	if storeErr != nil {
		if delErr := r.webhook.DeleteMessage(ctx, posted.ID); delErr != nil {
			storeErr = errors.Join(storeErr, fmt.Errorf("delete unsaved report %s: %w", posted.ID, delErr))
		}
		return fmt.Errorf("store failure %s: %w", sig, storeErr)
	}

	if storedID == posted.ID {
		r.observe("created")
		return nil
	}

	// Another caller stored this signature first: its message wins.
	if r.metrics != nil {
		r.metrics.ReportConflicts.Inc()
	}
	if err := r.webhook.DeleteMessage(ctx, posted.ID); err != nil && !errors.Is(err, domain.ErrMessageNotFound) {
		return fmt.Errorf("delete duplicate report %s: %w", posted.ID, err)
	}
	if err := r.editOccurrences(ctx, storedID, occurrences); err != nil {
		return err
	}
	r.observe("updated")
	return nil
}

// editOccurrences rebuilds the stored report with a fresh footer. An edit
// that would lower the count already shown is skipped.
func (r *ErrorReporter) editOccurrences(ctx context.Context, messageID string, occurrences int) error {
	current, err := r.webhook.GetMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("fetch report %s: %w", messageID, err)
	}
	if len(current.Embeds) == 0 {
		return fmt.Errorf("report %s has no embed", messageID)
	}
	if shown, ok := shownOccurrences(current.Embeds[0]); ok && shown >= occurrences {
		r.logger.Debug("skipping stale report edit", "message_id", messageID, "shown", shown, "occurrences", occurrences)
		return nil
	}

	embeds := make([]domain.Embed, len(current.Embeds))
	copy(embeds, current.Embeds)
	embeds[0].Footer = &domain.EmbedFooter{Text: occurrencesFooter(occurrences)}

	edited := domain.Message{Embeds: embeds, Components: current.Components}
	if err := r.webhook.EditMessage(ctx, messageID, edited); err != nil {
		return fmt.Errorf("edit report %s: %w", messageID, err)
	}
	return nil
}

func (r *ErrorReporter) buildReport(err error, event string, extra []domain.EmbedField, actorName, actorIcon string) domain.Message {
	fields := []domain.EmbedField{
		{Name: "Event", Value: event, Inline: true},
		{Name: "Service", Value: r.serviceName, Inline: true},
		{Name: blankValue, Value: blankValue, Inline: true},
	}
	fields = append(fields, extra...)
	if r.telemetry != nil {
		fields = append(fields, r.telemetry.Fields()...)
	}
	for i := range fields {
		if fields[i].Value != blankValue {
			fields[i].Value = "`" + fields[i].Value + "`"
		}
	}

	embed := domain.Embed{
		Title:  ShortError(err.Error()),
		Color:  colorRed,
		Fields: fields,
		Footer: &domain.EmbedFooter{Text: occurrencesFooter(1)},
	}
	if actorName != "" {
		embed.Author = &domain.EmbedAuthor{Name: actorName, IconURL: actorIcon}
	}

	return domain.Message{
		Embeds:     []domain.Embed{embed},
		Components: []domain.ActionRow{domain.NewButtonRow("View Traceback", ViewTracebackCustomID, domain.ButtonStyleDanger)},
	}
}

func (r *ErrorReporter) observe(outcome string) {
	if r.metrics != nil {
		r.metrics.Reports.WithLabelValues(outcome).Inc()
	}
}

// FullText returns the complete failure text stored for a report message.
func (r *ErrorReporter) FullText(ctx context.Context, messageID string) (string, error) {
	return r.repo.FullTextByMessageID(ctx, messageID)
}

// HandleInteraction answers a click on a report's control with the full
// failure text, visible only to the requester.
func (r *ErrorReporter) HandleInteraction(ctx context.Context, in domain.Interaction) (domain.InteractionResponse, error) {
	resp := domain.InteractionResponse{
		Type:  domain.InteractionResponseChannelMessage,
		Flags: domain.FlagEphemeral,
	}
	if in.CustomID != ViewTracebackCustomID {
		resp.Content = "Unknown action."
		return resp, nil
	}

	text, err := r.FullText(ctx, in.MessageID)
	switch {
	case errors.Is(err, domain.ErrFailureNotFound):
		resp.Content = "No traceback found."
	case err != nil:
		return domain.InteractionResponse{}, fmt.Errorf("look up traceback for %s: %w", in.MessageID, err)
	default:
		resp.Files = []domain.File{{Name: tracebackFilename, Data: []byte(text)}}
	}
	return resp, nil
}

func occurrencesFooter(n int) string {
	if n == 1 {
		return "This error has occurred 1 time!"
	}
	return fmt.Sprintf("This error has occurred %d times!", n)
}

// shownOccurrences parses the count out of a report footer.
func shownOccurrences(embed domain.Embed) (int, bool) {
	if embed.Footer == nil {
		return 0, false
	}
	var n int
	if _, err := fmt.Sscanf(embed.Footer.Text, "This error has occurred %d", &n); err != nil {
		return 0, false
	}
	return n, true
}

// ShortError truncates s to at most 256 bytes without splitting a UTF-8
// sequence.
func ShortError(s string) string {
	if len(s) <= shortErrorLimit {
		return s
	}
	n := shortErrorLimit
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// PanicError carries a recovered panic value and the stack of the
// panicking goroutine. Its %+v form omits addresses and goroutine ids so
// the same panic site always yields the same text.
type PanicError struct {
	Value  any
	Frames []runtime.Frame
}

// NewPanicError captures the current stack, skipping skip frames.
func NewPanicError(v any, skip int) *PanicError {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip+1, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	p := &PanicError{Value: v}
	for {
		frame, more := frames.Next()
		p.Frames = append(p.Frames, frame)
		if !more {
			break
		}
	}
	return p
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

func (p *PanicError) Format(s fmt.State, verb rune) {
	if verb != 'v' || !s.Flag('+') {
		fmt.Fprint(s, p.Error())
		return
	}
	var b strings.Builder
	b.WriteString(p.Error())
	b.WriteString("\n\nstack:")
	for _, f := range p.Frames {
		fmt.Fprintf(&b, "\n%s\n\t%s:%d", f.Function, f.File, f.Line)
	}
	fmt.Fprint(s, b.String())
}
