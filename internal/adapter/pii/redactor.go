package pii

import (
	"regexp"
	"sort"
	"strings"

	"github.com/V4T54L/hookwatch/internal/domain"
)

const RedactedPlaceholder = "[REDACTED]"

// Redactor masks credentials in log text before it leaves the process.
type Redactor struct {
	fieldPatterns []*regexp.Regexp
	secrets       []string
}

// NewRedactor creates a Redactor that masks the values of the given
// key=value / "key":"value" fields and every literal occurrence of secrets.
func NewRedactor(fields, secrets []string) *Redactor {
	r := &Redactor{}
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\b(` + regexp.QuoteMeta(field) + `)("?\s*[=:]\s*)("[^"]*"|[^\s,}]+)`)
		r.fieldPatterns = append(r.fieldPatterns, re)
	}
	for _, s := range secrets {
		if s != "" {
			r.secrets = append(r.secrets, s)
		}
	}
	// Longest first so a secret containing another is masked whole.
	sort.Slice(r.secrets, func(i, j int) bool { return len(r.secrets[i]) > len(r.secrets[j]) })
	return r
}

// RedactText returns text with sensitive values replaced, and whether
// anything was replaced.
func (r *Redactor) RedactText(text string) (string, bool) {
	if r == nil {
		return text, false
	}
	out := text
	for _, s := range r.secrets {
		out = strings.ReplaceAll(out, s, RedactedPlaceholder)
	}
	for _, re := range r.fieldPatterns {
		out = re.ReplaceAllString(out, "${1}${2}"+RedactedPlaceholder)
	}
	return out, out != text
}

// Redact modifies the LogEvent in place and reports whether it changed.
// It must not log: it runs on the path that feeds the log sink.
func (r *Redactor) Redact(event *domain.LogEvent) bool {
	text, changed := r.RedactText(event.Text)
	if changed {
		event.Text = text
	}
	return changed
}
