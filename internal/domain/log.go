package domain

import (
	"fmt"
	"log/slog"
	"strings"
)

// Severity is the ordered level of a log event.
type Severity int

const (
	SeverityTrace Severity = iota
	SeverityDebug
	SeverityInfo
	SeverityWarn
	SeverityError
)

// Severities lists every severity in ascending order.
var Severities = [...]Severity{SeverityTrace, SeverityDebug, SeverityInfo, SeverityWarn, SeverityError}

const (
	avatarURLFormat = "https://cdn.discordapp.com/embed/avatars/%d.png"
	fallbackAvatar  = 5
)

var severityNames = [...]string{
	SeverityTrace: "TRACE",
	SeverityDebug: "DEBUG",
	SeverityInfo:  "INFO",
	SeverityWarn:  "WARN",
	SeverityError: "ERROR",
}

var severityAvatars = [...]int{
	SeverityTrace: 1,
	SeverityDebug: 1,
	SeverityInfo:  0,
	SeverityWarn:  3,
	SeverityError: 4,
}

func (s Severity) valid() bool {
	return s >= SeverityTrace && s <= SeverityError
}

func (s Severity) String() string {
	if !s.valid() {
		return fmt.Sprintf("SEVERITY(%d)", int(s))
	}
	return severityNames[s]
}

// AvatarURL returns the webhook avatar used for messages of this severity.
func (s Severity) AvatarURL() string {
	n := fallbackAvatar
	if s.valid() {
		n = severityAvatars[s]
	}
	return fmt.Sprintf(avatarURLFormat, n)
}

// IsError reports whether events of this severity go to the error webhook.
func (s Severity) IsError() bool {
	return s >= SeverityError
}

// FromSlogLevel maps a slog level onto the closest severity. Levels below
// Debug are treated as Trace.
func FromSlogLevel(level slog.Level) Severity {
	switch {
	case level >= slog.LevelError:
		return SeverityError
	case level >= slog.LevelWarn:
		return SeverityWarn
	case level >= slog.LevelInfo:
		return SeverityInfo
	case level >= slog.LevelDebug:
		return SeverityDebug
	default:
		return SeverityTrace
	}
}

// SlogLevel is the inverse of FromSlogLevel. Trace sits four steps below Debug.
func (s Severity) SlogLevel() slog.Level {
	switch s {
	case SeverityError:
		return slog.LevelError
	case SeverityWarn:
		return slog.LevelWarn
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityDebug:
		return slog.LevelDebug
	default:
		return slog.LevelDebug - 4
	}
}

// ParseSeverity converts "trace", "debug", "info", "warn" or "error" to a
// Severity. Unknown strings default to SeverityInfo.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return SeverityTrace
	case "debug":
		return SeverityDebug
	case "warn", "warning":
		return SeverityWarn
	case "error":
		return SeverityError
	default:
		return SeverityInfo
	}
}

// LogEvent is a single buffered log emission. Events are never persisted.
type LogEvent struct {
	Severity Severity
	Source   string
	Text     string
}

// Line renders the event the way it appears inside a webhook message.
func (e LogEvent) Line() string {
	return "[" + e.Source + "]: " + e.Text + "\n"
}
