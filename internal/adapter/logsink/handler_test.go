package logsink

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/V4T54L/hookwatch/internal/domain"
)

type recorded struct {
	source   string
	text     string
	severity domain.Severity
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recorded
}

func (f *fakeRecorder) Record(source, text string, severity domain.Severity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recorded{source, text, severity})
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name    string
		log     func(l *slog.Logger)
		want    []recorded
		verbose domain.Severity
	}{
		{
			name:    "Prefixed Component Passes At Info",
			verbose: domain.SeverityInfo,
			log: func(l *slog.Logger) {
				l.With("component", "shop.cart").Info("item added", "sku", "A1")
			},
			want: []recorded{{"shop.cart", "item added sku=A1", domain.SeverityInfo}},
		},
		{
			name:    "Prefixed Component Below Max Verbosity Is Dropped",
			verbose: domain.SeverityInfo,
			log: func(l *slog.Logger) {
				l.With("component", "shop.cart").Debug("cache probe")
			},
			want: nil,
		},
		{
			name:    "Foreign Component Needs Warn",
			verbose: domain.SeverityDebug,
			log: func(l *slog.Logger) {
				l.With("component", "grpc").Info("dialing")
				l.With("component", "grpc").Warn("retrying", "attempt", 2)
			},
			want: []recorded{{"grpc", "retrying attempt=2", domain.SeverityWarn}},
		},
		{
			name:    "Component On Record",
			verbose: domain.SeverityDebug,
			log: func(l *slog.Logger) {
				l.Debug("tick", "component", "shop.worker")
			},
			want: []recorded{{"shop.worker", "tick", domain.SeverityDebug}},
		},
		{
			name:    "Missing Component Uses Default Source",
			verbose: domain.SeverityDebug,
			log: func(l *slog.Logger) {
				l.Error("unhandled", "code", 500)
			},
			want: []recorded{{"app", "unhandled code=500", domain.SeverityError}},
		},
		{
			name:    "Groups Qualify Keys",
			verbose: domain.SeverityInfo,
			log: func(l *slog.Logger) {
				l.With("component", "shop.http").WithGroup("req").Info("done", "status", 200, slog.Group("user", "id", 7))
			},
			want: []recorded{{"shop.http", "done req.status=200 req.user.id=7", domain.SeverityInfo}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			tt.log(slog.New(NewHandler(rec, tt.verbose, "shop")))

			if len(rec.events) != len(tt.want) {
				t.Fatalf("expected %d events, got %d: %+v", len(tt.want), len(rec.events), rec.events)
			}
			for i, want := range tt.want {
				if rec.events[i] != want {
					t.Errorf("event %d: got %+v, want %+v", i, rec.events[i], want)
				}
			}
		})
	}
}

func TestHandlerEnabled(t *testing.T) {
	h := NewHandler(&fakeRecorder{}, domain.SeverityDebug, "shop")
	ctx := context.Background()

	if !h.Enabled(ctx, slog.LevelDebug) {
		t.Error("expected debug to be enabled before the component is known")
	}
	foreign := h.WithAttrs([]slog.Attr{slog.String("component", "redis")})
	if foreign.Enabled(ctx, slog.LevelInfo) {
		t.Error("expected info to be disabled for a foreign component")
	}
	if !foreign.Enabled(ctx, slog.LevelWarn) {
		t.Error("expected warn to be enabled for a foreign component")
	}
}
