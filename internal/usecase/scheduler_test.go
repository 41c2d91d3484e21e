package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/V4T54L/hookwatch/internal/adapter/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type funcTask struct {
	name string
	fn   func(ctx context.Context) error
}

func (t funcTask) Name() string                  { return t.name }
func (t funcTask) Run(ctx context.Context) error { return t.fn(ctx) }

func TestScheduler_Run(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Failures Do Not Stop Ticks", func(t *testing.T) {
		var calls atomic.Int32
		task := funcTask{name: "flaky", fn: func(ctx context.Context) error {
			n := calls.Add(1)
			if n == 1 {
				return errors.New("first run fails")
			}
			if n == 2 {
				panic("second run panics")
			}
			return nil
		}}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			NewScheduler(logger, nil).Run(ctx, task, time.Millisecond)
			close(done)
		}()

		deadline := time.After(2 * time.Second)
		for calls.Load() < 4 {
			select {
			case <-deadline:
				t.Fatalf("expected at least 4 runs, got %d", calls.Load())
			case <-time.After(time.Millisecond):
			}
		}
		cancel()
		<-done
	})

	t.Run("Runs Never Overlap", func(t *testing.T) {
		var mu sync.Mutex
		running, maxRunning, runs := 0, 0, 0
		task := funcTask{name: "slow", fn: func(ctx context.Context) error {
			mu.Lock()
			running++
			runs++
			if running > maxRunning {
				maxRunning = running
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond) // longer than the interval

			mu.Lock()
			running--
			mu.Unlock()
			return nil
		}}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
		defer cancel()
		NewScheduler(logger, nil).Run(ctx, task, time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		if runs == 0 {
			t.Fatal("task never ran")
		}
		if maxRunning != 1 {
			t.Errorf("expected at most 1 concurrent run, got %d", maxRunning)
		}
	})

	t.Run("Waits Before First Run", func(t *testing.T) {
		var calls atomic.Int32
		task := funcTask{name: "lazy", fn: func(ctx context.Context) error {
			calls.Add(1)
			return nil
		}}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		NewScheduler(logger, nil).Run(ctx, task, time.Hour)

		if calls.Load() != 0 {
			t.Errorf("expected no runs before the first interval, got %d", calls.Load())
		}
	})
}

func TestScheduler_RecordsTaskMetrics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	s := NewScheduler(logger, metrics.NewMetrics(reg))

	ok := funcTask{name: "ok", fn: func(ctx context.Context) error { return nil }}
	boom := funcTask{name: "boom", fn: func(ctx context.Context) error { panic("boom") }}
	if err := s.runOnce(context.Background(), ok); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := s.runOnce(context.Background(), boom); err == nil {
		t.Fatal("expected the panic to surface as an error")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	samples := make(map[string]uint64)
	for _, mf := range families {
		if mf.GetName() != "hookwatch_scheduler_task_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "task" {
					samples[label.GetValue()] = m.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	if samples["ok"] != 1 || samples["boom"] != 1 {
		t.Errorf("expected one duration sample per task, got %v", samples)
	}
}
