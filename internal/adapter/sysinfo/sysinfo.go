// Package sysinfo samples host load and memory for failure reports.
package sysinfo

import (
	"fmt"
	"runtime"

	"github.com/V4T54L/hookwatch/internal/domain"
)

// Snapshot is a point-in-time reading of host telemetry. Zero values mean
// the platform did not report the metric.
type Snapshot struct {
	Load1, Load5, Load15 float64
	MemoryUsedMB         uint64
	MemoryTotalMB        uint64
	Goroutines           int
}

// Probe reads host telemetry. The read function is swappable in tests.
type Probe struct {
	read func() (Snapshot, error)
}

// NewProbe returns a Probe backed by the platform implementation.
func NewProbe() *Probe {
	return &Probe{read: readHost}
}

// Snapshot samples the host. Errors from the platform yield a snapshot with
// only the goroutine count filled in.
func (p *Probe) Snapshot() Snapshot {
	s, err := p.read()
	if err != nil {
		s = Snapshot{}
	}
	s.Goroutines = runtime.NumGoroutine()
	return s
}

// Fields renders a snapshot as report fields.
func (p *Probe) Fields() []domain.EmbedField {
	s := p.Snapshot()
	return []domain.EmbedField{
		{Name: "CPU Load (5 minutes)", Value: fmt.Sprintf("%.2f", s.Load5), Inline: true},
		{Name: "System Memory Usage", Value: fmt.Sprintf("%d MiB", s.MemoryUsedMB), Inline: true},
		{Name: "Goroutines", Value: fmt.Sprintf("%d", s.Goroutines), Inline: true},
	}
}
