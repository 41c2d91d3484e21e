//go:build linux

package sysinfo

import "golang.org/x/sys/unix"

// loadScale converts sysinfo(2) load averages (fixed point, SI_LOAD_SHIFT).
const loadScale = 1 << 16

func readHost() (Snapshot, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return Snapshot{}, err
	}
	unit := uint64(info.Unit)
	total := uint64(info.Totalram) * unit
	free := (uint64(info.Freeram) + uint64(info.Bufferram)) * unit

	s := Snapshot{
		Load1:         float64(info.Loads[0]) / loadScale,
		Load5:         float64(info.Loads[1]) / loadScale,
		Load15:        float64(info.Loads[2]) / loadScale,
		MemoryTotalMB: total / (1024 * 1024),
	}
	if total > free {
		s.MemoryUsedMB = (total - free) / (1024 * 1024)
	}
	return s, nil
}
