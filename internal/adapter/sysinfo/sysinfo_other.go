//go:build !linux

package sysinfo

import "errors"

func readHost() (Snapshot, error) {
	return Snapshot{}, errors.New("host telemetry is only available on linux")
}
