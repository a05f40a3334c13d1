//go:build windows

package usn

import (
	"time"

	"golang.org/x/sys/windows"
)

// cpuSampleInterval is the gap between the two GetSystemTimes snapshots
// used to compute instantaneous CPU utilization, matching the source's
// two-sample approach.
const cpuSampleInterval = 100 * time.Millisecond

// sampleCPUUtilization returns system-wide CPU busy percentage (0-100)
// measured across two GetSystemTimes snapshots.
func sampleCPUUtilization() (float64, error) {
	idle1, kernel1, user1, err := getSystemTimes()
	if err != nil {
		return 0, err
	}
	time.Sleep(cpuSampleInterval)
	idle2, kernel2, user2, err := getSystemTimes()
	if err != nil {
		return 0, err
	}

	idleDelta := filetimeDelta(idle1, idle2)
	kernelDelta := filetimeDelta(kernel1, kernel2)
	userDelta := filetimeDelta(user1, user2)

	total := kernelDelta + userDelta
	if total == 0 {
		return 0, nil
	}
	busy := total - idleDelta
	return float64(busy) / float64(total) * 100, nil
}

func getSystemTimes() (idle, kernel, user windows.Filetime, err error) {
	err = windows.GetSystemTimes(&idle, &kernel, &user)
	return
}

func filetimeDelta(a, b windows.Filetime) int64 {
	toInt64 := func(ft windows.Filetime) int64 {
		return int64(ft.HighDateTime)<<32 | int64(ft.LowDateTime)
	}
	d := toInt64(b) - toInt64(a)
	if d < 0 {
		return 0
	}
	return d
}
