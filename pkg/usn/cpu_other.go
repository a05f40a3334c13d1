//go:build !windows

package usn

import "errors"

func sampleCPUUtilization() (float64, error) {
	return 0, errors.New("usn: CPU sampling is windows-only")
}
