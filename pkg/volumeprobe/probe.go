// Package volumeprobe enumerates attached drive letters and reports
// filesystem kind, serial number, and capacity for each. It never
// touches the catalog; callers turn a VolumeInfo into a catalog row.
package volumeprobe

import "github.com/ram-shortage/brindex/pkg/types"

// Probe enumerates candidate drive letters A-Z and reports the ones that
// are actually present. Drives that fail to query (not present, access
// denied, removable with no media) are silently skipped, matching the
// source behavior of treating absence as the common case, not an error.
func Probe() ([]types.VolumeInfo, error) {
	return probe()
}
