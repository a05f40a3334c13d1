//go:build !windows

package ingest

import (
	"context"

	"github.com/ram-shortage/brindex/pkg/catalog"
	"github.com/ram-shortage/brindex/pkg/log"
)

// ScanNTFSVolume is unavailable outside Windows; BRindeX only targets
// Windows hosts, so this exists purely to keep the package buildable and
// testable elsewhere.
func ScanNTFSVolume(ctx context.Context, driveLetter string, volumeID int64, store catalog.Store, shutdown <-chan struct{}) (int, error) {
	log.WithVolume(driveLetter).Warn().Msg("MFT scanning is only available on Windows")
	return 0, nil
}
