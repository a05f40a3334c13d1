//go:build windows

package volumeprobe

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/ram-shortage/brindex/pkg/log"
	"github.com/ram-shortage/brindex/pkg/types"
)

func probe() ([]types.VolumeInfo, error) {
	logger := log.WithComponent("volumeprobe")
	var volumes []types.VolumeInfo

	for letter := 'A'; letter <= 'Z'; letter++ {
		root := fmt.Sprintf("%c:\\", letter)
		rootPtr, err := windows.UTF16PtrFromString(root)
		if err != nil {
			continue
		}

		var (
			serial      uint32
			fsNameBuf   [260]uint16
			volNameBuf  [260]uint16
			maxComp     uint32
			fsFlags     uint32
		)
		if err := windows.GetVolumeInformation(
			rootPtr,
			&volNameBuf[0], uint32(len(volNameBuf)),
			&serial,
			&maxComp,
			&fsFlags,
			&fsNameBuf[0], uint32(len(fsNameBuf)),
		); err != nil {
			// Drive absent or inaccessible: the common case, not an error.
			continue
		}

		fsName := windows.UTF16ToString(fsNameBuf[:])
		kind := classifyFilesystem(fsName)

		var total, free, totalFree uint64
		if err := windows.GetDiskFreeSpaceEx(rootPtr, &free, &total, &totalFree); err != nil {
			logger.Debug().Str("drive", string(letter)).Err(err).Msg("could not read free space")
			total, totalFree = 0, 0
		}

		volumes = append(volumes, types.VolumeInfo{
			DriveLetter:    string(letter),
			VolumeSerial:   fmt.Sprintf("%08X", serial),
			FilesystemKind: kind,
			TotalSize:      int64(total),
			FreeSpace:      int64(totalFree),
		})
	}

	return volumes, nil
}

func classifyFilesystem(fsName string) types.FilesystemKind {
	switch fsName {
	case "NTFS":
		return types.FilesystemNTFS
	case "FAT32":
		return types.FilesystemFAT32
	case "exFAT", "EXFAT":
		return types.FilesystemExFAT
	default:
		return types.FilesystemUnknown
	}
}
