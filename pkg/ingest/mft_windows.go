//go:build windows

package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"

	"github.com/ram-shortage/brindex/pkg/catalog"
	"github.com/ram-shortage/brindex/pkg/log"
	"github.com/ram-shortage/brindex/pkg/types"
)

// mftRecordSize is the on-disk MFT record size; modern NTFS volumes
// default to 1024 bytes and report it via $Boot, but reading $Boot is
// out of scope here so the default is assumed, matching the source's
// fixed-size read.
const mftRecordSize = 1024

// progressInterval doubles as the shutdown-check cadence and the
// progress-log cadence, same as the source.
const progressInterval = 100_000

const maxLoggedParseErrors = 10

// ScanNTFSVolume opens the raw $MFT stream of driveLetter (e.g. "C") and
// streams every in-use record into store as a File, batching through
// catalog.BatchSize. Requires SeBackupPrivilege and administrator rights.
func ScanNTFSVolume(ctx context.Context, driveLetter string, volumeID int64, store catalog.Store, shutdown <-chan struct{}) (int, error) {
	logger := log.WithVolume(driveLetter)

	if err := winio.EnableProcessPrivileges([]string{winio.SeBackupPrivilege}); err != nil {
		return 0, fmt.Errorf("ingest: enable backup privilege: %w", err)
	}
	defer winio.DisableProcessPrivileges([]string{winio.SeBackupPrivilege})

	path := fmt.Sprintf(`\\.\%s:\$MFT`, driveLetter)
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, fmt.Errorf("ingest: encode path %s: %w", path, err)
	}

	handle, err := windows.CreateFile(
		pathPtr,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return 0, fmt.Errorf("ingest: open %s (requires administrator rights): %w", path, err)
	}
	file := os.NewFile(uintptr(handle), path)
	defer file.Close()

	reader := bufio.NewReaderSize(file, 64*1024)

	var (
		batch       []types.File
		total       int
		parseErrors int
		recordNum   uint64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := store.BatchInsertFiles(ctx, batch)
		total += n
		batch = batch[:0]
		return err
	}

	buf := make([]byte, mftRecordSize)
	for {
		if recordNum%progressInterval == 0 && recordNum > 0 {
			select {
			case <-shutdown:
				logger.Info().Uint64("records_seen", recordNum).Msg("MFT scan received shutdown signal, flushing")
				if err := flush(); err != nil {
					return total, err
				}
				return total, nil
			default:
			}
			logger.Info().Uint64("records_seen", recordNum).Int("indexed", total).Msg("MFT scan progress")
		}

		_, err := readFullOrEOF(reader, buf)
		if err == errEOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("ingest: read MFT record %d: %w", recordNum, err)
		}

		entry, err := parseMFTRecord(buf, recordNum)
		recordNum++
		if err != nil {
			if err != errRecordNotInUse && err != errNoFileNameAttr {
				parseErrors++
				if parseErrors <= maxLoggedParseErrors {
					logger.Debug().Err(err).Uint64("record", recordNum).Msg("failed to parse MFT record")
				}
			}
			continue
		}

		var parentRef *uint64
		if entry.parentRef != entry.fileRef {
			p := entry.parentRef
			parentRef = &p
		}
		batch = append(batch, types.File{
			VolumeID:  volumeID,
			FileRef:   entry.fileRef,
			ParentRef: parentRef,
			Name:      entry.name,
			Size:      entry.size,
			IsDir:     entry.isDir,
		})

		if len(batch) >= catalog.BatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}

	if err := flush(); err != nil {
		return total, err
	}

	if parseErrors > 0 {
		logger.Warn().Int("errors", parseErrors).Msg("MFT scan completed with per-record parse errors")
	}
	logger.Info().Int("indexed", total).Msg("MFT scan complete")
	return total, nil
}

var errEOF = errors.New("ingest: eof")

func readFullOrEOF(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			if errors.Is(err, io.EOF) {
				return n, errEOF
			}
			return n, err
		}
	}
	return n, nil
}
