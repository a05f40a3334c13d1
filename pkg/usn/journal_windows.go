//go:build windows

package usn

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	fsctlQueryUsnJournal = 0x000900F4
	fsctlReadUsnJournal  = 0x000900BB

	readBufferSize = 64 * 1024
)

type queryUsnJournalData struct {
	UsnJournalID    uint64
	FirstUsn        int64
	NextUsn         int64
	LowestValidUsn  int64
	MaxUsn          int64
	MaximumSize     uint64
	AllocationDelta uint64
}

type readUsnJournalData struct {
	StartUsn          int64
	ReasonMask        uint32
	ReturnOnlyOnClose uint32
	Timeout           uint64
	BytesToWaitFor    uint64
	UsnJournalID      uint64
}

const reasonMaskAll = usnReasonFileCreate | usnReasonFileDelete |
	usnReasonRenameOldName | usnReasonRenameNewName |
	usnReasonDataOverwrite | usnReasonDataExtend | usnReasonDataTruncation

// winJournalSource reads the real USN Change Journal of one NTFS volume
// through raw DeviceIoControl calls.
type winJournalSource struct {
	handle windows.Handle
}

func openJournalSource(driveLetter string) (journalSource, error) {
	path := fmt.Sprintf(`\\.\%s:`, driveLetter)
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, fmt.Errorf("usn: encode path %s: %w", path, err)
	}
	handle, err := windows.CreateFile(
		pathPtr,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("usn: open volume %s (requires administrator rights): %w", path, err)
	}
	return &winJournalSource{handle: handle}, nil
}

func (j *winJournalSource) queryJournal() (journalMeta, error) {
	var data queryUsnJournalData
	var bytesReturned uint32
	err := windows.DeviceIoControl(
		j.handle,
		fsctlQueryUsnJournal,
		nil, 0,
		(*byte)(unsafe.Pointer(&data)), uint32(unsafe.Sizeof(data)),
		&bytesReturned, nil,
	)
	if err != nil {
		if err == windows.ERROR_JOURNAL_NOT_ACTIVE {
			return journalMeta{}, ErrJournalNotActive
		}
		return journalMeta{}, fmt.Errorf("usn: query journal: %w", err)
	}
	return journalMeta{
		journalID:   data.UsnJournalID,
		nextUsn:     data.NextUsn,
		lowestValid: data.LowestValidUsn,
		maxUsn:      data.MaxUsn,
	}, nil
}

func (j *winJournalSource) readJournal(startUsn int64, journalID uint64) ([]rawUsnRecord, int64, error) {
	readData := readUsnJournalData{
		StartUsn:     startUsn,
		ReasonMask:   reasonMaskAll,
		UsnJournalID: journalID,
	}
	buf := make([]byte, readBufferSize)
	var bytesReturned uint32
	err := windows.DeviceIoControl(
		j.handle,
		fsctlReadUsnJournal,
		(*byte)(unsafe.Pointer(&readData)), uint32(unsafe.Sizeof(readData)),
		&buf[0], uint32(len(buf)),
		&bytesReturned, nil,
	)
	if err != nil {
		return nil, startUsn, fmt.Errorf("usn: read journal: %w", err)
	}
	if bytesReturned <= 8 {
		return nil, startUsn, nil
	}

	nextUsn := int64(leUint64(buf[0:8]))
	records, err := parseJournalBuffer(buf[8:bytesReturned])
	if err != nil {
		return nil, nextUsn, err
	}
	return records, nextUsn, nil
}

func (j *winJournalSource) close() error {
	return windows.CloseHandle(j.handle)
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
