package usn

import (
	"errors"
	"fmt"
)

// ErrJournalNotActive means the USN Journal is disabled on the volume;
// the caller should treat the volume as FAT and hand it to the
// reconciler instead of a monitor.
var ErrJournalNotActive = errors.New("usn: journal not active")

// JournalWrappedError means the kernel has reused journal space past our
// saved cursor; some changes were missed and the volume needs a full
// rescan.
type JournalWrappedError struct {
	LastProcessed int64
	LowestValid   int64
}

func (e *JournalWrappedError) Error() string {
	return fmt.Sprintf("usn: journal wrapped: last_processed=%d lowest_valid=%d", e.LastProcessed, e.LowestValid)
}

// JournalRecreatedError means the journal was deleted and recreated with
// a new id; the previous cursor is meaningless and the volume needs a
// full rescan.
type JournalRecreatedError struct {
	OldID uint64
	NewID uint64
}

func (e *JournalRecreatedError) Error() string {
	return fmt.Sprintf("usn: journal recreated: old_id=%d new_id=%d", e.OldID, e.NewID)
}
