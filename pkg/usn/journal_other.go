//go:build !windows

package usn

import "errors"

func openJournalSource(driveLetter string) (journalSource, error) {
	return nil, errors.New("usn: USN journal access is windows-only")
}
