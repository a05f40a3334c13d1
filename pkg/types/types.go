package types

import "time"

// FilesystemKind identifies the on-disk format of a volume.
type FilesystemKind string

const (
	FilesystemNTFS    FilesystemKind = "NTFS"
	FilesystemFAT32   FilesystemKind = "FAT32"
	FilesystemExFAT   FilesystemKind = "exFAT"
	FilesystemUnknown FilesystemKind = "Unknown"
)

// VolumeStateKind is the discriminant of VolumeState.
type VolumeStateKind string

const (
	VolumeOnline     VolumeStateKind = "Online"
	VolumeOffline    VolumeStateKind = "Offline"
	VolumeIndexing   VolumeStateKind = "Indexing"
	VolumeRescanning VolumeStateKind = "Rescanning"
	VolumeDisabled   VolumeStateKind = "Disabled"
)

// VolumeState is a tagged state; Since is only meaningful when Kind is
// VolumeOffline.
type VolumeState struct {
	Kind  VolumeStateKind
	Since time.Time
}

func Online() VolumeState     { return VolumeState{Kind: VolumeOnline} }
func Indexing() VolumeState   { return VolumeState{Kind: VolumeIndexing} }
func Rescanning() VolumeState { return VolumeState{Kind: VolumeRescanning} }
func Disabled() VolumeState   { return VolumeState{Kind: VolumeDisabled} }
func Offline(since time.Time) VolumeState {
	return VolumeState{Kind: VolumeOffline, Since: since}
}

func (s VolumeState) String() string {
	if s.Kind == VolumeOffline {
		return "Offline(" + s.Since.Format(time.RFC3339) + ")"
	}
	return string(s.Kind)
}

// Volume is a catalog record for one attached drive letter.
type Volume struct {
	ID             int64
	DriveLetter    string // single uppercase letter, e.g. "C"
	VolumeSerial   string // hex, zero-padded to 8 digits
	FilesystemKind FilesystemKind
	LastUSN        int64  // NTFS only
	USNJournalID   uint64 // NTFS only
	LastScanTime   time.Time
	State          VolumeState
}

// File is a catalog record for one file or directory on a volume.
type File struct {
	VolumeID  int64
	FileRef   uint64
	ParentRef *uint64 // nil for the root
	Name      string
	Size      int64
	Modified  *time.Time
	IsDir     bool
}

// ChangeType classifies a single USN-journal-derived mutation to apply to
// the catalog.
type ChangeType string

const (
	ChangeCreate ChangeType = "Create"
	ChangeDelete ChangeType = "Delete"
	ChangeRename ChangeType = "Rename"
	ChangeModify ChangeType = "Modify"
)

// UsnChange is one deduplicated mutation produced by the USN Monitor and
// handed to Store.ApplyChangesBatch.
type UsnChange struct {
	FileRef    uint64
	ParentRef  *uint64
	Name       string
	ChangeType ChangeType
	IsDir      bool
}

// VolumeInfo is what the Volume Probe reports for one candidate drive
// letter, before it becomes a catalog Volume record.
type VolumeInfo struct {
	DriveLetter    string
	VolumeSerial   string
	FilesystemKind FilesystemKind
	TotalSize      int64
	FreeSpace      int64
}
