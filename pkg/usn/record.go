package usn

import (
	"encoding/binary"
	"errors"
	"unicode/utf16"

	"github.com/ram-shortage/brindex/pkg/types"
)

// USN reason bits, from winioctl.h. Only the bits the classifier cares
// about are named; others are ignored.
const (
	usnReasonDataOverwrite  = 0x00000001
	usnReasonDataExtend     = 0x00000002
	usnReasonDataTruncation = 0x00000004
	usnReasonFileCreate     = 0x00000100
	usnReasonFileDelete     = 0x00000200
	usnReasonRenameOldName  = 0x00001000
	usnReasonRenameNewName  = 0x00002000
)

const fileAttributeDirectory = 0x00000010

var errShortRecord = errors.New("usn: record shorter than its header")

// rawUsnRecord is one parsed journal record off the wire (USN_RECORD_V2
// layout: 64-bit file references, inline file name), before reason
// classification.
type rawUsnRecord struct {
	fileRef        uint64
	parentRef      uint64
	usn            int64
	reason         uint32
	fileAttributes uint32
	name           string
}

// classifyReason maps a USN reason bitmap to a single ChangeType using
// priority Delete > Create > Rename > Modify; Rename is signalled by
// either the old-name or new-name bit.
func classifyReason(reason uint32) (types.ChangeType, bool) {
	switch {
	case reason&usnReasonFileDelete != 0:
		return types.ChangeDelete, true
	case reason&usnReasonFileCreate != 0:
		return types.ChangeCreate, true
	case reason&(usnReasonRenameOldName|usnReasonRenameNewName) != 0:
		return types.ChangeRename, true
	case reason&(usnReasonDataOverwrite|usnReasonDataExtend|usnReasonDataTruncation) != 0:
		return types.ChangeModify, true
	default:
		return "", false
	}
}

// usnRecordV4HeaderSize is the fixed portion of a USN_RECORD_V2 record
// preceding the variable-length file name.
const usnRecordV4HeaderSize = 60

// parseUsnRecordV4 decodes one record from a FSCTL_READ_USN_JOURNAL
// buffer starting at offset 0 of buf. buf must be exactly RecordLength
// bytes (the caller slices it out of the larger read buffer).
func parseUsnRecordV4(buf []byte) (rawUsnRecord, error) {
	if len(buf) < usnRecordV4HeaderSize {
		return rawUsnRecord{}, errShortRecord
	}
	fileRef := binary.LittleEndian.Uint64(buf[8:16])
	parentRef := binary.LittleEndian.Uint64(buf[16:24])
	usn := int64(binary.LittleEndian.Uint64(buf[24:32]))
	reason := binary.LittleEndian.Uint32(buf[40:44])
	fileAttributes := binary.LittleEndian.Uint32(buf[52:56])
	nameLen := binary.LittleEndian.Uint16(buf[56:58])
	nameOffset := binary.LittleEndian.Uint16(buf[58:60])

	end := int(nameOffset) + int(nameLen)
	if end > len(buf) {
		return rawUsnRecord{}, errShortRecord
	}
	nameBytes := buf[nameOffset:end]
	u16 := make([]uint16, len(nameBytes)/2)
	for i := range u16 {
		u16[i] = binary.LittleEndian.Uint16(nameBytes[i*2 : i*2+2])
	}

	return rawUsnRecord{
		fileRef:        fileRef,
		parentRef:      parentRef,
		usn:            usn,
		reason:         reason,
		fileAttributes: fileAttributes,
		name:           string(utf16.Decode(u16)),
	}, nil
}

func (r rawUsnRecord) isDir() bool {
	return r.fileAttributes&fileAttributeDirectory != 0
}

// toUsnChange converts a raw record into the change the monitor emits,
// or false if the reason bitmap carries none of the reasons the
// classifier recognizes (e.g. security/attribute-only changes).
func (r rawUsnRecord) toUsnChange() (types.UsnChange, bool) {
	changeType, ok := classifyReason(r.reason)
	if !ok {
		return types.UsnChange{}, false
	}
	parent := r.parentRef
	return types.UsnChange{
		FileRef:    r.fileRef,
		ParentRef:  &parent,
		Name:       r.name,
		ChangeType: changeType,
		IsDir:      r.isDir(),
	}, true
}
