package ingest

import (
	"encoding/binary"
	"testing"
	"unicode/utf16"
)

const testAttrsOffset = 56

func buildFileNameAttr(parentRef uint64, name string, isDir bool, namespace byte) []byte {
	nameUTF16 := utf16.Encode([]rune(name))
	contentLen := 66 + len(nameUTF16)*2
	attrLen := 24 + contentLen
	// pad to 8-byte alignment like real records, harmless if not exact.
	for attrLen%8 != 0 {
		attrLen++
	}
	buf := make([]byte, attrLen)

	binary.LittleEndian.PutUint32(buf[0:4], attrTypeFileName)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(attrLen))
	buf[8] = 0 // resident
	binary.LittleEndian.PutUint32(buf[16:20], uint32(contentLen))
	binary.LittleEndian.PutUint16(buf[20:22], 24) // content offset

	content := buf[24 : 24+contentLen]
	binary.LittleEndian.PutUint64(content[0:8], parentRef)
	var flags uint32
	if isDir {
		flags = fileFlagIsDirectory
	}
	binary.LittleEndian.PutUint32(content[56:60], flags)
	content[64] = byte(len(nameUTF16))
	content[65] = namespace
	for i, c := range nameUTF16 {
		binary.LittleEndian.PutUint16(content[66+i*2:66+i*2+2], c)
	}
	return buf
}

func buildDataAttr(length int) []byte {
	buf := make([]byte, length)
	binary.LittleEndian.PutUint32(buf[0:4], attrTypeData)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(length))
	return buf
}

func buildMFTRecord(recordFlags uint16, attrs ...[]byte) []byte {
	buf := make([]byte, 512)
	copy(buf[0:4], mftRecordSignature)
	binary.LittleEndian.PutUint16(buf[20:22], testAttrsOffset) // attrs offset
	binary.LittleEndian.PutUint16(buf[22:24], recordFlags)
	binary.LittleEndian.PutUint32(buf[24:28], 512) // real size

	offset := testAttrsOffset
	for _, a := range attrs {
		copy(buf[offset:], a)
		offset += len(a)
	}
	binary.LittleEndian.PutUint32(buf[offset:offset+4], attrTypeEnd)
	return buf
}

func TestParseMFTRecordFile(t *testing.T) {
	fn := buildFileNameAttr(5, "report.docx", false, fileNameNamespaceWin32)
	data := buildDataAttr(128)
	buf := buildMFTRecord(mftRecordFlagInUse, fn, data)

	entry, err := parseMFTRecord(buf, 42)
	if err != nil {
		t.Fatalf("parseMFTRecord: %v", err)
	}
	if entry.name != "report.docx" {
		t.Errorf("name = %q, want report.docx", entry.name)
	}
	if entry.parentRef != 5 {
		t.Errorf("parentRef = %d, want 5", entry.parentRef)
	}
	if entry.fileRef != 42 {
		t.Errorf("fileRef = %d, want 42", entry.fileRef)
	}
	if entry.isDir {
		t.Error("isDir = true, want false")
	}
	if entry.size != 128 {
		t.Errorf("size = %d, want 128", entry.size)
	}
}

func TestParseMFTRecordDirectory(t *testing.T) {
	fn := buildFileNameAttr(5, "Documents", true, fileNameNamespaceWin32)
	buf := buildMFTRecord(mftRecordFlagInUse|mftRecordFlagIsDirectory, fn)

	entry, err := parseMFTRecord(buf, 7)
	if err != nil {
		t.Fatalf("parseMFTRecord: %v", err)
	}
	if !entry.isDir {
		t.Error("isDir = false, want true")
	}
	if entry.name != "Documents" {
		t.Errorf("name = %q, want Documents", entry.name)
	}
}

func TestParseMFTRecordPrefersWin32Name(t *testing.T) {
	dos := buildFileNameAttr(5, "REPORT~1.DOC", false, fileNameNamespaceDOS)
	win32 := buildFileNameAttr(5, "report final.docx", false, fileNameNamespaceWin32)
	buf := buildMFTRecord(mftRecordFlagInUse, dos, win32)

	entry, err := parseMFTRecord(buf, 1)
	if err != nil {
		t.Fatalf("parseMFTRecord: %v", err)
	}
	if entry.name != "report final.docx" {
		t.Errorf("name = %q, want the Win32 long name", entry.name)
	}
}

func TestParseMFTRecordNotInUseSkipped(t *testing.T) {
	fn := buildFileNameAttr(5, "deleted.txt", false, fileNameNamespaceWin32)
	buf := buildMFTRecord(0, fn) // in-use bit clear

	_, err := parseMFTRecord(buf, 1)
	if err != errRecordNotInUse {
		t.Fatalf("err = %v, want errRecordNotInUse", err)
	}
}

func TestParseMFTRecordBadSignature(t *testing.T) {
	buf := make([]byte, 512)
	copy(buf[0:4], "XXXX")
	if _, err := parseMFTRecord(buf, 1); err == nil {
		t.Fatal("expected error for bad signature")
	}
}
