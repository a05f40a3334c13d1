/*
Package usn implements the per-NTFS-volume USN Change Journal monitor: it
polls the journal at an adaptive interval, deduplicates rapid changes to
the same file, applies them to the catalog, and detects journal wrap and
journal recreation so the caller can trigger a full rescan.
*/
package usn
