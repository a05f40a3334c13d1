/*
Package ingest implements the two bulk-ingest strategies: MFT (direct
$MFT stream enumeration, NTFS only) and Walk (recursive directory
traversal, used for FAT32/exFAT and as the non-Windows fallback).

Both strategies batch emitted files through catalog.Store.BatchInsertFiles
in chunks of catalog.BatchSize and poll a shutdown channel between
chunks so a long-running scan can be cancelled promptly.
*/
package ingest
