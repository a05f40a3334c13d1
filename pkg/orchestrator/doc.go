/*
Package orchestrator runs the one-shot startup indexing pass: probe
every drive letter, skip volumes of Unknown filesystem kind and volumes
not enabled in configuration, and for each remaining volume upsert its
catalog row and dispatch it to the MFT or Directory-Walk ingestor
according to its filesystem kind.

Volumes run sequentially, not in parallel, to bound peak I/O and the
memory a single in-memory path map can reach during a FAT walk. Every
pass is tagged with a run ID so its log lines can be correlated.
*/
package orchestrator
