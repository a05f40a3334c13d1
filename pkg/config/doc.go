/*
Package config loads BRindeX's YAML configuration file: global polling
and retention defaults, the per-drive-letter enable/interval table, and
the exclude list. Load applies every documented default so callers never
see a zero value that wasn't explicitly set.

DefaultDataDir (paths_windows.go, paths_other.go) resolves the default
data directory (%PROGRAMDATA%\BRindeX on Windows); logs live under
{data_dir}/logs per spec.md §6.
*/
package config
