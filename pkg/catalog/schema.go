package catalog

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS volumes (
	id             INTEGER PRIMARY KEY,
	drive_letter   TEXT NOT NULL UNIQUE,
	volume_serial  TEXT NOT NULL,
	fs_type        TEXT NOT NULL,
	last_usn       INTEGER,
	usn_journal_id INTEGER,
	last_scan_time INTEGER,
	state_kind     TEXT NOT NULL DEFAULT 'Online',
	state_since    INTEGER
);

CREATE TABLE IF NOT EXISTS files (
	id         INTEGER PRIMARY KEY,
	volume_id  INTEGER NOT NULL REFERENCES volumes(id),
	file_ref   INTEGER,
	parent_ref INTEGER,
	name       TEXT NOT NULL,
	size       INTEGER NOT NULL DEFAULT 0,
	modified   INTEGER,
	is_dir     INTEGER NOT NULL DEFAULT 0,
	UNIQUE(volume_id, file_ref)
);

CREATE TABLE IF NOT EXISTS volume_capacity (
	volume_id  INTEGER PRIMARY KEY REFERENCES volumes(id),
	total_size INTEGER NOT NULL,
	free_space INTEGER NOT NULL,
	probed_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_name   ON files(name COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_files_parent ON files(volume_id, parent_ref);
CREATE INDEX IF NOT EXISTS idx_files_volume ON files(volume_id);

INSERT OR IGNORE INTO schema_meta(key, value) VALUES ('schema_version', '1');
`
