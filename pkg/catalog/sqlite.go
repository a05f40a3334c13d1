package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ram-shortage/brindex/pkg/log"
	"github.com/ram-shortage/brindex/pkg/types"
)

type sqliteStore struct {
	db *sql.DB
}

// Open creates any missing parent directory, opens (or creates) the
// database at path, and idempotently runs schema init. WAL mode,
// synchronous=NORMAL and a 5s busy-timeout are all set via the DSN so
// every connection the pool opens inherits them.
func Open(path string) (Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("catalog: create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: ping %s: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA mmap_size = 268435456", // ~256MiB
		"PRAGMA cache_size = -65536",   // ~64MiB, negative is KB
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("catalog: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: schema init: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) InsertOrReplaceVolume(ctx context.Context, driveLetter, volumeSerial string, fsKind types.FilesystemKind) (int64, error) {
	// A known drive letter is updated in place rather than deleted and
	// reinserted, so its id, its USN position and the files that
	// reference it survive; the id is then read back by the unique key.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO volumes (drive_letter, volume_serial, fs_type, last_scan_time, state_kind)
		 VALUES (?, ?, ?, strftime('%s','now'), 'Online')
		 ON CONFLICT(drive_letter) DO UPDATE SET volume_serial = excluded.volume_serial,
		   fs_type = excluded.fs_type, last_scan_time = excluded.last_scan_time,
		   state_kind = 'Online', state_since = NULL`,
		driveLetter, volumeSerial, string(fsKind))
	if err != nil {
		return 0, fmt.Errorf("catalog: insert volume %s: %w", driveLetter, err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM volumes WHERE drive_letter = ?`, driveLetter).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("catalog: re-query id for %s: %w", driveLetter, err)
	}
	return id, nil
}

func scanVolume(scan func(dest ...any) error) (*types.Volume, error) {
	var (
		v            types.Volume
		lastUSN      sql.NullInt64
		journalID    sql.NullInt64
		lastScan     sql.NullInt64
		stateSince   sql.NullInt64
		stateKind    string
		fsKindRaw    string
	)
	if err := scan(&v.ID, &v.DriveLetter, &v.VolumeSerial, &fsKindRaw, &lastUSN, &journalID, &lastScan, &stateKind, &stateSince); err != nil {
		return nil, err
	}

	v.FilesystemKind = types.FilesystemKind(fsKindRaw)
	if lastUSN.Valid {
		v.LastUSN = lastUSN.Int64
	}
	if journalID.Valid {
		v.USNJournalID = uint64(journalID.Int64)
	}
	if lastScan.Valid {
		v.LastScanTime = time.Unix(lastScan.Int64, 0).UTC()
	}
	switch types.VolumeStateKind(stateKind) {
	case types.VolumeOffline:
		since := time.Time{}
		if stateSince.Valid {
			since = time.Unix(stateSince.Int64, 0).UTC()
		}
		v.State = types.Offline(since)
	default:
		v.State = types.VolumeState{Kind: types.VolumeStateKind(stateKind)}
	}
	return &v, nil
}

const volumeColumns = `id, drive_letter, volume_serial, fs_type, last_usn, usn_journal_id, last_scan_time, state_kind, state_since`

func (s *sqliteStore) GetVolume(ctx context.Context, driveLetter string) (*types.Volume, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+volumeColumns+` FROM volumes WHERE drive_letter = ?`, driveLetter)
	v, err := scanVolume(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get volume %s: %w", driveLetter, err)
	}
	return v, nil
}

func (s *sqliteStore) GetVolumeByID(ctx context.Context, volumeID int64) (*types.Volume, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+volumeColumns+` FROM volumes WHERE id = ?`, volumeID)
	v, err := scanVolume(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get volume id %d: %w", volumeID, err)
	}
	return v, nil
}

func (s *sqliteStore) ListVolumes(ctx context.Context) ([]types.Volume, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+volumeColumns+` FROM volumes ORDER BY drive_letter`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list volumes: %w", err)
	}
	defer rows.Close()

	var volumes []types.Volume
	for rows.Next() {
		v, err := scanVolume(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan volume row: %w", err)
		}
		volumes = append(volumes, *v)
	}
	return volumes, rows.Err()
}

func (s *sqliteStore) UpdateVolumeUSN(ctx context.Context, volumeID int64, lastUSN int64, journalID uint64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE volumes SET last_usn = ?, usn_journal_id = ? WHERE id = ?`,
		lastUSN, int64(journalID), volumeID)
	if err != nil {
		return fmt.Errorf("catalog: update usn for volume %d: %w", volumeID, err)
	}
	return nil
}

func (s *sqliteStore) UpdateVolumeState(ctx context.Context, volumeID int64, state types.VolumeState) error {
	var since sql.NullInt64
	if state.Kind == types.VolumeOffline {
		since = sql.NullInt64{Int64: state.Since.Unix(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE volumes SET state_kind = ?, state_since = ? WHERE id = ?`,
		string(state.Kind), since, volumeID)
	if err != nil {
		return fmt.Errorf("catalog: update state for volume %d: %w", volumeID, err)
	}
	return nil
}

func (s *sqliteStore) RecordVolumeCapacity(ctx context.Context, volumeID int64, totalSize, freeSpace int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO volume_capacity (volume_id, total_size, free_space, probed_at)
		 VALUES (?, ?, ?, strftime('%s','now'))`,
		volumeID, totalSize, freeSpace)
	if err != nil {
		return fmt.Errorf("catalog: record capacity for volume %d: %w", volumeID, err)
	}
	return nil
}

func (s *sqliteStore) BatchInsertFiles(ctx context.Context, files []types.File) (int, error) {
	total := 0
	for start := 0; start < len(files); start += BatchSize {
		end := start + BatchSize
		if end > len(files) {
			end = len(files)
		}
		n, err := s.insertFileChunk(ctx, files[start:end])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *sqliteStore) insertFileChunk(ctx context.Context, chunk []types.File) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("catalog: begin file batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO files (volume_id, file_ref, parent_ref, name, size, modified, is_dir)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("catalog: prepare file insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, f := range chunk {
		var parentRef any
		if f.ParentRef != nil {
			parentRef = int64(*f.ParentRef)
		}
		var modified any
		if f.Modified != nil {
			modified = f.Modified.Unix()
		}
		if _, err := stmt.ExecContext(ctx, f.VolumeID, int64(f.FileRef), parentRef, f.Name, f.Size, modified, boolToInt(f.IsDir)); err != nil {
			return 0, fmt.Errorf("catalog: insert file %s: %w", f.Name, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("catalog: commit file batch: %w", err)
	}
	return inserted, nil
}

func (s *sqliteStore) ApplyChangesBatch(ctx context.Context, volumeID int64, changes []types.UsnChange) (int, error) {
	if len(changes) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("catalog: begin change batch: %w", err)
	}
	defer tx.Rollback()

	logger := log.WithComponent("catalog")
	applied := 0
	for _, c := range changes {
		var err error
		switch c.ChangeType {
		case types.ChangeCreate:
			var parentRef any
			if c.ParentRef != nil {
				parentRef = int64(*c.ParentRef)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO files (volume_id, file_ref, parent_ref, name, is_dir) VALUES (?, ?, ?, ?, ?)`,
				volumeID, int64(c.FileRef), parentRef, c.Name, boolToInt(c.IsDir))
		case types.ChangeDelete:
			_, err = tx.ExecContext(ctx, `DELETE FROM files WHERE volume_id = ? AND file_ref = ?`, volumeID, int64(c.FileRef))
		case types.ChangeRename:
			var parentRef any
			if c.ParentRef != nil {
				parentRef = int64(*c.ParentRef)
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE files SET name = ?, parent_ref = ? WHERE volume_id = ? AND file_ref = ?`,
				c.Name, parentRef, volumeID, int64(c.FileRef))
		case types.ChangeModify:
			_, err = tx.ExecContext(ctx, `UPDATE files SET name = ? WHERE volume_id = ? AND file_ref = ?`, c.Name, volumeID, int64(c.FileRef))
		}

		if err != nil {
			logger.Warn().Err(err).Uint64("file_ref", c.FileRef).Str("change", string(c.ChangeType)).Msg("failed to apply change, skipping")
			continue
		}
		applied++
	}

	if err := tx.Commit(); err != nil {
		return applied, fmt.Errorf("catalog: commit change batch: %w", err)
	}
	return applied, nil
}

func (s *sqliteStore) DeleteVolumeFiles(ctx context.Context, volumeID int64) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE volume_id = ?`, volumeID)
	if err != nil {
		return 0, fmt.Errorf("catalog: delete files for volume %d: %w", volumeID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("catalog: rows affected for volume %d: %w", volumeID, err)
	}
	return int(n), nil
}

func (s *sqliteStore) SearchFiles(ctx context.Context, query string, limit int) ([]types.File, error) {
	pattern := searchPattern(query)
	rows, err := s.db.QueryContext(ctx,
		`SELECT volume_id, file_ref, parent_ref, name, size, modified, is_dir
		 FROM files WHERE name LIKE ? LIMIT ?`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search %q: %w", query, err)
	}
	defer rows.Close()

	var results []types.File
	for rows.Next() {
		f, err := scanFile(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan search row: %w", err)
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

// searchPattern translates a user query into a LIKE pattern: '*' becomes
// a multi-character wildcard and '?' a single-character wildcard, then
// the whole thing is anchored as a substring match. Deliberately naive:
// a literal '%' or '_' in query acts as a SQL wildcard rather than being
// escaped, matching the contract the query layer is written against.
func searchPattern(query string) string {
	var b strings.Builder
	b.WriteByte('%')
	for _, r := range query {
		switch r {
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('%')
	return b.String()
}

func scanFile(scan func(dest ...any) error) (types.File, error) {
	var (
		f         types.File
		fileRef   sql.NullInt64
		parentRef sql.NullInt64
		modified  sql.NullInt64
		isDir     int
	)
	if err := scan(&f.VolumeID, &fileRef, &parentRef, &f.Name, &f.Size, &modified, &isDir); err != nil {
		return f, err
	}
	if fileRef.Valid {
		f.FileRef = uint64(fileRef.Int64)
	}
	if parentRef.Valid {
		p := uint64(parentRef.Int64)
		f.ParentRef = &p
	}
	if modified.Valid {
		t := time.Unix(modified.Int64, 0).UTC()
		f.Modified = &t
	}
	f.IsDir = isDir != 0
	return f, nil
}

func (s *sqliteStore) GetFileCount(ctx context.Context, volumeID *int64) (int, error) {
	var (
		row *sql.Row
		n   int
	)
	if volumeID != nil {
		row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE volume_id = ?`, *volumeID)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`)
	}
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog: count files: %w", err)
	}
	return n, nil
}

func (s *sqliteStore) GetFile(ctx context.Context, volumeID int64, fileRef uint64) (*types.File, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT volume_id, file_ref, parent_ref, name, size, modified, is_dir
		 FROM files WHERE volume_id = ? AND file_ref = ?`, volumeID, int64(fileRef))
	f, err := scanFile(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get file %d/%d: %w", volumeID, fileRef, err)
	}
	return &f, nil
}

// ReconstructPath walks the parent chain one point-query at a time,
// exactly like the original: no recursive CTE, because the chain needs
// to tolerate a missing/broken link at any point.
func (s *sqliteStore) ReconstructPath(ctx context.Context, volumeID int64, fileRef uint64) (string, error) {
	var components []string
	current := &fileRef

	for current != nil {
		var name string
		var parent sql.NullInt64
		err := s.db.QueryRowContext(ctx,
			`SELECT name, parent_ref FROM files WHERE volume_id = ? AND file_ref = ?`,
			volumeID, int64(*current)).Scan(&name, &parent)

		if errors.Is(err, sql.ErrNoRows) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("catalog: reconstruct path for %d/%d: %w", volumeID, fileRef, err)
		}

		if name != "" && name != "." {
			components = append(components, name)
		}
		if parent.Valid {
			p := uint64(parent.Int64)
			current = &p
		} else {
			current = nil
		}
	}

	for i, j := 0, len(components)-1; i < j; i, j = i+1, j-1 {
		components[i], components[j] = components[j], components[i]
	}
	return filepath.ToSlash(filepath.Join(components...)), nil
}

func (s *sqliteStore) CleanupOldOfflineVolumes(ctx context.Context, retentionDays int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour).Unix()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM volumes WHERE state_kind = 'Offline' AND state_since IS NOT NULL AND state_since <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("catalog: select stale offline volumes: %w", err)
	}
	var staleIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("catalog: scan stale volume id: %w", err)
		}
		staleIDs = append(staleIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	total := 0
	for _, id := range staleIDs {
		n, err := s.DeleteVolumeFiles(ctx, id)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
