package metadata

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

const fileCols = `id, library_id, directory_id, filename, path, size_bytes, checksum_sha256,
	content_type, storage_key, current_version, created_by, modified_by, created_at, updated_at,
	deleted, deleted_at, deleted_by`

func scanFile(row interface{ Scan(...interface{}) error }) (*cluster.File, error) {
	f := &cluster.File{}
	var deletedBy uuid.NullUUID
	err := row.Scan(&f.ID, &f.LibraryID, &f.DirectoryID, &f.Filename, &f.Path, &f.SizeBytes,
		&f.ChecksumSHA256, &f.ContentType, &f.StorageKey, &f.CurrentVersion, &f.CreatedBy,
		&f.ModifiedBy, &f.CreatedAt, &f.UpdatedAt, &f.Deleted, &f.DeletedAt, &deletedBy)
	if err == sql.ErrNoRows {
		return nil, cmn.WrapError(cmn.KindNotFound, err, "file not found")
	}
	if err != nil {
		return nil, err
	}
	if deletedBy.Valid {
		f.DeletedBy = deletedBy.UUID
	}
	return f, nil
}

// CreateFile inserts the file row and its first version (version_number
// 1) in one transaction — the "Else: insert the file row and a version
// row at number 1" branch of §4.6's complete contract.
func (s *Store) CreateFile(ctx context.Context, f *cluster.File, firstVersion *cluster.FileVersion) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if firstVersion.ID == uuid.Nil {
		firstVersion.ID = uuid.New()
	}
	firstVersion.FileID = f.ID
	firstVersion.VersionNumber = 1
	f.CurrentVersion = 1

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO files (id, library_id, directory_id, filename, path, size_bytes,
				checksum_sha256, content_type, storage_key, current_version, created_by,
				modified_by, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,1,$10,$10,now(),now())`,
			f.ID, f.LibraryID, f.DirectoryID, f.Filename, f.Path, f.SizeBytes,
			f.ChecksumSHA256, f.ContentType, f.StorageKey, f.CreatedBy); isUniqueViolation(err) {
			return cmn.WrapError(cmn.KindConflict, err, "filename %q already exists in this directory", f.Filename)
		} else if err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO file_versions (id, file_id, version_number, size_bytes, checksum_sha256,
				storage_key, created_at, created_by, comment)
			VALUES ($1,$2,1,$3,$4,$5,now(),$6,$7)`,
			firstVersion.ID, f.ID, firstVersion.SizeBytes, firstVersion.ChecksumSHA256,
			firstVersion.StorageKey, firstVersion.CreatedBy, firstVersion.Comment)
		return err
	})
}

func (s *Store) GetFile(ctx context.Context, id uuid.UUID) (*cluster.File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileCols+` FROM files WHERE id=$1`, id)
	return scanFile(row)
}

func (s *Store) FindFile(ctx context.Context, libraryID uuid.UUID, directoryID *uuid.UUID, filename string) (*cluster.File, error) {
	var row *sql.Row
	if directoryID == nil {
		row = s.db.QueryRowContext(ctx, `SELECT `+fileCols+` FROM files
			WHERE library_id=$1 AND directory_id IS NULL AND filename=$2 AND deleted=false`, libraryID, filename)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT `+fileCols+` FROM files
			WHERE library_id=$1 AND directory_id=$2 AND filename=$3 AND deleted=false`, libraryID, *directoryID, filename)
	}
	return scanFile(row)
}

func (s *Store) ListFilesInDirectory(ctx context.Context, libraryID uuid.UUID, directoryID *uuid.UUID) ([]*cluster.File, error) {
	var rows *sql.Rows
	var err error
	if directoryID == nil {
		rows, err = s.db.QueryContext(ctx, `SELECT `+fileCols+` FROM files
			WHERE library_id=$1 AND directory_id IS NULL AND deleted=false ORDER BY filename`, libraryID)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+fileCols+` FROM files
			WHERE library_id=$1 AND directory_id=$2 AND deleted=false ORDER BY filename`, libraryID, *directoryID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFiles(rows)
}

func (s *Store) ListDescendantFiles(ctx context.Context, libraryID, directoryID uuid.UUID) ([]*cluster.File, error) {
	dir, err := s.GetDirectory(ctx, directoryID)
	if err != nil {
		return nil, err
	}
	ownPrefix := "/" + dir.Name
	if dir.Path != "/" {
		ownPrefix = dir.Path + ownPrefix
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+fileCols+` FROM files
		WHERE library_id=$1 AND deleted=false AND (directory_id=$2 OR path LIKE $3)`,
		libraryID, directoryID, ownPrefix+"/%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFiles(rows)
}

func collectFiles(rows *sql.Rows) ([]*cluster.File, error) {
	var out []*cluster.File
	for rows.Next() {
		f := &cluster.File{}
		var deletedBy uuid.NullUUID
		if err := rows.Scan(&f.ID, &f.LibraryID, &f.DirectoryID, &f.Filename, &f.Path, &f.SizeBytes,
			&f.ChecksumSHA256, &f.ContentType, &f.StorageKey, &f.CurrentVersion, &f.CreatedBy,
			&f.ModifiedBy, &f.CreatedAt, &f.UpdatedAt, &f.Deleted, &f.DeletedAt, &deletedBy); err != nil {
			return nil, err
		}
		if deletedBy.Valid {
			f.DeletedBy = deletedBy.UUID
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpdateFile persists a rename/move: path changes only, storage_key is
// never touched (keys are version-scoped per §4.6).
func (s *Store) UpdateFile(ctx context.Context, f *cluster.File) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE files SET filename=$2, directory_id=$3, path=$4, modified_by=$5, updated_at=now()
		WHERE id=$1 AND deleted=false`, f.ID, f.Filename, f.DirectoryID, f.Path, f.ModifiedBy)
	if isUniqueViolation(err) {
		return cmn.WrapError(cmn.KindConflict, err, "filename %q already exists in target directory", f.Filename)
	}
	return err
}

// CommitNewVersion implements the "existing_file_id set" branch of
// §4.6's complete contract: bump current_version, replace the denormalized
// blob fields, and insert the new version row, serialized per file so
// current_version stays linear with no gaps (§5).
func (s *Store) CommitNewVersion(ctx context.Context, f *cluster.File, v *cluster.FileVersion) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		// SELECT ... FOR UPDATE serializes concurrent completions
		// against the same file so current_version increments linearly,
		// satisfying §5's version-monotonicity ordering guarantee.
		var current int
		if err := tx.QueryRowContext(ctx, `SELECT current_version FROM files WHERE id=$1 FOR UPDATE`, f.ID).Scan(&current); err != nil {
			return err
		}
		next := current + 1
		v.VersionNumber = next
		v.FileID = f.ID

		if _, err := tx.ExecContext(ctx, `
			UPDATE files SET size_bytes=$2, checksum_sha256=$3, storage_key=$4, modified_by=$5,
				current_version=$6, updated_at=now()
			WHERE id=$1`, f.ID, v.SizeBytes, v.ChecksumSHA256, v.StorageKey, v.CreatedBy, next); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO file_versions (id, file_id, version_number, size_bytes, checksum_sha256,
				storage_key, created_at, created_by, comment)
			VALUES ($1,$2,$3,$4,$5,$6,now(),$7,$8)`,
			v.ID, f.ID, next, v.SizeBytes, v.ChecksumSHA256, v.StorageKey, v.CreatedBy, v.Comment)
		if err == nil {
			f.CurrentVersion = next
		}
		return err
	})
}

func (s *Store) SoftDeleteFiles(ctx context.Context, ids []uuid.UUID, actor uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE files SET deleted=true, deleted_at=now(), deleted_by=$2, updated_at=now()
		WHERE id = ANY($1)`, pqUUIDArray(ids), actor)
	return err
}

func (s *Store) ListVersions(ctx context.Context, fileID uuid.UUID) ([]*cluster.FileVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_id, version_number, size_bytes, checksum_sha256, storage_key, created_at, created_by, comment
		FROM file_versions WHERE file_id=$1 ORDER BY version_number`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*cluster.FileVersion
	for rows.Next() {
		v := &cluster.FileVersion{}
		if err := rows.Scan(&v.ID, &v.FileID, &v.VersionNumber, &v.SizeBytes, &v.ChecksumSHA256,
			&v.StorageKey, &v.CreatedAt, &v.CreatedBy, &v.Comment); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// FindByChecksum backs the content-addressed dedup check of §1.1 with a
// single indexed query; no probabilistic filter sits in front of it.
func (s *Store) FindByChecksum(ctx context.Context, libraryID uuid.UUID, checksum string) (*cluster.File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileCols+` FROM files
		WHERE library_id=$1 AND checksum_sha256=$2 AND deleted=false LIMIT 1`, libraryID, checksum)
	return scanFile(row)
}
