package metadata

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
)

// ListTrash unions soft-deleted directories and files into the derived
// TrashItem view (§4.7), each annotated with the retention-based expiry
// the sweeper uses to pick candidates for permanent deletion.
func (s *Store) ListTrash(ctx context.Context, libraryID uuid.UUID) ([]*cluster.TrashItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT 'directory', id, library_id, path, name, deleted_by, deleted_at
		FROM directories WHERE library_id=$1 AND deleted=true
		UNION ALL
		SELECT 'file', id, library_id, path, filename, deleted_by, deleted_at
		FROM files WHERE library_id=$1 AND deleted=true
		ORDER BY deleted_at DESC`, libraryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*cluster.TrashItem
	for rows.Next() {
		t := &cluster.TrashItem{}
		var deletedBy uuid.NullUUID
		var deletedAt time.Time
		if err := rows.Scan(&t.ItemType, &t.ItemID, &t.LibraryID, &t.OriginalPath, &t.Name,
			&deletedBy, &deletedAt); err != nil {
			return nil, err
		}
		if deletedBy.Valid {
			t.DeletedBy = deletedBy.UUID
		}
		t.DeletedAt = deletedAt
		t.ExpiresAt = deletedAt.AddDate(0, 0, trashRetentionDays)
		out = append(out, t)
	}
	return out, rows.Err()
}

// trashRetentionDays has the same value as cmn.DefaultTrashRetentionDays,
// declared separately in this package.
const trashRetentionDays = 30

// RestoreDirectory clears the soft-delete trio and, if newParent is
// given, re-parents the directory — the restore-with-rename-on-conflict
// behavior belongs to the trash service, not this adapter.
func (s *Store) RestoreDirectory(ctx context.Context, id uuid.UUID, newParent *uuid.UUID, actor uuid.UUID) error {
	if newParent != nil {
		_, err := s.db.ExecContext(ctx, `
			UPDATE directories SET deleted=false, deleted_at=NULL, deleted_by=NULL,
				parent_id=$2, updated_at=now() WHERE id=$1`, id, *newParent)
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE directories SET deleted=false, deleted_at=NULL, deleted_by=NULL, updated_at=now()
		WHERE id=$1`, id)
	return err
}

func (s *Store) RestoreFile(ctx context.Context, id uuid.UUID, newDirectory *uuid.UUID, actor uuid.UUID) error {
	if newDirectory != nil {
		_, err := s.db.ExecContext(ctx, `
			UPDATE files SET deleted=false, deleted_at=NULL, deleted_by=NULL,
				directory_id=$2, updated_at=now() WHERE id=$1`, id, *newDirectory)
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE files SET deleted=false, deleted_at=NULL, deleted_by=NULL, updated_at=now()
		WHERE id=$1`, id)
	return err
}

// PermanentDeleteDirectory removes the row outright; the object-store
// blob cleanup and descendant cascade are the caller's responsibility.
func (s *Store) PermanentDeleteDirectory(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM directories WHERE id=$1`, id)
	return err
}

func (s *Store) PermanentDeleteFile(ctx context.Context, id uuid.UUID) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM file_versions WHERE file_id=$1`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id=$1`, id)
		return err
	})
}

// ListExpiredTrash finds soft-deleted directories and files whose
// deleted_at is older than cutoffDays, for the sweeper's cleanup pass.
func (s *Store) ListExpiredTrash(ctx context.Context, cutoffDays int) ([]*cluster.TrashItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT 'directory', id, library_id, path, name, deleted_by, deleted_at
		FROM directories WHERE deleted=true AND deleted_at < now() - ($1 || ' days')::interval
		UNION ALL
		SELECT 'file', id, library_id, path, filename, deleted_by, deleted_at
		FROM files WHERE deleted=true AND deleted_at < now() - ($1 || ' days')::interval
		ORDER BY deleted_at`, cutoffDays)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*cluster.TrashItem
	for rows.Next() {
		t := &cluster.TrashItem{}
		var deletedBy uuid.NullUUID
		var deletedAt time.Time
		if err := rows.Scan(&t.ItemType, &t.ItemID, &t.LibraryID, &t.OriginalPath, &t.Name,
			&deletedBy, &deletedAt); err != nil {
			return nil, err
		}
		if deletedBy.Valid {
			t.DeletedBy = deletedBy.UUID
		}
		t.DeletedAt = deletedAt
		t.ExpiresAt = deletedAt.AddDate(0, 0, cutoffDays)
		out = append(out, t)
	}
	return out, rows.Err()
}
