package metadata

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

func (s *Store) CreateDirectory(ctx context.Context, d *cluster.Directory) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO directories (id, library_id, parent_id, name, path, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now(),now())`,
		d.ID, d.LibraryID, d.ParentID, d.Name, d.Path, d.CreatedBy)
	if isUniqueViolation(err) {
		return cmn.WrapError(cmn.KindConflict, err, "directory %q already exists in this parent", d.Name)
	}
	return err
}

func scanDirectory(row interface{ Scan(...interface{}) error }) (*cluster.Directory, error) {
	d := &cluster.Directory{}
	var deletedBy uuid.NullUUID
	err := row.Scan(&d.ID, &d.LibraryID, &d.ParentID, &d.Name, &d.Path, &d.CreatedBy,
		&d.CreatedAt, &d.UpdatedAt, &d.Deleted, &d.DeletedAt, &deletedBy)
	if err == sql.ErrNoRows {
		return nil, cmn.WrapError(cmn.KindNotFound, err, "directory not found")
	}
	if err != nil {
		return nil, err
	}
	if deletedBy.Valid {
		d.DeletedBy = deletedBy.UUID
	}
	return d, nil
}

const directoryCols = `id, library_id, parent_id, name, path, created_by, created_at, updated_at, deleted, deleted_at, deleted_by`

func (s *Store) GetDirectory(ctx context.Context, id uuid.UUID) (*cluster.Directory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+directoryCols+` FROM directories WHERE id=$1`, id)
	return scanDirectory(row)
}

func (s *Store) FindDirectory(ctx context.Context, libraryID uuid.UUID, parentID *uuid.UUID, name string) (*cluster.Directory, error) {
	var row *sql.Row
	if parentID == nil {
		row = s.db.QueryRowContext(ctx, `SELECT `+directoryCols+` FROM directories
			WHERE library_id=$1 AND parent_id IS NULL AND name=$2 AND deleted=false`, libraryID, name)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT `+directoryCols+` FROM directories
			WHERE library_id=$1 AND parent_id=$2 AND name=$3 AND deleted=false`, libraryID, *parentID, name)
	}
	return scanDirectory(row)
}

func (s *Store) ListChildDirectories(ctx context.Context, libraryID uuid.UUID, parentID *uuid.UUID) ([]*cluster.Directory, error) {
	var rows *sql.Rows
	var err error
	if parentID == nil {
		rows, err = s.db.QueryContext(ctx, `SELECT `+directoryCols+` FROM directories
			WHERE library_id=$1 AND parent_id IS NULL AND deleted=false ORDER BY name`, libraryID)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+directoryCols+` FROM directories
			WHERE library_id=$1 AND parent_id=$2 AND deleted=false ORDER BY name`, libraryID, *parentID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDirectories(rows)
}

// ListDescendantDirectories returns every non-deleted directory whose
// path is rooted under directoryID's own path, used by rename/move to
// rewrite paths depth-first (§4.6) and by soft-delete cascade.
func (s *Store) ListDescendantDirectories(ctx context.Context, libraryID, directoryID uuid.UUID) ([]*cluster.Directory, error) {
	root, err := s.GetDirectory(ctx, directoryID)
	if err != nil {
		return nil, err
	}
	own := "/" + root.Name
	if root.Path != "/" {
		own = root.Path + own
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+directoryCols+` FROM directories
		WHERE library_id=$1 AND deleted=false AND (path=$2 OR path LIKE $3) ORDER BY path`, libraryID, own, own+"/%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDirectories(rows)
}

func collectDirectories(rows *sql.Rows) ([]*cluster.Directory, error) {
	var out []*cluster.Directory
	for rows.Next() {
		d := &cluster.Directory{}
		var deletedBy uuid.NullUUID
		if err := rows.Scan(&d.ID, &d.LibraryID, &d.ParentID, &d.Name, &d.Path, &d.CreatedBy,
			&d.CreatedAt, &d.UpdatedAt, &d.Deleted, &d.DeletedAt, &deletedBy); err != nil {
			return nil, err
		}
		if deletedBy.Valid {
			d.DeletedBy = deletedBy.UUID
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateDirectory persists a rename/move: new name/parent/path for d,
// plus a cascading path rewrite on every descendant directory/file,
// all inside one transaction (§5 "Transaction discipline").
func (s *Store) UpdateDirectory(ctx context.Context, d *cluster.Directory) error {
	descendants, err := s.ListDescendantDirectories(ctx, d.LibraryID, d.ID)
	if err != nil && !cmn.IsKind(err, cmn.KindNotFound) {
		return err
	}
	files, err := s.ListDescendantFiles(ctx, d.LibraryID, d.ID)
	if err != nil {
		return err
	}
	old, err := s.GetDirectory(ctx, d.ID)
	if err != nil {
		return err
	}
	oldRoot, newRoot := "/"+old.Name, "/"+d.Name
	if old.Path != "/" {
		oldRoot = old.Path + oldRoot
	}
	if d.Path != "/" {
		newRoot = d.Path + newRoot
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE directories SET name=$2, parent_id=$3, path=$4, updated_at=now()
			WHERE id=$1`, d.ID, d.Name, d.ParentID, d.Path); isUniqueViolation(err) {
			return cmn.WrapError(cmn.KindConflict, err, "directory %q already exists in target parent", d.Name)
		} else if err != nil {
			return err
		}

		// Note: d.Path/d.Name refer to the NEW location; we rewrite each
		// descendant's stored path by replacing the old root prefix with
		// the new one, preserving everything below it byte for byte —
		// this is the depth-first rewrite named in §4.6/§9.
		for _, desc := range descendants {
			rewritten := newRoot + trimPrefix(desc.Path, oldRoot)
			if _, err := tx.ExecContext(ctx, `UPDATE directories SET path=$2, updated_at=now() WHERE id=$1`,
				desc.ID, rewritten); err != nil {
				return err
			}
		}
		for _, f := range files {
			rewritten := newRoot + trimPrefix(f.Path, oldRoot)
			if _, err := tx.ExecContext(ctx, `UPDATE files SET path=$2 WHERE id=$1`, f.ID, rewritten); err != nil {
				return err
			}
		}
		return nil
	})
}

func trimPrefix(s, prefix string) string {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}

func (s *Store) currentPath(ctx context.Context, id uuid.UUID) (string, error) {
	var path string
	err := s.db.QueryRowContext(ctx, `SELECT path FROM directories WHERE id=$1`, id).Scan(&path)
	return path, err
}

// SoftDeleteDirectories marks the given directory ids (already expanded
// by the caller to include the full descendant cascade) with the
// soft-delete trio in one statement.
func (s *Store) SoftDeleteDirectories(ctx context.Context, ids []uuid.UUID, actor uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE directories SET deleted=true, deleted_at=now(), deleted_by=$2, updated_at=now()
		WHERE id = ANY($1)`, pqUUIDArray(ids), actor)
	return err
}
