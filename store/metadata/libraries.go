package metadata

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

func (s *Store) CreateLibrary(ctx context.Context, lib *cluster.Library) error {
	if lib.ID == uuid.Nil {
		lib.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO libraries (id, name, description, bucket_name, owner_id, created_by,
			mcp_write_enabled, max_file_size_bytes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())`,
		lib.ID, lib.Name, lib.Description, lib.BucketName, lib.OwnerID, lib.CreatedBy,
		lib.MCPWriteEnabled, lib.MaxFileSizeBytes)
	if isUniqueViolation(err) {
		return cmn.WrapError(cmn.KindConflict, err, "bucket_name %s already in use", lib.BucketName)
	}
	return err
}

func (s *Store) GetLibrary(ctx context.Context, id uuid.UUID) (*cluster.Library, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, bucket_name, owner_id, created_by, mcp_write_enabled,
			max_file_size_bytes, created_at, updated_at, deleted, deleted_at, deleted_by
		FROM libraries WHERE id=$1`, id)
	return scanLibrary(row)
}

func scanLibrary(row *sql.Row) (*cluster.Library, error) {
	l := &cluster.Library{}
	var deletedBy uuid.NullUUID
	err := row.Scan(&l.ID, &l.Name, &l.Description, &l.BucketName, &l.OwnerID, &l.CreatedBy,
		&l.MCPWriteEnabled, &l.MaxFileSizeBytes, &l.CreatedAt, &l.UpdatedAt,
		&l.Deleted, &l.DeletedAt, &deletedBy)
	if err == sql.ErrNoRows {
		return nil, cmn.WrapError(cmn.KindNotFound, err, "library not found")
	}
	if err != nil {
		return nil, err
	}
	if deletedBy.Valid {
		l.DeletedBy = deletedBy.UUID
	}
	return l, nil
}

func (s *Store) UpdateLibrary(ctx context.Context, lib *cluster.Library) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE libraries SET name=$2, description=$3, mcp_write_enabled=$4,
			max_file_size_bytes=$5, updated_at=now()
		WHERE id=$1 AND deleted=false`,
		lib.ID, lib.Name, lib.Description, lib.MCPWriteEnabled, lib.MaxFileSizeBytes)
	return err
}

func (s *Store) SoftDeleteLibrary(ctx context.Context, id, actor uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE libraries SET deleted=true, deleted_at=now(), deleted_by=$2, updated_at=now()
		WHERE id=$1 AND deleted=false`, id, actor)
	return err
}

func (s *Store) ListLibrariesForUser(ctx context.Context, userID uuid.UUID) ([]*cluster.Library, error) {
	return s.queryLibraries(ctx, `
		SELECT id, name, description, bucket_name, owner_id, created_by, mcp_write_enabled,
			max_file_size_bytes, created_at, updated_at, deleted, deleted_at, deleted_by
		FROM libraries WHERE deleted=false AND owner_id=$1 ORDER BY created_at`, userID)
}

// ListAllLibraries returns every non-deleted library regardless of
// owner, matching list_libraries' unscoped query — the agent tool
// surface of §4.9 authenticates by agent id, not library ownership, so
// listing/browsing starts from the full set before policy narrows it.
func (s *Store) ListAllLibraries(ctx context.Context) ([]*cluster.Library, error) {
	return s.queryLibraries(ctx, `
		SELECT id, name, description, bucket_name, owner_id, created_by, mcp_write_enabled,
			max_file_size_bytes, created_at, updated_at, deleted, deleted_at, deleted_by
		FROM libraries WHERE deleted=false ORDER BY created_at`)
}

func (s *Store) queryLibraries(ctx context.Context, query string, args ...interface{}) ([]*cluster.Library, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*cluster.Library
	for rows.Next() {
		l := &cluster.Library{}
		var deletedBy uuid.NullUUID
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.BucketName, &l.OwnerID, &l.CreatedBy,
			&l.MCPWriteEnabled, &l.MaxFileSizeBytes, &l.CreatedAt, &l.UpdatedAt,
			&l.Deleted, &l.DeletedAt, &deletedBy); err != nil {
			return nil, err
		}
		if deletedBy.Valid {
			l.DeletedBy = deletedBy.UUID
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
