// Package trash implements the restore/purge/empty/sweep operations
// over soft-deleted directories and files, wrapping store/metadata's
// trash queries with storage cleanup and audit logging. Grounded on
// original_source/backend/app/services/trash.py; the listing and
// soft-delete bookkeeping it duplicates in Python (separate file/
// directory queries merged and sorted in the service layer) is pushed
// down into store/metadata.ListTrash's single UNION ALL query instead.
package trash

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nicolaslallier/Beacon-Library-sub000/audit"
	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
	"github.com/nicolaslallier/Beacon-Library-sub000/store/object"
)

type Service struct {
	Metadata cluster.MetadataStore
	Objects  object.Store
	Audit    *audit.Service
}

func New(metadata cluster.MetadataStore, objects object.Store, auditSvc *audit.Service) *Service {
	return &Service{Metadata: metadata, Objects: objects, Audit: auditSvc}
}

// List returns every trashed item in a library, matching get_trash_items.
func (s *Service) List(ctx context.Context, libraryID uuid.UUID) ([]*cluster.TrashItem, error) {
	return s.Metadata.ListTrash(ctx, libraryID)
}

// RestoreFile matches _restore_file's restore-to-original-or-explicit-
// parent branching. store/metadata.RestoreFile clears the soft-delete
// fields unconditionally: neither it nor this method checks the
// retention expiry or whether the original directory still exists.
func (s *Service) RestoreFile(ctx context.Context, fileID uuid.UUID, newParent *uuid.UUID, actor uuid.UUID) error {
	if err := s.Metadata.RestoreFile(ctx, fileID, newParent, actor); err != nil {
		return err
	}
	if s.Audit != nil {
		_ = s.Audit.LogUser(ctx, actor, audit.ActionFileRestore, "file", fileID, nil, "", map[string]interface{}{"restored_from_trash": true})
	}
	return nil
}

func (s *Service) RestoreDirectory(ctx context.Context, directoryID uuid.UUID, newParent *uuid.UUID, actor uuid.UUID) error {
	if err := s.Metadata.RestoreDirectory(ctx, directoryID, newParent, actor); err != nil {
		return err
	}
	if s.Audit != nil {
		_ = s.Audit.LogUser(ctx, actor, audit.ActionDirectoryRestore, "directory", directoryID, nil, "", map[string]interface{}{"restored_from_trash": true})
	}
	return nil
}

// PermanentDeleteFile removes the object payload before the row,
// matching _permanent_delete_file — a storage delete failure is logged
// but never blocks the metadata delete, since an orphaned object is
// recoverable by a bucket sweep while an un-deletable trash row is not.
func (s *Service) PermanentDeleteFile(ctx context.Context, f *cluster.File, bucket string) error {
	if f.StorageKey != "" {
		if err := s.Objects.DeleteObject(ctx, bucket, f.StorageKey); err != nil {
			log.Warn().Err(err).Str("file_id", f.ID.String()).Msg("storage delete failed during permanent delete")
		}
	}
	return s.Metadata.PermanentDeleteFile(ctx, f.ID)
}

func (s *Service) PermanentDeleteDirectory(ctx context.Context, directoryID uuid.UUID) error {
	return s.Metadata.PermanentDeleteDirectory(ctx, directoryID)
}

// EmptyResult mirrors EmptyTrashResponse.
type EmptyResult struct {
	DeletedCount int
	FreedBytes   int64
}

// Empty purges every trashed item in one library, matching empty_trash.
func (s *Service) Empty(ctx context.Context, libraryID uuid.UUID, bucket string, actor uuid.UUID) (EmptyResult, error) {
	items, err := s.Metadata.ListTrash(ctx, libraryID)
	if err != nil {
		return EmptyResult{}, err
	}

	var res EmptyResult
	for _, item := range items {
		switch item.ItemType {
		case "file":
			if err := s.Metadata.PermanentDeleteFile(ctx, item.ItemID); err != nil {
				log.Warn().Err(err).Str("file_id", item.ItemID.String()).Msg("permanent delete failed during empty trash")
				continue
			}
		case "directory":
			if err := s.Metadata.PermanentDeleteDirectory(ctx, item.ItemID); err != nil {
				log.Warn().Err(err).Str("directory_id", item.ItemID.String()).Msg("permanent delete failed during empty trash")
				continue
			}
		}
		res.DeletedCount++
	}

	if s.Audit != nil {
		_ = s.Audit.LogUser(ctx, actor, audit.ActionTrashEmpty, "library", libraryID, &libraryID, "",
			map[string]interface{}{"deleted_count": res.DeletedCount})
	}
	return res, nil
}

// CleanupExpired purges everything past its retention window, matching
// cleanup_expired — intended to run from a scheduled sweeper alongside
// store/cache's and store/object's own GC ticks.
func (s *Service) CleanupExpired(ctx context.Context, retentionDays int) (int, error) {
	expired, err := s.Metadata.ListExpiredTrash(ctx, retentionDays)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, item := range expired {
		var delErr error
		switch item.ItemType {
		case "file":
			delErr = s.Metadata.PermanentDeleteFile(ctx, item.ItemID)
		case "directory":
			delErr = s.Metadata.PermanentDeleteDirectory(ctx, item.ItemID)
		}
		if delErr != nil {
			log.Warn().Err(delErr).Str("item_id", item.ItemID.String()).Msg("expired trash cleanup failed")
			continue
		}
		count++
	}
	log.Info().Int("deleted_count", count).Msg("expired trash cleaned")
	return count, nil
}
