package cluster

import (
	"context"

	"github.com/google/uuid"
)

// MetadataStore is the contract the relational adapter (store/metadata)
// satisfies and that every other component depends on through this
// interface, not the concrete Postgres type — mirrors the teacher's
// practice of depending on cluster interfaces (cluster.Target,
// cluster.BackendProvider) rather than concrete runners.
type MetadataStore interface {
	// Libraries
	CreateLibrary(ctx context.Context, lib *Library) error
	GetLibrary(ctx context.Context, id uuid.UUID) (*Library, error)
	UpdateLibrary(ctx context.Context, lib *Library) error
	SoftDeleteLibrary(ctx context.Context, id, actor uuid.UUID) error
	ListLibrariesForUser(ctx context.Context, userID uuid.UUID) ([]*Library, error)
	ListAllLibraries(ctx context.Context) ([]*Library, error)

	// Directories
	CreateDirectory(ctx context.Context, d *Directory) error
	GetDirectory(ctx context.Context, id uuid.UUID) (*Directory, error)
	FindDirectory(ctx context.Context, libraryID uuid.UUID, parentID *uuid.UUID, name string) (*Directory, error)
	ListChildDirectories(ctx context.Context, libraryID uuid.UUID, parentID *uuid.UUID) ([]*Directory, error)
	ListDescendantDirectories(ctx context.Context, libraryID, directoryID uuid.UUID) ([]*Directory, error)
	UpdateDirectory(ctx context.Context, d *Directory) error
	SoftDeleteDirectories(ctx context.Context, ids []uuid.UUID, actor uuid.UUID) error

	// Files
	CreateFile(ctx context.Context, f *File, firstVersion *FileVersion) error
	GetFile(ctx context.Context, id uuid.UUID) (*File, error)
	FindFile(ctx context.Context, libraryID uuid.UUID, directoryID *uuid.UUID, filename string) (*File, error)
	ListFilesInDirectory(ctx context.Context, libraryID uuid.UUID, directoryID *uuid.UUID) ([]*File, error)
	ListDescendantFiles(ctx context.Context, libraryID, directoryID uuid.UUID) ([]*File, error)
	UpdateFile(ctx context.Context, f *File) error
	CommitNewVersion(ctx context.Context, f *File, v *FileVersion) error
	SoftDeleteFiles(ctx context.Context, ids []uuid.UUID, actor uuid.UUID) error
	ListVersions(ctx context.Context, fileID uuid.UUID) ([]*FileVersion, error)
	FindByChecksum(ctx context.Context, libraryID uuid.UUID, checksum string) (*File, error)

	// Trash
	ListTrash(ctx context.Context, libraryID uuid.UUID) ([]*TrashItem, error)
	RestoreDirectory(ctx context.Context, id uuid.UUID, newParent *uuid.UUID, actor uuid.UUID) error
	RestoreFile(ctx context.Context, id uuid.UUID, newDirectory *uuid.UUID, actor uuid.UUID) error
	PermanentDeleteDirectory(ctx context.Context, id uuid.UUID) error
	PermanentDeleteFile(ctx context.Context, id uuid.UUID) error
	ListExpiredTrash(ctx context.Context, cutoffDays int) ([]*TrashItem, error)

	// Shares
	CreateShare(ctx context.Context, s *ShareLink) error
	GetShareByToken(ctx context.Context, token string) (*ShareLink, error)
	IncrementShareAccess(ctx context.Context, id uuid.UUID) error
	RevokeShare(ctx context.Context, id uuid.UUID) error

	// Audit
	AppendAudit(ctx context.Context, e *AuditEvent) error
	QueryAuditByCorrelation(ctx context.Context, correlationID string) ([]*AuditEvent, error)
	QueryAuditByLibrary(ctx context.Context, libraryID uuid.UUID, limit int) ([]*AuditEvent, error)

	// Notifications
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*Notification, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error
}
