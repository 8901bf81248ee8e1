// Package cluster defines the namespace-engine domain types (§3) shared
// by the metadata store, the library/directory/file service, trash,
// share, audit and notification components. Grounded on the teacher's
// cluster package, which plays the analogous role of holding shared
// domain types (Bck, LOM) independent of any single runner.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cluster

import (
	"time"

	"github.com/google/uuid"
)

// SoftDelete is the three-field trio shared by every soft-deletable row
// (§3).
type SoftDelete struct {
	Deleted   bool       `json:"deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy uuid.UUID  `json:"deleted_by,omitempty"`
}

func (s SoftDelete) IsDeleted() bool { return s.Deleted }

type Library struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	BucketName       string    `json:"bucket_name"`
	OwnerID          uuid.UUID `json:"owner_id"`
	CreatedBy        uuid.UUID `json:"created_by"`
	MCPWriteEnabled  bool      `json:"mcp_write_enabled"`
	MaxFileSizeBytes *int64    `json:"max_file_size_bytes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	SoftDelete
}

type Directory struct {
	ID        uuid.UUID  `json:"id"`
	LibraryID uuid.UUID  `json:"library_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Name      string     `json:"name"`
	Path      string     `json:"path"`
	CreatedBy uuid.UUID  `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	SoftDelete
}

type File struct {
	ID             uuid.UUID  `json:"id"`
	LibraryID      uuid.UUID  `json:"library_id"`
	DirectoryID    *uuid.UUID `json:"directory_id,omitempty"`
	Filename       string     `json:"filename"`
	Path           string     `json:"path"`
	SizeBytes      int64      `json:"size_bytes"`
	ChecksumSHA256 string     `json:"checksum_sha256"`
	ContentType    string     `json:"content_type"`
	StorageKey     string     `json:"storage_key"`
	CurrentVersion int        `json:"current_version"`
	CreatedBy      uuid.UUID  `json:"created_by"`
	ModifiedBy     uuid.UUID  `json:"modified_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	SoftDelete
}

type FileVersion struct {
	ID            uuid.UUID `json:"id"`
	FileID        uuid.UUID `json:"file_id"`
	VersionNumber int       `json:"version_number"`
	SizeBytes     int64     `json:"size_bytes"`
	ChecksumSHA256 string   `json:"checksum_sha256"`
	StorageKey    string    `json:"storage_key"`
	CreatedAt     time.Time `json:"created_at"`
	CreatedBy     uuid.UUID `json:"created_by"`
	Comment       *string   `json:"comment,omitempty"`
}

type ShareLink struct {
	ID               uuid.UUID  `json:"id"`
	Token            string     `json:"token"`
	TargetType       string     `json:"target_type"`
	TargetID         uuid.UUID  `json:"target_id"`
	ShareType        string     `json:"share_type"`
	PasswordHash     *string    `json:"-"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	MaxAccessCount   *int       `json:"max_access_count,omitempty"`
	AccessCount      int        `json:"access_count"`
	AllowGuestAccess bool       `json:"allow_guest_access"`
	NotifyOnAccess   bool       `json:"notify_on_access"`
	IsActive         bool       `json:"is_active"`
	CreatedBy        uuid.UUID  `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	LastAccessedAt   *time.Time `json:"last_accessed_at,omitempty"`
}

type AuditEvent struct {
	ID            uuid.UUID              `json:"id"`
	Timestamp     time.Time              `json:"timestamp"`
	ActorType     string                 `json:"actor_type"`
	ActorID       uuid.UUID              `json:"actor_id"`
	ActorName     *string                `json:"actor_name,omitempty"`
	Action        string                 `json:"action"`
	TargetType    string                 `json:"target_type"`
	TargetID      uuid.UUID              `json:"target_id"`
	LibraryID     *uuid.UUID             `json:"library_id,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
	CorrelationID string                 `json:"correlation_id"`
	IPAddress     *string                `json:"ip_address,omitempty"`
	UserAgent     *string                `json:"user_agent,omitempty"`
}

type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Data      map[string]interface{} `json:"data,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// TrashItem is the derived view exposed by the trash service (§4.7): a
// soft-deleted directory or file annotated with its restore window.
type TrashItem struct {
	ItemType     string    `json:"item_type"` // "file" | "directory"
	ItemID       uuid.UUID `json:"item_id"`
	LibraryID    uuid.UUID `json:"library_id"`
	OriginalPath string    `json:"original_path"`
	Name         string    `json:"name"`
	DeletedBy    uuid.UUID `json:"deleted_by"`
	DeletedAt    time.Time `json:"deleted_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}
