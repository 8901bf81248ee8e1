// Package audit appends and queries the append-only activity log,
// wrapping store/metadata's audit methods with the actor/action
// vocabulary every other service writes through. Grounded on
// original_source/backend/app/services/audit.py and
// original_source/backend/app/models/audit.py.
package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
)

// Actor types, matching models.audit.ActorType.
const (
	ActorUser  = "user"
	ActorAgent = "ai"
	ActorShare = "share"
	ActorSystem = "system"
)

// Action names, matching models.audit.AuditAction's library/directory/
// file/share/trash vocabulary.
const (
	ActionLibraryCreate    = "library.create"
	ActionLibraryUpdate    = "library.update"
	ActionLibraryDelete    = "library.delete"
	ActionDirectoryCreate  = "directory.create"
	ActionDirectoryRename  = "directory.rename"
	ActionDirectoryMove    = "directory.move"
	ActionDirectoryDelete  = "directory.delete"
	ActionDirectoryRestore = "directory.restore"
	ActionFileUpload       = "file.upload"
	ActionFileDownload     = "file.download"
	ActionFileUpdate       = "file.update"
	ActionFileRename       = "file.rename"
	ActionFileMove         = "file.move"
	ActionFileDelete       = "file.delete"
	ActionFileRestore      = "file.restore"
	ActionShareCreate      = "share.create"
	ActionShareAccess      = "share.access"
	ActionShareRevoke      = "share.revoke"
	ActionTrashEmpty       = "trash.empty"
	ActionTrashPurge       = "trash.purge"
)

// Service appends events to and queries the metadata store's audit
// log. It never rejects a caller for a logging failure in the write
// path: callers that log best-effort should catch the returned error
// and decide whether to surface it.
type Service struct {
	store cluster.MetadataStore
}

func New(store cluster.MetadataStore) *Service {
	return &Service{store: store}
}

// Entry mirrors AuditService.log_user_action/log_agent_action's keyword
// arguments in one struct so callers build one literal per call site.
type Entry struct {
	ActorType     string
	ActorID       uuid.UUID
	ActorName     *string
	Action        string
	TargetType    string
	TargetID      uuid.UUID
	LibraryID     *uuid.UUID
	Details       map[string]interface{}
	CorrelationID string
	IPAddress     *string
	UserAgent     *string
}

func (s *Service) Log(ctx context.Context, e Entry) error {
	return s.store.AppendAudit(ctx, &cluster.AuditEvent{
		ID:            uuid.New(),
		ActorType:     e.ActorType,
		ActorID:       e.ActorID,
		ActorName:     e.ActorName,
		Action:        e.Action,
		TargetType:    e.TargetType,
		TargetID:      e.TargetID,
		LibraryID:     e.LibraryID,
		Details:       e.Details,
		CorrelationID: e.CorrelationID,
		IPAddress:     e.IPAddress,
		UserAgent:     e.UserAgent,
	})
}

// LogUser is a convenience wrapper for the common user-actor case,
// matching AuditService.log_user_action.
func (s *Service) LogUser(ctx context.Context, userID uuid.UUID, action, targetType string, targetID uuid.UUID, libraryID *uuid.UUID, correlationID string, details map[string]interface{}) error {
	return s.Log(ctx, Entry{
		ActorType:     ActorUser,
		ActorID:       userID,
		Action:        action,
		TargetType:    targetType,
		TargetID:      targetID,
		LibraryID:     libraryID,
		Details:       details,
		CorrelationID: correlationID,
	})
}

// LogAgent is the MCP-surface analogue of LogUser, matching
// AuditService.log_agent_action.
func (s *Service) LogAgent(ctx context.Context, agentID uuid.UUID, action, targetType string, targetID uuid.UUID, libraryID *uuid.UUID, correlationID string, details map[string]interface{}) error {
	return s.Log(ctx, Entry{
		ActorType:     ActorAgent,
		ActorID:       agentID,
		Action:        action,
		TargetType:    targetType,
		TargetID:      targetID,
		LibraryID:     libraryID,
		Details:       details,
		CorrelationID: correlationID,
	})
}

func (s *Service) ByCorrelation(ctx context.Context, correlationID string) ([]*cluster.AuditEvent, error) {
	return s.store.QueryAuditByCorrelation(ctx, correlationID)
}

func (s *Service) ByLibrary(ctx context.Context, libraryID uuid.UUID, limit int) ([]*cluster.AuditEvent, error) {
	return s.store.QueryAuditByLibrary(ctx, libraryID, limit)
}
