package ais

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/audit"
	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
	"github.com/nicolaslallier/Beacon-Library-sub000/pipeline"
)

// LibraryCreate mirrors LibraryCreate.
type LibraryCreate struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	MCPWriteEnabled  bool   `json:"mcp_write_enabled"`
	MaxFileSizeBytes *int64 `json:"max_file_size_bytes,omitempty"`
}

// generateBucketName mirrors Library.generate_bucket_name.
func generateBucketName(id uuid.UUID, prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, id.String())
}

// CreateLibrary allocates a bucket and the owning metadata row,
// matching create_library.
func (s *Server) CreateLibrary(w http.ResponseWriter, r *http.Request) {
	var req LibraryCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid request body"))
		return
	}
	id := pipeline.IdentityFrom(r.Context())
	userID, err := parseUUIDString(id.UserID)
	if err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindAuthz, "invalid caller identity"))
		return
	}

	libID := uuid.New()
	bucket := generateBucketName(libID, s.Config.Storage.BucketPrefix)

	if err := s.Objects.CreateBucket(r.Context(), bucket); err != nil {
		cmn.WriteErr(w, r, cmn.WrapError(cmn.KindTransient, err, "failed to create storage bucket"))
		return
	}

	lib := &cluster.Library{
		ID:               libID,
		Name:             req.Name,
		Description:      req.Description,
		BucketName:       bucket,
		OwnerID:          userID,
		CreatedBy:        userID,
		MCPWriteEnabled:  req.MCPWriteEnabled,
		MaxFileSizeBytes: req.MaxFileSizeBytes,
	}
	if err := s.Metadata.CreateLibrary(r.Context(), lib); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if s.Cache != nil {
		s.Cache.InvalidatePrefix(fmt.Sprintf("library:%s", libID))
	}
	if s.Audit != nil {
		_ = s.Audit.LogUser(r.Context(), userID, audit.ActionLibraryCreate, "library", libID, &libID, cmn.CorrelationID(r.Context()), nil)
	}
	cmn.WriteJSON(w, http.StatusCreated, lib)
}

// ListLibraries lists every library the caller can see, matching
// list_libraries's admin-sees-all / owner-sees-own split.
func (s *Server) ListLibraries(w http.ResponseWriter, r *http.Request) {
	id := pipeline.IdentityFrom(r.Context())
	userID, err := parseUUIDString(id.UserID)
	if err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindAuthz, "invalid caller identity"))
		return
	}
	var libs []*cluster.Library
	if id.IsAdmin() {
		libs, err = s.Metadata.ListAllLibraries(r.Context())
	} else {
		libs, err = s.Metadata.ListLibrariesForUser(r.Context(), userID)
	}
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	cmn.WriteJSON(w, http.StatusOK, map[string]interface{}{"libraries": libs})
}

// GetLibrary returns one library after an owner-or-admin access check.
func (s *Server) GetLibrary(w http.ResponseWriter, r *http.Request, libraryID uuid.UUID) {
	lib, err := s.Metadata.GetLibrary(r.Context(), libraryID)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if err := requireAccess(lib, pipeline.IdentityFrom(r.Context())); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	cmn.WriteJSON(w, http.StatusOK, lib)
}

// LibraryUpdate mirrors LibraryUpdate.
type LibraryUpdate struct {
	Name             *string `json:"name,omitempty"`
	Description      *string `json:"description,omitempty"`
	MCPWriteEnabled  *bool   `json:"mcp_write_enabled,omitempty"`
	MaxFileSizeBytes *int64  `json:"max_file_size_bytes,omitempty"`
}

// UpdateLibrary applies a partial update, restricted to owner/admin.
func (s *Server) UpdateLibrary(w http.ResponseWriter, r *http.Request, libraryID uuid.UUID) {
	lib, err := s.Metadata.GetLibrary(r.Context(), libraryID)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if err := requireAccess(lib, pipeline.IdentityFrom(r.Context())); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	var req LibraryUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid request body"))
		return
	}
	if req.Name != nil {
		lib.Name = *req.Name
	}
	if req.Description != nil {
		lib.Description = *req.Description
	}
	if req.MCPWriteEnabled != nil {
		lib.MCPWriteEnabled = *req.MCPWriteEnabled
	}
	if req.MaxFileSizeBytes != nil {
		lib.MaxFileSizeBytes = req.MaxFileSizeBytes
	}
	if err := s.Metadata.UpdateLibrary(r.Context(), lib); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if s.Cache != nil {
		s.Cache.InvalidatePrefix(fmt.Sprintf("library:%s", libraryID))
	}
	cmn.WriteJSON(w, http.StatusOK, lib)
}

// DeleteLibrary soft-deletes a library. The bucket is not destroyed —
// only a permanent trash purge does that (§4.6).
func (s *Server) DeleteLibrary(w http.ResponseWriter, r *http.Request, libraryID uuid.UUID) {
	lib, err := s.Metadata.GetLibrary(r.Context(), libraryID)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	id := pipeline.IdentityFrom(r.Context())
	if err := requireAccess(lib, id); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	userID, _ := parseUUIDString(id.UserID)
	if err := s.Metadata.SoftDeleteLibrary(r.Context(), libraryID, userID); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if s.Cache != nil {
		s.Cache.InvalidatePrefix(fmt.Sprintf("library:%s", libraryID))
	}
	if s.Audit != nil {
		_ = s.Audit.LogUser(r.Context(), userID, audit.ActionLibraryDelete, "library", libraryID, &libraryID, cmn.CorrelationID(r.Context()), nil)
	}
	cmn.WriteJSON(w, http.StatusNoContent, nil)
}
