package ais

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
	"github.com/nicolaslallier/Beacon-Library-sub000/pipeline"
)

// DirectoryCreate mirrors DirectoryCreate.
type DirectoryCreate struct {
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

// DirectoryResponse mirrors DirectoryResponse's item_count addition.
type DirectoryResponse struct {
	*cluster.Directory
	ItemCount int `json:"item_count"`
}

func (s *Server) directoryAccess(r *http.Request, libraryID uuid.UUID) (*cluster.Library, error) {
	lib, err := s.Metadata.GetLibrary(r.Context(), libraryID)
	if err != nil {
		return nil, err
	}
	if err := requireAccess(lib, pipeline.IdentityFrom(r.Context())); err != nil {
		return nil, err
	}
	return lib, nil
}

// CreateDirectory implements §4.6's directory create contract:
// validates parent, enforces (library_id, parent_id, name) uniqueness,
// derives path from the parent's full path.
func (s *Server) CreateDirectory(w http.ResponseWriter, r *http.Request, libraryID uuid.UUID) {
	if _, err := s.directoryAccess(r, libraryID); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	var req DirectoryCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid request body"))
		return
	}
	id := pipeline.IdentityFrom(r.Context())
	userID, _ := parseUUIDString(id.UserID)

	parentPath := "/"
	if req.ParentID != nil {
		parent, err := s.Metadata.GetDirectory(r.Context(), *req.ParentID)
		if err != nil {
			cmn.WriteErr(w, r, err)
			return
		}
		if parent == nil || parent.LibraryID != libraryID {
			cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "parent directory not found"))
			return
		}
		parentPath = fullPath(parent.Path, parent.Name)
	}

	existing, err := s.Metadata.FindDirectory(r.Context(), libraryID, req.ParentID, req.Name)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if existing != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindConflict, "a directory with this name already exists"))
		return
	}

	dir := &cluster.Directory{
		ID:        uuid.New(),
		LibraryID: libraryID,
		ParentID:  req.ParentID,
		Name:      req.Name,
		Path:      parentPath,
		CreatedBy: userID,
	}
	if err := s.Metadata.CreateDirectory(r.Context(), dir); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if s.Cache != nil {
		s.Cache.InvalidatePrefix(fmt.Sprintf("library:%s:listing", libraryID))
	}
	cmn.WriteJSON(w, http.StatusCreated, DirectoryResponse{Directory: dir, ItemCount: 0})
}

// GetDirectory returns a directory annotated with its immediate item count.
func (s *Server) GetDirectory(w http.ResponseWriter, r *http.Request, libraryID, directoryID uuid.UUID) {
	if _, err := s.directoryAccess(r, libraryID); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	dir, err := s.Metadata.GetDirectory(r.Context(), directoryID)
	if err != nil || dir == nil || dir.LibraryID != libraryID {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "directory not found"))
		return
	}
	children, err := s.Metadata.ListChildDirectories(r.Context(), libraryID, &directoryID)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	files, err := s.Metadata.ListFilesInDirectory(r.Context(), libraryID, &directoryID)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	cmn.WriteJSON(w, http.StatusOK, DirectoryResponse{Directory: dir, ItemCount: len(children) + len(files)})
}

// DirectoryUpdate mirrors DirectoryUpdate (rename only).
type DirectoryUpdate struct {
	Name string `json:"name"`
}

// RenameDirectory enforces uniqueness within the parent, then
// recursively rewrites path on every descendant directory and file.
func (s *Server) RenameDirectory(w http.ResponseWriter, r *http.Request, libraryID, directoryID uuid.UUID) {
	if _, err := s.directoryAccess(r, libraryID); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	var req DirectoryUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid request body"))
		return
	}
	dir, err := s.Metadata.GetDirectory(r.Context(), directoryID)
	if err != nil || dir == nil || dir.LibraryID != libraryID {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "directory not found"))
		return
	}
	existing, err := s.Metadata.FindDirectory(r.Context(), libraryID, dir.ParentID, req.Name)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if existing != nil && existing.ID != dir.ID {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindConflict, "a directory with this name already exists"))
		return
	}
	dir.Name = req.Name
	if err := s.Metadata.UpdateDirectory(r.Context(), dir); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if err := s.rewriteDescendantPaths(r, libraryID, dir); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if s.Cache != nil {
		s.Cache.InvalidatePrefix(fmt.Sprintf("library:%s:listing", libraryID))
	}
	s.GetDirectory(w, r, libraryID, directoryID)
}

// DirectoryMove mirrors DirectoryMove.
type DirectoryMove struct {
	NewParentID *uuid.UUID `json:"new_parent_id,omitempty"`
}

// MoveDirectory forbids move-into-self and move-into-descendant (tested
// by path prefix), enforces uniqueness in the target parent, and
// rewrites descendant paths.
func (s *Server) MoveDirectory(w http.ResponseWriter, r *http.Request, libraryID, directoryID uuid.UUID) {
	if _, err := s.directoryAccess(r, libraryID); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	var req DirectoryMove
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid request body"))
		return
	}
	dir, err := s.Metadata.GetDirectory(r.Context(), directoryID)
	if err != nil || dir == nil || dir.LibraryID != libraryID {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "directory not found"))
		return
	}

	newParentPath := "/"
	if req.NewParentID != nil {
		if *req.NewParentID == directoryID {
			cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "cannot move directory into itself"))
			return
		}
		newParent, err := s.Metadata.GetDirectory(r.Context(), *req.NewParentID)
		if err != nil {
			cmn.WriteErr(w, r, err)
			return
		}
		if newParent == nil || newParent.LibraryID != libraryID {
			cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "target directory not found"))
			return
		}
		ownFullPath := fullPath(dir.Path, dir.Name)
		if strings.HasPrefix(newParent.Path, ownFullPath) {
			cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "cannot move directory into its own subdirectory"))
			return
		}
		newParentPath = fullPath(newParent.Path, newParent.Name)
	}

	existing, err := s.Metadata.FindDirectory(r.Context(), libraryID, req.NewParentID, dir.Name)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if existing != nil && existing.ID != dir.ID {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindConflict, "a directory with this name already exists in the target location"))
		return
	}

	dir.ParentID = req.NewParentID
	dir.Path = newParentPath
	if err := s.Metadata.UpdateDirectory(r.Context(), dir); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if err := s.rewriteDescendantPaths(r, libraryID, dir); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if s.Cache != nil {
		s.Cache.InvalidatePrefix(fmt.Sprintf("library:%s:listing", libraryID))
	}
	s.GetDirectory(w, r, libraryID, directoryID)
}

// DeleteDirectory soft-deletes a directory and every descendant
// directory and file in one depth-first cascade.
func (s *Server) DeleteDirectory(w http.ResponseWriter, r *http.Request, libraryID, directoryID uuid.UUID) {
	if _, err := s.directoryAccess(r, libraryID); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	dir, err := s.Metadata.GetDirectory(r.Context(), directoryID)
	if err != nil || dir == nil || dir.LibraryID != libraryID {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "directory not found"))
		return
	}
	id := pipeline.IdentityFrom(r.Context())
	userID, _ := parseUUIDString(id.UserID)

	descendants, err := s.Metadata.ListDescendantDirectories(r.Context(), libraryID, directoryID)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	dirIDs := []uuid.UUID{dir.ID}
	for _, d := range descendants {
		dirIDs = append(dirIDs, d.ID)
	}
	files, err := s.Metadata.ListDescendantFiles(r.Context(), libraryID, directoryID)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	ownFiles, err := s.Metadata.ListFilesInDirectory(r.Context(), libraryID, &directoryID)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	fileIDs := make([]uuid.UUID, 0, len(files)+len(ownFiles))
	for _, f := range files {
		fileIDs = append(fileIDs, f.ID)
	}
	for _, f := range ownFiles {
		fileIDs = append(fileIDs, f.ID)
	}

	if err := s.Metadata.SoftDeleteDirectories(r.Context(), dirIDs, userID); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if len(fileIDs) > 0 {
		if err := s.Metadata.SoftDeleteFiles(r.Context(), fileIDs, userID); err != nil {
			cmn.WriteErr(w, r, err)
			return
		}
	}
	if s.Cache != nil {
		s.Cache.InvalidatePrefix(fmt.Sprintf("library:%s:listing", libraryID))
	}
	cmn.WriteJSON(w, http.StatusNoContent, nil)
}

// rewriteDescendantPaths recomputes Path on every directory/file beneath
// dir after a rename or move, matching _update_descendant_paths's
// depth-first walk.
func (s *Server) rewriteDescendantPaths(r *http.Request, libraryID uuid.UUID, dir *cluster.Directory) error {
	newBase := fullPath(dir.Path, dir.Name)

	children, err := s.Metadata.ListChildDirectories(r.Context(), libraryID, &dir.ID)
	if err != nil {
		return err
	}
	for _, child := range children {
		child.Path = newBase
		if err := s.Metadata.UpdateDirectory(r.Context(), child); err != nil {
			return err
		}
		if err := s.rewriteDescendantPaths(r, libraryID, child); err != nil {
			return err
		}
	}

	files, err := s.Metadata.ListFilesInDirectory(r.Context(), libraryID, &dir.ID)
	if err != nil {
		return err
	}
	for _, f := range files {
		f.Path = newBase
		if err := s.Metadata.UpdateFile(r.Context(), f); err != nil {
			return err
		}
	}
	return nil
}

func fullPath(path, name string) string {
	if path == "/" {
		return "/" + name
	}
	return path + "/" + name
}
