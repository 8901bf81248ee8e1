package mcp

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

// textMimePrefixes mirrors read_file's is_text check.
var textMimePrefixes = []string{
	"text/",
	"application/json",
	"application/xml",
	"application/javascript",
	"application/typescript",
}

func registerLibraryTools(s *Server) {
	s.RegisterTool("list_libraries", s.listLibraries)
	s.RegisterTool("browse_library", s.browseLibrary)
	s.RegisterTool("read_file", s.readFile)
	s.RegisterTool("search_files", s.searchFiles)
	s.RegisterTool("create_file", s.createFile)
	s.RegisterTool("update_file", s.updateFile)
}

func errResult(msg string) map[string]interface{} { return map[string]interface{}{"error": msg} }

// listLibraries matches list_libraries: every non-deleted library, no
// access filtering (browse_library/read_file enforce per-library
// policy once a specific library is addressed).
func (s *Server) listLibraries(ctx context.Context, agentID string, args map[string]interface{}) map[string]interface{} {
	libs, err := s.Metadata.ListAllLibraries(ctx)
	if err != nil {
		return errResult(err.Error())
	}
	out := make([]map[string]interface{}, 0, len(libs))
	for _, l := range libs {
		out = append(out, map[string]interface{}{
			"id":                l.ID.String(),
			"name":              l.Name,
			"description":       l.Description,
			"mcp_write_enabled": l.MCPWriteEnabled,
			"created_at":        l.CreatedAt,
		})
	}
	return map[string]interface{}{"libraries": out, "count": len(out)}
}

// browseLibrary lists the directories and files directly under path
// ("/" for root), matching browse_library.
func (s *Server) browseLibrary(ctx context.Context, agentID string, args map[string]interface{}) map[string]interface{} {
	libID, err := uuid.Parse(stringArg(args, "library_id"))
	if err != nil {
		return errResult("invalid library_id")
	}
	path := stringArg(args, "path")
	if path == "" {
		path = "/"
	}
	if err := CheckRead(s.Policies, libID, agentID); err != nil {
		return errResult("read access denied for this library")
	}
	lib, err := s.Metadata.GetLibrary(ctx, libID)
	if err != nil || lib == nil {
		return errResult("library not found")
	}

	var parentID *uuid.UUID
	if path != "/" {
		dir, err := findDirectoryByPath(ctx, s.Metadata, libID, path)
		if err == nil && dir != nil {
			parentID = &dir.ID
		}
	}

	dirs, err := s.Metadata.ListChildDirectories(ctx, libID, parentID)
	if err != nil {
		return errResult(err.Error())
	}
	files, err := s.Metadata.ListFilesInDirectory(ctx, libID, parentID)
	if err != nil {
		return errResult(err.Error())
	}

	dirOut := make([]map[string]interface{}, 0, len(dirs))
	for _, d := range dirs {
		dirOut = append(dirOut, map[string]interface{}{"id": d.ID.String(), "name": d.Name, "path": d.Path})
	}
	fileOut := make([]map[string]interface{}, 0, len(files))
	for _, f := range files {
		fileOut = append(fileOut, map[string]interface{}{
			"id": f.ID.String(), "name": f.Filename, "mime_type": f.ContentType,
			"size": f.SizeBytes, "updated_at": f.UpdatedAt,
		})
	}
	return map[string]interface{}{
		"library":     map[string]interface{}{"id": lib.ID.String(), "name": lib.Name},
		"path":        path,
		"directories": dirOut,
		"files":       fileOut,
	}
}

// readFile returns a text file's decoded content, or a binary-file
// error descriptor, matching read_file.
func (s *Server) readFile(ctx context.Context, agentID string, args map[string]interface{}) map[string]interface{} {
	fileID, err := uuid.Parse(stringArg(args, "file_id"))
	if err != nil {
		return errResult("invalid file_id")
	}
	f, err := s.Metadata.GetFile(ctx, fileID)
	if err != nil || f == nil {
		return errResult("File not found")
	}
	if err := CheckRead(s.Policies, f.LibraryID, agentID); err != nil {
		return errResult("read access denied for this library")
	}

	isText := false
	for _, prefix := range textMimePrefixes {
		if strings.HasPrefix(f.ContentType, prefix) {
			isText = true
			break
		}
	}
	if !isText {
		return map[string]interface{}{
			"id": f.ID.String(), "name": f.Filename, "mime_type": f.ContentType,
			"size": f.SizeBytes, "error": "File is binary, cannot read as text",
		}
	}

	lib, err := s.Metadata.GetLibrary(ctx, f.LibraryID)
	if err != nil || lib == nil {
		return errResult("library not found")
	}
	rc, _, err := s.Objects.GetObject(ctx, lib.BucketName, f.StorageKey)
	if err != nil {
		return errResult("Failed to read file: " + err.Error())
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return errResult("Failed to read file: " + err.Error())
	}
	return map[string]interface{}{
		"id": f.ID.String(), "name": f.Filename, "mime_type": f.ContentType,
		"size": f.SizeBytes, "content": string(content),
	}
}

// searchFiles matches search_files: name substring match, optionally
// scoped to one library, capped at 50 results.
func (s *Server) searchFiles(ctx context.Context, agentID string, args map[string]interface{}) map[string]interface{} {
	query := stringArg(args, "query")
	var libFilter *uuid.UUID
	if libStr := stringArg(args, "library_id"); libStr != "" {
		libID, err := uuid.Parse(libStr)
		if err != nil {
			return errResult("invalid library_id")
		}
		if err := CheckRead(s.Policies, libID, agentID); err != nil {
			return errResult("read access denied for this library")
		}
		libFilter = &libID
	}

	var libs []uuid.UUID
	if libFilter != nil {
		libs = []uuid.UUID{*libFilter}
	} else {
		all, err := s.Metadata.ListAllLibraries(ctx)
		if err != nil {
			return errResult(err.Error())
		}
		for _, l := range all {
			if CheckRead(s.Policies, l.ID, agentID) == nil {
				libs = append(libs, l.ID)
			}
		}
	}

	var results []map[string]interface{}
	for _, libID := range libs {
		matches, err := searchFilesByName(ctx, s.Metadata, libID, query)
		if err != nil {
			continue
		}
		for _, f := range matches {
			results = append(results, map[string]interface{}{
				"id": f.ID.String(), "name": f.Filename, "library_id": f.LibraryID.String(),
				"path": f.Path, "mime_type": f.ContentType, "size": f.SizeBytes,
			})
			if len(results) >= 50 {
				break
			}
		}
		if len(results) >= 50 {
			break
		}
	}
	return map[string]interface{}{"query": query, "results": results, "count": len(results)}
}

// createFile uploads new text content at path, creating it only if no
// file with that name already exists in the target directory, matching
// create_file.
func (s *Server) createFile(ctx context.Context, agentID string, args map[string]interface{}) map[string]interface{} {
	libID, err := uuid.Parse(stringArg(args, "library_id"))
	if err != nil {
		return errResult("invalid library_id")
	}
	path := stringArg(args, "path")
	content := stringArg(args, "content")

	lib, err := s.Metadata.GetLibrary(ctx, libID)
	if err != nil || lib == nil {
		return errResult("Library not found")
	}
	if err := CheckWrite(s.Policies, lib, agentID); err != nil {
		return errResult(err.Error())
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	filename := parts[len(parts)-1]
	dirPath := "/"
	if len(parts) > 1 {
		dirPath = "/" + strings.Join(parts[:len(parts)-1], "/")
	}

	var parentID *uuid.UUID
	if dirPath != "/" {
		dir, err := findDirectoryByPath(ctx, s.Metadata, libID, dirPath)
		if err != nil || dir == nil {
			return errResult("Directory not found: " + dirPath)
		}
		parentID = &dir.ID
	}

	if existing, _ := s.Metadata.FindFile(ctx, libID, parentID, filename); existing != nil {
		return errResult("File already exists: " + path)
	}

	contentBytes := []byte(content)
	storageKey := uuid.New().String() + "/" + filename
	if _, err := s.Objects.PutObject(ctx, lib.BucketName, storageKey, strings.NewReader(content), int64(len(contentBytes)), "text/plain"); err != nil {
		return errResult("Failed to upload file: " + err.Error())
	}

	f := &cluster.File{
		ID: uuid.New(), LibraryID: libID, DirectoryID: parentID,
		Filename: filename, Path: dirPath, StorageKey: storageKey,
		ContentType: "text/plain", SizeBytes: int64(len(contentBytes)),
		CurrentVersion: 1, CreatedBy: agentUUID(agentID), ModifiedBy: agentUUID(agentID),
	}
	version := &cluster.FileVersion{
		ID: uuid.New(), FileID: f.ID, VersionNumber: 1,
		SizeBytes: f.SizeBytes, StorageKey: storageKey,
	}
	if err := s.Metadata.CreateFile(ctx, f, version); err != nil {
		return errResult(err.Error())
	}
	return map[string]interface{}{
		"success": true,
		"file":    map[string]interface{}{"id": f.ID.String(), "name": f.Filename, "path": path, "size": f.SizeBytes},
	}
}

// updateFile writes the new content under a fresh storage key and
// commits it as the file's next version, matching update_file.
func (s *Server) updateFile(ctx context.Context, agentID string, args map[string]interface{}) map[string]interface{} {
	fileID, err := uuid.Parse(stringArg(args, "file_id"))
	if err != nil {
		return errResult("invalid file_id")
	}
	content := stringArg(args, "content")

	f, err := s.Metadata.GetFile(ctx, fileID)
	if err != nil || f == nil {
		return errResult("File not found")
	}
	lib, err := s.Metadata.GetLibrary(ctx, f.LibraryID)
	if err != nil || lib == nil {
		return errResult("MCP write access is disabled for this library")
	}
	if err := CheckWrite(s.Policies, lib, agentID); err != nil {
		return errResult(err.Error())
	}

	contentBytes := []byte(content)
	storageKey := uuid.New().String() + "/" + f.Filename
	if _, err := s.Objects.PutObject(ctx, lib.BucketName, storageKey, strings.NewReader(content), int64(len(contentBytes)), f.ContentType); err != nil {
		return errResult("Failed to update file: " + err.Error())
	}
	f.SizeBytes = int64(len(contentBytes))
	f.ModifiedBy = agentUUID(agentID)
	version := &cluster.FileVersion{
		ID: uuid.New(), FileID: f.ID, SizeBytes: f.SizeBytes,
		ChecksumSHA256: cmn.SHA256Hex(contentBytes), StorageKey: storageKey, CreatedBy: f.ModifiedBy,
	}
	if err := s.Metadata.CommitNewVersion(ctx, f, version); err != nil {
		return errResult(err.Error())
	}
	return map[string]interface{}{
		"success": true,
		"file":    map[string]interface{}{"id": f.ID.String(), "name": f.Filename, "version": f.CurrentVersion, "size": f.SizeBytes},
	}
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

// agentUUID maps a non-UUID agent id (the common case — agents
// identify by a free-form string, not a user account) to the nil UUID,
// matching created_by/modified_by columns that expect a UUID but have
// no real user behind an MCP-originated write.
func agentUUID(agentID string) uuid.UUID {
	if id, err := uuid.Parse(agentID); err == nil {
		return id
	}
	return uuid.Nil
}

func findDirectoryByPath(ctx context.Context, meta cluster.MetadataStore, libraryID uuid.UUID, path string) (*cluster.Directory, error) {
	// Directories are addressed by (library, parent, name) in the store;
	// resolve a full path by walking root-to-leaf the way the directory
	// service's own rewriteDescendantPaths does when recomputing paths.
	var parentID *uuid.UUID
	var dir *cluster.Directory
	for _, name := range strings.Split(strings.Trim(path, "/"), "/") {
		if name == "" {
			continue
		}
		found, err := meta.FindDirectory(ctx, libraryID, parentID, name)
		if err != nil || found == nil {
			return nil, err
		}
		dir = found
		parentID = &found.ID
	}
	return dir, nil
}

func searchFilesByName(ctx context.Context, meta cluster.MetadataStore, libraryID uuid.UUID, query string) ([]*cluster.File, error) {
	// No direct name-search method on MetadataStore; search_files walks
	// the library's whole file tree and filters client-side, matching
	// the bound (50 results) the Python ilike-with-limit query enforces,
	// just paid for in query count rather than in a single SQL scan.
	files, err := meta.ListFilesInDirectory(ctx, libraryID, nil)
	if err != nil {
		return nil, err
	}
	dirs, err := meta.ListChildDirectories(ctx, libraryID, nil)
	if err != nil {
		return nil, err
	}
	queue := dirs
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		sub, err := meta.ListFilesInDirectory(ctx, libraryID, &d.ID)
		if err == nil {
			files = append(files, sub...)
		}
		children, err := meta.ListChildDirectories(ctx, libraryID, &d.ID)
		if err == nil {
			queue = append(queue, children...)
		}
	}
	lower := strings.ToLower(query)
	var out []*cluster.File
	for _, f := range files {
		if strings.Contains(strings.ToLower(f.Filename), lower) {
			out = append(out, f)
			if len(out) >= 50 {
				break
			}
		}
	}
	return out, nil
}
