package ais

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nicolaslallier/Beacon-Library-sub000/audit"
	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
	"github.com/nicolaslallier/Beacon-Library-sub000/notify"
	"github.com/nicolaslallier/Beacon-Library-sub000/pipeline"
	"github.com/nicolaslallier/Beacon-Library-sub000/store/object"
)

func bytesReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }

func parseUUIDString(s string) (uuid.UUID, error) { return uuid.Parse(s) }

// uploadState mirrors the in-memory dict _active_uploads keys its
// records by upload_id, matching api/files.py's init_upload/
// upload_part/complete_upload triple.
type uploadState struct {
	fileID         uuid.UUID
	libraryID      uuid.UUID
	directoryID    *uuid.UUID
	filename       string
	contentType    string
	sizeBytes      int64
	storageKey     string
	bucket         string
	userID         uuid.UUID
	dirPath        string
	existingFileID *uuid.UUID
	multipart      bool
	parts          []object.Part
	data           []byte
	startedAt      time.Time
}

// UploadInitRequest mirrors the init_upload query parameters.
type UploadInitRequest struct {
	LibraryID   uuid.UUID  `json:"library_id"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	DirectoryID *uuid.UUID `json:"directory_id,omitempty"`
	OnDuplicate string     `json:"on_duplicate"`
}

type uploadInitResponse struct {
	UploadID    string    `json:"upload_id"`
	FileID      uuid.UUID `json:"file_id"`
	ChunkSize   int64     `json:"chunk_size"`
	TotalChunks int64     `json:"total_chunks"`
}

type duplicateConflictResponse struct {
	ExistingFile  *cluster.File `json:"existing_file"`
	SuggestedName string        `json:"suggested_name"`
}

// InitUpload implements §4.6's init contract.
func (s *Server) InitUpload(w http.ResponseWriter, r *http.Request) {
	var req UploadInitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid request body"))
		return
	}
	id := pipeline.IdentityFrom(r.Context())
	if req.OnDuplicate == "" {
		req.OnDuplicate = "ask"
	}
	if len(req.Filename) == 0 || len(req.Filename) > 255 {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "filename must be 1..255 characters"))
		return
	}

	lib, err := s.Metadata.GetLibrary(r.Context(), req.LibraryID)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if err := requireAccess(lib, id); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}

	maxSize := s.Config.Storage.MaxFileSizeBytes
	if lib.MaxFileSizeBytes != nil {
		maxSize = *lib.MaxFileSizeBytes
	}
	if maxSize > 0 && req.SizeBytes > maxSize {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "file size exceeds limit of %d bytes", maxSize))
		return
	}

	dirPath := "/"
	if req.DirectoryID != nil {
		dir, err := s.Metadata.GetDirectory(r.Context(), *req.DirectoryID)
		if err != nil {
			cmn.WriteErr(w, r, err)
			return
		}
		if dir == nil || dir.LibraryID != req.LibraryID {
			cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "directory not found"))
			return
		}
		dirPath = fullPath(dir.Path, dir.Name)
	}

	existing, err := s.Metadata.FindFile(r.Context(), req.LibraryID, req.DirectoryID, req.Filename)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	filename := req.Filename
	if existing != nil {
		switch req.OnDuplicate {
		case "ask":
			cmn.WriteJSON(w, http.StatusOK, duplicateConflictResponse{
				ExistingFile:  existing,
				SuggestedName: uniqueFilename(filename),
			})
			return
		case "rename":
			filename = uniqueFilename(filename)
			existing = nil
		}
	}

	fileID := uuid.New()
	version := 1
	if existing != nil && req.OnDuplicate == "overwrite" {
		version = existing.CurrentVersion + 1
	}
	storageKey := object.GenerateStorageKey(req.LibraryID.String(), strings.Trim(dirPath, "/"), filename, version)
	chunkSize := s.Config.Storage.ChunkSizeBytes
	var totalChunks int64 = 1
	if req.SizeBytes > 0 {
		totalChunks = (req.SizeBytes + chunkSize - 1) / chunkSize
	}

	var existingFileID *uuid.UUID
	if existing != nil && req.OnDuplicate == "overwrite" {
		existingFileID = &existing.ID
	}
	userID, _ := parseUUIDString(id.UserID)

	st := &uploadState{
		fileID:         fileID,
		libraryID:      req.LibraryID,
		directoryID:    req.DirectoryID,
		filename:       filename,
		contentType:    req.ContentType,
		sizeBytes:      req.SizeBytes,
		storageKey:     storageKey,
		bucket:         lib.BucketName,
		userID:         userID,
		dirPath:        dirPath,
		existingFileID: existingFileID,
		startedAt:      time.Now(),
	}

	uploadID := uuid.New().String()
	if totalChunks <= 1 {
		st.multipart = false
		s.uploads.put(uploadID, st)
		cmn.WriteJSON(w, http.StatusOK, uploadInitResponse{UploadID: uploadID, FileID: fileID, ChunkSize: chunkSize, TotalChunks: 1})
		return
	}

	mpID, err := s.Objects.StartMultipartUpload(r.Context(), lib.BucketName, storageKey, req.ContentType, nil)
	if err != nil {
		cmn.WriteErr(w, r, cmn.WrapError(cmn.KindTransient, err, "starting multipart upload"))
		return
	}
	st.multipart = true
	s.uploads.put(mpID, st)
	cmn.WriteJSON(w, http.StatusOK, uploadInitResponse{UploadID: mpID, FileID: fileID, ChunkSize: chunkSize, TotalChunks: totalChunks})
}

type uploadPartResponse struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
	SizeBytes  int64  `json:"size_bytes"`
}

// UploadPart implements §4.6's upload_part contract.
func (s *Server) UploadPart(w http.ResponseWriter, r *http.Request) {
	uploadID := r.URL.Query().Get("upload_id")
	partNumber, _ := strconv.Atoi(r.URL.Query().Get("part_number"))
	if partNumber < 1 || partNumber > object.MultipartMaxPartNumber {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "part_number must be in [1, %d]", object.MultipartMaxPartNumber))
		return
	}
	st, ok := s.uploads.get(uploadID)
	if !ok {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "upload not found or expired"))
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "failed to read upload body"))
		return
	}

	if !st.multipart {
		st.data = data
		cmn.WriteJSON(w, http.StatusOK, uploadPartResponse{PartNumber: 1, ETag: "pending", SizeBytes: int64(len(data))})
		return
	}

	part, err := s.Objects.UploadPart(r.Context(), st.bucket, st.storageKey, uploadID, partNumber, bytesReader(data), int64(len(data)))
	if err != nil {
		cmn.WriteErr(w, r, cmn.WrapError(cmn.KindTransient, err, "uploading part"))
		return
	}
	st.parts = append(st.parts, part)
	cmn.WriteJSON(w, http.StatusOK, uploadPartResponse{PartNumber: part.PartNumber, ETag: part.ETag, SizeBytes: part.Size})
}

// UploadCompleteRequest mirrors UploadCompleteRequest.
type UploadCompleteRequest struct {
	UploadID       string `json:"upload_id"`
	ChecksumSHA256 string `json:"checksum_sha256,omitempty"`
}

type uploadCompleteResponse struct {
	File    *cluster.File        `json:"file"`
	Version *cluster.FileVersion `json:"version"`
}

// CompleteUpload implements §4.6's complete contract: composes the
// object, then under one metadata write either bumps the existing
// file's version or inserts a new file + version row.
func (s *Server) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	var req UploadCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid request body"))
		return
	}
	st, ok := s.uploads.get(req.UploadID)
	if !ok {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "upload not found or expired"))
		return
	}
	defer s.uploads.delete(req.UploadID)

	var size int64
	var checksum string
	if st.multipart {
		sort.Slice(st.parts, func(i, j int) bool { return st.parts[i].PartNumber < st.parts[j].PartNumber })
		res, err := s.Objects.CompleteMultipartUpload(r.Context(), st.bucket, st.storageKey, req.UploadID, st.parts)
		if err != nil {
			cmn.WriteErr(w, r, cmn.WrapError(cmn.KindTransient, err, "completing multipart upload"))
			return
		}
		size = res.Size
		// True SHA-256 is not recoverable from a completed multipart
		// object without a re-download; the ETag stands in, matching
		// the documented limitation in §4.1.
		checksum = res.ETag
	} else {
		if st.data == nil {
			cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "no data uploaded"))
			return
		}
		sum := sha256.Sum256(st.data)
		checksum = hex.EncodeToString(sum[:])
		res, err := s.Objects.PutObject(r.Context(), st.bucket, st.storageKey, bytesReader(st.data), int64(len(st.data)), st.contentType)
		if err != nil {
			cmn.WriteErr(w, r, cmn.WrapError(cmn.KindTransient, err, "uploading object"))
			return
		}
		size = res.Size
	}
	if req.ChecksumSHA256 != "" && req.ChecksumSHA256 != checksum {
		log.Warn().Str("expected", req.ChecksumSHA256).Str("actual", checksum).Msg("checksum mismatch")
	}

	var file *cluster.File
	var version *cluster.FileVersion

	if st.existingFileID != nil {
		file, _ = s.Metadata.GetFile(r.Context(), *st.existingFileID)
		if file == nil {
			cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "file not found"))
			return
		}
		file.SizeBytes = size
		file.ChecksumSHA256 = checksum
		file.StorageKey = st.storageKey
		file.CurrentVersion++
		file.ModifiedBy = st.userID
		version = &cluster.FileVersion{
			ID:             uuid.New(),
			FileID:         file.ID,
			VersionNumber:  file.CurrentVersion,
			SizeBytes:      size,
			ChecksumSHA256: checksum,
			StorageKey:     st.storageKey,
			CreatedAt:      time.Now().UTC(),
			CreatedBy:      st.userID,
		}
		if err := s.Metadata.CommitNewVersion(r.Context(), file, version); err != nil {
			cmn.WriteErr(w, r, err)
			return
		}
	} else {
		file = &cluster.File{
			ID:             st.fileID,
			LibraryID:      st.libraryID,
			DirectoryID:    st.directoryID,
			Filename:       st.filename,
			Path:           st.dirPath,
			SizeBytes:      size,
			ChecksumSHA256: checksum,
			ContentType:    st.contentType,
			StorageKey:     st.storageKey,
			CurrentVersion: 1,
			CreatedBy:      st.userID,
			ModifiedBy:     st.userID,
		}
		version = &cluster.FileVersion{
			ID:             uuid.New(),
			FileID:         file.ID,
			VersionNumber:  1,
			SizeBytes:      size,
			ChecksumSHA256: checksum,
			StorageKey:     st.storageKey,
			CreatedAt:      time.Now().UTC(),
			CreatedBy:      st.userID,
		}
		if err := s.Metadata.CreateFile(r.Context(), file, version); err != nil {
			cmn.WriteErr(w, r, err)
			return
		}
	}

	if s.Cache != nil {
		s.Cache.InvalidatePrefix(fmt.Sprintf("library:%s:file:%s", file.LibraryID, file.ID))
		s.Cache.InvalidatePrefix(fmt.Sprintf("library:%s:listing", file.LibraryID))
	}
	if s.Bus != nil {
		s.Bus.Publish(notify.LibraryChannel(file.LibraryID.String()), notify.EventFileCreated, map[string]interface{}{
			"file_id": file.ID.String(), "filename": file.Filename,
		})
	}
	if s.Audit != nil {
		_ = s.Audit.LogUser(r.Context(), st.userID, audit.ActionFileUpload, "file", file.ID, &file.LibraryID, cmn.CorrelationID(r.Context()), nil)
	}

	// Best-effort indexing; an indexing failure never fails the upload.
	if s.Index != nil {
		go func() {
			lib, err := s.Metadata.GetLibrary(r.Context(), file.LibraryID)
			if err != nil || lib == nil {
				return
			}
			if _, err := s.Index.IndexFile(r.Context(), lib, file); err != nil {
				log.Warn().Err(err).Str("file_id", file.ID.String()).Msg("search indexing queue failed")
			}
		}()
	}

	cmn.WriteJSON(w, http.StatusOK, uploadCompleteResponse{File: file, Version: version})
}

// AbortUpload releases any server-side multipart state and forgets the
// registration, matching abort_multipart_upload.
func (s *Server) AbortUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := r.URL.Query().Get("upload_id")
	st, ok := s.uploads.get(uploadID)
	if !ok {
		cmn.WriteJSON(w, http.StatusNoContent, nil)
		return
	}
	if st.multipart {
		if err := s.Objects.AbortMultipartUpload(r.Context(), st.bucket, st.storageKey, uploadID); err != nil {
			log.Warn().Err(err).Str("upload_id", uploadID).Msg("abort multipart upload failed")
		}
	}
	s.uploads.delete(uploadID)
	cmn.WriteJSON(w, http.StatusNoContent, nil)
}

// GetFile returns file metadata plus a presigned download URL.
func (s *Server) GetFile(w http.ResponseWriter, r *http.Request, fileID uuid.UUID) {
	id := pipeline.IdentityFrom(r.Context())
	f, err := s.Metadata.GetFile(r.Context(), fileID)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if f == nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "file not found"))
		return
	}
	lib, err := s.Metadata.GetLibrary(r.Context(), f.LibraryID)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if err := requireAccess(lib, id); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	downloadURL, _ := s.Objects.PresignedDownloadURL(lib.BucketName, f.StorageKey, 15*time.Minute, f.Filename)
	cmn.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"file":         f,
		"download_url": downloadURL,
	})
}

// DownloadFile streams the object directly, matching download_file's
// RFC-5987 Content-Disposition handling.
func (s *Server) DownloadFile(w http.ResponseWriter, r *http.Request, fileID uuid.UUID) {
	id := pipeline.IdentityFrom(r.Context())
	f, err := s.Metadata.GetFile(r.Context(), fileID)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if f == nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "file not found"))
		return
	}
	lib, err := s.Metadata.GetLibrary(r.Context(), f.LibraryID)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if err := requireAccess(lib, id); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	rc, size, err := s.Objects.GetObject(r.Context(), lib.BucketName, f.StorageKey)
	if err != nil {
		cmn.WriteErr(w, r, cmn.WrapError(cmn.KindTransient, err, "fetching object"))
		return
	}
	defer rc.Close()

	asciiName := asciiFallback(f.Filename)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiName, url.PathEscape(f.Filename)))
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	_, _ = io.Copy(w, rc)
}

// FileUpdate mirrors FileUpdate (rename only).
type FileUpdate struct {
	Filename string `json:"filename"`
}

// RenameFile enforces per-directory uniqueness then renames.
func (s *Server) RenameFile(w http.ResponseWriter, r *http.Request, fileID uuid.UUID) {
	var req FileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid request body"))
		return
	}
	id := pipeline.IdentityFrom(r.Context())
	f, err := s.Metadata.GetFile(r.Context(), fileID)
	if err != nil || f == nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "file not found"))
		return
	}
	lib, err := s.Metadata.GetLibrary(r.Context(), f.LibraryID)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if err := requireAccess(lib, id); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	existing, err := s.Metadata.FindFile(r.Context(), f.LibraryID, f.DirectoryID, req.Filename)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if existing != nil && existing.ID != f.ID {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindConflict, "a file with this name already exists"))
		return
	}
	userID, _ := parseUUIDString(id.UserID)
	f.Filename = req.Filename
	f.ModifiedBy = userID
	if err := s.Metadata.UpdateFile(r.Context(), f); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if s.Cache != nil {
		s.Cache.InvalidatePrefix(fmt.Sprintf("library:%s:file:%s", f.LibraryID, f.ID))
	}
	cmn.WriteJSON(w, http.StatusOK, f)
}

// DeleteFile soft-deletes a file and best-effort removes its chunks from
// the library's vector collection.
func (s *Server) DeleteFile(w http.ResponseWriter, r *http.Request, fileID uuid.UUID) {
	id := pipeline.IdentityFrom(r.Context())
	f, err := s.Metadata.GetFile(r.Context(), fileID)
	if err != nil || f == nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "file not found"))
		return
	}
	lib, err := s.Metadata.GetLibrary(r.Context(), f.LibraryID)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if err := requireAccess(lib, id); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	userID, _ := parseUUIDString(id.UserID)
	if err := s.Metadata.SoftDeleteFiles(r.Context(), []uuid.UUID{f.ID}, userID); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if s.Cache != nil {
		s.Cache.InvalidatePrefix(fmt.Sprintf("library:%s:file:%s", f.LibraryID, f.ID))
	}
	if s.Index != nil && s.Index.Vectors != nil {
		if _, err := s.Index.Vectors.DeleteByFilter(f.LibraryID, map[string]interface{}{"file_id": f.ID.String()}); err != nil {
			log.Warn().Err(err).Str("file_id", f.ID.String()).Msg("search deindex queue failed")
		}
	}
	cmn.WriteJSON(w, http.StatusNoContent, nil)
}

func uniqueFilename(filename string) string {
	ts := time.Now().Unix()
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			return fmt.Sprintf("%s_%d%s", filename[:i], ts, filename[i:])
		}
	}
	return fmt.Sprintf("%s_%d", filename, ts)
}

func asciiFallback(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] < 0x80 {
			out = append(out, name[i])
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}
