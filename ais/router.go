package ais

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

// Mux builds the top-level request router: one prefix handler per
// resource, each splitting its own remaining path segments and
// dispatching by method — the same apiItems-after-registered-prefix
// idiom as the teacher's bucketHandler/objectHandler (ais/proxy.go),
// generalized from bucket/object REST verbs to this domain's resources.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(cmn.URLPathLibraries.S+"/", s.librariesHandler)
	mux.HandleFunc(cmn.URLPathLibraries.S, s.librariesHandler)
	mux.HandleFunc(cmn.URLPathFiles.S+"/", s.filesHandler)
	mux.HandleFunc(cmn.URLPathUploads.S+"/", s.uploadsHandler)
	mux.HandleFunc(cmn.URLPathTrash.S+"/", s.trashHandler)
	mux.HandleFunc(cmn.URLPathShares.S+"/", s.sharesHandler)
	mux.HandleFunc(cmn.URLPathShares.S, s.sharesHandler)
	mux.HandleFunc(cmn.URLPathAudit.S+"/", s.auditHandler)
	mux.HandleFunc(cmn.URLPathNotifications.S+"/", s.notificationsHandler)
	mux.HandleFunc(cmn.URLPathNotifications.S, s.notificationsHandler)
	mux.HandleFunc(cmn.URLPathRealtime.S, s.Realtime)
	mux.HandleFunc(cmn.URLPathHealth.S, func(w http.ResponseWriter, r *http.Request) {
		cmn.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// restItems splits the path remaining after prefix into non-empty
// segments, mirroring checkRESTItems without the fixed-arity check (this
// domain's routes have variable depth: /libraries/{id}/directories/{id}).
func restItems(r *http.Request, prefix string) []string {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func (s *Server) librariesHandler(w http.ResponseWriter, r *http.Request) {
	items := restItems(r, cmn.URLPathLibraries.S)
	if len(items) == 0 {
		switch r.Method {
		case http.MethodGet:
			s.ListLibraries(w, r)
		case http.MethodPost:
			s.CreateLibrary(w, r)
		default:
			cmn.WriteErr405(w, r, http.MethodGet, http.MethodPost)
		}
		return
	}
	libID, err := uuid.Parse(items[0])
	if err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid library id"))
		return
	}
	if len(items) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.GetLibrary(w, r, libID)
		case http.MethodPatch:
			s.UpdateLibrary(w, r, libID)
		case http.MethodDelete:
			s.DeleteLibrary(w, r, libID)
		default:
			cmn.WriteErr405(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
		}
		return
	}
	if items[1] == "directories" {
		s.directoriesSubrouter(w, r, libID, items[2:])
		return
	}
	cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "unknown route"))
}

func (s *Server) directoriesSubrouter(w http.ResponseWriter, r *http.Request, libID uuid.UUID, items []string) {
	if len(items) == 0 {
		switch r.Method {
		case http.MethodPost:
			s.CreateDirectory(w, r, libID)
		default:
			cmn.WriteErr405(w, r, http.MethodPost)
		}
		return
	}
	dirID, err := uuid.Parse(items[0])
	if err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid directory id"))
		return
	}
	switch {
	case len(items) == 1:
		switch r.Method {
		case http.MethodGet:
			s.GetDirectory(w, r, libID, dirID)
		case http.MethodPatch:
			s.RenameDirectory(w, r, libID, dirID)
		case http.MethodDelete:
			s.DeleteDirectory(w, r, libID, dirID)
		default:
			cmn.WriteErr405(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
		}
	case len(items) == 2 && items[1] == "move":
		if r.Method != http.MethodPost {
			cmn.WriteErr405(w, r, http.MethodPost)
			return
		}
		s.MoveDirectory(w, r, libID, dirID)
	default:
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "unknown route"))
	}
}

func (s *Server) filesHandler(w http.ResponseWriter, r *http.Request) {
	items := restItems(r, cmn.URLPathFiles.S)
	if len(items) == 0 {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "unknown route"))
		return
	}
	fileID, err := uuid.Parse(items[0])
	if err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid file id"))
		return
	}
	switch {
	case len(items) == 1:
		switch r.Method {
		case http.MethodGet:
			s.GetFile(w, r, fileID)
		case http.MethodPatch:
			s.RenameFile(w, r, fileID)
		case http.MethodDelete:
			s.DeleteFile(w, r, fileID)
		default:
			cmn.WriteErr405(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
		}
	case len(items) == 2 && items[1] == "download":
		if r.Method != http.MethodGet {
			cmn.WriteErr405(w, r, http.MethodGet)
			return
		}
		s.DownloadFile(w, r, fileID)
	default:
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "unknown route"))
	}
}

func (s *Server) uploadsHandler(w http.ResponseWriter, r *http.Request) {
	items := restItems(r, cmn.URLPathUploads.S)
	if len(items) != 1 {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "unknown route"))
		return
	}
	if r.Method != http.MethodPost {
		cmn.WriteErr405(w, r, http.MethodPost)
		return
	}
	switch items[0] {
	case "init":
		s.InitUpload(w, r)
	case "part":
		s.UploadPart(w, r)
	case "complete":
		s.CompleteUpload(w, r)
	case "abort":
		s.AbortUpload(w, r)
	default:
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "unknown route"))
	}
}

func (s *Server) trashHandler(w http.ResponseWriter, r *http.Request) {
	items := restItems(r, cmn.URLPathTrash.S)
	if len(items) == 0 {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "unknown route"))
		return
	}
	libID, err := uuid.Parse(items[0])
	if err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid library id"))
		return
	}
	s.trashRoutes(w, r, libID, items[1:])
}

func (s *Server) sharesHandler(w http.ResponseWriter, r *http.Request) {
	items := restItems(r, cmn.URLPathShares.S)
	s.shareRoutes(w, r, items)
}

func (s *Server) auditHandler(w http.ResponseWriter, r *http.Request) {
	items := restItems(r, cmn.URLPathAudit.S)
	s.auditRoutes(w, r, items)
}

func (s *Server) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	items := restItems(r, cmn.URLPathNotifications.S)
	s.notificationRoutes(w, r, items)
}
