package ais

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
	"github.com/nicolaslallier/Beacon-Library-sub000/pipeline"
)

// RestoreRequest mirrors trash.py's restore payload.
type RestoreRequest struct {
	ToOriginal   bool       `json:"to_original"`
	NewParentID  *uuid.UUID `json:"new_parent_id,omitempty"`
}

func (s *Server) trashRoutes(w http.ResponseWriter, r *http.Request, libID uuid.UUID, items []string) {
	if _, err := s.directoryAccess(r, libID); err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	id := pipeline.IdentityFrom(r.Context())
	actor, _ := parseUUIDString(id.UserID)

	if len(items) == 0 {
		if r.Method != http.MethodGet {
			cmn.WriteErr405(w, r, http.MethodGet)
			return
		}
		list, err := s.Trash.List(r.Context(), libID)
		if err != nil {
			cmn.WriteErr(w, r, err)
			return
		}
		cmn.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": list})
		return
	}

	if len(items) == 1 && items[0] == "empty" {
		if r.Method != http.MethodPost {
			cmn.WriteErr405(w, r, http.MethodPost)
			return
		}
		lib, err := s.Metadata.GetLibrary(r.Context(), libID)
		if err != nil {
			cmn.WriteErr(w, r, err)
			return
		}
		res, err := s.Trash.Empty(r.Context(), libID, lib.BucketName, actor)
		if err != nil {
			cmn.WriteErr(w, r, err)
			return
		}
		cmn.WriteJSON(w, http.StatusOK, res)
		return
	}

	if len(items) == 3 && items[2] == "restore" {
		itemType, itemID := items[0], items[1]
		itemUUID, err := uuid.Parse(itemID)
		if err != nil {
			cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid item id"))
			return
		}
		var req RestoreRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch itemType {
		case "file":
			if err := s.Trash.RestoreFile(r.Context(), itemUUID, req.NewParentID, actor); err != nil {
				cmn.WriteErr(w, r, err)
				return
			}
		case "directory":
			if err := s.Trash.RestoreDirectory(r.Context(), itemUUID, req.NewParentID, actor); err != nil {
				cmn.WriteErr(w, r, err)
				return
			}
		default:
			cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "unknown item type"))
			return
		}
		cmn.WriteJSON(w, http.StatusOK, map[string]string{"status": "restored"})
		return
	}

	if len(items) == 2 {
		itemType, itemID := items[0], items[1]
		itemUUID, err := uuid.Parse(itemID)
		if err != nil {
			cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid item id"))
			return
		}
		if r.Method != http.MethodDelete {
			cmn.WriteErr405(w, r, http.MethodDelete)
			return
		}
		switch itemType {
		case "file":
			f, err := s.Metadata.GetFile(r.Context(), itemUUID)
			if err != nil || f == nil {
				cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "file not found"))
				return
			}
			lib, err := s.Metadata.GetLibrary(r.Context(), libID)
			if err != nil {
				cmn.WriteErr(w, r, err)
				return
			}
			if err := s.Trash.PermanentDeleteFile(r.Context(), f, lib.BucketName); err != nil {
				cmn.WriteErr(w, r, err)
				return
			}
		case "directory":
			if err := s.Trash.PermanentDeleteDirectory(r.Context(), itemUUID); err != nil {
				cmn.WriteErr(w, r, err)
				return
			}
		default:
			cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "unknown item type"))
			return
		}
		cmn.WriteJSON(w, http.StatusNoContent, nil)
		return
	}

	cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "unknown route"))
}
