package ais

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
	"github.com/nicolaslallier/Beacon-Library-sub000/pipeline"
)

func (s *Server) notificationRoutes(w http.ResponseWriter, r *http.Request, items []string) {
	id := pipeline.IdentityFrom(r.Context())
	userID, err := parseUUIDString(id.UserID)
	if err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindAuthz, "invalid caller identity"))
		return
	}

	if len(items) == 0 {
		if r.Method != http.MethodGet {
			cmn.WriteErr405(w, r, http.MethodGet)
			return
		}
		unreadOnly := r.URL.Query().Get("unread_only") == "true"
		list, err := s.Notify.List(r.Context(), userID, unreadOnly)
		if err != nil {
			cmn.WriteErr(w, r, err)
			return
		}
		cmn.WriteJSON(w, http.StatusOK, map[string]interface{}{"notifications": list})
		return
	}
	if len(items) == 1 && items[0] == "read-all" {
		if r.Method != http.MethodPost {
			cmn.WriteErr405(w, r, http.MethodPost)
			return
		}
		if err := s.Notify.MarkAllRead(r.Context(), userID); err != nil {
			cmn.WriteErr(w, r, err)
			return
		}
		cmn.WriteJSON(w, http.StatusNoContent, nil)
		return
	}
	if len(items) == 2 && items[1] == "read" {
		notifID, err := uuid.Parse(items[0])
		if err != nil {
			cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid notification id"))
			return
		}
		if r.Method != http.MethodPost {
			cmn.WriteErr405(w, r, http.MethodPost)
			return
		}
		if err := s.Notify.MarkRead(r.Context(), notifID); err != nil {
			cmn.WriteErr(w, r, err)
			return
		}
		cmn.WriteJSON(w, http.StatusNoContent, nil)
		return
	}
	cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "unknown route"))
}
