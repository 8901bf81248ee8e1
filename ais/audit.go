package ais

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

func (s *Server) auditRoutes(w http.ResponseWriter, r *http.Request, items []string) {
	if r.Method != http.MethodGet {
		cmn.WriteErr405(w, r, http.MethodGet)
		return
	}
	if len(items) == 2 && items[0] == "library" {
		libID, err := uuid.Parse(items[1])
		if err != nil {
			cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid library id"))
			return
		}
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}
		events, err := s.Audit.ByLibrary(r.Context(), libID, limit)
		if err != nil {
			cmn.WriteErr(w, r, err)
			return
		}
		cmn.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": events})
		return
	}
	if len(items) == 2 && items[0] == "correlation" {
		events, err := s.Audit.ByCorrelation(r.Context(), items[1])
		if err != nil {
			cmn.WriteErr(w, r, err)
			return
		}
		cmn.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": events})
		return
	}
	cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "unknown route"))
}
