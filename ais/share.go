package ais

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
	"github.com/nicolaslallier/Beacon-Library-sub000/notify"
	"github.com/nicolaslallier/Beacon-Library-sub000/pipeline"
	"github.com/nicolaslallier/Beacon-Library-sub000/share"
)

// ShareCreateRequest mirrors ShareLinkCreate.
type ShareCreateRequest struct {
	TargetType       string     `json:"target_type"`
	TargetID         uuid.UUID  `json:"target_id"`
	ShareType        string     `json:"share_type"`
	Password         string     `json:"password,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	MaxAccessCount   *int       `json:"max_access_count,omitempty"`
	AllowGuestAccess bool       `json:"allow_guest_access"`
	NotifyOnAccess   bool       `json:"notify_on_access"`
}

// ShareAccessRequest mirrors the access_share request body.
type ShareAccessRequest struct {
	Password string `json:"password,omitempty"`
}

func (s *Server) shareRoutes(w http.ResponseWriter, r *http.Request, items []string) {
	if len(items) == 0 {
		if r.Method != http.MethodPost {
			cmn.WriteErr405(w, r, http.MethodPost)
			return
		}
		s.createShare(w, r)
		return
	}
	if len(items) == 2 && items[1] == "access" {
		if r.Method != http.MethodPost {
			cmn.WriteErr405(w, r, http.MethodPost)
			return
		}
		s.accessShare(w, r, items[0])
		return
	}
	if len(items) == 1 {
		shareID, err := uuid.Parse(items[0])
		if err != nil {
			cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid share id"))
			return
		}
		if r.Method != http.MethodDelete {
			cmn.WriteErr405(w, r, http.MethodDelete)
			return
		}
		id := pipeline.IdentityFrom(r.Context())
		userID, _ := parseUUIDString(id.UserID)
		if err := s.Share.Revoke(r.Context(), shareID, userID); err != nil {
			cmn.WriteErr(w, r, err)
			return
		}
		cmn.WriteJSON(w, http.StatusNoContent, nil)
		return
	}
	cmn.WriteErr(w, r, cmn.NewError(cmn.KindNotFound, "unknown route"))
}

func (s *Server) createShare(w http.ResponseWriter, r *http.Request) {
	var req ShareCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "invalid request body"))
		return
	}
	id := pipeline.IdentityFrom(r.Context())
	userID, _ := parseUUIDString(id.UserID)
	link, err := s.Share.Create(r.Context(), share.CreateRequest{
		TargetType:       req.TargetType,
		TargetID:         req.TargetID,
		ShareType:        req.ShareType,
		Password:         req.Password,
		ExpiresAt:        req.ExpiresAt,
		MaxAccessCount:   req.MaxAccessCount,
		AllowGuestAccess: req.AllowGuestAccess,
		NotifyOnAccess:   req.NotifyOnAccess,
	}, userID)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if s.Bus != nil {
		s.Bus.Publish(notify.LibraryChannel(req.TargetID.String()), notify.EventShareCreated, map[string]interface{}{
			"share_id": link.ID.String(),
		})
	}
	cmn.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"share": link,
		"share_url": s.Share.URL(link.Token),
	})
}

func (s *Server) accessShare(w http.ResponseWriter, r *http.Request, token string) {
	var req ShareAccessRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	res, err := s.Share.Access(r.Context(), token, req.Password)
	if err != nil {
		cmn.WriteErr(w, r, err)
		return
	}
	if s.Bus != nil {
		s.Bus.Publish(notify.LibraryChannel(res.TargetID.String()), notify.EventShareAccessed, map[string]interface{}{
			"target_id": res.TargetID.String(),
		})
	}
	cmn.WriteJSON(w, http.StatusOK, res)
}
