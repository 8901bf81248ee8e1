// Package ais is the HTTP handler surface: library/directory/file,
// trash, share, notification, and audit REST routes (§4.6-§4.8, §6).
// Handlers hold their business logic inline, the way the teacher's own
// proxy/target handlers do (ais/proxy.go's httpbckpost, httpobjput,
// ...) and the way the distilled system's own API routes do (no
// separate service layer exists for library/directory/file in
// original_source/backend/app/api/{libraries,directories,files}.py
// either).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package ais

import (
	"sync"
	"time"

	"github.com/nicolaslallier/Beacon-Library-sub000/audit"
	"github.com/nicolaslallier/Beacon-Library-sub000/authn"
	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
	pipelineidx "github.com/nicolaslallier/Beacon-Library-sub000/index/pipeline"
	"github.com/nicolaslallier/Beacon-Library-sub000/notify"
	"github.com/nicolaslallier/Beacon-Library-sub000/share"
	"github.com/nicolaslallier/Beacon-Library-sub000/store/cache"
	"github.com/nicolaslallier/Beacon-Library-sub000/store/object"
	"github.com/nicolaslallier/Beacon-Library-sub000/trash"
)

// Server holds every dependency the REST handlers close over. One
// instance is built in cmd/libraryd/main.go and its handler methods are
// registered on a *http.ServeMux, mirroring the teacher's
// proxyrunner/targetrunner holding cluster state behind handler methods.
type Server struct {
	Metadata cluster.MetadataStore
	Objects  object.Store
	Cache    *cache.Cache
	Audit    *audit.Service
	Notify   *notify.Service
	Bus      *notify.Bus
	Trash    *trash.Service
	Share    *share.Service
	Index    *pipelineidx.Pipeline
	Auth     *authn.Validator
	Config   *cmn.Config

	uploads *uploadRegistry
}

func New(deps Server) *Server {
	s := deps
	s.uploads = newUploadRegistry()
	return &s
}

// requireAccess enforces the owner-or-admin predicate used throughout
// libraries.py/directories.py/files.py ("library.owner_id == user.user_id
// or user.is_admin").
func requireAccess(lib *cluster.Library, id *authn.Identity) error {
	if lib == nil {
		return cmn.NewError(cmn.KindNotFound, "library not found")
	}
	if id.IsAdmin() {
		return nil
	}
	uid, err := parseUUIDString(id.UserID)
	if err != nil || uid != lib.OwnerID {
		return cmn.NewError(cmn.KindAuthz, "access denied")
	}
	return nil
}

// uploadRegistry is the process-local table of in-flight upload_ids
// described by §4.6 — "process-local; external callers must be able to
// retry a failed upload from init".
type uploadRegistry struct {
	mu      sync.Mutex
	entries map[string]*uploadState
}

func newUploadRegistry() *uploadRegistry {
	return &uploadRegistry{entries: make(map[string]*uploadState)}
}

func (u *uploadRegistry) put(id string, st *uploadState) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.entries[id] = st
}

func (u *uploadRegistry) get(id string) (*uploadState, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	st, ok := u.entries[id]
	return st, ok
}

func (u *uploadRegistry) delete(id string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.entries, id)
}

// sweep drops any upload registered before cutoff, matching the spec's
// "expired/stale uploads MAY be garbage-collected by a periodic sweep".
func (u *uploadRegistry) sweep(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)
	u.mu.Lock()
	defer u.mu.Unlock()
	for id, st := range u.entries {
		if st.startedAt.Before(cutoff) {
			delete(u.entries, id)
		}
	}
}
