// Package mcp is the capability-gated agent tool surface of §4.9: a
// policy engine, a sharded rate limiter, a tool registry, and SSE/plain
// transports sitting in front of the same library/directory/file and
// vector-search logic the ais/ and store/vector packages already
// implement. Grounded on
// original_source/mcp-vector/app/services/access.py (policy +
// rate limiter) and original_source/backend/app/mcp/{tools,server}.py
// (library-scoped tools, tool registry, transports).
package mcp

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/authn"
	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

// PolicyStore holds per-library overrides and falls back to the
// configured default, matching AccessControlService's
// _library_policies dict plus get_library_policy's default-policy
// branch.
type PolicyStore struct {
	mu           sync.RWMutex
	overrides    map[uuid.UUID]authn.Policy
	defaultWrite bool
}

func NewPolicyStore(defaultWrite bool) *PolicyStore {
	return &PolicyStore{
		overrides:    make(map[uuid.UUID]authn.Policy),
		defaultWrite: defaultWrite,
	}
}

// SetPolicy installs an explicit per-library policy, matching
// set_library_policy.
func (p *PolicyStore) SetPolicy(libraryID uuid.UUID, policy authn.Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overrides[libraryID] = policy
}

// Get returns the library's policy, or the configured default for
// libraries with no override.
func (p *PolicyStore) Get(libraryID uuid.UUID) authn.Policy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if policy, ok := p.overrides[libraryID]; ok {
		return policy
	}
	return authn.DefaultPolicy(p.defaultWrite)
}

// CheckRead enforces read access for a library that must already
// exist, matching check_library_access(for_write=False).
func CheckRead(policies *PolicyStore, libraryID uuid.UUID, agentID string) error {
	if !policies.Get(libraryID).CanRead(agentID) {
		return cmn.NewError(cmn.KindAuthz, "read access denied for library %s", libraryID)
	}
	return nil
}

// CheckWrite enforces write access, additionally AND-gating on the
// library's own mcp_write_enabled flag, matching
// check_library_access(for_write=True)'s extra DB-flag check.
func CheckWrite(policies *PolicyStore, lib *cluster.Library, agentID string) error {
	if lib == nil {
		return cmn.NewError(cmn.KindNotFound, "library not found")
	}
	if !policies.Get(lib.ID).CanWrite(agentID, lib.MCPWriteEnabled) {
		return cmn.NewError(cmn.KindAuthz, "write access denied for library %s", lib.ID)
	}
	return nil
}

// AccessibleLibraries returns the ids of every non-deleted library the
// agent may use, scoped to read or write, matching
// get_accessible_libraries.
func AccessibleLibraries(ctx context.Context, meta cluster.MetadataStore, policies *PolicyStore, agentID string, forWrite bool) ([]uuid.UUID, error) {
	libs, err := meta.ListAllLibraries(ctx)
	if err != nil {
		return nil, err
	}
	var out []uuid.UUID
	for _, lib := range libs {
		if forWrite {
			if policies.Get(lib.ID).CanWrite(agentID, lib.MCPWriteEnabled) {
				out = append(out, lib.ID)
			}
		} else if policies.Get(lib.ID).CanRead(agentID) {
			out = append(out, lib.ID)
		}
	}
	return out, nil
}
