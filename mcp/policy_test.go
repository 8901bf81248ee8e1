package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/authn"
	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
)

func TestPolicyStoreDefaultsUnknownLibraries(t *testing.T) {
	ps := NewPolicyStore(false)
	libID := uuid.New()
	policy := ps.Get(libID)
	if !policy.ReadEnabled {
		t.Error("unknown library should default to readable")
	}
	if policy.WriteEnabled {
		t.Error("unknown library should default to the configured write flag (false here)")
	}
}

func TestPolicyStoreOverrideWins(t *testing.T) {
	ps := NewPolicyStore(true)
	libID := uuid.New()
	ps.SetPolicy(libID, authn.Policy{ReadEnabled: false, WriteEnabled: true})
	if ps.Get(libID).ReadEnabled {
		t.Error("explicit override should win over the default policy")
	}
}

func TestCheckReadDenied(t *testing.T) {
	ps := NewPolicyStore(false)
	libID := uuid.New()
	ps.SetPolicy(libID, authn.Policy{ReadEnabled: false})
	if err := CheckRead(ps, libID, "agent-a"); err == nil {
		t.Error("expected read access to be denied")
	}
}

func TestCheckWriteRequiresLibraryFlag(t *testing.T) {
	ps := NewPolicyStore(true)
	lib := &cluster.Library{ID: uuid.New(), MCPWriteEnabled: false}
	if err := CheckWrite(ps, lib, "agent-a"); err == nil {
		t.Error("expected write to be denied when the library disables MCP writes")
	}
	lib.MCPWriteEnabled = true
	if err := CheckWrite(ps, lib, "agent-a"); err != nil {
		t.Errorf("expected write to be allowed once the library enables MCP writes: %v", err)
	}
}

func TestCheckWriteMissingLibrary(t *testing.T) {
	ps := NewPolicyStore(true)
	if err := CheckWrite(ps, nil, "agent-a"); err == nil {
		t.Error("expected an error for a nil library")
	}
}

type fakeMetadataStoreLibraries struct {
	cluster.MetadataStore
	libs []*cluster.Library
	err  error
}

func (f *fakeMetadataStoreLibraries) ListAllLibraries(ctx context.Context) ([]*cluster.Library, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.libs, nil
}

func TestAccessibleLibrariesFiltersByPolicy(t *testing.T) {
	readOnly := uuid.New()
	writable := uuid.New()
	meta := &fakeMetadataStoreLibraries{libs: []*cluster.Library{
		{ID: readOnly, MCPWriteEnabled: false},
		{ID: writable, MCPWriteEnabled: true},
	}}
	ps := NewPolicyStore(true)

	readable, err := AccessibleLibraries(context.Background(), meta, ps, "agent-a", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(readable) != 2 {
		t.Errorf("expected both libraries to be readable, got %d", len(readable))
	}

	writableIDs, err := AccessibleLibraries(context.Background(), meta, ps, "agent-a", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(writableIDs) != 1 || writableIDs[0] != writable {
		t.Errorf("expected only the MCP-write-enabled library, got %v", writableIDs)
	}
}

func TestAccessibleLibrariesPropagatesStoreError(t *testing.T) {
	meta := &fakeMetadataStoreLibraries{err: errors.New("db unavailable")}
	ps := NewPolicyStore(true)
	if _, err := AccessibleLibraries(context.Background(), meta, ps, "agent-a", false); err == nil {
		t.Error("expected the store error to propagate")
	}
}
