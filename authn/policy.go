package authn

// Policy is the per-library capability gate described in §4.9, the
// generalized form of the teacher's Token.CheckPermissions two-level
// (cluster-wide, per-bucket) access check collapsed to a single level
// since a library has no cluster-wide/bucket split.
type Policy struct {
	ReadEnabled   bool
	WriteEnabled  bool
	AllowedAgents []string // empty means "any agent"
}

// DefaultPolicy is used for libraries with no explicit policy row,
// matching §4.9 ("Unknown libraries use a default policy
// {read=true, write=config.default}").
func DefaultPolicy(defaultWrite bool) Policy {
	return Policy{ReadEnabled: true, WriteEnabled: defaultWrite}
}

func (p Policy) allows(agentID string) bool {
	if len(p.AllowedAgents) == 0 {
		return true
	}
	for _, a := range p.AllowedAgents {
		if a == agentID {
			return true
		}
	}
	return false
}

// CanRead reports whether agentID may read the library the policy
// belongs to.
func (p Policy) CanRead(agentID string) bool {
	return p.ReadEnabled && p.allows(agentID)
}

// CanWrite reports whether agentID may write, given the policy's own
// write flag AND the library's mcp_write_enabled AND-gate (§4.9).
func (p Policy) CanWrite(agentID string, libraryMCPWriteEnabled bool) bool {
	return p.WriteEnabled && libraryMCPWriteEnabled && p.allows(agentID)
}
