package mcp

import (
	"context"
	"testing"
	"time"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(Server{
		Policies: NewPolicyStore(true),
		Limiter:  NewRateLimiter(2, 60_000_000_000),
	})
}

func TestCallUnknownTool(t *testing.T) {
	s := newTestServer(t)
	result := s.Call(context.Background(), "no_such_tool", "agent-a", nil)
	if result["error"] == nil {
		t.Error("expected an error for an unregistered tool")
	}
}

func TestCallDispatchesRegisteredTool(t *testing.T) {
	s := newTestServer(t)
	s.RegisterTool("echo", func(ctx context.Context, agentID string, args map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{"agent": agentID}
	})
	result := s.Call(context.Background(), "echo", "agent-a", nil)
	if result["agent"] != "agent-a" {
		t.Errorf("expected the tool to observe the calling agent, got %v", result)
	}
}

func TestCallDefaultsAnonymousAgent(t *testing.T) {
	s := newTestServer(t)
	s.RegisterTool("echo", func(ctx context.Context, agentID string, args map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{"agent": agentID}
	})
	result := s.Call(context.Background(), "echo", "", nil)
	if result["agent"] != AnonymousAgent {
		t.Errorf("expected agent_id to default to %q, got %v", AnonymousAgent, result["agent"])
	}
}

func TestCallEnforcesRateLimit(t *testing.T) {
	s := newTestServer(t)
	s.RegisterTool("echo", func(ctx context.Context, agentID string, args map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{}
	})
	s.Call(context.Background(), "echo", "agent-a", nil)
	s.Call(context.Background(), "echo", "agent-a", nil)
	result := s.Call(context.Background(), "echo", "agent-a", nil)
	if result["error"] != "rate limit exceeded" {
		t.Errorf("expected the third call to be rate limited, got %v", result)
	}
}

func TestToolNamesListsRegisteredTools(t *testing.T) {
	s := newTestServer(t)
	names := s.ToolNames()
	want := map[string]bool{
		"list_libraries": false, "browse_library": false, "read_file": false,
		"search_files": false, "create_file": false, "update_file": false,
		"vector.query": false, "vector.upsert_documents": false,
		"vector.get": false, "vector.delete": false,
	}
	for _, n := range names {
		want[n] = true
	}
	for n, found := range want {
		if !found {
			t.Errorf("expected %q to be registered by New", n)
		}
	}
}

func TestMetricsSnapshotEmpty(t *testing.T) {
	m := &Metrics{StartedAt: time.Now().UTC()}
	snap := m.Snapshot()
	if snap["query_count"] != int64(0) {
		t.Errorf("expected query_count 0, got %v", snap["query_count"])
	}
	if snap["no_results_rate"] != float64(0) {
		t.Errorf("expected no_results_rate 0 before any query, got %v", snap["no_results_rate"])
	}
}

func TestMetricsSnapshotComputesRates(t *testing.T) {
	m := &Metrics{StartedAt: time.Now().UTC()}
	m.observeQuery(10, 0, false)
	m.observeQuery(30, 2, true)
	snap := m.Snapshot()
	if snap["query_count"] != int64(2) {
		t.Errorf("query_count = %v, want 2", snap["query_count"])
	}
	if snap["query_avg_latency_ms"] != float64(20) {
		t.Errorf("query_avg_latency_ms = %v, want 20", snap["query_avg_latency_ms"])
	}
	if snap["no_results_rate"] != float64(0.5) {
		t.Errorf("no_results_rate = %v, want 0.5", snap["no_results_rate"])
	}
	if snap["low_confidence_count"] != int64(1) {
		t.Errorf("low_confidence_count = %v, want 1", snap["low_confidence_count"])
	}
}
