package mcp

import (
	"context"
	"sync"
	"time"

	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
	"github.com/nicolaslallier/Beacon-Library-sub000/index/embed"
	"github.com/nicolaslallier/Beacon-Library-sub000/store/object"
	"github.com/nicolaslallier/Beacon-Library-sub000/store/vector"
)

// AgentIDHeader is read by both transports to identify the calling
// agent, matching request.headers.get("X-Agent-ID", "anonymous").
const AgentIDHeader = "X-Agent-ID"

// AnonymousAgent is used when the header is absent, matching the
// "anonymous" fallback used throughout access.py/tools.py.
const AnonymousAgent = "anonymous"

// ToolFunc is one registered tool handler: JSON-decoded arguments in,
// a JSON-encodable result out. A tool never returns a Go error for an
// expected failure — it reports {"error": "..."} in its result, matching
// every handler in tools.py returning a dict rather than raising.
type ToolFunc func(ctx context.Context, agentID string, args map[string]interface{}) map[string]interface{}

// Metrics mirrors MCPVectorServer.metrics: simple counters read by
// GetMetrics, no histogram buckets.
type Metrics struct {
	mu                 sync.Mutex
	QueryCount         int64
	QueryLatencySumMS  float64
	UpsertCount        int64
	DeleteCount        int64
	ErrorCount         int64
	NoResultsCount     int64
	LowConfidenceCount int64
	StartedAt          time.Time
}

func (m *Metrics) observeQuery(latencyMS float64, resultCount int, lowConfidence bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCount++
	m.QueryLatencySumMS += latencyMS
	if resultCount == 0 {
		m.NoResultsCount++
	}
	if lowConfidence {
		m.LowConfidenceCount++
	}
}

func (m *Metrics) incr(counter *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter++
}

// Snapshot returns a point-in-time copy of the counters, matching
// get_metrics's derived query_avg_latency_ms/no_results_rate fields.
func (m *Metrics) Snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	var avgLatency, noResultsRate float64
	if m.QueryCount > 0 {
		avgLatency = m.QueryLatencySumMS / float64(m.QueryCount)
		noResultsRate = float64(m.NoResultsCount) / float64(m.QueryCount)
	}
	return map[string]interface{}{
		"query_count":          m.QueryCount,
		"query_avg_latency_ms": avgLatency,
		"upsert_count":         m.UpsertCount,
		"delete_count":         m.DeleteCount,
		"error_count":          m.ErrorCount,
		"no_results_count":     m.NoResultsCount,
		"no_results_rate":      noResultsRate,
		"low_confidence_count": m.LowConfidenceCount,
		"start_time":           m.StartedAt,
	}
}

// Server is the agent tool surface: a tool registry plus the dependency
// set every tool closes over. One instance is built in
// cmd/libraryd/main.go alongside ais.Server, mirroring
// create_mcp_server wiring one MCPVectorServer per process.
type Server struct {
	Metadata cluster.MetadataStore
	Objects  object.Store
	Vector   *vector.Store
	Embed    *embed.Client
	Config   *cmn.Config

	Policies *PolicyStore
	Limiter  *RateLimiter
	Metrics  *Metrics

	mu    sync.RWMutex
	tools map[string]ToolFunc
}

func New(deps Server) *Server {
	s := &deps
	s.tools = make(map[string]ToolFunc)
	if s.Metrics == nil {
		s.Metrics = &Metrics{StartedAt: time.Now().UTC()}
	}
	registerLibraryTools(s)
	registerVectorTools(s)
	return s
}

// RegisterTool installs a handler under name, matching register_tool.
func (s *Server) RegisterTool(name string, fn ToolFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools[name] = fn
}

// Call dispatches a tool invocation after a rate-limit check, matching
// call_tool_http's admission-then-dispatch order.
func (s *Server) Call(ctx context.Context, toolName, agentID string, args map[string]interface{}) map[string]interface{} {
	if agentID == "" {
		agentID = AnonymousAgent
	}
	if !s.Limiter.Allow(agentID) {
		return map[string]interface{}{
			"error":     "rate limit exceeded",
			"remaining": s.Limiter.Remaining(agentID),
		}
	}
	s.mu.RLock()
	fn, ok := s.tools[toolName]
	s.mu.RUnlock()
	if !ok {
		return map[string]interface{}{"error": "unknown tool: " + toolName}
	}
	return fn(ctx, agentID, args)
}

// ToolNames lists every registered tool, used by the SSE transport's
// connected event and by a future tools/list RPC.
func (s *Server) ToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	return names
}
