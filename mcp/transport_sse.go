package mcp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SSEHandler serves the streamed transport of §4.9: a connected event
// on open, then a heartbeat every 30s, over net/http the same way
// ais.Server.Realtime does. Grounded on handle_sse — tool calls
// themselves go over PlainHandler/call_tool_http, not this channel;
// the original never multiplexes RPC onto the SSE stream either.
func (s *Server) SSEHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	agentID := r.Header.Get(AgentIDHeader)
	if agentID == "" {
		agentID = AnonymousAgent
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if !s.Limiter.Allow(agentID) {
		data, _ := json.Marshal(map[string]interface{}{
			"error":     "Rate limit exceeded",
			"remaining": s.Limiter.Remaining(agentID),
		})
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
		flusher.Flush()
		return
	}

	connected, _ := json.Marshal(map[string]interface{}{
		"server": "beacon-mcp", "agent_id": agentID,
	})
	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", connected)
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			hb, _ := json.Marshal(map[string]interface{}{"timestamp": time.Now().UTC()})
			fmt.Fprintf(w, "event: heartbeat\ndata: %s\n\n", hb)
			flusher.Flush()
		}
	}
}
