package mcp

import (
	"context"
	"encoding/json"

	"github.com/valyala/fasthttp"
)

// callRequest is the plain transport's request body: a tool name plus
// its JSON arguments, matching call_tool_http's (tool_name, arguments)
// pair.
type callRequest struct {
	Tool      string                 `json:"tool"`
	Arguments map[string]interface{} `json:"arguments"`
}

// PlainHandler serves the non-streaming transport of §4.9 on
// fasthttp — the pack's non-SSE HTTP client/server library, reserved
// for this surface since net/http already owns the SSE one. Grounded
// on call_tool_http.
func (s *Server) PlainHandler(ctx *fasthttp.RequestCtx) {
	agentID := string(ctx.Request.Header.Peek(AgentIDHeader))
	if agentID == "" {
		agentID = AnonymousAgent
	}

	var req callRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeJSON(ctx, fasthttp.StatusBadRequest, map[string]interface{}{"error": "invalid request body"})
		return
	}

	result := s.Call(context.Background(), req.Tool, agentID, req.Arguments)
	writeJSON(ctx, fasthttp.StatusOK, result)
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v interface{}) {
	body, _ := json.Marshal(v)
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
