package mcpserver

import (
	"context"
	"encoding/json"
)

// processMessage parses and dispatches one client frame, returning the
// response to write back and whether anything should be written at all.
// Parse errors and JSON-RPC version mismatches are always answered, even
// for what would otherwise be a notification, matching the protocol-level
// validation the original server performs before it knows whether the
// frame carries a request id.
func (s *Server) processMessage(ctx context.Context, raw []byte) ([]byte, bool) {
	var req rpcRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return mustMarshal(rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: -32700, Message: "Parse error: " + err.Error()},
		}), true
	}

	if req.JSONRPC != "2.0" {
		return mustMarshal(rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcError{Code: -32600, Message: "Invalid JSON-RPC version, expected 2.0"},
		}), true
	}

	var result any
	var rpcErr *rpcError
	switch req.Method {
	case "initialize":
		result = s.handleInitialize()
	case "getTools", "tools/list":
		result = handleGetTools()
	case "invokeTool", "tools/call":
		result = s.handleInvokeTool(ctx, req.Params)
	default:
		rpcErr = &rpcError{Code: -32601, Message: "Method not found: " + req.Method}
	}

	if !hasID(req.ID) {
		return nil, false
	}

	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	return mustMarshal(resp), true
}

func (s *Server) handleInitialize() map[string]any {
	return map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools":     map[string]any{"listChanged": false},
			"resources": map[string]any{"subscribe": false, "listChanged": false},
			"prompts":   map[string]any{"listChanged": false},
			"logging":   map[string]any{},
		},
		"serverInfo": map[string]any{"name": serverName, "version": s.Version},
		"instructions": "This is the GraphRAG MCP server. Available tools: " +
			joinNames(toolNames()) + ".",
	}
}

func handleGetTools() map[string]any {
	return map[string]any{"tools": tools}
}

type invokeToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) handleInvokeTool(ctx context.Context, raw json.RawMessage) CallToolResult {
	var p invokeToolParams
	_ = json.Unmarshal(raw, &p)

	handler, ok := toolHandlers[p.Name]
	if !ok {
		return callToolResultFrom(map[string]any{
			"error": map[string]any{
				"code":    -32601,
				"message": "Tool not found: " + p.Name,
				"data":    map[string]any{"availableTools": toolNames()},
			},
		}, true)
	}

	result := handler(ctx, s, p.Arguments)
	_, isError := result["error"]
	return callToolResultFrom(result, isError)
}

func callToolResultFrom(data map[string]any, isError bool) CallToolResult {
	text, err := json.Marshal(data)
	if err != nil {
		text = []byte(`{"error":"failed to serialize tool result"}`)
		isError = true
	}
	return CallToolResult{Content: []ContentItem{{Type: "text", Text: string(text)}}, IsError: isError}
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"jsonrpc":"2.0","error":{"code":-32603,"message":"internal error serializing response"}}`)
	}
	return data
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
