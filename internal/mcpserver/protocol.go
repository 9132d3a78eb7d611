package mcpserver

import "encoding/json"

// protocolVersion is the MCP protocol revision this server speaks (spec §6).
const protocolVersion = "2024-11-05"

const serverName = "GraphRAG MCP Server"

// rpcRequest is one JSON-RPC 2.0 request or notification. ID is kept as raw
// JSON so an absent id can be told apart from an explicit null — both mean
// "this is a notification, send no response" (spec §6).
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// hasID reports whether a decoded id field is a real request id rather than
// an absent or explicitly-null one (notifications carry neither).
func hasID(id json.RawMessage) bool {
	return len(id) > 0 && string(id) != "null"
}

// ContentItem is one entry of a CallToolResult's content array (spec §6).
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult is the MCP tools/call response envelope (spec §6): the
// tool's JSON result, serialized as a single text content block, plus a
// coarse isError flag a client can check without parsing the text.
type CallToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError"`
}

// Tool describes one entry of the tools/list response.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func prop(typ, description string, extra map[string]any) map[string]any {
	p := map[string]any{"type": typ, "description": description}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

func schema(properties map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{"type": "object", "properties": properties, "required": required}
}

// tools is the closed set of MCP tools this server exposes, mirrored from
// the original server's TOOLS table (spec §6).
var tools = []Tool{
	{Name: "ping", Description: "Simple ping for connection testing", InputSchema: schema(map[string]any{})},
	{
		Name:        "search",
		Description: "Perform hybrid search across the GraphRAG system",
		InputSchema: schema(map[string]any{
			"query":     prop("string", "Search query", nil),
			"n_results": prop("integer", "Number of results to return", map[string]any{"default": 5}),
			"max_hops":  prop("integer", "Maximum number of hops in the graph", map[string]any{"default": 2}),
		}, "query"),
	},
	{
		Name:        "concept",
		Description: "Get information about a concept",
		InputSchema: schema(map[string]any{
			"concept_name": prop("string", "Name of the concept", nil),
		}, "concept_name"),
	},
	{
		Name:        "documents",
		Description: "Get documents for a concept",
		InputSchema: schema(map[string]any{
			"concept_name": prop("string", "Name of the concept", nil),
			"limit":        prop("integer", "Maximum number of documents to return", map[string]any{"default": 5}),
		}, "concept_name"),
	},
	{
		Name:        "books-by-concept",
		Description: "Find books mentioning a concept",
		InputSchema: schema(map[string]any{
			"concept_name": prop("string", "Name of the concept", nil),
			"limit":        prop("integer", "Maximum number of books to return", map[string]any{"default": 5}),
		}, "concept_name"),
	},
	{
		Name:        "related-concepts",
		Description: "Find concepts related to a concept",
		InputSchema: schema(map[string]any{
			"concept_name": prop("string", "Name of the concept", nil),
			"limit":        prop("integer", "Maximum number of related concepts to return", map[string]any{"default": 10}),
		}, "concept_name"),
	},
	{
		Name:        "passages-about-concept",
		Description: "Find passages about a concept",
		InputSchema: schema(map[string]any{
			"concept_name": prop("string", "Name of the concept", nil),
			"limit":        prop("integer", "Maximum number of passages to return", map[string]any{"default": 5}),
		}, "concept_name"),
	},
	{
		Name:        "add_bug",
		Description: "Add a new bug to the system",
		InputSchema: schema(map[string]any{
			"description": prop("string", "Bug description", nil),
			"cause":       prop("string", "Bug cause", nil),
			"metadata":    prop("object", "Bug metadata", map[string]any{"default": map[string]any{}}),
			"async":       prop("boolean", "Process bug asynchronously", map[string]any{"default": true}),
		}, "description", "cause"),
	},
	{
		Name:        "add-folder",
		Description: "Add a folder of documents to the system",
		InputSchema: schema(map[string]any{
			"folder_path": prop("string", "Path to folder containing documents", nil),
			"metadata":    prop("object", "Document metadata", map[string]any{"default": map[string]any{}}),
			"async":       prop("boolean", "Process documents asynchronously", map[string]any{"default": true}),
		}, "folder_path"),
	},
	{
		Name:        "job-status",
		Description: "Get status of a job",
		InputSchema: schema(map[string]any{
			"job_id": prop("string", "Job ID", nil),
		}, "job_id"),
	},
	{
		Name:        "list-jobs",
		Description: "List all jobs",
		InputSchema: schema(map[string]any{
			"status": prop("string", "Filter jobs by status", map[string]any{
				"enum":    []string{"queued", "running", "completed", "failed", "cancelled"},
				"default": nil,
			}),
			"limit": prop("integer", "Maximum number of jobs to return", map[string]any{"default": 10}),
		}),
	},
	{
		Name:        "cancel-job",
		Description: "Cancel a job",
		InputSchema: schema(map[string]any{
			"job_id": prop("string", "Job ID", nil),
		}, "job_id"),
	},
}

func toolNames() []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}
