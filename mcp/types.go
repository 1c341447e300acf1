package mcp

import (
	"context"
	"encoding/json"
)

// ToolHandler executes a tool call with the already-validated arguments
// object and returns a JSON-serializable result.
type ToolHandler func(ctx context.Context, args json.RawMessage) (interface{}, error)

// Tool represents a callable tool exposed by the server.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
	Handler     ToolHandler     `json:"-"`
}

// ToolResultContent represents one content block returned by a tool call.
type ToolResultContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallToolParams represents parameters for calling a tool.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// CallToolResult represents the result of calling a tool.
type CallToolResult struct {
	Content []ToolResultContent `json:"content"`
}

// ListToolsResult represents the result of listing available tools.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// Resource describes one document available under the active directory.
// Resources are derived from the directory contents on every listing and are
// never stored.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourceContent carries the extracted text of a single resource.
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// ListResourcesResult represents the result of listing resources.
type ListResourcesResult struct {
	Resources []Resource `json:"resources"`
}

// ReadResourceParams represents parameters for reading a resource.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ReadResourceResult represents the result of reading a resource.
type ReadResourceResult struct {
	Contents []ResourceContent `json:"contents"`
}

// ServerInfo represents static server identity.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams represents the parameters of the initialize request.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}

// Capabilities advertises what this server supports.
type Capabilities struct {
	Tools     CapabilitiesTools     `json:"tools"`
	Resources CapabilitiesResources `json:"resources"`
}

// CapabilitiesTools describes the tools capability.
type CapabilitiesTools struct {
	ListChanged bool `json:"listChanged"`
}

// CapabilitiesResources describes the resources capability.
type CapabilitiesResources struct {
	Subscribe   bool `json:"subscribe"`
	ListChanged bool `json:"listChanged"`
}

// InitializeResult represents the result of a successful initialize request.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
}
