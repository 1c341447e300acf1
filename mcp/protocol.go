package mcp

import "encoding/json"

// JSON-RPC 2.0 error codes used on the wire.
const (
	ErrorCodeParseError     = -32700
	ErrorCodeInvalidRequest = -32600
	ErrorCodeMethodNotFound = -32601
	ErrorCodeInvalidParams  = -32602
	ErrorCodeNotInitialized = -32002
	ErrorCodeRequestFailed  = -32000
)

// protocolVersion is the JSON-RPC version tag every message must carry.
const protocolVersion = "2.0"

// SupportedProtocolVersions lists the MCP protocol revisions this server
// accepts during the initialize handshake.
var SupportedProtocolVersions = []string{"2024-11-05", "2025-06-18", "2025-11-25"}

// Request represents a JSON-RPC request or notification message. The two are
// distinguished by the presence of the ID field: a request carries an
// identifier, a notification does not. The identifier is kept as raw JSON so
// that its type (number or string) survives the round trip untouched.
type Request struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id"`
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params"`
}

// isNotification reports whether the message has no identifier and therefore
// must never receive a response.
func (r *Request) isNotification() bool {
	return r.ID == nil
}

// Response represents a JSON-RPC response message. Exactly one of Result and
// Error is set.
type Response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id"`
	Result  interface{}      `json:"result,omitempty"`
	Error   *Error           `json:"error,omitempty"`
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// newResponse creates a success response echoing the given identifier.
func newResponse(id *json.RawMessage, result interface{}) *Response {
	return &Response{
		JSONRPC: protocolVersion,
		ID:      id,
		Result:  result,
	}
}

// newErrorResponse creates an error response echoing the given identifier.
func newErrorResponse(id *json.RawMessage, code int, message string, data interface{}) *Response {
	return &Response{
		JSONRPC: protocolVersion,
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}
