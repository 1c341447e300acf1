package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/thomasplantin/docu-mcp/config"
	"github.com/thomasplantin/docu-mcp/observability"
)

const (
	defaultServerName    = "docu-mcp"
	defaultServerVersion = "0.1.0"
)

// ResourceProvider supplies the resources derived from the active document
// directory. Implementations report a missing active directory by returning
// an error wrapping config.ErrNoActiveDirectory.
type ResourceProvider interface {
	ListResources(ctx context.Context) ([]Resource, error)
	ReadResource(ctx context.Context, uri string) (ResourceContent, error)
}

// ServerConfig holds all configuration for Server.
type ServerConfig struct {
	logger           observability.Logger
	serverName       string
	serverVersion    string
	protocolVersions []string
	resources        ResourceProvider
}

// ServerConfigOption is a function that modifies ServerConfig.
type ServerConfigOption func(*ServerConfig)

// UseLogger sets a custom logger.
func UseLogger(logger observability.Logger) ServerConfigOption {
	return func(c *ServerConfig) {
		c.logger = logger
	}
}

// UseServerInfo sets server name and version.
func UseServerInfo(name, version string) ServerConfigOption {
	return func(c *ServerConfig) {
		c.serverName = name
		c.serverVersion = version
	}
}

// UseProtocolVersions overrides the set of accepted protocol versions.
func UseProtocolVersions(versions ...string) ServerConfigOption {
	return func(c *ServerConfig) {
		c.protocolVersions = versions
	}
}

// UseResourceProvider sets the provider backing resources/list and
// resources/read.
func UseResourceProvider(provider ResourceProvider) ServerConfigOption {
	return func(c *ServerConfig) {
		c.resources = provider
	}
}

func defaultConfig() *ServerConfig {
	return &ServerConfig{
		logger:           observability.NewDefaultLogger(),
		serverName:       defaultServerName,
		serverVersion:    defaultServerVersion,
		protocolVersions: SupportedProtocolVersions,
	}
}

// Server is the protocol session engine. It owns the session state, decodes
// each input line into a JSON-RPC message, dispatches it, and encodes the
// response. It holds no transport state; see StdIOServer for the wire loop.
type Server struct {
	logger           observability.Logger
	serverInfo       ServerInfo
	protocolVersions []string
	capabilities     Capabilities
	resources        ResourceProvider

	tools     map[string]Tool
	toolOrder []string

	initialized bool
}

// NewServer creates a new Server instance with the given options.
func NewServer(opts ...ServerConfigOption) (*Server, error) {
	cfg := defaultConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.protocolVersions) == 0 {
		return nil, errors.New("at least one supported protocol version is required")
	}

	return &Server{
		logger: cfg.logger,
		serverInfo: ServerInfo{
			Name:    cfg.serverName,
			Version: cfg.serverVersion,
		},
		protocolVersions: cfg.protocolVersions,
		capabilities: Capabilities{
			Tools:     CapabilitiesTools{ListChanged: true},
			Resources: CapabilitiesResources{Subscribe: true, ListChanged: true},
		},
		resources: cfg.resources,
		tools:     make(map[string]Tool),
	}, nil
}

// AddTools registers tools with the server. Listing order follows
// registration order.
func (s *Server) AddTools(tools ...Tool) error {
	for _, tool := range tools {
		if _, exists := s.tools[tool.Name]; exists {
			return fmt.Errorf("duplicate tool: %s", tool.Name)
		}

		if err := validateTool(tool); err != nil {
			return fmt.Errorf("invalid tool: %w", err)
		}

		s.tools[tool.Name] = tool
		s.toolOrder = append(s.toolOrder, tool.Name)
	}

	return nil
}

func validateTool(tool Tool) error {
	if tool.Name == "" {
		return errors.New("tool name cannot be empty")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s has no handler", tool.Name)
	}
	if len(tool.InputSchema) == 0 {
		return fmt.Errorf("tool %s has no input schema", tool.Name)
	}
	if _, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(tool.InputSchema)); err != nil {
		return fmt.Errorf("tool %s has an invalid input schema: %w", tool.Name, err)
	}
	return nil
}

// HandleMessage processes one line of input and returns the serialized
// response, or nil when the line was a notification and no response must be
// written. It never panics on client input; malformed lines yield wire-level
// error responses and the session keeps serving.
func (s *Server) HandleMessage(ctx context.Context, line []byte) []byte {
	var request Request
	if err := json.Unmarshal(line, &request); err != nil {
		s.logger.WithErr(err).Error("Failed to parse JSON-RPC message")
		return s.marshal(newErrorResponse(nil, ErrorCodeParseError, "Parse error", err.Error()))
	}

	if request.JSONRPC != protocolVersion {
		s.logger.WithFields(map[string]interface{}{
			"version": request.JSONRPC,
			"method":  request.Method,
		}).Error("Invalid JSON-RPC version")
		return s.marshal(newErrorResponse(request.ID, ErrorCodeInvalidRequest,
			fmt.Sprintf("Invalid JSON-RPC version: %s. Expected %s", request.JSONRPC, protocolVersion), nil))
	}

	if request.isNotification() {
		s.handleNotification(ctx, &request)
		return nil
	}

	return s.marshal(s.handleRequest(ctx, &request))
}

// marshal serializes a response for the wire. Serialization of a response the
// engine itself built only fails on programming errors; the session still
// answers with an internal error rather than dying.
func (s *Server) marshal(response *Response) []byte {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.WithErr(err).Error("Failed to marshal response")
		fallback, _ := json.Marshal(newErrorResponse(response.ID, ErrorCodeRequestFailed,
			"Request failed: response serialization error", nil))
		return fallback
	}
	return data
}

// handleNotification handles a notification. Notifications never produce
// output, even on failure.
func (s *Server) handleNotification(ctx context.Context, request *Request) {
	_, span := observability.StartSpan(ctx, "Server.handleNotification")
	defer span.End()

	switch request.Method {
	case "initialized", "notifications/initialized":
		// Accepted under both names for client interoperability.
		if !s.initialized {
			s.logger.WithFields(map[string]interface{}{
				"method": request.Method,
			}).Warn("Received initialized notification before initialize request")
			return
		}
		s.logger.Debug("Client initialized")
	default:
		// Unknown notifications are ignored per the JSON-RPC spec.
		s.logger.WithFields(map[string]interface{}{
			"method": request.Method,
		}).Debug("Ignoring unknown notification")
	}
}

// handleRequest dispatches a request by method name and always returns a
// response carrying the request's identifier.
func (s *Server) handleRequest(ctx context.Context, request *Request) *Response {
	s.logger.WithFields(map[string]interface{}{
		"method": request.Method,
	}).Debug("Received request")

	switch request.Method {
	case "initialize":
		return s.handleInitialize(ctx, request)
	case "tools/list":
		return s.handleToolsList(ctx, request)
	case "tools/call":
		return s.handleToolsCall(ctx, request)
	case "resources/list":
		return s.handleResourcesList(ctx, request)
	case "resources/read":
		return s.handleResourcesRead(ctx, request)
	default:
		s.logger.WithFields(map[string]interface{}{
			"method": request.Method,
		}).Warn("Method not found")
		return newErrorResponse(request.ID, ErrorCodeMethodNotFound,
			fmt.Sprintf("Unknown method: %s", request.Method), nil)
	}
}

// requestFailed logs a domain-level failure and converts it to the generic
// -32000 response. The session keeps serving subsequent lines.
func (s *Server) requestFailed(request *Request, err error) *Response {
	s.logger.WithFields(map[string]interface{}{
		"method": request.Method,
	}).WithErr(err).Error("Request failed")

	return newErrorResponse(request.ID, ErrorCodeRequestFailed,
		fmt.Sprintf("Request failed: %s", err), err.Error())
}

// notInitialized rejects a state-dependent request issued before the
// initialize handshake completed.
func (s *Server) notInitialized(request *Request) *Response {
	s.logger.WithFields(map[string]interface{}{
		"method": request.Method,
	}).Warn("Request received before initialize")

	return newErrorResponse(request.ID, ErrorCodeNotInitialized, "Not initialized", nil)
}

func (s *Server) handleInitialize(ctx context.Context, request *Request) *Response {
	_, span := observability.StartSpan(ctx, "Server.handleInitialize")
	defer span.End()

	if s.initialized {
		// initialize is not idempotent; state is left untouched.
		return newErrorResponse(request.ID, ErrorCodeRequestFailed, "Already initialized", nil)
	}

	params := InitializeParams{}
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, &params); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return s.requestFailed(request, fmt.Errorf("parse initialize params: %w", err))
		}
	}

	if !s.supportsProtocolVersion(params.ProtocolVersion) {
		s.logger.WithFields(map[string]interface{}{
			"version": params.ProtocolVersion,
		}).Error("Unsupported protocol version")
		return newErrorResponse(request.ID, ErrorCodeRequestFailed,
			fmt.Sprintf("Unsupported protocol version: %s. Supported versions: %s",
				params.ProtocolVersion, strings.Join(s.protocolVersions, ", ")), nil)
	}

	s.initialized = true
	span.SetAttributes(
		attribute.String("protocol_version", params.ProtocolVersion),
		attribute.String("client_name", params.ClientInfo.Name),
	)

	return newResponse(request.ID, InitializeResult{
		ProtocolVersion: params.ProtocolVersion,
		Capabilities:    s.capabilities,
		ServerInfo:      s.serverInfo,
	})
}

func (s *Server) supportsProtocolVersion(version string) bool {
	for _, v := range s.protocolVersions {
		if v == version {
			return true
		}
	}
	return false
}

func (s *Server) handleToolsList(ctx context.Context, request *Request) *Response {
	_, span := observability.StartSpan(ctx, "Server.handleToolsList")
	defer span.End()

	if !s.initialized {
		return s.notInitialized(request)
	}

	tools := make([]Tool, 0, len(s.toolOrder))
	for _, name := range s.toolOrder {
		tools = append(tools, s.tools[name])
	}

	span.SetAttributes(attribute.Int("num_tools", len(tools)))
	return newResponse(request.ID, ListToolsResult{Tools: tools})
}

func (s *Server) handleToolsCall(ctx context.Context, request *Request) *Response {
	ctx, span := observability.StartSpan(ctx, "Server.handleToolsCall")
	defer span.End()

	if !s.initialized {
		return s.notInitialized(request)
	}

	if len(request.Params) == 0 {
		return s.requestFailed(request, errors.New("missing params for tools/call"))
	}

	var params CallToolParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return s.requestFailed(request, fmt.Errorf("parse tools/call params: %w", err))
	}
	if params.Name == "" {
		return s.requestFailed(request, errors.New("missing tool name"))
	}

	tool, exists := s.tools[params.Name]
	if !exists {
		s.logger.WithFields(map[string]interface{}{
			"tool": params.Name,
		}).Warn("Unknown tool")
		return newErrorResponse(request.ID, ErrorCodeMethodNotFound,
			fmt.Sprintf("Unknown tool: %s", params.Name), nil)
	}

	span.SetAttributes(attribute.String("tool", params.Name))

	args := params.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	if err := s.validateToolArguments(tool, args); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return s.requestFailed(request, err)
	}

	result, err := tool.Handler(ctx, args)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return s.requestFailed(request, err)
	}

	text, err := json.Marshal(result)
	if err != nil {
		return s.requestFailed(request, fmt.Errorf("serialize tool result: %w", err))
	}

	return newResponse(request.ID, CallToolResult{
		Content: []ToolResultContent{{Type: "text", Text: string(text)}},
	})
}

// validateToolArguments checks the arguments object against the tool's input
// schema before the handler runs.
func (s *Server) validateToolArguments(tool Tool, args json.RawMessage) error {
	schemaLoader := gojsonschema.NewBytesLoader(tool.InputSchema)
	documentLoader := gojsonschema.NewBytesLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validate %s arguments: %w", tool.Name, err)
	}

	if !result.Valid() {
		var messages []string
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return fmt.Errorf("invalid %s arguments: %s", tool.Name, strings.Join(messages, "; "))
	}

	return nil
}

func (s *Server) handleResourcesList(ctx context.Context, request *Request) *Response {
	ctx, span := observability.StartSpan(ctx, "Server.handleResourcesList")
	defer span.End()

	if !s.initialized {
		return s.notInitialized(request)
	}

	result := ListResourcesResult{Resources: []Resource{}}
	if s.resources == nil {
		return newResponse(request.ID, result)
	}

	resources, err := s.resources.ListResources(ctx)
	if err != nil {
		// Without an active directory the listing degrades to empty so a
		// client can finish onboarding before any directory is configured.
		if errors.Is(err, config.ErrNoActiveDirectory) {
			return newResponse(request.ID, result)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return s.requestFailed(request, fmt.Errorf("list resources: %w", err))
	}

	if resources != nil {
		result.Resources = resources
	}
	span.SetAttributes(attribute.Int("num_resources", len(result.Resources)))

	return newResponse(request.ID, result)
}

func (s *Server) handleResourcesRead(ctx context.Context, request *Request) *Response {
	ctx, span := observability.StartSpan(ctx, "Server.handleResourcesRead")
	defer span.End()

	if !s.initialized {
		return s.notInitialized(request)
	}

	if len(request.Params) == 0 {
		return s.requestFailed(request, errors.New("missing params for resources/read"))
	}

	var params ReadResourceParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return s.requestFailed(request, fmt.Errorf("parse resources/read params: %w", err))
	}
	if params.URI == "" {
		return s.requestFailed(request, errors.New("missing URI"))
	}

	span.SetAttributes(attribute.String("uri", params.URI))

	if s.resources == nil {
		return s.requestFailed(request, errors.New("no resource provider configured"))
	}

	content, err := s.resources.ReadResource(ctx, params.URI)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.WithFields(map[string]interface{}{
			"method": request.Method,
			"uri":    params.URI,
		}).WithErr(err).Error("Failed to read resource")

		return newErrorResponse(request.ID, ErrorCodeRequestFailed,
			fmt.Sprintf("Failed to read resource: %s", err),
			map[string]string{"uri": params.URI, "cause": err.Error()})
	}

	return newResponse(request.ID, ReadResourceResult{
		Contents: []ResourceContent{content},
	})
}
