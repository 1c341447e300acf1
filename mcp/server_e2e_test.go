package mcp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasplantin/docu-mcp/config"
	"github.com/thomasplantin/docu-mcp/extractor"
	"github.com/thomasplantin/docu-mcp/mcp"
	"github.com/thomasplantin/docu-mcp/observability"
	"github.com/thomasplantin/docu-mcp/resources"
	"github.com/thomasplantin/docu-mcp/tools"
)

type plainTextExtractor struct{}

func (plainTextExtractor) Name() string { return "PlainTextExtractor" }

func (plainTextExtractor) Extract(data []byte) (string, error) {
	return string(data), nil
}

// newProductionServer wires the server the way cmd/docu-mcp does, backed by
// an in-memory config store.
func newProductionServer(t *testing.T, store config.Store) *mcp.Server {
	t.Helper()

	registry := extractor.NewRegistry()
	registry.Register(extractor.ExtensionTxt, plainTextExtractor{})

	logger := observability.NewNullLogger()
	resolver := resources.NewResolver(store, registry, logger)

	server, err := mcp.NewServer(
		mcp.UseLogger(logger),
		mcp.UseServerInfo("docu-mcp", "0.1.0"),
		mcp.UseResourceProvider(resolver),
	)
	require.NoError(t, err)
	require.NoError(t, server.AddTools(tools.DefaultTools(store, registry)...))
	return server
}

func runSession(t *testing.T, server *mcp.Server, lines ...string) []mcp.Response {
	t.Helper()

	out := &bytes.Buffer{}
	stdio := mcp.NewStdIOServer(server, strings.NewReader(strings.Join(lines, "\n")+"\n"), out)
	require.NoError(t, stdio.Run(context.Background()))

	var responses []mcp.Response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var response mcp.Response
		require.NoError(t, json.Unmarshal([]byte(line), &response))
		responses = append(responses, response)
	}
	return responses
}

func resultAs(t *testing.T, response mcp.Response, target interface{}) {
	t.Helper()

	require.Nil(t, response.Error)
	raw, err := json.Marshal(response.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, target))
}

// toolResultAs decodes the JSON carried in a tool call's single text block.
func toolResultAs(t *testing.T, response mcp.Response, target interface{}) {
	t.Helper()

	var callResult mcp.CallToolResult
	resultAs(t, response, &callResult)
	require.Len(t, callResult.Content, 1)
	require.Equal(t, "text", callResult.Content[0].Type)
	require.NoError(t, json.Unmarshal([]byte(callResult.Content[0].Text), target))
}

func TestSessionHandshakeAndToolListing(t *testing.T) {
	server := newProductionServer(t, config.NewMemoryStore())

	responses := runSession(t, server,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"e2e","version":"1.0"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)
	require.Len(t, responses, 2, "the notification must stay silent")

	var initResult mcp.InitializeResult
	resultAs(t, responses[0], &initResult)
	assert.Equal(t, "docu-mcp", initResult.ServerInfo.Name)
	assert.Equal(t, "0.1.0", initResult.ServerInfo.Version)
	assert.Equal(t, "2024-11-05", initResult.ProtocolVersion)

	var listResult mcp.ListToolsResult
	resultAs(t, responses[1], &listResult)
	require.Len(t, listResult.Tools, 4)

	names := make([]string, 0, len(listResult.Tools))
	for _, tool := range listResult.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{
		"set_document_directory",
		"list_document_directories",
		"extract_text_from_file",
		"list_files_in_directory",
	}, names)
}

func TestSessionDocumentWorkflow(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("remember the milk"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte("not a document"), 0644))

	store := config.NewMemoryStore()
	server := newProductionServer(t, store)

	setParams, err := json.Marshal(map[string]interface{}{
		"name":      "set_document_directory",
		"arguments": map[string]string{"directory": dir},
	})
	require.NoError(t, err)

	responses := runSession(t, server,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18"}}`,
		`{"jsonrpc":"2.0","id":2,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":`+string(setParams)+`}`,
		`{"jsonrpc":"2.0","id":4,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":5,"method":"resources/read","params":{"uri":"txt://notes.txt"}}`,
		`{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"list_files_in_directory","arguments":{}}}`,
	)
	require.Len(t, responses, 6)

	// Before a directory is configured the resource listing is empty, not an
	// error.
	var emptyList mcp.ListResourcesResult
	resultAs(t, responses[1], &emptyList)
	assert.Empty(t, emptyList.Resources)

	var setResult tools.SetDocumentDirectoryResult
	toolResultAs(t, responses[2], &setResult)
	assert.Contains(t, setResult.Message, "Directory set as active")
	assert.NotEmpty(t, setResult.ActiveDirectory)

	var listResult mcp.ListResourcesResult
	resultAs(t, responses[3], &listResult)
	require.Len(t, listResult.Resources, 1, "only files with a registered extension are resources")
	assert.Equal(t, "txt://notes.txt", listResult.Resources[0].URI)
	assert.Equal(t, "text/plain", listResult.Resources[0].MimeType)

	var readResult mcp.ReadResourceResult
	resultAs(t, responses[4], &readResult)
	require.Len(t, readResult.Contents, 1)
	assert.Equal(t, "remember the milk", readResult.Contents[0].Text)

	var filesResult tools.ListFilesInDirectoryResult
	toolResultAs(t, responses[5], &filesResult)
	require.Len(t, filesResult.Files, 2)
	assert.Equal(t, "image.png", filesResult.Files[0].Name)
	assert.Equal(t, "notes.txt", filesResult.Files[1].Name)
}

func TestSessionTraversalAttemptIsRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inside.txt"), []byte("fine"), 0644))

	store := config.NewMemoryStore()
	store.Config = config.Config{
		Directories:     []string{dir},
		ActiveDirectory: dir,
	}
	server := newProductionServer(t, store)

	responses := runSession(t, server,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`,
		`{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"txt://../../../../../../../../etc/passwd"}}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"txt://inside.txt"}}`,
	)
	require.Len(t, responses, 3)

	require.NotNil(t, responses[1].Error)
	assert.Equal(t, mcp.ErrorCodeRequestFailed, responses[1].Error.Code)
	assert.Contains(t, responses[1].Error.Message, "Failed to read resource")

	// The rejected read must not break the session for legitimate reads.
	var readResult mcp.ReadResourceResult
	resultAs(t, responses[2], &readResult)
	require.Len(t, readResult.Contents, 1)
	assert.Equal(t, "fine", readResult.Contents[0].Text)
}
