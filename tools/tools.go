// Package tools defines the fixed set of document tools the server exposes.
// Each tool is a pure function from validated input plus the persisted
// config to a result or failure; none of them touch session state.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/thomasplantin/docu-mcp/config"
	"github.com/thomasplantin/docu-mcp/extractor"
	"github.com/thomasplantin/docu-mcp/mcp"
)

// SetDocumentDirectoryParams are the arguments of set_document_directory.
type SetDocumentDirectoryParams struct {
	Directory string `json:"directory"`
}

// SetDocumentDirectoryResult is the result of set_document_directory.
type SetDocumentDirectoryResult struct {
	Message         string `json:"message"`
	ActiveDirectory string `json:"active_directory"`
}

// ListDocumentDirectoriesResult is the result of list_document_directories.
type ListDocumentDirectoriesResult struct {
	Directories     []string `json:"directories"`
	ActiveDirectory string   `json:"active_directory,omitempty"`
}

// ExtractTextFromFileParams are the arguments of extract_text_from_file.
type ExtractTextFromFileParams struct {
	FilePath string `json:"file_path"`
}

// ExtractTextFromFileResult is the result of extract_text_from_file.
type ExtractTextFromFileResult struct {
	Text string `json:"text"`
}

// ListFilesInDirectoryParams are the arguments of list_files_in_directory.
type ListFilesInDirectoryParams struct {
	// Directory is optional; when empty the active directory is used.
	Directory string `json:"directory"`
}

// FileInfo describes one directory entry.
type FileInfo struct {
	Name      string  `json:"name"`
	Path      string  `json:"path"`
	IsFile    bool    `json:"is_file"`
	Extension *string `json:"extension"`
}

// ListFilesInDirectoryResult is the result of list_files_in_directory.
type ListFilesInDirectoryResult struct {
	Directory string     `json:"directory"`
	Files     []FileInfo `json:"files"`
}

// DefaultTools returns the four document tools wired to the given config
// store and extractor registry, in their canonical listing order.
func DefaultTools(store config.Store, extractors *extractor.Registry) []mcp.Tool {
	return []mcp.Tool{
		{
			Name: "set_document_directory",
			Description: "Set the active document directory. Validates the directory exists and is readable, " +
				"adds it to the directories list if not present, sets it as active_directory, and saves the config.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"directory": {
						"type": "string",
						"description": "Path to directory"
					}
				},
				"required": ["directory"]
			}`),
			Handler: func(ctx context.Context, args json.RawMessage) (interface{}, error) {
				var params SetDocumentDirectoryParams
				if err := json.Unmarshal(args, &params); err != nil {
					return nil, fmt.Errorf("parse set_document_directory params: %w", err)
				}
				return SetDocumentDirectory(store, params)
			},
		},
		{
			Name:        "list_document_directories",
			Description: "List all document directories and the active directory.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {}
			}`),
			Handler: func(ctx context.Context, args json.RawMessage) (interface{}, error) {
				return ListDocumentDirectories(store)
			},
		},
		{
			Name:        "extract_text_from_file",
			Description: "Extract text from a document file using the appropriate extractor.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"file_path": {
						"type": "string",
						"description": "Path to the file to extract text from"
					}
				},
				"required": ["file_path"]
			}`),
			Handler: func(ctx context.Context, args json.RawMessage) (interface{}, error) {
				var params ExtractTextFromFileParams
				if err := json.Unmarshal(args, &params); err != nil {
					return nil, fmt.Errorf("parse extract_text_from_file params: %w", err)
				}
				return ExtractTextFromFile(extractors, params)
			},
		},
		{
			Name: "list_files_in_directory",
			Description: "List all files and subdirectories in a directory. " +
				"If no directory is provided, uses the active directory.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"directory": {
						"type": "string",
						"description": "Optional directory path. If not provided, uses the active directory."
					}
				},
				"required": []
			}`),
			Handler: func(ctx context.Context, args json.RawMessage) (interface{}, error) {
				var params ListFilesInDirectoryParams
				if err := json.Unmarshal(args, &params); err != nil {
					return nil, fmt.Errorf("parse list_files_in_directory params: %w", err)
				}
				return ListFilesInDirectory(store, params)
			},
		},
	}
}

// SetDocumentDirectory validates the directory, records its canonical path
// in the known-directories list (deduplicated), marks it active and saves
// the config.
func SetDocumentDirectory(store config.Store, params SetDocumentDirectoryParams) (SetDocumentDirectoryResult, error) {
	info, err := os.Stat(params.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return SetDocumentDirectoryResult{}, fmt.Errorf("directory does not exist: %s", params.Directory)
		}
		return SetDocumentDirectoryResult{}, fmt.Errorf("stat %s: %w", params.Directory, err)
	}
	if !info.IsDir() {
		return SetDocumentDirectoryResult{}, fmt.Errorf("path is not a directory: %s", params.Directory)
	}

	if _, err := os.ReadDir(params.Directory); err != nil {
		return SetDocumentDirectoryResult{}, fmt.Errorf("directory is not readable: %s: %w", params.Directory, err)
	}

	abs, err := filepath.Abs(params.Directory)
	if err != nil {
		return SetDocumentDirectoryResult{}, fmt.Errorf("resolve path %s: %w", params.Directory, err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return SetDocumentDirectoryResult{}, fmt.Errorf("canonicalize path %s: %w", params.Directory, err)
	}

	cfg, err := store.Load()
	if err != nil {
		return SetDocumentDirectoryResult{}, fmt.Errorf("load config: %w", err)
	}

	// Dedup by canonical path, not by the raw string the client sent.
	known := false
	for _, dir := range cfg.Directories {
		if dir == canonical {
			known = true
			break
		}
	}
	if !known {
		cfg.Directories = append(cfg.Directories, canonical)
	}
	cfg.ActiveDirectory = canonical

	if err := store.Save(cfg); err != nil {
		return SetDocumentDirectoryResult{}, fmt.Errorf("save config: %w", err)
	}

	return SetDocumentDirectoryResult{
		Message:         fmt.Sprintf("Directory set as active: %s", canonical),
		ActiveDirectory: canonical,
	}, nil
}

// ListDocumentDirectories returns the known directories and the active one.
// Continued existence of the listed paths is deliberately not re-validated.
func ListDocumentDirectories(store config.Store) (ListDocumentDirectoriesResult, error) {
	cfg, err := store.Load()
	if err != nil {
		return ListDocumentDirectoriesResult{}, fmt.Errorf("load config: %w", err)
	}

	directories := cfg.Directories
	if directories == nil {
		directories = []string{}
	}

	return ListDocumentDirectoriesResult{
		Directories:     directories,
		ActiveDirectory: cfg.ActiveDirectory,
	}, nil
}

// ExtractTextFromFile extracts text from any readable file on disk. Unlike
// resource reads this tool is not scoped to the active directory.
func ExtractTextFromFile(extractors *extractor.Registry, params ExtractTextFromFileParams) (ExtractTextFromFileResult, error) {
	info, err := os.Stat(params.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return ExtractTextFromFileResult{}, fmt.Errorf("file does not exist: %s", params.FilePath)
		}
		return ExtractTextFromFileResult{}, fmt.Errorf("stat %s: %w", params.FilePath, err)
	}
	if info.IsDir() {
		return ExtractTextFromFileResult{}, fmt.Errorf("path is not a file: %s", params.FilePath)
	}

	e, err := extractors.ForFile(params.FilePath)
	if err != nil {
		return ExtractTextFromFileResult{}, fmt.Errorf("create extractor for file %s: %w", params.FilePath, err)
	}

	data, err := os.ReadFile(params.FilePath)
	if err != nil {
		return ExtractTextFromFileResult{}, fmt.Errorf("read file %s: %w", params.FilePath, err)
	}

	text, err := e.Extract(data)
	if err != nil {
		return ExtractTextFromFileResult{}, fmt.Errorf("extract text from file %s: %w", params.FilePath, err)
	}

	return ExtractTextFromFileResult{Text: text}, nil
}

// ListFilesInDirectory lists the direct children of a directory, sorted by
// name. With no directory argument the active directory is used.
func ListFilesInDirectory(store config.Store, params ListFilesInDirectoryParams) (ListFilesInDirectoryResult, error) {
	directory := params.Directory
	if directory == "" {
		cfg, err := store.Load()
		if err != nil {
			return ListFilesInDirectoryResult{}, fmt.Errorf("load config: %w", err)
		}
		if cfg.ActiveDirectory == "" {
			return ListFilesInDirectoryResult{}, config.ErrNoActiveDirectory
		}
		directory = cfg.ActiveDirectory
	}

	info, err := os.Stat(directory)
	if err != nil {
		if os.IsNotExist(err) {
			return ListFilesInDirectoryResult{}, fmt.Errorf("directory does not exist: %s", directory)
		}
		return ListFilesInDirectoryResult{}, fmt.Errorf("stat %s: %w", directory, err)
	}
	if !info.IsDir() {
		return ListFilesInDirectoryResult{}, fmt.Errorf("path is not a directory: %s", directory)
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		return ListFilesInDirectoryResult{}, fmt.Errorf("read directory %s: %w", directory, err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()

		var extension *string
		if ext := strings.TrimPrefix(filepath.Ext(name), "."); ext != "" {
			extension = &ext
		}

		files = append(files, FileInfo{
			Name:      name,
			Path:      filepath.Join(directory, name),
			IsFile:    !entry.IsDir(),
			Extension: extension,
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return ListFilesInDirectoryResult{
		Directory: directory,
		Files:     files,
	}, nil
}
