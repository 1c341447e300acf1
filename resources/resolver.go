// Package resources derives MCP resources from the active document
// directory. Resources are recomputed from the directory contents on every
// listing and are never stored.
package resources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/thomasplantin/docu-mcp/config"
	"github.com/thomasplantin/docu-mcp/extractor"
	"github.com/thomasplantin/docu-mcp/mcp"
	"github.com/thomasplantin/docu-mcp/observability"
)

// Resolver maps resource URIs of the form <ext>://<filename> onto files in
// the active directory. It implements mcp.ResourceProvider.
type Resolver struct {
	store      config.Store
	extractors *extractor.Registry
	logger     observability.Logger
}

// NewResolver creates a Resolver over the given config store and extractor
// registry.
func NewResolver(store config.Store, extractors *extractor.Registry, logger observability.Logger) *Resolver {
	if logger == nil {
		logger = observability.NewNullLogger()
	}
	return &Resolver{
		store:      store,
		extractors: extractors,
		logger:     logger,
	}
}

// parseURI splits a resource URI into extension and filename. Only
// registered extensions form valid schemes.
func (r *Resolver) parseURI(uri string) (extension, filename string, err error) {
	for _, ext := range r.extractors.Extensions() {
		scheme := ext + "://"
		if strings.HasPrefix(uri, scheme) {
			name := strings.TrimPrefix(uri, scheme)
			if name == "" {
				return "", "", fmt.Errorf("URI contains no filename: %s", uri)
			}
			return ext, name, nil
		}
	}

	schemes := make([]string, 0, len(r.extractors.Extensions()))
	for _, ext := range r.extractors.Extensions() {
		schemes = append(schemes, ext+"://")
	}
	return "", "", fmt.Errorf("invalid URI format, expected one of: %s, got: %s",
		strings.Join(schemes, ", "), uri)
}

// activeDirectory loads the configured active directory.
func (r *Resolver) activeDirectory() (string, error) {
	cfg, err := r.store.Load()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	if cfg.ActiveDirectory == "" {
		return "", config.ErrNoActiveDirectory
	}
	return cfg.ActiveDirectory, nil
}

// resolvePath turns a resource URI into a canonical file path that is
// guaranteed to live under the active directory. Any path that
// canonicalizes outside of it (".." traversal, absolute-path injection,
// symlink escape) is rejected before anything is read.
func (r *Resolver) resolvePath(uri string) (string, error) {
	_, filename, err := r.parseURI(uri)
	if err != nil {
		return "", err
	}

	activeDir, err := r.activeDirectory()
	if err != nil {
		return "", err
	}

	filePath := filepath.Join(activeDir, filename)
	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found in active directory: %s (active directory: %s)", filename, activeDir)
		}
		return "", fmt.Errorf("stat %s: %w", filePath, err)
	}

	canonicalFile, err := canonicalize(filePath)
	if err != nil {
		return "", fmt.Errorf("canonicalize file path %s: %w", filePath, err)
	}
	canonicalDir, err := canonicalize(activeDir)
	if err != nil {
		return "", fmt.Errorf("canonicalize active directory %s: %w", activeDir, err)
	}

	if !within(canonicalDir, canonicalFile) {
		r.logger.WithFields(map[string]interface{}{
			"uri":       uri,
			"candidate": canonicalFile,
		}).Warn("Rejected resource path outside active directory")
		return "", fmt.Errorf("file is not in the active directory (security check failed): %s", filename)
	}

	return canonicalFile, nil
}

// canonicalize resolves a path to its absolute, symlink-free form.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// within reports whether file is dir or a descendant of dir. Both paths must
// already be canonical.
func within(dir, file string) bool {
	rel, err := filepath.Rel(dir, file)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ListResources enumerates the direct children of the active directory that
// have a registered extension, sorted by name.
func (r *Resolver) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	_, span := observability.StartSpan(ctx, "Resolver.ListResources")
	defer span.End()

	activeDir, err := r.activeDirectory()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(activeDir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("active directory does not exist: %s", activeDir)
		}
		return nil, fmt.Errorf("stat active directory %s: %w", activeDir, err)
	}

	entries, err := os.ReadDir(activeDir)
	if err != nil {
		return nil, fmt.Errorf("read active directory %s: %w", activeDir, err)
	}

	// os.ReadDir returns entries sorted by name, which keeps listings
	// deterministic.
	resources := make([]mcp.Resource, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		if ext == "" || !r.extractors.Supports(ext) {
			continue
		}

		resources = append(resources, mcp.Resource{
			URI:         ext + "://" + name,
			Name:        name,
			Description: "Document: " + name,
			MimeType:    extractor.MimeType(ext),
		})
	}

	span.SetAttributes(attribute.Int("num_resources", len(resources)))
	return resources, nil
}

// ReadResource resolves a resource URI and returns its extracted text.
func (r *Resolver) ReadResource(ctx context.Context, uri string) (mcp.ResourceContent, error) {
	_, span := observability.StartSpan(ctx, "Resolver.ReadResource")
	defer span.End()
	span.SetAttributes(attribute.String("uri", uri))

	path, err := r.resolvePath(uri)
	if err != nil {
		return mcp.ResourceContent{}, err
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	e, err := r.extractors.Lookup(ext)
	if err != nil {
		return mcp.ResourceContent{}, fmt.Errorf("create extractor for resource %s: %w", uri, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.ResourceContent{}, fmt.Errorf("read resource %s: %w", uri, err)
	}

	text, err := e.Extract(data)
	if err != nil {
		return mcp.ResourceContent{}, fmt.Errorf("extract text from resource %s: %w", uri, err)
	}

	return mcp.ResourceContent{
		URI:      uri,
		MimeType: extractor.MimeType(ext),
		Text:     text,
	}, nil
}
