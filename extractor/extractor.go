// Package extractor turns document file bytes into plain text, keyed by file
// extension. The baseline registry only knows PDF; adding a format is a
// single Register call, not a structural change.
package extractor

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// File extensions with known MIME types.
const (
	ExtensionPDF  = "pdf"
	ExtensionDocx = "docx"
	ExtensionDoc  = "doc"
	ExtensionTxt  = "txt"
)

// MimeType returns the MIME type for a file extension, or
// application/octet-stream when the extension is not recognized.
func MimeType(extension string) string {
	switch strings.ToLower(extension) {
	case ExtensionPDF:
		return "application/pdf"
	case ExtensionDocx:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ExtensionDoc:
		return "application/msword"
	case ExtensionTxt:
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// Extractor turns raw document bytes into plain text.
type Extractor interface {
	Extract(data []byte) (string, error)
	Name() string
}

// Registry maps lower-cased file extensions to extractors. The set of
// registered extensions defines which files are listed as resources.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates a Registry with the baseline extractors registered.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	r.Register(ExtensionPDF, PDFExtractor{})
	return r
}

// Register adds an extractor for a file extension (without the dot).
func (r *Registry) Register(extension string, e Extractor) {
	r.extractors[strings.ToLower(extension)] = e
}

// Supports reports whether an extension has a registered extractor.
func (r *Registry) Supports(extension string) bool {
	_, ok := r.extractors[strings.ToLower(extension)]
	return ok
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	extensions := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}

// Lookup returns the extractor for an extension.
func (r *Registry) Lookup(extension string) (Extractor, error) {
	e, ok := r.extractors[strings.ToLower(extension)]
	if !ok {
		return nil, fmt.Errorf("unsupported file format: %s. Supported formats: %s",
			extension, strings.Join(r.Extensions(), ", "))
	}
	return e, nil
}

// ForFile returns the extractor matching a file path's extension.
func (r *Registry) ForFile(path string) (Extractor, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("file has no extension: %s", path)
	}
	return r.Lookup(ext)
}
