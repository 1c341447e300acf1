package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct{}

func (fakeExtractor) Name() string                        { return "FakeExtractor" }
func (fakeExtractor) Extract(data []byte) (string, error) { return string(data), nil }

func TestMimeType(t *testing.T) {
	tests := []struct {
		extension string
		want      string
	}{
		{"pdf", "application/pdf"},
		{"PDF", "application/pdf"},
		{"docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"doc", "application/msword"},
		{"txt", "text/plain"},
		{"xyz", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, MimeType(tc.extension), "extension %q", tc.extension)
	}
}

func TestRegistryBaseline(t *testing.T) {
	registry := NewRegistry()

	assert.True(t, registry.Supports("pdf"))
	assert.True(t, registry.Supports("PDF"))
	assert.False(t, registry.Supports("txt"))
	assert.Equal(t, []string{"pdf"}, registry.Extensions())
}

func TestRegistryRegister(t *testing.T) {
	registry := NewRegistry()
	registry.Register("TXT", fakeExtractor{})

	assert.True(t, registry.Supports("txt"))
	assert.Equal(t, []string{"pdf", "txt"}, registry.Extensions(), "extensions are sorted")

	e, err := registry.Lookup("txt")
	require.NoError(t, err)
	assert.Equal(t, "FakeExtractor", e.Name())
}

func TestRegistryLookupUnknown(t *testing.T) {
	_, err := NewRegistry().Lookup("mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file format: mp3")
	assert.Contains(t, err.Error(), "pdf", "the error names the supported formats")
}

func TestRegistryForFile(t *testing.T) {
	registry := NewRegistry()

	e, err := registry.ForFile("/docs/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "PDFExtractor", e.Name())

	_, err = registry.ForFile("/docs/README")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file has no extension")

	_, err = registry.ForFile("/docs/song.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file format")
}

func TestPDFExtractorRejectsGarbage(t *testing.T) {
	_, err := PDFExtractor{}.Extract([]byte("this is not a pdf"))
	require.Error(t, err)
}

func TestPDFExtractorSurvivesEmptyInput(t *testing.T) {
	// Must error, not panic.
	_, err := PDFExtractor{}.Extract(nil)
	require.Error(t, err)
}
