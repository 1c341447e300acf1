package extractor

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts plain text from PDF documents.
type PDFExtractor struct{}

// Name identifies the extractor in error messages.
func (PDFExtractor) Name() string {
	return "PDFExtractor"
}

// Extract parses the PDF bytes and returns their plain-text content.
func (PDFExtractor) Extract(data []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs instead of returning
	// an error; a broken document must not kill the session.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract text from PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse PDF: %w", err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text from PDF: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, content); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}

	return sb.String(), nil
}
