// Package extract provides text extraction from uploaded document formats.
package extract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFormat indicates the file extension is not on the
	// ingestion allow-list. Rejected before a job is created.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrCorruptDocument indicates the file could not be parsed as its
	// declared format.
	ErrCorruptDocument = errors.New("corrupt document")
)

// SupportedExtensions lists the formats the extractor understands, with
// leading dots, in allow-list order.
var SupportedExtensions = []string{".txt", ".md", ".pdf", ".docx", ".xlsx"}

// Extractor extracts plain text from in-memory document bytes.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether ext (with leading dot, any case) is on the
// allow-list.
func (e *Extractor) Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, s := range SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}

// Extract returns the text content of the document. ext must include the
// leading dot (e.g. ".pdf"). Unknown extensions fail with
// ErrUnsupportedFormat; parse failures wrap ErrCorruptDocument.
func (e *Extractor) Extract(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".txt", ".md":
		return extractPlain(content)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
