// Package extract turns uploaded resume and job description files into plain text.
package extract

import (
	"path/filepath"
	"strings"

	"atsmatch/internal/errors"
)

// Format identifies the decoder chosen for a document
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatText    Format = "txt"
	FormatUnknown Format = "unknown"
)

// SupportedExtensions lists the extensions with a dedicated decoder
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".txt"}
}

// DetectFormat picks a decoder from the filename extension, case-insensitively.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".txt":
		return FormatText
	default:
		return FormatUnknown
	}
}

// Extractor dispatches raw bytes to the matching format decoder
type Extractor struct{}

// New creates an Extractor
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the plain text of data. The filename is only a hint and may be empty;
// unknown formats are tried as PDF first and then decoded as lossy UTF-8.
func (e *Extractor) Extract(data []byte, filename string) (string, error) {
	format := DetectFormat(filename)

	switch format {
	case FormatPDF:
		text, err := PDFText(data)
		if err != nil {
			return "", extractionError(format, filename, err)
		}
		return text, nil
	case FormatDOCX:
		text, err := DOCXText(data)
		if err != nil {
			return "", extractionError(format, filename, err)
		}
		return text, nil
	case FormatText:
		return PlainText(data), nil
	default:
		if text, err := PDFText(data); err == nil {
			return text, nil
		}
		return PlainText(data), nil
	}
}

func extractionError(format Format, filename string, cause error) error {
	return errors.NewExtractionError(errors.ErrCodeExtractionFailed,
		"failed to extract text from "+string(format)+" document", cause).
		WithContext("filename", filename).
		WithContext("format", string(format))
}
