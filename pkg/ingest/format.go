package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions the loader set does
// not cover. Detection happens before any file I/O.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Format identifies a supported document type.
type Format int

const (
	FormatPDF Format = iota
	FormatWord
	FormatPresentation
)

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatWord:
		return "word"
	case FormatPresentation:
		return "presentation"
	default:
		return "unknown"
	}
}

// DetectFormat maps a file name to its document format by extension.
// The extension of the user-facing source name decides, not the on-disk
// temp file path.
func DetectFormat(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))

	switch ext {
	case ".pdf":
		return FormatPDF, nil
	case ".doc", ".docx":
		return FormatWord, nil
	case ".ppt", ".pptx":
		return FormatPresentation, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}
