// Package decode extracts plain text from uploaded document bytes.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	// ErrDecode means the bytes could not be read as the declared format.
	ErrDecode = errors.New("decode failure")

	// ErrUnsupportedFormat means no decoder exists for the requested format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrNoText means decoding succeeded but produced no text.
	ErrNoText = errors.New("no text found in document")
)

// Format names a document encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
)

var extensions = map[string]Format{
	".txt":      FormatText,
	".text":     FormatText,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
}

// ParseFormat accepts a format name or a bare file extension ("md", ".pdf").
// An empty name means FormatText.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch Format(name) {
	case "":
		return FormatText, nil
	case FormatText, FormatMarkdown, FormatHTML, FormatPDF, FormatDOCX:
		return Format(name), nil
	}
	if f, ok := extensions["."+strings.TrimPrefix(name, ".")]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// FormatFromFilename picks the format from a file extension.
func FormatFromFilename(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// Decode extracts text from data. Block-level elements (paragraphs, list items,
// table cells, PDF rows) end up on their own lines.
func Decode(data []byte, format Format) (string, error) {
	var (
		text string
		err  error
	)

	switch format {
	case FormatText:
		text, err = decodeText(data)
	case FormatMarkdown:
		text, err = decodeMarkdown(data)
	case FormatHTML:
		text, err = decodeHTML(data)
	case FormatPDF:
		text, err = decodePDF(data)
	case FormatDOCX:
		text, err = decodeDOCX(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrDecode, format, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", errors.New("text is not valid UTF-8")
	}
	return string(data), nil
}

// joinLines drops blank lines and joins the rest with newlines.
func joinLines(lines []string) string {
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
