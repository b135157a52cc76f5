// Package extract turns uploaded files into plain text.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

// Supported content types.
const (
	TypeText     = "text/plain"
	TypeMarkdown = "text/markdown"
	TypePDF      = "application/pdf"
)

var (
	// ErrUnsupportedType is returned for files that are neither text nor PDF.
	ErrUnsupportedType = fmt.Errorf("%w: unsupported file type", v1.ErrInvalidInput)

	// ErrNoText is returned when a file yields no text.
	ErrNoText = fmt.Errorf("%w: no text could be extracted from the file", v1.ErrInvalidInput)
)

var pdfMagic = []byte("%PDF-")

// Result is the text of one file.
type Result struct {
	Text string
	Type string
}

// DetectType returns the content type of a file from its leading bytes,
// falling back to the extension for text files.
func DetectType(filename string, data []byte) (string, error) {
	if bytes.HasPrefix(data, pdfMagic) {
		return TypePDF, nil
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "", fmt.Errorf("%w: %s is not a valid PDF", ErrUnsupportedType, filename)
	case ".md", ".markdown":
		if utf8.Valid(data) {
			return TypeMarkdown, nil
		}
	case ".txt", ".text", "":
		if utf8.Valid(data) {
			return TypeText, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filename)
}

// Extract returns the text content of data.
func Extract(filename string, data []byte) (*Result, error) {
	typ, err := DetectType(filename, data)
	if err != nil {
		return nil, err
	}

	var text string
	switch typ {
	case TypePDF:
		text, err = PDFText(data)
		if err != nil {
			return nil, err
		}
	default:
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoText
	}
	return &Result{Text: text, Type: typ}, nil
}

// PDFText returns the plain text of every page of a PDF.
func PDFText(data []byte) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: malformed PDF: %v", v1.ErrInvalidInput, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: opening PDF: %w", v1.ErrInvalidInput, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: reading PDF text: %w", v1.ErrInvalidInput, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("reading PDF text: %w", err)
	}
	return buf.String(), nil
}
