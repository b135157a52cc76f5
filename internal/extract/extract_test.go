package extract

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

// minimalPDF builds a one-page PDF that draws text in Helvetica.
func minimalPDF(text string) []byte {
	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		want     string
		wantErr  bool
	}{
		{"text", "notes.txt", []byte("hello"), TypeText, false},
		{"markdown", "README.md", []byte("# hi"), TypeMarkdown, false},
		{"no extension", "notes", []byte("hello"), TypeText, false},
		{"pdf by magic", "scan.bin", []byte("%PDF-1.7 ..."), TypePDF, false},
		{"fake pdf", "doc.pdf", []byte("not a pdf"), "", true},
		{"docx", "report.docx", []byte("PK\x03\x04"), "", true},
		{"binary txt", "data.txt", []byte{0xff, 0xfe, 0x00}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectType(tt.filename, tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedType)
				assert.ErrorIs(t, err, v1.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Text(t *testing.T) {
	got, err := Extract("notes.txt", []byte("  The capital of France is Paris.\n"))
	require.NoError(t, err)
	assert.Equal(t, "The capital of France is Paris.", got.Text)
	assert.Equal(t, TypeText, got.Type)
}

func TestExtract_Empty(t *testing.T) {
	_, err := Extract("empty.txt", []byte(" \n\t"))
	assert.ErrorIs(t, err, ErrNoText)
	assert.ErrorIs(t, err, v1.ErrInvalidInput)
}

func TestExtract_PDF(t *testing.T) {
	got, err := Extract("hello.pdf", minimalPDF("Hello from a PDF"))
	require.NoError(t, err)
	assert.Equal(t, TypePDF, got.Type)
	assert.Contains(t, got.Text, "Hello")
}

func TestExtract_CorruptPDF(t *testing.T) {
	_, err := Extract("broken.pdf", []byte("%PDF-1.4\ngarbage"))
	assert.ErrorIs(t, err, v1.ErrInvalidInput)
}
