package acquisition

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/litcast/internal/ports"
)

// onePagePDF builds a minimal single-page PDF showing text.
func onePagePDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestPDFExtractor_PDF(t *testing.T) {
	doc := ports.Document{URL: "u", ContentType: "application/pdf", Body: onePagePDF("The Commission alleges fraud")}

	text, err := NewPDFExtractor().Extract(context.Background(), doc)

	require.NoError(t, err)
	assert.Contains(t, text, "Commission alleges fraud")
}

func TestPDFExtractor_MalformedPDF(t *testing.T) {
	doc := ports.Document{URL: "u", ContentType: "application/pdf", Body: []byte("%PDF-1.4 truncated garbage")}

	_, err := NewPDFExtractor().Extract(context.Background(), doc)

	var docErr *ports.DocumentError
	require.ErrorAs(t, err, &docErr)
	assert.ErrorIs(t, err, ports.ErrExtractFailed)
}

func TestPDFExtractor_HTML(t *testing.T) {
	body := []byte(`<!DOCTYPE html><html><head><style>p{color:red}</style>
<script>var leak = "settled";</script></head>
<body><h1>COMPLAINT</h1><p>Plaintiff Securities and Exchange Commission alleges:</p>
<p>Defendant   sold&nbsp;unregistered securities.</p></body></html>`)

	text, err := NewPDFExtractor().Extract(context.Background(), ports.Document{ContentType: "text/html; charset=utf-8", Body: body})

	require.NoError(t, err)
	assert.Contains(t, text, "COMPLAINT")
	assert.Contains(t, text, "Defendant sold unregistered securities.")
	assert.NotContains(t, text, "leak")
	assert.NotContains(t, text, "color")
}

func TestPDFExtractor_PlainText(t *testing.T) {
	text, err := NewPDFExtractor().Extract(context.Background(), ports.Document{
		ContentType: "text/plain",
		Body:        []byte("  line one  \n\n\n\nline two\n"),
	})

	require.NoError(t, err)
	assert.Equal(t, "line one\n\nline two", text)
}

func TestPDFExtractor_Empty(t *testing.T) {
	_, err := NewPDFExtractor().Extract(context.Background(), ports.Document{URL: "u", Body: []byte("  \n 3 \n")})
	require.ErrorIs(t, err, ports.ErrExtractFailed)
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		doc  ports.Document
		want string
	}{
		{"pdf magic", ports.Document{ContentType: "application/octet-stream", Body: []byte("%PDF-1.7")}, "pdf"},
		{"pdf type", ports.Document{ContentType: "application/pdf", Body: []byte("x")}, "pdf"},
		{"html type", ports.Document{ContentType: "text/html", Body: []byte("x")}, "html"},
		{"html sniff", ports.Document{Body: []byte("  <HTML><body>x")}, "html"},
		{"text", ports.Document{ContentType: "text/plain", Body: []byte("x")}, "text"},
		{"empty", ports.Document{}, "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kind(tt.doc))
		})
	}
}
