package acquisition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/ahrav/litcast/internal/ports"
)

var _ ports.TextExtractor = (*PDFExtractor)(nil)

var errNoText = errors.New("document contains no extractable text")

// PDFExtractor flattens PDF, HTML and plain-text documents. PDFs are read
// page by page; pages that fail to decode are skipped.
type PDFExtractor struct{}

// NewPDFExtractor returns a PDFExtractor.
func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

// Extract returns the cleaned text of doc.
func (e *PDFExtractor) Extract(ctx context.Context, doc ports.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch kind(doc) {
	case "pdf":
		text, err = pdfText(doc.Body)
	case "html":
		text, err = htmlText(doc.Body)
	default:
		text = string(doc.Body)
	}
	if err != nil {
		return "", ports.NewDocumentError(doc.URL, 0, fmt.Errorf("%w: %w", ports.ErrExtractFailed, err))
	}

	text = Clean(text)
	if text == "" {
		return "", ports.NewDocumentError(doc.URL, 0, fmt.Errorf("%w: %w", ports.ErrExtractFailed, errNoText))
	}
	return text, nil
}

func kind(doc ports.Document) string {
	if bytes.HasPrefix(doc.Body, []byte("%PDF")) {
		return "pdf"
	}
	mediaType, _, _ := mime.ParseMediaType(doc.ContentType)
	switch mediaType {
	case "application/pdf":
		return "pdf"
	case "text/html", "application/xhtml+xml":
		return "html"
	}
	head := bytes.ToLower(bytes.TrimSpace(doc.Body[:min(len(doc.Body), 512)]))
	if bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html")) {
		return "html"
	}
	return "text"
}

func pdfText(body []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "table": true,
}

func htmlText(body []byte) (string, error) {
	z := html.NewTokenizer(bytes.NewReader(body))
	var sb strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return sb.String(), nil
			}
			return "", z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case tag == "script" || tag == "style":
				skip++
			case blockElements[tag]:
				sb.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case tag == "script" || tag == "style":
				skip = max(0, skip-1)
			case blockElements[tag]:
				sb.WriteString("\n")
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
				sb.WriteString(" ")
			}
		}
	}
}
