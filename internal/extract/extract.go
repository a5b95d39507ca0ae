// Package extract converts fetched receipt documents to plain text.
// The pipeline treats extraction as an injected collaborator; any
// document-to-text implementation can be substituted.
package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	pdf "github.com/dslipak/pdf"
)

// Extractor converts a binary document to plain text, one receipt row
// per line. Empty output is legal: classifying whitespace-only text is
// the pipeline's job, not the extractor's.
type Extractor interface {
	Extract(ctx context.Context, doc []byte) (string, error)
}

// PDFExtractor extracts selectable text from PDF documents.
type PDFExtractor struct{}

// NewPDF creates the default PDF text extractor.
func NewPDF() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract spools the document to a temporary file (the PDF reader wants
// a seekable file), walks every page and returns the text row by row.
// The temporary file is removed on every exit path.
func (e *PDFExtractor) Extract(ctx context.Context, doc []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "receipt-*.pdf")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	reader, err := pdf.Open(tmp.Name())
	if err != nil {
		return "", fmt.Errorf("opening document: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			// A single unreadable page does not sink the document.
			continue
		}
		for _, row := range rows {
			for _, word := range row.Content {
				sb.WriteString(word.S)
			}
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}
