// Package convert provides the stateless document text extractor.
// Extraction is a thin library call: it owns no state, no counters, and
// no quota logic.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"github.com/gabrielgadea/kazuba-saas-api/ports"
)

// ErrUnsupportedFormat is returned for file types the extractor cannot read.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extractor implements ports.Converter for pdf, docx, txt and md inputs.
type Extractor struct{}

// NewExtractor creates a document extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract dispatches on the file extension and returns the extracted text.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (ports.Document, error) {
	if err := ctx.Err(); err != nil {
		return ports.Document{}, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	doc := ports.Document{ID: "doc_" + uuid.NewString()}

	switch ext {
	case ".pdf":
		text, pages, err := extractPDF(ctx, data)
		if err != nil {
			return ports.Document{}, fmt.Errorf("extract pdf: %w", err)
		}
		doc.Format = "pdf"
		doc.Text = text
		doc.Pages = pages

	case ".docx":
		text, err := extractDocx(data)
		if err != nil {
			return ports.Document{}, fmt.Errorf("extract docx: %w", err)
		}
		doc.Format = "docx"
		doc.Text = text

	case ".txt", ".md":
		doc.Format = strings.TrimPrefix(ext, ".")
		doc.Text = string(data)

	default:
		return ports.Document{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	return doc, nil
}

func extractPDF(ctx context.Context, data []byte) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, err
	}

	var sb strings.Builder
	total := reader.NumPage()

	for pageNum := 1; pageNum <= total; pageNum++ {
		select {
		case <-ctx.Done():
			return "", 0, ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	return sb.String(), total, nil
}

func extractDocx(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer doc.Close()

	return stripXML(doc.Editable().GetContent()), nil
}

// stripXML flattens WordprocessingML into plain text: tag content is
// dropped, paragraph closes become newlines.
func stripXML(content string) string {
	var sb strings.Builder
	inTag := false
	var tag strings.Builder

	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
			tag.Reset()
		case r == '>' && inTag:
			inTag = false
			if tag.String() == "/w:p" {
				sb.WriteByte('\n')
			}
		case inTag:
			tag.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}

	return strings.TrimSpace(sb.String())
}

// Ensure interface compliance.
var _ ports.Converter = (*Extractor)(nil)
