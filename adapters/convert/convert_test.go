package convert_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gabrielgadea/kazuba-saas-api/adapters/convert"
)

func TestExtract_PlainText(t *testing.T) {
	e := convert.NewExtractor()

	tests := []struct {
		filename   string
		data       string
		wantFormat string
	}{
		{"notes.txt", "hello world", "txt"},
		{"README.md", "# Title\n\nbody", "md"},
		{"UPPER.TXT", "case insensitive extension", "txt"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			doc, err := e.Extract(context.Background(), tt.filename, []byte(tt.data))
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if doc.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", doc.Format, tt.wantFormat)
			}
			if doc.Text != tt.data {
				t.Errorf("Text = %q, want %q", doc.Text, tt.data)
			}
			if !strings.HasPrefix(doc.ID, "doc_") {
				t.Errorf("ID = %q, want doc_ prefix", doc.ID)
			}
			if doc.Pages != 0 {
				t.Errorf("Pages = %d, want 0 for text formats", doc.Pages)
			}
		})
	}
}

func TestExtract_UniqueIDs(t *testing.T) {
	e := convert.NewExtractor()

	a, err := e.Extract(context.Background(), "a.txt", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Extract(context.Background(), "b.txt", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Errorf("two conversions share document ID %q", a.ID)
	}
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	e := convert.NewExtractor()

	for _, filename := range []string{"image.png", "archive.zip", "noextension", "file.pdf.exe"} {
		t.Run(filename, func(t *testing.T) {
			_, err := e.Extract(context.Background(), filename, []byte("data"))
			if !errors.Is(err, convert.ErrUnsupportedFormat) {
				t.Errorf("Extract(%q) error = %v, want ErrUnsupportedFormat", filename, err)
			}
		})
	}
}

func TestExtract_CorruptPDF(t *testing.T) {
	e := convert.NewExtractor()

	_, err := e.Extract(context.Background(), "broken.pdf", []byte("not a pdf at all"))
	if err == nil {
		t.Fatal("expected error for corrupt pdf")
	}
	if errors.Is(err, convert.ErrUnsupportedFormat) {
		t.Error("corrupt pdf misreported as unsupported format")
	}
}

func TestExtract_CorruptDocx(t *testing.T) {
	e := convert.NewExtractor()

	if _, err := e.Extract(context.Background(), "broken.docx", []byte("not a zip")); err == nil {
		t.Fatal("expected error for corrupt docx")
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	e := convert.NewExtractor()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Extract(ctx, "notes.txt", []byte("hello")); err == nil {
		t.Error("expected error for cancelled context")
	}
}
