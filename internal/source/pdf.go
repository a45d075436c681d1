package source

import (
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// PDFDocument exposes the page text of a PDF. It is the document the
// transport sends upstream so a lesson can be generated from it.
type PDFDocument struct {
	doc  *fitz.Document
	path string
}

func OpenPDF(path string) (*PDFDocument, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &PDFDocument{doc: doc, path: path}, nil
}

func (d *PDFDocument) PageCount() int {
	return d.doc.NumPage()
}

func (d *PDFDocument) PageText(index int) (string, error) {
	return d.doc.Text(index)
}

// Text concatenates the text of all pages, separated by blank lines.
// Pages whose text cannot be extracted are skipped.
func (d *PDFDocument) Text() string {
	var sb strings.Builder
	for i := 0; i < d.PageCount(); i++ {
		text, err := d.PageText(i)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}
	return sb.String()
}

// Filename returns the base name of the document file.
func (d *PDFDocument) Filename() string {
	return filepath.Base(d.path)
}

// Topic returns the document title from its metadata, or the file name
// without extension.
func (d *PDFDocument) Topic() string {
	if title := strings.TrimSpace(d.doc.Metadata()["title"]); title != "" {
		return title
	}
	name := d.Filename()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (d *PDFDocument) Close() error {
	return d.doc.Close()
}
