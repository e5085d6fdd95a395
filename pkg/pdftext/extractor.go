// Package pdftext reads the text layer of PDF documents page by page.
//
// Only the embedded text layer is read; scanned (image-only) pages come back
// empty. A page that cannot be decoded is logged and yields an empty
// fragment, so one broken page never costs the whole document.
package pdftext

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"

	"pdfspeak/pkg/textclean"
)

// Document is an opened, paginated document. Page numbers are 1-based.
type Document interface {
	NumPage() int
	PageText(n int) (string, error)
	Close() error
}

// OpenFunc opens the document at path.
type OpenFunc func(path string) (Document, error)

// Extractor turns a document file into normalized text.
type Extractor struct {
	open OpenFunc
}

// NewExtractor returns an Extractor reading PDFs with ledongthuc/pdf.
func NewExtractor() *Extractor {
	return &Extractor{open: OpenPDF}
}

// NewExtractorWith returns an Extractor using a custom opener.
func NewExtractorWith(open OpenFunc) *Extractor {
	return &Extractor{open: open}
}

// ErrNoPage is returned by Document.PageText for a page number past the end
// of the page tree.
var ErrNoPage = errors.New("page not in document")

// Pages returns one text fragment per page, in page order. Pages that fail
// to decode are returned as "". The declared page count is only an upper
// bound: reading stops at the first page the page tree does not contain.
func (e *Extractor) Pages(path string) ([]string, error) {
	doc, err := e.open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	n, err := pageCount(doc)
	if err != nil {
		return nil, err
	}

	var pages []string
	for i := 1; i <= n; i++ {
		text, err := pageText(doc, i)
		if errors.Is(err, ErrNoPage) {
			slog.Warn("Page count exceeds page tree, stopping", "path", path, "declared", n, "found", i-1)
			break
		}
		if err != nil {
			slog.Warn("Page text unavailable, skipping", "path", path, "page", i, "error", err)
			text = ""
		}
		pages = append(pages, text)
	}
	slog.Debug("Document pages read", "path", path, "pages", len(pages))
	return pages, nil
}

// pageCount reads the declared page count. Negative counts mean no pages.
func pageCount(doc Document) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("read page count: %v", r)
		}
	}()
	n = doc.NumPage()
	if n < 0 {
		n = 0
	}
	return n, nil
}

// ExtractAndClean reads every page and returns the normalized text. An empty
// result is not an error here.
func (e *Extractor) ExtractAndClean(path string) (string, error) {
	pages, err := e.Pages(path)
	if err != nil {
		return "", err
	}
	return textclean.Normalize(textclean.JoinPages(pages)), nil
}

// pageText isolates a single page: decoder panics on malformed content
// streams are turned into a page-level error.
func pageText(doc Document, n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("decode page %d: %v", n, r)
		}
	}()
	return doc.PageText(n)
}

// pdfDocument adapts ledongthuc/pdf to Document.
type pdfDocument struct {
	closer interface{ Close() error }
	reader *pdf.Reader
}

// OpenPDF opens a PDF file for page-wise text extraction.
func OpenPDF(path string) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("open pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return &pdfDocument{closer: f, reader: r}, nil
}

func (d *pdfDocument) NumPage() int {
	return d.reader.NumPage()
}

func (d *pdfDocument) PageText(n int) (string, error) {
	p := d.reader.Page(n)
	if p.V.IsNull() {
		return "", ErrNoPage
	}

	// Resource names like /F1 are page-local, so fonts are not shared.
	fonts := make(map[string]*pdf.Font)
	for _, name := range p.Fonts() {
		font := p.Font(name)
		fonts[name] = &font
	}

	text, err := p.GetPlainText(fonts)
	if err != nil {
		return "", fmt.Errorf("read pdf page %d: %w", n, err)
	}
	return text, nil
}

func (d *pdfDocument) Close() error {
	return d.closer.Close()
}
